package services

import "errors"

// Domain errors. Handlers translate these into HTTP codes at the
// boundary; nothing below the handler layer writes responses.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrCourseNotFound   = errors.New("course not found")
	ErrPurchaseNotFound = errors.New("purchase record not found")
	ErrLectureNotFound  = errors.New("lecture not found")

	// ErrCourseLocked rejects purchase of a course that is visible but
	// administratively blocked from checkout.
	ErrCourseLocked = errors.New("course is locked and cannot be purchased")

	// ErrAlreadyEnrolled rejects an order for a course the user already
	// has access to. A conflict, not retryable.
	ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")

	// ErrInvalidPrice guards against a computed charge of zero or less.
	ErrInvalidPrice = errors.New("computed course price is invalid")

	// ErrInvalidSignature means the payment confirmation failed
	// cryptographic verification. Security relevant, never retried.
	ErrInvalidSignature = errors.New("invalid payment signature")

	// ErrNotEnrolled rejects actions that require prior enrollment.
	ErrNotEnrolled = errors.New("user is not enrolled in this course")

	// ErrInvalidRating rejects ratings outside 1-5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)
