package user

import (
	"errors"

	"github.com/aparaitech/lms-api/services"
	"github.com/aparaitech/lms-api/utils/middleware"
	"github.com/aparaitech/lms-api/utils/response"
	"github.com/aparaitech/lms-api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// UserHandler serves the authenticated student endpoints: profile,
// enrollments, lecture progress and ratings.
type UserHandler struct {
	enrollments *services.EnrollmentService
	progress    *services.ProgressService
	validator   *validation.Validator
}

// NewUserHandler creates a new user handler
func NewUserHandler(enrollments *services.EnrollmentService, progress *services.ProgressService) *UserHandler {
	return &UserHandler{
		enrollments: enrollments,
		progress:    progress,
		validator:   validation.NewValidator(),
	}
}

// UpdateProgressRequest marks a lecture as completed
type UpdateProgressRequest struct {
	CourseID  uint   `json:"course_id" validate:"required,min=1"`
	LectureID string `json:"lecture_id" validate:"required,max=36"`
}

// GetProgressRequest selects the course to report progress for
type GetProgressRequest struct {
	CourseID uint `json:"course_id" validate:"required,min=1"`
}

// AddRatingRequest submits or replaces the caller's course rating
type AddRatingRequest struct {
	CourseID uint `json:"course_id" validate:"required,min=1"`
	Rating   int  `json:"rating" validate:"required,min=1,max=5"`
}

// GetUserData handles GET /api/v1/users/me
// The auth middleware has already resolved (and if needed provisioned)
// the local record, so this is a plain read.
func (h *UserHandler) GetUserData(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	return response.Success(c, user)
}

// EnrolledCourses handles GET /api/v1/users/me/courses
func (h *UserHandler) EnrolledCourses(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	courses, err := h.enrollments.ListForUser(user.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch enrolled courses")
	}

	return response.Success(c, courses)
}

// UpdateProgress handles POST /api/v1/progress/lecture-complete
func (h *UserHandler) UpdateProgress(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req UpdateProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := h.progress.MarkLectureComplete(user.ID, req.CourseID, req.LectureID); err != nil {
		if errors.Is(err, services.ErrCourseNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to update progress")
	}

	return response.SuccessWithMessage(c, "Progress updated", nil)
}

// GetProgress handles POST /api/v1/progress/get
func (h *UserHandler) GetProgress(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req GetProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	lectureIDs, err := h.progress.GetProgress(user.ID, req.CourseID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch progress")
	}

	return response.Success(c, fiber.Map{"lecture_completed": lectureIDs})
}

// AddRating handles POST /api/v1/progress/rating
func (h *UserHandler) AddRating(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req AddRatingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := h.progress.RateCourse(user.ID, req.CourseID, req.Rating); err != nil {
		switch {
		case errors.Is(err, services.ErrCourseNotFound):
			return response.NotFound(c, "Course not found")
		case errors.Is(err, services.ErrInvalidRating):
			return response.BadRequest(c, "Rating must be between 1 and 5")
		case errors.Is(err, services.ErrNotEnrolled):
			return response.Forbidden(c, "Only enrolled students can rate a course")
		}
		return response.InternalServerError(c, "Failed to add rating")
	}

	return response.SuccessWithMessage(c, "Rating saved", nil)
}
