package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/aparaitech/lms-api/model"
	"gorm.io/gorm"
)

// VerificationService consumes client-submitted payment confirmations.
// Nothing is written unless the confirmation's signature proves it came
// from the gateway.
type VerificationService struct {
	db          *gorm.DB
	gateway     PaymentGateway
	enrollments *EnrollmentService
	emails      *EmailService
}

// NewVerificationService creates a new verification service. emails may
// be nil; confirmation mail is best effort.
func NewVerificationService(db *gorm.DB, gateway PaymentGateway, enrollments *EnrollmentService, emails *EmailService) *VerificationService {
	return &VerificationService{
		db:          db,
		gateway:     gateway,
		enrollments: enrollments,
		emails:      emails,
	}
}

// VerifyResult reports the outcome plus the user's refreshed enrolled
// courses so the client can update without a second round trip.
type VerifyResult struct {
	AlreadyVerified bool           `json:"already_verified"`
	EnrolledCourses []model.Course `json:"enrolled_courses"`
}

// VerifyPayment checks the confirmation signature, recovers the purchase
// context from the gateway order, and commits the enrollment exactly
// once. Resubmitting the same confirmation is a no-op success.
func (s *VerificationService) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (*VerifyResult, error) {
	if !s.gateway.VerifySignature(orderID, paymentID, signature) {
		return nil, ErrInvalidSignature
	}

	// Only the gateway-attested order says which purchase to credit.
	order, err := s.gateway.FetchOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gateway order: %w", err)
	}

	purchaseID, err := strconv.ParseUint(order.Notes[notePurchaseID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("gateway order carries no purchase reference: %w", err)
	}
	userID := order.Notes[noteUserID]
	courseID, err := strconv.ParseUint(order.Notes[noteCourseID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("gateway order carries no course reference: %w", err)
	}

	var user model.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	var course model.Course
	if err := s.db.First(&course, uint(courseID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to fetch course: %w", err)
	}

	var purchase model.Purchase
	if err := s.db.First(&purchase, uint(purchaseID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("failed to fetch purchase: %w", err)
	}

	if purchase.Status == model.PurchaseCompleted {
		// Double submit of the same confirmation; report success without
		// reapplying side effects.
		enrolled, err := s.enrollments.ListForUser(userID)
		if err != nil {
			return nil, err
		}
		return &VerifyResult{AlreadyVerified: true, EnrolledCourses: enrolled}, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&purchase).Updates(map[string]interface{}{
			"status":             model.PurchaseCompleted,
			"gateway_payment_id": paymentID,
		}).Error; err != nil {
			return fmt.Errorf("failed to complete purchase: %w", err)
		}
		return s.enrollments.Enroll(tx, userID, uint(courseID))
	})
	if err != nil {
		return nil, err
	}

	if s.emails != nil && user.Email != "" {
		if err := s.emails.SendEnrollmentConfirmation(user.Email, user.Name, course.Title); err != nil {
			log.Printf("Warning: enrollment confirmation mail failed for %s: %v", user.ID, err)
		}
	}

	enrolled, err := s.enrollments.ListForUser(userID)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{EnrolledCourses: enrolled}, nil
}
