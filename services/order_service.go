package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"

	"github.com/aparaitech/lms-api/model"
	"github.com/aparaitech/lms-api/services/razorpay"
	"gorm.io/gorm"
)

// Note keys embedded on gateway orders so verification can recover the
// purchase context from the gateway instead of trusting the client.
const (
	notePurchaseID = "purchaseId"
	noteUserID     = "userId"
	noteCourseID   = "courseId"
)

// OrderService turns a (user, course) pair into a payment-gateway order
// backed by a local pending purchase row.
type OrderService struct {
	db          *gorm.DB
	gateway     PaymentGateway
	enrollments *EnrollmentService
	currency    string
}

// NewOrderService creates a new order service. The gateway client is
// injected by the composition root, constructed once from validated
// configuration.
func NewOrderService(db *gorm.DB, gateway PaymentGateway, enrollments *EnrollmentService, currency string) *OrderService {
	return &OrderService{
		db:          db,
		gateway:     gateway,
		enrollments: enrollments,
		currency:    currency,
	}
}

// OrderResult is what the client needs to launch the gateway's checkout.
type OrderResult struct {
	OrderID    string `json:"order_id"`
	Amount     int64  `json:"amount"` // minor units
	Currency   string `json:"currency"`
	PurchaseID uint   `json:"purchase_id"`
}

// CreateOrder runs the policy checks, records a pending purchase, and
// registers the order with the gateway. Enrollment happens only after
// verification, never here.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, courseID uint) (*OrderResult, error) {
	var course model.Course
	if err := s.db.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to fetch course: %w", err)
	}

	if course.IsLocked {
		return nil, ErrCourseLocked
	}

	enrolled, err := s.enrollments.IsEnrolled(userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	// Earlier pendings for this pair are abandoned checkouts; discard
	// them so at most one purchase is ever eligible for verification.
	if err := s.db.Where("user_id = ? AND course_id = ? AND status = ?",
		userID, courseID, model.PurchasePending).
		Delete(&model.Purchase{}).Error; err != nil {
		return nil, fmt.Errorf("failed to discard stale purchases: %w", err)
	}

	amount := course.EffectivePrice()
	amountMinor := int64(math.Round(amount * 100))
	if amountMinor <= 0 {
		return nil, ErrInvalidPrice
	}

	purchase := model.Purchase{
		UserID:   userID,
		CourseID: courseID,
		Amount:   amount,
		Currency: s.currency,
		Status:   model.PurchasePending,
	}
	if err := s.db.Create(&purchase).Error; err != nil {
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	order, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		Amount:   amountMinor,
		Currency: s.currency,
		Receipt:  fmt.Sprintf("receipt_%d", purchase.ID),
		Notes: map[string]string{
			notePurchaseID: strconv.FormatUint(uint64(purchase.ID), 10),
			noteUserID:     userID,
			noteCourseID:   strconv.FormatUint(uint64(courseID), 10),
		},
	})
	if err != nil {
		// The pending row is useless without a gateway order; drop it so
		// retries start clean. A leaked row falls to the cron purge.
		if delErr := s.db.Delete(&purchase).Error; delErr != nil {
			log.Printf("Failed to discard pending purchase %d after gateway error: %v", purchase.ID, delErr)
		}
		return nil, fmt.Errorf("gateway order creation failed: %w", err)
	}

	if err := s.db.Model(&purchase).Update("gateway_order_id", order.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to record gateway order id: %w", err)
	}

	return &OrderResult{
		OrderID:    order.ID,
		Amount:     order.Amount,
		Currency:   order.Currency,
		PurchaseID: purchase.ID,
	}, nil
}
