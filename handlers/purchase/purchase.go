package purchase

import (
	"errors"
	"log"

	"github.com/aparaitech/lms-api/services"
	"github.com/aparaitech/lms-api/services/razorpay"
	"github.com/aparaitech/lms-api/utils/middleware"
	"github.com/aparaitech/lms-api/utils/response"
	"github.com/aparaitech/lms-api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// PurchaseHandler handles the checkout flow: order creation, payment
// verification and gateway configuration checks.
type PurchaseHandler struct {
	orders       *services.OrderService
	verification *services.VerificationService
	keyID        string
	configErr    error
	validator    *validation.Validator
}

// NewPurchaseHandler creates a new purchase handler. configErr carries a
// gateway misconfiguration detected at startup; when set, checkout
// endpoints answer 503 instead of attempting gateway calls.
func NewPurchaseHandler(orders *services.OrderService, verification *services.VerificationService, keyID string, configErr error) *PurchaseHandler {
	return &PurchaseHandler{
		orders:       orders,
		verification: verification,
		keyID:        keyID,
		configErr:    configErr,
		validator:    validation.NewValidator(),
	}
}

// CreateOrderRequest represents the request body for starting a checkout
type CreateOrderRequest struct {
	CourseID uint `json:"course_id" validate:"required,min=1"`
}

// VerifyPaymentRequest carries the gateway's checkout confirmation.
// Only the order id, payment id and signature are trusted inputs; the
// purchase context is recovered server-side from the order notes.
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

// CheckConfig handles GET /api/v1/purchase/check-config
// The client needs the public key id to open the checkout widget.
func (h *PurchaseHandler) CheckConfig(c *fiber.Ctx) error {
	if h.configErr != nil {
		log.Printf("Gateway configuration error: %v", h.configErr)
		return response.ServiceUnavailable(c, "Payment gateway is not configured", "GATEWAY_CONFIG_ERROR")
	}

	return response.Success(c, fiber.Map{"key_id": h.keyID})
}

// CreateOrder handles POST /api/v1/purchase/create-order
func (h *PurchaseHandler) CreateOrder(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	if h.configErr != nil {
		log.Printf("Gateway configuration error: %v", h.configErr)
		return response.ServiceUnavailable(c, "Payment gateway is not configured", "GATEWAY_CONFIG_ERROR")
	}

	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.orders.CreateOrder(c.Context(), user.ID, req.CourseID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCourseNotFound):
			return response.NotFound(c, "Course not found")
		case errors.Is(err, services.ErrCourseLocked):
			return response.Error(c, fiber.StatusForbidden, "Course is locked for purchase", "COURSE_LOCKED")
		case errors.Is(err, services.ErrAlreadyEnrolled):
			return response.Conflict(c, "Already enrolled in this course")
		case errors.Is(err, services.ErrInvalidPrice):
			return response.BadRequest(c, "Course price is not chargeable")
		}

		var apiErr *razorpay.APIError
		if errors.As(err, &apiErr) {
			log.Printf("Gateway order creation failed: %v", apiErr)
			return response.Error(c, fiber.StatusBadGateway, "Payment gateway rejected the order", "GATEWAY_ERROR")
		}

		log.Printf("Order creation failed: %v", err)
		return response.InternalServerError(c, "Failed to create order")
	}

	return response.Created(c, result)
}

// VerifyPayment handles POST /api/v1/purchase/verify-payment
func (h *PurchaseHandler) VerifyPayment(c *fiber.Ctx) error {
	if _, ok := middleware.GetUser(c); !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	if h.configErr != nil {
		log.Printf("Gateway configuration error: %v", h.configErr)
		return response.ServiceUnavailable(c, "Payment gateway is not configured", "GATEWAY_CONFIG_ERROR")
	}

	var req VerifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.verification.VerifyPayment(c.Context(), req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSignature):
			// Tampered or forged confirmation. Nothing was written.
			log.Printf("Payment signature mismatch for order %s", req.RazorpayOrderID)
			return response.Error(c, fiber.StatusBadRequest, "Payment signature verification failed", "INVALID_SIGNATURE")
		case errors.Is(err, services.ErrPurchaseNotFound):
			return response.NotFound(c, "Purchase not found for this order")
		case errors.Is(err, services.ErrCourseNotFound):
			return response.NotFound(c, "Course not found")
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		}

		var apiErr *razorpay.APIError
		if errors.As(err, &apiErr) {
			log.Printf("Gateway order fetch failed: %v", apiErr)
			return response.Error(c, fiber.StatusBadGateway, "Failed to fetch order from gateway", "GATEWAY_ERROR")
		}

		log.Printf("Payment verification failed: %v", err)
		return response.InternalServerError(c, "Failed to verify payment")
	}

	if result.AlreadyVerified {
		return response.SuccessWithMessage(c, "Payment already verified", result)
	}
	return response.SuccessWithMessage(c, "Payment verified and enrollment granted", result)
}
