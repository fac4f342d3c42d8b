package services

import (
	"context"

	"github.com/aparaitech/lms-api/services/razorpay"
)

// PaymentGateway is the slice of the gateway client the checkout flow
// depends on. The production implementation is *razorpay.Client; tests
// substitute a fake.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error)
	FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}
