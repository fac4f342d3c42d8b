package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/aparaitech/lms-api/database"
	"github.com/aparaitech/lms-api/model"
	"github.com/aparaitech/lms-api/services/razorpay"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testKeySecret signs fake gateway confirmations in tests.
const testKeySecret = "secret_0123456789abcdef0123"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id string) *model.User {
	t.Helper()

	user := &model.User{
		ID:    id,
		Name:  "Test User " + id,
		Email: id + "@example.com",
		Role:  model.RoleStudent,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedCourse(t *testing.T, db *gorm.DB, educatorID string, price, discount float64) *model.Course {
	t.Helper()

	course := &model.Course{
		Title:       "Test Course",
		Description: "A course used in tests",
		Price:       price,
		Discount:    discount,
		IsPublished: true,
		EducatorID:  educatorID,
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

// fakeGateway is an in-memory PaymentGateway that signs and verifies
// with testKeySecret.
type fakeGateway struct {
	orders    map[string]*razorpay.Order
	createErr error
	seq       int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{orders: make(map[string]*razorpay.Order)}
}

func (f *fakeGateway) CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	order := &razorpay.Order{
		ID:       fmt.Sprintf("order_test%03d", f.seq),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		Notes:    req.Notes,
	}
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeGateway) FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, &razorpay.APIError{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "order does not exist"}
	}
	return order, nil
}

func (f *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return razorpay.VerifyPaymentSignature(orderID, paymentID, signature, testKeySecret)
}

func (f *fakeGateway) sign(orderID, paymentID string) string {
	return razorpay.SignPayment(orderID, paymentID, testKeySecret)
}
