package services

import (
	"context"
	"testing"

	"github.com/aparaitech/lms-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyPaymentCompletesAndEnrolls(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	enrollments := NewEnrollmentService(db)
	orders := NewOrderService(db, gateway, enrollments, "INR")
	verification := NewVerificationService(db, gateway, enrollments, nil)

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 1000, 20)

	created, err := orders.CreateOrder(context.Background(), user.ID, course.ID)
	require.NoError(t, err)

	signature := gateway.sign(created.OrderID, "pay_test001")
	result, err := verification.VerifyPayment(context.Background(), created.OrderID, "pay_test001", signature)
	require.NoError(t, err)

	assert.False(t, result.AlreadyVerified)
	require.Len(t, result.EnrolledCourses, 1)
	assert.Equal(t, course.ID, result.EnrolledCourses[0].ID)

	var purchase model.Purchase
	require.NoError(t, db.First(&purchase, created.PurchaseID).Error)
	assert.Equal(t, model.PurchaseCompleted, purchase.Status)
	assert.Equal(t, "pay_test001", purchase.GatewayPayment)

	enrolled, err := enrollments.IsEnrolled(user.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, enrolled)
}

func TestVerifyPaymentTamperedSignatureWritesNothing(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	enrollments := NewEnrollmentService(db)
	orders := NewOrderService(db, gateway, enrollments, "INR")
	verification := NewVerificationService(db, gateway, enrollments, nil)

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 1000, 0)

	created, err := orders.CreateOrder(context.Background(), user.ID, course.ID)
	require.NoError(t, err)

	// Signature for a different payment id does not match.
	signature := gateway.sign(created.OrderID, "pay_other")
	_, err = verification.VerifyPayment(context.Background(), created.OrderID, "pay_test001", signature)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	var purchase model.Purchase
	require.NoError(t, db.First(&purchase, created.PurchaseID).Error)
	assert.Equal(t, model.PurchasePending, purchase.Status)
	assert.Empty(t, purchase.GatewayPayment)

	enrolled, err := enrollments.IsEnrolled(user.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)
}

func TestVerifyPaymentIdempotent(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	enrollments := NewEnrollmentService(db)
	orders := NewOrderService(db, gateway, enrollments, "INR")
	verification := NewVerificationService(db, gateway, enrollments, nil)

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 1000, 0)

	created, err := orders.CreateOrder(context.Background(), user.ID, course.ID)
	require.NoError(t, err)

	signature := gateway.sign(created.OrderID, "pay_test001")
	first, err := verification.VerifyPayment(context.Background(), created.OrderID, "pay_test001", signature)
	require.NoError(t, err)
	assert.False(t, first.AlreadyVerified)

	second, err := verification.VerifyPayment(context.Background(), created.OrderID, "pay_test001", signature)
	require.NoError(t, err)
	assert.True(t, second.AlreadyVerified)
	require.Len(t, second.EnrolledCourses, 1)

	var enrollmentCount int64
	require.NoError(t, db.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", user.ID, course.ID).
		Count(&enrollmentCount).Error)
	assert.Equal(t, int64(1), enrollmentCount)
}

func TestVerifyPaymentUnknownOrder(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	enrollments := NewEnrollmentService(db)
	verification := NewVerificationService(db, gateway, enrollments, nil)

	signature := gateway.sign("order_missing", "pay_test001")
	_, err := verification.VerifyPayment(context.Background(), "order_missing", "pay_test001", signature)
	assert.Error(t, err)
}
