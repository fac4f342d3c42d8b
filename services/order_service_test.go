package services

import (
	"context"
	"errors"
	"testing"

	"github.com/aparaitech/lms-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderDiscountedAmount(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	enrollments := NewEnrollmentService(db)
	orders := NewOrderService(db, gateway, enrollments, "INR")

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 1000, 20)

	result, err := orders.CreateOrder(context.Background(), user.ID, course.ID)
	require.NoError(t, err)

	// 1000 with a 20% discount charges 800.00, i.e. 80000 paise.
	assert.Equal(t, int64(80000), result.Amount)
	assert.Equal(t, "INR", result.Currency)
	assert.NotEmpty(t, result.OrderID)

	var purchase model.Purchase
	require.NoError(t, db.First(&purchase, result.PurchaseID).Error)
	assert.Equal(t, model.PurchasePending, purchase.Status)
	assert.Equal(t, 800.0, purchase.Amount)
	assert.Equal(t, result.OrderID, purchase.GatewayOrderID)

	// The gateway order carries the purchase context in its notes.
	order := gateway.orders[result.OrderID]
	require.NotNil(t, order)
	assert.Equal(t, user.ID, order.Notes["userId"])
	assert.NotEmpty(t, order.Notes["purchaseId"])
	assert.NotEmpty(t, order.Notes["courseId"])
}

func TestCreateOrderCourseNotFound(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, newFakeGateway(), NewEnrollmentService(db), "INR")

	seedUser(t, db, "user_1")

	_, err := orders.CreateOrder(context.Background(), "user_1", 9999)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCreateOrderLockedCourse(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, newFakeGateway(), NewEnrollmentService(db), "INR")

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 500, 0)
	require.NoError(t, db.Model(course).Update("is_locked", true).Error)

	_, err := orders.CreateOrder(context.Background(), user.ID, course.ID)
	assert.ErrorIs(t, err, ErrCourseLocked)
}

func TestCreateOrderAlreadyEnrolled(t *testing.T) {
	db := newTestDB(t)
	enrollments := NewEnrollmentService(db)
	orders := NewOrderService(db, newFakeGateway(), enrollments, "INR")

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 500, 0)
	require.NoError(t, enrollments.Enroll(nil, user.ID, course.ID))

	_, err := orders.CreateOrder(context.Background(), user.ID, course.ID)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestCreateOrderRejectsFreeCourse(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, newFakeGateway(), NewEnrollmentService(db), "INR")

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 0, 0)

	_, err := orders.CreateOrder(context.Background(), user.ID, course.ID)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	// Full discount is equally unchargeable.
	discounted := seedCourse(t, db, "edu_1", 1000, 100)
	_, err = orders.CreateOrder(context.Background(), user.ID, discounted.ID)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestCreateOrderDiscardsStalePendings(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	orders := NewOrderService(db, gateway, NewEnrollmentService(db), "INR")

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 500, 0)

	first, err := orders.CreateOrder(context.Background(), user.ID, course.ID)
	require.NoError(t, err)
	second, err := orders.CreateOrder(context.Background(), user.ID, course.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.PurchaseID, second.PurchaseID)

	// Only the newest checkout is still eligible for verification.
	var pending []model.Purchase
	require.NoError(t, db.Where("user_id = ? AND course_id = ? AND status = ?",
		user.ID, course.ID, model.PurchasePending).Find(&pending).Error)
	require.Len(t, pending, 1)
	assert.Equal(t, second.PurchaseID, pending[0].ID)
}

func TestCreateOrderGatewayFailureLeavesNoPending(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	gateway.createErr = errors.New("gateway unreachable")
	orders := NewOrderService(db, gateway, NewEnrollmentService(db), "INR")

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 500, 0)

	_, err := orders.CreateOrder(context.Background(), user.ID, course.ID)
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&model.Purchase{}).
		Where("user_id = ? AND course_id = ?", user.ID, course.ID).
		Count(&count).Error)
	assert.Zero(t, count)
}
