package services

import (
	"testing"

	"github.com/aparaitech/lms-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	enrollments := NewEnrollmentService(db)

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 500, 0)

	require.NoError(t, enrollments.Enroll(nil, user.ID, course.ID))
	require.NoError(t, enrollments.Enroll(nil, user.ID, course.ID))

	var count int64
	require.NoError(t, db.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", user.ID, course.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestListForUserAndListStudentsAgree(t *testing.T) {
	db := newTestDB(t)
	enrollments := NewEnrollmentService(db)

	user := seedUser(t, db, "user_1")
	other := seedUser(t, db, "user_2")
	course := seedCourse(t, db, "edu_1", 500, 0)

	require.NoError(t, enrollments.Enroll(nil, user.ID, course.ID))
	require.NoError(t, enrollments.Enroll(nil, other.ID, course.ID))

	courses, err := enrollments.ListForUser(user.ID)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, course.ID, courses[0].ID)

	students, err := enrollments.ListStudents(course.ID)
	require.NoError(t, err)
	assert.Len(t, students, 2)
}

func TestAssignRecordsManualPurchase(t *testing.T) {
	db := newTestDB(t)
	enrollments := NewEnrollmentService(db)

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 500, 0)

	require.NoError(t, enrollments.Assign(user.ID, course.ID))

	enrolled, err := enrollments.IsEnrolled(user.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, enrolled)

	var purchase model.Purchase
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).
		First(&purchase).Error)
	assert.Equal(t, model.PurchaseCompleted, purchase.Status)
	assert.Equal(t, model.PaymentIDManualAssignment, purchase.GatewayPayment)
	assert.Zero(t, purchase.Amount)
}

func TestRevokeRemovesEnrollmentAndPurchases(t *testing.T) {
	db := newTestDB(t)
	enrollments := NewEnrollmentService(db)

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 500, 0)
	require.NoError(t, enrollments.Assign(user.ID, course.ID))

	require.NoError(t, enrollments.Revoke(user.ID, course.ID))

	enrolled, err := enrollments.IsEnrolled(user.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)

	var count int64
	require.NoError(t, db.Model(&model.Purchase{}).
		Where("user_id = ? AND course_id = ?", user.ID, course.ID).
		Count(&count).Error)
	assert.Zero(t, count)
}
