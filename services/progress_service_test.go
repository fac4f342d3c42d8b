package services

import (
	"testing"

	"github.com/aparaitech/lms-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkLectureCompleteIsSetInsert(t *testing.T) {
	db := newTestDB(t)
	enrollments := NewEnrollmentService(db)
	progress := NewProgressService(db, enrollments)

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 500, 0)

	require.NoError(t, progress.MarkLectureComplete(user.ID, course.ID, "lec_1"))
	require.NoError(t, progress.MarkLectureComplete(user.ID, course.ID, "lec_1"))
	require.NoError(t, progress.MarkLectureComplete(user.ID, course.ID, "lec_2"))

	lectureIDs, err := progress.GetProgress(user.ID, course.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lec_1", "lec_2"}, lectureIDs)
}

func TestMarkLectureCompleteUnknownCourse(t *testing.T) {
	db := newTestDB(t)
	progress := NewProgressService(db, NewEnrollmentService(db))

	seedUser(t, db, "user_1")

	err := progress.MarkLectureComplete("user_1", 9999, "lec_1")
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestGetProgressEmptyForFreshUser(t *testing.T) {
	db := newTestDB(t)
	progress := NewProgressService(db, NewEnrollmentService(db))

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 500, 0)

	lectureIDs, err := progress.GetProgress(user.ID, course.ID)
	require.NoError(t, err)
	assert.Empty(t, lectureIDs)
}

func TestRateCourseRequiresEnrollment(t *testing.T) {
	db := newTestDB(t)
	enrollments := NewEnrollmentService(db)
	progress := NewProgressService(db, enrollments)

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 500, 0)

	err := progress.RateCourse(user.ID, course.ID, 4)
	assert.ErrorIs(t, err, ErrNotEnrolled)

	require.NoError(t, enrollments.Enroll(nil, user.ID, course.ID))
	assert.NoError(t, progress.RateCourse(user.ID, course.ID, 4))
}

func TestRateCourseRejectsOutOfRange(t *testing.T) {
	db := newTestDB(t)
	progress := NewProgressService(db, NewEnrollmentService(db))

	assert.ErrorIs(t, progress.RateCourse("user_1", 1, 0), ErrInvalidRating)
	assert.ErrorIs(t, progress.RateCourse("user_1", 1, 6), ErrInvalidRating)
}

func TestRateCourseReplacesPreviousRating(t *testing.T) {
	db := newTestDB(t)
	enrollments := NewEnrollmentService(db)
	progress := NewProgressService(db, enrollments)

	user := seedUser(t, db, "user_1")
	course := seedCourse(t, db, "edu_1", 500, 0)
	require.NoError(t, enrollments.Enroll(nil, user.ID, course.ID))

	require.NoError(t, progress.RateCourse(user.ID, course.ID, 2))
	require.NoError(t, progress.RateCourse(user.ID, course.ID, 5))

	var ratings []model.CourseRating
	require.NoError(t, db.Where("course_id = ? AND user_id = ?", course.ID, user.ID).Find(&ratings).Error)
	require.Len(t, ratings, 1)
	assert.Equal(t, 5, ratings[0].Rating)
}
