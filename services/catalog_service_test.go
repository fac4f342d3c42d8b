package services

import (
	"context"
	"testing"

	"github.com/aparaitech/lms-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCourseWithContent(t *testing.T, db *gorm.DB, educatorID string) *model.Course {
	t.Helper()

	course := &model.Course{
		Title:       "Detailed Course",
		Price:       500,
		IsPublished: true,
		EducatorID:  educatorID,
		Chapters: []model.Chapter{
			{
				ID:    "ch_1",
				Title: "Intro",
				Order: 1,
				Lectures: []model.Lecture{
					{ID: "lec_free", ChapterID: "ch_1", Title: "Welcome", DurationMins: 5, URL: "https://cdn.example.com/free.mp4", IsPreviewFree: true, Order: 1},
					{ID: "lec_paid", ChapterID: "ch_1", Title: "Deep Dive", DurationMins: 40, URL: "https://cdn.example.com/paid.mp4", Order: 2},
				},
			},
		},
		PDFResources: []model.PDFResource{
			{ID: "pdf_1", Title: "Notes", URL: "https://cdn.example.com/notes.pdf", AllowDownload: true},
		},
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func TestListPublishedFiltersAndOrders(t *testing.T) {
	db := newTestDB(t)
	catalog := NewCatalogService(db, NewEnrollmentService(db), nil)

	seedUser(t, db, "edu_1")
	regular := seedCourse(t, db, "edu_1", 500, 0)

	trending := seedCourse(t, db, "edu_1", 700, 0)
	require.NoError(t, db.Model(trending).Update("is_trending", true).Error)

	hidden := seedCourse(t, db, "edu_1", 900, 0)
	require.NoError(t, db.Model(hidden).Update("is_published", false).Error)

	courses, err := catalog.ListPublished(context.Background())
	require.NoError(t, err)

	require.Len(t, courses, 2)
	assert.Equal(t, trending.ID, courses[0].ID)
	assert.Equal(t, regular.ID, courses[1].ID)
}

func TestGetCourseRedactsForAnonymous(t *testing.T) {
	db := newTestDB(t)
	catalog := NewCatalogService(db, NewEnrollmentService(db), nil)

	seedUser(t, db, "edu_1")
	course := seedCourseWithContent(t, db, "edu_1")

	got, err := catalog.GetCourse(course.ID, nil)
	require.NoError(t, err)

	require.Len(t, got.Chapters, 1)
	require.Len(t, got.Chapters[0].Lectures, 2)
	for _, lecture := range got.Chapters[0].Lectures {
		if lecture.IsPreviewFree {
			assert.NotEmpty(t, lecture.URL)
		} else {
			assert.Empty(t, lecture.URL)
		}
	}

	require.Len(t, got.PDFResources, 1)
	assert.Empty(t, got.PDFResources[0].URL)
	assert.False(t, got.PDFResources[0].AllowDownload)
}

func TestGetCourseFullForEnrolledAndOwner(t *testing.T) {
	db := newTestDB(t)
	enrollments := NewEnrollmentService(db)
	catalog := NewCatalogService(db, enrollments, nil)

	educator := seedUser(t, db, "edu_1")
	require.NoError(t, db.Model(educator).Update("role", model.RoleEducator).Error)
	educator.Role = model.RoleEducator
	student := seedUser(t, db, "user_1")
	course := seedCourseWithContent(t, db, educator.ID)
	require.NoError(t, enrollments.Enroll(nil, student.ID, course.ID))

	for _, requester := range []*model.User{student, educator} {
		got, err := catalog.GetCourse(course.ID, requester)
		require.NoError(t, err)

		for _, lecture := range got.Chapters[0].Lectures {
			assert.NotEmpty(t, lecture.URL)
		}
		assert.NotEmpty(t, got.PDFResources[0].URL)
		assert.True(t, got.PDFResources[0].AllowDownload)
	}
}

func TestGetCourseLockedStillFetchable(t *testing.T) {
	db := newTestDB(t)
	catalog := NewCatalogService(db, NewEnrollmentService(db), nil)

	seedUser(t, db, "edu_1")
	course := seedCourse(t, db, "edu_1", 500, 0)
	require.NoError(t, db.Model(course).Update("is_locked", true).Error)

	// Locked only blocks checkout; browsing keeps working.
	got, err := catalog.GetCourse(course.ID, nil)
	require.NoError(t, err)
	assert.True(t, got.IsLocked)
	assert.Equal(t, course.Title, got.Title)
}

func TestGetCourseNotFound(t *testing.T) {
	db := newTestDB(t)
	catalog := NewCatalogService(db, NewEnrollmentService(db), nil)

	_, err := catalog.GetCourse(9999, nil)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}
