package educator

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/aparaitech/lms-api/database"
	"github.com/aparaitech/lms-api/model"
	"github.com/aparaitech/lms-api/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newEducatorApp wires the handler behind a stub auth middleware that
// injects the given user, the way the real middleware populates locals.
// Object storage is left unconfigured.
func newEducatorApp(t *testing.T, user *model.User) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	enrollments := services.NewEnrollmentService(db)
	catalog := services.NewCatalogService(db, enrollments, nil)
	handler := NewEducatorHandler(db, nil, nil, catalog, enrollments)

	app := fiber.New()
	group := app.Group("/educator", func(c *fiber.Ctx) error {
		c.Locals("user_id", user.ID)
		c.Locals("user_role", user.Role)
		c.Locals("user", user)
		return c.Next()
	})
	group.Post("/courses", handler.AddCourse)
	group.Get("/courses/:id", handler.GetCourse)
	group.Put("/courses/:id", handler.UpdateCourse)
	group.Delete("/courses/:id", handler.DeleteCourse)
	group.Delete("/courses/:id/students/:studentId", handler.RemoveStudentAccess)

	return app, db
}

func seedEducator(t *testing.T, db *gorm.DB, id string) *model.User {
	t.Helper()

	user := &model.User{
		ID:    id,
		Name:  "Educator " + id,
		Email: id + "@example.com",
		Role:  model.RoleEducator,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedOwnedCourse(t *testing.T, db *gorm.DB, educatorID string) *model.Course {
	t.Helper()

	course := &model.Course{
		Title:       "Owned Course",
		Description: "A course used in handler tests",
		Price:       100,
		IsPublished: true,
		EducatorID:  educatorID,
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func TestGetCourseNotFoundAnswers404(t *testing.T) {
	educator := &model.User{ID: "edu_1", Role: model.RoleEducator}
	app, db := newEducatorApp(t, educator)
	seedEducator(t, db, educator.ID)

	req := httptest.NewRequest("GET", "/educator/courses/999", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetCourseInvalidIDAnswers400(t *testing.T) {
	educator := &model.User{ID: "edu_1", Role: model.RoleEducator}
	app, db := newEducatorApp(t, educator)
	seedEducator(t, db, educator.ID)

	req := httptest.NewRequest("GET", "/educator/courses/not-a-number", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetCourseOwnedByAnotherEducatorAnswers403(t *testing.T) {
	requester := &model.User{ID: "edu_1", Role: model.RoleEducator}
	app, db := newEducatorApp(t, requester)
	seedEducator(t, db, requester.ID)
	owner := seedEducator(t, db, "edu_2")
	course := seedOwnedCourse(t, db, owner.ID)

	req := httptest.NewRequest("GET", "/educator/courses/"+idParam(course.ID), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestDeleteCourseNotFoundLeavesNothingDeleted(t *testing.T) {
	educator := &model.User{ID: "edu_1", Role: model.RoleEducator}
	app, db := newEducatorApp(t, educator)
	seedEducator(t, db, educator.ID)
	course := seedOwnedCourse(t, db, educator.ID)

	req := httptest.NewRequest("DELETE", "/educator/courses/999", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&model.Course{}).Where("id = ?", course.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRemoveStudentAccessUnknownCourseAnswers404(t *testing.T) {
	educator := &model.User{ID: "edu_1", Role: model.RoleEducator}
	app, db := newEducatorApp(t, educator)
	seedEducator(t, db, educator.ID)

	req := httptest.NewRequest("DELETE", "/educator/courses/999/students/user_1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAddCourseWithoutStorageAnswers503AndCreatesNothing(t *testing.T) {
	educator := &model.User{ID: "edu_1", Role: model.RoleEducator}
	app, db := newEducatorApp(t, educator)
	seedEducator(t, db, educator.ID)

	payload, err := json.Marshal(CreateCourseRequest{
		Title:       "Intro to Databases",
		Description: "Relational fundamentals",
		Price:       500,
	})
	require.NoError(t, err)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("courseData", string(payload)))
	thumbnail, err := form.CreateFormFile("thumbnail", "cover.png")
	require.NoError(t, err)
	_, err = thumbnail.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest("POST", "/educator/courses", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&model.Course{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func idParam(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
