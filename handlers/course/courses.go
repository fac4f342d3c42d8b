package course

import (
	"strconv"

	"github.com/aparaitech/lms-api/services"
	"github.com/aparaitech/lms-api/utils/middleware"
	"github.com/aparaitech/lms-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// CourseHandler serves the public catalog endpoints
type CourseHandler struct {
	catalog *services.CatalogService
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(catalog *services.CatalogService) *CourseHandler {
	return &CourseHandler{catalog: catalog}
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	courses, err := h.catalog.ListPublished(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	return response.Success(c, courses)
}

// GetCourse handles GET /api/v1/courses/:id
// Runs behind optional auth: enrolled users and course owners see full
// media URLs, everyone else gets the redacted view.
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course id")
	}

	requester, _ := middleware.GetUser(c)

	course, err := h.catalog.GetCourse(uint(id), requester)
	if err != nil {
		if err == services.ErrCourseNotFound {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	return response.Success(c, course)
}
