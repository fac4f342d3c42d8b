package educator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"strconv"

	"github.com/aparaitech/lms-api/model"
	"github.com/aparaitech/lms-api/services"
	"github.com/aparaitech/lms-api/services/clerk"
	"github.com/aparaitech/lms-api/services/storage"
	"github.com/aparaitech/lms-api/utils/middleware"
	"github.com/aparaitech/lms-api/utils/pdfvalidation"
	"github.com/aparaitech/lms-api/utils/policy"
	"github.com/aparaitech/lms-api/utils/response"
	"github.com/aparaitech/lms-api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EducatorHandler handles course authoring and roster management
type EducatorHandler struct {
	db          *gorm.DB
	clerk       *clerk.Client
	storage     *storage.SpacesClient
	catalog     *services.CatalogService
	enrollments *services.EnrollmentService
	validator   *validation.Validator
}

// NewEducatorHandler creates a new educator handler. storageClient may
// be nil when object storage is not configured; uploads then answer 503.
func NewEducatorHandler(db *gorm.DB, clerkClient *clerk.Client, storageClient *storage.SpacesClient, catalog *services.CatalogService, enrollments *services.EnrollmentService) *EducatorHandler {
	return &EducatorHandler{
		db:          db,
		clerk:       clerkClient,
		storage:     storageClient,
		catalog:     catalog,
		enrollments: enrollments,
		validator:   validation.NewValidator(),
	}
}

// LectureInput is one lecture inside a course authoring payload
type LectureInput struct {
	Title         string `json:"title" validate:"required,min=1,max=255"`
	DurationMins  int    `json:"duration_mins" validate:"required,min=1"`
	URL           string `json:"url" validate:"required,url"`
	IsPreviewFree bool   `json:"is_preview_free"`
	Order         int    `json:"order" validate:"min=0"`
}

// ChapterInput is one chapter inside a course authoring payload
type ChapterInput struct {
	Title    string         `json:"title" validate:"required,min=1,max=255"`
	Order    int            `json:"order" validate:"min=0"`
	Lectures []LectureInput `json:"lectures" validate:"dive"`
}

// CreateCourseRequest is the courseData JSON part of the multipart
// course creation request.
type CreateCourseRequest struct {
	Title       string         `json:"title" validate:"required,min=3,max=255"`
	Description string         `json:"description" validate:"omitempty,max=10000"`
	Price       float64        `json:"price" validate:"min=0"`
	Discount    float64        `json:"discount" validate:"min=0,max=100"`
	IsPublished *bool          `json:"is_published"`
	Chapters    []ChapterInput `json:"chapters" validate:"dive"`
}

// UpdateCourseRequest carries partial course metadata updates
type UpdateCourseRequest struct {
	Title       string   `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=10000"`
	Price       *float64 `json:"price" validate:"omitempty,min=0"`
	Discount    *float64 `json:"discount" validate:"omitempty,min=0,max=100"`
	IsPublished *bool    `json:"is_published"`
	IsLocked    *bool    `json:"is_locked"`
	IsTrending  *bool    `json:"is_trending"`
}

// AssignCourseRequest grants a student access without payment
type AssignCourseRequest struct {
	UserID   string `json:"user_id" validate:"required,max=64"`
	CourseID uint   `json:"course_id" validate:"required,min=1"`
}

// AddPdfRequest is the metadata part of a PDF resource upload
type AddPdfRequest struct {
	Title         string `json:"title" validate:"required,min=1,max=255"`
	Description   string `json:"description" validate:"omitempty,max=2000"`
	AllowDownload bool   `json:"allow_download"`
}

// UpdateRole handles POST /api/v1/educator/update-role
// Promotes the caller to educator, mirrored back to the identity
// provider so new session tokens carry the role too.
func (h *EducatorHandler) UpdateRole(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	if user.IsEducator() {
		return response.SuccessWithMessage(c, "Already an educator", user)
	}

	if err := h.clerk.SetRole(c.Context(), user.ID, model.RoleEducator); err != nil {
		log.Printf("Failed to propagate educator role for %s: %v", user.ID, err)
		return response.InternalServerError(c, "Failed to update role with identity provider")
	}

	if err := h.db.Model(&model.User{}).Where("id = ?", user.ID).
		Update("role", model.RoleEducator).Error; err != nil {
		return response.InternalServerError(c, "Failed to update role")
	}

	user.Role = model.RoleEducator
	return response.SuccessWithMessage(c, "You can now publish courses", user)
}

// AddCourse handles POST /api/v1/educator/courses
// Multipart request: a courseData JSON field, a required thumbnail image
// and optional pdfs attachments.
func (h *EducatorHandler) AddCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseData := c.FormValue("courseData")
	if courseData == "" {
		return response.BadRequest(c, "Missing courseData field")
	}

	var req CreateCourseRequest
	if err := json.Unmarshal([]byte(courseData), &req); err != nil {
		return response.BadRequest(c, "Invalid courseData JSON")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course := model.Course{
		Title:       validation.SanitizeString(req.Title),
		Description: validation.SanitizeString(req.Description),
		Price:       req.Price,
		Discount:    req.Discount,
		IsPublished: true,
		EducatorID:  user.ID,
	}
	if req.IsPublished != nil {
		course.IsPublished = *req.IsPublished
	}

	for _, ch := range req.Chapters {
		chapter := model.Chapter{
			ID:    uuid.NewString(),
			Title: validation.SanitizeString(ch.Title),
			Order: ch.Order,
		}
		for _, lec := range ch.Lectures {
			chapter.Lectures = append(chapter.Lectures, model.Lecture{
				ID:            uuid.NewString(),
				ChapterID:     chapter.ID,
				Title:         validation.SanitizeString(lec.Title),
				DurationMins:  lec.DurationMins,
				URL:           lec.URL,
				IsPreviewFree: lec.IsPreviewFree,
				Order:         lec.Order,
			})
		}
		course.Chapters = append(course.Chapters, chapter)
	}

	// Thumbnail upload
	thumbnail, err := c.FormFile("thumbnail")
	if err != nil {
		return response.BadRequest(c, "Missing thumbnail image")
	}
	thumbnailURL, err := h.uploadFormFile(c, thumbnail, "thumbnails")
	if err != nil {
		return h.respondUploadError(c, err)
	}
	course.Thumbnail = thumbnailURL

	// Optional PDF attachments
	if form, err := c.MultipartForm(); err == nil {
		for _, file := range form.File["pdfs"] {
			result, err := pdfvalidation.ValidatePDFFile(file, pdfvalidation.ResourceLimits)
			if err != nil {
				return response.InternalServerError(c, "Failed to validate PDF")
			}
			if !result.Valid {
				return response.BadRequest(c, result.Error)
			}

			url, err := h.uploadFormFile(c, file, "resources")
			if err != nil {
				return h.respondUploadError(c, err)
			}
			course.PDFResources = append(course.PDFResources, model.PDFResource{
				ID:    uuid.NewString(),
				Title: file.Filename,
				URL:   url,
			})
		}
	}

	if err := h.db.Create(&course).Error; err != nil {
		if errors.Is(err, model.ErrDiscountOutOfRange) {
			return response.BadRequest(c, err.Error())
		}
		log.Printf("Course creation failed: %v", err)
		return response.InternalServerError(c, "Failed to create course")
	}

	h.catalog.InvalidateCatalog(c.Context())
	return response.Created(c, course)
}

// MyCourses handles GET /api/v1/educator/courses
func (h *EducatorHandler) MyCourses(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var courses []model.Course
	query := h.db.Order("created_at DESC")
	if user.Role != model.RoleAdmin {
		query = query.Where("educator_id = ?", user.ID)
	}
	if err := query.Find(&courses).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	return response.Success(c, courses)
}

// GetCourse handles GET /api/v1/educator/courses/:id
// Full unredacted view, educator-owned courses only.
func (h *EducatorHandler) GetCourse(c *fiber.Ctx) error {
	course, err := h.loadOwnedCourse(c)
	if err != nil {
		return h.respondCourseError(c, err)
	}

	if err := h.db.
		Preload("Chapters", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Chapters.Lectures", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("PDFResources").
		Preload("Ratings").
		First(course, course.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch course")
	}

	return response.Success(c, course)
}

// UpdateCourse handles PUT /api/v1/educator/courses/:id
func (h *EducatorHandler) UpdateCourse(c *fiber.Ctx) error {
	course, err := h.loadOwnedCourse(c)
	if err != nil {
		return h.respondCourseError(c, err)
	}

	var req UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if req.Title != "" {
		course.Title = validation.SanitizeString(req.Title)
	}
	if req.Description != nil {
		course.Description = validation.SanitizeString(*req.Description)
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.Discount != nil {
		course.Discount = *req.Discount
	}
	if req.IsPublished != nil {
		course.IsPublished = *req.IsPublished
	}
	if req.IsLocked != nil {
		course.IsLocked = *req.IsLocked
	}
	if req.IsTrending != nil {
		course.IsTrending = *req.IsTrending
	}

	if err := h.db.Save(course).Error; err != nil {
		if errors.Is(err, model.ErrDiscountOutOfRange) {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to update course")
	}

	h.catalog.InvalidateCatalog(c.Context())
	return response.SuccessWithMessage(c, "Course updated", course)
}

// DeleteCourse handles DELETE /api/v1/educator/courses/:id
func (h *EducatorHandler) DeleteCourse(c *fiber.Ctx) error {
	course, err := h.loadOwnedCourse(c)
	if err != nil {
		return h.respondCourseError(c, err)
	}

	if err := h.db.Delete(course).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete course")
	}

	h.catalog.InvalidateCatalog(c.Context())
	return response.SuccessWithMessage(c, "Course deleted", nil)
}

// AddPdf handles POST /api/v1/educator/courses/:id/pdfs
// Multipart request: a metadata JSON field and a pdf file, validated for
// size, header and page count before upload.
func (h *EducatorHandler) AddPdf(c *fiber.Ctx) error {
	course, err := h.loadOwnedCourse(c)
	if err != nil {
		return h.respondCourseError(c, err)
	}

	req := AddPdfRequest{}
	if metadata := c.FormValue("metadata"); metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &req); err != nil {
			return response.BadRequest(c, "Invalid metadata JSON")
		}
	}

	file, err := c.FormFile("pdf")
	if err != nil {
		return response.BadRequest(c, "Missing pdf file")
	}

	if req.Title == "" {
		req.Title = file.Filename
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := pdfvalidation.ValidatePDFFile(file, pdfvalidation.ResourceLimits)
	if err != nil {
		return response.InternalServerError(c, "Failed to validate PDF")
	}
	if !result.Valid {
		return response.BadRequest(c, result.Error)
	}

	url, err := h.uploadFormFile(c, file, "resources")
	if err != nil {
		return h.respondUploadError(c, err)
	}

	resource := model.PDFResource{
		ID:            uuid.NewString(),
		CourseID:      course.ID,
		Title:         validation.SanitizeString(req.Title),
		Description:   validation.SanitizeString(req.Description),
		URL:           url,
		AllowDownload: req.AllowDownload,
	}
	if err := h.db.Create(&resource).Error; err != nil {
		return response.InternalServerError(c, "Failed to save PDF resource")
	}

	return response.Created(c, resource)
}

// Dashboard handles GET /api/v1/educator/dashboard
func (h *EducatorHandler) Dashboard(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var courseIDs []uint
	if err := h.db.Model(&model.Course{}).
		Where("educator_id = ?", user.ID).
		Pluck("id", &courseIDs).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	if len(courseIDs) == 0 {
		return response.Success(c, fiber.Map{
			"total_courses":     0,
			"total_enrollments": 0,
			"total_earnings":    0.0,
		})
	}

	var totalEnrollments int64
	if err := h.db.Model(&model.Enrollment{}).
		Where("course_id IN ?", courseIDs).
		Count(&totalEnrollments).Error; err != nil {
		return response.InternalServerError(c, "Failed to count enrollments")
	}

	var totalEarnings float64
	if err := h.db.Model(&model.Purchase{}).
		Where("course_id IN ? AND status = ?", courseIDs, model.PurchaseCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&totalEarnings).Error; err != nil {
		return response.InternalServerError(c, "Failed to compute earnings")
	}

	return response.Success(c, fiber.Map{
		"total_courses":     len(courseIDs),
		"total_enrollments": totalEnrollments,
		"total_earnings":    totalEarnings,
	})
}

// EnrolledStudents handles GET /api/v1/educator/students
// Optional course_id query narrows the roster to one course.
func (h *EducatorHandler) EnrolledStudents(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	query := h.db.Model(&model.Enrollment{}).
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Where("courses.educator_id = ?", user.ID)

	if courseID := c.Query("course_id"); courseID != "" {
		id, err := strconv.ParseUint(courseID, 10, 32)
		if err != nil {
			return response.BadRequest(c, "Invalid course id")
		}
		query = query.Where("enrollments.course_id = ?", uint(id))
	}

	var enrollments []model.Enrollment
	if err := query.
		Preload("User").
		Preload("Course", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "title", "thumbnail")
		}).
		Order("enrollments.enrolled_at DESC").
		Find(&enrollments).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch students")
	}

	return response.Success(c, enrollments)
}

// AssignCourse handles POST /api/v1/educator/assign
// Grants a student access without a gateway payment.
func (h *EducatorHandler) AssignCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req AssignCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var course model.Course
	if err := h.db.First(&course, req.CourseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	if !policy.CanMutateCourse(user, &course) {
		return response.Forbidden(c, "You do not manage this course")
	}

	var student model.User
	if err := h.db.First(&student, "id = ?", req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Student not found")
		}
		return response.InternalServerError(c, "Failed to fetch student")
	}

	if err := h.enrollments.Assign(student.ID, course.ID); err != nil {
		return response.InternalServerError(c, "Failed to assign course")
	}

	return response.SuccessWithMessage(c, "Course assigned", nil)
}

// RemoveStudentAccess handles DELETE /api/v1/educator/courses/:id/students/:studentId
func (h *EducatorHandler) RemoveStudentAccess(c *fiber.Ctx) error {
	course, err := h.loadOwnedCourse(c)
	if err != nil {
		return h.respondCourseError(c, err)
	}

	studentID := c.Params("studentId")
	if studentID == "" {
		return response.BadRequest(c, "Missing student id")
	}

	enrolled, err := h.enrollments.IsEnrolled(studentID, course.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check enrollment")
	}
	if !enrolled {
		return response.NotFound(c, "Student is not enrolled in this course")
	}

	if err := h.enrollments.Revoke(studentID, course.ID); err != nil {
		return response.InternalServerError(c, "Failed to remove access")
	}

	return response.SuccessWithMessage(c, "Student access removed", nil)
}

// Sentinel errors for the shared helpers below. The helpers never write
// to the response; handlers map these to HTTP codes at the return site.
var (
	errUnauthenticated    = errors.New("user not authenticated")
	errBadCourseID        = errors.New("invalid course id")
	errNotCourseManager   = errors.New("course not managed by requester")
	errStorageUnavailable = errors.New("media storage is not configured")
)

// loadOwnedCourse resolves the :id route param and enforces ownership.
func (h *EducatorHandler) loadOwnedCourse(c *fiber.Ctx) (*model.Course, error) {
	user, ok := middleware.GetUser(c)
	if !ok {
		return nil, errUnauthenticated
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return nil, errBadCourseID
	}

	var course model.Course
	if err := h.db.First(&course, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrCourseNotFound
		}
		return nil, err
	}

	if !policy.CanMutateCourse(user, &course) {
		return nil, errNotCourseManager
	}

	return &course, nil
}

// respondCourseError translates a loadOwnedCourse failure into the
// matching HTTP response.
func (h *EducatorHandler) respondCourseError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errUnauthenticated):
		return response.Unauthorized(c, "User not authenticated")
	case errors.Is(err, errBadCourseID):
		return response.BadRequest(c, "Invalid course id")
	case errors.Is(err, services.ErrCourseNotFound):
		return response.NotFound(c, "Course not found")
	case errors.Is(err, errNotCourseManager):
		return response.Forbidden(c, "You do not manage this course")
	default:
		log.Printf("Course lookup failed: %v", err)
		return response.InternalServerError(c, "Failed to fetch course")
	}
}

// uploadFormFile pushes a multipart file to object storage and returns
// its durable URL.
func (h *EducatorHandler) uploadFormFile(c *fiber.Ctx, file *multipart.FileHeader, prefix string) (string, error) {
	if h.storage == nil {
		return "", errStorageUnavailable
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to read uploaded file: %w", err)
	}
	defer src.Close()

	key := storage.GenerateKey(prefix, file.Filename)
	url, err := h.storage.UploadFile(c.Context(), key, src, storage.ContentType(file.Filename))
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", file.Filename, err)
	}

	return url, nil
}

// respondUploadError translates an uploadFormFile failure into the
// matching HTTP response.
func (h *EducatorHandler) respondUploadError(c *fiber.Ctx, err error) error {
	if errors.Is(err, errStorageUnavailable) {
		return response.ServiceUnavailable(c, "Media storage is not configured", "STORAGE_UNAVAILABLE")
	}
	log.Printf("Upload failed: %v", err)
	return response.InternalServerError(c, "Failed to upload file")
}
