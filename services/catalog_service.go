package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aparaitech/lms-api/model"
	"github.com/aparaitech/lms-api/utils/cache"
	"github.com/aparaitech/lms-api/utils/policy"
	"gorm.io/gorm"
)

const (
	catalogCacheKey = "catalog:published"
	catalogCacheTTL = 5 * time.Minute
)

// CatalogService serves the public read paths: the published course list
// and the per-course detail view with access-based redaction.
type CatalogService struct {
	db          *gorm.DB
	enrollments *EnrollmentService
	cache       *cache.RedisCache // nil disables caching
}

// NewCatalogService creates a new catalog service
func NewCatalogService(db *gorm.DB, enrollments *EnrollmentService, redisCache *cache.RedisCache) *CatalogService {
	return &CatalogService{
		db:          db,
		enrollments: enrollments,
		cache:       redisCache,
	}
}

// ListPublished returns published courses, trending first then newest.
// Heavy fields (chapters, enrollments) are left unloaded to keep the
// payload small; results are cached briefly.
func (s *CatalogService) ListPublished(ctx context.Context) ([]model.Course, error) {
	if s.cache != nil {
		var cached []model.Course
		if err := s.cache.GetJSON(ctx, catalogCacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrNotFound) {
			log.Printf("Warning: catalog cache read failed: %v", err)
		}
	}

	var courses []model.Course
	err := s.db.
		Where("is_published = ?", true).
		Order("is_trending DESC, created_at DESC").
		Preload("Educator", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email", "image_url")
		}).
		Preload("Ratings").
		Find(&courses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, catalogCacheKey, courses, catalogCacheTTL); err != nil {
			log.Printf("Warning: catalog cache write failed: %v", err)
		}
	}
	return courses, nil
}

// InvalidateCatalog drops the cached listing after a course mutation.
func (s *CatalogService) InvalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
		log.Printf("Warning: catalog cache invalidation failed: %v", err)
	}
}

// GetCourse returns the full course. Media URLs of non-free lectures and
// PDF resources are blanked unless the requester owns the course or is
// enrolled. requester may be nil for anonymous access.
func (s *CatalogService) GetCourse(id uint, requester *model.User) (*model.Course, error) {
	var course model.Course
	err := s.db.
		Preload("Educator", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email", "image_url")
		}).
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Chapters.Lectures", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("PDFResources").
		Preload("Ratings").
		First(&course, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to fetch course: %w", err)
	}

	hasAccess := false
	if requester != nil {
		if policy.CanMutateCourse(requester, &course) {
			hasAccess = true
		} else {
			enrolled, err := s.enrollments.IsEnrolled(requester.ID, course.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to check enrollment: %w", err)
			}
			hasAccess = enrolled
		}
	}

	if !hasAccess {
		redactCourse(&course)
	}
	return &course, nil
}

// redactCourse blanks paid media URLs on the in-memory copy. Free
// preview lectures keep their URLs.
func redactCourse(course *model.Course) {
	for ci := range course.Chapters {
		for li := range course.Chapters[ci].Lectures {
			lecture := &course.Chapters[ci].Lectures[li]
			if !lecture.IsPreviewFree {
				lecture.URL = ""
			}
		}
	}
	for pi := range course.PDFResources {
		course.PDFResources[pi].URL = ""
		course.PDFResources[pi].AllowDownload = false
	}
}
