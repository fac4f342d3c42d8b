package services

import (
	"errors"
	"fmt"

	"github.com/aparaitech/lms-api/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressService tracks per-lecture completion and course ratings.
type ProgressService struct {
	db          *gorm.DB
	enrollments *EnrollmentService
}

// NewProgressService creates a new progress service
func NewProgressService(db *gorm.DB, enrollments *EnrollmentService) *ProgressService {
	return &ProgressService{db: db, enrollments: enrollments}
}

// MarkLectureComplete adds a lecture to the user's completed set for the
// course. Completing an already-completed lecture is a no-op.
func (s *ProgressService) MarkLectureComplete(userID string, courseID uint, lectureID string) error {
	var course model.Course
	if err := s.db.Select("id").First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		return fmt.Errorf("failed to fetch course: %w", err)
	}

	row := model.LectureProgress{
		UserID:    userID,
		CourseID:  courseID,
		LectureID: lectureID,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}
	return nil
}

// GetProgress returns the ids of the lectures the user has completed in
// the course.
func (s *ProgressService) GetProgress(userID string, courseID uint) ([]string, error) {
	var lectureIDs []string
	err := s.db.Model(&model.LectureProgress{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("completed_at ASC").
		Pluck("lecture_id", &lectureIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch progress: %w", err)
	}
	return lectureIDs, nil
}

// RateCourse records the user's rating for a course they are enrolled
// in. A second rating from the same user replaces the first.
func (s *ProgressService) RateCourse(userID string, courseID uint, rating int) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}

	var course model.Course
	if err := s.db.Select("id").First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		return fmt.Errorf("failed to fetch course: %w", err)
	}

	enrolled, err := s.enrollments.IsEnrolled(userID, courseID)
	if err != nil {
		return fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return ErrNotEnrolled
	}

	row := model.CourseRating{
		CourseID: courseID,
		UserID:   userID,
		Rating:   rating,
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to record rating: %w", err)
	}
	return nil
}
