package services

import (
	"fmt"

	"github.com/aparaitech/lms-api/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnrollmentService owns the enrollment join table. Every "who has access
// to what" question goes through here, from either direction.
type EnrollmentService struct {
	db *gorm.DB
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{db: db}
}

// Enroll grants the user access to the course. Inserting the composite
// key row is atomic and conflicts are ignored, so re-applying is safe.
func (s *EnrollmentService) Enroll(tx *gorm.DB, userID string, courseID uint) error {
	if tx == nil {
		tx = s.db
	}
	enrollment := model.Enrollment{UserID: userID, CourseID: courseID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&enrollment).Error; err != nil {
		return fmt.Errorf("failed to enroll user: %w", err)
	}
	return nil
}

// IsEnrolled reports whether the user has access to the course.
func (s *EnrollmentService) IsEnrolled(userID string, courseID uint) (bool, error) {
	var count int64
	err := s.db.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListForUser returns the user's enrolled courses, newest enrollment
// first.
func (s *EnrollmentService) ListForUser(userID string) ([]model.Course, error) {
	var courses []model.Course
	err := s.db.
		Joins("JOIN enrollments ON enrollments.course_id = courses.id").
		Where("enrollments.user_id = ?", userID).
		Order("enrollments.enrolled_at DESC").
		Find(&courses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enrolled courses: %w", err)
	}
	return courses, nil
}

// ListStudents returns the users enrolled in a course, newest first.
func (s *EnrollmentService) ListStudents(courseID uint) ([]model.User, error) {
	var users []model.User
	err := s.db.
		Joins("JOIN enrollments ON enrollments.user_id = users.id").
		Where("enrollments.course_id = ?", courseID).
		Order("enrollments.enrolled_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enrolled students: %w", err)
	}
	return users, nil
}

// Revoke removes a student's access to a course along with their
// purchase history for it. Used by the owning educator.
func (s *EnrollmentService) Revoke(userID string, courseID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).
			Delete(&model.Enrollment{}).Error; err != nil {
			return fmt.Errorf("failed to remove enrollment: %w", err)
		}
		if err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).
			Delete(&model.Purchase{}).Error; err != nil {
			return fmt.Errorf("failed to remove purchases: %w", err)
		}
		return nil
	})
}

// Assign grants a course without payment, recording a zero-amount
// completed purchase so dashboards stay consistent.
func (s *EnrollmentService) Assign(userID string, courseID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.Enroll(tx, userID, courseID); err != nil {
			return err
		}
		purchase := model.Purchase{
			UserID:         userID,
			CourseID:       courseID,
			Amount:         0,
			Status:         model.PurchaseCompleted,
			GatewayPayment: model.PaymentIDManualAssignment,
		}
		if err := tx.Create(&purchase).Error; err != nil {
			return fmt.Errorf("failed to record manual assignment: %w", err)
		}
		return nil
	})
}
