package model

import (
	"time"
)

// LectureProgress records one completed lecture for a (user, course) pair.
// The composite primary key gives the completed set its set semantics:
// re-completing a lecture is an insert that conflicts and does nothing.
type LectureProgress struct {
	UserID      string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	CourseID    uint      `gorm:"primaryKey" json:"course_id"`
	LectureID   string    `gorm:"primaryKey;type:varchar(36)" json:"lecture_id"`
	CompletedAt time.Time `gorm:"autoCreateTime" json:"completed_at"`
}

// TableName specifies the table name for LectureProgress
func (LectureProgress) TableName() string {
	return "lecture_progress"
}
