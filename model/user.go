package model

import (
	"time"
)

// User roles
const (
	RoleStudent  = "student"
	RoleEducator = "educator"
	RoleAdmin    = "admin"
)

// User mirrors an identity-provider account. The primary key is the
// provider-issued id, so rows are created lazily on first authenticated
// request or by provider webhooks, never by registration.
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"index;not null" json:"email"`
	ImageURL  string    `json:"image_url"`
	Role      string    `gorm:"type:varchar(20);default:'student'" json:"role"` // student, educator, admin

	// Relationships
	Enrollments []Enrollment `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Purchases   []Purchase   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsEducator reports whether the user may author courses. Admins are
// educators for authoring purposes.
func (u *User) IsEducator() bool {
	return u.Role == RoleEducator || u.Role == RoleAdmin
}

// Enrollment is the single source of truth for "user has access to course",
// queried from both directions. One row per (user, course); the composite
// primary key makes the enrolling write atomic and re-appliable.
type Enrollment struct {
	UserID     string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	CourseID   uint      `gorm:"primaryKey" json:"course_id"`
	EnrolledAt time.Time `gorm:"autoCreateTime" json:"enrolled_at"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}
