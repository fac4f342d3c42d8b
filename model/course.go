package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrDiscountOutOfRange = errors.New("discount must be between 0 and 100")

// Course is a purchasable unit of content authored by an educator.
// A locked course stays visible in the catalog but cannot be purchased.
type Course struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Thumbnail   string         `json:"thumbnail"`
	Price       float64        `gorm:"not null" json:"price"`
	Discount    float64        `gorm:"not null;default:0" json:"discount"` // percent, 0-100
	IsPublished bool           `gorm:"default:true" json:"is_published"`
	IsLocked    bool           `gorm:"default:false" json:"is_locked"`
	IsTrending  bool           `gorm:"default:false;index" json:"is_trending"`
	EducatorID  string         `gorm:"type:varchar(64);not null;index" json:"educator_id"`

	// Relationships
	Educator     User           `gorm:"foreignKey:EducatorID" json:"educator,omitempty"`
	Chapters     []Chapter      `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"chapters,omitempty"`
	PDFResources []PDFResource  `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"pdf_resources,omitempty"`
	Ratings      []CourseRating `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"ratings,omitempty"`
	Enrollments  []Enrollment   `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// EffectivePrice is the amount actually charged: price reduced by the
// discount percentage. Never negative for a valid row.
func (c *Course) EffectivePrice() float64 {
	return c.Price - (c.Discount/100)*c.Price
}

// BeforeSave enforces the pricing invariants at the write boundary,
// independent of request-level validation.
func (c *Course) BeforeSave(tx *gorm.DB) error {
	if c.Discount < 0 || c.Discount > 100 {
		return ErrDiscountOutOfRange
	}
	if c.Price < 0 {
		return errors.New("price must not be negative")
	}
	return nil
}

// Chapter is an ordered group of lectures within a course.
type Chapter struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CourseID uint   `gorm:"not null;index" json:"course_id"`
	Title    string `gorm:"not null" json:"title"`
	Order    int    `gorm:"not null;column:position" json:"order"`

	Lectures []Lecture `gorm:"foreignKey:ChapterID;constraint:OnDelete:CASCADE" json:"lectures,omitempty"`
}

// Lecture is a single piece of media content. The URL of a non-free
// lecture is redacted for users who are neither enrolled nor the owner.
type Lecture struct {
	ID            string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChapterID     string `gorm:"type:varchar(36);not null;index" json:"chapter_id"`
	Title         string `gorm:"not null" json:"title"`
	DurationMins  int    `gorm:"not null" json:"duration_mins"`
	URL           string `gorm:"not null" json:"url"`
	IsPreviewFree bool   `gorm:"default:false" json:"is_preview_free"`
	Order         int    `gorm:"not null;column:position" json:"order"`
}

// PDFResource is a downloadable attachment on a course. URLs are
// redacted unless the requester is enrolled or owns the course.
type PDFResource struct {
	ID            string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CourseID      uint   `gorm:"not null;index" json:"course_id"`
	Title         string `gorm:"not null" json:"title"`
	Description   string `gorm:"type:text" json:"description"`
	URL           string `json:"url"`
	AllowDownload bool   `gorm:"default:false" json:"allow_download"`
}

// CourseRating holds one rating per (course, user); re-rating replaces
// the previous value instead of appending.
type CourseRating struct {
	CourseID  uint      `gorm:"primaryKey" json:"course_id"`
	UserID    string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"` // 1-5
	UpdatedAt time.Time `json:"updated_at"`
}
