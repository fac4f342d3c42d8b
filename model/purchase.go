package model

import (
	"time"

	"gorm.io/gorm"
)

// Purchase statuses. A purchase is created pending and moves to completed
// exactly once; it never transitions backward.
const (
	PurchasePending   = "pending"
	PurchaseCompleted = "completed"
)

// PaymentIDManualAssignment marks enrollments granted by an educator
// without a gateway payment.
const PaymentIDManualAssignment = "manual-assignment"

// Purchase is the local record of a payment-gateway order's lifecycle.
type Purchase struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	UserID          string         `gorm:"type:varchar(64);not null;index" json:"user_id"`
	CourseID        uint           `gorm:"not null;index" json:"course_id"`
	Amount          float64        `gorm:"not null" json:"amount"`
	Currency        string         `gorm:"type:varchar(10);default:'INR'" json:"currency"`
	Status          string         `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	GatewayOrderID  string         `gorm:"type:varchar(100);index" json:"gateway_order_id"`
	GatewayPayment  string         `gorm:"type:varchar(100);column:gateway_payment_id" json:"gateway_payment_id"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// TableName specifies the table name for Purchase
func (Purchase) TableName() string {
	return "purchases"
}
