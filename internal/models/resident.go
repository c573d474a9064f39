package models

import (
	"time"

	"gorm.io/gorm"
)

// ApprovalState represents the validation status of a resident account
type ApprovalState string

const (
	ApprovalStateApplied  ApprovalState = "applied"
	ApprovalStateApproved ApprovalState = "approved"
	ApprovalStateDeclined ApprovalState = "declined"
)

// LastPayment is the single-slot receipt kept on the resident record.
// Each verified settlement overwrites it; the Payment table keeps the audit trail.
type LastPayment struct {
	Date    *time.Time `json:"date"`
	Amount  float64    `gorm:"type:decimal(15,2)" json:"amount"`
	Invoice string     `gorm:"type:varchar(100)" json:"invoice"`
}

// Resident represents a unit-occupant account scoped to one society and one flat
type Resident struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	FirebaseUID string `gorm:"type:varchar(128);uniqueIndex" json:"firebase_uid"`
	Email       string `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	FirstName   string `gorm:"type:varchar(100)" json:"first_name"`
	LastName    string `gorm:"type:varchar(100)" json:"last_name"`
	Phone       string `gorm:"type:varchar(50)" json:"phone"`

	SocietyName string `gorm:"type:varchar(255);uniqueIndex:idx_residents_society_flat" json:"society_name"`
	FlatNumber  string `gorm:"type:varchar(50);uniqueIndex:idx_residents_society_flat" json:"flat_number"`

	ApprovalState ApprovalState `gorm:"type:varchar(20);default:'applied'" json:"approval_state"`
	IsAdmin       bool          `gorm:"default:false" json:"is_admin"`

	LastPayment LastPayment `gorm:"embedded;embeddedPrefix:last_payment_" json:"last_payment"`

	// AmountDue is the scratch amount written by the bill view and charged at checkout.
	// BillingVersion is bumped on every recompute and checked on settlement writes so a
	// stale confirmation cannot clobber a newer bill.
	AmountDue      float64 `gorm:"type:decimal(15,2)" json:"amount_due"`
	BillingVersion uint    `gorm:"default:0" json:"billing_version"`

	// Relationships
	Complaints []Complaint `gorm:"foreignKey:ResidentID" json:"complaints,omitempty"`
	Payments   []Payment   `gorm:"foreignKey:ResidentID" json:"payments,omitempty"`
}

// FullName returns the display name for templates
func (r Resident) FullName() string {
	return r.FirstName + " " + r.LastName
}
