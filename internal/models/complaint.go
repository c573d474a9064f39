package models

import (
	"time"

	"gorm.io/gorm"
)

// ComplaintStatus tracks helpdesk ticket resolution
type ComplaintStatus string

const (
	ComplaintStatusOpen   ComplaintStatus = "open"
	ComplaintStatusClosed ComplaintStatus = "close"
)

// Complaint is a helpdesk ticket raised by a resident
type Complaint struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	ResidentID uint `gorm:"index" json:"resident_id"`

	Date        string          `gorm:"type:varchar(50)" json:"date"`
	Category    string          `gorm:"type:varchar(100)" json:"category"`
	Type        string          `gorm:"type:varchar(100)" json:"type"`
	Description string          `gorm:"type:text" json:"description"`
	Status      ComplaintStatus `gorm:"type:varchar(20);default:'open'" json:"status"`

	Resident Resident `gorm:"foreignKey:ResidentID" json:"resident,omitempty"`
}
