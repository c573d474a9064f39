package models

import (
	"time"

	"gorm.io/gorm"
)

// Notice is a noticeboard entry published by a society admin
type Notice struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	SocietyName string `gorm:"type:varchar(255);index" json:"society_name"`
	Date        string `gorm:"type:varchar(50)" json:"date"`
	Subject     string `gorm:"type:varchar(255)" json:"subject"`
	Details     string `gorm:"type:text" json:"details"`
}
