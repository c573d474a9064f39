package models

import "time"

// Visit is the singleton landing-page visit counter
type Visit struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Count int64 `gorm:"default:0" json:"count"`
}
