package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Address holds the registered address of a society
type Address struct {
	Address    string `gorm:"type:varchar(255)" json:"address"`
	City       string `gorm:"type:varchar(100)" json:"city"`
	District   string `gorm:"type:varchar(100)" json:"district"`
	PostalCode string `gorm:"type:varchar(20)" json:"postal_code"`
}

// EmergencyContacts holds the society-wide emergency phone numbers
type EmergencyContacts struct {
	PlumbingService string `gorm:"type:varchar(50)" json:"plumbing_service"`
	MedicineShop    string `gorm:"type:varchar(50)" json:"medicine_shop"`
	Ambulance       string `gorm:"type:varchar(50)" json:"ambulance"`
	Doctor          string `gorm:"type:varchar(50)" json:"doctor"`
	FireStation     string `gorm:"type:varchar(50)" json:"fire_station"`
	Guard           string `gorm:"type:varchar(50)" json:"guard"`
	PoliceStation   string `gorm:"type:varchar(50)" json:"police_station"`
}

// Society represents a managed residential community
type Society struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	SocietyName string  `gorm:"type:varchar(255);uniqueIndex" json:"society_name"`
	Address     Address `gorm:"embedded;embeddedPrefix:address_" json:"address"`

	// AdminEmail identifies the resident who registered the society
	AdminEmail string `gorm:"type:varchar(255)" json:"admin_email"`

	// FeeSchedule maps charge category to a fixed monthly amount, e.g.
	// {"societyCharges": 500, "waterCharges": 100}
	FeeSchedule datatypes.JSONMap `gorm:"type:jsonb" json:"fee_schedule"`

	Contacts EmergencyContacts `gorm:"embedded;embeddedPrefix:contact_" json:"contacts"`
}

// MonthlyTotal sums the numeric entries of the fee schedule. Non-numeric
// entries are skipped, an empty schedule yields a zero bill.
// JSONMap decodes database values as json.Number, so both the decoded and
// the in-memory numeric kinds are accepted.
func (s Society) MonthlyTotal() float64 {
	var total float64
	for _, v := range s.FeeSchedule {
		switch amount := v.(type) {
		case float64:
			total += amount
		case int:
			total += float64(amount)
		case int64:
			total += float64(amount)
		case json.Number:
			if f, err := amount.Float64(); err == nil {
				total += f
			}
		}
	}
	return total
}
