package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Payment is the append-only settlement audit trail. The unique index on
// OrderID makes a replayed gateway callback a no-op instead of a second write.
type Payment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	ResidentID  uint   `gorm:"index" json:"resident_id"`
	SocietyName string `gorm:"type:varchar(255);index" json:"society_name"`
	FlatNumber  string `gorm:"type:varchar(50)" json:"flat_number"`

	OrderID   string    `gorm:"type:varchar(100);uniqueIndex" json:"order_id"`
	PaymentID string    `gorm:"type:varchar(100)" json:"payment_id"`
	Amount    float64   `gorm:"type:decimal(15,2)" json:"amount"`
	PaidAt    time.Time `json:"paid_at"`

	Resident Resident `gorm:"foreignKey:ResidentID" json:"resident,omitempty"`
}

// PaymentOrderStatus tracks the lifecycle of a checkout order
type PaymentOrderStatus string

const (
	PaymentOrderStatusCreated PaymentOrderStatus = "created"
	PaymentOrderStatusSettled PaymentOrderStatus = "settled"
)

// PaymentOrder pins what was quoted to the gateway at checkout. Settlement
// records this amount, not the resident's current scratch state, so a bill
// recomputed between checkout and the callback cannot make the ledger
// disagree with the gateway charge. It also binds the order to the resident
// who opened it.
type PaymentOrder struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	ResidentID uint    `gorm:"index" json:"resident_id"`
	OrderID    string  `gorm:"type:varchar(100);uniqueIndex" json:"order_id"`
	Amount     float64 `gorm:"type:decimal(15,2)" json:"amount"`
	Currency   string  `gorm:"type:varchar(10)" json:"currency"`
	Receipt    string  `gorm:"type:varchar(100)" json:"receipt"`

	Status PaymentOrderStatus `gorm:"type:varchar(20);default:'created'" json:"status"`
}

// GatewayEvent records every callback received from the payment gateway,
// verified or not, for offline inspection.
type GatewayEvent struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	OrderID  string          `gorm:"type:varchar(100);index" json:"order_id"`
	Verified bool            `json:"verified"`
	Metadata json.RawMessage `gorm:"type:jsonb" json:"metadata"`
}
