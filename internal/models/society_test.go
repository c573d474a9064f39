package models

import (
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMonthlyTotal(t *testing.T) {
	tests := []struct {
		name     string
		schedule datatypes.JSONMap
		want     float64
	}{
		{
			name:     "empty schedule",
			schedule: datatypes.JSONMap{},
			want:     0,
		},
		{
			name: "in-memory float and int entries",
			schedule: datatypes.JSONMap{
				"societyCharges": 500.0,
				"parkingCharges": 150,
			},
			want: 650,
		},
		{
			name: "json numbers as decoded from the store",
			schedule: datatypes.JSONMap{
				"societyCharges": json.Number("500"),
				"waterCharges":   json.Number("100.50"),
			},
			want: 600.50,
		},
		{
			name: "non-numeric entries are skipped",
			schedule: datatypes.JSONMap{
				"societyCharges": json.Number("500"),
				"note":           "revised Jan 2024",
				"active":         true,
			},
			want: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			society := Society{FeeSchedule: tt.schedule}
			if got := society.MonthlyTotal(); math.Abs(got-tt.want) > 0.001 {
				t.Errorf("MonthlyTotal() = %v; want %v", got, tt.want)
			}
		})
	}
}

// The fee schedule must survive a store round-trip: JSONMap decodes jsonb
// values as json.Number, not float64.
func TestMonthlyTotalAfterRoundTrip(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "models.db")), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&Society{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	society := Society{
		SocietyName: "Green Meadows",
		FeeSchedule: datatypes.JSONMap{
			"societyCharges": 500.0,
			"waterCharges":   100.0,
		},
	}
	if err := db.Create(&society).Error; err != nil {
		t.Fatalf("create society: %v", err)
	}

	var loaded Society
	if err := db.Where("society_name = ?", "Green Meadows").First(&loaded).Error; err != nil {
		t.Fatalf("load society: %v", err)
	}

	if got := loaded.MonthlyTotal(); math.Abs(got-600) > 0.001 {
		t.Errorf("MonthlyTotal() after round-trip = %v; want 600", got)
	}
}
