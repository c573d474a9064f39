package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"society_portal_echo/internal/models"
)

func TestPrepareBillPersistsAmountAndBumpsVersion(t *testing.T) {
	db := newTestDB(t)
	svc := NewBillingService(db)

	society := models.Society{
		SocietyName: "Green Meadows",
		FeeSchedule: datatypes.JSONMap{
			"maintenance": 500.0,
			"water":       100.0,
		},
	}
	require.NoError(t, db.Create(&society).Error)

	created := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	resident := models.Resident{
		FirebaseUID:   "uid-1",
		Email:         "a101@example.com",
		SocietyName:   "Green Meadows",
		FlatNumber:    "A-101",
		ApprovalState: models.ApprovalStateApproved,
	}
	seedResident(t, db, &resident)
	require.NoError(t, db.Model(&resident).Update("created_at", created).Error)

	// Signed up January, never paid: January through March are owed
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	statement, err := svc.PrepareBill(context.Background(), resident.ID, now)
	require.NoError(t, err)

	assert.Equal(t, 600.0, statement.Bill.MonthlyTotal)
	assert.Equal(t, 1200.0, statement.Bill.Due)
	assert.Equal(t, 1800.0, statement.Bill.TotalAmount)

	var reloaded models.Resident
	require.NoError(t, db.First(&reloaded, resident.ID).Error)
	assert.Equal(t, 1800.0, reloaded.AmountDue)
	assert.Equal(t, uint(1), reloaded.BillingVersion)

	// A second preparation bumps the version again
	_, err = svc.PrepareBill(context.Background(), resident.ID, now)
	require.NoError(t, err)
	require.NoError(t, db.First(&reloaded, resident.ID).Error)
	assert.Equal(t, uint(2), reloaded.BillingVersion)
}

func TestPrepareBillUnknownResident(t *testing.T) {
	svc := NewBillingService(newTestDB(t))

	_, err := svc.PrepareBill(context.Background(), 42, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPrepareBillMissingSociety(t *testing.T) {
	db := newTestDB(t)
	svc := NewBillingService(db)

	resident := models.Resident{
		FirebaseUID: "uid-1",
		Email:       "a101@example.com",
		SocietyName: "Ghost Society",
		FlatNumber:  "A-101",
	}
	seedResident(t, db, &resident)

	_, err := svc.PrepareBill(context.Background(), resident.ID, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateFeeSchedule(t *testing.T) {
	db := newTestDB(t)
	svc := NewBillingService(db)

	society := models.Society{SocietyName: "Green Meadows"}
	require.NoError(t, db.Create(&society).Error)

	err := svc.UpdateFeeSchedule(context.Background(), "Green Meadows", map[string]interface{}{
		"maintenance": 750.0,
	})
	require.NoError(t, err)

	var reloaded models.Society
	require.NoError(t, db.Where("society_name = ?", "Green Meadows").First(&reloaded).Error)
	assert.Equal(t, 750.0, reloaded.MonthlyTotal())

	err = svc.UpdateFeeSchedule(context.Background(), "Nowhere", map[string]interface{}{"maintenance": 1.0})
	assert.ErrorIs(t, err, ErrNotFound)
}
