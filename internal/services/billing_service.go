package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"society_portal_echo/internal/billing"
	"society_portal_echo/internal/models"
)

// BillingService prepares maintenance statements and persists the payable
// amount on the resident record for the checkout flow to pick up.
type BillingService struct {
	db *gorm.DB
}

func NewBillingService(db *gorm.DB) *BillingService {
	return &BillingService{db: db}
}

// Statement is the rendering context for the bill page
type Statement struct {
	Resident models.Resident
	Society  models.Society
	Bill     billing.Bill
}

// PrepareBill loads the resident and their society, computes the bill as of
// now, and writes the payable total back onto the resident record. The write
// bumps BillingVersion so an in-flight settlement against the previous amount
// is detected and rejected.
func (s *BillingService) PrepareBill(ctx context.Context, residentID uint, now time.Time) (*Statement, error) {
	var resident models.Resident
	if err := s.db.WithContext(ctx).First(&resident, residentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "load resident", Err: err}
	}

	var society models.Society
	if err := s.db.WithContext(ctx).Where("society_name = ?", resident.SocietyName).First(&society).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "load society", Err: err}
	}

	bill := billing.Compute(resident, society, now)

	err := s.db.WithContext(ctx).Model(&models.Resident{}).
		Where("id = ?", resident.ID).
		Updates(map[string]interface{}{
			"amount_due":      bill.TotalAmount,
			"billing_version": gorm.Expr("billing_version + 1"),
		}).Error
	if err != nil {
		return nil, &PersistenceError{Op: "persist amount due", Err: err}
	}

	resident.AmountDue = bill.TotalAmount
	resident.BillingVersion++

	return &Statement{
		Resident: resident,
		Society:  society,
		Bill:     bill,
	}, nil
}

// UpdateFeeSchedule replaces a society's fee schedule (admin action)
func (s *BillingService) UpdateFeeSchedule(ctx context.Context, societyName string, schedule map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.Society{}).
		Where("society_name = ?", societyName).
		Update("fee_schedule", datatypes.JSONMap(schedule))
	if res.Error != nil {
		return &PersistenceError{Op: "update fee schedule", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
