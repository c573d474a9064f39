package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"society_portal_echo/internal/models"
)

// SettlementService runs the two-phase payment flow: creating a gateway order
// for a computed bill, then recording the payment once the gateway callback
// signature checks out.
type SettlementService struct {
	db      *gorm.DB
	gateway Gateway
	secret  string
	// clock allows tests to pin "now"
	clock func() time.Time
}

func NewSettlementService(db *gorm.DB, gateway Gateway, secret string) *SettlementService {
	return &SettlementService{
		db:      db,
		gateway: gateway,
		secret:  secret,
		clock:   time.Now,
	}
}

// Receipt holds the fields rendered on the payment success page
type Receipt struct {
	Invoice string
	Amount  float64
	Date    time.Time
}

// CreateOrder opens a gateway order for the given payable total. The amount is
// passed explicitly by the caller (read from the resident's prepared bill)
// rather than re-read inside, so the charge is fixed at the moment of checkout.
// The quoted amount is persisted as a PaymentOrder; settlement records that
// amount, not whatever the bill says by the time the callback arrives.
func (s *SettlementService) CreateOrder(ctx context.Context, resident models.Resident, totalAmount float64) (*Order, error) {
	if totalAmount <= 0 {
		return nil, fmt.Errorf("%w: no payable amount, visit the bill page first", ErrValidation)
	}

	params := CreateOrderParams{
		AmountMinorUnits: int64(math.Round(totalAmount * 100)),
		Currency:         "INR",
		ReceiptID:        "rcpt_" + uuid.NewString(),
		Notes: map[string]interface{}{
			"societyName": resident.SocietyName,
			"flatNumber":  resident.FlatNumber,
		},
	}
	order, err := s.gateway.CreateOrder(ctx, params)
	if err != nil {
		return nil, err
	}

	record := models.PaymentOrder{
		ResidentID: resident.ID,
		OrderID:    order.ID,
		Amount:     totalAmount,
		Currency:   order.Currency,
		Receipt:    order.Receipt,
		Status:     models.PaymentOrderStatusCreated,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, &PersistenceError{Op: "record payment order", Err: err}
	}

	return order, nil
}

// Confirm verifies a gateway payment callback and records the settlement.
//
// An invalid signature rejects the callback without touching the resident's
// payment slot. A replayed order that already settled returns the recorded
// receipt unchanged. The recorded amount is the one quoted at checkout (the
// PaymentOrder row), which must belong to the confirming resident. The
// resident update is guarded by the billing version observed at read time,
// so a bill recomputed mid-flight fails the settlement instead of being
// silently overwritten.
func (s *SettlementService) Confirm(ctx context.Context, residentID uint, orderID, paymentID, signature string) (*Receipt, error) {
	var resident models.Resident
	if err := s.db.WithContext(ctx).First(&resident, residentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "load resident", Err: err}
	}

	verified := VerifySignature(orderID, paymentID, s.secret, signature)
	s.recordEvent(ctx, orderID, paymentID, signature, verified)
	if !verified {
		return nil, ErrSignatureVerification
	}

	// Replay of an already settled order returns the original receipt.
	var settled models.Payment
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&settled).Error
	if err == nil {
		return &Receipt{Invoice: settled.OrderID, Amount: settled.Amount, Date: settled.PaidAt}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &PersistenceError{Op: "check settled orders", Err: err}
	}

	var order models.PaymentOrder
	err = s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "load payment order", Err: err}
	}
	if order.ResidentID != resident.ID {
		return nil, fmt.Errorf("%w: order belongs to a different account", ErrValidation)
	}

	paidAt := s.clock()
	amount := order.Amount

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Resident{}).
			Where("id = ? AND billing_version = ?", resident.ID, resident.BillingVersion).
			Updates(map[string]interface{}{
				"last_payment_date":    paidAt,
				"last_payment_amount":  amount,
				"last_payment_invoice": orderID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSettlementConflict
		}

		if err := tx.Model(&models.PaymentOrder{}).
			Where("id = ?", order.ID).
			Update("status", models.PaymentOrderStatusSettled).Error; err != nil {
			return err
		}

		return tx.Create(&models.Payment{
			ResidentID:  resident.ID,
			SocietyName: resident.SocietyName,
			FlatNumber:  resident.FlatNumber,
			OrderID:     orderID,
			PaymentID:   paymentID,
			Amount:      amount,
			PaidAt:      paidAt,
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrSettlementConflict) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "record settlement", Err: err}
	}

	return &Receipt{Invoice: orderID, Amount: amount, Date: paidAt}, nil
}

// recordEvent appends the raw callback to the gateway event log, best effort
func (s *SettlementService) recordEvent(ctx context.Context, orderID, paymentID, signature string, verified bool) {
	metadata, _ := json.Marshal(map[string]string{
		"order_id":   orderID,
		"payment_id": paymentID,
		"signature":  signature,
	})
	event := models.GatewayEvent{
		OrderID:  orderID,
		Verified: verified,
		Metadata: metadata,
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		slog.Warn("failed to record gateway event", "order_id", orderID, "error", err)
	}
}
