package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"society_portal_echo/internal/models"
)

const testSecret = "s3cret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "portal.db")), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func seedResident(t *testing.T, db *gorm.DB, resident *models.Resident) {
	t.Helper()
	require.NoError(t, db.Create(resident).Error)
}

// openOrder runs the checkout phase so Confirm has a recorded order to settle
func openOrder(t *testing.T, svc *SettlementService, resident models.Resident, amount float64) {
	t.Helper()
	_, err := svc.CreateOrder(context.Background(), resident, amount)
	require.NoError(t, err)
}

type fakeGateway struct {
	lastParams CreateOrderParams
	orderID    string
	fail       bool
}

func (g *fakeGateway) CreateOrder(_ context.Context, params CreateOrderParams) (*Order, error) {
	if g.fail {
		return nil, &GatewayError{Err: errors.New("gateway down")}
	}
	g.lastParams = params
	orderID := g.orderID
	if orderID == "" {
		orderID = "order_test"
	}
	return &Order{
		ID:       orderID,
		Amount:   params.AmountMinorUnits,
		Currency: params.Currency,
		Receipt:  params.ReceiptID,
	}, nil
}

func TestVerifySignature(t *testing.T) {
	valid := Signature("order_1", "pay_1", testSecret)

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		want      bool
	}{
		{"valid signature", "order_1", "pay_1", valid, true},
		{"tampered order id", "order_2", "pay_1", valid, false},
		{"tampered payment id", "order_1", "pay_2", valid, false},
		{"tampered signature", "order_1", "pay_1", flipLastChar(valid), false},
		{"empty signature", "order_1", "pay_1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifySignature(tt.orderID, tt.paymentID, testSecret, tt.signature)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSignatureIsDeterministic(t *testing.T) {
	first := Signature("order_1", "pay_1", testSecret)
	second := Signature("order_1", "pay_1", testSecret)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestCreateOrderConvertsToMinorUnits(t *testing.T) {
	db := newTestDB(t)
	gateway := &fakeGateway{}
	svc := NewSettlementService(db, gateway, testSecret)

	resident := models.Resident{SocietyName: "Green Meadows", FlatNumber: "A-101"}

	order, err := svc.CreateOrder(context.Background(), resident, 1800)
	require.NoError(t, err)

	assert.Equal(t, int64(180000), gateway.lastParams.AmountMinorUnits)
	assert.Equal(t, "INR", gateway.lastParams.Currency)
	assert.Contains(t, gateway.lastParams.ReceiptID, "rcpt_")
	assert.Equal(t, "Green Meadows", gateway.lastParams.Notes["societyName"])
	assert.Equal(t, "A-101", gateway.lastParams.Notes["flatNumber"])
	assert.Equal(t, int64(180000), order.Amount)
}

func TestCreateOrderRecordsQuotedAmount(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db, &fakeGateway{orderID: "order_1"}, testSecret)

	resident := models.Resident{
		FirebaseUID: "uid-1",
		Email:       "a101@example.com",
		SocietyName: "Green Meadows",
		FlatNumber:  "A-101",
	}
	seedResident(t, db, &resident)

	openOrder(t, svc, resident, 1800)

	var record models.PaymentOrder
	require.NoError(t, db.Where("order_id = ?", "order_1").First(&record).Error)
	assert.Equal(t, resident.ID, record.ResidentID)
	assert.Equal(t, 1800.0, record.Amount)
	assert.Equal(t, models.PaymentOrderStatusCreated, record.Status)
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	svc := NewSettlementService(newTestDB(t), &fakeGateway{}, testSecret)

	_, err := svc.CreateOrder(context.Background(), models.Resident{}, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateOrder(context.Background(), models.Resident{}, -600)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateOrderSurfacesGatewayFailure(t *testing.T) {
	svc := NewSettlementService(newTestDB(t), &fakeGateway{fail: true}, testSecret)

	_, err := svc.CreateOrder(context.Background(), models.Resident{}, 600)

	var gatewayErr *GatewayError
	assert.ErrorAs(t, err, &gatewayErr)
}

func TestConfirmRecordsSettlement(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db, &fakeGateway{orderID: "order_1"}, testSecret)
	paidAt := time.Date(2024, time.April, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return paidAt }

	resident := models.Resident{
		FirebaseUID: "uid-1",
		Email:       "a101@example.com",
		SocietyName: "Green Meadows",
		FlatNumber:  "A-101",
		AmountDue:   1800,
	}
	seedResident(t, db, &resident)
	openOrder(t, svc, resident, 1800)

	signature := Signature("order_1", "pay_1", testSecret)
	receipt, err := svc.Confirm(context.Background(), resident.ID, "order_1", "pay_1", signature)
	require.NoError(t, err)

	assert.Equal(t, "order_1", receipt.Invoice)
	assert.Equal(t, 1800.0, receipt.Amount)
	assert.True(t, receipt.Date.Equal(paidAt))

	var reloaded models.Resident
	require.NoError(t, db.First(&reloaded, resident.ID).Error)
	assert.Equal(t, "order_1", reloaded.LastPayment.Invoice)
	assert.Equal(t, 1800.0, reloaded.LastPayment.Amount)
	require.NotNil(t, reloaded.LastPayment.Date)

	var payment models.Payment
	require.NoError(t, db.Where("order_id = ?", "order_1").First(&payment).Error)
	assert.Equal(t, resident.ID, payment.ResidentID)
	assert.Equal(t, "pay_1", payment.PaymentID)
	assert.Equal(t, 1800.0, payment.Amount)

	var record models.PaymentOrder
	require.NoError(t, db.Where("order_id = ?", "order_1").First(&record).Error)
	assert.Equal(t, models.PaymentOrderStatusSettled, record.Status)
}

func TestConfirmSettlesQuotedAmountNotCurrentBill(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db, &fakeGateway{orderID: "order_1"}, testSecret)

	resident := models.Resident{
		FirebaseUID: "uid-1",
		Email:       "a101@example.com",
		SocietyName: "Green Meadows",
		FlatNumber:  "A-101",
		AmountDue:   1800,
	}
	seedResident(t, db, &resident)
	openOrder(t, svc, resident, 1800)

	// The bill is recomputed between checkout and the gateway callback
	require.NoError(t, db.Model(&models.Resident{}).
		Where("id = ?", resident.ID).
		Updates(map[string]interface{}{
			"amount_due":      600,
			"billing_version": gorm.Expr("billing_version + 1"),
		}).Error)

	signature := Signature("order_1", "pay_1", testSecret)
	receipt, err := svc.Confirm(context.Background(), resident.ID, "order_1", "pay_1", signature)
	require.NoError(t, err)

	// The ledger must record what the gateway charged, not the fresher bill
	assert.Equal(t, 1800.0, receipt.Amount)

	var payment models.Payment
	require.NoError(t, db.Where("order_id = ?", "order_1").First(&payment).Error)
	assert.Equal(t, 1800.0, payment.Amount)

	var reloaded models.Resident
	require.NoError(t, db.First(&reloaded, resident.ID).Error)
	assert.Equal(t, 1800.0, reloaded.LastPayment.Amount)
}

func TestConfirmConflictOnConcurrentRecompute(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db, &fakeGateway{orderID: "order_1"}, testSecret)

	resident := models.Resident{
		FirebaseUID: "uid-1",
		Email:       "a101@example.com",
		SocietyName: "Green Meadows",
		FlatNumber:  "A-101",
		AmountDue:   1800,
	}
	seedResident(t, db, &resident)
	openOrder(t, svc, resident, 1800)

	// Bump the billing version right after Confirm reads the resident,
	// simulating a bill recomputation landing inside its settlement window
	bumped := false
	err := db.Callback().Query().After("gorm:query").Register("recompute_mid_settlement", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.Resident); !ok || bumped {
			return
		}
		bumped = true
		db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Resident{}).
			Where("id = ?", resident.ID).
			Update("billing_version", gorm.Expr("billing_version + 1"))
	})
	require.NoError(t, err)
	defer db.Callback().Query().Remove("recompute_mid_settlement")

	signature := Signature("order_1", "pay_1", testSecret)
	_, err = svc.Confirm(context.Background(), resident.ID, "order_1", "pay_1", signature)
	assert.ErrorIs(t, err, ErrSettlementConflict)
	assert.True(t, bumped)

	// The losing settlement must leave no trace
	var paymentCount int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&paymentCount).Error)
	assert.Zero(t, paymentCount)

	var record models.PaymentOrder
	require.NoError(t, db.Where("order_id = ?", "order_1").First(&record).Error)
	assert.Equal(t, models.PaymentOrderStatusCreated, record.Status)

	var reloaded models.Resident
	require.NoError(t, db.First(&reloaded, resident.ID).Error)
	assert.Empty(t, reloaded.LastPayment.Invoice)
}

func TestConfirmRejectsTamperedSignature(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db, &fakeGateway{orderID: "order_1"}, testSecret)

	resident := models.Resident{
		FirebaseUID: "uid-1",
		Email:       "a101@example.com",
		SocietyName: "Green Meadows",
		FlatNumber:  "A-101",
		AmountDue:   1800,
	}
	seedResident(t, db, &resident)
	openOrder(t, svc, resident, 1800)

	signature := flipLastChar(Signature("order_1", "pay_1", testSecret))
	_, err := svc.Confirm(context.Background(), resident.ID, "order_1", "pay_1", signature)
	assert.ErrorIs(t, err, ErrSignatureVerification)

	// The payment slot must stay untouched
	var reloaded models.Resident
	require.NoError(t, db.First(&reloaded, resident.ID).Error)
	assert.Nil(t, reloaded.LastPayment.Date)
	assert.Empty(t, reloaded.LastPayment.Invoice)
	assert.Zero(t, reloaded.LastPayment.Amount)

	var paymentCount int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&paymentCount).Error)
	assert.Zero(t, paymentCount)

	// The rejected callback is still recorded in the event log
	var event models.GatewayEvent
	require.NoError(t, db.Where("order_id = ?", "order_1").First(&event).Error)
	assert.False(t, event.Verified)
}

func TestConfirmReplayReturnsOriginalReceipt(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db, &fakeGateway{orderID: "order_1"}, testSecret)
	firstPaidAt := time.Date(2024, time.April, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return firstPaidAt }

	resident := models.Resident{
		FirebaseUID: "uid-1",
		Email:       "a101@example.com",
		SocietyName: "Green Meadows",
		FlatNumber:  "A-101",
		AmountDue:   600,
	}
	seedResident(t, db, &resident)
	openOrder(t, svc, resident, 600)

	signature := Signature("order_1", "pay_1", testSecret)
	first, err := svc.Confirm(context.Background(), resident.ID, "order_1", "pay_1", signature)
	require.NoError(t, err)

	// Replay arrives later; the original receipt must come back unchanged
	svc.clock = func() time.Time { return firstPaidAt.Add(time.Hour) }
	second, err := svc.Confirm(context.Background(), resident.ID, "order_1", "pay_1", signature)
	require.NoError(t, err)

	assert.Equal(t, first.Invoice, second.Invoice)
	assert.Equal(t, first.Amount, second.Amount)
	assert.WithinDuration(t, first.Date, second.Date, time.Second)

	var paymentCount int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&paymentCount).Error)
	assert.Equal(t, int64(1), paymentCount)
}

func TestConfirmUnknownOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db, &fakeGateway{}, testSecret)

	resident := models.Resident{
		FirebaseUID: "uid-1",
		Email:       "a101@example.com",
		SocietyName: "Green Meadows",
		FlatNumber:  "A-101",
	}
	seedResident(t, db, &resident)

	signature := Signature("order_1", "pay_1", testSecret)
	_, err := svc.Confirm(context.Background(), resident.ID, "order_1", "pay_1", signature)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmRejectsForeignOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db, &fakeGateway{orderID: "order_1"}, testSecret)

	owner := models.Resident{
		FirebaseUID: "uid-1",
		Email:       "a101@example.com",
		SocietyName: "Green Meadows",
		FlatNumber:  "A-101",
	}
	seedResident(t, db, &owner)
	openOrder(t, svc, owner, 600)

	other := models.Resident{
		FirebaseUID: "uid-2",
		Email:       "a102@example.com",
		SocietyName: "Green Meadows",
		FlatNumber:  "A-102",
	}
	seedResident(t, db, &other)

	signature := Signature("order_1", "pay_1", testSecret)
	_, err := svc.Confirm(context.Background(), other.ID, "order_1", "pay_1", signature)
	assert.ErrorIs(t, err, ErrValidation)

	var paymentCount int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&paymentCount).Error)
	assert.Zero(t, paymentCount)
}

func TestConfirmUnknownResident(t *testing.T) {
	svc := NewSettlementService(newTestDB(t), &fakeGateway{}, testSecret)

	signature := Signature("order_1", "pay_1", testSecret)
	_, err := svc.Confirm(context.Background(), 42, "order_1", "pay_1", signature)
	assert.ErrorIs(t, err, ErrNotFound)
}

func flipLastChar(s string) string {
	last := s[len(s)-1]
	replacement := byte('a')
	if last == 'a' {
		replacement = 'b'
	}
	return s[:len(s)-1] + string(replacement)
}
