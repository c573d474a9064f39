package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	razorpay "github.com/razorpay/razorpay-go"
)

// Order is the gateway's handle for a created payment order
type Order struct {
	ID       string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrderParams carries the fields sent to the gateway when opening an order.
// Amount is in the gateway's minor currency unit (paise).
type CreateOrderParams struct {
	AmountMinorUnits int64
	Currency         string
	ReceiptID        string
	Notes            map[string]interface{}
}

// Gateway creates payment orders with the external payment provider.
// It is injected into the settlement service so tests can substitute a fake.
type Gateway interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error)
}

// RazorpayGateway implements Gateway against the Razorpay Orders API
type RazorpayGateway struct {
	client *razorpay.Client
}

// NewRazorpayGateway builds a gateway client from RAZORPAY_KEY_ID and
// RAZORPAY_KEY_SECRET environment variables
func NewRazorpayGateway() *RazorpayGateway {
	keyID := os.Getenv("RAZORPAY_KEY_ID")
	keySecret := os.Getenv("RAZORPAY_KEY_SECRET")
	return &RazorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

// CreateOrder opens an order with Razorpay. The SDK has no context support,
// so ctx only bounds the caller's side of the flow.
func (g *RazorpayGateway) CreateOrder(_ context.Context, params CreateOrderParams) (*Order, error) {
	data := map[string]interface{}{
		"amount":   params.AmountMinorUnits,
		"currency": params.Currency,
		"receipt":  params.ReceiptID,
		"notes":    params.Notes,
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, &GatewayError{Err: err}
	}

	order := &Order{
		Currency: params.Currency,
		Receipt:  params.ReceiptID,
	}
	if id, ok := body["id"].(string); ok {
		order.ID = id
	}
	if amount, ok := body["amount"].(float64); ok {
		order.Amount = int64(amount)
	}
	if order.ID == "" {
		return nil, &GatewayError{Err: fmt.Errorf("order response missing id: %v", body)}
	}
	return order, nil
}

// Signature computes the HMAC-SHA256 hex digest the gateway signs payment
// callbacks with: HMAC(orderID + "|" + paymentID, secret).
func Signature(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a callback signature in constant time
func VerifySignature(orderID, paymentID, secret, signature string) bool {
	expected := Signature(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
