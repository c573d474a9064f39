package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"society_portal_echo/internal/models"
	"society_portal_echo/internal/services"
)

// BillHandler serves the maintenance bill page and the payment flow
type BillHandler struct {
	db         *gorm.DB
	billing    *services.BillingService
	settlement *services.SettlementService
}

func NewBillHandler(db *gorm.DB, billing *services.BillingService, settlement *services.SettlementService) *BillHandler {
	return &BillHandler{db: db, billing: billing, settlement: settlement}
}

// ShowBill computes the resident's dues as of today, persists the payable
// amount for checkout, and renders the bill page.
func (h *BillHandler) ShowBill(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	statement, err := h.billing.PrepareBill(c.Request().Context(), resident.ID, time.Now())
	if err != nil {
		return err
	}

	// Approved society residents, listed for the admin view of the page
	var societyResidents []models.Resident
	if err := h.db.WithContext(c.Request().Context()).
		Where("society_name = ? AND approval_state = ?", resident.SocietyName, models.ApprovalStateApproved).
		Find(&societyResidents).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch residents")
	}

	now := time.Now()
	return c.Render(http.StatusOK, "bill.html", map[string]interface{}{
		"Resident":         statement.Resident,
		"Society":          statement.Society,
		"TotalAmount":      statement.Bill.TotalAmount,
		"PendingDue":       statement.Bill.Due,
		"CreditBalance":    statement.Bill.Credit,
		"MonthlyTotal":     statement.Bill.MonthlyTotal,
		"MonthName":        now.Month().String(),
		"Date":             now.Day(),
		"Year":             now.Year(),
		"Receipt":          statement.Resident.LastPayment,
		"SocietyResidents": societyResidents,
		"RazorpayKeyID":    getEnv("RAZORPAY_KEY_ID", ""),
	})
}

// CreateCheckoutSession opens a gateway order for the resident's prepared
// amount due and returns it as JSON for the checkout widget.
func (h *BillHandler) CreateCheckoutSession(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Please log in to continue")
	}

	order, err := h.settlement.CreateOrder(c.Request().Context(), resident, resident.AmountDue)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"orderId":  order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
	})
}

// PaymentSuccess verifies the gateway callback and renders the receipt
func (h *BillHandler) PaymentSuccess(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Please log in to continue")
	}

	orderID := c.FormValue("razorpay_order_id")
	if orderID == "" {
		orderID = c.FormValue("orderId")
	}
	paymentID := c.FormValue("razorpay_payment_id")
	if paymentID == "" {
		paymentID = c.FormValue("paymentId")
	}
	signature := c.FormValue("razorpay_signature")
	if signature == "" {
		signature = c.FormValue("signature")
	}

	receipt, err := h.settlement.Confirm(c.Request().Context(), resident.ID, orderID, paymentID, signature)
	if err != nil {
		return err
	}

	return c.Render(http.StatusOK, "success.html", map[string]interface{}{
		"Invoice": receipt.Invoice,
		"Amount":  receipt.Amount,
		"Date":    receipt.Date.Format("02/01/2006"),
	})
}

// feeScheduleCategories are the charge components an admin can set
var feeScheduleCategories = []string{
	"societyCharges",
	"repairsAndMaintenance",
	"sinkingFund",
	"waterCharges",
	"insuranceCharges",
	"parkingCharges",
}

// EditBillPage renders the fee-schedule editor for the society admin
func (h *BillHandler) EditBillPage(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	var society models.Society
	if err := h.db.Where("society_name = ?", resident.SocietyName).First(&society).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Society not found")
	}

	return c.Render(http.StatusOK, "editBill.html", map[string]interface{}{
		"FeeSchedule": society.FeeSchedule,
		"Categories":  feeScheduleCategories,
	})
}

// UpdateBill replaces the society's fee schedule from the admin form
func (h *BillHandler) UpdateBill(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	schedule := make(map[string]interface{}, len(feeScheduleCategories))
	for _, category := range feeScheduleCategories {
		raw := c.FormValue(category)
		if raw == "" {
			continue
		}
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Charge amounts must be numeric")
		}
		schedule[category] = amount
	}

	if err := h.billing.UpdateFeeSchedule(c.Request().Context(), resident.SocietyName, schedule); err != nil {
		return err
	}

	return c.Redirect(http.StatusSeeOther, "/bill")
}
