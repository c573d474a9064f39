package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"society_portal_echo/internal/models"
)

// ResidentHandler serves the roster, approvals and profile pages
type ResidentHandler struct {
	db *gorm.DB
}

func NewResidentHandler(db *gorm.DB) *ResidentHandler {
	return &ResidentHandler{db: db}
}

// flatCount is a row of the duplicate-flat aggregation
type flatCount struct {
	FlatNumber string
	Count      int64
}

// ListResidents renders the society roster with pending applications.
// Flats registered more than once are logged for the admin to clean up.
func (h *ResidentHandler) ListResidents(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	var duplicates []flatCount
	err := h.db.WithContext(c.Request().Context()).
		Model(&models.Resident{}).
		Select("flat_number, COUNT(*) as count").
		Where("society_name = ?", resident.SocietyName).
		Group("flat_number").
		Having("COUNT(*) > 1").
		Scan(&duplicates).Error
	if err == nil && len(duplicates) > 0 {
		slog.Warn("duplicate flat numbers found", "society", resident.SocietyName, "flats", duplicates)
	}

	var approved []models.Resident
	if err := h.db.Where("society_name = ? AND approval_state = ?",
		resident.SocietyName, models.ApprovalStateApproved).Find(&approved).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch residents")
	}

	var applied []models.Resident
	if err := h.db.Where("society_name = ? AND approval_state = ?",
		resident.SocietyName, models.ApprovalStateApplied).Find(&applied).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch applications")
	}

	return c.Render(http.StatusOK, "residents.html", map[string]interface{}{
		"SocietyResidents": approved,
		"AppliedResidents": applied,
		"SocietyName":      resident.SocietyName,
		"IsAdmin":          resident.IsAdmin,
	})
}

// ApproveResident lets the admin approve or decline an application
func (h *ResidentHandler) ApproveResident(c echo.Context) error {
	admin, ok := currentResident(c)
	if !ok || !admin.IsAdmin {
		return c.Redirect(http.StatusTemporaryRedirect, "/home")
	}

	residentID, err := strconv.ParseUint(c.FormValue("residentId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid resident ID")
	}

	state := models.ApprovalState(c.FormValue("validate"))
	if state != models.ApprovalStateApproved && state != models.ApprovalStateDeclined {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid approval state")
	}

	// Scope the update to the admin's own society
	err = h.db.Model(&models.Resident{}).
		Where("id = ? AND society_name = ?", residentID, admin.SocietyName).
		Update("approval_state", state).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update resident")
	}

	return c.Redirect(http.StatusSeeOther, "/residents")
}

// Profile renders the resident's profile together with their society
func (h *ResidentHandler) Profile(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	var society models.Society
	if err := h.db.Where("society_name = ?", resident.SocietyName).First(&society).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Society not found")
	}

	return c.Render(http.StatusOK, "profile.html", map[string]interface{}{
		"Resident": resident,
		"Society":  society,
	})
}

// EditProfilePage renders the profile editor
func (h *ResidentHandler) EditProfilePage(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	var society models.Society
	if err := h.db.Where("society_name = ?", resident.SocietyName).First(&society).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Society not found")
	}

	return c.Render(http.StatusOK, "editProfile.html", map[string]interface{}{
		"Resident": resident,
		"Society":  society,
	})
}

// UpdateProfile saves profile edits; admins may also update the society address
func (h *ResidentHandler) UpdateProfile(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	err := h.db.Model(&models.Resident{}).Where("id = ?", resident.ID).Updates(map[string]interface{}{
		"first_name":  c.FormValue("firstName"),
		"last_name":   c.FormValue("lastName"),
		"phone":       c.FormValue("phoneNumber"),
		"flat_number": c.FormValue("flatNumber"),
	}).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update profile")
	}

	if resident.IsAdmin && c.FormValue("address") != "" {
		err := h.db.Model(&models.Society{}).
			Where("society_name = ?", resident.SocietyName).
			Updates(map[string]interface{}{
				"address_address":     c.FormValue("address"),
				"address_city":        c.FormValue("city"),
				"address_district":    c.FormValue("district"),
				"address_postal_code": c.FormValue("postalCode"),
			}).Error
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update society address")
		}
	}

	return c.Redirect(http.StatusSeeOther, "/profile")
}
