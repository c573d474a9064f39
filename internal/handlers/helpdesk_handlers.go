package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"society_portal_echo/internal/models"
)

// HelpdeskHandler serves complaints and the emergency contacts pages
type HelpdeskHandler struct {
	db *gorm.DB
}

func NewHelpdeskHandler(db *gorm.DB) *HelpdeskHandler {
	return &HelpdeskHandler{db: db}
}

// Helpdesk shows the admin every open ticket in the society, and a member
// only their own.
func (h *HelpdeskHandler) Helpdesk(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	if resident.IsAdmin {
		var residents []models.Resident
		err := h.db.Preload("Complaints").
			Where("society_name = ? AND approval_state = ?", resident.SocietyName, models.ApprovalStateApproved).
			Find(&residents).Error
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch residents")
		}
		return c.Render(http.StatusOK, "helpdeskAdmin.html", map[string]interface{}{
			"Users": residents,
		})
	}

	var complaints []models.Complaint
	if err := h.db.Where("resident_id = ?", resident.ID).
		Order("created_at desc").Find(&complaints).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch complaints")
	}

	if len(complaints) == 0 {
		complaints = []models.Complaint{{
			Category:    "You have not raised any complaint",
			Description: "You can raise complaints and track their resolution by facility manager.",
		}}
	}

	return c.Render(http.StatusOK, "helpdesk.html", map[string]interface{}{
		"Complaints": complaints,
	})
}

// ComplaintPage renders the complaint form
func (h *HelpdeskHandler) ComplaintPage(c echo.Context) error {
	return c.Render(http.StatusOK, "complaint.html", nil)
}

// CreateComplaint files a new helpdesk ticket
func (h *HelpdeskHandler) CreateComplaint(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	complaint := models.Complaint{
		ResidentID:  resident.ID,
		Date:        dateString(time.Now()),
		Category:    c.FormValue("category"),
		Type:        c.FormValue("type"),
		Description: c.FormValue("description"),
		Status:      models.ComplaintStatusOpen,
	}
	if err := h.db.Create(&complaint).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to file complaint")
	}

	return c.Redirect(http.StatusSeeOther, "/helpdesk")
}

// CloseTicket marks a complaint resolved (admin action)
func (h *HelpdeskHandler) CloseTicket(c echo.Context) error {
	admin, ok := currentResident(c)
	if !ok || !admin.IsAdmin {
		return c.Redirect(http.StatusTemporaryRedirect, "/home")
	}

	ticketID, err := strconv.ParseUint(c.FormValue("ticket"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid ticket ID")
	}

	err = h.db.Model(&models.Complaint{}).
		Where("complaints.id = ?", ticketID).
		Where("resident_id IN (?)", h.db.Model(&models.Resident{}).Select("id").
			Where("society_name = ?", admin.SocietyName)).
		Update("status", models.ComplaintStatusClosed).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to close ticket")
	}

	return c.Redirect(http.StatusSeeOther, "/helpdesk")
}

// Contacts renders the society's emergency contacts
func (h *HelpdeskHandler) Contacts(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	var society models.Society
	if err := h.db.Where("society_name = ?", resident.SocietyName).First(&society).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Society not found")
	}

	return c.Render(http.StatusOK, "contacts.html", map[string]interface{}{
		"Contact": society.Contacts,
		"IsAdmin": resident.IsAdmin,
	})
}

// EditContactsPage renders the contacts editor for admins
func (h *HelpdeskHandler) EditContactsPage(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	var society models.Society
	if err := h.db.Where("society_name = ?", resident.SocietyName).First(&society).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Society not found")
	}

	return c.Render(http.StatusOK, "editContacts.html", map[string]interface{}{
		"Contact": society.Contacts,
	})
}

// UpdateContacts replaces the society's emergency contacts
func (h *HelpdeskHandler) UpdateContacts(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	err := h.db.Model(&models.Society{}).
		Where("society_name = ?", resident.SocietyName).
		Updates(map[string]interface{}{
			"contact_plumbing_service": c.FormValue("plumbingService"),
			"contact_medicine_shop":    c.FormValue("medicineShop"),
			"contact_ambulance":        c.FormValue("ambulance"),
			"contact_doctor":           c.FormValue("doctor"),
			"contact_fire_station":     c.FormValue("fireStation"),
			"contact_guard":            c.FormValue("guard"),
			"contact_police_station":   c.FormValue("policeStation"),
		}).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update contacts")
	}

	return c.Redirect(http.StatusSeeOther, "/contacts")
}
