package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"society_portal_echo/internal/models"
)

// NoticeboardHandler serves the society noticeboard
type NoticeboardHandler struct {
	db *gorm.DB
}

func NewNoticeboardHandler(db *gorm.DB) *NoticeboardHandler {
	return &NoticeboardHandler{db: db}
}

// Noticeboard lists the society's notices, newest first
func (h *NoticeboardHandler) Noticeboard(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	var notices []models.Notice
	if err := h.db.Where("society_name = ?", resident.SocietyName).
		Order("created_at desc").Find(&notices).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch notices")
	}

	if len(notices) == 0 {
		notices = []models.Notice{{
			Subject: "Access all important announcements, notices and circulars here.",
		}}
	}

	return c.Render(http.StatusOK, "noticeboard.html", map[string]interface{}{
		"Notices": notices,
		"IsAdmin": resident.IsAdmin,
	})
}

// NoticePage renders the notice composer for admins
func (h *NoticeboardHandler) NoticePage(c echo.Context) error {
	return c.Render(http.StatusOK, "notice.html", nil)
}

// CreateNotice publishes a notice to the society noticeboard
func (h *NoticeboardHandler) CreateNotice(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	notice := models.Notice{
		SocietyName: resident.SocietyName,
		Date:        dateString(time.Now()),
		Subject:     c.FormValue("subject"),
		Details:     c.FormValue("details"),
	}
	if err := h.db.Create(&notice).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to publish notice")
	}

	return c.Redirect(http.StatusSeeOther, "/noticeboard")
}
