package handlers

import (
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"society_portal_echo/internal/middleware"
	"society_portal_echo/internal/models"
)

// currentResident returns the Resident loaded by the RequireResident middleware
func currentResident(c echo.Context) (models.Resident, bool) {
	resident, ok := c.Get(middleware.ResidentContextKey).(models.Resident)
	return resident, ok
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// dateString formats timestamps the way notices and complaints display them
func dateString(t time.Time) string {
	return t.Format("Jan 2, 2006")
}
