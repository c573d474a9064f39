package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"society_portal_echo/internal/models"
	"society_portal_echo/internal/services"
)

// HomeHandler serves the public landing page and the health probe
type HomeHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

func NewHomeHandler(db *gorm.DB, cache *services.RedisCache) *HomeHandler {
	return &HomeHandler{db: db, cache: cache}
}

// landingStats are the headline counts on the landing page
type landingStats struct {
	Cities    int64 `json:"cities"`
	Societies int64 `json:"societies"`
	Residents int64 `json:"residents"`
}

// Index renders the landing page with visit and registration counts.
// The aggregate counts are cached; the visit counter is bumped only in
// production so local runs don't inflate it.
func (h *HomeHandler) Index(c echo.Context) error {
	ctx := c.Request().Context()

	var visit models.Visit
	if err := h.db.WithContext(ctx).First(&visit).Error; err != nil {
		visit = models.Visit{Count: 0}
	}
	if os.Getenv("ENV") == "production" {
		visit.Count++
	}
	if err := h.db.WithContext(ctx).Save(&visit).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to track visit")
	}

	stats, err := services.GetOrSet(h.cache, ctx, "landing:stats", 5*time.Minute, func() (landingStats, error) {
		var s landingStats
		if err := h.db.WithContext(ctx).Model(&models.Society{}).Count(&s.Societies).Error; err != nil {
			return s, err
		}
		if err := h.db.WithContext(ctx).Model(&models.Resident{}).Count(&s.Residents).Error; err != nil {
			return s, err
		}
		if err := h.db.WithContext(ctx).Model(&models.Society{}).
			Distinct("LOWER(address_city)").Count(&s.Cities).Error; err != nil {
			return s, err
		}
		return s, nil
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch stats")
	}

	return c.Render(http.StatusOK, "index.html", map[string]interface{}{
		"City":    stats.Cities,
		"Society": stats.Societies,
		"User":    stats.Residents,
		"Visit":   visit.Count,
	})
}

// Health responds to liveness probes
func (h *HomeHandler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "Server is running")
}
