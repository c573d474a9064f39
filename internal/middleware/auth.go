package middleware

import (
	"errors"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"society_portal_echo/internal/models"
)

// ResidentContextKey is where RequireResident stores the loaded record
const ResidentContextKey = "resident"

// RequireAuth returns a middleware that verifies Firebase session cookies
func RequireAuth(authClient *auth.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if authClient == nil {
				return c.Redirect(http.StatusTemporaryRedirect, "/login?error=auth_not_configured")
			}

			cookie, err := c.Cookie("session")
			if err != nil || cookie.Value == "" {
				return c.Redirect(http.StatusTemporaryRedirect, "/login")
			}

			decodedToken, err := authClient.VerifySessionCookie(c.Request().Context(), cookie.Value)
			if err != nil {
				// Invalid session, clear cookie and redirect
				clearCookie := &http.Cookie{
					Name:     "session",
					Value:    "",
					MaxAge:   -1,
					HttpOnly: true,
					Path:     "/",
				}
				c.SetCookie(clearCookie)
				return c.Redirect(http.StatusTemporaryRedirect, "/login")
			}

			c.Set("userUID", decodedToken.UID)
			if email, ok := decodedToken.Claims["email"].(string); ok {
				c.Set("userEmail", email)
			}

			return next(c)
		}
	}
}

// RequireResident loads the Resident record for the authenticated user into
// the request context. Users authenticated with Firebase but without a
// resident record are sent to signup.
func RequireResident(db *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, _ := c.Get("userUID").(string)
			if uid == "" {
				return c.Redirect(http.StatusTemporaryRedirect, "/login")
			}

			var resident models.Resident
			err := db.WithContext(c.Request().Context()).
				Where("firebase_uid = ?", uid).First(&resident).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return c.Redirect(http.StatusTemporaryRedirect, "/signup")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load resident")
			}

			c.Set(ResidentContextKey, resident)
			return next(c)
		}
	}
}

// RequireApproved gates routes to residents whose account has been approved.
// Pending and declined accounts land on the standby home page.
func RequireApproved() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			resident, ok := c.Get(ResidentContextKey).(models.Resident)
			if !ok {
				return c.Redirect(http.StatusTemporaryRedirect, "/login")
			}
			if resident.ApprovalState != models.ApprovalStateApproved {
				return c.Redirect(http.StatusTemporaryRedirect, "/home")
			}
			return next(c)
		}
	}
}

// RequireAdmin gates routes to society admins
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			resident, ok := c.Get(ResidentContextKey).(models.Resident)
			if !ok || !resident.IsAdmin {
				return c.Redirect(http.StatusTemporaryRedirect, "/home")
			}
			return next(c)
		}
	}
}
