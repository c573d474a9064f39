package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"society_portal_echo/internal/services"
)

// CustomErrorHandler converts errors raised by handlers into user-facing
// responses. Signature verification failures are deliberate 400 rejections;
// everything else surfaces as an opaque failure page with details logged
// server-side only.
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Something went wrong. Please try again later."

	switch {
	case errors.Is(err, services.ErrSignatureVerification):
		code = http.StatusBadRequest
		message = "Payment verification failed"
	case errors.Is(err, services.ErrSettlementConflict):
		code = http.StatusConflict
		message = "Your bill changed while the payment was processing. Please reload the bill page."
	case errors.Is(err, services.ErrNotFound):
		code = http.StatusNotFound
		message = "The record you're looking for doesn't exist."
	case errors.Is(err, services.ErrValidation):
		code = http.StatusBadRequest
		message = "The request could not be processed."
	default:
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if msg, ok := he.Message.(string); ok && msg != "" {
				message = msg
			}
		}
	}

	slog.Error("request failed", "method", c.Request().Method, "path", c.Request().URL.Path, "status", code, "error", err)

	// JSON endpoints get a machine-readable error, pages get the failure view.
	if c.Request().Header.Get(echo.HeaderContentType) == echo.MIMEApplicationJSON ||
		c.Request().URL.Path == "/checkout-session" {
		if jsonErr := c.JSON(code, map[string]string{"error": message}); jsonErr != nil {
			c.Logger().Error(jsonErr)
		}
		return
	}

	renderErr := c.Render(code, "failure.html", map[string]interface{}{
		"Message":          message,
		"Href":             "/home",
		"MessageSecondary": "Need help?",
		"HrefSecondary":    "/helpdesk",
		"ButtonSecondary":  "Helpdesk",
	})
	if renderErr != nil {
		if strErr := c.String(code, message); strErr != nil {
			c.Logger().Error(strErr)
		}
	}
}
