package handlers

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"society_portal_echo/internal/models"
)

// AuthHandler handles login, signup and society registration
type AuthHandler struct {
	db         *gorm.DB
	authClient *auth.Client
}

func NewAuthHandler(db *gorm.DB, authClient *auth.Client) *AuthHandler {
	return &AuthHandler{db: db, authClient: authClient}
}

// LoginPage renders the login page
func (h *AuthHandler) LoginPage(c echo.Context) error {
	data := map[string]interface{}{
		"FirebaseAPIKey":     os.Getenv("FIREBASE_API_KEY"),
		"FirebaseAuthDomain": os.Getenv("FIREBASE_AUTH_DOMAIN"),
		"FirebaseProjectID":  os.Getenv("FIREBASE_PROJECT_ID"),
	}
	return c.Render(http.StatusOK, "login.html", data)
}

// SignupPage renders the resident signup form with the registered societies
func (h *AuthHandler) SignupPage(c echo.Context) error {
	var societies []models.Society
	if err := h.db.Find(&societies).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch societies")
	}
	data := map[string]interface{}{
		"Societies":          societies,
		"FirebaseAPIKey":     os.Getenv("FIREBASE_API_KEY"),
		"FirebaseAuthDomain": os.Getenv("FIREBASE_AUTH_DOMAIN"),
		"FirebaseProjectID":  os.Getenv("FIREBASE_PROJECT_ID"),
	}
	return c.Render(http.StatusOK, "signup.html", data)
}

// RegisterPage renders the society registration form
func (h *AuthHandler) RegisterPage(c echo.Context) error {
	data := map[string]interface{}{
		"FirebaseAPIKey":     os.Getenv("FIREBASE_API_KEY"),
		"FirebaseAuthDomain": os.Getenv("FIREBASE_AUTH_DOMAIN"),
		"FirebaseProjectID":  os.Getenv("FIREBASE_PROJECT_ID"),
	}
	return c.Render(http.StatusOK, "register.html", data)
}

// verifyIDToken extracts and verifies the Firebase ID token from the request.
// The frontend sends it either as a bearer header or an idToken form field.
func (h *AuthHandler) verifyIDToken(c echo.Context) (*auth.Token, string, error) {
	if h.authClient == nil {
		return nil, "", echo.NewHTTPError(http.StatusInternalServerError, "Auth provider not configured")
	}

	tokenString := c.FormValue("idToken")
	if tokenString == "" {
		authHeader := c.Request().Header.Get("Authorization")
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			tokenString = ""
		}
	}
	if tokenString == "" {
		return nil, "", echo.NewHTTPError(http.StatusUnauthorized, "Missing ID token")
	}

	token, err := h.authClient.VerifyIDToken(c.Request().Context(), tokenString)
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}
	return token, tokenString, nil
}

// startSession exchanges a verified ID token for a session cookie
func (h *AuthHandler) startSession(c echo.Context, tokenString string) error {
	expiresIn := time.Hour * 24 * 5
	cookieValue, err := h.authClient.SessionCookie(c.Request().Context(), tokenString, expiresIn)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create session")
	}

	c.SetCookie(&http.Cookie{
		Name:     "session",
		Value:    cookieValue,
		MaxAge:   int(expiresIn.Seconds()),
		HttpOnly: true,
		Secure:   os.Getenv("ENV") == "production",
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// HandleLogin verifies the Firebase ID token and creates a session cookie
func (h *AuthHandler) HandleLogin(c echo.Context) error {
	_, tokenString, err := h.verifyIDToken(c)
	if err != nil {
		return err
	}
	if err := h.startSession(c, tokenString); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "success", "redirect": "/home"})
}

// HandleSignup creates a resident account against an existing society.
// The new account stays in the applied state until the society admin approves it.
func (h *AuthHandler) HandleSignup(c echo.Context) error {
	token, tokenString, err := h.verifyIDToken(c)
	if err != nil {
		return err
	}

	societyName := c.FormValue("societyName")
	var society models.Society
	if err := h.db.Where("society_name = ?", societyName).First(&society).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Render(http.StatusBadRequest, "failure.html", map[string]interface{}{
				"Message":          "Sorry, society is not registered, Please double-check society name.",
				"Href":             "/signup",
				"MessageSecondary": "Society not registered?",
				"HrefSecondary":    "/register",
				"ButtonSecondary":  "Register Society",
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to look up society")
	}

	email, _ := token.Claims["email"].(string)
	resident := models.Resident{
		FirebaseUID:   token.UID,
		Email:         email,
		FirstName:     c.FormValue("firstName"),
		LastName:      c.FormValue("lastName"),
		Phone:         c.FormValue("phoneNumber"),
		SocietyName:   societyName,
		FlatNumber:    c.FormValue("flatNumber"),
		ApprovalState: models.ApprovalStateApplied,
	}
	if err := h.db.Create(&resident).Error; err != nil {
		// Most likely the society+flat unique index or a duplicate account
		return c.Render(http.StatusBadRequest, "failure.html", map[string]interface{}{
			"Message":          "Sorry, this flat already has a registered account or the email is in use.",
			"Href":             "/signup",
			"MessageSecondary": "Society not registered?",
			"HrefSecondary":    "/register",
			"ButtonSecondary":  "Register Society",
		})
	}

	if err := h.startSession(c, tokenString); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/home")
}

// HandleRegister creates a new society together with its admin resident.
// The admin account is approved immediately.
func (h *AuthHandler) HandleRegister(c echo.Context) error {
	token, tokenString, err := h.verifyIDToken(c)
	if err != nil {
		return err
	}

	societyName := c.FormValue("societyName")
	var existing models.Society
	err = h.db.Where("society_name = ?", societyName).First(&existing).Error
	if err == nil {
		return c.Render(http.StatusBadRequest, "failure.html", map[string]interface{}{
			"Message":          "Sorry, society is already registered, Please double-check society name.",
			"Href":             "/register",
			"MessageSecondary": "Account not created?",
			"HrefSecondary":    "/signup",
			"ButtonSecondary":  "Create Account",
		})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to look up society")
	}

	email, _ := token.Claims["email"].(string)
	resident := models.Resident{
		FirebaseUID:   token.UID,
		Email:         email,
		FirstName:     c.FormValue("firstName"),
		LastName:      c.FormValue("lastName"),
		Phone:         c.FormValue("phoneNumber"),
		SocietyName:   societyName,
		FlatNumber:    c.FormValue("flatNumber"),
		ApprovalState: models.ApprovalStateApproved,
		IsAdmin:       true,
	}

	society := models.Society{
		SocietyName: societyName,
		Address: models.Address{
			Address:    c.FormValue("address"),
			City:       c.FormValue("city"),
			District:   c.FormValue("district"),
			PostalCode: c.FormValue("postalCode"),
		},
		AdminEmail: email,
	}

	txErr := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&resident).Error; err != nil {
			return err
		}
		return tx.Create(&society).Error
	})
	if txErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to register society")
	}

	if err := h.startSession(c, tokenString); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/home")
}

// HandleLogout clears the session cookie
func (h *AuthHandler) HandleLogout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     "session",
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	})
	return c.Redirect(http.StatusSeeOther, "/")
}

// Home renders the landing page for a logged-in resident, switching on the
// account's approval state.
func (h *AuthHandler) Home(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	switch resident.ApprovalState {
	case models.ApprovalStateApproved:
		return c.Render(http.StatusOK, "home.html", map[string]interface{}{
			"Resident": resident,
		})
	case models.ApprovalStateApplied:
		return c.Render(http.StatusOK, "homeStandby.html", map[string]interface{}{
			"Icon":  "fa-user-clock",
			"Title": "Account pending for approval",
			"Content": "Your account will be active as soon as it is approved by your community. " +
				"It usually takes 1-2 days for approval. If it is taking longer to get approval, " +
				"contact your society admin.",
		})
	default:
		return c.Render(http.StatusOK, "homeStandby.html", map[string]interface{}{
			"Icon":  "fa-user-lock",
			"Title": "Account approval declined",
			"Content": "Your account registration has been declined. " +
				"Please contact the society administrator for more details. " +
				"You can edit the request and apply again.",
		})
	}
}

// NewRequestPage lets a declined or pending resident edit their application
func (h *AuthHandler) NewRequestPage(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok || resident.ApprovalState == models.ApprovalStateApproved {
		return c.Redirect(http.StatusTemporaryRedirect, "/home")
	}

	var societies []models.Society
	if err := h.db.Find(&societies).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch societies")
	}
	return c.Render(http.StatusOK, "signupEdit.html", map[string]interface{}{
		"Resident":  resident,
		"Societies": societies,
	})
}

// HandleNewRequest resubmits a signup application
func (h *AuthHandler) HandleNewRequest(c echo.Context) error {
	resident, ok := currentResident(c)
	if !ok {
		return c.Redirect(http.StatusTemporaryRedirect, "/login")
	}

	societyName := c.FormValue("societyName")
	var society models.Society
	if err := h.db.Where("society_name = ?", societyName).First(&society).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Render(http.StatusBadRequest, "failure.html", map[string]interface{}{
				"Message":          "Sorry, society is not registered, Please double-check society name.",
				"Href":             "/newRequest",
				"MessageSecondary": "Account not created?",
				"HrefSecondary":    "/signup",
				"ButtonSecondary":  "Create Account",
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to look up society")
	}

	err := h.db.Model(&models.Resident{}).Where("id = ?", resident.ID).Updates(map[string]interface{}{
		"first_name":     c.FormValue("firstName"),
		"last_name":      c.FormValue("lastName"),
		"phone":          c.FormValue("phoneNumber"),
		"society_name":   societyName,
		"flat_number":    c.FormValue("flatNumber"),
		"approval_state": models.ApprovalStateApplied,
	}).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update application")
	}

	return c.Redirect(http.StatusSeeOther, "/home")
}
