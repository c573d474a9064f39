package main

import (
	"context"
	"html/template"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"society_portal_echo/internal/handlers"
	"society_portal_echo/internal/middleware"
	"society_portal_echo/internal/services"
	"society_portal_echo/pkg/logging"
)

// TemplateRenderer is a custom html/template renderer for Echo.
// Uses per-page template cloning to allow each page to define its own blocks.
type TemplateRenderer struct {
	templates map[string]*template.Template
}

// NewTemplateRenderer creates a template renderer with per-page cloning
func NewTemplateRenderer() *TemplateRenderer {
	templates := make(map[string]*template.Template)

	// Parse base layout and partials as the foundation
	baseTemplate := template.Must(template.ParseGlob("web/templates/layouts/*.html"))

	// Find all page templates and clone base for each
	pages, err := filepath.Glob("web/templates/pages/*.html")
	if err != nil {
		log.Fatal(err)
	}

	for _, page := range pages {
		pageName := filepath.Base(page)
		pageTemplate := template.Must(baseTemplate.Clone())
		template.Must(pageTemplate.ParseFiles(page))
		templates[pageName] = pageTemplate
	}

	// Standalone templates (like login) that don't use the base layout
	standalonePages, _ := filepath.Glob("web/templates/*.html")
	for _, page := range standalonePages {
		pageName := filepath.Base(page)
		if _, exists := templates[pageName]; !exists {
			templates[pageName] = template.Must(template.ParseFiles(page))
		}
	}

	return &TemplateRenderer{templates: templates}
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.templates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Template not found: "+name)
	}
	if tmpl.Lookup("base") != nil {
		dataMap, ok := data.(map[string]interface{})
		if !ok {
			dataMap = map[string]interface{}{}
		}
		dataMap["UserEmail"] = c.Get("userEmail")
		dataMap["UserUID"] = c.Get("userUID")
		return tmpl.ExecuteTemplate(w, "base", dataMap)
	}
	return tmpl.Execute(w, data)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}
	logging.Setup()

	// Identity provider
	authClient, err := services.InitFirebase(context.Background())
	if err != nil {
		slog.Warn("firebase initialization failed, auth routes will not work", "error", err)
	}

	// Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL not set")
		os.Exit(1)
	}
	db, err := services.InitDB(databaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := services.AutoMigrate(db); err != nil {
		slog.Error("failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// Cache is optional; the landing page falls back to direct queries
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			slog.Warn("redis unavailable, landing stats will be uncached", "error", err)
			cache = nil
		}
	}

	// Payment gateway and the billing/settlement services built on it
	gateway := services.NewRazorpayGateway()
	billingService := services.NewBillingService(db)
	settlementService := services.NewSettlementService(db, gateway, os.Getenv("RAZORPAY_KEY_SECRET"))

	e := echo.New()
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.HTTPErrorHandler = middleware.CustomErrorHandler
	e.Renderer = NewTemplateRenderer()
	e.Static("/static", "web/static")

	homeHandler := handlers.NewHomeHandler(db, cache)
	authHandler := handlers.NewAuthHandler(db, authClient)
	billHandler := handlers.NewBillHandler(db, billingService, settlementService)
	residentHandler := handlers.NewResidentHandler(db)
	noticeboardHandler := handlers.NewNoticeboardHandler(db)
	helpdeskHandler := handlers.NewHelpdeskHandler(db)

	// Public routes
	e.GET("/", homeHandler.Index)
	e.GET("/health", homeHandler.Health)
	e.GET("/login", authHandler.LoginPage)
	e.GET("/signup", authHandler.SignupPage)
	e.GET("/register", authHandler.RegisterPage)
	e.POST("/auth/login", authHandler.HandleLogin)
	e.POST("/signup", authHandler.HandleSignup)
	e.POST("/register", authHandler.HandleRegister)
	e.GET("/logout", authHandler.HandleLogout)

	// Authenticated routes that don't need approval yet
	authed := e.Group("")
	authed.Use(middleware.RequireAuth(authClient))
	authed.Use(middleware.RequireResident(db))
	authed.GET("/home", authHandler.Home)
	authed.GET("/newRequest", authHandler.NewRequestPage)
	authed.POST("/newRequest", authHandler.HandleNewRequest)

	// Approved residents only
	approved := authed.Group("")
	approved.Use(middleware.RequireApproved())
	approved.GET("/bill", billHandler.ShowBill)
	approved.POST("/checkout-session", billHandler.CreateCheckoutSession)
	approved.POST("/payment-success", billHandler.PaymentSuccess)
	approved.GET("/residents", residentHandler.ListResidents)
	approved.GET("/profile", residentHandler.Profile)
	approved.GET("/editProfile", residentHandler.EditProfilePage)
	approved.POST("/editProfile", residentHandler.UpdateProfile)
	approved.GET("/noticeboard", noticeboardHandler.Noticeboard)
	approved.GET("/helpdesk", helpdeskHandler.Helpdesk)
	approved.GET("/complaint", helpdeskHandler.ComplaintPage)
	approved.POST("/complaint", helpdeskHandler.CreateComplaint)
	approved.GET("/contacts", helpdeskHandler.Contacts)

	// Society admin only
	admin := approved.Group("")
	admin.Use(middleware.RequireAdmin())
	admin.POST("/approveResident", residentHandler.ApproveResident)
	admin.GET("/notice", noticeboardHandler.NoticePage)
	admin.POST("/notice", noticeboardHandler.CreateNotice)
	admin.GET("/editBill", billHandler.EditBillPage)
	admin.POST("/editBill", billHandler.UpdateBill)
	admin.POST("/closeTicket", helpdeskHandler.CloseTicket)
	admin.GET("/editContacts", helpdeskHandler.EditContactsPage)
	admin.POST("/editContacts", helpdeskHandler.UpdateContacts)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	slog.Info("server starting", "port", port)
	e.Logger.Fatal(e.Start(":" + port))
}
