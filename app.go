package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"smartdraft/config"
	"smartdraft/coordinator"
	"smartdraft/handlers/api"
	"smartdraft/handlers/web"
	"smartdraft/llm"
	"smartdraft/middleware"
	"smartdraft/settings"
	"smartdraft/storage"
	"smartdraft/templates"
	"smartdraft/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// services are the long-lived collaborators the routes are built on
type services struct {
	config      *config.Config
	repo        *storage.Repository
	client      *llm.Client
	coordinator *coordinator.Coordinator
	settings    *settings.Service
	hub         *api.NotificationHub
}

// isAPIRequest reports whether the error handler should answer with JSON
func isAPIRequest(c *fiber.Ctx) bool {
	if c == nil {
		return false
	}
	return strings.HasPrefix(c.Path(), "/api") || strings.HasPrefix(c.Path(), "/ws")
}

func newEngine() *html.Engine {
	engine := html.NewFileSystem(http.FS(templates.FS), ".html")

	engine.AddFunc("t", func(localizer *i18n.Localizer, messageID string) string {
		return utils.T(localizer, messageID)
	})
	engine.AddFunc("formatDate", func(t time.Time) string {
		return t.Format("Jan 02, 2006 15:04")
	})

	return engine
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var appErr *utils.AppError
	var fiberErr *fiber.Error
	if errors.As(err, &appErr) {
		code = appErr.Code
		utils.Log.WithField("kind", appErr.Kind).Error("Application error: %v", appErr)
	} else if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	message := err.Error()
	if appErr != nil {
		message = appErr.Message
	}

	if isAPIRequest(c) {
		return c.Status(code).JSON(fiber.Map{
			"error": message,
		})
	}

	return c.Status(code).Render("error", fiber.Map{
		"Error": message,
		"Code":  code,
	})
}

// newApp builds the HTTP server around svc
func newApp(svc *services) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:                 newEngine(),
		ViewsLayout:           "layouts/main",
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New(compress.Config{
		// compression buffers the whole body, which would hold back SSE frames
		Next: func(c *fiber.Ctx) bool { return c.Path() == "/api/events" },
	}))
	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline';",
	}))
	app.Use(middleware.LocaleMiddleware())
	app.Use(middleware.RateLimiter(svc.config.Server.RequestsPerMinute, time.Minute))

	origins := svc.config.Server.Origins()
	messageHandler := api.NewMessageHandler(svc.coordinator)
	busHandler := api.NewBusHandler(svc.coordinator, svc.hub, origins)
	draftHandler := api.NewDraftHandler(svc.repo)
	apiSettings := api.NewSettingsHandler(svc.settings)
	webSettings := web.NewSettingsHandler(svc.settings, svc.coordinator)
	i18nHandler := api.NewI18nHandler()

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/settings")
	})

	// Settings page
	page := app.Group("/settings", middleware.CSRFProtection())
	page.Get("", webSettings.ShowSettings)
	page.Post("", webSettings.SaveSettings)
	page.Post("/test", webSettings.TestConnection)

	// Message bus
	app.Get("/ws", middleware.OriginGuard(origins), busHandler.RequireUpgrade, busHandler.Handler())

	apiRoutes := app.Group("/api", middleware.OriginGuard(origins))
	{
		apiRoutes.Post("/message", messageHandler.HandleMessage)
		apiRoutes.Get("/drafts", draftHandler.ListDrafts)
		apiRoutes.Get("/events", svc.hub.HandleSSE)

		apiRoutes.Get("/settings", apiSettings.GetSettings)
		apiRoutes.Put("/settings", apiSettings.PutSettings)
		apiRoutes.Post("/settings/test", apiSettings.TestConnection)

		apiRoutes.Get("/i18n/:lang", i18nHandler.GetTranslations)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"time":        time.Now().Format(time.RFC3339),
			"subscribers": svc.hub.Subscribers(),
		})
	})

	// 404 Handler for undefined routes
	app.Use(func(c *fiber.Ctx) error {
		localizer, _ := c.Locals("localizer").(*i18n.Localizer)
		return utils.NotFoundError(utils.T(localizer, "error_404"), fmt.Errorf("no route for %s", c.Path()))
	})

	return app
}
