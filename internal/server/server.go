// Package server assembles the Fiber application for the record store.
package server

import (
	"fmt"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	swagger "github.com/gofiber/swagger"
	"github.com/google/uuid"
	"github.com/pis-platform/pis/internal/blob"
	"github.com/pis-platform/pis/internal/config"
	"github.com/pis-platform/pis/internal/handlers"
	"github.com/pis-platform/pis/internal/middleware"
	"github.com/pis-platform/pis/internal/models"
	"github.com/pis-platform/pis/internal/services"
	"gorm.io/gorm"
)

// Options wires the application's dependencies
type Options struct {
	Config   *config.Config
	DB       *gorm.DB
	Verifier middleware.TokenVerifier
	Store    blob.Store

	// Metrics registers Prometheus collectors on the default registry,
	// which can only happen once per process.
	Metrics    bool
	RequestLog bool
}

// New builds the application with every route mounted
func New(opts Options) (*fiber.App, error) {
	if opts.Config == nil || opts.DB == nil || opts.Verifier == nil || opts.Store == nil {
		return nil, fmt.Errorf("server options incomplete")
	}

	properties, err := services.NewPropertyService(opts.DB)
	if err != nil {
		return nil, err
	}
	contacts, err := services.NewContactService(opts.DB)
	if err != nil {
		return nil, err
	}
	suites, err := services.NewSectionService[models.Suite](opts.DB)
	if err != nil {
		return nil, err
	}
	svcs, err := services.NewSectionService[models.Service](opts.DB)
	if err != nil {
		return nil, err
	}
	utilities, err := services.NewSectionService[models.Utility](opts.DB)
	if err != nil {
		return nil, err
	}
	codes, err := services.NewSectionService[models.Code](opts.DB)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    bodyLimit(opts.Config.MaxUploadBytes),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	if opts.RequestLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(compress.New())
	if opts.Config.CORSOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: opts.Config.CORSOrigins,
			AllowHeaders: "Authorization, Content-Type, X-Api-Version",
			AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		}))
	}

	// Prometheus metrics
	if opts.Metrics {
		prometheus := fiberprometheus.New("pis")
		prometheus.RegisterAt(app, "/metrics")
		app.Use(prometheus.Middleware)
	}

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	health := &handlers.HealthHandler{Config: opts.Config, DB: opts.DB}
	app.Get("/health", health.Check)

	if fs, ok := opts.Store.(*blob.Filesystem); ok {
		app.Static(opts.Config.UploadURLBase, fs.Root())
	}

	// API routes under /api
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())
	api.Use(middleware.BearerAuth(opts.Verifier))

	propertyHandler := &handlers.PropertyHandler{Service: properties}
	api.Get("/properties", propertyHandler.List)
	api.Post("/properties", propertyHandler.Create)
	api.Get("/properties/:yardi", propertyHandler.Get)
	api.Put("/properties/:yardi", propertyHandler.Update)

	(&handlers.SectionHandler[models.Suite]{Service: suites}).Mount(api, "/suites")
	(&handlers.SectionHandler[models.Service]{Service: svcs}).Mount(api, "/services")
	(&handlers.SectionHandler[models.Utility]{Service: utilities}).Mount(api, "/utilities")
	(&handlers.SectionHandler[models.Code]{Service: codes}).Mount(api, "/codes")

	contactHandler := &handlers.ContactHandler{Service: contacts}
	api.Get("/contacts", contactHandler.List)
	api.Post("/contacts", contactHandler.Create)
	api.Get("/contacts/:id", contactHandler.Get)
	api.Put("/contacts/:id", contactHandler.Update)
	api.Delete("/contacts/:id", contactHandler.Delete)

	photoHandler := &handlers.PhotoHandler{
		DB:             opts.DB,
		Store:          opts.Store,
		MaxUploadBytes: int64(opts.Config.MaxUploadBytes),
	}
	api.Post("/property-photos/upload", photoHandler.Upload)
	api.Post("/property-photos", photoHandler.Create)
	api.Get("/property-photos/:yardi", photoHandler.List)
	api.Delete("/property-photos/:id", photoHandler.Delete)

	historyHandler := &handlers.EditHistoryHandler{DB: opts.DB}
	api.Get("/edit-history", historyHandler.List)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
			"type":      "not_found",
		})
	})

	return app, nil
}

// bodyLimit leaves room for multipart framing around the largest upload
func bodyLimit(maxUpload int) int {
	const floor = 4 * 1024 * 1024
	if maxUpload+1024*1024 > floor {
		return maxUpload + 1024*1024
	}
	return floor
}
