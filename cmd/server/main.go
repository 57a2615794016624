package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pis-platform/pis/internal/blob"
	"github.com/pis-platform/pis/internal/config"
	"github.com/pis-platform/pis/internal/database"
	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/server"
	"github.com/pis-platform/pis/internal/services"

	_ "github.com/pis-platform/pis/docs/api" // Swagger docs
)

// @title PIS Platform API
// @version 1.0.0
// @description Property information record store: properties, suites, services, utilities, codes, contacts and photos
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/pis-platform/pis

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	logging.InitLogger("pis-server")

	if err := config.LoadDotEnv(); err != nil {
		logging.Logger.Fatalf("Failed to load .env: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logging.Logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		logging.Logger.Fatalf("Failed to run migrations: %v", err)
	}

	store, err := blob.Open(context.Background(), cfg)
	if err != nil {
		logging.Logger.Fatalf("Failed to open %s blob store: %v", cfg.BlobDriver, err)
	}

	app, err := server.New(server.Options{
		Config:     cfg,
		DB:         db,
		Verifier:   services.NewTokenVerifier(cfg),
		Store:      store,
		Metrics:    true,
		RequestLog: true,
	})
	if err != nil {
		logging.Logger.Fatalf("Failed to build server: %v", err)
	}

	logging.Logger.Infof("Validating tokens for audience %s from issuer %s", cfg.Audience(), cfg.Issuer())

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logging.Logger.Info("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	logging.Logger.Infof("Starting server on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		logging.Logger.Fatalf("Failed to start server: %v", err)
	}

	logging.Logger.Info("Server stopped")
}
