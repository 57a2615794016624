package services

import (
	"fmt"

	"github.com/pis-platform/pis/internal/config"
	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/utils"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status           string            `json:"status"`
	Database         string            `json:"database"`
	IdentityProvider string            `json:"identity_provider"`
	Details          map[string]string `json:"details,omitempty"`
	ErrorMessage     string            `json:"error,omitempty"`
}

// HealthCheck performs a comprehensive health check of the service
func HealthCheck(cfg *config.Config, db *gorm.DB, checkIdentityProvider bool) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	// Check database connectivity
	sqlDB, err := db.DB()
	if err != nil {
		result.Status = "unhealthy"
		result.Database = "error"
		result.Details["database_error"] = err.Error()
		result.ErrorMessage = fmt.Sprintf("Database connection error: %v", err)
		logging.Logger.Errorf("Health check failed - database connection: %v", err)
	} else if err := sqlDB.Ping(); err != nil {
		result.Status = "unhealthy"
		result.Database = "unreachable"
		result.Details["database_ping_error"] = err.Error()
		result.ErrorMessage = fmt.Sprintf("Database ping failed: %v", err)
		logging.Logger.Errorf("Health check failed - database ping: %v", err)
	} else {
		result.Database = "ok"
		result.Details["database_type"] = cfg.DBType
		result.Details["database_name"] = cfg.DBDatabase
	}

	if !checkIdentityProvider {
		result.IdentityProvider = "skipped"
	} else if err := utils.PingIdentityProvider(cfg.JWKSURL); err != nil {
		result.Status = "unhealthy"
		result.IdentityProvider = "unreachable"
		result.Details["identity_provider_error"] = err.Error()
		if result.ErrorMessage == "" {
			result.ErrorMessage = fmt.Sprintf("Identity provider ping failed: %v", err)
		} else {
			result.ErrorMessage += fmt.Sprintf("; Identity provider ping failed: %v", err)
		}
		logging.Logger.Errorf("Health check failed - identity provider ping: %v", err)
	} else {
		result.IdentityProvider = "ok"
		result.Details["jwks_url"] = cfg.JWKSURL
	}

	if result.Status == "healthy" {
		logging.Logger.Debug("Health check passed - all systems operational")
	}

	return result
}
