package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pis-platform/pis/internal/config"
	"github.com/pis-platform/pis/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports service health
type HealthHandler struct {
	Config *config.Config
	DB     *gorm.DB
}

// Check handles GET /health
// @Summary Health check
// @Description Pass deep=true to also probe the identity provider
// @Tags Health
// @Produce json
// @Param deep query bool false "Probe the identity provider"
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	result := services.HealthCheck(h.Config, h.DB, c.QueryBool("deep", false))
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
