package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pis-platform/pis/internal/models"
	"github.com/pis-platform/pis/internal/services"
	"gorm.io/gorm"
)

// EditHistoryHandler serves the audit log
type EditHistoryHandler struct {
	DB *gorm.DB
}

// EditHistoryResponse wraps the audit entries
type EditHistoryResponse struct {
	EditHistory []models.EditHistory `json:"edit_history"`
}

// List handles GET /api/edit-history
// @Summary List edit history
// @Description Newest first; clients paginate locally
// @Tags EditHistory
// @Produce json
// @Param limit query int false "Maximum entries"
// @Success 200 {object} EditHistoryResponse
// @Security BearerAuth
// @Router /edit-history [get]
func (h *EditHistoryHandler) List(c *fiber.Ctx) error {
	entries, err := services.ListEditHistory(c.UserContext(), h.DB, c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(EditHistoryResponse{EditHistory: entries})
}
