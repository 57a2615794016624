package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pis-platform/pis/internal/middleware"
	"github.com/pis-platform/pis/internal/services"
	"github.com/pis-platform/pis/internal/types"
	"github.com/pis-platform/pis/internal/utils"
)

// PropertyHandler handles property routes
type PropertyHandler struct {
	Service *services.PropertyService
}

// List handles GET /api/properties
// @Summary List properties
// @Description Page through properties with their suites, services, utilities, codes and contacts
// @Tags Properties
// @Produce json
// @Param page query int false "Page number, from 1"
// @Param per_page query int false "Page size"
// @Param search query string false "Match address, city, yardi or manager"
// @Param active query bool false "Only active (true) or sold (false) properties"
// @Success 200 {object} services.PropertyPage
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /properties [get]
func (h *PropertyHandler) List(c *fiber.Ctx) error {
	q := services.PropertyQuery{
		Page:    c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", 0),
		Search:  c.Query("search"),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return types.NewError(fiber.StatusBadRequest, "Invalid active '"+raw+"'", "validation")
		}
		q.Active = &active
	}

	page, err := h.Service.List(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// Get handles GET /api/properties/:yardi
// @Summary Get a property
// @Tags Properties
// @Produce json
// @Param yardi path string true "Property yardi code"
// @Success 200 {object} models.Property
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /properties/{yardi} [get]
func (h *PropertyHandler) Get(c *fiber.Ctx) error {
	p, err := h.Service.Get(c.UserContext(), c.Params("yardi"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// Create handles POST /api/properties
// @Summary Create a property
// @Tags Properties
// @Accept json
// @Produce json
// @Param body body models.Property true "Property"
// @Success 201 {object} models.Property
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /properties [post]
func (h *PropertyHandler) Create(c *fiber.Ctx) error {
	payload, err := parsePayload(c)
	if err != nil {
		return err
	}
	p, err := h.Service.Create(c.UserContext(), middleware.Editor(c), payload)
	if err != nil {
		return err
	}
	return utils.CreatedResponse(c, p)
}

// PropertyUpdateResponse is the body of a successful property update
type PropertyUpdateResponse struct {
	Message  string      `json:"message"`
	Property interface{} `json:"property"`
}

// Update handles PUT /api/properties/:yardi
// @Summary Update a property
// @Description The yardi is immutable; nested sections are ignored
// @Tags Properties
// @Accept json
// @Produce json
// @Param yardi path string true "Property yardi code"
// @Param body body models.Property true "Fields to write"
// @Success 200 {object} PropertyUpdateResponse
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /properties/{yardi} [put]
func (h *PropertyHandler) Update(c *fiber.Ctx) error {
	payload, err := parsePayload(c)
	if err != nil {
		return err
	}
	p, err := h.Service.Update(c.UserContext(), middleware.Editor(c), c.Params("yardi"), payload)
	if err != nil {
		return err
	}
	return c.JSON(PropertyUpdateResponse{Message: "Property updated successfully", Property: p})
}
