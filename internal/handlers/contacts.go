package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pis-platform/pis/internal/middleware"
	"github.com/pis-platform/pis/internal/services"
	"github.com/pis-platform/pis/internal/utils"
)

// ContactHandler handles contact routes
type ContactHandler struct {
	Service *services.ContactService
}

// List handles GET /api/contacts
// @Summary List contacts
// @Description Filter by property_yardi or by one parent id
// @Tags Contacts
// @Produce json
// @Param property_yardi query string false "Owning property"
// @Param suite_id query int false "Parent suite"
// @Param service_id query int false "Parent service"
// @Param utility_id query int false "Parent utility"
// @Success 200 {array} models.Contact
// @Security BearerAuth
// @Router /contacts [get]
func (h *ContactHandler) List(c *fiber.Ctx) error {
	q := services.ContactQuery{PropertyYardi: c.Query("property_yardi")}
	var err error
	if q.SuiteID, err = queryUint(c, "suite_id"); err != nil {
		return err
	}
	if q.ServiceID, err = queryUint(c, "service_id"); err != nil {
		return err
	}
	if q.UtilityID, err = queryUint(c, "utility_id"); err != nil {
		return err
	}

	contacts, err := h.Service.List(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(contacts)
}

// Get handles GET /api/contacts/:id
// @Summary Get a contact
// @Tags Contacts
// @Produce json
// @Param id path int true "Contact id"
// @Success 200 {object} models.Contact
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /contacts/{id} [get]
func (h *ContactHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	contact, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(contact)
}

// Create handles POST /api/contacts
// @Summary Create a contact
// @Description Exactly one of suite_id, service_id or utility_id must be set
// @Tags Contacts
// @Accept json
// @Produce json
// @Param body body models.Contact true "Contact"
// @Success 201 {object} models.Contact
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /contacts [post]
func (h *ContactHandler) Create(c *fiber.Ctx) error {
	payload, err := parsePayload(c)
	if err != nil {
		return err
	}
	contact, err := h.Service.Create(c.UserContext(), middleware.Editor(c), payload)
	if err != nil {
		return err
	}
	return utils.CreatedResponse(c, contact)
}

// Update handles PUT /api/contacts/:id
// @Summary Update a contact
// @Tags Contacts
// @Accept json
// @Produce json
// @Param id path int true "Contact id"
// @Param body body models.Contact true "Contact"
// @Success 200 {object} models.Contact
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /contacts/{id} [put]
func (h *ContactHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	payload, err := parsePayload(c)
	if err != nil {
		return err
	}
	contact, err := h.Service.Update(c.UserContext(), middleware.Editor(c), id, payload)
	if err != nil {
		return err
	}
	return c.JSON(contact)
}

// Delete handles DELETE /api/contacts/:id
// @Summary Delete a contact
// @Tags Contacts
// @Produce json
// @Param id path int true "Contact id"
// @Success 200 {object} utils.DeletedResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /contacts/{id} [delete]
func (h *ContactHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Service.Delete(c.UserContext(), middleware.Editor(c), id); err != nil {
		return err
	}
	return utils.DeletedResponse(c, "Contact deleted")
}
