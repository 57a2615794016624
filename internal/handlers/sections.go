package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pis-platform/pis/internal/middleware"
	"github.com/pis-platform/pis/internal/models"
	"github.com/pis-platform/pis/internal/services"
	"github.com/pis-platform/pis/internal/utils"
)

// SectionHandler serves one property section collection: suites, services,
// utilities or codes.
type SectionHandler[T models.Section] struct {
	Service *services.SectionService[T]
}

func (h *SectionHandler[T]) label() string {
	var zero T
	name := zero.EntityType()
	return strings.ToUpper(name[:1]) + name[1:]
}

// List handles GET /api/{section}?property_yardi=
// @Summary List section records
// @Description List suites, services, utilities or codes, optionally for one property
// @Tags Sections
// @Produce json
// @Param section path string true "suites, services, utilities or codes"
// @Param property_yardi query string false "Owning property"
// @Success 200 {array} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /{section} [get]
func (h *SectionHandler[T]) List(c *fiber.Ctx) error {
	yardi := c.Query("property_yardi", c.Query("property_id"))
	records, err := h.Service.List(c.UserContext(), yardi)
	if err != nil {
		return err
	}
	return c.JSON(records)
}

// Get handles GET /api/{section}/:id
// @Summary Get a section record
// @Tags Sections
// @Produce json
// @Param section path string true "suites, services, utilities or codes"
// @Param id path int true "Record id"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /{section}/{id} [get]
func (h *SectionHandler[T]) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	record, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

// Create handles POST /api/{section}
// @Summary Create a section record
// @Description The store assigns the id; any id in the body is ignored
// @Tags Sections
// @Accept json
// @Produce json
// @Param section path string true "suites, services, utilities or codes"
// @Param body body map[string]interface{} true "Record fields including property_yardi"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /{section} [post]
func (h *SectionHandler[T]) Create(c *fiber.Ctx) error {
	payload, err := parsePayload(c)
	if err != nil {
		return err
	}
	record, err := h.Service.Create(c.UserContext(), middleware.Editor(c), payload)
	if err != nil {
		return err
	}
	return utils.CreatedResponse(c, record)
}

// Update handles PUT /api/{section}/:id
// @Summary Update a section record
// @Tags Sections
// @Accept json
// @Produce json
// @Param section path string true "suites, services, utilities or codes"
// @Param id path int true "Record id"
// @Param body body map[string]interface{} true "Fields to write"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /{section}/{id} [put]
func (h *SectionHandler[T]) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	payload, err := parsePayload(c)
	if err != nil {
		return err
	}
	record, err := h.Service.Update(c.UserContext(), middleware.Editor(c), id, payload)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

// Delete handles DELETE /api/{section}/:id
// @Summary Delete a section record and its contacts
// @Tags Sections
// @Produce json
// @Param section path string true "suites, services, utilities or codes"
// @Param id path int true "Record id"
// @Success 200 {object} utils.DeletedResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /{section}/{id} [delete]
func (h *SectionHandler[T]) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Service.Delete(c.UserContext(), middleware.Editor(c), id); err != nil {
		return err
	}
	return utils.DeletedResponse(c, h.label()+" deleted")
}

// Mount registers the collection routes under path
func (h *SectionHandler[T]) Mount(router fiber.Router, path string) {
	router.Get(path, h.List)
	router.Post(path, h.Create)
	router.Get(path+"/:id", h.Get)
	router.Put(path+"/:id", h.Update)
	router.Delete(path+"/:id", h.Delete)
}
