package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/pis-platform/pis/internal/blob"
	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/middleware"
	"github.com/pis-platform/pis/internal/services"
	"github.com/pis-platform/pis/internal/types"
	"github.com/pis-platform/pis/internal/utils"
	"gorm.io/gorm"
)

// PhotoHandler handles property photo routes
type PhotoHandler struct {
	DB             *gorm.DB
	Store          blob.Store
	MaxUploadBytes int64
}

// UploadResponse carries the URL of a stored upload
type UploadResponse struct {
	URL string `json:"url"`
}

// Upload handles POST /api/property-photos/upload
// @Summary Upload a photo file
// @Tags Photos
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Success 200 {object} UploadResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 413 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /property-photos/upload [post]
func (h *PhotoHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return types.NewError(fiber.StatusBadRequest, "Multipart field 'file' is required", "validation")
	}
	if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
		return types.NewError(fiber.StatusRequestEntityTooLarge, "File exceeds the upload limit", "validation")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	url, err := h.Store.Put(c.UserContext(), blob.PhotoKey(fh.Filename), f, fh.Header.Get(fiber.HeaderContentType))
	if err != nil {
		return err
	}
	logging.Logger.Infof("Stored upload %q at %s (%d bytes)", fh.Filename, url, fh.Size)

	return c.JSON(UploadResponse{URL: url})
}

// Create handles POST /api/property-photos
// @Summary Record a photo for a property
// @Tags Photos
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param body body services.PhotoInput true "Photo metadata"
// @Success 201 {object} models.PropertyPhoto
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /property-photos [post]
func (h *PhotoHandler) Create(c *fiber.Ctx) error {
	var in services.PhotoInput
	if err := c.BodyParser(&in); err != nil {
		return types.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error(), "validation")
	}
	photo, err := services.CreatePhoto(c.UserContext(), h.DB, middleware.Editor(c), in)
	if err != nil {
		return err
	}
	return utils.CreatedResponse(c, photo)
}

// List handles GET /api/property-photos/:yardi
// @Summary List a property's photos
// @Tags Photos
// @Produce json
// @Param yardi path string true "Property yardi code"
// @Success 200 {array} models.PropertyPhoto
// @Security BearerAuth
// @Router /property-photos/{yardi} [get]
func (h *PhotoHandler) List(c *fiber.Ctx) error {
	photos, err := services.ListPhotos(c.UserContext(), h.DB, c.Params("yardi"))
	if err != nil {
		return err
	}
	return c.JSON(photos)
}

// Delete handles DELETE /api/property-photos/:id
// @Summary Delete a photo and its stored file
// @Tags Photos
// @Produce json
// @Param id path int true "Photo id"
// @Success 200 {object} utils.DeletedResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /property-photos/{id} [delete]
func (h *PhotoHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	photo, err := services.DeletePhoto(c.UserContext(), h.DB, middleware.Editor(c), id)
	if err != nil {
		return err
	}

	if key, ok := h.Store.KeyFromURL(photo.PhotoURL); ok {
		if err := h.Store.Delete(c.UserContext(), key); err != nil && !errors.Is(err, blob.ErrNotFound) {
			logging.Logger.Warnf("Photo %d removed but its file %s was not: %v", id, key, err)
		}
	}

	return utils.DeletedResponse(c, "Photo deleted")
}
