package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse sends the standard error envelope
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, message, fiber.StatusNotFound, "not_found")
}

// UnauthorizedResponse sends a 401; the message is what clients inspect to
// tell expired, invalid and missing tokens apart.
func UnauthorizedResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, message, fiber.StatusUnauthorized, "auth")
}

// CreatedResponse sends a newly created entity
func CreatedResponse(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}

// DeletedResponse sends the body for a successful delete
func DeletedResponse(c *fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"detail":    detail,
		"ok":        true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Ok        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"`
}

// DeletedResponseStruct defines the schema for delete responses
type DeletedResponseStruct struct {
	Detail    string `json:"detail"`
	Ok        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
}
