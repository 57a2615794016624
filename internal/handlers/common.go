// common.go
//
// PIS Platform record store
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of jam-build-propsdb.
// jam-build-propsdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// jam-build-propsdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with jam-build-propsdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/services"
	"github.com/pis-platform/pis/internal/types"
	"github.com/pis-platform/pis/internal/utils"
)

// ErrorHandler renders every error as the standard JSON envelope.
// Service sentinel errors map to 404, 409 and 400.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	var customErr *types.CustomError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &customErr):
		code = customErr.Code
		message = customErr.Message
		errorType = customErr.Type
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		message = fiberErr.Message
		errorType = "http"
	case errors.Is(err, services.ErrNotFound):
		code = fiber.StatusNotFound
		errorType = "not_found"
	case errors.Is(err, services.ErrConflict):
		code = fiber.StatusConflict
		errorType = "conflict"
	case errors.Is(err, services.ErrInvalid):
		code = fiber.StatusBadRequest
		errorType = "validation"
	}

	if code >= fiber.StatusInternalServerError {
		logging.Logger.Errorf("%s %s failed: %v", c.Method(), c.OriginalURL(), err)
	}

	return utils.ErrorResponse(c, message, code, errorType)
}

// parseID reads a numeric path parameter
func parseID(c *fiber.Ctx, name string) (uint64, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, types.NewError(fiber.StatusBadRequest, "Invalid "+name+" '"+raw+"'", "validation")
	}
	return id, nil
}

// parsePayload decodes a JSON object body
func parsePayload(c *fiber.Ctx) (map[string]any, error) {
	payload := make(map[string]any)
	if err := c.BodyParser(&payload); err != nil {
		return nil, types.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error(), "validation")
	}
	return payload, nil
}

// queryUint reads an optional numeric query parameter
func queryUint(c *fiber.Ctx, name string) (uint64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, types.NewError(fiber.StatusBadRequest, "Invalid "+name+" '"+raw+"'", "validation")
	}
	return v, nil
}
