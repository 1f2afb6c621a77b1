// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package errors

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/peakform/peakform/media/keys"
	"github.com/peakform/peakform/media/services"
)

// HandleInvalidRequestError handles invalid request errors
func HandleInvalidRequestError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{
		"error":   "INVALID_REQUEST",
		"message": message,
	})
}

// HandleUserContextError handles user context errors
func HandleUserContextError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
		"error":   "UNAUTHENTICATED",
		"message": message,
	})
}

// HandleServiceError maps pipeline error kinds to HTTP responses. The kind is
// preserved in the error code; the message carries the detail.
func HandleServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrPermissionDenied):
		return c.Status(http.StatusForbidden).JSON(fiber.Map{
			"error":   "PERMISSION_DENIED",
			"message": err.Error(),
		})
	case errors.Is(err, keys.ErrInvalidCategory):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":   "INVALID_CATEGORY",
			"message": err.Error(),
		})
	case errors.Is(err, keys.ErrInvalidKeyPart):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":   "INVALID_MEDIA_ID",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrQuotaExceeded):
		return c.Status(http.StatusForbidden).JSON(fiber.Map{
			"error":   "QUOTA_EXCEEDED",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrObjectNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"error":   "OBJECT_NOT_FOUND",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrFileTooLarge):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":   "FILE_TOO_LARGE",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrInvalidMimeType):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":   "INVALID_MIME_TYPE",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrUpstream):
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{
			"error":   "UPSTREAM_ERROR",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrStorage):
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error":   "STORAGE_ERROR",
			"message": err.Error(),
		})
	}

	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"error":   "INTERNAL_ERROR",
		"message": err.Error(),
	})
}
