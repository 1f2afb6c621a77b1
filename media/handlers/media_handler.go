// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"

	"github.com/peakform/peakform/internal/types"
	mediaErrors "github.com/peakform/peakform/media/errors"
	"github.com/peakform/peakform/media/models"
	"github.com/peakform/peakform/media/services"
)

// MediaHandler handles all media pipeline HTTP requests
type MediaHandler struct {
	mediaService services.MediaService
}

// NewMediaHandler creates a new MediaHandler with injected dependencies
func NewMediaHandler(mediaService services.MediaService) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
	}
}

func userFromCtx(c *fiber.Ctx) (types.UserContext, bool) {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	return user, ok
}

// pathScope extracts the (owner, category, instance) triple from the URL.
func pathScope(c *fiber.Ctx) (uuid.UUID, string, string, error) {
	ownerID, err := uuid.FromString(c.Params("ownerId"))
	if err != nil {
		return uuid.Nil, "", "", err
	}
	return ownerID, c.Params("category"), c.Params("instanceId"), nil
}

// GetUploadURL handles upload-URL issuance
// POST /media/upload/init
func (h *MediaHandler) GetUploadURL(c *fiber.Ctx) error {
	var req models.UploadURLRequest
	if err := c.BodyParser(&req); err != nil {
		return mediaErrors.HandleInvalidRequestError(c, "Invalid request body")
	}

	user, ok := userFromCtx(c)
	if !ok {
		return mediaErrors.HandleUserContextError(c, "Invalid user context")
	}

	result, err := h.mediaService.IssueUploadURL(c.Context(), user.UserID, &req)
	if err != nil {
		return mediaErrors.HandleServiceError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(result)
}

// ProcessUploadedMedia handles the post-upload notification
// POST /media/upload/process
func (h *MediaHandler) ProcessUploadedMedia(c *fiber.Ctx) error {
	var req models.ProcessUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return mediaErrors.HandleInvalidRequestError(c, "Invalid request body")
	}

	user, ok := userFromCtx(c)
	if !ok {
		return mediaErrors.HandleUserContextError(c, "Invalid user context")
	}

	var clientThumbnail []byte
	if req.ThumbnailBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ThumbnailBase64)
		if err != nil {
			return mediaErrors.HandleInvalidRequestError(c, "Invalid thumbnail encoding")
		}
		clientThumbnail = decoded
	}

	err := h.mediaService.ProcessUpload(c.Context(), user.UserID, req.OwnerUserID, req.Category, req.CategoryInstanceID, req.ObjectID, clientThumbnail)
	if err != nil {
		return mediaErrors.HandleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Media processed successfully"})
}

// GetDownloadURL handles download-URL issuance
// GET /media/:ownerId/:category/:instanceId/files/:objectId/url
func (h *MediaHandler) GetDownloadURL(c *fiber.Ctx) error {
	ownerID, category, instanceID, err := pathScope(c)
	if err != nil {
		return mediaErrors.HandleInvalidRequestError(c, "Invalid owner ID")
	}

	user, ok := userFromCtx(c)
	if !ok {
		return mediaErrors.HandleUserContextError(c, "Invalid user context")
	}

	thumbnail := c.QueryBool("thumbnail")

	url, err := h.mediaService.IssueDownloadURL(c.Context(), user.UserID, ownerID, category, instanceID, c.Params("objectId"), thumbnail)
	if err != nil {
		return mediaErrors.HandleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"url": url,
	})
}

// ListMedia handles media listing for one quota window
// GET /media/:ownerId/:category/:instanceId/files
func (h *MediaHandler) ListMedia(c *fiber.Ctx) error {
	ownerID, category, instanceID, err := pathScope(c)
	if err != nil {
		return mediaErrors.HandleInvalidRequestError(c, "Invalid owner ID")
	}

	user, ok := userFromCtx(c)
	if !ok {
		return mediaErrors.HandleUserContextError(c, "Invalid user context")
	}

	items, err := h.mediaService.ListMedia(c.Context(), user.UserID, ownerID, category, instanceID)
	if err != nil {
		return mediaErrors.HandleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"items": items,
	})
}

// GetMedia returns the raw primary object bytes
// GET /media/:ownerId/:category/:instanceId/files/:objectId
func (h *MediaHandler) GetMedia(c *fiber.Ctx) error {
	ownerID, category, instanceID, err := pathScope(c)
	if err != nil {
		return mediaErrors.HandleInvalidRequestError(c, "Invalid owner ID")
	}

	user, ok := userFromCtx(c)
	if !ok {
		return mediaErrors.HandleUserContextError(c, "Invalid user context")
	}

	data, contentType, err := h.mediaService.FetchMedia(c.Context(), user.UserID, ownerID, category, instanceID, c.Params("objectId"))
	if err != nil {
		return mediaErrors.HandleServiceError(c, err)
	}

	c.Set(types.HeaderContentType, contentType)
	return c.Send(data)
}

// GetMediaReviews returns the AI reviews recorded for one media object
// GET /media/:ownerId/:category/:instanceId/files/:objectId/reviews
func (h *MediaHandler) GetMediaReviews(c *fiber.Ctx) error {
	ownerID, category, instanceID, err := pathScope(c)
	if err != nil {
		return mediaErrors.HandleInvalidRequestError(c, "Invalid owner ID")
	}

	user, ok := userFromCtx(c)
	if !ok {
		return mediaErrors.HandleUserContextError(c, "Invalid user context")
	}

	reviews, err := h.mediaService.ListReviews(c.Context(), user.UserID, ownerID, category, instanceID, c.Params("objectId"))
	if err != nil {
		return mediaErrors.HandleServiceError(c, err)
	}
	if reviews == nil {
		reviews = []*models.MediaReview{}
	}

	return c.JSON(fiber.Map{
		"reviews": reviews,
	})
}

// DeleteMedia handles media deletion
// DELETE /media/:ownerId/:category/:instanceId/files/:objectId
func (h *MediaHandler) DeleteMedia(c *fiber.Ctx) error {
	ownerID, category, instanceID, err := pathScope(c)
	if err != nil {
		return mediaErrors.HandleInvalidRequestError(c, "Invalid owner ID")
	}

	user, ok := userFromCtx(c)
	if !ok {
		return mediaErrors.HandleUserContextError(c, "Invalid user context")
	}

	if err := h.mediaService.DeleteMedia(c.Context(), user.UserID, ownerID, category, instanceID, c.Params("objectId")); err != nil {
		return mediaErrors.HandleServiceError(c, err)
	}

	return c.SendStatus(http.StatusNoContent)
}
