// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package media

import (
	"github.com/gofiber/fiber/v2"

	"github.com/peakform/peakform/internal/cache"
	"github.com/peakform/peakform/internal/middleware/authjwt"
	platformconfig "github.com/peakform/peakform/internal/platform/config"
	"github.com/peakform/peakform/internal/types"
	"github.com/peakform/peakform/media/handlers"
)

// MediaHandlers holds all the handlers this router needs.
type MediaHandlers struct {
	MediaHandler *handlers.MediaHandler
}

// RegisterRoutes is the single entry point for setting up media routes.
// sessions may be nil when the session allowlist is disabled.
func RegisterRoutes(app *fiber.App, h *MediaHandlers, cfg *platformconfig.Config, sessions *cache.SessionCache) {
	if h == nil || h.MediaHandler == nil {
		panic("MediaHandlers is required")
	}

	authMiddleware := authjwt.New(authjwt.Config{
		PublicKey:    cfg.JWT.PublicKey,
		ClaimKey:     "claim",
		UserCtxName:  types.UserCtxName,
		SessionCache: sessions,
	})

	mediaRoutes := app.Group("/media")
	userGroup := mediaRoutes.Group("", authMiddleware)

	// Issue a presigned upload URL (object id is generated server-side)
	userGroup.Post("/upload/init", h.MediaHandler.GetUploadURL)

	// Notify that a direct upload completed; derives/stores the thumbnail
	userGroup.Post("/upload/process", h.MediaHandler.ProcessUploadedMedia)

	// List primary objects with public thumbnail URLs
	userGroup.Get("/:ownerId/:category/:instanceId/files", h.MediaHandler.ListMedia)

	// Issue a presigned download URL
	userGroup.Get("/:ownerId/:category/:instanceId/files/:objectId/url", h.MediaHandler.GetDownloadURL)

	// AI reviews recorded for one media object
	userGroup.Get("/:ownerId/:category/:instanceId/files/:objectId/reviews", h.MediaHandler.GetMediaReviews)

	// Fetch raw primary bytes (server-side consumption)
	userGroup.Get("/:ownerId/:category/:instanceId/files/:objectId", h.MediaHandler.GetMedia)

	// Delete primary + thumbnail, clearing session back-references
	userGroup.Delete("/:ownerId/:category/:instanceId/files/:objectId", h.MediaHandler.DeleteMedia)
}
