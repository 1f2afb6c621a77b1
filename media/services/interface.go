// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"

	uuid "github.com/gofrs/uuid"

	"github.com/peakform/peakform/media/models"
)

// MediaService defines the operations of the media upload pipeline.
type MediaService interface {
	// IssueUploadURL authorizes the caller, enforces the per-window quota and
	// mints a short-lived presigned PUT URL plus the new object id.
	IssueUploadURL(ctx context.Context, callerID uuid.UUID, req *models.UploadURLRequest) (*models.UploadURLResponse, error)

	// IssueDownloadURL authorizes the caller and mints a presigned GET URL.
	IssueDownloadURL(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID, objectID string, thumbnail bool) (string, error)

	// ProcessUpload pulls the just-uploaded object back down, derives or
	// accepts a thumbnail, persists it, and for session media records the
	// participant back-reference and fires an AI review dispatch.
	ProcessUpload(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID, objectID string, clientThumbnail []byte) error

	// ListMedia returns all primary objects under a quota window together with
	// their public thumbnail URLs where thumbnails exist.
	ListMedia(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID string) ([]models.MediaItem, error)

	// FetchMedia downloads and returns the primary object bytes and content
	// type for server-side consumption.
	FetchMedia(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID, objectID string) ([]byte, string, error)

	// DeleteMedia removes the primary object and its thumbnail in one sweep
	// and clears the session back-reference for session media.
	DeleteMedia(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID, objectID string) error

	// ListReviews returns the AI reviews recorded for one media object,
	// newest first. Only session media ever has reviews.
	ListReviews(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID, objectID string) ([]*models.MediaReview, error)
}

// ReviewDispatcher forwards session images to the AI review pipeline.
// Implemented by the review package; faked in tests.
type ReviewDispatcher interface {
	Dispatch(ctx context.Context, ownerUserID uuid.UUID, sessionID, mediaID string, imageBytes []byte, contentType string) error
}
