// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"

	uuid "github.com/gofrs/uuid"

	"github.com/peakform/peakform/media/models"
)

// Repository defines the relational-store operations the media pipeline needs.
// The pipeline holds no durable state of its own; these rows live alongside
// the session/participant tables owned by the coaching screens.
type Repository interface {
	// CreateReview inserts a new AI review row. Re-dispatch for the same media
	// id inserts an additional row; no uniqueness is enforced.
	CreateReview(ctx context.Context, review *models.MediaReview) error

	// FindReviewsByMedia retrieves all review rows for one media object,
	// newest first.
	FindReviewsByMedia(ctx context.Context, ownerUserID uuid.UUID, sessionID, mediaID string) ([]*models.MediaReview, error)

	// SetSessionMediaRef records the media back-reference on the session
	// participant row once processing succeeds.
	SetSessionMediaRef(ctx context.Context, ownerUserID uuid.UUID, sessionID, mediaID string) error

	// ClearSessionMediaRef clears the back-reference when the media object is
	// deleted. Clearing a reference that was never set is a no-op.
	ClearSessionMediaRef(ctx context.Context, ownerUserID uuid.UUID, sessionID, mediaID string) error
}

// RoleResolver resolves a caller's system role fresh on every call; staleness
// is traded away for an extra query.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID uuid.UUID) (string, error)
}
