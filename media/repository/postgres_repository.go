// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/peakform/peakform/internal/database/postgres"
	"github.com/peakform/peakform/internal/types"
	"github.com/peakform/peakform/media/models"
)

type postgresRepository struct {
	client *postgres.Client
	schema string
}

// NewPostgresRepository creates a repository using the default schema.
func NewPostgresRepository(client *postgres.Client) Repository {
	return &postgresRepository{client: client, schema: ""}
}

// NewPostgresRepositoryWithSchema creates a repository using a specific schema.
func NewPostgresRepositoryWithSchema(client *postgres.Client, schema string) Repository {
	return &postgresRepository{client: client, schema: schema}
}

func (r *postgresRepository) getExecutor(ctx context.Context) sqlx.ExtContext {
	if txVal := ctx.Value("tx"); txVal != nil {
		if tx, ok := txVal.(*sqlx.Tx); ok {
			return tx
		}
	}
	return r.client.DB()
}

func (r *postgresRepository) prefixSchema(query string) string {
	if r.schema != "" {
		return fmt.Sprintf(query, r.schema+".")
	}
	return fmt.Sprintf(query, "")
}

// CreateReview inserts a new AI review row
func (r *postgresRepository) CreateReview(ctx context.Context, review *models.MediaReview) error {
	query := `
		INSERT INTO %smedia_reviews (id, owner_user_id, session_id, media_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if review.ID.IsNil() {
		review.ID = uuid.Must(uuid.NewV4())
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}

	exec := r.getExecutor(ctx)
	sqlStr := r.prefixSchema(query)
	_, err := exec.ExecContext(ctx, sqlStr,
		review.ID, review.OwnerUserID, review.SessionID, review.MediaID, review.Content, review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create media review: %w", err)
	}
	return nil
}

// FindReviewsByMedia retrieves all review rows for one media object
func (r *postgresRepository) FindReviewsByMedia(ctx context.Context, ownerUserID uuid.UUID, sessionID, mediaID string) ([]*models.MediaReview, error) {
	query := `
		SELECT id, owner_user_id, session_id, media_id, content, created_at
		FROM %smedia_reviews
		WHERE owner_user_id = $1 AND session_id = $2 AND media_id = $3
		ORDER BY created_at DESC
	`

	sqlStr := r.prefixSchema(query)
	var reviews []*models.MediaReview
	err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &reviews, sqlStr, ownerUserID, sessionID, mediaID)
	if err != nil {
		return nil, fmt.Errorf("failed to find media reviews: %w", err)
	}
	return reviews, nil
}

// SetSessionMediaRef records the media back-reference on the participant row
func (r *postgresRepository) SetSessionMediaRef(ctx context.Context, ownerUserID uuid.UUID, sessionID, mediaID string) error {
	query := `
		UPDATE %ssession_participants
		SET media_id = $1, updated_at = $2
		WHERE user_id = $3 AND session_id = $4
	`

	exec := r.getExecutor(ctx)
	sqlStr := r.prefixSchema(query)
	_, err := exec.ExecContext(ctx, sqlStr, mediaID, time.Now().UTC(), ownerUserID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to set session media reference: %w", err)
	}
	return nil
}

// ClearSessionMediaRef clears the back-reference for a deleted media object.
// The media_id guard keeps a concurrent re-upload's reference intact.
func (r *postgresRepository) ClearSessionMediaRef(ctx context.Context, ownerUserID uuid.UUID, sessionID, mediaID string) error {
	query := `
		UPDATE %ssession_participants
		SET media_id = NULL, updated_at = $1
		WHERE user_id = $2 AND session_id = $3 AND media_id = $4
	`

	exec := r.getExecutor(ctx)
	sqlStr := r.prefixSchema(query)
	_, err := exec.ExecContext(ctx, sqlStr, time.Now().UTC(), ownerUserID, sessionID, mediaID)
	if err != nil {
		return fmt.Errorf("failed to clear session media reference: %w", err)
	}
	return nil
}

type postgresRoleResolver struct {
	client *postgres.Client
	schema string
}

// NewPostgresRoleResolver creates a RoleResolver over the users table.
func NewPostgresRoleResolver(client *postgres.Client) RoleResolver {
	return &postgresRoleResolver{client: client}
}

// NewPostgresRoleResolverWithSchema creates a RoleResolver using a specific schema.
func NewPostgresRoleResolverWithSchema(client *postgres.Client, schema string) RoleResolver {
	return &postgresRoleResolver{client: client, schema: schema}
}

// RoleOf returns the user's system role. Unknown users resolve to the member
// role, which grants nothing beyond their own namespace.
func (r *postgresRoleResolver) RoleOf(ctx context.Context, userID uuid.UUID) (string, error) {
	query := `SELECT role FROM %susers WHERE id = $1`
	if r.schema != "" {
		query = fmt.Sprintf(query, r.schema+".")
	} else {
		query = fmt.Sprintf(query, "")
	}

	var role string
	err := r.client.DB().QueryRowxContext(ctx, query, userID).Scan(&role)
	if err != nil {
		if err == sql.ErrNoRows {
			return types.MemberRole, nil
		}
		return "", fmt.Errorf("failed to resolve role for user %s: %w", userID, err)
	}
	return role, nil
}
