// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	uuid "github.com/gofrs/uuid"

	"github.com/peakform/peakform/internal/pkg/log"
	platformconfig "github.com/peakform/peakform/internal/platform/config"
	"github.com/peakform/peakform/internal/types"
	"github.com/peakform/peakform/media/keys"
	"github.com/peakform/peakform/media/models"
	"github.com/peakform/peakform/media/provider"
	"github.com/peakform/peakform/media/repository"
)

const (
	// maxObjectsPerWindow caps raw object count per (owner, category, instance)
	// prefix: 3 primaries x 2, since each primary may carry a thumbnail. The
	// count is over raw keys, so a primary without a thumbnail yet counts once.
	maxObjectsPerWindow = 6
)

var (
	ErrPermissionDenied = fmt.Errorf("permission denied")
	ErrQuotaExceeded    = fmt.Errorf("quota exceeded")
	ErrObjectNotFound   = fmt.Errorf("media object not found")
	ErrStorage          = fmt.Errorf("storage backend failure")
	ErrUpstream         = fmt.Errorf("upstream collaborator failure")
	ErrFileTooLarge     = fmt.Errorf("file too large: max size exceeded")
	ErrInvalidMimeType  = fmt.Errorf("invalid MIME type: file type not allowed")
)

type service struct {
	provider provider.BlobProvider
	repo     repository.Repository
	roles    repository.RoleResolver
	reviews  ReviewDispatcher
	config   *platformconfig.StorageConfig
}

// NewMediaService creates a new media pipeline service. reviews may be nil
// when AI review is disabled.
func NewMediaService(blobProvider provider.BlobProvider, repo repository.Repository, roles repository.RoleResolver, reviews ReviewDispatcher, config *platformconfig.StorageConfig) MediaService {
	return &service{
		provider: blobProvider,
		repo:     repo,
		roles:    roles,
		reviews:  reviews,
		config:   config,
	}
}

// authorize allows the owner themselves, or any caller whose role resolves to
// trainer. The role is re-resolved on every call; nothing is cached.
func (s *service) authorize(ctx context.Context, callerID, ownerID uuid.UUID) error {
	if callerID == ownerID {
		return nil
	}
	role, err := s.roles.RoleOf(ctx, callerID)
	if err != nil {
		return fmt.Errorf("%w: role lookup: %v", ErrUpstream, err)
	}
	if role == types.TrainerRole {
		return nil
	}
	return fmt.Errorf("%w: caller %s may not access media of %s", ErrPermissionDenied, callerID, ownerID)
}

// checkQuota lists the quota window and rejects once the raw object count
// reaches the ceiling. Check-then-act without a lock: two near-simultaneous
// issuance calls can both pass, so this is a soft limit.
func (s *service) checkQuota(ctx context.Context, ownerID uuid.UUID, category, instanceID string) error {
	prefix, err := keys.InstancePrefix(ownerID.String(), category, instanceID)
	if err != nil {
		return err
	}
	listed, err := s.provider.ListKeys(ctx, prefix)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if len(listed) >= maxObjectsPerWindow {
		return fmt.Errorf("%w: %d objects under %s", ErrQuotaExceeded, len(listed), prefix)
	}
	return nil
}

func (s *service) isMimeTypeAllowed(mimeType string) bool {
	if len(s.config.AllowedMimeTypes) == 0 {
		return true
	}
	for _, allowed := range s.config.AllowedMimeTypes {
		if strings.EqualFold(mimeType, allowed) {
			return true
		}
	}
	return false
}

// IssueUploadURL authorizes, enforces quota, then mints a write-scoped
// presigned URL pinned to content type and size. No object-store write happens
// here; the client uploads directly with the returned URL.
func (s *service) IssueUploadURL(ctx context.Context, callerID uuid.UUID, req *models.UploadURLRequest) (*models.UploadURLResponse, error) {
	if !keys.ValidCategory(req.Category) {
		return nil, fmt.Errorf("%w: %q", keys.ErrInvalidCategory, req.Category)
	}

	maxSize := int64(s.config.MaxUploadSizeMB) * 1024 * 1024
	if req.Size <= 0 || req.Size > maxSize {
		return nil, fmt.Errorf("%w: max %d MB", ErrFileTooLarge, s.config.MaxUploadSizeMB)
	}
	if !s.isMimeTypeAllowed(req.ContentType) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMimeType, req.ContentType)
	}

	if err := s.authorize(ctx, callerID, req.OwnerUserID); err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, req.OwnerUserID, req.Category, req.CategoryInstanceID); err != nil {
		return nil, err
	}

	objectID := uuid.Must(uuid.NewV4()).String()
	if req.Category == keys.CategoryProfilePicture {
		objectID = keys.ProfileObjectID
	}

	key, err := keys.MakeKey(req.OwnerUserID.String(), req.Category, req.CategoryInstanceID, objectID, false)
	if err != nil {
		return nil, err
	}

	uploadURL, err := s.provider.GeneratePresignedUploadURL(ctx, key, req.ContentType, req.Size, s.config.UploadURLTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return &models.UploadURLResponse{
		UploadURL: uploadURL,
		ObjectID:  objectID,
	}, nil
}

// IssueDownloadURL authorizes and mints a read-scoped presigned URL, valid
// long enough to begin a fetch and short enough to discourage URL sharing.
func (s *service) IssueDownloadURL(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID, objectID string, thumbnail bool) (string, error) {
	if err := s.authorize(ctx, callerID, ownerID); err != nil {
		return "", err
	}

	key, err := keys.MakeKey(ownerID.String(), category, instanceID, objectID, thumbnail)
	if err != nil {
		return "", err
	}

	url, err := s.provider.GeneratePresignedDownloadURL(ctx, key, s.config.DownloadURLTTL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return url, nil
}

// ProcessUpload downloads the just-uploaded object, branches on its stored
// content type, persists a thumbnail where one is derived or supplied, and
// for session media records the back-reference and fires review dispatch.
func (s *service) ProcessUpload(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID, objectID string, clientThumbnail []byte) error {
	if err := s.authorize(ctx, callerID, ownerID); err != nil {
		return err
	}

	key, err := keys.MakeKey(ownerID.String(), category, instanceID, objectID, false)
	if err != nil {
		return err
	}

	data, contentType, err := s.provider.Download(ctx, key)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	thumbKey, err := keys.MakeKey(ownerID.String(), category, instanceID, objectID, true)
	if err != nil {
		return err
	}

	isImage := strings.HasPrefix(contentType, "image/")
	switch {
	case isImage:
		thumb, err := makeThumbnail(data)
		if err != nil {
			return fmt.Errorf("failed to derive thumbnail for %s: %w", key, err)
		}
		if err := s.provider.Upload(ctx, thumbKey, thumbnailContentType, thumb); err != nil {
			return fmt.Errorf("%w: thumbnail write: %v", ErrStorage, err)
		}
	case strings.HasPrefix(contentType, "video/"):
		// No server-side frame extraction; accept a client-rendered thumbnail
		// when supplied, otherwise the object simply has none.
		if len(clientThumbnail) > 0 {
			if err := s.provider.Upload(ctx, thumbKey, thumbnailContentType, clientThumbnail); err != nil {
				return fmt.Errorf("%w: thumbnail write: %v", ErrStorage, err)
			}
		}
	}

	if category == keys.CategorySession {
		if err := s.repo.SetSessionMediaRef(ctx, ownerID, instanceID, objectID); err != nil {
			return fmt.Errorf("%w: %v", ErrUpstream, err)
		}

		// Fire-and-forget: review dispatch must never fail processing. The
		// goroutine gets a fresh context so the request's cancellation does
		// not abort an in-flight model call.
		if s.reviews != nil && isImage {
			go func() {
				if err := s.reviews.Dispatch(context.Background(), ownerID, instanceID, objectID, data, contentType); err != nil {
					log.Error("review dispatch failed for media %s (session %s): %v", objectID, instanceID, err)
				}
			}()
		}
	}

	return nil
}

// ListMedia lists every primary object under the quota window and pairs it
// with its public thumbnail URL. Thumbnails are public by design so list
// views render without per-item signed-URL round-trips.
func (s *service) ListMedia(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID string) ([]models.MediaItem, error) {
	if err := s.authorize(ctx, callerID, ownerID); err != nil {
		return nil, err
	}

	prefix, err := keys.InstancePrefix(ownerID.String(), category, instanceID)
	if err != nil {
		return nil, err
	}

	listed, err := s.provider.ListKeys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	present := make(map[string]bool, len(listed))
	for _, key := range listed {
		present[key] = true
	}

	items := make([]models.MediaItem, 0, len(listed))
	for _, key := range listed {
		if keys.IsThumbnail(key) {
			continue
		}
		item := models.MediaItem{MediaID: keys.ObjectIDFromKey(key)}
		if present[key+keys.ThumbnailSuffix] {
			item.ThumbnailURL = s.provider.PublicURL(key + keys.ThumbnailSuffix)
		}
		items = append(items, item)
	}

	return items, nil
}

// FetchMedia downloads and returns the primary object bytes.
func (s *service) FetchMedia(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID, objectID string) ([]byte, string, error) {
	if err := s.authorize(ctx, callerID, ownerID); err != nil {
		return nil, "", err
	}

	key, err := keys.MakeKey(ownerID.String(), category, instanceID, objectID, false)
	if err != nil {
		return nil, "", err
	}

	data, contentType, err := s.provider.Download(ctx, key)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return data, contentType, nil
}

// ListReviews returns the recorded AI reviews for one media object. The key
// is validated the same way as every other operation even though the rows
// live in Postgres, so malformed ids fail uniformly.
func (s *service) ListReviews(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID, objectID string) ([]*models.MediaReview, error) {
	if err := s.authorize(ctx, callerID, ownerID); err != nil {
		return nil, err
	}

	if _, err := keys.MakeKey(ownerID.String(), category, instanceID, objectID, false); err != nil {
		return nil, err
	}

	reviews, err := s.repo.FindReviewsByMedia(ctx, ownerID, instanceID, objectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return reviews, nil
}

// DeleteMedia sweeps the object's key prefix (primary + thumbnail share it,
// distinguished only by suffix) and clears the session back-reference.
func (s *service) DeleteMedia(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID, objectID string) error {
	if err := s.authorize(ctx, callerID, ownerID); err != nil {
		return err
	}

	objectPrefix, err := keys.ObjectPrefix(ownerID.String(), category, instanceID, objectID)
	if err != nil {
		return err
	}

	deleted, err := s.provider.DeletePrefix(ctx, objectPrefix)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, objectPrefix)
	}

	if category == keys.CategorySession {
		if err := s.repo.ClearSessionMediaRef(ctx, ownerID, instanceID, objectID); err != nil {
			return fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	}

	return nil
}
