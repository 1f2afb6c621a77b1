// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"time"

	uuid "github.com/gofrs/uuid"
)

// UploadURLRequest is the payload for requesting a presigned upload URL.
type UploadURLRequest struct {
	OwnerUserID        uuid.UUID `json:"ownerUserId"`
	Category           string    `json:"category"`
	CategoryInstanceID string    `json:"categoryInstanceId"`
	ContentType        string    `json:"contentType"`
	Size               int64     `json:"size"`
}

// UploadURLResponse carries the presigned upload URL and the object id the
// client must echo back in the follow-up process call.
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectID  string `json:"objectId"`
}

// ProcessUploadRequest is the payload notifying the server that a direct
// upload has completed. ThumbnailBase64 is only meaningful for video uploads,
// where the client renders the thumbnail itself.
type ProcessUploadRequest struct {
	OwnerUserID        uuid.UUID `json:"ownerUserId"`
	Category           string    `json:"category"`
	CategoryInstanceID string    `json:"categoryInstanceId"`
	ObjectID           string    `json:"objectId"`
	ThumbnailBase64    string    `json:"thumbnailBase64,omitempty"`
}

// MediaItem is a single entry in a media listing. ThumbnailURL is empty when
// no thumbnail exists for the object (e.g. a video uploaded without one).
type MediaItem struct {
	MediaID      string `json:"mediaId"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// MediaReview holds the raw free-text AI review for a processed session media
// object. The 1-5 rating, when present, is embedded in the text; no structured
// extraction is performed.
type MediaReview struct {
	ID          uuid.UUID `db:"id" json:"id"`
	OwnerUserID uuid.UUID `db:"owner_user_id" json:"ownerUserId"`
	SessionID   string    `db:"session_id" json:"sessionId"`
	MediaID     string    `db:"media_id" json:"mediaId"`
	Content     string    `db:"content" json:"content"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
