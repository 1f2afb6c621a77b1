// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"context"
	"fmt"
	"time"
)

// ErrNotFound is returned when the requested key does not exist in the store.
var ErrNotFound = fmt.Errorf("object not found")

// BlobProvider defines the interface for blob storage providers.
// This interface is provider-agnostic, allowing easy switching between
// Cloudflare R2, AWS S3, Google Cloud Storage, etc.
type BlobProvider interface {
	// GeneratePresignedUploadURL generates a URL for the client to upload a file
	// directly (PUT). The URL is pinned to the given content type and exact
	// content length and expires after the specified duration.
	GeneratePresignedUploadURL(ctx context.Context, key string, contentType string, contentLength int64, expiresIn time.Duration) (string, error)

	// GeneratePresignedDownloadURL generates a URL for the client to view/download
	// the file (GET). The URL expires after the specified duration.
	GeneratePresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)

	// ListKeys returns all object keys under a prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)

	// Download fetches the whole object and its stored content type.
	// Missing keys surface as ErrNotFound.
	Download(ctx context.Context, key string) (data []byte, contentType string, err error)

	// Upload writes a server-derived object (thumbnails only) with a long
	// client-side cache lifetime; objects are immutable once written.
	Upload(ctx context.Context, key string, contentType string, data []byte) error

	// DeletePrefix removes every object under a prefix and returns how many
	// were deleted.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// PublicURL returns the stable public URL for a key. Thumbnails are served
	// from here without signed-URL indirection.
	PublicURL(key string) string
}
