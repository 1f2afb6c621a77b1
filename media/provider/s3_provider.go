// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	platformconfig "github.com/peakform/peakform/internal/platform/config"
)

// Thumbnails are immutable once written, so clients may cache them forever.
const thumbnailCacheControl = "public, max-age=31536000, immutable"

// s3Provider implements BlobProvider for S3-compatible stores (R2, MinIO, S3)
type s3Provider struct {
	s3Client  *s3.Client
	bucket    string
	publicURL string
}

// NewS3Provider creates a new provider from configuration
func NewS3Provider(cfg *platformconfig.StorageConfig) (BlobProvider, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("STORAGE_ACCESS_KEY_ID and STORAGE_SECRET_ACCESS_KEY are required")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("STORAGE_BUCKET_NAME is required")
	}

	// Build custom endpoint for R2 when only the account id is configured.
	// Format: https://<account-id>.r2.cloudflarestorage.com
	endpoint := cfg.Endpoint
	if endpoint == "" && cfg.AccountID != "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}
	if endpoint == "" {
		return nil, fmt.Errorf("STORAGE_ENDPOINT or STORAGE_ACCOUNT_ID is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true // R2 and MinIO require path-style addressing
	})

	return &s3Provider{
		s3Client:  s3Client,
		bucket:    cfg.BucketName,
		publicURL: cfg.PublicURL,
	}, nil
}

// GeneratePresignedUploadURL generates a presigned PUT URL pinned to the exact
// content type and length, preventing size/type manipulation by the client.
func (p *s3Provider) GeneratePresignedUploadURL(ctx context.Context, key string, contentType string, contentLength int64, expiresIn time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(p.s3Client)

	putObjectInput := &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(contentLength),
	}

	req, err := presignClient.PresignPutObject(ctx, putObjectInput, func(opts *s3.PresignOptions) {
		opts.Expires = expiresIn
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned upload URL: %w", err)
	}

	return req.URL, nil
}

// GeneratePresignedDownloadURL generates a presigned GET URL for a key.
func (p *s3Provider) GeneratePresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(p.s3Client)

	req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiresIn
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return req.URL, nil
}

// ListKeys returns all object keys under a prefix.
func (p *s3Provider) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(p.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(prefix),
	})

	var listed []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %q: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			listed = append(listed, aws.ToString(obj.Key))
		}
	}

	return listed, nil
}

// Download fetches the whole object and its stored content type.
func (p *s3Provider) Download(ctx context.Context, key string) ([]byte, string, error) {
	out, err := p.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, "", fmt.Errorf("failed to download object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object body: %w", err)
	}

	return data, aws.ToString(out.ContentType), nil
}

// Upload writes a server-derived object. Only thumbnails are uploaded by the
// server side; the long cache lifetime is safe because keys are never reused
// with different content (excepting profile pictures, where staleness up to
// the CDN's revalidation is accepted).
func (p *s3Provider) Upload(ctx context.Context, key string, contentType string, data []byte) error {
	_, err := p.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String(thumbnailCacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// DeletePrefix removes every object under a prefix in batches of up to 1000
// (the DeleteObjects API ceiling) and returns how many were deleted.
func (p *s3Provider) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	listed, err := p.ListKeys(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if len(listed) == 0 {
		return 0, nil
	}

	var toDelete []s3types.ObjectIdentifier
	for _, key := range listed {
		toDelete = append(toDelete, s3types.ObjectIdentifier{Key: aws.String(key)})
	}

	for i := 0; i < len(toDelete); i += 1000 {
		end := i + 1000
		if end > len(toDelete) {
			end = len(toDelete)
		}
		_, err := p.s3Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(p.bucket),
			Delete: &s3types.Delete{
				Objects: toDelete[i:end],
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return 0, fmt.Errorf("failed to delete objects under %q: %w", prefix, err)
		}
	}

	return len(toDelete), nil
}

// PublicURL returns the stable public URL for a key.
func (p *s3Provider) PublicURL(key string) string {
	base := strings.TrimSuffix(p.publicURL, "/")
	return fmt.Sprintf("%s/%s", base, key)
}
