// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package review sends session media to a vision-capable model and records
// the free-text result. Dispatch is best-effort: callers log failures and
// move on, because the upload-processing contract is already satisfied by
// the time a review is attempted.
package review

import (
	"context"
	"fmt"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/peakform/peakform/media/models"
	"github.com/peakform/peakform/media/repository"
)

// reviewInstruction is the fixed prompt sent with every session image. The
// model's rating stays embedded in the text; nothing parses it out.
const reviewInstruction = "You are a fitness coach reviewing a client's workout photo. " +
	"Write a short review of the depicted workout in at most 60 words, " +
	"ending with a rating from 1 to 5."

// Dispatcher calls the vision model and persists review rows.
type Dispatcher struct {
	model          llms.Model
	repo           repository.Repository
	semaphore      chan struct{}
	requestTimeout time.Duration
}

// NewDispatcher creates a dispatcher with concurrent request limiting.
func NewDispatcher(model llms.Model, repo repository.Repository, maxConcurrent int, requestTimeout time.Duration) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	return &Dispatcher{
		model:          model,
		repo:           repo,
		semaphore:      make(chan struct{}, maxConcurrent),
		requestTimeout: requestTimeout,
	}
}

// Dispatch sends the image inline to the model and records the raw textual
// response keyed by (owner, session, media). Each call inserts a new row.
func (d *Dispatcher) Dispatch(ctx context.Context, ownerUserID uuid.UUID, sessionID, mediaID string, imageBytes []byte, contentType string) error {
	select {
	case d.semaphore <- struct{}{}:
		defer func() { <-d.semaphore }()
	case <-ctx.Done():
		return ctx.Err()
	}

	ctx, cancel := context.WithTimeout(ctx, d.requestTimeout)
	defer cancel()

	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(contentType, imageBytes),
				llms.TextPart(reviewInstruction),
			},
		},
	}

	resp, err := d.model.GenerateContent(ctx, messages)
	if err != nil {
		return fmt.Errorf("vision model call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("vision model returned no choices")
	}

	reviewRow := &models.MediaReview{
		OwnerUserID: ownerUserID,
		SessionID:   sessionID,
		MediaID:     mediaID,
		Content:     resp.Choices[0].Content,
	}
	if err := d.repo.CreateReview(ctx, reviewRow); err != nil {
		return fmt.Errorf("failed to persist media review: %w", err)
	}

	return nil
}
