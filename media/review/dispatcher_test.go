// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package review

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	uuid "github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/peakform/peakform/media/models"
)

// fakeModel returns a canned response and records the messages it was given.
type fakeModel struct {
	mu       sync.Mutex
	response string
	err      error
	block    chan struct{}

	inFlight    int
	maxInFlight int
	messages    [][]llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.messages = append(f.messages, messages)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			f.done()
			return nil, ctx.Err()
		}
	}
	f.done()

	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) done() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.response, f.err
}

type recordingRepo struct {
	mu      sync.Mutex
	reviews []*models.MediaReview
	err     error
}

func (r *recordingRepo) CreateReview(ctx context.Context, review *models.MediaReview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.reviews = append(r.reviews, review)
	return nil
}

func (r *recordingRepo) FindReviewsByMedia(ctx context.Context, ownerUserID uuid.UUID, sessionID, mediaID string) ([]*models.MediaReview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reviews, nil
}

func (r *recordingRepo) SetSessionMediaRef(ctx context.Context, ownerUserID uuid.UUID, sessionID, mediaID string) error {
	return nil
}

func (r *recordingRepo) ClearSessionMediaRef(ctx context.Context, ownerUserID uuid.UUID, sessionID, mediaID string) error {
	return nil
}

func TestDispatchPersistsReview(t *testing.T) {
	model := &fakeModel{response: "Solid squat depth and posture. 4/5"}
	repo := &recordingRepo{}
	d := NewDispatcher(model, repo, 2, time.Second)

	owner := uuid.Must(uuid.NewV4())
	err := d.Dispatch(context.Background(), owner, "sess-1", "media-1", []byte{0xff, 0xd8}, "image/jpeg")
	require.NoError(t, err)

	require.Len(t, repo.reviews, 1)
	review := repo.reviews[0]
	assert.Equal(t, owner, review.OwnerUserID)
	assert.Equal(t, "sess-1", review.SessionID)
	assert.Equal(t, "media-1", review.MediaID)
	assert.Equal(t, model.response, review.Content)
}

func TestDispatchSendsImageAndInstruction(t *testing.T) {
	model := &fakeModel{response: "ok"}
	d := NewDispatcher(model, &recordingRepo{}, 1, time.Second)

	imageBytes := []byte{0x89, 0x50, 0x4e, 0x47}
	err := d.Dispatch(context.Background(), uuid.Must(uuid.NewV4()), "s", "m", imageBytes, "image/png")
	require.NoError(t, err)

	require.Len(t, model.messages, 1)
	require.Len(t, model.messages[0], 1)
	msg := model.messages[0][0]
	assert.Equal(t, llms.ChatMessageTypeHuman, msg.Role)
	require.Len(t, msg.Parts, 2)

	binary, ok := msg.Parts[0].(llms.BinaryContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", binary.MIMEType)
	assert.Equal(t, imageBytes, binary.Data)

	text, ok := msg.Parts[1].(llms.TextContent)
	require.True(t, ok)
	assert.NotEmpty(t, text.Text)
}

func TestDispatchModelFailure(t *testing.T) {
	model := &fakeModel{err: fmt.Errorf("429 too many requests")}
	repo := &recordingRepo{}
	d := NewDispatcher(model, repo, 1, time.Second)

	err := d.Dispatch(context.Background(), uuid.Must(uuid.NewV4()), "s", "m", []byte("x"), "image/jpeg")
	require.Error(t, err)
	assert.Empty(t, repo.reviews)
}

func TestDispatchPersistFailure(t *testing.T) {
	model := &fakeModel{response: "ok"}
	repo := &recordingRepo{err: fmt.Errorf("db down")}
	d := NewDispatcher(model, repo, 1, time.Second)

	err := d.Dispatch(context.Background(), uuid.Must(uuid.NewV4()), "s", "m", []byte("x"), "image/jpeg")
	require.Error(t, err)
}

func TestDispatchConcurrencyLimit(t *testing.T) {
	model := &fakeModel{response: "ok", block: make(chan struct{})}
	repo := &recordingRepo{}
	d := NewDispatcher(model, repo, 2, 5*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = d.Dispatch(context.Background(), uuid.Must(uuid.NewV4()), "s", fmt.Sprintf("m-%d", i), []byte("x"), "image/jpeg")
		}(i)
	}

	// Give the goroutines a moment to pile up on the semaphore, then
	// release the model.
	time.Sleep(100 * time.Millisecond)
	close(model.block)
	wg.Wait()

	model.mu.Lock()
	defer model.mu.Unlock()
	assert.LessOrEqual(t, model.maxInFlight, 2)
	assert.Len(t, repo.reviews, 6)
}

func TestDispatchCanceledWhileWaiting(t *testing.T) {
	model := &fakeModel{response: "ok", block: make(chan struct{})}
	d := NewDispatcher(model, &recordingRepo{}, 1, 5*time.Second)

	// Occupy the single slot.
	started := make(chan struct{})
	go func() {
		close(started)
		_ = d.Dispatch(context.Background(), uuid.Must(uuid.NewV4()), "s", "m-0", []byte("x"), "image/jpeg")
	}()
	<-started
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.Dispatch(ctx, uuid.Must(uuid.NewV4()), "s", "m-1", []byte("x"), "image/jpeg")
	require.ErrorIs(t, err, context.Canceled)

	close(model.block)
}
