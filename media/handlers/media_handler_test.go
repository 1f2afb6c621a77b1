// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakform/peakform/internal/types"
	"github.com/peakform/peakform/media/keys"
	"github.com/peakform/peakform/media/models"
	"github.com/peakform/peakform/media/services"
)

// fakeService lets each test script the service layer's responses.
type fakeService struct {
	uploadResp *models.UploadURLResponse
	uploadErr  error

	downloadURL string
	downloadErr error

	processErr       error
	processThumbnail []byte

	items   []models.MediaItem
	listErr error

	fetchData        []byte
	fetchContentType string
	fetchErr         error

	deleteErr error

	reviews    []*models.MediaReview
	reviewsErr error
}

func (f *fakeService) IssueUploadURL(ctx context.Context, callerID uuid.UUID, req *models.UploadURLRequest) (*models.UploadURLResponse, error) {
	return f.uploadResp, f.uploadErr
}

func (f *fakeService) IssueDownloadURL(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID, objectID string, thumbnail bool) (string, error) {
	if thumbnail {
		return f.downloadURL + keys.ThumbnailSuffix, f.downloadErr
	}
	return f.downloadURL, f.downloadErr
}

func (f *fakeService) ProcessUpload(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID, objectID string, clientThumbnail []byte) error {
	f.processThumbnail = clientThumbnail
	return f.processErr
}

func (f *fakeService) ListMedia(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID string) ([]models.MediaItem, error) {
	return f.items, f.listErr
}

func (f *fakeService) FetchMedia(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID, objectID string) ([]byte, string, error) {
	return f.fetchData, f.fetchContentType, f.fetchErr
}

func (f *fakeService) DeleteMedia(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID, objectID string) error {
	return f.deleteErr
}

func (f *fakeService) ListReviews(ctx context.Context, callerID, ownerID uuid.UUID, category, instanceID, objectID string) ([]*models.MediaReview, error) {
	return f.reviews, f.reviewsErr
}

// newTestApp wires the handler behind a middleware that injects the caller's
// UserContext, standing in for the JWT middleware.
func newTestApp(svc services.MediaService, caller uuid.UUID) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if caller != uuid.Nil {
			c.Locals(types.UserCtxName, types.UserContext{UserID: caller})
		}
		return c.Next()
	})

	h := NewMediaHandler(svc)
	app.Post("/media/upload/init", h.GetUploadURL)
	app.Post("/media/upload/process", h.ProcessUploadedMedia)
	app.Get("/media/:ownerId/:category/:instanceId/files", h.ListMedia)
	app.Get("/media/:ownerId/:category/:instanceId/files/:objectId/url", h.GetDownloadURL)
	app.Get("/media/:ownerId/:category/:instanceId/files/:objectId/reviews", h.GetMediaReviews)
	app.Get("/media/:ownerId/:category/:instanceId/files/:objectId", h.GetMedia)
	app.Delete("/media/:ownerId/:category/:instanceId/files/:objectId", h.DeleteMedia)
	return app
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestGetUploadURL(t *testing.T) {
	caller := uuid.Must(uuid.NewV4())
	svc := &fakeService{uploadResp: &models.UploadURLResponse{
		UploadURL: "https://blob.test/upload/x",
		ObjectID:  "obj-1",
	}}
	app := newTestApp(svc, caller)

	req := jsonRequest(t, http.MethodPost, "/media/upload/init", models.UploadURLRequest{
		OwnerUserID:        caller,
		Category:           keys.CategorySession,
		CategoryInstanceID: "s1",
		ContentType:        "image/jpeg",
		Size:               1024,
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "obj-1", body["objectId"])
	assert.Equal(t, "https://blob.test/upload/x", body["uploadUrl"])
}

func TestGetUploadURLUnauthenticated(t *testing.T) {
	app := newTestApp(&fakeService{}, uuid.Nil)

	req := jsonRequest(t, http.MethodPost, "/media/upload/init", models.UploadURLRequest{})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetUploadURLInvalidBody(t *testing.T) {
	app := newTestApp(&fakeService{}, uuid.Must(uuid.NewV4()))

	req := httptest.NewRequest(http.MethodPost, "/media/upload/init", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServiceErrorMapping(t *testing.T) {
	caller := uuid.Must(uuid.NewV4())
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"permission denied", services.ErrPermissionDenied, http.StatusForbidden, "PERMISSION_DENIED"},
		{"invalid category", keys.ErrInvalidCategory, http.StatusBadRequest, "INVALID_CATEGORY"},
		{"invalid media id", keys.ErrInvalidKeyPart, http.StatusBadRequest, "INVALID_MEDIA_ID"},
		{"quota exceeded", services.ErrQuotaExceeded, http.StatusForbidden, "QUOTA_EXCEEDED"},
		{"not found", services.ErrObjectNotFound, http.StatusNotFound, "OBJECT_NOT_FOUND"},
		{"too large", services.ErrFileTooLarge, http.StatusBadRequest, "FILE_TOO_LARGE"},
		{"bad mime", services.ErrInvalidMimeType, http.StatusBadRequest, "INVALID_MIME_TYPE"},
		{"upstream", services.ErrUpstream, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"storage", services.ErrStorage, http.StatusInternalServerError, "STORAGE_ERROR"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(&fakeService{uploadErr: tc.err}, caller)
			req := jsonRequest(t, http.MethodPost, "/media/upload/init", models.UploadURLRequest{})
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			body := decodeBody(t, resp)
			assert.Equal(t, tc.wantCode, body["error"])
		})
	}
}

func TestProcessUploadedMedia(t *testing.T) {
	caller := uuid.Must(uuid.NewV4())
	svc := &fakeService{}
	app := newTestApp(svc, caller)

	thumb := []byte{0xff, 0xd8, 0xff}
	req := jsonRequest(t, http.MethodPost, "/media/upload/process", models.ProcessUploadRequest{
		OwnerUserID:        caller,
		Category:           keys.CategorySession,
		CategoryInstanceID: "s1",
		ObjectID:           "o1",
		ThumbnailBase64:    base64.StdEncoding.EncodeToString(thumb),
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, thumb, svc.processThumbnail)
}

func TestProcessUploadedMediaBadThumbnailEncoding(t *testing.T) {
	app := newTestApp(&fakeService{}, uuid.Must(uuid.NewV4()))

	req := jsonRequest(t, http.MethodPost, "/media/upload/process", models.ProcessUploadRequest{
		ObjectID:        "o1",
		Category:        keys.CategorySession,
		ThumbnailBase64: "!!!not-base64!!!",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListMedia(t *testing.T) {
	caller := uuid.Must(uuid.NewV4())
	svc := &fakeService{items: []models.MediaItem{
		{MediaID: "a", ThumbnailURL: "https://cdn.test/a-thumbnail"},
		{MediaID: "b"},
	}}
	app := newTestApp(svc, caller)

	target := fmt.Sprintf("/media/%s/session/s1/files", caller)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	items, ok := body["items"].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestListMediaInvalidOwnerID(t *testing.T) {
	app := newTestApp(&fakeService{}, uuid.Must(uuid.NewV4()))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/media/not-a-uuid/session/s1/files", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetDownloadURL(t *testing.T) {
	caller := uuid.Must(uuid.NewV4())
	svc := &fakeService{downloadURL: "https://blob.test/download/o1"}
	app := newTestApp(svc, caller)

	target := fmt.Sprintf("/media/%s/session/s1/files/o1/url", caller)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, svc.downloadURL, body["url"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, target+"?thumbnail=true", nil))
	require.NoError(t, err)
	body = decodeBody(t, resp)
	assert.Equal(t, svc.downloadURL+keys.ThumbnailSuffix, body["url"])
}

func TestGetMedia(t *testing.T) {
	caller := uuid.Must(uuid.NewV4())
	svc := &fakeService{fetchData: []byte("raw-bytes"), fetchContentType: "image/png"}
	app := newTestApp(svc, caller)

	target := fmt.Sprintf("/media/%s/challenge/ch-1/files/o1", caller)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("raw-bytes"), data)
}

func TestGetMediaReviews(t *testing.T) {
	caller := uuid.Must(uuid.NewV4())
	svc := &fakeService{reviews: []*models.MediaReview{
		{OwnerUserID: caller, SessionID: "s1", MediaID: "o1", Content: "Good form. 4/5"},
	}}
	app := newTestApp(svc, caller)

	target := fmt.Sprintf("/media/%s/session/s1/files/o1/reviews", caller)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	reviews, ok := body["reviews"].([]interface{})
	require.True(t, ok)
	assert.Len(t, reviews, 1)
}

func TestGetMediaReviewsEmpty(t *testing.T) {
	caller := uuid.Must(uuid.NewV4())
	app := newTestApp(&fakeService{}, caller)

	target := fmt.Sprintf("/media/%s/session/s1/files/o1/reviews", caller)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	reviews, ok := body["reviews"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, reviews)
}

func TestDeleteMedia(t *testing.T) {
	caller := uuid.Must(uuid.NewV4())
	app := newTestApp(&fakeService{}, caller)

	target := fmt.Sprintf("/media/%s/habit/h1/files/o1", caller)
	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, target, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDeleteMediaNotFound(t *testing.T) {
	caller := uuid.Must(uuid.NewV4())
	app := newTestApp(&fakeService{deleteErr: services.ErrObjectNotFound}, caller)

	target := fmt.Sprintf("/media/%s/habit/h1/files/o1", caller)
	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, target, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
