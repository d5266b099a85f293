package uploadclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paraflux/mdimg/internal/blob"
	"github.com/paraflux/mdimg/internal/image"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend stands in for the API and the blob store's upload endpoint.
type fakeBackend struct {
	mu sync.Mutex

	server *httptest.Server

	targetStatus   int
	transferStatus int
	finalizeStatus int

	transferredBody []byte
	transferredType string
	finalizedBlobID string
	finalizedFormat string
	finalizeCalls   int
	mintedBlobID    string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		targetStatus:   http.StatusOK,
		transferStatus: http.StatusOK,
		finalizeStatus: http.StatusCreated,
		mintedBlobID:   "img/" + uuid.NewString(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/images/upload-url", func(w http.ResponseWriter, r *http.Request) {
		if b.targetStatus != http.StatusOK {
			w.WriteHeader(b.targetStatus)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded, please wait before uploading more images"})
			return
		}
		json.NewEncoder(w).Encode(blob.UploadTarget{
			BlobID:    b.mintedBlobID,
			URL:       b.server.URL + "/blobs/" + b.mintedBlobID,
			Method:    "PUT",
			ExpiresAt: time.Now().Add(10 * time.Minute),
		})
	})
	mux.HandleFunc("/blobs/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		body, _ := io.ReadAll(r.Body)
		b.transferredBody = body
		b.transferredType = r.Header.Get("Content-Type")
		w.WriteHeader(b.transferStatus)
	})
	mux.HandleFunc("/v1/images", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.finalizeCalls++
		var req struct {
			BlobID string `json:"blob_id"`
			Format string `json:"format"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		b.finalizedBlobID = req.BlobID
		b.finalizedFormat = req.Format

		if b.finalizeStatus != http.StatusCreated {
			w.WriteHeader(b.finalizeStatus)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid blob id, file not found"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(image.Record{
			ID:        uuid.New(),
			OwnerID:   uuid.New(),
			BlobID:    req.BlobID,
			Format:    image.Format(req.Format),
			CreatedAt: time.Now(),
		})
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func TestSelectRejectsUnsupportedContentType(t *testing.T) {
	w := NewWorkflow(NewClient("http://unused", "token"))

	err := w.Select("photo.gif", "image/gif", []byte("gif-bytes"))
	require.ErrorIs(t, err, ErrUnsupportedContentType)
	assert.Equal(t, StateIdle, w.State())
}

func TestSelectKeepsPreviousSelectionOnRejection(t *testing.T) {
	w := NewWorkflow(NewClient("http://unused", "token"))

	require.NoError(t, w.Select("logo.png", ContentTypePNG, []byte("png-bytes")))
	require.ErrorIs(t, w.Select("photo.gif", "image/gif", nil), ErrUnsupportedContentType)

	assert.Equal(t, StateFileSelected, w.State())
	assert.Equal(t, "logo.png", w.file.name)
}

func TestUploadHappyPath(t *testing.T) {
	backend := newFakeBackend(t)
	w := NewWorkflow(NewClient(backend.server.URL, "token"))

	payload := []byte("<svg xmlns=\"http://www.w3.org/2000/svg\"/>")
	require.NoError(t, w.Select("diagram.svg", ContentTypeSVG, payload))

	result, err := w.Upload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, w.State())
	assert.Equal(t, backend.mintedBlobID, result.Record.BlobID)
	assert.Equal(t, image.FormatSVG, result.Record.Format)

	assert.Equal(t, payload, backend.transferredBody)
	assert.Equal(t, ContentTypeSVG, backend.transferredType)
	assert.Equal(t, backend.mintedBlobID, backend.finalizedBlobID)
	assert.Equal(t, "svg", backend.finalizedFormat)

	// selection cleared; a fresh attempt needs a new Select
	_, err = w.Upload(context.Background())
	require.ErrorIs(t, err, ErrNoFileSelected)
}

func TestUploadAdmissionFailure(t *testing.T) {
	backend := newFakeBackend(t)
	backend.targetStatus = http.StatusTooManyRequests
	w := NewWorkflow(NewClient(backend.server.URL, "token"))

	require.NoError(t, w.Select("logo.png", ContentTypePNG, []byte("png-bytes")))

	_, err := w.Upload(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, w.State())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, 0, backend.finalizeCalls)
}

func TestUploadTransferFailure(t *testing.T) {
	backend := newFakeBackend(t)
	backend.transferStatus = http.StatusForbidden
	w := NewWorkflow(NewClient(backend.server.URL, "token"))

	require.NoError(t, w.Select("logo.png", ContentTypePNG, []byte("png-bytes")))

	_, err := w.Upload(context.Background())
	require.ErrorIs(t, err, ErrTransferFailed)
	assert.Equal(t, StateFailed, w.State())
	assert.Equal(t, 0, backend.finalizeCalls, "failed transfer must not reach finalization")
}

func TestUploadFinalizeFailureLeavesBlobOrphaned(t *testing.T) {
	backend := newFakeBackend(t)
	backend.finalizeStatus = http.StatusNotFound
	w := NewWorkflow(NewClient(backend.server.URL, "token"))

	require.NoError(t, w.Select("logo.png", ContentTypePNG, []byte("png-bytes")))

	_, err := w.Upload(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, w.State())
	assert.NotEmpty(t, backend.transferredBody, "blob landed before finalization failed")
}

func TestMarkdownSnippet(t *testing.T) {
	got := MarkdownSnippet("https://blobs.test/img/abc?sig=xyz")
	assert.Equal(t, "![paraFlux inc. Image](https://blobs.test/img/abc?sig=xyz)", got)
}
