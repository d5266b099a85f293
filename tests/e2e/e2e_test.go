package e2e

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/paraflux/mdimg/internal/uploadclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a running API plus Postgres and MinIO. Point MDIMG_E2E_BASE_URL at
// the server to enable, e.g. MDIMG_E2E_BASE_URL=http://localhost:8080.
func baseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("MDIMG_E2E_BASE_URL")
	if url == "" {
		t.Skip("MDIMG_E2E_BASE_URL not set; skipping e2e")
	}
	return url
}

const pngSample = "\x89PNG\r\n\x1a\nfake-png-payload"

func registerFreshUser(t *testing.T, api *uploadclient.Client) {
	t.Helper()
	email := fmt.Sprintf("e2e_%d@example.com", time.Now().UnixNano())
	token, err := api.Register(context.Background(), email, "password123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	api.SetToken(token)
}

func TestUploadWorkflowEndToEnd(t *testing.T) {
	api := uploadclient.NewClient(baseURL(t), "")
	registerFreshUser(t, api)

	ctx := context.Background()

	// fresh account starts with an empty gallery
	images, err := api.ListImages(ctx)
	require.NoError(t, err)
	assert.Empty(t, images)

	workflow := uploadclient.NewWorkflow(api)
	require.NoError(t, workflow.Select("pixel.png", uploadclient.ContentTypePNG, []byte(pngSample)))

	result, err := workflow.Upload(ctx)
	require.NoError(t, err)
	assert.Equal(t, uploadclient.StateSucceeded, workflow.State())
	assert.Equal(t, "png", string(result.Record.Format))

	images, err = api.ListImages(ctx)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, result.Record.BlobID, images[0].BlobID)
	require.NotEmpty(t, images[0].URL)

	// the resolved URL serves the uploaded bytes
	resp, err := http.Get(images[0].URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	snippet := uploadclient.MarkdownSnippet(images[0].URL)
	assert.Contains(t, snippet, images[0].URL)
}

func TestFinalizeForgedBlobRejected(t *testing.T) {
	api := uploadclient.NewClient(baseURL(t), "")
	registerFreshUser(t, api)

	ctx := context.Background()
	_, err := api.FinalizeUpload(ctx, "img/does-not-exist", "png")
	require.Error(t, err)

	apiErr, ok := err.(*uploadclient.APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	images, err := api.ListImages(ctx)
	require.NoError(t, err)
	assert.Empty(t, images, "forged finalize must not create a record")
}

func TestUploadRateLimitEnforced(t *testing.T) {
	api := uploadclient.NewClient(baseURL(t), "")
	registerFreshUser(t, api)

	ctx := context.Background()

	// saturate the trailing window with complete uploads
	for i := 0; i < 10; i++ {
		workflow := uploadclient.NewWorkflow(api)
		require.NoError(t, workflow.Select("pixel.png", uploadclient.ContentTypePNG, []byte(pngSample)))
		_, err := workflow.Upload(ctx)
		require.NoError(t, err, "upload %d should pass the limit", i+1)
	}

	_, err := api.RequestUploadTarget(ctx)
	require.Error(t, err)
	apiErr, ok := err.(*uploadclient.APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestAnonymousAccess(t *testing.T) {
	api := uploadclient.NewClient(baseURL(t), "")
	ctx := context.Background()

	images, err := api.ListImages(ctx)
	require.NoError(t, err)
	assert.Empty(t, images, "anonymous listing is empty, not an error")

	_, err = api.RequestUploadTarget(ctx)
	require.Error(t, err)
	apiErr, ok := err.(*uploadclient.APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
