package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func newTestObjectStore(t *testing.T, bucketStatus int) *minio.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(bucketStatus)
	}))
	t.Cleanup(server.Close)

	client, err := minio.New(strings.TrimPrefix(server.URL, "http://"), &minio.Options{
		Creds:  credentials.NewStaticV4("test-key", "test-secret", ""),
		Secure: false,
		Region: "us-east-1",
	})
	if err != nil {
		t.Fatalf("create minio client: %v", err)
	}
	return client
}

func TestCheckMinIOBucketPresent(t *testing.T) {
	deps := Dependencies{ObjectStore: newTestObjectStore(t, http.StatusOK)}
	deps.Config.MinIO.Bucket = "mdimg-images"

	if err := checkMinIO(context.Background(), deps); err != nil {
		t.Fatalf("expected ready with existing bucket, got %v", err)
	}
}

func TestCheckMinIOBucketMissing(t *testing.T) {
	deps := Dependencies{ObjectStore: newTestObjectStore(t, http.StatusNotFound)}
	deps.Config.MinIO.Bucket = "mdimg-images"

	if err := checkMinIO(context.Background(), deps); err == nil {
		t.Fatalf("expected degraded readiness when the bucket is gone")
	}
}
