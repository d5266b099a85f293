package blob

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// UploadTarget is a short-lived, single-use destination for one direct upload.
// The blob identifier is assigned up front; the client transfers bytes with a
// plain PUT to URL and then finalizes against the API using BlobID.
type UploadTarget struct {
	BlobID    string    `json:"blob_id"`
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Info describes a stored blob.
type Info struct {
	BlobID      string
	SizeBytes   int64
	ContentType string
	StoredAt    time.Time
}

const objectPrefix = "img/"

// Store brokers blob operations against a single MinIO bucket.
type Store struct {
	client    *minio.Client
	bucket    string
	targetTTL time.Duration
	urlTTL    time.Duration
}

// NewStore constructs a Store.
func NewStore(client *minio.Client, bucket string, targetTTL, urlTTL time.Duration) *Store {
	return &Store{
		client:    client,
		bucket:    bucket,
		targetTTL: targetTTL,
		urlTTL:    urlTTL,
	}
}

// MintUploadTarget issues a presigned PUT URL for a freshly assigned blob ID.
func (s *Store) MintUploadTarget(ctx context.Context) (UploadTarget, error) {
	blobID := objectPrefix + uuid.NewString()

	u, err := s.client.PresignedPutObject(ctx, s.bucket, blobID, s.targetTTL)
	if err != nil {
		return UploadTarget{}, fmt.Errorf("presign upload target: %w", err)
	}

	return UploadTarget{
		BlobID:    blobID,
		URL:       u.String(),
		Method:    "PUT",
		ExpiresAt: time.Now().Add(s.targetTTL),
	}, nil
}

// Stat reports metadata for a stored blob, or ErrBlobNotFound.
func (s *Store) Stat(ctx context.Context, blobID string) (Info, error) {
	stat, err := s.client.StatObject(ctx, s.bucket, blobID, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return Info{}, ErrBlobNotFound
		}
		return Info{}, fmt.Errorf("stat blob %s: %w", blobID, err)
	}

	return Info{
		BlobID:      blobID,
		SizeBytes:   stat.Size,
		ContentType: stat.ContentType,
		StoredAt:    stat.LastModified,
	}, nil
}

// ResolveURL produces a user-facing fetch URL for a stored blob, or
// ErrBlobNotFound when the blob no longer exists. Presigning is a local
// signing operation and never consults the server, so existence is verified
// first; otherwise a removed blob would yield a signed URL that 404s instead
// of an absent one.
func (s *Store) ResolveURL(ctx context.Context, blobID string) (string, error) {
	if _, err := s.Stat(ctx, blobID); err != nil {
		return "", err
	}

	reqParams := make(url.Values)

	u, err := s.client.PresignedGetObject(ctx, s.bucket, blobID, s.urlTTL, reqParams)
	if err != nil {
		return "", fmt.Errorf("presign fetch url for %s: %w", blobID, err)
	}

	return u.String(), nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}
