package image

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paraflux/mdimg/internal/blob"
	"github.com/paraflux/mdimg/internal/config"
	"github.com/paraflux/mdimg/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const resolveConcurrency = 8

// recordStore abstracts image metadata persistence.
type recordStore interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Record, error)
	CountCreatedSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (int, error)
}

// blobStore is the consumed slice of the blob storage boundary.
type blobStore interface {
	MintUploadTarget(ctx context.Context) (blob.UploadTarget, error)
	Stat(ctx context.Context, blobID string) (blob.Info, error)
	ResolveURL(ctx context.Context, blobID string) (string, error)
}

// Service implements upload admission, upload finalization and gallery queries.
type Service struct {
	repo    recordStore
	blobs   blobStore
	cfg     config.UploadConfig
	nowFunc func() time.Time
}

// NewService constructs an image service.
func NewService(repo recordStore, blobs blobStore, cfg config.UploadConfig) *Service {
	return &Service{
		repo:    repo,
		blobs:   blobs,
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

// RequestUploadTarget admits an upload attempt and brokers a one-time target.
// The rate limit is a sliding window over the caller's recent records,
// recomputed per request. The check reads but reserves nothing, so concurrent
// requests can all pass it; the cap is best-effort.
func (s *Service) RequestUploadTarget(ctx context.Context, caller Caller) (blob.UploadTarget, error) {
	if caller.Anonymous() {
		return blob.UploadTarget{}, ErrUnauthenticated
	}

	since := s.nowFunc().Add(-s.cfg.RateLimitWindow)
	recent, err := s.repo.CountCreatedSince(ctx, caller.UserID, since)
	if err != nil {
		return blob.UploadTarget{}, fmt.Errorf("count recent uploads: %w", err)
	}

	if recent >= s.cfg.RateLimitMax {
		return blob.UploadTarget{}, ErrRateLimitExceeded
	}

	target, err := s.blobs.MintUploadTarget(ctx)
	if err != nil {
		return blob.UploadTarget{}, fmt.Errorf("mint upload target: %w", err)
	}

	return target, nil
}

// FinalizeUpload validates a completed transfer and commits the image record.
// This is the sole write path into the images collection.
func (s *Service) FinalizeUpload(ctx context.Context, caller Caller, blobID, declaredFormat string) (Record, error) {
	if caller.Anonymous() {
		return Record{}, ErrUnauthenticated
	}

	format, err := ParseFormat(declaredFormat)
	if err != nil {
		return Record{}, err
	}

	blobID = strings.TrimSpace(blobID)
	if blobID == "" {
		return Record{}, blob.ErrBlobNotFound
	}

	// Guards against forged or expired identifiers. Ownership of the blob is
	// not checked beyond existence; the single-use upload target already
	// scoped it to the session that requested it.
	if _, err := s.blobs.Stat(ctx, blobID); err != nil {
		if err == blob.ErrBlobNotFound {
			return Record{}, blob.ErrBlobNotFound
		}
		return Record{}, fmt.Errorf("stat blob: %w", err)
	}

	rec := Record{
		ID:        uuid.New(),
		OwnerID:   caller.UserID,
		BlobID:    blobID,
		Format:    format,
		CreatedAt: s.nowFunc(),
	}

	stored, err := s.repo.Insert(ctx, rec)
	if err != nil {
		return Record{}, fmt.Errorf("insert image record: %w", err)
	}

	return stored, nil
}

// ListImages returns the caller's images, newest first, each with a resolved
// fetch URL. Anonymous callers get an empty list, not an error. URL
// resolution fans out concurrently; a record whose blob no longer resolves
// keeps its place in the sequence with an empty URL.
func (s *Service) ListImages(ctx context.Context, caller Caller) ([]ResolvedImage, error) {
	if caller.Anonymous() {
		return []ResolvedImage{}, nil
	}

	records, err := s.repo.ListByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list image records: %w", err)
	}

	resolved := make([]ResolvedImage, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			url, err := s.blobs.ResolveURL(gctx, rec.BlobID)
			if err != nil {
				logger.L().Warn("blob url resolution failed",
					zap.String("blob_id", rec.BlobID),
					zap.Error(err),
				)
				url = ""
			}
			resolved[i] = ResolvedImage{Record: rec, URL: url}
			return nil
		})
	}
	_ = g.Wait()

	return resolved, nil
}
