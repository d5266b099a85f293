package image

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository provides access to image record storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new image repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a new image record.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO images (id, owner_id, blob_id, format, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, owner_id, blob_id, format, created_at;`

	row := r.pool.QueryRow(ctx, query, rec.ID, rec.OwnerID, rec.BlobID, string(rec.Format), rec.CreatedAt)

	var stored Record
	if err := row.Scan(&stored.ID, &stored.OwnerID, &stored.BlobID, &stored.Format, &stored.CreatedAt); err != nil {
		return Record{}, fmt.Errorf("insert image record: %w", err)
	}
	return stored, nil
}

// ListByOwner returns the owner's records, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT id, owner_id, blob_id, format, created_at
FROM images
WHERE owner_id = $1
ORDER BY created_at DESC;`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list image records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.BlobID, &rec.Format, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan image record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image records: %w", err)
	}
	return records, nil
}

// CountCreatedSince counts the owner's records newer than the cutoff.
func (r *Repository) CountCreatedSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT COUNT(*) FROM images WHERE owner_id = $1 AND created_at > $2;`

	var count int
	if err := r.pool.QueryRow(ctx, query, ownerID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count recent image records: %w", err)
	}
	return count, nil
}
