package image

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Format enumerates the image formats the service accepts.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat normalizes a caller-declared format. The declared value is
// trusted as-is; blob bytes are never inspected.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatSVG:
		return FormatSVG, nil
	case FormatPNG:
		return FormatPNG, nil
	default:
		return "", ErrInvalidFormat
	}
}

// Record links an owner, a stored blob and its declared format. Records are
// append-only; nothing in the service updates or deletes them.
type Record struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	BlobID    string    `json:"blob_id"`
	Format    Format    `json:"format"`
	CreatedAt time.Time `json:"created_at"`
}

// ResolvedImage is a Record with a user-facing fetch URL attached. URL is
// empty when the underlying blob can no longer be resolved.
type ResolvedImage struct {
	Record
	URL string `json:"url,omitempty"`
}

// Caller identifies the requesting user. The zero value is anonymous.
type Caller struct {
	UserID uuid.UUID
}

// Anonymous reports whether no identity was resolved for the request.
func (c Caller) Anonymous() bool {
	return c.UserID == uuid.Nil
}
