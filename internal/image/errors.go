package image

import "errors"

var (
	// ErrUnauthenticated is returned when no caller identity is resolved.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrRateLimitExceeded indicates the caller hit the trailing-window upload cap.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidFormat rejects declared formats outside svg/png.
	ErrInvalidFormat = errors.New("invalid format, only svg and png are supported")
)
