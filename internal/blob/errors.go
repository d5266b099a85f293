package blob

import "errors"

// ErrBlobNotFound signals that the identifier does not resolve to a stored blob.
var ErrBlobNotFound = errors.New("blob not found")
