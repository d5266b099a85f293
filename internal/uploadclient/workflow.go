package uploadclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/paraflux/mdimg/internal/image"
)

// Accepted content types for selection. Authoritative validation happens on
// the server at finalization; this check only fails fast.
const (
	ContentTypeSVG = "image/svg+xml"
	ContentTypePNG = "image/png"
)

var (
	// ErrUnsupportedContentType rejects a selected file before any round trip.
	ErrUnsupportedContentType = errors.New("please select only SVG or PNG files")
	// ErrNoFileSelected is returned when Upload runs without a selection.
	ErrNoFileSelected = errors.New("no file selected")
	// ErrTransferFailed wraps a non-success outcome of the direct blob transfer.
	ErrTransferFailed = errors.New("transfer failed")
)

// State names a position in the upload workflow.
type State string

const (
	StateIdle             State = "idle"
	StateFileSelected     State = "file_selected"
	StateRequestingTarget State = "requesting_target"
	StateTransferringBlob State = "transferring_blob"
	StateFinalizing       State = "finalizing"
	StateSucceeded        State = "succeeded"
	StateFailed           State = "failed"
)

type selectedFile struct {
	name        string
	contentType string
	data        []byte
}

// Workflow drives one upload attempt: request a target, transfer the bytes,
// finalize the record. Steps run strictly in order and nothing is retried;
// after a failure the caller starts over with a new Select. If the transfer
// lands but finalization never does, the blob is orphaned in storage and no
// record points at it; the service does not reconcile that.
type Workflow struct {
	api      *Client
	transfer *http.Client
	state    State
	failure  error
	file     *selectedFile
}

// Result reports a completed upload.
type Result struct {
	Record image.Record
}

// NewWorkflow builds an idle workflow on top of the API client.
func NewWorkflow(api *Client) *Workflow {
	return &Workflow{
		api:      api,
		transfer: &http.Client{Timeout: 2 * time.Minute},
		state:    StateIdle,
	}
}

// State returns the workflow's current state.
func (w *Workflow) State() State {
	return w.state
}

// Failure returns the error that moved the workflow to StateFailed, if any.
func (w *Workflow) Failure() error {
	return w.failure
}

// Select validates and stages a candidate file. An unsupported content type
// is rejected immediately and the previous selection, if any, is kept.
func (w *Workflow) Select(name, contentType string, data []byte) error {
	if contentType != ContentTypeSVG && contentType != ContentTypePNG {
		return ErrUnsupportedContentType
	}

	w.file = &selectedFile{name: name, contentType: contentType, data: data}
	w.state = StateFileSelected
	w.failure = nil
	return nil
}

// Upload runs the three round trips for the staged file. On success the
// selection is cleared and the caller should re-query the gallery.
func (w *Workflow) Upload(ctx context.Context) (Result, error) {
	if w.file == nil {
		return Result{}, w.fail(ErrNoFileSelected)
	}

	w.state = StateRequestingTarget
	target, err := w.api.RequestUploadTarget(ctx)
	if err != nil {
		return Result{}, w.fail(err)
	}

	w.state = StateTransferringBlob
	if err := w.transferBlob(ctx, target.URL, target.Method); err != nil {
		return Result{}, w.fail(err)
	}

	w.state = StateFinalizing
	rec, err := w.api.FinalizeUpload(ctx, target.BlobID, formatFor(w.file.contentType))
	if err != nil {
		return Result{}, w.fail(err)
	}

	w.state = StateSucceeded
	w.file = nil
	return Result{Record: rec}, nil
}

func (w *Workflow) transferBlob(ctx context.Context, url, method string) error {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(w.file.data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	req.Header.Set("Content-Type", w.file.contentType)

	resp, err := w.transfer.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrTransferFailed, resp.Status)
	}
	return nil
}

func (w *Workflow) fail(err error) error {
	w.state = StateFailed
	w.failure = err
	return err
}

func formatFor(contentType string) string {
	if contentType == ContentTypeSVG {
		return string(image.FormatSVG)
	}
	return string(image.FormatPNG)
}
