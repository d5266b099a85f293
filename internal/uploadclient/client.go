package uploadclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paraflux/mdimg/internal/blob"
	"github.com/paraflux/mdimg/internal/image"
)

// Client is a thin JSON client for the mdimg API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient constructs a Client. The token may be empty for anonymous calls.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken replaces the bearer token used on subsequent calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Register creates an account and returns its access token.
func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	return c.credentials(ctx, "/v1/auth/register", email, password)
}

// Login authenticates and returns an access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	return c.credentials(ctx, "/v1/auth/login", email, password)
}

func (c *Client) credentials(ctx context.Context, path, email, password string) (string, error) {
	var resp struct {
		Token struct {
			AccessToken string `json:"access_token"`
		} `json:"token"`
	}
	err := c.doJSON(ctx, http.MethodPost, path, map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token.AccessToken, nil
}

// RequestUploadTarget asks the service to admit an upload and mint a target.
func (c *Client) RequestUploadTarget(ctx context.Context) (blob.UploadTarget, error) {
	var target blob.UploadTarget
	if err := c.doJSON(ctx, http.MethodPost, "/v1/images/upload-url", nil, &target); err != nil {
		return blob.UploadTarget{}, err
	}
	return target, nil
}

// FinalizeUpload commits the metadata record for a transferred blob.
func (c *Client) FinalizeUpload(ctx context.Context, blobID, format string) (image.Record, error) {
	var rec image.Record
	err := c.doJSON(ctx, http.MethodPost, "/v1/images", map[string]string{
		"blob_id": blobID,
		"format":  format,
	}, &rec)
	if err != nil {
		return image.Record{}, err
	}
	return rec, nil
}

// ListImages fetches the caller's gallery, newest first.
func (c *Client) ListImages(ctx context.Context) ([]image.ResolvedImage, error) {
	var resp struct {
		Images []image.ResolvedImage `json:"images"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/images", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Images, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// APIError carries the server's descriptive failure message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	message := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		message = payload.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
