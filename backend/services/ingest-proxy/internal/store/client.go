package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fejiro0/MentalHealthBacknd/backend/services/ingest-proxy/internal/credential"
)

const maxErrorBody = 4096

// UnavailableError wraps a transport-level failure; the store was never
// reached or the connection broke mid-request.
type UnavailableError struct {
	Path string
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable at %s: %v", e.Path, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// RejectedError carries the store's own non-2xx status and response body.
type RejectedError struct {
	Path   string
	Status int
	Body   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("store rejected write at %s: status %d: %s", e.Path, e.Status, e.Body)
}

// Client talks to the document store over HTTP. Paths are hierarchical keys;
// the credential, when present, travels as an auth query parameter. The
// client never retries; re-sends are the device's job since writes are
// idempotent per path.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient builds a store client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// BaseURL returns the configured store endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Put replaces the document at path.
func (c *Client) Put(ctx context.Context, path string, doc any, cred *credential.Credential) error {
	return c.write(ctx, http.MethodPut, path, doc, cred)
}

// Patch merges fields into the document at path.
func (c *Client) Patch(ctx context.Context, path string, doc any, cred *credential.Credential) error {
	return c.write(ctx, http.MethodPatch, path, doc, cred)
}

// Get reads the raw document at path. The store encodes an absent document as
// the JSON literal null; callers are expected to check for it.
func (c *Client) Get(ctx context.Context, path string, cred *credential.Credential) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, cred), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &UnavailableError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, c.rejected(path, resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) write(ctx context.Context, method, path string, doc any, cred *credential.Credential) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: encode document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, cred), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("store write transport failure",
			zap.String("path", path), zap.Error(err))
		return &UnavailableError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		rejected := c.rejected(path, resp)
		c.logger.Warn("store rejected write",
			zap.String("path", path), zap.Int("status", resp.StatusCode))
		return rejected
	}
	return nil
}

func (c *Client) endpoint(path string, cred *credential.Credential) string {
	endpoint := fmt.Sprintf("%s/%s.json", c.baseURL, strings.Trim(path, "/"))
	if cred != nil && cred.Token != "" {
		endpoint += "?auth=" + url.QueryEscape(cred.Token)
	}
	return endpoint
}

func (c *Client) rejected(path string, resp *http.Response) *RejectedError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &RejectedError{
		Path:   path,
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(body)),
	}
}
