// Package delivery uploads generated export files to remote backends.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coursekit/warehouse-engine/pkg/models"
)

// ErrInsecureURL rejects delivery targets that are not encrypted.
// The check runs before any bytes leave the engine.
var ErrInsecureURL = errors.New("backend URL must use https")

// Client performs HTTP PUT uploads to backend endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a delivery client with the given per-transfer timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewClientWithHTTP creates a delivery client on an existing http.Client.
func NewClientWithHTTP(httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient}
}

// Upload PUTs the file bytes to backend.URL + filename with the
// backend's credentials. Success is any 2xx status; the response body is
// ignored. At-least-once semantics: the caller may retry on failure.
func (c *Client) Upload(ctx context.Context, backend *models.Backend, filename string, content []byte) error {
	target, err := targetURL(backend.URL, filename)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv; charset=utf-8")
	req.ContentLength = int64(len(content))
	if backend.Username != "" {
		req.SetBasicAuth(backend.Username, backend.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload to backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	return nil
}

// targetURL joins the backend base URL and the filename, enforcing an
// encrypted transport.
func targetURL(baseURL, filename string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("invalid backend URL: %w", err)
	}

	if u.Scheme != "https" {
		return "", ErrInsecureURL
	}

	return u.String() + filename, nil
}
