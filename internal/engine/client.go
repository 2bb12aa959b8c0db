// Package engine is an HTTP client for the catalog search engine's
// management API: index lifecycle, settings, API keys, documents, dumps,
// and the asynchronous task queue behind all mutating calls.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/utafrali/search-provisioner/pkg/errors"
	"github.com/utafrali/search-provisioner/pkg/httpclient"
)

// Config holds engine client configuration.
type Config struct {
	// BaseURL is the engine's root URL, e.g. "http://localhost:7700".
	BaseURL string

	// MasterKey authorizes management API calls. Empty disables auth
	// (development instances).
	MasterKey string

	Timeout time.Duration
}

// Client talks to the engine's management API. All mutating endpoints are
// asynchronous: they enqueue a task and return its handle; callers drive
// the task to completion with the task poller.
type Client struct {
	baseURL string
	key     string
	http    *httpclient.CircuitBreakerClient
	logger  *slog.Logger
}

// New creates an engine client with retry and circuit breaker protection.
func New(cfg Config, logger *slog.Logger) *Client {
	hcfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		hcfg.Timeout = cfg.Timeout
	}
	cb := httpclient.NewCircuitBreakerClient(
		httpclient.New(hcfg),
		httpclient.DefaultCircuitBreakerConfig("search-engine"),
		logger,
	)

	return &Client{
		baseURL: cfg.BaseURL,
		key:     cfg.MasterKey,
		http:    cb,
		logger:  logger,
	}
}

// errorResponse is the engine's structured error body.
type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
	Link    string `json:"link,omitempty"`
}

// do performs a management API request. A non-nil body is JSON-encoded.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("engine: marshal %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("engine: create %s %s request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("engine: %s %s: %w", method, path, err)
	}
	return resp, nil
}

// decode reads a 2xx response body into out (when out is non-nil) and
// translates error responses into pkg/errors values.
func (c *Client) decode(resp *http.Response, op string, out any) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("engine %s: decode response: %w", op, err)
		}
		return nil
	}

	return c.decodeError(resp, op)
}

// decodeError translates a non-2xx response into an error, preserving the
// engine's structured error body when present.
func (c *Client) decodeError(resp *http.Response, op string) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("engine %s: status %d (failed to read body: %w)", op, resp.StatusCode, err)
	}

	var engErr errorResponse
	if json.Unmarshal(body, &engErr) == nil && engErr.Message != "" {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return &apperrors.AppError{
				Code:    engErr.Code,
				Message: engErr.Message,
				Status:  http.StatusNotFound,
				Err:     apperrors.ErrNotFound,
			}
		case http.StatusUnauthorized:
			return apperrors.Unauthorized(fmt.Sprintf("engine %s: %s", op, engErr.Message))
		case http.StatusForbidden:
			return apperrors.Forbidden(fmt.Sprintf("engine %s: %s", op, engErr.Message))
		default:
			return fmt.Errorf("engine %s: %s (%s)", op, engErr.Message, engErr.Code)
		}
	}

	return fmt.Errorf("engine %s: unexpected status %d: %s", op, resp.StatusCode, string(body))
}

// healthResponse is the engine's health endpoint body.
type healthResponse struct {
	Status string `json:"status"`
}

// Health returns the engine's health status string ("available" when the
// engine is ready to serve).
func (c *Client) Health(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return "", err
	}

	var h healthResponse
	if err := c.decode(resp, "health", &h); err != nil {
		return "", err
	}
	return h.Status, nil
}

// Ping reports whether the engine is reachable and available. It satisfies
// the pkg/health Checker signature.
func (c *Client) Ping(ctx context.Context) error {
	status, err := c.Health(ctx)
	if err != nil {
		return err
	}
	if status != "available" {
		return apperrors.EngineUnavailable(fmt.Sprintf("engine health: %s", status))
	}
	return nil
}

// Version returns the engine's reported version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/version", nil)
	if err != nil {
		return "", err
	}

	var v struct {
		PkgVersion string `json:"pkgVersion"`
	}
	if err := c.decode(resp, "version", &v); err != nil {
		return "", err
	}
	return v.PkgVersion, nil
}
