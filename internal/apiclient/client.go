// Package apiclient talks to a running codetime server and polls analysis
// jobs to a terminal state.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
)

// Retry and response limits.
const (
	maxRetries     = 2
	baseDelay      = 250 * time.Millisecond
	maxDelay       = 2 * time.Second
	maxBodyBytes   = 16 << 20
	userAgent      = "codetime-client/1.0"
	defaultTimeout = 30 * time.Second
)

// Client is an HTTP client for the codetime API.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Backend = &Client{} // Compile-time check

// New creates a Client for the server at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Submit requests an analysis of repoURL.
func (c *Client) Submit(ctx context.Context, repoURL string, maxCommits int) (schema.SubmitResult, error) {
	var out schema.SubmitResult
	err := c.call(ctx, http.MethodPost, "/analyze", nil, map[string]any{"repo_url": repoURL, "max_commits": maxCommits}, &out)
	return out, err
}

// GetStatus reads the current state of a job.
func (c *Client) GetStatus(ctx context.Context, repoID string) (schema.AnalysisResponse, error) {
	var out schema.AnalysisResponse
	err := c.call(ctx, http.MethodGet, "/analysis/"+url.PathEscape(repoID), nil, nil, &out)
	return out, err
}

// Query asks a question about a completed analysis.
func (c *Client) Query(ctx context.Context, repoID, question string) (*schema.QueryResult, error) {
	var out schema.QueryResult
	if err := c.call(ctx, http.MethodPost, "/query", nil, map[string]string{"repo_id": repoID, "query": question}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Visualize fetches the visualization views of a completed analysis.
func (c *Client) Visualize(ctx context.Context, repoID string) (*schema.VisualizationData, error) {
	var out schema.VisualizationData
	if err := c.call(ctx, http.MethodGet, "/visualize/"+url.PathEscape(repoID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Suggestions fetches suggested questions for repoURL.
func (c *Client) Suggestions(ctx context.Context, repoURL string) ([]string, error) {
	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	err := c.call(ctx, http.MethodGet, "/suggestions", url.Values{"repo_url": {repoURL}}, nil, &out)
	return out.Suggestions, err
}

// List returns the most recently updated jobs.
func (c *Client) List(ctx context.Context, limit int) ([]schema.EntrySummary, error) {
	var out []schema.EntrySummary
	err := c.call(ctx, http.MethodGet, "/analyses", url.Values{"limit": {strconv.Itoa(limit)}}, nil, &out)
	return out, err
}

// Delete removes a job that is not running.
func (c *Client) Delete(ctx context.Context, repoID string) error {
	return c.call(ctx, http.MethodDelete, "/analysis/"+url.PathEscape(repoID), nil, nil, nil)
}

// call sends one JSON request and decodes the reply into out when non-nil.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	resp, err := c.doRequest(ctx, method, path, query, payload)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doRequest performs a request, retrying network failures and 5xx replies
// with exponential backoff.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload []byte) (*http.Response, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := min(baseDelay*time.Duration(1<<uint(attempt-1)), maxDelay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			slog.Debug("Retrying request", "attempt", attempt+1, "url", u.String())
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}
		if resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries, lastErr)
}

// parseErrorResponse maps an error reply back onto the shared sentinel errors.
func parseErrorResponse(code int, body []byte) error {
	var resp struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		msg = resp.Error
	}

	var sentinel error
	switch code {
	case http.StatusBadRequest:
		sentinel = contract.ErrInvalidInput
	case http.StatusNotFound:
		sentinel = contract.ErrNotFound
	case http.StatusConflict:
		sentinel = contract.ErrNotReady
	default:
		sentinel = errors.New("unexpected response")
	}
	return fmt.Errorf("%w (HTTP %d): %s", sentinel, code, msg)
}
