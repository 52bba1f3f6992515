package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/huangsam/codetime/internal/contract"
)

// httpTransport posts JSON to a provider endpoint with retry and backoff.
type httpTransport struct {
	client  *http.Client
	headers map[string]string
}

func newHTTPTransport(timeout time.Duration, headers map[string]string) *httpTransport {
	return &httpTransport{client: &http.Client{Timeout: timeout}, headers: headers}
}

// postJSON sends body to url and decodes a successful response into out.
// Rate limiting maps to contract.ErrRateLimited and every other failure to
// contract.ErrUpstream. Response bodies are never included in errors.
func (t *httpTransport) postJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := min(retryBaseDelay*time.Duration(1<<uint(attempt-1)), retryMaxDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			slog.Debug("Retrying model request", "url", url, "attempt", attempt+1)
		}

		data, status, err := t.do(ctx, url, payload)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("%w: request failed: %w", contract.ErrUpstream, err)
			continue
		}
		switch {
		case status == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: status %d", contract.ErrRateLimited, status)
			continue
		case status >= 500:
			lastErr = fmt.Errorf("%w: status %d", contract.ErrUpstream, status)
			continue
		case status >= 400:
			return fmt.Errorf("%w: status %d", contract.ErrUpstream, status)
		}

		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: malformed response: %w", contract.ErrUpstream, err)
		}
		return nil
	}
	return lastErr
}

func (t *httpTransport) do(ctx context.Context, url string, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return data, resp.StatusCode, nil
}
