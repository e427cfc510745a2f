package musrv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// maxBodySize bounds a single response; whole-library playlists are the
// largest bodies the server produces.
const maxBodySize = 64 << 20

// get performs a GET with retry and returns the response body.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	backoff := c.backoff

	for i := 0; i < c.maxRetries; i++ {
		c.logDebugf("musrv: GET %s (attempt %d/%d)", rawURL, i+1, c.maxRetries)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if shouldRetryNetworkError(err) && i < c.maxRetries-1 {
				c.logDebugf("musrv: network error, retrying: %v", err)
				if !sleep(ctx, backoff) {
					return nil, ctx.Err()
				}
				backoff = nextBackoff(backoff)
				continue
			}
			return nil, fmt.Errorf("http request failed: %w", err)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := &Error{StatusCode: resp.StatusCode, Message: truncate(string(body), 200)}
			if apiErr.Temporary() && i < c.maxRetries-1 {
				c.logDebugf("musrv: server error, retrying: %v", apiErr)
				lastErr = apiErr
				if !sleep(ctx, backoff) {
					return nil, ctx.Err()
				}
				backoff = nextBackoff(backoff)
				continue
			}
			return nil, apiErr
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// shouldRetryNetworkError checks if a network error is retryable.
func shouldRetryNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// sleep waits for the specified duration or until context is cancelled.
// Returns true if sleep completed, false if context was cancelled.
func sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(duration):
		return true
	}
}

// nextBackoff doubles the backoff, capped at 30 seconds.
func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > 30*time.Second {
		return 30 * time.Second
	}
	return next
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
