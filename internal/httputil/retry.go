// Package httputil provides the HTTP retry helper used by asset and input fetches.
package httputil

import (
	"context"
	"io"
	"net/http"
	"time"
)

// RetryBaseDelay is the first backoff delay. It doubles on every attempt.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 250 * time.Millisecond

// DefaultMaxRetries is used when DoWithRetry receives maxRetries <= 0.
const DefaultMaxRetries = 3

// Doer sends HTTP requests. *http.Client satisfies this interface.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Retryable reports whether a status code is worth another attempt against
// the same location: 429 Too Many Requests and 503 Service Unavailable.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry executes req and retries retryable statuses with exponential
// backoff (RetryBaseDelay, 2x, 4x, ...). Transport errors are returned
// immediately. After exhausting retries the last response is returned so the
// caller can inspect it. A context cancelled during backoff returns ctx.Err().
func DoWithRetry(ctx context.Context, client Doer, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	delay := RetryBaseDelay
	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// Get is DoWithRetry for a plain GET of url.
func Get(ctx context.Context, client Doer, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return DoWithRetry(ctx, client, req, 0)
}
