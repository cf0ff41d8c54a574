// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the worker's remote
// clients.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

const defaultMaxRetries = 3

// retryable reports whether a response status indicates a transient
// upstream condition worth retrying: rate limiting or a server error.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// DoWithRetry executes an HTTP request and retries transient failures
// with exponential backoff: transport errors (connection refused, reset),
// HTTP 429, and HTTP 5xx. The delay starts at RetryBaseDelay and doubles
// each attempt.
//
// When maxRetries is 0 the default (3) is used. Before each retry the
// response body, if any, is drained and closed. If the context is
// cancelled during a backoff wait the function returns ctx.Err(). After
// exhausting retries the last response or transport error is returned so
// the caller can classify it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))

		if err == nil && !retryable(resp.StatusCode) {
			return resp, nil
		}

		// Exhausted retries; hand the last outcome to the caller.
		if attempt >= maxRetries {
			return resp, err
		}

		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
