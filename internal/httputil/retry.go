// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the search and
// acquisition stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// throttled responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// MaxRetryAfter caps a server-provided Retry-After wait.
var MaxRetryAfter = 2 * time.Minute

const defaultMaxRetries = 5

// Throttled reports whether a response status asks the client to slow
// down: 429 Too Many Requests or 503 Service Unavailable.
func Throttled(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// DoWithRetry executes an HTTP request and retries throttled responses
// (see Throttled) with backoff.Retry. The wait is the server's Retry-After
// when it sends one, otherwise RetryBaseDelay doubled on each attempt.
//
// When maxRetries is 0 the default (5) is used. Transport errors are not
// retried. The body of a throttled response is drained and closed before
// waiting. If the context is cancelled during a wait the function returns
// ctx.Err(). After exhausting retries the last throttled response is
// returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryBaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = MaxRetryAfter

	attempt := 0
	return backoff.Retry(ctx, func() (*http.Response, error) {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if !Throttled(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}
		attempt++

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if ra, ok := retryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
			return nil, &backoff.RetryAfterError{Duration: ra}
		}
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL.Redacted())
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(0))
}

// retryAfter parses a Retry-After header given as delta seconds or an
// HTTP date. Values beyond MaxRetryAfter are capped.
func retryAfter(v string, now time.Time) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(v); err == nil {
		d = t.Sub(now)
		if d < 0 {
			d = 0
		}
	} else {
		return 0, false
	}
	if d > MaxRetryAfter {
		d = MaxRetryAfter
	}
	return d, true
}
