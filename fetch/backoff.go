package fetch

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// retryDelay computes the wait before the next attempt: the backoff
// policy's next interval, stretched to honor a Retry-After header when
// the server sent one.
func retryDelay(b backoff.BackOff, headers *HeaderMap) time.Duration {
	delay := b.NextBackOff()
	if delay == backoff.Stop {
		return 0
	}
	if headers == nil {
		return delay
	}
	if after := parseRetryAfter(headers); after > delay {
		delay = after
	}
	return delay
}

// parseRetryAfter reads a Retry-After value in either seconds or
// HTTP-date form. Missing or malformed values yield zero.
func parseRetryAfter(headers *HeaderMap) time.Duration {
	value, ok := headers.Get("Retry-After")
	if !ok {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// sleep waits out the delay, honoring context cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
