// Package upstream describes failures of third-party services the dashboard calls.
package upstream

import (
	"errors"
	"fmt"
	"time"
)

// Error reports a failed call to the model provider, issue tracker or source
// control host. RateLimited separates throttling, which is recoverable by waiting,
// from every other failure.
type Error struct {
	Service     string
	RateLimited bool
	RetryAfter  time.Duration
	Err         error
}

func (e *Error) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("%s: rate limited: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err wraps a rate-limited upstream failure.
func IsRateLimited(err error) bool {
	var upstreamErr *Error
	return errors.As(err, &upstreamErr) && upstreamErr.RateLimited
}

// UserMessage renders the message shown to a user for an upstream failure.
func UserMessage(err error) string {
	var upstreamErr *Error
	if !errors.As(err, &upstreamErr) {
		return "Something went wrong. Please try again."
	}
	if upstreamErr.RateLimited {
		if upstreamErr.RetryAfter > 0 {
			return fmt.Sprintf("%s is rate limiting us. Try again in %s.", upstreamErr.Service, upstreamErr.RetryAfter.Round(time.Second))
		}
		return fmt.Sprintf("%s is rate limiting us. Wait a moment and try again.", upstreamErr.Service)
	}
	return fmt.Sprintf("%s request failed. Please try again.", upstreamErr.Service)
}
