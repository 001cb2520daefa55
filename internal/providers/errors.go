package providers

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RateLimitError reports a 429 from the backend, with the server-suggested
// wait if one was provided.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
	StatusCode int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// AuthError reports an authentication or authorization failure. Never
// retried: the caller must fix credentials or quota first.
type AuthError struct {
	Message    string
	StatusCode int
}

func (e *AuthError) Error() string { return e.Message }

// parseRetryAfter parses a Retry-After header value (seconds form only).
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
