package llm

import (
	"errors"
	"fmt"
	"time"
)

// ErrPayloadTooLarge is returned when the backend rejects the request because
// the payload exceeds its size limit (HTTP 413 or equivalent). The chunk
// executor must not retry at the same chunk size; the caller re-chunks with a
// smaller character budget instead.
var ErrPayloadTooLarge = errors.New("llm: request payload too large")

// RateLimitError indicates the backend rejected the request due to rate
// limiting (HTTP 429). RetryAfter carries the server-provided delay hint when
// one was present; zero means the caller should fall back to its own backoff.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("llm: rate limited, retry after %s", e.RetryAfter)
	}
	return "llm: rate limited"
}

// ServerError indicates a retryable backend-side failure (HTTP 5xx).
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("llm: server error %d: %s", e.StatusCode, e.Message)
}

// ClientError indicates a non-retryable request failure (HTTP 4xx other than
// 413 and 429), e.g. invalid credentials or a malformed request.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("llm: client error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether err may succeed on a retry of the same request.
// Rate limits and server errors are retryable; payload-too-large and client
// errors are not. Unclassified errors (timeouts, connection resets) are
// treated as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPayloadTooLarge) {
		return false
	}
	var ce *ClientError
	if errors.As(err, &ce) {
		return false
	}
	return true
}

// RetryAfterHint extracts the server-provided retry delay from err, if any.
func RetryAfterHint(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter, true
	}
	return 0, false
}
