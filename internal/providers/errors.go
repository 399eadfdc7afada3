package providers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RateLimitError is returned when the upstream API responds with 429.
// The worker pool inspects RetryAfter to pause the provider's queue.
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

// IsRateLimitError unwraps err looking for a RateLimitError.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// PolicyRejectionError is returned when the upstream moderation layer
// refuses to render the request. It is permanent: retrying the same
// photo and caption will be refused again.
type PolicyRejectionError struct {
	Message string
	Code    string
}

func (e *PolicyRejectionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("content policy rejection (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("content policy rejection: %s", e.Message)
}

// IsPolicyRejection unwraps err looking for a PolicyRejectionError.
func IsPolicyRejection(err error) (*PolicyRejectionError, bool) {
	var pre *PolicyRejectionError
	if errors.As(err, &pre) {
		return pre, true
	}
	return nil, false
}

// parseRetryAfter handles the delta-seconds form of the Retry-After header.
// HTTP-date form is rare from these APIs and is treated as unknown.
func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
