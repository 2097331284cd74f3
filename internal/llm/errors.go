package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRateLimit is a 429 from the provider. RetryAfter is zero when the
// provider gave no hint.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse is structured output that is missing or does not
// match the request schema. Content holds the raw payload when there was one.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable covers outages, network failures and an exhausted
// mock queue.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err == nil {
		return "LLM provider unavailable"
	}
	return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded means the output was cut off at Request.MaxTokens.
// Content is the truncated payload.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated: max tokens exceeded"
}

// Error kinds reported by KindOf.
const (
	KindRateLimit   = "rate_limit"
	KindUnavailable = "unavailable"
	KindInvalid     = "invalid_response"
	KindTruncated   = "truncated"
	KindTimeout     = "timeout"
	KindCanceled    = "canceled"
)

// KindOf buckets a Generate error for logs and reports. Unrecognised errors
// count as unavailable.
func KindOf(err error) string {
	var (
		rl  *ErrRateLimit
		inv *ErrInvalidResponse
		tr  *ErrMaxTokensExceeded
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &tr):
		return KindTruncated
	case errors.As(err, &inv):
		return KindInvalid
	case errors.As(err, &rl):
		return KindRateLimit
	default:
		return KindUnavailable
	}
}
