package mediacms

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNoToken     = errors.New("mediacms: no media token in url")
	ErrNotFound    = errors.New("mediacms: media not found")
	ErrUnavailable = errors.New("mediacms: host unreachable or transport failure")
	ErrTimeout     = errors.New("mediacms: request timed out")
	ErrUpstream    = errors.New("mediacms: unexpected HTTP status")
	ErrBadResponse = errors.New("mediacms: invalid response format")
	ErrCircuitOpen = errors.New("mediacms: circuit breaker is open")
	ErrRateLimited = errors.New("mediacms: outbound rate limit exceeded")
)

// Error wraps a sentinel with the request context it occurred in.
type Error struct {
	Sentinel error
	URL      string
	Status   int
	Err      error // lower-level cause (net.Error, json.SyntaxError...)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%v: %s", e.Sentinel, e.URL)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// Kind returns a short label for metrics and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNoToken):
		return "no_token"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrUpstream):
		return "upstream_status"
	case errors.Is(err, ErrBadResponse):
		return "bad_response"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "other"
	}
}
