package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Provider turns a text prompt into generated text, bounded by the
// provider's per-call timeout. Implementations must be safe for
// concurrent use.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindTimeout
	KindStatus
	KindEmpty
)

// Error classifies a failed provider call so the generation loop can
// decide whether the failure consumes a retry attempt.
type Error struct {
	Provider string
	Kind     ErrorKind
	Status   int
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("%s: inference call timed out: %v", e.Provider, e.Err)
	case KindStatus:
		return fmt.Sprintf("%s: inference call failed with status %d: %v", e.Provider, e.Status, e.Err)
	case KindEmpty:
		return fmt.Sprintf("%s: inference returned empty output", e.Provider)
	default:
		return fmt.Sprintf("%s: inference transport error: %v", e.Provider, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify maps an HTTP client error onto the taxonomy. Context
// cancellation and deadline expiry count as timeouts.
func classify(provider string, err error) *Error {
	kind := KindTransport
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = KindTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		kind = KindTimeout
	}
	return &Error{Provider: provider, Kind: kind, Err: err}
}

func statusError(provider string, status int, body string) *Error {
	return &Error{
		Provider: provider,
		Kind:     KindStatus,
		Status:   status,
		Err:      fmt.Errorf("status=%d body=%s", status, body),
	}
}
