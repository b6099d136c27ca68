package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client abstracts one text-generation vendor. Implementations perform a
// single outbound call per Generate invocation, never retry, and return every
// failure mode as a *ProviderError value rather than panicking.
type Client interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// FailureKind classifies a provider-local failure.
type FailureKind string

const (
	FailureNetwork     FailureKind = "network"
	FailureTimeout     FailureKind = "timeout"
	FailureAuth        FailureKind = "auth"
	FailureBadResponse FailureKind = "malformed_response"
)

// ProviderError is the only error type a Client returns. It carries the
// provider name and a failure kind so callers can absorb and count failures
// without knowing vendor specifics.
type ProviderError struct {
	Provider string
	Kind     FailureKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AsProviderError unwraps err into a *ProviderError if possible.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// ClassifyTransport maps an http.Client transport error to a ProviderError,
// treating context expiry as a timeout.
func ClassifyTransport(provider string, ctx context.Context, err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) || (ctx != nil && ctx.Err() != nil) {
		return &ProviderError{Provider: provider, Kind: FailureTimeout, Err: err}
	}
	return &ProviderError{Provider: provider, Kind: FailureNetwork, Err: err}
}

// ClassifyStatus maps a non-2xx vendor status to a ProviderError.
func ClassifyStatus(provider string, status int, body string) *ProviderError {
	kind := FailureBadResponse
	if status == 401 || status == 403 {
		kind = FailureAuth
	}
	return &ProviderError{Provider: provider, Kind: kind, Err: fmt.Errorf("status %d: %s", status, Truncate(body, 200))}
}

// Truncate shortens s for log and error payloads.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
