package provider

import (
	"context"
	"fmt"

	"marketwatch/internal/market"
)

// Provider is one data-source attempt for a field. Implementations are
// expected to bound their own latency (an http.Client timeout or a
// context deadline) and to return a typed *Error on failure so the
// chain can aggregate diagnostics.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, field market.Field) (float64, error)
}

// ErrorKind classifies provider failures for diagnostics. Failures are
// never fatal; the kind only feeds logs and counters.
type ErrorKind string

const (
	ErrNetwork   ErrorKind = "network"
	ErrRateLimit ErrorKind = "rate_limit"
	ErrParse     ErrorKind = "parse"
	ErrNoData    ErrorKind = "no_data"
	ErrPanic     ErrorKind = "panic"
)

// Error is a classified provider failure.
type Error struct {
	Kind     ErrorKind
	Provider string
	Field    market.Field
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error from %s for %s: %s (%v)", e.Kind, e.Provider, e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error from %s for %s: %s", e.Kind, e.Provider, e.Field, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func NewNetworkError(provider string, field market.Field, message string, cause error) *Error {
	return &Error{Kind: ErrNetwork, Provider: provider, Field: field, Message: message, Cause: cause}
}

func NewRateLimitError(provider string, field market.Field, message string) *Error {
	return &Error{Kind: ErrRateLimit, Provider: provider, Field: field, Message: message}
}

func NewParseError(provider string, field market.Field, message string, cause error) *Error {
	return &Error{Kind: ErrParse, Provider: provider, Field: field, Message: message, Cause: cause}
}

func NewNoDataError(provider string, field market.Field, message string) *Error {
	return &Error{Kind: ErrNoData, Provider: provider, Field: field, Message: message}
}

// KindOf extracts the error kind, defaulting to network for untyped
// errors from lower layers.
func KindOf(err error) ErrorKind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ErrNetwork
}

// Result records one provider call inside a chain resolution.
type Result struct {
	Provider string
	Value    float64
	OK       bool
	Err      error
}
