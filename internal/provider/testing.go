package provider

import (
	"context"
	"sync"

	"marketwatch/internal/market"
)

// Test doubles shared by the provider, fetch and poller tests.

// StaticProvider always returns the same value.
type StaticProvider struct {
	ProviderName string
	V            float64

	mu    sync.Mutex
	calls int
}

func (p *StaticProvider) Name() string { return p.ProviderName }

func (p *StaticProvider) Fetch(ctx context.Context, field market.Field) (float64, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.V, nil
}

// Calls reports how many times Fetch ran.
func (p *StaticProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// FailingProvider always fails with the given error kind.
type FailingProvider struct {
	ProviderName string
	Kind         ErrorKind

	mu    sync.Mutex
	calls int
}

func (p *FailingProvider) Name() string { return p.ProviderName }

func (p *FailingProvider) Fetch(ctx context.Context, field market.Field) (float64, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	kind := p.Kind
	if kind == "" {
		kind = ErrNoData
	}
	return 0, &Error{Kind: kind, Provider: p.ProviderName, Field: field, Message: "induced failure"}
}

func (p *FailingProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// PanicProvider panics on every call, for swallow-and-continue tests.
type PanicProvider struct {
	ProviderName string
}

func (p *PanicProvider) Name() string { return p.ProviderName }

func (p *PanicProvider) Fetch(ctx context.Context, field market.Field) (float64, error) {
	panic("induced panic")
}

// SequenceProvider replays scripted outcomes in order, then repeats the
// last one. A nil entry means failure.
type SequenceProvider struct {
	ProviderName string
	Script       []*float64

	mu    sync.Mutex
	calls int
}

func (p *SequenceProvider) Name() string { return p.ProviderName }

func (p *SequenceProvider) Fetch(ctx context.Context, field market.Field) (float64, error) {
	p.mu.Lock()
	i := p.calls
	p.calls++
	p.mu.Unlock()
	if len(p.Script) == 0 {
		return 0, NewNoDataError(p.ProviderName, field, "empty script")
	}
	if i >= len(p.Script) {
		i = len(p.Script) - 1
	}
	if p.Script[i] == nil {
		return 0, NewNoDataError(p.ProviderName, field, "scripted failure")
	}
	return *p.Script[i], nil
}

func (p *SequenceProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Ptr is a convenience for building SequenceProvider scripts.
func Ptr(v float64) *float64 { return &v }
