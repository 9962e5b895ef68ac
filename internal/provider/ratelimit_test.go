package provider

import (
	"context"
	"testing"

	"marketwatch/internal/market"
)

func TestWithRateLimit_Delegates(t *testing.T) {
	inner := &StaticProvider{ProviderName: "inner", V: 9.5}
	p := WithRateLimit(inner, 60, 1)

	if p.Name() != "inner" {
		t.Errorf("Name() = %q, want inner", p.Name())
	}
	v, err := p.Fetch(context.Background(), market.FieldNDX)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if v != 9.5 {
		t.Errorf("Fetch() = %v, want 9.5", v)
	}
}

func TestWithRateLimit_DepletedBucketFailsFast(t *testing.T) {
	inner := &StaticProvider{ProviderName: "inner", V: 1}
	p := WithRateLimit(inner, 1, 1) // one token, refill 1/min

	if _, err := p.Fetch(context.Background(), market.FieldNDX); err != nil {
		t.Fatalf("first Fetch() error = %v", err)
	}
	_, err := p.Fetch(context.Background(), market.FieldNDX)
	if err == nil {
		t.Fatal("second Fetch() error = nil, want rate limit error")
	}
	if KindOf(err) != ErrRateLimit {
		t.Errorf("error kind = %v, want %v", KindOf(err), ErrRateLimit)
	}
	if inner.Calls() != 1 {
		t.Errorf("inner called %d times, want 1", inner.Calls())
	}
}

func TestWithRateLimit_DisabledPassthrough(t *testing.T) {
	inner := &StaticProvider{ProviderName: "inner", V: 1}
	p := WithRateLimit(inner, 0, 0)
	if p != Provider(inner) {
		t.Error("expected unwrapped provider when rate is non-positive")
	}
}
