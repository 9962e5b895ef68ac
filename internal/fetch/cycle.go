package fetch

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"marketwatch/internal/market"
	"marketwatch/internal/observ"
	"marketwatch/internal/provider"
)

// Kind classifies a cycle outcome.
type Kind string

const (
	// Fresh means at least one field produced a new value this cycle.
	Fresh Kind = "fresh"
	// Carried means every field failed but prior history was duplicated
	// to keep the visible series continuous.
	Carried Kind = "carried"
	// None means every field failed and there was no history to carry;
	// nothing should be appended.
	None Kind = "none"
)

// Outcome is the result of one acquisition cycle. The caller owns the
// store append; Run itself never mutates the store.
type Outcome struct {
	Kind       Kind
	Sample     market.Sample
	CycleID    string
	Attempts   int
	Provenance map[market.Field]string // field -> provider that supplied the fresh value
}

// Config tunes a cycle. Zero values take defaults; Sleep and Jitter
// exist so tests can observe backoff without waiting it out.
type Config struct {
	MaxAttempts int
	Sleep       func(time.Duration)
	Jitter      func() time.Duration
	Now         func() time.Time
}

// DefaultMaxAttempts is the retry budget for one cycle.
const DefaultMaxAttempts = 3

// Cycle runs the fetch-with-retry algorithm across every field's
// provider chain.
type Cycle struct {
	store  *market.Store
	chains []provider.Chain

	maxAttempts int
	sleep       func(time.Duration)
	jitter      func() time.Duration
	now         func() time.Time
}

// New builds a cycle over the given chains, one per field.
func New(store *market.Store, chains []provider.Chain, cfg Config) *Cycle {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	if cfg.Jitter == nil {
		cfg.Jitter = func() time.Duration {
			return time.Duration(rand.Int63n(int64(500 * time.Millisecond)))
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cs := make([]provider.Chain, len(chains))
	copy(cs, chains)
	return &Cycle{
		store:       store,
		chains:      cs,
		maxAttempts: cfg.MaxAttempts,
		sleep:       cfg.Sleep,
		jitter:      cfg.Jitter,
		now:         cfg.Now,
	}
}

// Run executes one acquisition cycle: up to MaxAttempts passes over
// every chain, stopping as soon as any field yields a value, with
// jittered backoff between fully failed passes. Degradation ladder:
// fresh values where available, per-field carry-forward for the rest;
// a verbatim duplicate of the last sample when nothing came back; no
// sample at all when there is no history either.
func (c *Cycle) Run(ctx context.Context) Outcome {
	id := uuid.NewString()
	start := c.now()

	fresh := make(map[market.Field]float64)
	prov := make(map[market.Field]string)

	attempts := 0
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		attempts = attempt
		for _, ch := range c.chains {
			v, results, ok := ch.Resolve(ctx)
			for _, r := range results {
				if r.Err != nil {
					observ.LogError("provider_attempt_failed", r.Err, map[string]any{
						"cycle_id": id,
						"field":    string(ch.Field()),
						"provider": r.Provider,
						"attempt":  attempt,
					})
				}
			}
			if ok {
				fresh[ch.Field()] = v
				prov[ch.Field()] = results[len(results)-1].Provider
			}
		}
		if len(fresh) > 0 {
			break
		}
		if attempt < c.maxAttempts {
			d := time.Duration(attempt)*time.Second + c.jitter()
			observ.Log("fetch_backoff", map[string]any{
				"cycle_id": id,
				"attempt":  attempt,
				"sleep_ms": d.Milliseconds(),
			})
			c.sleep(d)
		}
	}

	observ.RecordDuration("fetch_cycle", time.Since(start), nil)

	if len(fresh) > 0 {
		sample := market.NewSample(start)
		for _, ch := range c.chains {
			f := ch.Field()
			if v, ok := fresh[f]; ok {
				sample.Values[f] = v
				continue
			}
			if v, ok := c.store.LastValue(f); ok {
				sample.Values[f] = v
			}
		}
		observ.Log("cycle_complete", map[string]any{
			"cycle_id":     id,
			"outcome":      string(Fresh),
			"attempts":     attempts,
			"fields_fresh": len(fresh),
		})
		return Outcome{Kind: Fresh, Sample: sample, CycleID: id, Attempts: attempts, Provenance: prov}
	}

	if last, ok := c.store.Latest(); ok {
		observ.Log("cycle_complete", map[string]any{
			"cycle_id": id,
			"outcome":  string(Carried),
			"attempts": attempts,
		})
		return Outcome{Kind: Carried, Sample: last, CycleID: id, Attempts: attempts, Provenance: prov}
	}

	observ.Log("cycle_complete", map[string]any{
		"cycle_id": id,
		"outcome":  string(None),
		"attempts": attempts,
	})
	return Outcome{Kind: None, CycleID: id, Attempts: attempts, Provenance: prov}
}
