package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketwatch/internal/fetch"
	"marketwatch/internal/market"
	"marketwatch/internal/observ"
)

// DefaultIntervalSeconds is the scheduled cadence when config is silent.
const DefaultIntervalSeconds = 60

// defaultStep is the cancellation granularity: the idle wait re-checks
// the running flag and the interval this often.
const defaultStep = time.Second

// defaultRetryDelay is the short fixed wait before the next cycle when
// a cycle produced nothing and there was no history to carry.
const defaultRetryDelay = 5 * time.Second

// Event is what the observer sees after every cycle. Sample and
// Snapshot are copies; the observer must not block for long and may be
// invoked concurrently when manual triggers overlap the schedule.
type Event struct {
	Kind     fetch.Kind
	Sample   market.Sample   // set when a sample was appended
	Snapshot []market.Sample // full history copy, oldest first; set when appended
	Status   string          // human-readable status line for a display
}

// Observer receives cycle events. A nil observer is allowed.
type Observer func(Event)

// Config tunes the poller. Zero values take defaults.
type Config struct {
	IntervalSeconds int
	Step            time.Duration // sleep granularity, default 1s
	RetryDelay      time.Duration // wait after an empty-history failure
}

// Poller owns the background scheduling loop: run a cycle, append the
// result, notify the observer, then cooperatively sleep. Stop is
// cooperative — an in-flight fetch is never interrupted, the loop just
// exits at the next check point.
type Poller struct {
	state    *State
	cycle    *fetch.Cycle
	store    *market.Store
	observer Observer

	step       time.Duration
	retryDelay time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New wires a poller over the shared store and cycle.
func New(store *market.Store, cycle *fetch.Cycle, observer Observer, cfg Config) (*Poller, error) {
	if cfg.IntervalSeconds == 0 {
		cfg.IntervalSeconds = DefaultIntervalSeconds
	}
	state, err := NewState(cfg.IntervalSeconds)
	if err != nil {
		return nil, err
	}
	if cfg.Step <= 0 {
		cfg.Step = defaultStep
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Poller{
		state:      state,
		cycle:      cycle,
		store:      store,
		observer:   observer,
		step:       cfg.Step,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Running reports whether the scheduled loop is active.
func (p *Poller) Running() bool { return p.state.Running() }

// IntervalSeconds returns the current cadence.
func (p *Poller) IntervalSeconds() int { return p.state.IntervalSeconds() }

// SetInterval updates the cadence; it takes effect during the current
// sleep phase, which re-reads the interval every step.
func (p *Poller) SetInterval(sec int) error {
	if err := p.state.SetInterval(sec); err != nil {
		return err
	}
	observ.Log("poller_interval_set", map[string]any{"interval_s": sec})
	return nil
}

// Start launches the scheduling loop. Starting an already running
// poller is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.swapRunning(true) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
	observ.SetGauge("poller_running", 1, nil)
	observ.Log("poller_started", map[string]any{"interval_s": p.state.IntervalSeconds()})
}

// Stop asks the loop to exit; the loop observes the flag within one
// sleep step. An in-flight fetch is left to finish. Stopping a stopped
// poller is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.swapRunning(false) {
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	observ.SetGauge("poller_running", 0, nil)
	observ.Log("poller_stopped", nil)
}

// Done returns a channel closed when the loop has fully exited, for
// callers that want to wait after Stop.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return p.done
}

// TriggerNow runs one cycle immediately on its own goroutine, sharing
// the store and its lock with the scheduled loop. It does not reset
// the scheduled timer.
func (p *Poller) TriggerNow() {
	observ.IncCounter("poller_manual_triggers_total", nil)
	go func() {
		out := p.cycle.Run(context.Background())
		p.handle(out)
	}()
}

// Latest returns a copy of the most recent sample.
func (p *Poller) Latest() (market.Sample, bool) { return p.store.Latest() }

// Snapshot returns a full history copy, oldest first.
func (p *Poller) Snapshot() []market.Sample { return p.store.Snapshot() }

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	// ctx belongs to this loop instance: a Stop/Start pair cancels the
	// old loop even if the running flag has been raised again, so at
	// most one scheduled loop survives past its next check point.
	for ctx.Err() == nil && p.state.Running() {
		out := p.cycle.Run(context.Background())
		p.handle(out)

		if out.Kind == fetch.None {
			p.wait(ctx, func() time.Duration { return p.retryDelay })
		} else {
			p.wait(ctx, p.state.Interval)
		}
	}
}

// wait sleeps up to target(), one step at a time, re-reading target
// and the running flag each step so interval changes and Stop are
// observed at step granularity.
func (p *Poller) wait(ctx context.Context, target func() time.Duration) {
	var slept time.Duration
	for p.state.Running() {
		remaining := target() - slept
		if remaining <= 0 {
			return
		}
		step := p.step
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(step):
			slept += step
		}
	}
}

// handle applies one outcome: append and notify, or report failure.
// A fully failed cycle is a status event, never fatal.
func (p *Poller) handle(out fetch.Outcome) {
	switch out.Kind {
	case fetch.Fresh, fetch.Carried:
		p.store.Append(out.Sample)
		observ.IncCounter(fmt.Sprintf("fetch_cycles_%s_total", out.Kind), nil)

		snap := p.store.Snapshot()
		status := fmt.Sprintf("updated %s, %d points", out.Sample.At.Format("15:04:05"), len(snap))
		if out.Kind == fetch.Carried {
			status = fmt.Sprintf("no fresh data, carried last values (%d points)", len(snap))
		}
		p.notify(Event{Kind: out.Kind, Sample: out.Sample.Clone(), Snapshot: snap, Status: status})
	case fetch.None:
		observ.IncCounter("fetch_cycles_failed_total", nil)
		status := fmt.Sprintf("fetch failed at %s, retrying shortly", time.Now().Format("15:04:05"))
		p.notify(Event{Kind: fetch.None, Status: status})
	}
}

func (p *Poller) notify(ev Event) {
	if p.observer == nil {
		return
	}
	p.observer(ev)
}
