package poller

import (
	"fmt"
	"sync/atomic"
	"time"
)

// State is the process-wide poll state: the running flag and the
// current cadence. Both sides touch it concurrently (the loop and the
// control surface), so the fields are atomics rather than being
// guarded by the store's lock.
type State struct {
	running     atomic.Bool
	intervalSec atomic.Int64
}

// NewState validates and seeds the cadence.
func NewState(intervalSec int) (*State, error) {
	s := &State{}
	if err := s.SetInterval(intervalSec); err != nil {
		return nil, err
	}
	return s, nil
}

// Running reports whether the scheduling loop should keep going.
func (s *State) Running() bool { return s.running.Load() }

// swapRunning sets the flag and reports the previous value.
func (s *State) swapRunning(v bool) bool { return s.running.Swap(v) }

// Interval returns the current cadence. The loop re-reads this every
// sleep step, so updates take effect mid-wait.
func (s *State) Interval() time.Duration {
	return time.Duration(s.intervalSec.Load()) * time.Second
}

// IntervalSeconds returns the cadence in whole seconds.
func (s *State) IntervalSeconds() int { return int(s.intervalSec.Load()) }

// SetInterval updates the cadence. Non-positive values are rejected
// rather than silently accepted.
func (s *State) SetInterval(sec int) error {
	if sec <= 0 {
		return fmt.Errorf("poll interval must be positive, got %d", sec)
	}
	s.intervalSec.Store(int64(sec))
	return nil
}
