package market

import (
	"fmt"
	"sync"
	"time"

	"marketwatch/internal/observ"
)

// DefaultCapacity is how many points each series keeps before evicting
// the oldest.
const DefaultCapacity = 120

// Store is the single shared mutable resource of the watch loop: one
// bounded series per field plus the shared timestamp series, all kept
// in lock-step. One mutex guards every operation; it is held only for
// the duration of an in-memory copy or append, never across a network
// call. Reads return copies, so a renderer can never observe a
// partially written tick.
type Store struct {
	mu       sync.Mutex
	fields   []Field
	capacity int
	times    []time.Time
	series   map[Field]*boundedSeries
}

// NewStore creates a store tracking the given fields. Capacity must be
// positive and the field set non-empty.
func NewStore(fields []Field, capacity int) (*Store, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("store: empty field set")
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("store: capacity must be positive, got %d", capacity)
	}
	seen := make(map[Field]bool, len(fields))
	series := make(map[Field]*boundedSeries, len(fields))
	fs := make([]Field, 0, len(fields))
	for _, f := range fields {
		if seen[f] {
			return nil, fmt.Errorf("store: duplicate field %q", f)
		}
		seen[f] = true
		fs = append(fs, f)
		series[f] = newBoundedSeries(capacity)
	}
	return &Store{
		fields:   fs,
		capacity: capacity,
		times:    make([]time.Time, 0, capacity),
		series:   series,
	}, nil
}

// Fields returns the tracked field set in order.
func (st *Store) Fields() []Field {
	out := make([]Field, len(st.fields))
	copy(out, st.fields)
	return out
}

// Capacity returns the per-series point limit.
func (st *Store) Capacity() int { return st.capacity }

// Append pushes one sample across every series as a unit. Fields the
// sample does not carry are recorded as empty slots, keeping all
// series the same length.
func (st *Store) Append(s Sample) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.times) == st.capacity {
		st.times = append(st.times[:0], st.times[1:]...)
		observ.IncCounter("store_evictions_total", nil)
	}
	st.times = append(st.times, s.At)
	for _, f := range st.fields {
		v, ok := s.Values[f]
		st.series[f].push(v, ok)
	}
	observ.SetGauge("store_points", float64(len(st.times)), nil)
}

// Len returns the number of samples currently held.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.times)
}

// Latest returns a copy of the most recent sample, or false if the
// store is empty.
func (st *Store) Latest() (Sample, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := len(st.times)
	if n == 0 {
		return Sample{}, false
	}
	return st.sampleAt(n - 1), true
}

// LastValue returns the most recent present value for one field,
// scanning past empty slots. Used for per-field carry-forward.
func (st *Store) LastValue(f Field) (float64, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	ser, ok := st.series[f]
	if !ok {
		return 0, false
	}
	return ser.last()
}

// Snapshot returns a full copy of the current history, oldest first.
func (st *Store) Snapshot() []Sample {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]Sample, len(st.times))
	for i := range st.times {
		out[i] = st.sampleAt(i)
	}
	return out
}

// sampleAt rebuilds the sample at index i from the column series.
// Caller must hold the lock.
func (st *Store) sampleAt(i int) Sample {
	s := NewSample(st.times[i])
	for _, f := range st.fields {
		if v, ok := st.series[f].at(i); ok {
			s.Values[f] = v
		}
	}
	return s
}
