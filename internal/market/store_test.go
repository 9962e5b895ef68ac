package market

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, capacity int) *Store {
	t.Helper()
	st, err := NewStore(DefaultFields(), capacity)
	require.NoError(t, err)
	return st
}

func sampleWith(at time.Time, vals map[Field]float64) Sample {
	s := NewSample(at)
	for f, v := range vals {
		s.Values[f] = v
	}
	return s
}

func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(nil, 10)
	assert.Error(t, err)

	_, err = NewStore(DefaultFields(), 0)
	assert.Error(t, err)

	_, err = NewStore(DefaultFields(), -1)
	assert.Error(t, err)

	_, err = NewStore([]Field{FieldNDX, FieldNDX}, 10)
	assert.Error(t, err)
}

func TestStore_EmptyReads(t *testing.T) {
	st := testStore(t, 3)

	_, ok := st.Latest()
	assert.False(t, ok)
	assert.Empty(t, st.Snapshot())
	assert.Equal(t, 0, st.Len())

	_, ok = st.LastValue(FieldNDX)
	assert.False(t, ok)
}

func TestStore_CapacityBound(t *testing.T) {
	st := testStore(t, 3)
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		st.Append(sampleWith(base.Add(time.Duration(i)*time.Minute), map[Field]float64{
			FieldNDX: 100 + float64(i),
		}))
		want := i + 1
		if want > 3 {
			want = 3
		}
		assert.Equal(t, want, st.Len())
	}

	// Once at capacity, length stays exactly at capacity.
	snap := st.Snapshot()
	require.Len(t, snap, 3)
	// Oldest evicted first: last three appends survive.
	assert.Equal(t, 107.0, snap[0].Values[FieldNDX])
	assert.Equal(t, 109.0, snap[2].Values[FieldNDX])
}

func TestStore_EvictionExample(t *testing.T) {
	// Capacity 3; values [100, carried 100, 102] then 105 evicts the first.
	st := testStore(t, 3)
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

	st.Append(sampleWith(base, map[Field]float64{FieldNDX: 100}))
	st.Append(sampleWith(base.Add(time.Minute), map[Field]float64{FieldNDX: 100}))
	st.Append(sampleWith(base.Add(2*time.Minute), map[Field]float64{FieldNDX: 102}))

	snap := st.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []float64{100, 100, 102}, ndxValues(snap))

	st.Append(sampleWith(base.Add(3*time.Minute), map[Field]float64{FieldNDX: 105}))
	snap = st.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []float64{100, 102, 105}, ndxValues(snap))
}

func ndxValues(samples []Sample) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		if v, ok := s.Value(FieldNDX); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestStore_LockStepAcrossPartialSamples(t *testing.T) {
	st := testStore(t, 5)
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

	// Sample missing the FX fields entirely.
	st.Append(sampleWith(base, map[Field]float64{FieldNDX: 100, FieldGSPC: 50}))
	// Sample missing everything.
	st.Append(NewSample(base.Add(time.Minute)))

	snap := st.Snapshot()
	require.Len(t, snap, 2)

	// Every sample in the snapshot covers the same tick set; missing
	// fields are simply absent, not misaligned.
	_, ok := snap[0].Value(FieldUSDBuy)
	assert.False(t, ok)
	_, ok = snap[1].Value(FieldNDX)
	assert.False(t, ok)
	assert.True(t, snap[1].At.After(snap[0].At))
}

func TestStore_LastValueScansPastEmptySlots(t *testing.T) {
	st := testStore(t, 5)
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

	st.Append(sampleWith(base, map[Field]float64{FieldUSDBuy: 7.12}))
	st.Append(sampleWith(base.Add(time.Minute), map[Field]float64{FieldNDX: 100}))

	v, ok := st.LastValue(FieldUSDBuy)
	require.True(t, ok)
	assert.Equal(t, 7.12, v)
}

func TestStore_ReadsReturnCopies(t *testing.T) {
	st := testStore(t, 5)
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	st.Append(sampleWith(base, map[Field]float64{FieldNDX: 100}))

	latest, ok := st.Latest()
	require.True(t, ok)
	latest.Values[FieldNDX] = -1

	snap := st.Snapshot()
	snap[0].Values[FieldNDX] = -2

	again, _ := st.Latest()
	assert.Equal(t, 100.0, again.Values[FieldNDX])
}

func TestStore_ConcurrentAppendsAndReads(t *testing.T) {
	st := testStore(t, 50)
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				st.Append(sampleWith(base.Add(time.Duration(w*100+i)*time.Second), map[Field]float64{
					FieldNDX:     float64(i),
					FieldUSDBuy:  7.1,
					FieldUSDSell: 7.2,
				}))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				snap := st.Snapshot()
				assert.LessOrEqual(t, len(snap), 50)
				st.Latest()
				st.LastValue(FieldUSDSell)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, st.Len())
}

func TestSample_CloneAndEqual(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	s := sampleWith(base, map[Field]float64{FieldNDX: 100, FieldUSDBuy: 7.1})

	c := s.Clone()
	assert.True(t, s.Equal(c))

	c.Values[FieldNDX] = 101
	assert.False(t, s.Equal(c))
	assert.Equal(t, 100.0, s.Values[FieldNDX])
}
