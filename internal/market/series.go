package market

// boundedSeries holds the most recent observations for one field,
// oldest first, evicting from the front once at capacity. A slot with
// ok=false records a tick where the field had no value.
type boundedSeries struct {
	capacity int
	vals     []float64
	ok       []bool
}

func newBoundedSeries(capacity int) *boundedSeries {
	return &boundedSeries{
		capacity: capacity,
		vals:     make([]float64, 0, capacity),
		ok:       make([]bool, 0, capacity),
	}
}

func (s *boundedSeries) push(v float64, present bool) {
	if len(s.vals) == s.capacity {
		s.vals = append(s.vals[:0], s.vals[1:]...)
		s.ok = append(s.ok[:0], s.ok[1:]...)
	}
	s.vals = append(s.vals, v)
	s.ok = append(s.ok, present)
}

func (s *boundedSeries) at(i int) (float64, bool) {
	return s.vals[i], s.ok[i]
}

// last returns the newest present value, scanning backwards past empty
// slots. Used for per-field carry-forward.
func (s *boundedSeries) last() (float64, bool) {
	for i := len(s.vals) - 1; i >= 0; i-- {
		if s.ok[i] {
			return s.vals[i], true
		}
	}
	return 0, false
}
