package market

import "time"

// Field identifies one tracked quantity (an index level or an FX rate leg).
type Field string

const (
	FieldNDX     Field = "ndx"      // Nasdaq-100 index level
	FieldGSPC    Field = "gspc"     // S&P 500 index level
	FieldUSDBuy  Field = "usd_buy"  // BOC USD/CNY bank buy rate
	FieldUSDSell Field = "usd_sell" // BOC USD/CNY bank sell rate
)

// DefaultFields returns the field set tracked by the watch loop, in
// display order.
func DefaultFields() []Field {
	return []Field{FieldNDX, FieldGSPC, FieldUSDBuy, FieldUSDSell}
}

// Sample is one tick's observation: a timestamp plus at most one value
// per field. A field absent from Values had no observation this tick.
// Samples are immutable once appended to a Store.
type Sample struct {
	At     time.Time         `json:"at"`
	Values map[Field]float64 `json:"values"`
}

// NewSample returns an empty sample stamped at t.
func NewSample(t time.Time) Sample {
	return Sample{At: t, Values: make(map[Field]float64)}
}

// Value returns the observation for f, if present.
func (s Sample) Value(f Field) (float64, bool) {
	v, ok := s.Values[f]
	return v, ok
}

// Clone returns a deep copy so callers can hold a sample without
// aliasing the store's data.
func (s Sample) Clone() Sample {
	out := Sample{At: s.At}
	if s.Values != nil {
		out.Values = make(map[Field]float64, len(s.Values))
		for f, v := range s.Values {
			out.Values[f] = v
		}
	}
	return out
}

// Equal reports whether two samples carry the same timestamp and the
// same per-field values.
func (s Sample) Equal(o Sample) bool {
	if !s.At.Equal(o.At) || len(s.Values) != len(o.Values) {
		return false
	}
	for f, v := range s.Values {
		ov, ok := o.Values[f]
		if !ok || ov != v {
			return false
		}
	}
	return true
}
