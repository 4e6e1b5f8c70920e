// Package telemetry implements the live polling loop feeding the
// dashboard graph: a fixed-interval fetch whose samples rotate through
// fixed-length per-series buffers and land in a local archive.
package telemetry

// Sample is one buffer slot. Valid=false is an explicit gap (a timed-out
// probe, a counter without a baseline yet) and is distinct from a zero
// value: the graph renders it as a break, not a drop to zero.
type Sample struct {
	Value float64
	Valid bool
}

// Gap is the no-sample marker.
var Gap = Sample{}

// Ring is a fixed-capacity rolling buffer. Its length never changes; a
// push drops the oldest slot and appends the newest.
type Ring struct {
	buf []Sample
}

// NewRing returns a ring of the given capacity, pre-filled with gaps.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 30
	}
	return &Ring{buf: make([]Sample, capacity)}
}

// Push rotates the buffer: oldest out, s in.
func (r *Ring) Push(s Sample) {
	copy(r.buf, r.buf[1:])
	r.buf[len(r.buf)-1] = s
}

// Len returns the constant buffer length.
func (r *Ring) Len() int {
	return len(r.buf)
}

// Samples returns a copy of the buffer, oldest first.
func (r *Ring) Samples() []Sample {
	out := make([]Sample, len(r.buf))
	copy(out, r.buf)
	return out
}

// Last returns the newest slot.
func (r *Ring) Last() Sample {
	return r.buf[len(r.buf)-1]
}

// Values returns the valid values only, oldest first.
func (r *Ring) Values() []float64 {
	out := make([]float64, 0, len(r.buf))
	for _, s := range r.buf {
		if s.Valid {
			out = append(out, s.Value)
		}
	}
	return out
}
