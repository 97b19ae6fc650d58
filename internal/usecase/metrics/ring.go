package metrics

import "deckhand/internal/domain"

// ring is a fixed-capacity circular buffer of metric samples. Appends evict
// the oldest sample on overflow. One writer per ring; reads copy.
type ring struct {
	buf   []domain.MetricSample
	start int
	count int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]domain.MetricSample, capacity)}
}

func (r *ring) append(s domain.MetricSample) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = s
		r.count++
		return
	}
	// Full: overwrite the oldest slot and advance the window.
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

// all returns the retained samples oldest first.
func (r *ring) all() []domain.MetricSample {
	out := make([]domain.MetricSample, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
