package pipeline

import (
	"time"

	"github.com/calyptra/depthpipe/stream"
	"github.com/calyptra/depthpipe/utils"
)

const rateWindow = 30

// rateTracker estimates a channel's delivery frequency from a rolling window
// of inter-arrival gaps.
type rateTracker struct {
	last time.Time
	gaps *utils.RollingAverage
}

func newRateTracker() *rateTracker {
	return &rateTracker{gaps: utils.NewRollingAverage(rateWindow)}
}

func (r *rateTracker) observe(now time.Time) {
	if !r.last.IsZero() {
		r.gaps.Add(int(now.Sub(r.last).Microseconds()))
	}
	r.last = now
}

// hz returns the observed frequency, 0 until two arrivals have been seen.
func (r *rateTracker) hz() float64 {
	gap := r.gaps.Average()
	if gap <= 0 {
		return 0
	}
	return float64(time.Second/time.Microsecond) / float64(gap)
}

// observeRate records one arrival on a channel. Must be called with s.mu
// held.
func (s *Session) observeRate(key stream.Key) {
	tr, ok := s.rates[key]
	if !ok {
		tr = newRateTracker()
		s.rates[key] = tr
	}
	tr.observe(s.clk.Now())
}

// Rates reports the observed per-channel delivery frequency in hertz,
// for diagnostics.
func (s *Session) Rates() map[stream.Key]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[stream.Key]float64, len(s.rates))
	for key, tr := range s.rates {
		out[key] = tr.hz()
	}
	return out
}
