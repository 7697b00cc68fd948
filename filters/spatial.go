package filters

import (
	"math"

	"github.com/calyptra/depthpipe/frame"
)

// Spatial smoothing defaults. Alpha is the smoothing weight toward the
// current sample; delta is the edge-preservation threshold in sample units,
// beyond which no smoothing is applied.
const (
	spatialAlpha = 0.5
	spatialDelta = 20.0
)

// spatial is an edge-preserving one-dimensional smoother run left-to-right
// then right-to-left over every row. Holes (zero samples) are skipped and
// break the smoothing run.
type spatial struct {
	alpha float64
	delta float64
}

// NewSpatial returns the spatial smoothing stage with default parameters.
func NewSpatial() Stage {
	return &spatial{alpha: spatialAlpha, delta: spatialDelta}
}

func (s *spatial) Name() string { return StageSpatial }
func (s *spatial) Reset()       {}

func (s *spatial) Process(f *frame.Frame) (*frame.Frame, error) {
	v := f.Video
	if err := checkSmoothable(v); err != nil {
		return nil, err
	}
	for y := 0; y < v.Height; y++ {
		row := y * v.Width
		s.smoothRun(v, row, row+v.Width-1, 1)
		s.smoothRun(v, row+v.Width-1, row, -1)
	}
	return f, nil
}

// smoothRun applies the recursive filter across one row in the given
// direction, in place.
func (s *spatial) smoothRun(v *frame.Video, from, to, step int) {
	prev := sampleAt(v, from)
	for i := from + step; step > 0 && i <= to || step < 0 && i >= to; i += step {
		cur := sampleAt(v, i)
		if cur == 0 || prev == 0 {
			prev = cur
			continue
		}
		if math.Abs(cur-prev) > s.delta {
			prev = cur
			continue
		}
		smoothed := s.alpha*cur + (1-s.alpha)*prev
		storeAt(v, i, smoothed)
		prev = smoothed
	}
}
