package filters

import (
	"math"

	"github.com/calyptra/depthpipe/frame"
)

// Temporal smoothing defaults.
const (
	temporalAlpha = 0.4
	temporalDelta = 20.0
)

// temporal blends each pixel with its own history from previous cycles. The
// history is private to the stage and is discarded whenever the frame
// geometry changes or the stage is reset.
type temporal struct {
	alpha float64
	delta float64

	width, height int
	history       []float64
}

// NewTemporal returns the temporal smoothing stage with default parameters.
func NewTemporal() Stage {
	return &temporal{alpha: temporalAlpha, delta: temporalDelta}
}

func (s *temporal) Name() string { return StageTemporal }

func (s *temporal) Reset() {
	s.history = nil
	s.width, s.height = 0, 0
}

func (s *temporal) Process(f *frame.Frame) (*frame.Frame, error) {
	v := f.Video
	if err := checkSmoothable(v); err != nil {
		return nil, err
	}
	if s.history == nil || s.width != v.Width || s.height != v.Height {
		s.width, s.height = v.Width, v.Height
		s.history = make([]float64, v.PixelCount())
	}
	for i := 0; i < v.PixelCount(); i++ {
		cur := sampleAt(v, i)
		if cur == 0 {
			// hole: leave the output empty but keep the history so the
			// pixel recovers smoothly when data returns
			continue
		}
		hist := s.history[i]
		if hist != 0 && math.Abs(cur-hist) <= s.delta {
			cur = s.alpha*cur + (1-s.alpha)*hist
			storeAt(v, i, cur)
		}
		s.history[i] = cur
	}
	return f, nil
}
