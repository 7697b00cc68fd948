package pipeline

import (
	"time"

	"github.com/calyptra/depthpipe/frame"
)

// timeBase anchors the device clock to host wall time. Device timestamps are
// milliseconds on an arbitrary epoch; the base maps them onto the host
// timeline and re-anchors whenever the device clock jumps backwards, e.g.
// across a sensor restart.
type timeBase struct {
	initialized bool
	wall        time.Time
	device      float64
	prevDevice  float64
}

func (b timeBase) extrapolate(deviceMS float64) time.Time {
	return b.wall.Add(time.Duration((deviceMS - b.device) * float64(time.Millisecond)))
}

// resolveTime maps a frame's device timestamp onto host time, (re)anchoring
// the base as needed. Must be called with s.mu held.
func (s *Session) resolveTime(f *frame.Frame) time.Time {
	if !s.base.initialized || s.base.prevDevice > f.Timestamp {
		if f.Domain == frame.DomainHostSoftware {
			s.logger.Warn("frame metadata is not available, timestamps originate from host software arrival time")
		}
		s.base.initialized = true
		s.base.wall = s.clk.Now()
		s.base.device = f.Timestamp
	}
	s.base.prevDevice = f.Timestamp
	if s.cfg.UseHostTime {
		return s.clk.Now()
	}
	return s.base.extrapolate(f.Timestamp)
}

// motionTime extrapolates an inertial sample's timestamp against the base
// established by the image path. It never re-anchors; callers must drop
// samples arriving before the base exists.
func (s *Session) motionTime(f *frame.Frame) time.Time {
	return s.base.extrapolate(f.Timestamp)
}
