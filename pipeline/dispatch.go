package pipeline

import (
	"time"

	"github.com/pkg/errors"

	"github.com/calyptra/depthpipe/frame"
	"github.com/calyptra/depthpipe/pointcloud"
	"github.com/calyptra/depthpipe/stream"
)

// HandleFrameset ingests one synchronized bundle. Any panic or error in the
// cycle is logged and the cycle abandoned; the delivery path stays alive for
// the next bundle.
func (s *Session) HandleFrameset(fs frame.Frameset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.recoverCycle()
	if err := s.runFramesetCycle(fs); err != nil {
		s.logger.Errorw("an error has occurred during frame callback", "error", err)
	}
}

// HandleFrame ingests one unbundled frame, image or inertial.
func (s *Session) HandleFrame(f *frame.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.recoverCycle()
	var err error
	if f != nil && !f.Key.Modality.IsVideo() {
		err = s.runMotionCycle(f)
	} else {
		err = s.runFrameCycle(f)
	}
	if err != nil {
		s.logger.Errorw("an error has occurred during frame callback", "error", err)
	}
}

func (s *Session) recoverCycle() {
	if r := recover(); r != nil {
		s.logger.Errorw("an exception has been thrown during frame callback", "reason", r)
	}
}

func (s *Session) kickWatchdog() {
	if s.watchdog != nil {
		s.watchdog.Kick()
	}
}

func (s *Session) runFramesetCycle(fs frame.Frameset) error {
	if !s.negotiated {
		return errors.New("session is not negotiated")
	}
	s.kickWatchdog()
	if len(fs) == 0 {
		return nil
	}
	t := s.resolveTime(fs[0])
	arrived := make(map[stream.Key]bool, len(fs))
	var depthFrame *frame.Frame
	var alignTargets []stream.Key
	for _, f := range fs {
		out, err := s.dispatchVideo(f, t, arrived)
		if err != nil {
			return err
		}
		if f.Key.Modality == stream.Depth {
			depthFrame = out
		} else if s.cfg.AlignDepth {
			alignTargets = append(alignTargets, f.Key)
		}
	}
	if s.cfg.AlignDepth && depthFrame != nil {
		if err := s.publishAligned(depthFrame, alignTargets, t); err != nil {
			return err
		}
	}
	return s.publishClouds(t, arrived)
}

func (s *Session) runFrameCycle(f *frame.Frame) error {
	if !s.negotiated {
		return errors.New("session is not negotiated")
	}
	s.kickWatchdog()
	if f == nil {
		return nil
	}
	t := s.resolveTime(f)
	arrived := make(map[stream.Key]bool, 1)
	if _, err := s.dispatchVideo(f, t, arrived); err != nil {
		return err
	}
	return s.publishClouds(t, arrived)
}

func (s *Session) runMotionCycle(f *frame.Frame) error {
	if !s.negotiated {
		return errors.New("session is not negotiated")
	}
	s.kickWatchdog()
	if err := f.Validate(); err != nil {
		return err
	}
	if !s.enabled[f.Key] {
		return errors.Errorf("frame arrived for inactive stream %s", f.Key)
	}
	// Inertial samples arriving before any image frame have no host anchor
	// to extrapolate from and are dropped.
	if !s.base.initialized {
		return nil
	}
	t := s.motionTime(f)
	s.observeRate(f.Key)
	if s.sink.Subscribed(Output{Kind: OutputMotion, Key: f.Key}) {
		s.seq[f.Key]++
		s.sink.PublishMotion(f.Key, s.seq[f.Key], t, *f.Motion)
	}
	return nil
}

// dispatchVideo runs one image frame through the per-channel publish path:
// depth frames pass the filter chain first, then the (possibly filtered)
// pixels land in the session's image buffer and go out to the sink. The
// returned frame is the filtered view, for downstream alignment.
func (s *Session) dispatchVideo(f *frame.Frame, t time.Time, arrived map[stream.Key]bool) (*frame.Frame, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if !s.enabled[f.Key] {
		return nil, errors.Errorf("frame arrived for inactive stream %s", f.Key)
	}
	out := f
	if f.Key.Modality == stream.Depth {
		var err error
		out, err = s.chain.Apply(f)
		if err != nil {
			return nil, err
		}
	}
	buf := s.images[f.Key]
	if len(out.Video.Data) != len(buf) {
		return nil, errors.Errorf("frame for stream %s carries %d bytes, profile expects %d",
			f.Key, len(out.Video.Data), len(buf))
	}
	copy(buf, out.Video.Data)
	arrived[f.Key] = true
	s.seq[f.Key]++
	s.observeRate(f.Key)
	if s.sink.Subscribed(Output{Kind: OutputImage, Key: f.Key}) {
		s.sink.PublishImage(f.Key, s.seq[f.Key], t, s.profiles[f.Key], s.intrinsics[f.Key], buf)
	}
	return out, nil
}

// publishAligned reprojects this cycle's depth frame into each subscribed
// target stream's viewpoint.
func (s *Session) publishAligned(depth *frame.Frame, targets []stream.Key, t time.Time) error {
	for _, target := range targets {
		if !s.sink.Subscribed(Output{Kind: OutputAligned, Key: target}) {
			continue
		}
		ext, err := s.extrinsicsLocked(stream.DepthKey, target)
		if err != nil {
			return err
		}
		buf, err := s.aligner.Align(
			s.intrinsics[stream.DepthKey],
			s.intrinsics[target],
			depth,
			s.profiles[stream.DepthKey].BytesPerPixel(),
			ext,
			target,
		)
		if err != nil {
			return err
		}
		s.alignedSeq[target]++
		s.sink.PublishAligned(target, s.alignedSeq[target], t, buf)
	}
	return nil
}

// publishClouds synthesizes the subscribed cloud flavors from this cycle's
// image buffers, if the frames they need arrived in this cycle.
func (s *Session) publishClouds(t time.Time, arrived map[stream.Key]bool) error {
	if !s.cfg.PointCloud {
		return nil
	}
	if s.sink.Subscribed(Output{Kind: OutputCloudXYZRGB}) {
		if arrived[stream.DepthKey] && arrived[stream.ColorKey] {
			ext, err := s.extrinsicsLocked(stream.DepthKey, stream.ColorKey)
			if err != nil {
				return err
			}
			cloud, err := pointcloud.SynthesizeColor(
				s.imageFrame(stream.DepthKey),
				s.imageFrame(stream.ColorKey),
				s.intrinsics[stream.DepthKey],
				s.intrinsics[stream.ColorKey],
				ext,
				s.depthScale,
			)
			if err != nil {
				return err
			}
			s.sink.PublishCloud(t, cloud)
		} else {
			s.logger.Debug("skipping colorized point cloud, depth or color frame did not arrive this cycle")
		}
	}
	if s.sink.Subscribed(Output{Kind: OutputCloudXYZ}) {
		if arrived[stream.DepthKey] {
			cloud, err := pointcloud.SynthesizeDepth(
				s.imageFrame(stream.DepthKey),
				s.intrinsics[stream.DepthKey],
				s.depthScale,
			)
			if err != nil {
				return err
			}
			s.sink.PublishCloud(t, cloud)
		} else {
			s.logger.Debug("skipping point cloud, depth frame did not arrive this cycle")
		}
	}
	return nil
}

// imageFrame wraps a session image buffer as a frame over the negotiated
// profile's geometry. The buffer holds this cycle's (filtered) pixels.
func (s *Session) imageFrame(key stream.Key) *frame.Frame {
	p := s.profiles[key]
	return frame.NewVideoFrame(key, 0, frame.DomainHardware, &frame.Video{
		Data:          s.images[key],
		Width:         p.Width,
		Height:        p.Height,
		BytesPerPixel: p.BytesPerPixel(),
		Stride:        p.Width * p.BytesPerPixel(),
	})
}
