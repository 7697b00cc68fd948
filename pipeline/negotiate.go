package pipeline

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/calyptra/depthpipe/align"
	"github.com/calyptra/depthpipe/filters"
	"github.com/calyptra/depthpipe/stream"
)

// ErrNoDepthProfile means alignment or point clouds were requested but the
// depth channel did not come up, leaving those features nothing to work from.
var ErrNoDepthProfile = errors.New("depth stream is not active, cannot align or synthesize geometry")

// Negotiate resolves every requested channel against the device's advertised
// capabilities and allocates the session's working buffers. An unrecognized
// sensor module or a missing depth stream under AlignDepth/PointCloud is
// fatal; a single channel failing to match only disables that channel.
func (s *Session) Negotiate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.negotiateLocked()
}

func (s *Session) negotiateLocked() error {
	supported := make(map[stream.Key]bool)
	for _, name := range s.caps.Modules() {
		keys, err := stream.ModuleStreams(name)
		if err != nil {
			return err
		}
		s.logger.Infof("%s was found", name)
		for _, k := range keys {
			supported[k] = true
		}
	}

	var soft error
	for _, req := range s.cfg.Requests {
		if req.Format == stream.FormatUnknown {
			req.Format = stream.DefaultFormat(req.Key.Modality)
		}
		if !supported[req.Key] {
			s.logger.Infof("%s sensor is not supported by current device, skipping", req.Key.Name())
			continue
		}
		if err := s.negotiateChannelLocked(req); err != nil {
			s.logger.Warnw("given stream configuration is not supported by the device, disabling",
				"stream", req.Key.String(),
				"format", req.Format.String(),
				"width", req.Width,
				"height", req.Height,
				"fps", req.FPS,
				"error", err,
			)
			soft = multierr.Append(soft, errors.Wrapf(err, "stream %s", req.Key))
		}
	}
	s.softErr = soft

	if s.enabled[stream.DepthKey] {
		scale, err := s.calib.DepthScale()
		if err != nil {
			return errors.Wrap(err, "reading depth scale")
		}
		s.depthScale = scale
	}
	if (s.cfg.AlignDepth || s.cfg.PointCloud) && !s.enabled[stream.DepthKey] {
		return ErrNoDepthProfile
	}

	if s.enabled[stream.DepthKey] {
		s.aligner = align.NewAligner(s.depthScale)
		if s.cfg.AlignDepth {
			depthBPP := s.profiles[stream.DepthKey].BytesPerPixel()
			for key, on := range s.enabled {
				if !on || !key.Modality.IsVideo() || key.Modality == stream.Depth {
					continue
				}
				// Aligned buffers take the target stream's geometry with
				// depth-sized samples.
				s.aligner.EnsureBuffer(key, s.intrinsics[key], depthBPP)
			}
		}
		s.chain = filters.NewDepthChain(filters.DisparityParams{
			FocalBaseline: s.cfg.DisparityFocalBaseline,
			DepthScale:    s.depthScale,
		})
		for _, name := range s.cfg.EnabledFilters {
			if err := s.chain.Enable(name, true); err != nil {
				return err
			}
		}
	}

	s.negotiated = true
	return nil
}

// negotiateChannelLocked brings one requested channel up, or reports why it
// cannot.
func (s *Session) negotiateChannelLocked(req stream.Request) error {
	advertised := s.caps.Profiles(req.Key)
	var p stream.Profile
	var err error
	if req.Key.Modality.IsVideo() {
		p, err = stream.SelectProfile(req, advertised)
	} else {
		p, err = stream.SelectMotionProfile(req, advertised)
	}
	if err != nil {
		return err
	}
	if req.Key.Modality.IsVideo() {
		intr, err := s.calib.Intrinsics(req.Key)
		if err != nil {
			return errors.Wrap(err, "reading intrinsics")
		}
		if err := intr.CheckValid(); err != nil {
			return err
		}
		s.intrinsics[req.Key] = intr
		s.images[req.Key] = make([]byte, p.ImageBytes())
	}
	s.enabled[req.Key] = true
	s.profiles[req.Key] = p
	s.logger.Infof("%s stream is enabled - width: %d, height: %d, fps: %d",
		req.Key.Name(), p.Width, p.Height, p.FPS)
	return nil
}
