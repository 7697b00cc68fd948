// Package main runs the depth pipeline against a synthetic camera and logs
// what it publishes, to exercise the dispatch path end to end without
// hardware.
package main

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/utils"

	"github.com/calyptra/depthpipe/frame"
	"github.com/calyptra/depthpipe/pipeline"
	"github.com/calyptra/depthpipe/pointcloud"
	"github.com/calyptra/depthpipe/stream"
	"github.com/calyptra/depthpipe/transform"
)

var logger = golog.NewDevelopmentLogger("depthpipe")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	Duration   time.Duration `flag:"duration,default=10s,usage=how long to stream"`
	PointCloud bool          `flag:"pointcloud,usage=synthesize point clouds"`
	AlignDepth bool          `flag:"align,usage=publish depth aligned to color"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	dev := newSyntheticCamera(64, 48)
	sink := &loggingSink{logger: logger}
	cfg := pipeline.Config{
		Requests: []stream.Request{
			{Key: stream.DepthKey},
			{Key: stream.ColorKey},
			{Key: stream.GyroKey},
		},
		PointCloud: argsParsed.PointCloud,
		AlignDepth: argsParsed.AlignDepth,
	}

	session, err := pipeline.NewSession(cfg, dev, dev, sink, logger)
	if err != nil {
		return err
	}

	watchdog := pipeline.NewStallWatchdog(session.Clock(), pipeline.DefaultStallTimeout, func() {
		logger.Warn("frame delivery stalled, resetting session")
		if err := session.Reset(); err != nil {
			logger.Errorw("session reset failed", "error", err)
		}
	})
	session.SetWatchdog(watchdog)

	if err := session.Negotiate(); err != nil {
		return err
	}
	if warn := session.NegotiationWarnings(); warn != nil {
		logger.Warnw("some channels were disabled", "error", warn)
	}
	watchdog.Start()
	defer watchdog.Stop()

	return stream30Hz(ctx, dev, session, argsParsed.Duration, logger)
}

func stream30Hz(
	ctx context.Context,
	dev *syntheticCamera,
	session *pipeline.Session,
	duration time.Duration,
	logger golog.Logger,
) error {
	deadline := time.Now().Add(duration)
	ticker := time.NewTicker(time.Second / 30)
	defer ticker.Stop()
	utils.ContextMainReadyFunc(ctx)()
	for time.Now().Before(deadline) {
		if !utils.SelectContextOrWaitChan(ctx, ticker.C) {
			return ctx.Err()
		}
		session.HandleFrameset(dev.nextFrameset())
		session.HandleFrame(dev.nextGyroSample())
	}
	for key, hz := range session.Rates() {
		logger.Infow("observed channel rate", "stream", key.String(), "hz", hz)
	}
	return nil
}

// syntheticCamera advertises a fixed stereo+color capability set and
// fabricates a sweeping depth gradient so every output has something to show.
type syntheticCamera struct {
	width, height int
	deviceClockMS float64
	cycle         int
}

func newSyntheticCamera(width, height int) *syntheticCamera {
	return &syntheticCamera{width: width, height: height}
}

func (c *syntheticCamera) Modules() []string {
	return []string{"Stereo Module", "RGB Camera", "Motion Module"}
}

func (c *syntheticCamera) Profiles(key stream.Key) []stream.Profile {
	switch key {
	case stream.DepthKey:
		return []stream.Profile{{Key: key, Format: stream.FormatZ16, Width: c.width, Height: c.height, FPS: 30}}
	case stream.ColorKey:
		return []stream.Profile{{Key: key, Format: stream.FormatRGB8, Width: c.width, Height: c.height, FPS: 30}}
	case stream.GyroKey, stream.AccelKey:
		return []stream.Profile{{Key: key, Format: stream.FormatMotionXYZ32F, FPS: 200}}
	default:
		return nil
	}
}

func (c *syntheticCamera) Intrinsics(key stream.Key) (transform.Intrinsics, error) {
	return transform.Intrinsics{
		Width:  c.width,
		Height: c.height,
		Fx:     float64(c.width),
		Fy:     float64(c.width),
		Ppx:    float64(c.width) / 2,
		Ppy:    float64(c.height) / 2,
	}, nil
}

func (c *syntheticCamera) Extrinsics(from, to stream.Key) (transform.Extrinsics, error) {
	return transform.IdentityExtrinsics(), nil
}

func (c *syntheticCamera) DepthScale() (float64, error) {
	return 0.001, nil
}

func (c *syntheticCamera) nextFrameset() frame.Frameset {
	c.cycle++
	c.deviceClockMS += 1000.0 / 30

	depth := make([]byte, c.width*c.height*2)
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			// A diagonal gradient between 0.5m and 2.5m that drifts each cycle.
			mm := 500 + (x+y+c.cycle*4)%2000
			binary.LittleEndian.PutUint16(depth[2*(y*c.width+x):], uint16(mm))
		}
	}
	color := make([]byte, c.width*c.height*3)
	for i := 0; i < c.width*c.height; i++ {
		color[3*i] = uint8((i + c.cycle) % 256)
		color[3*i+1] = uint8(i % 256)
		color[3*i+2] = uint8(c.cycle % 256)
	}

	return frame.Frameset{
		frame.NewVideoFrame(stream.DepthKey, c.deviceClockMS, frame.DomainHardware, &frame.Video{
			Data: depth, Width: c.width, Height: c.height, BytesPerPixel: 2, Stride: c.width * 2,
		}),
		frame.NewVideoFrame(stream.ColorKey, c.deviceClockMS, frame.DomainHardware, &frame.Video{
			Data: color, Width: c.width, Height: c.height, BytesPerPixel: 3, Stride: c.width * 3,
		}),
	}
}

func (c *syntheticCamera) nextGyroSample() *frame.Frame {
	return frame.NewMotionFrame(stream.GyroKey, c.deviceClockMS, frame.DomainHardware, frame.Motion{
		X: 0.01 * float32(c.cycle%10),
		Y: 0,
		Z: -0.01,
	})
}

// loggingSink subscribes to everything and logs a line per publish.
type loggingSink struct {
	logger golog.Logger
}

func (s *loggingSink) Subscribed(pipeline.Output) bool { return true }

func (s *loggingSink) PublishImage(
	key stream.Key, seq int, t time.Time,
	profile stream.Profile, _ transform.Intrinsics, data []byte,
) {
	if seq%30 != 1 {
		return
	}
	s.logger.Infow("image",
		"stream", key.String(), "seq", seq, "time", t,
		"format", profile.Format.String(), "bytes", len(data))
}

func (s *loggingSink) PublishAligned(target stream.Key, seq int, t time.Time, data []byte) {
	if seq%30 != 1 {
		return
	}
	s.logger.Infow("aligned depth", "target", target.String(), "seq", seq, "time", t, "bytes", len(data))
}

func (s *loggingSink) PublishMotion(key stream.Key, seq int, t time.Time, sample frame.Motion) {
	if seq%200 != 1 {
		return
	}
	s.logger.Infow("motion", "stream", key.String(), "seq", seq, "time", t,
		"x", sample.X, "y", sample.Y, "z", sample.Z)
}

func (s *loggingSink) PublishCloud(t time.Time, cloud *pointcloud.Cloud) {
	s.logger.Debugw("point cloud", "time", t, "points", cloud.Size(), "colored", cloud.HasColor())
}
