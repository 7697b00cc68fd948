// Package pipeline contains the per-session frame dispatch path: stream
// negotiation, timestamp base management, depth filtering, alignment fan-out
// and point cloud synthesis, driven by a sensor SDK's delivery callbacks.
package pipeline

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/calyptra/depthpipe/align"
	"github.com/calyptra/depthpipe/filters"
	"github.com/calyptra/depthpipe/frame"
	"github.com/calyptra/depthpipe/pointcloud"
	"github.com/calyptra/depthpipe/stream"
	"github.com/calyptra/depthpipe/transform"
)

// OutputKind enumerates the kinds of output the pipeline can produce.
type OutputKind uint8

// The pipeline's outputs.
const (
	OutputImage OutputKind = iota
	OutputAligned
	OutputMotion
	OutputCloudXYZ
	OutputCloudXYZRGB
)

// Output identifies one publishable output. Key is meaningful for image,
// aligned and motion outputs and zero for the cloud outputs.
type Output struct {
	Kind OutputKind
	Key  stream.Key
}

// CapabilitySource yields what the device can do: its sensor modules and the
// advertised profiles per channel.
type CapabilitySource interface {
	Modules() []string
	Profiles(key stream.Key) []stream.Profile
}

// CalibrationSource yields the device's calibration for active streams.
type CalibrationSource interface {
	Intrinsics(key stream.Key) (transform.Intrinsics, error)
	Extrinsics(from, to stream.Key) (transform.Extrinsics, error)
	// DepthScale converts a raw depth sample to meters.
	DepthScale() (float64, error)
}

// PublishSink receives the pipeline's outputs. Subscribed is a cheap interest
// predicate the pipeline queries to skip synthesis work nobody consumes; the
// sink owns subscriber bookkeeping and all wire formatting.
type PublishSink interface {
	Subscribed(out Output) bool
	PublishImage(key stream.Key, seq int, t time.Time, profile stream.Profile, intr transform.Intrinsics, data []byte)
	PublishAligned(target stream.Key, seq int, t time.Time, data []byte)
	PublishMotion(key stream.Key, seq int, t time.Time, sample frame.Motion)
	PublishCloud(t time.Time, cloud *pointcloud.Cloud)
}

// Watchdog is re-armed on every frame arrival. On expiry its owner tears
// down and rebuilds the session; the session itself never restarts.
type Watchdog interface {
	Kick()
}

// DefaultStallTimeout is how long the delivery path may go quiet before the
// stall watchdog fires.
const DefaultStallTimeout = 30 * time.Second

// Config selects the session's channels and features.
type Config struct {
	// Requests lists the channels to negotiate. Zero width/height/fps fields
	// accept the device default; a zero Format resolves to the modality's
	// canonical format.
	Requests []stream.Request

	AlignDepth bool
	PointCloud bool
	// SyncFrames delivers bundled framesets instead of single frames. Forced
	// on when AlignDepth or PointCloud is set.
	SyncFrames bool
	// UseHostTime stamps outputs with live host time instead of
	// device-clock extrapolation. Forced on when SyncFrames is set.
	UseHostTime bool

	// EnabledFilters names the depth filter stages to turn on.
	EnabledFilters []string
	// DisparityFocalBaseline parameterizes the disparity conversion stages:
	// depth focal length (pixels) times stereo baseline (meters).
	DisparityFocalBaseline float64

	StallTimeout time.Duration
}

var knownFilterStages = map[string]bool{
	filters.StageDepthToDisparity: true,
	filters.StageSpatial:          true,
	filters.StageTemporal:         true,
	filters.StageDisparityToDepth: true,
}

// Validate checks the config for internal consistency.
func (c Config) Validate() error {
	var err error
	if len(c.Requests) == 0 {
		err = multierr.Append(err, errors.New("config needs at least one stream request"))
	}
	seen := make(map[stream.Key]bool, len(c.Requests))
	for _, req := range c.Requests {
		if seen[req.Key] {
			err = multierr.Append(err, errors.Errorf("duplicate request for stream %s", req.Key))
		}
		seen[req.Key] = true
	}
	for _, name := range c.EnabledFilters {
		if !knownFilterStages[name] {
			err = multierr.Append(err, errors.Errorf("unknown filter stage %q", name))
			continue
		}
		disparity := name == filters.StageDepthToDisparity || name == filters.StageDisparityToDepth
		if disparity && c.DisparityFocalBaseline <= 0 {
			err = multierr.Append(err, errors.Errorf(
				"filter stage %q needs a positive disparity focal-baseline product", name))
		}
	}
	return err
}

// withDerived applies the coupling rules between features: alignment and
// point clouds need synchronized bundles, and synchronized delivery stamps
// with host time.
func (c Config) withDerived() Config {
	if c.AlignDepth || c.PointCloud {
		c.SyncFrames = true
	}
	if c.SyncFrames {
		c.UseHostTime = true
	}
	if c.StallTimeout == 0 {
		c.StallTimeout = DefaultStallTimeout
	}
	return c
}

type extrinsicsKey struct {
	from, to stream.Key
}

// Session is the per-streaming-session context: everything the dispatch path
// reads or mutates lives here, so independent sessions coexist and a restart
// is a plain re-initialization.
type Session struct {
	logger   golog.Logger
	clk      clock.Clock
	cfg      Config
	caps     CapabilitySource
	calib    CalibrationSource
	sink     PublishSink
	watchdog Watchdog

	// mu serializes dispatch cycles; image and inertial channel groups may be
	// delivered on separate SDK threads.
	mu         sync.Mutex
	negotiated bool
	enabled    map[stream.Key]bool
	profiles   map[stream.Key]stream.Profile
	intrinsics map[stream.Key]transform.Intrinsics
	extrinsics map[extrinsicsKey]transform.Extrinsics
	depthScale float64
	images     map[stream.Key][]byte
	aligner    *align.Aligner
	chain      *filters.Chain
	base       timeBase
	seq        map[stream.Key]int
	alignedSeq map[stream.Key]int
	rates      map[stream.Key]*rateTracker
	softErr    error
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the session's wall clock, mainly for tests.
func WithClock(clk clock.Clock) Option {
	return func(s *Session) { s.clk = clk }
}

// WithWatchdog attaches the stall watchdog the session re-arms on every
// frame arrival.
func WithWatchdog(w Watchdog) Option {
	return func(s *Session) { s.watchdog = w }
}

// NewSession builds an un-negotiated session. Call Negotiate before
// delivering frames.
func NewSession(
	cfg Config,
	caps CapabilitySource,
	calib CalibrationSource,
	sink PublishSink,
	logger golog.Logger,
	opts ...Option,
) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid session config")
	}
	s := &Session{
		logger: logger,
		clk:    clock.New(),
		cfg:    cfg.withDerived(),
		caps:   caps,
		calib:  calib,
		sink:   sink,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.clearStateLocked()
	return s, nil
}

// clearStateLocked reinitializes every per-session field from nothing.
func (s *Session) clearStateLocked() {
	s.negotiated = false
	s.enabled = make(map[stream.Key]bool)
	s.profiles = make(map[stream.Key]stream.Profile)
	s.intrinsics = make(map[stream.Key]transform.Intrinsics)
	s.extrinsics = make(map[extrinsicsKey]transform.Extrinsics)
	s.depthScale = 0
	s.images = make(map[stream.Key][]byte)
	s.aligner = nil
	if s.chain != nil {
		s.chain.Reset()
	}
	s.chain = nil
	s.base = timeBase{}
	s.seq = make(map[stream.Key]int)
	s.alignedSeq = make(map[stream.Key]int)
	s.rates = make(map[stream.Key]*rateTracker)
	s.softErr = nil
}

// Reset reinitializes all session state and renegotiates with the device.
// This is the restart path the stall watchdog's owner invokes.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearStateLocked()
	return s.negotiateLocked()
}

// Clock returns the session's wall clock, for collaborators that should
// share its time source.
func (s *Session) Clock() clock.Clock {
	return s.clk
}

// SetWatchdog attaches the stall watchdog after construction, for owners
// whose watchdog callback needs the session itself.
func (s *Session) SetWatchdog(w Watchdog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchdog = w
}

// Enabled reports whether a channel survived negotiation.
func (s *Session) Enabled(key stream.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled[key]
}

// Profile returns the negotiated profile for a channel.
func (s *Session) Profile(key stream.Key) (stream.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[key]
	return p, ok
}

// NegotiationWarnings returns the aggregated soft (per-channel) negotiation
// failures from the last Negotiate, nil if every requested channel came up.
func (s *Session) NegotiationWarnings() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.softErr
}

// extrinsicsLocked returns the rigid transform between two active streams,
// fetching from the calibration source on first need and caching per ordered
// pair.
func (s *Session) extrinsicsLocked(from, to stream.Key) (transform.Extrinsics, error) {
	k := extrinsicsKey{from, to}
	if ext, ok := s.extrinsics[k]; ok {
		return ext, nil
	}
	ext, err := s.calib.Extrinsics(from, to)
	if err != nil {
		return transform.Extrinsics{}, errors.Wrapf(err, "extrinsics %s to %s", from, to)
	}
	s.extrinsics[k] = ext
	return ext, nil
}
