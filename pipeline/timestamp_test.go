package pipeline

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/calyptra/depthpipe/frame"
	"github.com/calyptra/depthpipe/stream"
)

// newTimestampSession builds a depth-only session with host-time stamping
// off, so published times come from device-clock extrapolation.
func newTimestampSession(t *testing.T, clk clock.Clock, logger golog.Logger) (*Session, *recordingSink) {
	t.Helper()
	dev := newFakeDevice()
	sink := &recordingSink{all: true}
	cfg := Config{Requests: []stream.Request{{Key: stream.DepthKey}, {Key: stream.GyroKey}}}
	s, err := NewSession(cfg, dev, dev, sink, logger, WithClock(clk))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Negotiate(), test.ShouldBeNil)
	return s, sink
}

func TestTimestampExtrapolation(t *testing.T) {
	logger := golog.NewTestLogger(t)
	mock := clock.NewMock()
	s, sink := newTimestampSession(t, mock, logger)
	start := mock.Now()

	s.HandleFrame(depthTestFrame(100, 1000))
	mock.Add(100 * time.Millisecond)
	s.HandleFrame(depthTestFrame(200, 1000))
	mock.Add(100 * time.Millisecond)
	s.HandleFrame(depthTestFrame(233.5, 1000))

	test.That(t, len(sink.images), test.ShouldEqual, 3)
	test.That(t, sink.images[0].t, test.ShouldResemble, start)
	test.That(t, sink.images[1].t, test.ShouldResemble, start.Add(100*time.Millisecond))
	test.That(t, sink.images[2].t, test.ShouldResemble, start.Add(133500*time.Microsecond))
}

func TestTimestampReanchorOnDeviceClockRegression(t *testing.T) {
	logger := golog.NewTestLogger(t)
	mock := clock.NewMock()
	s, sink := newTimestampSession(t, mock, logger)
	start := mock.Now()

	s.HandleFrame(depthTestFrame(100, 1000))
	mock.Add(100 * time.Millisecond)
	s.HandleFrame(depthTestFrame(200, 1000))
	mock.Add(100 * time.Millisecond)
	// The device clock jumps backwards, e.g. across a sensor restart. The
	// base re-anchors to the host clock at arrival.
	s.HandleFrame(depthTestFrame(50, 1000))
	s.HandleFrame(depthTestFrame(60, 1000))

	test.That(t, len(sink.images), test.ShouldEqual, 4)
	test.That(t, sink.images[2].t, test.ShouldResemble, start.Add(200*time.Millisecond))
	test.That(t, sink.images[3].t, test.ShouldResemble, start.Add(210*time.Millisecond))
}

func TestTimestampHostSoftwareDomainWarns(t *testing.T) {
	logger, observed := golog.NewObservedTestLogger(t)
	mock := clock.NewMock()
	s, _ := newTimestampSession(t, mock, logger)

	f := depthTestFrame(100, 1000)
	f.Domain = frame.DomainHostSoftware
	s.HandleFrame(f)

	test.That(t, observed.FilterMessageSnippet("host software").Len(), test.ShouldEqual, 1)
}

func TestTimestampHostTimeOverride(t *testing.T) {
	logger := golog.NewTestLogger(t)
	mock := clock.NewMock()
	dev := newFakeDevice()
	sink := &recordingSink{all: true}
	cfg := Config{
		Requests:    []stream.Request{{Key: stream.DepthKey}},
		UseHostTime: true,
	}
	s, err := NewSession(cfg, dev, dev, sink, logger, WithClock(mock))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Negotiate(), test.ShouldBeNil)

	s.HandleFrame(depthTestFrame(100, 1000))
	mock.Add(time.Second)
	// With host time the device timestamp no longer drives the output stamp.
	s.HandleFrame(depthTestFrame(101, 1000))

	test.That(t, len(sink.images), test.ShouldEqual, 2)
	test.That(t, sink.images[1].t.Sub(sink.images[0].t), test.ShouldEqual, time.Second)
}

func TestMotionDroppedUntilBaseExists(t *testing.T) {
	logger := golog.NewTestLogger(t)
	mock := clock.NewMock()
	s, sink := newTimestampSession(t, mock, logger)
	start := mock.Now()

	// No image frame has arrived, so there is no host anchor yet.
	s.HandleFrame(gyroTestFrame(90, 0.1, 0, 0))
	test.That(t, len(sink.motions), test.ShouldEqual, 0)

	s.HandleFrame(depthTestFrame(100, 1000))
	s.HandleFrame(gyroTestFrame(105, 0.1, 0.2, 0.3))

	test.That(t, len(sink.motions), test.ShouldEqual, 1)
	test.That(t, sink.motions[0].key, test.ShouldResemble, stream.GyroKey)
	test.That(t, sink.motions[0].t, test.ShouldResemble, start.Add(5*time.Millisecond))
	test.That(t, sink.motions[0].sample, test.ShouldResemble, frame.Motion{X: 0.1, Y: 0.2, Z: 0.3})
}
