package stream

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

var advertised = []Profile{
	{Key: DepthKey, Format: FormatZ16, Width: 1280, Height: 720, FPS: 30},
	{Key: DepthKey, Format: FormatZ16, Width: 640, Height: 480, FPS: 30},
	{Key: DepthKey, Format: FormatZ16, Width: 640, Height: 480, FPS: 60},
	{Key: Infra1Key, Format: FormatY8, Width: 640, Height: 480, FPS: 30},
	{Key: Infra2Key, Format: FormatY8, Width: 640, Height: 480, FPS: 30},
}

func TestSelectProfileExact(t *testing.T) {
	p, err := SelectProfile(Request{
		Key: DepthKey, Format: FormatZ16, Width: 640, Height: 480, FPS: 60,
	}, advertised)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p, test.ShouldResemble, advertised[2])
}

func TestSelectProfileUnconstrained(t *testing.T) {
	// all-zero constraints resolve to the first advertised profile of the format
	p, err := SelectProfile(Request{Key: DepthKey, Format: FormatZ16}, advertised)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p, test.ShouldResemble, advertised[0])

	// partially constrained
	p, err = SelectProfile(Request{Key: DepthKey, Format: FormatZ16, FPS: 60}, advertised)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Width, test.ShouldEqual, 640)
	test.That(t, p.FPS, test.ShouldEqual, 60)
}

func TestSelectProfileDeterminism(t *testing.T) {
	req := Request{Key: DepthKey, Format: FormatZ16, Width: 640, Height: 480}
	first, err := SelectProfile(req, advertised)
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < 10; i++ {
		again, err := SelectProfile(req, advertised)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, again, test.ShouldResemble, first)
	}
}

func TestSelectProfileIndex(t *testing.T) {
	p, err := SelectProfile(Request{Key: Infra2Key, Format: FormatY8}, advertised)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Key, test.ShouldResemble, Infra2Key)
}

func TestSelectProfileNoMatch(t *testing.T) {
	_, err := SelectProfile(Request{
		Key: DepthKey, Format: FormatZ16, Width: 848, Height: 480, FPS: 90,
	}, advertised)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrNoMatchingProfile), test.ShouldBeTrue)

	// wrong format never matches, even unconstrained otherwise
	_, err = SelectProfile(Request{Key: DepthKey, Format: FormatY8}, advertised)
	test.That(t, errors.Is(err, ErrNoMatchingProfile), test.ShouldBeTrue)
}

func TestSelectMotionProfile(t *testing.T) {
	motion := []Profile{
		{Key: GyroKey, Format: FormatMotionXYZ32F, FPS: 200},
		{Key: GyroKey, Format: FormatMotionXYZ32F, FPS: 400},
	}
	p, err := SelectMotionProfile(Request{Key: GyroKey, Format: FormatMotionXYZ32F, FPS: 400}, motion)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.FPS, test.ShouldEqual, 400)

	_, err = SelectMotionProfile(Request{Key: AccelKey, Format: FormatMotionXYZ32F}, motion)
	test.That(t, errors.Is(err, ErrNoMatchingProfile), test.ShouldBeTrue)
}
