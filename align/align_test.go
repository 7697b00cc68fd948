package align

import (
	"testing"

	"go.viam.com/test"

	"github.com/calyptra/depthpipe/frame"
	"github.com/calyptra/depthpipe/stream"
	"github.com/calyptra/depthpipe/transform"
)

func testIntrinsics(w, h int) transform.Intrinsics {
	return transform.Intrinsics{
		Width:  w,
		Height: h,
		Fx:     10,
		Fy:     10,
		Ppx:    float64(w) / 2,
		Ppy:    float64(h) / 2,
	}
}

func newDepthFrame(w, h int) *frame.Frame {
	return frame.NewVideoFrame(stream.DepthKey, 100, frame.DomainHardware, &frame.Video{
		Data:          make([]byte, w*h*2),
		Width:         w,
		Height:        h,
		BytesPerPixel: 2,
		Stride:        w * 2,
	})
}

func TestAlignAllZeroDepthStaysBlank(t *testing.T) {
	intr := testIntrinsics(8, 8)
	a := NewAligner(0.001)
	out, err := a.Align(intr, intr, newDepthFrame(8, 8), 2, transform.IdentityExtrinsics(), stream.ColorKey)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(out), test.ShouldEqual, 8*8*2)
	for i, b := range out {
		if b != blankFill {
			t.Fatalf("byte %d is %#x, want blank", i, b)
		}
	}
}

func TestAlignIdentity(t *testing.T) {
	intr := testIntrinsics(8, 8)
	depth := newDepthFrame(8, 8)
	// interior block of distinct nonzero values
	for y := 1; y <= 5; y++ {
		for x := 1; x <= 5; x++ {
			depth.Video.SetDepthAt(y*8+x, uint16(1000+y*8+x))
		}
	}

	a := NewAligner(0.001)
	out, err := a.Align(intr, intr, depth, 2, transform.IdentityExtrinsics(), stream.ColorKey)
	test.That(t, err, test.ShouldBeNil)

	outFrame := &frame.Video{Data: out, Width: 8, Height: 8, BytesPerPixel: 2}
	for y := 1; y <= 5; y++ {
		for x := 1; x <= 5; x++ {
			i := y*8 + x
			test.That(t, outFrame.DepthAt(i), test.ShouldEqual, depth.Video.DepthAt(i))
		}
	}
}

func TestAlignDiscardsOutOfBounds(t *testing.T) {
	intr := testIntrinsics(8, 8)
	depth := newDepthFrame(8, 8)
	for i := 0; i < 64; i++ {
		depth.Video.SetDepthAt(i, 2000)
	}

	// a huge lateral offset pushes every projected rectangle off the target
	ext := transform.IdentityExtrinsics()
	ext.Translation = [3]float64{100, 0, 0}

	a := NewAligner(0.001)
	out, err := a.Align(intr, intr, depth, 2, ext, stream.ColorKey)
	test.That(t, err, test.ShouldBeNil)
	for i, b := range out {
		if b != blankFill {
			t.Fatalf("byte %d is %#x, want blank", i, b)
		}
	}
}

func TestAlignRescalesDepthUnits(t *testing.T) {
	intr := testIntrinsics(8, 8)
	depth := newDepthFrame(8, 8)
	depth.Video.SetDepthAt(3*8+3, 500)

	// 100 micrometer units: raw 500 = 50mm
	a := NewAligner(0.0001)
	out, err := a.Align(intr, intr, depth, 2, transform.IdentityExtrinsics(), stream.ColorKey)
	test.That(t, err, test.ShouldBeNil)

	outFrame := &frame.Video{Data: out, Width: 8, Height: 8, BytesPerPixel: 2}
	test.That(t, outFrame.DepthAt(3*8+3), test.ShouldEqual, uint16(50))
}

func TestAlignRejectsBadFrames(t *testing.T) {
	intr := testIntrinsics(8, 8)
	a := NewAligner(0.001)

	rgb := frame.NewVideoFrame(stream.ColorKey, 100, frame.DomainHardware, &frame.Video{
		Data: make([]byte, 8*8*3), Width: 8, Height: 8, BytesPerPixel: 3,
	})
	_, err := a.Align(intr, intr, rgb, 2, transform.IdentityExtrinsics(), stream.ColorKey)
	test.That(t, err, test.ShouldNotBeNil)

	small := newDepthFrame(4, 4)
	_, err = a.Align(intr, intr, small, 2, transform.IdentityExtrinsics(), stream.ColorKey)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAlignerReusesBuffer(t *testing.T) {
	intr := testIntrinsics(8, 8)
	a := NewAligner(0.001)
	first := a.EnsureBuffer(stream.ColorKey, intr, 2)
	second := a.EnsureBuffer(stream.ColorKey, intr, 2)
	test.That(t, &first[0], test.ShouldEqual, &second[0])

	a.Reset(0.001)
	third := a.EnsureBuffer(stream.ColorKey, intr, 2)
	test.That(t, len(third), test.ShouldEqual, len(first))
}
