package pipeline

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"

	"github.com/calyptra/depthpipe/frame"
	"github.com/calyptra/depthpipe/pointcloud"
	"github.com/calyptra/depthpipe/stream"
	"github.com/calyptra/depthpipe/transform"
)

const (
	testWidth  = 8
	testHeight = 8
	testScale  = 0.001
)

func testIntrinsics() transform.Intrinsics {
	return transform.Intrinsics{
		Width:  testWidth,
		Height: testHeight,
		Fx:     10,
		Fy:     10,
		Ppx:    float64(testWidth) / 2,
		Ppy:    float64(testHeight) / 2,
	}
}

// fakeDevice is both capability and calibration source for one synthetic
// camera.
type fakeDevice struct {
	modules    []string
	profiles   map[stream.Key][]stream.Profile
	intrinsics map[stream.Key]transform.Intrinsics
	extrinsics map[extrinsicsKey]transform.Extrinsics
	depthScale float64
}

func newFakeDevice() *fakeDevice {
	intr := testIntrinsics()
	return &fakeDevice{
		modules: []string{"Stereo Module", "RGB Camera", "Motion Module"},
		profiles: map[stream.Key][]stream.Profile{
			stream.DepthKey: {
				{Key: stream.DepthKey, Format: stream.FormatZ16, Width: testWidth, Height: testHeight, FPS: 30},
			},
			stream.ColorKey: {
				{Key: stream.ColorKey, Format: stream.FormatRGB8, Width: testWidth, Height: testHeight, FPS: 30},
			},
			stream.Infra1Key: {
				{Key: stream.Infra1Key, Format: stream.FormatY8, Width: testWidth, Height: testHeight, FPS: 30},
			},
			stream.GyroKey: {
				{Key: stream.GyroKey, Format: stream.FormatMotionXYZ32F, FPS: 200},
			},
		},
		intrinsics: map[stream.Key]transform.Intrinsics{
			stream.DepthKey:  intr,
			stream.ColorKey:  intr,
			stream.Infra1Key: intr,
		},
		extrinsics: map[extrinsicsKey]transform.Extrinsics{},
		depthScale: testScale,
	}
}

func (d *fakeDevice) Modules() []string { return d.modules }

func (d *fakeDevice) Profiles(key stream.Key) []stream.Profile { return d.profiles[key] }

func (d *fakeDevice) Intrinsics(key stream.Key) (transform.Intrinsics, error) {
	intr, ok := d.intrinsics[key]
	if !ok {
		return transform.Intrinsics{}, transform.NewNoIntrinsicsError("no calibration for " + key.String())
	}
	return intr, nil
}

func (d *fakeDevice) Extrinsics(from, to stream.Key) (transform.Extrinsics, error) {
	if ext, ok := d.extrinsics[extrinsicsKey{from, to}]; ok {
		return ext, nil
	}
	return transform.IdentityExtrinsics(), nil
}

func (d *fakeDevice) DepthScale() (float64, error) {
	if d.depthScale == 0 {
		return 0, errors.New("depth scale unavailable")
	}
	return d.depthScale, nil
}

type publishedImage struct {
	key  stream.Key
	seq  int
	t    time.Time
	data []byte
}

type publishedAligned struct {
	target stream.Key
	seq    int
	t      time.Time
	data   []byte
}

type publishedMotion struct {
	key    stream.Key
	seq    int
	t      time.Time
	sample frame.Motion
}

type publishedCloud struct {
	t     time.Time
	cloud *pointcloud.Cloud
}

// recordingSink records every publish. With all set it reports interest in
// every output; otherwise only those in subs.
type recordingSink struct {
	all  bool
	subs map[Output]bool

	images  []publishedImage
	aligned []publishedAligned
	motions []publishedMotion
	clouds  []publishedCloud

	panicOnImage bool
}

func (k *recordingSink) subscribe(out Output) {
	if k.subs == nil {
		k.subs = map[Output]bool{}
	}
	k.subs[out] = true
}

func (k *recordingSink) Subscribed(out Output) bool { return k.all || k.subs[out] }

func (k *recordingSink) PublishImage(
	key stream.Key, seq int, t time.Time,
	_ stream.Profile, _ transform.Intrinsics, data []byte,
) {
	if k.panicOnImage {
		panic("sink failure")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	k.images = append(k.images, publishedImage{key, seq, t, cp})
}

func (k *recordingSink) PublishAligned(target stream.Key, seq int, t time.Time, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	k.aligned = append(k.aligned, publishedAligned{target, seq, t, cp})
}

func (k *recordingSink) PublishMotion(key stream.Key, seq int, t time.Time, sample frame.Motion) {
	k.motions = append(k.motions, publishedMotion{key, seq, t, sample})
}

func (k *recordingSink) PublishCloud(t time.Time, cloud *pointcloud.Cloud) {
	k.clouds = append(k.clouds, publishedCloud{t, cloud})
}

type countingWatchdog struct {
	kicks int
}

func (w *countingWatchdog) Kick() { w.kicks++ }

func depthTestFrame(ts float64, fill uint16) *frame.Frame {
	data := make([]byte, testWidth*testHeight*2)
	for i := 0; i < testWidth*testHeight; i++ {
		binary.LittleEndian.PutUint16(data[2*i:], fill)
	}
	return frame.NewVideoFrame(stream.DepthKey, ts, frame.DomainHardware, &frame.Video{
		Data:          data,
		Width:         testWidth,
		Height:        testHeight,
		BytesPerPixel: 2,
		Stride:        testWidth * 2,
	})
}

func colorTestFrame(ts float64, r, g, b uint8) *frame.Frame {
	data := make([]byte, testWidth*testHeight*3)
	for i := 0; i < testWidth*testHeight; i++ {
		data[3*i] = r
		data[3*i+1] = g
		data[3*i+2] = b
	}
	return frame.NewVideoFrame(stream.ColorKey, ts, frame.DomainHardware, &frame.Video{
		Data:          data,
		Width:         testWidth,
		Height:        testHeight,
		BytesPerPixel: 3,
		Stride:        testWidth * 3,
	})
}

func gyroTestFrame(ts float64, x, y, z float32) *frame.Frame {
	return frame.NewMotionFrame(stream.GyroKey, ts, frame.DomainHardware, frame.Motion{X: x, Y: y, Z: z})
}
