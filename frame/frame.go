// Package frame defines the capture units flowing through the pipeline: video
// frames, motion samples and framesets bundling several captures of the same
// instant.
package frame

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/calyptra/depthpipe/stream"
)

// TimestampDomain says where a frame's timestamp came from.
type TimestampDomain uint8

const (
	// DomainHardware timestamps come from the device's own clock metadata.
	DomainHardware TimestampDomain = iota
	// DomainHostSoftware timestamps were stamped by the host as a fallback
	// when hardware metadata was unavailable.
	DomainHostSoftware
)

func (d TimestampDomain) String() string {
	if d == DomainHostSoftware {
		return "host-software"
	}
	return "hardware"
}

// Video is an image payload.
type Video struct {
	Data          []byte
	Width         int
	Height        int
	BytesPerPixel int
	Stride        int
}

// PixelCount returns the number of pixels in the image.
func (v *Video) PixelCount() int {
	return v.Width * v.Height
}

// DepthAt returns the raw 16-bit depth sample at pixel index i (row-major).
func (v *Video) DepthAt(i int) uint16 {
	return binary.LittleEndian.Uint16(v.Data[2*i:])
}

// SetDepthAt stores a raw 16-bit depth sample at pixel index i.
func (v *Video) SetDepthAt(i int, d uint16) {
	binary.LittleEndian.PutUint16(v.Data[2*i:], d)
}

// Motion is an inertial sample: angular velocity for gyro streams, linear
// acceleration for accel streams.
type Motion struct {
	X, Y, Z float32
}

// Frame is one capture unit from a single stream. Exactly one of Video or
// Motion is set, matching the key's modality.
type Frame struct {
	Key stream.Key
	// Timestamp is the device-clock time of capture, in milliseconds.
	Timestamp float64
	Domain    TimestampDomain

	Video  *Video
	Motion *Motion
}

// NewVideoFrame builds an image frame.
func NewVideoFrame(key stream.Key, ts float64, domain TimestampDomain, v *Video) *Frame {
	return &Frame{Key: key, Timestamp: ts, Domain: domain, Video: v}
}

// NewMotionFrame builds an inertial sample frame.
func NewMotionFrame(key stream.Key, ts float64, domain TimestampDomain, m Motion) *Frame {
	return &Frame{Key: key, Timestamp: ts, Domain: domain, Motion: &m}
}

// Validate checks the payload against the frame's key.
func (f *Frame) Validate() error {
	if f.Key.Modality.IsVideo() {
		if f.Video == nil {
			return errors.Errorf("stream %s: video frame has no image payload", f.Key)
		}
		if f.Motion != nil {
			return errors.Errorf("stream %s: video frame carries a motion payload", f.Key)
		}
		want := f.Video.Width * f.Video.Height * f.Video.BytesPerPixel
		if len(f.Video.Data) < want {
			return errors.Errorf("stream %s: image buffer is %d bytes, need %d",
				f.Key, len(f.Video.Data), want)
		}
		return nil
	}
	if f.Motion == nil {
		return errors.Errorf("stream %s: motion frame has no sample", f.Key)
	}
	if f.Video != nil {
		return errors.Errorf("stream %s: motion frame carries an image payload", f.Key)
	}
	return nil
}

// Frameset is a bundle of frames captured at the same instant across streams.
type Frameset []*Frame

// Depth returns the bundled depth frame, or nil if none arrived.
func (fs Frameset) Depth() *Frame {
	for _, f := range fs {
		if f.Key.Modality == stream.Depth {
			return f
		}
	}
	return nil
}
