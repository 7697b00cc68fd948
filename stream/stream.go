// Package stream describes the logical channels a depth-sensing device exposes
// and matches requested stream parameters against advertised capabilities.
package stream

import "fmt"

// Modality is the kind of data a channel carries.
type Modality uint8

// Supported modalities.
const (
	Depth Modality = iota
	Color
	Infrared
	Fisheye
	Gyro
	Accel
)

func (m Modality) String() string {
	switch m {
	case Depth:
		return "depth"
	case Color:
		return "color"
	case Infrared:
		return "infrared"
	case Fisheye:
		return "fisheye"
	case Gyro:
		return "gyro"
	case Accel:
		return "accel"
	default:
		return fmt.Sprintf("modality(%d)", uint8(m))
	}
}

// IsVideo reports whether the modality produces image frames rather than
// motion samples.
func (m Modality) IsVideo() bool {
	return m != Gyro && m != Accel
}

// Format is a pixel or sample wire format.
type Format uint8

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatZ16           // 16-bit depth, little endian
	FormatY8            // 8-bit grayscale
	FormatRGB8          // 8-bit per channel RGB
	FormatRaw8          // raw 8-bit samples
	FormatMotionXYZ32F  // three 32-bit floats
)

func (f Format) String() string {
	switch f {
	case FormatZ16:
		return "Z16"
	case FormatY8:
		return "Y8"
	case FormatRGB8:
		return "RGB8"
	case FormatRaw8:
		return "RAW8"
	case FormatMotionXYZ32F:
		return "MOTION_XYZ32F"
	default:
		return "UNKNOWN"
	}
}

// BytesPerPixel returns the per-sample byte width of the format.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatZ16:
		return 2
	case FormatY8, FormatRaw8:
		return 1
	case FormatRGB8:
		return 3
	case FormatMotionXYZ32F:
		return 12
	default:
		return 0
	}
}

// Key identifies one logical channel: a modality plus a stream index for
// devices exposing several streams of the same modality (e.g. two infrared
// imagers). Keys are comparable and usable as map keys.
type Key struct {
	Modality Modality
	Index    int
}

func (k Key) String() string {
	return fmt.Sprintf("(%s, %d)", k.Modality, k.Index)
}

// Less orders keys by modality, then index.
func (k Key) Less(o Key) bool {
	if k.Modality != o.Modality {
		return k.Modality < o.Modality
	}
	return k.Index < o.Index
}

// Name returns a stable lowercase channel name suitable for topics and logs.
func (k Key) Name() string {
	if k.Modality == Infrared {
		return fmt.Sprintf("infra%d", k.Index)
	}
	return k.Modality.String()
}

// The channels a device can expose.
var (
	DepthKey   = Key{Depth, 0}
	ColorKey   = Key{Color, 0}
	Infra1Key  = Key{Infrared, 1}
	Infra2Key  = Key{Infrared, 2}
	FisheyeKey = Key{Fisheye, 0}
	GyroKey    = Key{Gyro, 0}
	AccelKey   = Key{Accel, 0}
)

// ImageKeys lists the video channels in canonical order.
var ImageKeys = []Key{DepthKey, Infra1Key, Infra2Key, ColorKey, FisheyeKey}

// MotionKeys lists the inertial channels.
var MotionKeys = []Key{GyroKey, AccelKey}

// DefaultFormat returns the wire format the device delivers for a modality.
func DefaultFormat(m Modality) Format {
	switch m {
	case Depth:
		return FormatZ16
	case Infrared:
		return FormatY8
	case Color:
		return FormatRGB8
	case Fisheye:
		return FormatRaw8
	case Gyro, Accel:
		return FormatMotionXYZ32F
	default:
		return FormatUnknown
	}
}
