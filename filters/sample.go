package filters

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/calyptra/depthpipe/frame"
)

// The smoothing stages run in whichever domain the chain is currently in:
// 16-bit raw depth or float32 disparity.

func sampleAt(v *frame.Video, i int) float64 {
	if v.BytesPerPixel == 4 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(v.Data[4*i:])))
	}
	return float64(v.DepthAt(i))
}

func storeAt(v *frame.Video, i int, val float64) {
	if v.BytesPerPixel == 4 {
		binary.LittleEndian.PutUint32(v.Data[4*i:], math.Float32bits(float32(val)))
		return
	}
	if val < 0 {
		val = 0
	}
	if val > math.MaxUint16 {
		val = math.MaxUint16
	}
	v.SetDepthAt(i, uint16(math.Round(val)))
}

func checkSmoothable(v *frame.Video) error {
	if v == nil {
		return errors.New("smoothing expects an image frame")
	}
	if v.BytesPerPixel != 2 && v.BytesPerPixel != 4 {
		return errors.Errorf("smoothing expects depth or disparity samples, got %d bytes per pixel", v.BytesPerPixel)
	}
	return nil
}
