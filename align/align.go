// Package align reprojects a depth frame's pixel grid into the pixel grid of
// another stream, producing a depth image expressed in the other stream's
// geometry.
package align

import (
	"encoding/binary"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/calyptra/depthpipe/frame"
	"github.com/calyptra/depthpipe/stream"
	"github.com/calyptra/depthpipe/transform"
	"github.com/calyptra/depthpipe/utils"
)

// Output depth is rescaled from meters back into millimeter raw units.
const meterToMillimeter = 0.001

// blankFill is the sentinel the output buffer is cleared to each cycle.
const blankFill = 0x00

// Aligner owns one reusable output buffer per target stream. Buffers are
// sized once when a profile becomes active and overwritten in place every
// cycle; they are only mutated from dispatch-cycle code paths.
type Aligner struct {
	depthScale float64
	buffers    map[stream.Key][]byte
}

// NewAligner returns an Aligner converting raw depth with the given
// unit scale (raw sample times scale = meters).
func NewAligner(depthScale float64) *Aligner {
	return &Aligner{
		depthScale: depthScale,
		buffers:    make(map[stream.Key][]byte),
	}
}

// EnsureBuffer allocates (once) the output buffer for a target stream's
// geometry and returns it.
func (a *Aligner) EnsureBuffer(target stream.Key, intr transform.Intrinsics, bytesPerPixel int) []byte {
	if buf, ok := a.buffers[target]; ok {
		return buf
	}
	buf := make([]byte, intr.Width*intr.Height*bytesPerPixel)
	a.buffers[target] = buf
	return buf
}

// Align reprojects the depth frame into the target stream's pixel grid and
// returns the target-shaped depth buffer. Each nonzero source pixel is
// deprojected at its top-left and bottom-right corners; the two projected
// corners bound the axis-aligned rectangle of target pixels the source pixel
// covers, which absorbs resolution and field-of-view differences between the
// streams. Rectangles that leave the target bounds are discarded whole.
// Overlapping writes are last-write-wins in source scan order.
func (a *Aligner) Align(
	srcIntr, dstIntr transform.Intrinsics,
	depth *frame.Frame,
	dstBytesPerPixel int,
	ext transform.Extrinsics,
	target stream.Key,
) ([]byte, error) {
	v := depth.Video
	if v == nil || v.BytesPerPixel != 2 {
		return nil, errors.Errorf("stream %s: alignment source must be a 16-bit depth frame", depth.Key)
	}
	if v.Width != srcIntr.Width || v.Height != srcIntr.Height {
		return nil, errors.Errorf("depth frame is %dx%d but intrinsics expect %dx%d",
			v.Width, v.Height, srcIntr.Width, srcIntr.Height)
	}
	out := a.EnsureBuffer(target, dstIntr, dstBytesPerPixel)
	if want := dstIntr.Width * dstIntr.Height * dstBytesPerPixel; len(out) != want {
		return nil, errors.Errorf("aligned buffer for %s is %d bytes, need %d", target, len(out), want)
	}
	for i := range out {
		out[i] = blankFill
	}

	rescale := a.depthScale / meterToMillimeter

	utils.ParallelForEachRow(srcIntr.Height, func(fromY int) {
		fromIdx := fromY * srcIntr.Width
		for fromX := 0; fromX < srcIntr.Width; fromX, fromIdx = fromX+1, fromIdx+1 {
			raw := v.DepthAt(fromIdx)
			// zero depth means no data
			if raw == 0 {
				continue
			}
			depthMeters := float64(raw) * a.depthScale

			x0, y0 := reproject(srcIntr, dstIntr, ext,
				float64(fromX)-0.5, float64(fromY)-0.5, depthMeters)
			x1, y1 := reproject(srcIntr, dstIntr, ext,
				float64(fromX)+0.5, float64(fromY)+0.5, depthMeters)

			if x0 < 0 || y0 < 0 || x1 >= dstIntr.Width || y1 >= dstIntr.Height {
				continue
			}

			outDepth := uint16(float64(raw) * rescale)
			for y := y0; y <= y1; y++ {
				rowOff := y * dstIntr.Width
				for x := x0; x <= x1; x++ {
					binary.LittleEndian.PutUint16(out[2*(rowOff+x):], outDepth)
				}
			}
		}
	})
	return out, nil
}

// reproject maps one source pixel corner at the given depth into rounded
// target pixel coordinates.
func reproject(
	srcIntr, dstIntr transform.Intrinsics,
	ext transform.Extrinsics,
	px, py, depthMeters float64,
) (int, int) {
	sx, sy, sz := srcIntr.PixelToPoint(px, py, depthMeters)
	p := ext.Transform(r3.Vector{X: sx, Y: sy, Z: sz})
	u, v := dstIntr.PointToPixel(p.X, p.Y, p.Z)
	return int(math.Floor(u + 0.5)), int(math.Floor(v + 0.5))
}

// Reset drops all cached buffers, for session re-initialization.
func (a *Aligner) Reset(depthScale float64) {
	a.depthScale = depthScale
	a.buffers = make(map[stream.Key][]byte)
}
