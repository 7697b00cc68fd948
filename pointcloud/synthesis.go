package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/calyptra/depthpipe/frame"
	"github.com/calyptra/depthpipe/transform"
)

// maxColorizedDepthMeters is the far plane applied to the colorized variant
// only; the depth-only cloud is unclamped. The split mirrors the sensor
// vendor's own reference pipeline.
const maxColorizedDepthMeters = 5.0

// HoleColor flags depth points whose projection lands outside the color
// image, so holes are visually distinguishable. Same value the sensor SDK
// uses for out-of-bounds color.
var HoleColor = Color{R: 96, G: 157, B: 198}

func checkDepthSource(depth *frame.Frame, intr transform.Intrinsics) error {
	v := depth.Video
	if v == nil || v.BytesPerPixel != 2 {
		return errors.Errorf("stream %s: point cloud source must be a 16-bit depth frame", depth.Key)
	}
	if v.Width != intr.Width || v.Height != intr.Height {
		return errors.Errorf("depth frame is %dx%d but intrinsics expect %dx%d",
			v.Width, v.Height, intr.Width, intr.Height)
	}
	return nil
}

// SynthesizeDepth deprojects every depth pixel into a 3D point in the depth
// camera's frame. Pixels with no data (or a non-positive deprojected depth)
// become the zero point; the output is always dense at Width*Height points in
// row-major pixel order.
func SynthesizeDepth(depth *frame.Frame, intr transform.Intrinsics, depthScale float64) (*Cloud, error) {
	if err := checkDepthSource(depth, intr); err != nil {
		return nil, err
	}
	cloud := NewCloud(intr.Width, intr.Height)
	v := depth.Video
	i := 0
	for y := 0; y < intr.Height; y++ {
		for x := 0; x < intr.Width; x++ {
			scaled := float64(v.DepthAt(i)) * depthScale
			px, py, pz := intr.PixelToPoint(float64(x), float64(y), scaled)
			if pz <= 0 {
				px, py, pz = 0, 0, 0
			}
			cloud.Points[i] = r3.Vector{X: px, Y: py, Z: pz}
			i++
		}
	}
	return cloud, nil
}

// SynthesizeColor builds the colorized variant: points beyond the far plane
// are zeroed like invalid ones, and each surviving point is reprojected into
// the color image to sample its color. Projections landing outside the color
// bounds get HoleColor.
func SynthesizeColor(
	depth, color *frame.Frame,
	depthIntr, colorIntr transform.Intrinsics,
	depthToColor transform.Extrinsics,
	depthScale float64,
) (*Cloud, error) {
	if err := checkDepthSource(depth, depthIntr); err != nil {
		return nil, err
	}
	cv := color.Video
	if cv == nil || cv.BytesPerPixel != 3 {
		return nil, errors.Errorf("stream %s: colorized cloud needs an RGB8 color frame", color.Key)
	}
	if cv.Width != colorIntr.Width || cv.Height != colorIntr.Height {
		return nil, errors.Errorf("color frame is %dx%d but intrinsics expect %dx%d",
			cv.Width, cv.Height, colorIntr.Width, colorIntr.Height)
	}

	cloud := NewColoredCloud(depthIntr.Width, depthIntr.Height)
	dv := depth.Video
	i := 0
	for y := 0; y < depthIntr.Height; y++ {
		for x := 0; x < depthIntr.Width; x++ {
			scaled := float64(dv.DepthAt(i)) * depthScale
			px, py, pz := depthIntr.PixelToPoint(float64(x), float64(y), scaled)
			if pz <= 0 || pz > maxColorizedDepthMeters {
				px, py, pz = 0, 0, 0
			}
			cloud.Points[i] = r3.Vector{X: px, Y: py, Z: pz}

			cp := depthToColor.Transform(r3.Vector{X: px, Y: py, Z: pz})
			cu, cvv := colorIntr.PointToPixel(cp.X, cp.Y, cp.Z)
			if cvv < 0 || cvv >= float64(colorIntr.Height) || cu < 0 || cu >= float64(colorIntr.Width) {
				cloud.Colors[i] = HoleColor
			} else {
				offset := (int(cu) + int(cvv)*colorIntr.Width) * 3
				cloud.Colors[i] = Color{
					R: cv.Data[offset],
					G: cv.Data[offset+1],
					B: cv.Data[offset+2],
				}
			}
			i++
		}
	}
	return cloud, nil
}
