package filters

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/calyptra/depthpipe/frame"
)

// DisparityParams converts between raw depth and stereo disparity.
// Disparity = FocalBaseline / depthMeters, with FocalBaseline the product of
// the depth sensor's focal length (pixels) and stereo baseline (meters).
type DisparityParams struct {
	FocalBaseline float64
	// DepthScale converts a raw depth sample to meters.
	DepthScale float64
}

func (p DisparityParams) validate() error {
	if p.FocalBaseline <= 0 {
		return errors.Errorf("focal-baseline product must be positive, got %v", p.FocalBaseline)
	}
	if p.DepthScale <= 0 {
		return errors.Errorf("depth scale must be positive, got %v", p.DepthScale)
	}
	return nil
}

// depthToDisparity rewrites a Z16 depth frame as a float32 disparity frame.
type depthToDisparity struct {
	params DisparityParams
}

// NewDepthToDisparity returns the depth-to-disparity conversion stage.
func NewDepthToDisparity(params DisparityParams) Stage {
	return &depthToDisparity{params: params}
}

func (s *depthToDisparity) Name() string { return StageDepthToDisparity }
func (s *depthToDisparity) Reset()       {}

func (s *depthToDisparity) Process(f *frame.Frame) (*frame.Frame, error) {
	if err := s.params.validate(); err != nil {
		return nil, err
	}
	v := f.Video
	if v == nil || v.BytesPerPixel != 2 {
		return nil, errors.New("depth-to-disparity expects a 16-bit depth frame")
	}
	out := &frame.Video{
		Data:          make([]byte, v.PixelCount()*4),
		Width:         v.Width,
		Height:        v.Height,
		BytesPerPixel: 4,
		Stride:        v.Width * 4,
	}
	for i := 0; i < v.PixelCount(); i++ {
		raw := v.DepthAt(i)
		var d float32
		if raw != 0 {
			d = float32(s.params.FocalBaseline / (float64(raw) * s.params.DepthScale))
		}
		binary.LittleEndian.PutUint32(out.Data[4*i:], math.Float32bits(d))
	}
	g := *f
	g.Video = out
	return &g, nil
}

// disparityToDepth is the exact inverse of depthToDisparity.
type disparityToDepth struct {
	params DisparityParams
}

// NewDisparityToDepth returns the disparity-to-depth conversion stage.
func NewDisparityToDepth(params DisparityParams) Stage {
	return &disparityToDepth{params: params}
}

func (s *disparityToDepth) Name() string { return StageDisparityToDepth }
func (s *disparityToDepth) Reset()       {}

func (s *disparityToDepth) Process(f *frame.Frame) (*frame.Frame, error) {
	if err := s.params.validate(); err != nil {
		return nil, err
	}
	v := f.Video
	if v == nil || v.BytesPerPixel != 4 {
		return nil, errors.New("disparity-to-depth expects a float32 disparity frame")
	}
	out := &frame.Video{
		Data:          make([]byte, v.PixelCount()*2),
		Width:         v.Width,
		Height:        v.Height,
		BytesPerPixel: 2,
		Stride:        v.Width * 2,
	}
	for i := 0; i < v.PixelCount(); i++ {
		d := math.Float32frombits(binary.LittleEndian.Uint32(v.Data[4*i:]))
		var raw uint16
		if d > 0 {
			depthRaw := s.params.FocalBaseline / (float64(d) * s.params.DepthScale)
			if depthRaw > 0 && depthRaw <= math.MaxUint16 {
				raw = uint16(math.Round(depthRaw))
			}
		}
		out.SetDepthAt(i, raw)
	}
	g := *f
	g.Video = out
	return &g, nil
}
