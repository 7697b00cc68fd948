// Package pointcloud defines the dense, structured point clouds the pipeline
// synthesizes from depth frames, and the synthesis itself.
package pointcloud

import (
	"github.com/golang/geo/r3"
)

// Color is an 8-bit RGB sample attached to a point.
type Color struct {
	R, G, B uint8
}

// Cloud is a dense structured point cloud laid out row-major at a depth
// stream's resolution. The cardinality is always Width*Height with the point
// for pixel (col, row) at index row*Width+col; invalid pixels are present as
// zero points. Consumers rely on that layout, so it is a contract, not an
// optimization opportunity.
type Cloud struct {
	Width  int
	Height int
	Points []r3.Vector
	// Colors is non-nil only for colorized clouds, parallel to Points.
	Colors []Color
}

// NewCloud returns an uncolorized cloud of the given structured size.
func NewCloud(width, height int) *Cloud {
	return &Cloud{
		Width:  width,
		Height: height,
		Points: make([]r3.Vector, width*height),
	}
}

// NewColoredCloud returns a colorized cloud of the given structured size.
func NewColoredCloud(width, height int) *Cloud {
	c := NewCloud(width, height)
	c.Colors = make([]Color, width*height)
	return c
}

// Size returns the number of points, always Width*Height.
func (c *Cloud) Size() int {
	return len(c.Points)
}

// HasColor reports whether per-point color is attached.
func (c *Cloud) HasColor() bool {
	return c.Colors != nil
}

// At returns the point for pixel (x, y).
func (c *Cloud) At(x, y int) r3.Vector {
	return c.Points[y*c.Width+x]
}

// ColorAt returns the color for pixel (x, y); only valid on colorized clouds.
func (c *Cloud) ColorAt(x, y int) Color {
	return c.Colors[y*c.Width+x]
}
