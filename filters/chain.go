// Package filters implements the optional depth post-processing chain applied
// before a depth frame is published, aligned or turned into a point cloud.
//
// Stage order is a correctness invariant: the disparity conversions must
// bracket the smoothing stages, so depth enters the disparity domain before
// spatial/temporal filtering and returns to depth afterwards.
package filters

import (
	"github.com/pkg/errors"

	"github.com/calyptra/depthpipe/frame"
)

// Stage transforms a depth frame. Implementations may keep private history
// across cycles (the temporal filter does); they must never change the
// frame's stream key.
type Stage interface {
	Name() string
	Process(f *frame.Frame) (*frame.Frame, error)
	// Reset drops any cross-cycle history the stage holds.
	Reset()
}

type chainEntry struct {
	stage   Stage
	enabled bool
}

// Chain is an ordered list of independently toggleable stages. A disabled
// stage is a no-op.
type Chain struct {
	entries []chainEntry
}

// Canonical stage names.
const (
	StageDepthToDisparity = "Depth_to_Disparity"
	StageSpatial          = "Spatial"
	StageTemporal         = "Temporal"
	StageDisparityToDepth = "Disparity_to_Depth"
)

// NewDepthChain builds the canonical depth filter chain in its fixed order,
// with every stage disabled.
func NewDepthChain(params DisparityParams) *Chain {
	return &Chain{entries: []chainEntry{
		{stage: NewDepthToDisparity(params)},
		{stage: NewSpatial()},
		{stage: NewTemporal()},
		{stage: NewDisparityToDepth(params)},
	}}
}

// Enable toggles the named stage.
func (c *Chain) Enable(name string, enabled bool) error {
	for i := range c.entries {
		if c.entries[i].stage.Name() == name {
			c.entries[i].enabled = enabled
			return nil
		}
	}
	return errors.Errorf("no filter stage named %q", name)
}

// Enabled reports whether the named stage is currently on.
func (c *Chain) Enabled(name string) bool {
	for i := range c.entries {
		if c.entries[i].stage.Name() == name {
			return c.entries[i].enabled
		}
	}
	return false
}

// Apply runs the enabled stages in order, replacing the frame with each
// stage's output. Stage errors abort the chain and propagate to the caller's
// cycle error boundary.
func (c *Chain) Apply(f *frame.Frame) (*frame.Frame, error) {
	for i := range c.entries {
		if !c.entries[i].enabled {
			continue
		}
		out, err := c.entries[i].stage.Process(f)
		if err != nil {
			return nil, errors.Wrapf(err, "filter stage %q", c.entries[i].stage.Name())
		}
		if out.Key != f.Key {
			return nil, errors.Errorf("filter stage %q changed the stream key from %s to %s",
				c.entries[i].stage.Name(), f.Key, out.Key)
		}
		f = out
	}
	return f, nil
}

// Reset drops all cross-cycle stage history. Called on session reset.
func (c *Chain) Reset() {
	for i := range c.entries {
		c.entries[i].stage.Reset()
	}
}
