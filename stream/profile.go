package stream

import "github.com/pkg/errors"

// Profile is the concrete parameter set of one channel. Advertised profiles
// come from the device; a negotiated profile is fixed until the session is
// torn down.
type Profile struct {
	Key    Key
	Format Format
	Width  int
	Height int
	FPS    int
}

// BytesPerPixel returns the per-sample byte width of the profile's format.
func (p Profile) BytesPerPixel() int {
	return p.Format.BytesPerPixel()
}

// ImageBytes returns the size of one frame's backing buffer.
func (p Profile) ImageBytes() int {
	return p.Width * p.Height * p.BytesPerPixel()
}

// Request asks for a channel configuration. A zero Width, Height or FPS
// accepts whatever the device offers for that field; Format must always be
// set and match exactly.
type Request struct {
	Key    Key
	Format Format
	Width  int
	Height int
	FPS    int
}

// ErrNoMatchingProfile means the device advertises nothing compatible with a
// request. Per-channel and non-fatal: siblings keep negotiating.
var ErrNoMatchingProfile = errors.New("no advertised profile matches the requested stream configuration")

// SelectProfile picks the first advertised profile whose format matches the
// request exactly and whose width, height and fps each either match or were
// left unconstrained. Selection is deterministic in advertised list order.
func SelectProfile(req Request, advertised []Profile) (Profile, error) {
	for _, p := range advertised {
		if p.Key != req.Key || p.Format != req.Format {
			continue
		}
		if req.Width != 0 && p.Width != req.Width {
			continue
		}
		if req.Height != 0 && p.Height != req.Height {
			continue
		}
		if req.FPS != 0 && p.FPS != req.FPS {
			continue
		}
		return p, nil
	}
	return Profile{}, errors.Wrapf(ErrNoMatchingProfile,
		"stream %s, format %s, width %d, height %d, fps %d",
		req.Key, req.Format, req.Width, req.Height, req.FPS)
}

// SelectMotionProfile picks the first advertised motion profile matching the
// request's format and, when constrained, its sample rate. Motion profiles
// carry no resolution.
func SelectMotionProfile(req Request, advertised []Profile) (Profile, error) {
	for _, p := range advertised {
		if p.Key != req.Key || p.Format != req.Format {
			continue
		}
		if req.FPS != 0 && p.FPS != req.FPS {
			continue
		}
		return p, nil
	}
	return Profile{}, errors.Wrapf(ErrNoMatchingProfile,
		"stream %s, format %s, fps %d", req.Key, req.Format, req.FPS)
}
