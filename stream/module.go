package stream

import "github.com/pkg/errors"

// ErrUnsupportedModule means the device exposes a sensor module this pipeline
// has no stream mapping for. Fatal: continuing would leave the session in an
// inconsistent state.
var ErrUnsupportedModule = errors.New("sensor module is not supported")

// ModuleStreams maps a device sensor module name to the stream keys it serves.
func ModuleStreams(name string) ([]Key, error) {
	switch name {
	case "Stereo Module":
		return []Key{DepthKey, Infra1Key, Infra2Key}, nil
	case "Coded-Light Depth Sensor":
		return []Key{DepthKey, Infra1Key}, nil
	case "RGB Camera":
		return []Key{ColorKey}, nil
	case "Wide FOV Camera":
		return []Key{FisheyeKey}, nil
	case "Motion Module":
		return []Key{GyroKey, AccelKey}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedModule, "module %q", name)
	}
}
