package transform

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Extrinsics is the rigid transform between two cameras' optical frames.
// Rotation is stored column-major, the layout the sensor SDK reports it in.
type Extrinsics struct {
	Rotation    [9]float64
	Translation [3]float64
}

// IdentityExtrinsics relates a camera frame to itself.
func IdentityExtrinsics() Extrinsics {
	return Extrinsics{
		Rotation: [9]float64{
			1, 0, 0,
			0, 1, 0,
			0, 0, 1,
		},
	}
}

// Transform maps a point expressed in the source camera's frame into the
// target camera's frame.
func (e Extrinsics) Transform(p r3.Vector) r3.Vector {
	return r3.Vector{
		X: e.Rotation[0]*p.X + e.Rotation[3]*p.Y + e.Rotation[6]*p.Z + e.Translation[0],
		Y: e.Rotation[1]*p.X + e.Rotation[4]*p.Y + e.Rotation[7]*p.Z + e.Translation[1],
		Z: e.Rotation[2]*p.X + e.Rotation[5]*p.Y + e.Rotation[8]*p.Z + e.Translation[2],
	}
}

// RotationMatrix returns the rotation as a row-major gonum matrix. The stored
// layout is column-major, so indices transpose here.
func (e Extrinsics) RotationMatrix() *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, e.Rotation[j*3+i])
		}
	}
	return m
}

// TranslationVector returns the translation component.
func (e Extrinsics) TranslationVector() r3.Vector {
	return r3.Vector{X: e.Translation[0], Y: e.Translation[1], Z: e.Translation[2]}
}
