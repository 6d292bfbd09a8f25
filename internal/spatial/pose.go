package spatial

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrNotUnitQuaternion is returned by Validate when a pose's rotation is not
// normalised.
var ErrNotUnitQuaternion = errors.New("rotation is not a unit quaternion")

// ErrNonFinite is returned by Validate when a pose contains NaN or ±Inf.
var ErrNonFinite = errors.New("pose contains non-finite component")

// Vec3 is a point or direction in the world frame (metres).
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v+o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v-o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Pose is a rigid transform: rotation followed by translation.
type Pose struct {
	Translation Vec3
	Rotation    Quat
}

// Identity returns the pose at the origin with no rotation.
func Identity() Pose {
	return Pose{Rotation: QuatIdentity()}
}

// NewPose builds a pose from a translation and rotation.
func NewPose(t Vec3, r Quat) Pose {
	return Pose{Translation: t, Rotation: r}
}

// TX, TY and TZ mirror the accessors AR SDKs expose on their pose types.
func (p Pose) TX() float64 { return p.Translation.X }
func (p Pose) TY() float64 { return p.Translation.Y }
func (p Pose) TZ() float64 { return p.Translation.Z }

// WithY returns a copy of p with the translation's Y replaced. Rotation and
// X/Z are untouched.
func (p Pose) WithY(y float64) Pose {
	p.Translation.Y = y
	return p
}

// Validate checks the pose invariants: finite components and a unit
// rotation quaternion.
func (p Pose) Validate() error {
	t := p.Translation
	if !finite(t.X) || !finite(t.Y) || !finite(t.Z) || !p.Rotation.IsFinite() {
		return ErrNonFinite
	}
	if !p.Rotation.IsUnit() {
		return fmt.Errorf("%w: |q|=%.6f", ErrNotUnitQuaternion, p.Rotation.Norm())
	}
	return nil
}

// TransformPoint maps a point from the pose's local frame into the world frame.
func (p Pose) TransformPoint(v Vec3) Vec3 {
	return p.Rotation.Rotate(v).Add(p.Translation)
}

// Matrix returns the 4×4 homogeneous matrix of p with a uniform scale
// applied in the local frame (T·R·S).
func (p Pose) Matrix(scale float64) *mat.Dense {
	q := p.Rotation.Normalize()
	x, y, z, w := q.X, q.Y, q.Z, q.W

	rot := mat.NewDense(4, 4, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w), 0,
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w), 0,
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	})
	trans := mat.NewDense(4, 4, []float64{
		1, 0, 0, p.Translation.X,
		0, 1, 0, p.Translation.Y,
		0, 0, 1, p.Translation.Z,
		0, 0, 0, 1,
	})
	scl := mat.NewDiagDense(4, []float64{scale, scale, scale, 1})

	var tr, out mat.Dense
	tr.Mul(trans, rot)
	out.Mul(&tr, scl)
	return &out
}

// ModelMatrix returns Matrix(scale) flattened column-major, the layout
// OpenGL-style renderers consume directly.
func (p Pose) ModelMatrix(scale float64) [16]float32 {
	m := p.Matrix(scale)
	var out [16]float32
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out[col*4+row] = float32(m.At(row, col))
		}
	}
	return out
}

// String implements fmt.Stringer.
func (p Pose) String() string {
	return fmt.Sprintf("t=(%.3f, %.3f, %.3f) q=(%.3f, %.3f, %.3f, %.3f)",
		p.Translation.X, p.Translation.Y, p.Translation.Z,
		p.Rotation.X, p.Rotation.Y, p.Rotation.Z, p.Rotation.W)
}
