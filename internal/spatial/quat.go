package spatial

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// UnitTolerance is the allowed deviation of |q| from 1 for a rotation to
// count as normalised.
const UnitTolerance = 1e-3

// Quat is a rotation quaternion. W is the scalar part.
type Quat struct {
	X, Y, Z, W float64
}

// QuatIdentity returns the no-rotation quaternion.
func QuatIdentity() Quat {
	return Quat{W: 1}
}

// QuatFromAxisAngle builds a rotation of angle radians about axis. The axis
// is normalised first; a zero axis yields the identity.
func QuatFromAxisAngle(axis Vec3, angle float64) Quat {
	n := axis.Norm()
	if n == 0 {
		return QuatIdentity()
	}
	s := math.Sin(angle/2) / n
	return Quat{X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s, W: math.Cos(angle / 2)}
}

func (q Quat) number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

func fromNumber(n quat.Number) Quat {
	return Quat{X: n.Imag, Y: n.Jmag, Z: n.Kmag, W: n.Real}
}

// Norm returns |q|.
func (q Quat) Norm() float64 {
	return quat.Abs(q.number())
}

// IsUnit reports whether |q| is within UnitTolerance of 1.
func (q Quat) IsUnit() bool {
	return math.Abs(q.Norm()-1) <= UnitTolerance
}

// Normalize returns q scaled to unit length. Degenerate input returns the
// identity rather than NaNs.
func (q Quat) Normalize() Quat {
	n := q.Norm()
	if n < 1e-9 || math.IsNaN(n) || math.IsInf(n, 0) {
		return QuatIdentity()
	}
	return fromNumber(quat.Scale(1/n, q.number()))
}

// Mul returns the Hamilton product q*r (apply r, then q).
func (q Quat) Mul(r Quat) Quat {
	return fromNumber(quat.Mul(q.number(), r.number()))
}

// Conj returns the conjugate, which is the inverse for unit quaternions.
func (q Quat) Conj() Quat {
	return fromNumber(quat.Conj(q.number()))
}

// Rotate applies q to v as q·v·q*.
func (q Quat) Rotate(v Vec3) Vec3 {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q.number(), p), quat.Conj(q.number()))
	return Vec3{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// IsFinite reports whether every component is a finite number.
func (q Quat) IsFinite() bool {
	return finite(q.X) && finite(q.Y) && finite(q.Z) && finite(q.W)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
