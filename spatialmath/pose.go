// Package spatialmath defines the spatial math primitives shared by the trajectory and
// control packages: rigid-body poses, twists, and conversions between quaternions and
// axis-angle rotations.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Rotation axes whose norm is below this are treated as no rotation.
const angleEpsilon = 1e-6

// Pose is a rigid-body pose in some reference frame: a point in space together with a
// unit quaternion orientation.
type Pose struct {
	Orientation quat.Number
	Point       r3.Vector
}

// NewZeroPose returns the identity pose. Since a valid orientation is a unit quaternion,
// not all zeroes, this should be used instead of Pose{}.
func NewZeroPose() Pose {
	return Pose{Orientation: quat.Number{Real: 1}}
}

// NewPose returns a pose at the given point with the given orientation, normalized to a
// unit quaternion.
func NewPose(pt r3.Vector, o quat.Number) Pose {
	return Pose{Orientation: Normalize(o), Point: pt}
}

// NewPoseFromPoint returns a pose at the given point with the identity orientation.
func NewPoseFromPoint(pt r3.Vector) Pose {
	return Pose{Orientation: quat.Number{Real: 1}, Point: pt}
}

// NewPoseFromAxisAngle returns a pose at the given point whose orientation is the
// rotation described by the R3 axis-angle vector aa.
func NewPoseFromAxisAngle(pt, aa r3.Vector) Pose {
	return Pose{Orientation: R3AAToQuat(aa), Point: pt}
}

// Compose treats b as relative to a and returns the pose of b expressed in a's parent
// frame.
func Compose(a, b Pose) Pose {
	return Pose{
		Orientation: quat.Mul(a.Orientation, b.Orientation),
		Point:       a.Point.Add(RotateVector(a.Orientation, b.Point)),
	}
}

// Invert returns the inverse transform, such that Compose(p, p.Invert()) is the identity.
func (p Pose) Invert() Pose {
	inv := quat.Conj(p.Orientation)
	return Pose{Orientation: inv, Point: RotateVector(inv, p.Point).Mul(-1)}
}

// PoseDelta returns the twist moving from one pose to the other in unit time: the
// translation difference plus the R3 axis-angle of the relative rotation. Distances are
// well-defined with quaternion/axis angle, which is why it is used here.
func PoseDelta(from, to Pose) Twist {
	return Twist{
		Linear:  to.Point.Sub(from.Point),
		Angular: QuatToR3AA(quat.Mul(to.Orientation, quat.Conj(from.Orientation))),
	}
}

// OrientationBetween returns the rotation carrying from's orientation onto to's,
// expressed in the shared parent frame.
func OrientationBetween(from, to Pose) quat.Number {
	return quat.Mul(to.Orientation, quat.Conj(from.Orientation))
}

// RotateVector rotates a vector by a unit quaternion.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	rotated := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}

// QuatToR3AA converts a quat to an R3 axis angle in the same way the C++ Eigen library
// does. https://eigen.tuxfamily.org/dox/AngleAxis_8h_source.html
func QuatToR3AA(q quat.Number) r3.Vector {
	denom := imagNorm(q)

	angle := 2 * math.Atan2(denom, math.Abs(q.Real))
	if q.Real < 0 {
		angle *= -1
	}

	if denom < angleEpsilon {
		return r3.Vector{X: angle, Y: 0, Z: 0}
	}
	return r3.Vector{X: angle * q.Imag / denom, Y: angle * q.Jmag / denom, Z: angle * q.Kmag / denom}
}

// R3AAToQuat converts an R3 axis-angle vector, whose norm is the rotation angle in
// radians, to a unit quaternion.
func R3AAToQuat(aa r3.Vector) quat.Number {
	angle := aa.Norm()
	if angle < angleEpsilon {
		return quat.Number{Real: 1}
	}
	axis := aa.Mul(1 / angle)
	s := math.Sin(angle / 2)
	return quat.Number{Real: math.Cos(angle / 2), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

// Normalize scales a quaternion to unit length.
func Normalize(q quat.Number) quat.Number {
	length := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if length == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/length, q)
}

// imagNorm returns the norm of the imaginary parts of the quaternion.
func imagNorm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}
