package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Twist is a 6-component vector combining the linear and angular velocity (or pose
// error) of a rigid body. Component ordering matches the rows of a geometric Jacobian:
// linear x, y, z then angular x, y, z.
type Twist struct {
	Linear  r3.Vector
	Angular r3.Vector
}

// Add returns the componentwise sum of two twists.
func (t Twist) Add(other Twist) Twist {
	return Twist{Linear: t.Linear.Add(other.Linear), Angular: t.Angular.Add(other.Angular)}
}

// Sub returns the componentwise difference of two twists.
func (t Twist) Sub(other Twist) Twist {
	return Twist{Linear: t.Linear.Sub(other.Linear), Angular: t.Angular.Sub(other.Angular)}
}

// Scale multiplies every component by f.
func (t Twist) Scale(f float64) Twist {
	return Twist{Linear: t.Linear.Mul(f), Angular: t.Angular.Mul(f)}
}

// MulElem returns the elementwise (Hadamard) product of two twists. This is how the
// per-axis gain vectors are applied to error twists.
func (t Twist) MulElem(other Twist) Twist {
	return Twist{
		Linear:  r3.Vector{X: t.Linear.X * other.Linear.X, Y: t.Linear.Y * other.Linear.Y, Z: t.Linear.Z * other.Linear.Z},
		Angular: r3.Vector{X: t.Angular.X * other.Angular.X, Y: t.Angular.Y * other.Angular.Y, Z: t.Angular.Z * other.Angular.Z},
	}
}

// Norm returns the Euclidean norm over all six components.
func (t Twist) Norm() float64 {
	return math.Sqrt(t.Linear.Norm2() + t.Angular.Norm2())
}

// AllBelow reports whether the absolute value of every component is below tol.
func (t Twist) AllBelow(tol float64) bool {
	for _, v := range t.Values() {
		if math.Abs(v) >= tol {
			return false
		}
	}
	return true
}

// Values returns the six components in Jacobian row order.
func (t Twist) Values() [6]float64 {
	return [6]float64{t.Linear.X, t.Linear.Y, t.Linear.Z, t.Angular.X, t.Angular.Y, t.Angular.Z}
}

// TwistFromValues builds a twist from six components in Jacobian row order.
func TwistFromValues(v [6]float64) Twist {
	return Twist{
		Linear:  r3.Vector{X: v[0], Y: v[1], Z: v[2]},
		Angular: r3.Vector{X: v[3], Y: v[4], Z: v[5]},
	}
}
