// Package dynamics declares the kinematic/dynamic model the Cartesian controller
// queries every period. Concrete models (URDF-backed chains, vendor SDKs) live outside
// this module; the controller only depends on this interface.
package dynamics

import (
	"gonum.org/v1/gonum/mat"

	"go.viam.com/cartopt/spatialmath"
)

// Model exposes the kinematics and dynamics of a manipulator. Update must be called
// once per control period before any query; queries return values for the state passed
// to the latest Update.
type Model interface {
	// Init prepares the model. It is called once at configuration time; failure is
	// fatal for the component using the model.
	Init() error

	// DOF returns the number of joints. Fixed after Init.
	DOF() int

	// Update refreshes the model with the current joint positions and velocities.
	Update(q, qd []float64) error

	// SegmentPose returns the pose of the named segment in the model's base frame.
	SegmentPose(name string) (spatialmath.Pose, error)

	// SegmentTwist returns the velocity twist of the named segment.
	SegmentTwist(name string) (spatialmath.Twist, error)

	// SegmentJacobian returns the 6×DOF geometric Jacobian of the named segment, rows
	// ordered as in spatialmath.Twist.Values.
	SegmentJacobian(name string) (*mat.Dense, error)

	// SegmentJdotQdot returns the Jacobian-time-derivative times joint-velocity term
	// for the named segment.
	SegmentJdotQdot(name string) (spatialmath.Twist, error)

	// InertiaInverse returns the DOF×DOF inverse of the joint-space mass matrix.
	InertiaInverse() *mat.Dense

	// CoriolisTorque returns the joint torques induced by Coriolis and centrifugal
	// effects at the current state.
	CoriolisTorque() []float64

	// GravityTorque returns the joint torques needed to hold the current state against
	// gravity.
	GravityTorque() []float64
}
