// Package fake provides an analytic stand-in for a real manipulator model, used in
// tests and demos. The fake is a 6-DOF Cartesian stage: the first three joints
// translate the tool along x, y, z and the last three rotate it, so the Jacobian is the
// identity and every dynamic quantity has a closed form.
package fake

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/cartopt/spatialmath"
)

// Stage is a decoupled 6-DOF model. Each joint carries a point mass (or inertia) with
// viscous friction standing in for Coriolis effects; gravity loads the vertical joint
// only.
type Stage struct {
	segment string
	masses  [6]float64
	damping [6]float64
	gravity float64

	initialized bool
	q, qd       []float64
}

// NewStage returns a stage whose tool segment has the given name, with unit masses,
// light damping, and standard gravity.
func NewStage(segment string) *Stage {
	return &Stage{
		segment: segment,
		masses:  [6]float64{1, 1, 1, 0.1, 0.1, 0.1},
		damping: [6]float64{0.5, 0.5, 0.5, 0.05, 0.05, 0.05},
		gravity: 9.81,
	}
}

// SetMasses overrides the per-joint masses/inertias. Call before Init.
func (s *Stage) SetMasses(masses [6]float64) {
	s.masses = masses
}

// SetDamping overrides the per-joint viscous coefficients. Call before Init.
func (s *Stage) SetDamping(damping [6]float64) {
	s.damping = damping
}

// Init implements dynamics.Model.
func (s *Stage) Init() error {
	if s.segment == "" {
		return errors.New("fake stage needs a segment name")
	}
	for i, m := range s.masses {
		if m <= 0 {
			return errors.Errorf("mass of joint %d must be positive, got %v", i, m)
		}
	}
	s.q = make([]float64, 6)
	s.qd = make([]float64, 6)
	s.initialized = true
	return nil
}

// DOF implements dynamics.Model.
func (s *Stage) DOF() int {
	return 6
}

// Update implements dynamics.Model.
func (s *Stage) Update(q, qd []float64) error {
	if !s.initialized {
		return errors.New("fake stage not initialized")
	}
	if len(q) != 6 || len(qd) != 6 {
		return errors.Errorf("expected 6 joint values, got %d positions and %d velocities", len(q), len(qd))
	}
	copy(s.q, q)
	copy(s.qd, qd)
	return nil
}

func (s *Stage) checkSegment(name string) error {
	if name != s.segment {
		return errors.Errorf("unknown segment %q, stage tracks %q", name, s.segment)
	}
	return nil
}

// SegmentPose implements dynamics.Model.
func (s *Stage) SegmentPose(name string) (spatialmath.Pose, error) {
	if err := s.checkSegment(name); err != nil {
		return spatialmath.Pose{}, err
	}
	return spatialmath.NewPoseFromAxisAngle(
		r3.Vector{X: s.q[0], Y: s.q[1], Z: s.q[2]},
		r3.Vector{X: s.q[3], Y: s.q[4], Z: s.q[5]},
	), nil
}

// SegmentTwist implements dynamics.Model.
func (s *Stage) SegmentTwist(name string) (spatialmath.Twist, error) {
	if err := s.checkSegment(name); err != nil {
		return spatialmath.Twist{}, err
	}
	return spatialmath.TwistFromValues([6]float64{s.qd[0], s.qd[1], s.qd[2], s.qd[3], s.qd[4], s.qd[5]}), nil
}

// SegmentJacobian implements dynamics.Model.
func (s *Stage) SegmentJacobian(name string) (*mat.Dense, error) {
	if err := s.checkSegment(name); err != nil {
		return nil, err
	}
	j := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		j.Set(i, i, 1)
	}
	return j, nil
}

// SegmentJdotQdot implements dynamics.Model. The Jacobian is constant, so the term is
// zero.
func (s *Stage) SegmentJdotQdot(name string) (spatialmath.Twist, error) {
	if err := s.checkSegment(name); err != nil {
		return spatialmath.Twist{}, err
	}
	return spatialmath.Twist{}, nil
}

// InertiaInverse implements dynamics.Model.
func (s *Stage) InertiaInverse() *mat.Dense {
	minv := mat.NewDense(6, 6, nil)
	for i, m := range s.masses {
		minv.Set(i, i, 1/m)
	}
	return minv
}

// CoriolisTorque implements dynamics.Model.
func (s *Stage) CoriolisTorque() []float64 {
	tau := make([]float64, 6)
	for i := range tau {
		tau[i] = s.damping[i] * s.qd[i]
	}
	return tau
}

// GravityTorque implements dynamics.Model.
func (s *Stage) GravityTorque() []float64 {
	tau := make([]float64, 6)
	tau[2] = s.masses[2] * s.gravity
	return tau
}

// Step integrates the stage forward by dt under the commanded torque, assuming the
// actuator adds its own gravity compensation on top of the command. Used to close the
// loop in demos.
func (s *Stage) Step(tau []float64, dt float64) error {
	if !s.initialized {
		return errors.New("fake stage not initialized")
	}
	if len(tau) != 6 {
		return errors.Errorf("expected 6 torques, got %d", len(tau))
	}
	for i := range s.q {
		qdd := (tau[i] - s.damping[i]*s.qd[i]) / s.masses[i]
		s.qd[i] += qdd * dt
		s.q[i] += s.qd[i] * dt
	}
	return nil
}

// State returns copies of the current joint positions and velocities.
func (s *Stage) State() ([]float64, []float64) {
	q := make([]float64, len(s.q))
	qd := make([]float64, len(s.qd))
	copy(q, s.q)
	copy(qd, s.qd)
	return q, qd
}
