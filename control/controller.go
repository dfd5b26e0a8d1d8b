// Package control implements the Cartesian optimization torque controller. Every
// period it turns the tracking error of the end effector into a desired Cartesian
// acceleration, linearizes the manipulator dynamics around the current state, and
// solves a box-constrained QP for the joint torques realizing that acceleration as
// closely as the torque limits allow.
package control

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/cartopt/dynamics"
	"go.viam.com/cartopt/port"
	"go.viam.com/cartopt/qp"
	"go.viam.com/cartopt/spatialmath"
	"go.viam.com/cartopt/trajectory"
)

// Config tunes the controller. Gains are per Cartesian axis in the order of
// spatialmath.Twist.Values; torque limits are per joint.
type Config struct {
	// EndEffectorFrame is the model segment the controller servos.
	EndEffectorFrame string `json:"ee_frame"`
	// PGain scales the pose error contribution to the desired acceleration.
	PGain spatialmath.Twist `json:"p_gains"`
	// DGain scales the twist error contribution to the desired acceleration.
	DGain spatialmath.Twist `json:"d_gains"`
	// TorqueLimits bound the QP solution symmetrically, one entry per joint.
	TorqueLimits []float64 `json:"max_torque"`
	// GravityCompensated marks an actuator that adds its own gravity hold; when set, the
	// model's gravity torque is subtracted from the solution before it is sent.
	GravityCompensated bool `json:"gravity_compensated"`
	// MaxSolverIterations bounds each QP solve. Zero means the solver default.
	MaxSolverIterations int `json:"max_solver_iterations"`
}

// DefaultConfig returns stiff position tracking for a 6-DOF arm.
func DefaultConfig() Config {
	return Config{
		EndEffectorFrame: "tool",
		PGain: spatialmath.TwistFromValues(
			[6]float64{1000, 1000, 1000, 300, 300, 300},
		),
		DGain: spatialmath.TwistFromValues(
			[6]float64{50, 50, 50, 10, 10, 10},
		),
		TorqueLimits:        []float64{100, 100, 100, 30, 30, 30},
		GravityCompensated:  true,
		MaxSolverIterations: qp.DefaultMaxIterations,
	}
}

// Validate returns every problem with the configuration.
func (cfg Config) Validate() error {
	var err error
	if cfg.EndEffectorFrame == "" {
		err = multierr.Append(err, errors.New("ee_frame must be set"))
	}
	for i, g := range cfg.PGain.Values() {
		if g < 0 {
			err = multierr.Append(err, errors.Errorf("p gain %d must be non-negative", i))
		}
	}
	for i, g := range cfg.DGain.Values() {
		if g < 0 {
			err = multierr.Append(err, errors.Errorf("d gain %d must be non-negative", i))
		}
	}
	if len(cfg.TorqueLimits) == 0 {
		err = multierr.Append(err, errors.New("max_torque must be set"))
	}
	for i, lim := range cfg.TorqueLimits {
		if lim <= 0 {
			err = multierr.Append(err, errors.Errorf("max_torque %d must be positive", i))
		}
	}
	if cfg.MaxSolverIterations < 0 {
		err = multierr.Append(err, errors.New("max_solver_iterations must be non-negative"))
	}
	return err
}

// Controller servos the end effector along trajectory samples arriving on
// TrajectoryIn, emitting one torque command per period on TorqueOut. Periods with
// stale joint feedback produce no command; periods where the QP fails produce an
// explicit zero command.
type Controller struct {
	cfg    Config
	model  dynamics.Model
	solver qp.Solver
	logger golog.Logger

	// JointPositionIn and JointVelocityIn carry the joint feedback, one fresh sample
	// per period each.
	JointPositionIn *port.Data[[]float64]
	JointVelocityIn *port.Data[[]float64]
	// TrajectoryIn carries the desired end-effector sample for the period.
	TrajectoryIn *port.Data[trajectory.Point]
	// TorqueOut carries the commanded joint torques.
	TorqueOut *port.Data[[]float64]

	mu              sync.Mutex
	dof             int
	hasFirstCommand bool
	solverReady     bool
	desired         trajectory.Point
}

// NewController returns an unconfigured controller around the given model and solver.
func NewController(cfg Config, model dynamics.Model, solver qp.Solver, logger golog.Logger) *Controller {
	return &Controller{
		cfg:             cfg,
		model:           model,
		solver:          solver,
		logger:          logger,
		JointPositionIn: port.New[[]float64]("joint_position"),
		JointVelocityIn: port.New[[]float64]("joint_velocity"),
		TrajectoryIn:    port.New[trajectory.Point]("trajectory_point"),
		TorqueOut:       port.New[[]float64]("joint_torque"),
	}
}

// Name implements loop.Component.
func (c *Controller) Name() string {
	return "cartesian_controller"
}

// Configure validates the configuration and initializes the model. A model that fails
// to initialize makes the controller unusable, so the error is fatal to the caller.
func (c *Controller) Configure(ctx context.Context) error {
	if c.model == nil {
		return errors.New("controller needs a dynamics model")
	}
	if c.solver == nil {
		return errors.New("controller needs a QP solver")
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	if err := c.model.Init(); err != nil {
		return errors.Wrap(err, "model initialization failed")
	}
	c.dof = c.model.DOF()
	if len(c.cfg.TorqueLimits) != c.dof {
		return errors.Errorf("model has %d joints but max_torque has %d entries", c.dof, len(c.cfg.TorqueLimits))
	}
	return nil
}

// Start implements loop.Component. The first period after Start servos the measured
// pose until a trajectory sample arrives.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasFirstCommand = false
	return nil
}

// Stop implements loop.Component. The next Start begins with a cold solver.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasFirstCommand = false
	c.solverReady = false
	return nil
}

// Tick runs one control period. Nothing is written unless both feedback ports carry a
// fresh sample for this period.
func (c *Controller) Tick(ctx context.Context, dt time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, qStatus := c.JointPositionIn.Read()
	qd, qdStatus := c.JointVelocityIn.Read()
	if qStatus != port.NewData || qdStatus != port.NewData {
		return
	}
	if err := c.model.Update(q, qd); err != nil {
		c.logger.Errorw("model update failed", "error", err)
		return
	}

	current, err := c.model.SegmentPose(c.cfg.EndEffectorFrame)
	if err != nil {
		c.logger.Errorw("end effector pose unavailable", "error", err)
		return
	}
	currentTwist, err := c.model.SegmentTwist(c.cfg.EndEffectorFrame)
	if err != nil {
		c.logger.Errorw("end effector twist unavailable", "error", err)
		return
	}

	if pt, status := c.TrajectoryIn.Read(); status == port.NewData {
		c.desired = pt
		c.hasFirstCommand = true
	} else if c.hasFirstCommand {
		// Between trajectories the controller holds the last commanded pose.
		c.desired.Twist = spatialmath.Twist{}
		c.desired.Acceleration = spatialmath.Twist{}
	} else {
		// Nothing has ever been commanded: latch the pose the arm woke up in and hold
		// it from now on.
		c.desired = trajectory.Point{Pose: current}
		c.hasFirstCommand = true
	}

	xErr := spatialmath.PoseDelta(current, c.desired.Pose)
	xdErr := c.desired.Twist.Sub(currentTwist)
	xddDes := c.desired.Acceleration.
		Add(c.cfg.PGain.MulElem(xErr)).
		Add(c.cfg.DGain.MulElem(xdErr))

	tau, err := c.solveTorque(xddDes)
	if err != nil {
		// Fail safe: exactly zero, untouched by gravity compensation, so a
		// self-compensating actuator simply holds still.
		c.logger.Warnw("torque optimization failed; commanding zero torque", "error", err)
		c.TorqueOut.Write(make([]float64, c.dof))
		return
	}
	if c.cfg.GravityCompensated {
		for i, g := range c.model.GravityTorque() {
			tau[i] -= g
		}
	}
	c.TorqueOut.Write(tau)
}

// solveTorque linearizes the task-space dynamics around the current state and solves
// for the torque realizing xddDes: with a = J·M⁻¹, the tracking residual is
// a·τ + (J̇q̇ − a·(C+G) − ẍ_des), minimized inside the torque box.
func (c *Controller) solveTorque(xddDes spatialmath.Twist) ([]float64, error) {
	jac, err := c.model.SegmentJacobian(c.cfg.EndEffectorFrame)
	if err != nil {
		return nil, err
	}
	jdqd, err := c.model.SegmentJdotQdot(c.cfg.EndEffectorFrame)
	if err != nil {
		return nil, err
	}

	var a mat.Dense
	a.Mul(jac, c.model.InertiaInverse())

	coriolis := c.model.CoriolisTorque()
	gravity := c.model.GravityTorque()
	bias := mat.NewVecDense(c.dof, nil)
	for i := 0; i < c.dof; i++ {
		bias.SetVec(i, coriolis[i]+gravity[i])
	}
	var aBias mat.VecDense
	aBias.MulVec(&a, bias)

	b := mat.NewVecDense(6, nil)
	jdqdValues := jdqd.Values()
	xddValues := xddDes.Values()
	for i := 0; i < 6; i++ {
		b.SetVec(i, jdqdValues[i]-aBias.AtVec(i)-xddValues[i])
	}

	lower := make([]float64, c.dof)
	upper := make([]float64, c.dof)
	for i, lim := range c.cfg.TorqueLimits {
		lower[i] = -lim
		upper[i] = lim
	}
	prob, err := qp.NewLeastSquares(&a, b, lower, upper)
	if err != nil {
		return nil, err
	}

	// The first solve after Start (and after any string of failures before one
	// succeeds) is cold; every later one reuses the previous solution. A failed solve
	// does not demote an already-warm solver.
	if !c.solverReady {
		tau, err := c.solver.Init(prob, c.cfg.MaxSolverIterations)
		if err != nil {
			return nil, err
		}
		c.solverReady = true
		return tau, nil
	}
	return c.solver.Hotstart(prob, c.cfg.MaxSolverIterations)
}
