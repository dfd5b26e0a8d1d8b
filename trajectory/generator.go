package trajectory

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/cartopt/port"
	"go.viam.com/cartopt/referenceframe"
	"go.viam.com/cartopt/spatialmath"
)

const (
	// Consecutive waypoints closer than this on every twist axis are dropped.
	waypointTolerance = 0.01
	// Every trajectory ends holding the final pose for this long.
	holdDuration = 0.5
	// Time step of the preview emitted for visualization.
	previewStep = 0.1
)

// GeneratorConfig is the immutable configuration of a Generator, fixed at activation.
type GeneratorConfig struct {
	// BaseFrame is the frame every waypoint is transformed into before planning.
	BaseFrame string `json:"base_frame"`
	// MaxVelocity is the Cartesian velocity limit of the profile.
	MaxVelocity float64 `json:"vel_max"`
	// MaxAcceleration is the Cartesian acceleration limit of the profile.
	MaxAcceleration float64 `json:"acc_max"`
	// Radius is the fillet radius applied at interior waypoints.
	Radius float64 `json:"radius"`
	// EqRadius converts rotation into equivalent arc length.
	EqRadius float64 `json:"eqradius"`
}

// DefaultGeneratorConfig returns the stock tuning: slow, heavily rounded motion.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		BaseFrame:       "base_link",
		MaxVelocity:     0.1,
		MaxAcceleration: 2.0,
		Radius:          0.01,
		EqRadius:        0.05,
	}
}

// Validate returns every problem with the configuration.
func (cfg GeneratorConfig) Validate() error {
	var err error
	if cfg.BaseFrame == "" {
		err = multierr.Append(err, errors.New("base_frame must be set"))
	}
	if cfg.MaxVelocity <= 0 {
		err = multierr.Append(err, errors.New("vel_max must be positive"))
	}
	if cfg.MaxAcceleration <= 0 {
		err = multierr.Append(err, errors.New("acc_max must be positive"))
	}
	if cfg.Radius <= 0 {
		err = multierr.Append(err, errors.New("radius must be positive"))
	}
	if cfg.EqRadius <= 0 {
		err = multierr.Append(err, errors.New("eqradius must be positive"))
	}
	return err
}

// Preview is a coarse discretization of a whole trajectory, emitted once per successful
// construction for external visualization. It feeds nothing back into control.
type Preview struct {
	Frame  string
	Points []Point
	Poses  []spatialmath.Pose
}

// Generator turns waypoint lists into continuous trajectories and streams one sample
// per control period while a trajectory is executing.
//
// UpdateWaypoints blocks its caller until the trajectory finishes or is interrupted; it
// must never be invoked from the thread driving Tick.
type Generator struct {
	cfg         GeneratorConfig
	transformer referenceframe.Transformer
	logger      golog.Logger

	// TrajectoryOut carries one sample per period while a trajectory is executing.
	TrajectoryOut *port.Data[Point]
	// PreviewOut carries a coarse discretization of each accepted trajectory.
	PreviewOut *port.Data[Preview]

	updateMu sync.Mutex // serializes UpdateWaypoints calls

	mu        sync.Mutex
	active    Trajectory
	elapsed   float64
	done      chan struct{}
	interrupt chan struct{}
}

// NewGenerator returns an idle generator planning in cfg.BaseFrame, transforming
// incoming waypoints with the given transformer.
func NewGenerator(cfg GeneratorConfig, transformer referenceframe.Transformer, logger golog.Logger) *Generator {
	return &Generator{
		cfg:           cfg,
		transformer:   transformer,
		logger:        logger,
		TrajectoryOut: port.New[Point]("trajectory_point"),
		PreviewOut:    port.New[Preview]("trajectory_preview"),
		interrupt:     make(chan struct{}, 1),
	}
}

// Name implements loop.Component.
func (g *Generator) Name() string {
	return "trajectory_generator"
}

// Configure validates the configuration and collaborators.
func (g *Generator) Configure(ctx context.Context) error {
	if g.transformer == nil {
		return errors.New("trajectory generator needs a frame transformer")
	}
	return g.cfg.Validate()
}

// Start implements loop.Component. The generator starts idle.
func (g *Generator) Start(ctx context.Context) error {
	return nil
}

// Stop cancels any executing trajectory and releases blocked UpdateWaypoints callers.
func (g *Generator) Stop(ctx context.Context) error {
	g.Interrupt()
	return nil
}

// Interrupt aborts the executing trajectory, if any. The pending UpdateWaypoints call
// observes the signal, cancels the trajectory and reports failure.
func (g *Generator) Interrupt() {
	select {
	case g.interrupt <- struct{}{}:
	default:
	}
}

// Executing reports whether a trajectory is currently being sampled.
func (g *Generator) Executing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active != nil
}

// UpdateWaypoints plans a trajectory through the given waypoints, activates it, and
// blocks until it finishes or is interrupted. Waypoints are transformed from
// sourceFrame into the configured base frame; consecutive waypoints with no meaningful
// motion between them are dropped. A nil return means the trajectory ran to completion.
func (g *Generator) UpdateWaypoints(ctx context.Context, waypoints []spatialmath.Pose, sourceFrame string) error {
	g.updateMu.Lock()
	defer g.updateMu.Unlock()

	if len(waypoints) == 0 {
		return errors.New("no waypoints given")
	}
	// Drop any interrupt left over from a run that already ended.
	select {
	case <-g.interrupt:
	default:
	}
	transformed := make([]spatialmath.Pose, 0, len(waypoints))
	for i, wp := range waypoints {
		p, err := g.transformer.TransformPose(wp, sourceFrame, g.cfg.BaseFrame)
		if err != nil {
			return errors.Wrapf(err, "cannot transform waypoint %d into %q", i, g.cfg.BaseFrame)
		}
		transformed = append(transformed, p)
	}

	kept := make([]spatialmath.Pose, 0, len(transformed))
	kept = append(kept, transformed[0])
	for i, wp := range transformed[1:] {
		if spatialmath.PoseDelta(kept[len(kept)-1], wp).AllBelow(waypointTolerance) {
			g.logger.Warnf("skipping waypoint %d of the path; no meaningful motion", i+1)
			continue
		}
		kept = append(kept, wp)
	}

	traj, err := g.buildTrajectory(kept)
	if err != nil {
		g.deactivate()
		return errors.Wrap(err, "trajectory construction failed")
	}
	g.PreviewOut.Write(discretize(traj, g.cfg.BaseFrame))

	done := make(chan struct{})
	g.mu.Lock()
	g.active = traj
	g.elapsed = 0
	g.done = done
	g.mu.Unlock()
	g.logger.Infof("executing trajectory through %d waypoints lasting %.2fs", len(kept), traj.Duration())

	select {
	case <-done:
		return nil
	case <-g.interrupt:
		g.cancel(done)
		return errors.New("trajectory interrupted")
	case <-ctx.Done():
		g.cancel(done)
		return errors.Wrap(ctx.Err(), "trajectory cancelled")
	}
}

// Tick samples the active trajectory at the current elapsed time, emits the sample, and
// advances time by one period. Once elapsed reaches the duration the generator goes
// idle and signals any blocked UpdateWaypoints caller.
func (g *Generator) Tick(ctx context.Context, dt time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		return
	}
	if g.elapsed < g.active.Duration() {
		g.TrajectoryOut.Write(g.active.SampleAt(g.elapsed))
		g.elapsed += dt.Seconds()
		return
	}
	g.active = nil
	g.elapsed = 0
	if g.done != nil {
		close(g.done)
		g.done = nil
	}
}

func (g *Generator) buildTrajectory(waypoints []spatialmath.Pose) (Trajectory, error) {
	final := waypoints[len(waypoints)-1]
	var path Path
	if len(waypoints) > 1 {
		rounded, err := NewRoundedComposite(waypoints, g.cfg.Radius, g.cfg.EqRadius)
		if err != nil {
			return nil, err
		}
		path = rounded
	} else {
		path = NewPointPath(final)
	}
	prof, err := NewTrapProfile(g.cfg.MaxVelocity, g.cfg.MaxAcceleration)
	if err != nil {
		return nil, err
	}
	prof.SetProfile(0, path.Length())
	return NewComposite(NewSegment(path, prof), NewStationary(final, holdDuration)), nil
}

// deactivate forces the generator idle, discarding any active trajectory.
func (g *Generator) deactivate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = nil
	g.elapsed = 0
	if g.done != nil {
		close(g.done)
		g.done = nil
	}
}

// cancel clears the active trajectory if the wait it belongs to is still current.
func (g *Generator) cancel(done chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done != done {
		return
	}
	g.active = nil
	g.elapsed = 0
	g.done = nil
}

func discretize(traj Trajectory, frame string) Preview {
	preview := Preview{Frame: frame}
	for t := 0.0; t <= traj.Duration(); t += previewStep {
		pt := traj.SampleAt(t)
		preview.Points = append(preview.Points, pt)
		preview.Poses = append(preview.Poses, pt.Pose)
	}
	return preview
}
