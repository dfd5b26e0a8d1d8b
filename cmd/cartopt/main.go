// Package main runs the Cartesian control stack against a fake 6-DOF stage: a
// trajectory generator feeding the torque controller, closed through a simulated
// plant, all ticked by one control loop.
package main

import (
	"context"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"go.viam.com/cartopt/config"
	"go.viam.com/cartopt/control"
	"go.viam.com/cartopt/dynamics/fake"
	"go.viam.com/cartopt/loop"
	"go.viam.com/cartopt/port"
	"go.viam.com/cartopt/qp"
	"go.viam.com/cartopt/referenceframe"
	"go.viam.com/cartopt/spatialmath"
	"go.viam.com/cartopt/trajectory"
)

var logger = golog.NewDevelopmentLogger("cartopt")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// plant closes the loop around the fake stage: each period it applies the last torque
// command, integrates, and publishes the resulting joint state.
type plant struct {
	stage    *fake.Stage
	torqueIn *port.Data[[]float64]
	posOut   *port.Data[[]float64]
	velOut   *port.Data[[]float64]
	lastTau  []float64
	ticks    int
	logEvery int
}

func (p *plant) Name() string { return "fake_arm" }

func (p *plant) Configure(ctx context.Context) error {
	if p.torqueIn == nil || p.posOut == nil || p.velOut == nil {
		return errors.New("plant ports not wired")
	}
	return p.stage.Init()
}

func (p *plant) Start(ctx context.Context) error {
	p.lastTau = make([]float64, p.stage.DOF())
	return nil
}

func (p *plant) Tick(ctx context.Context, dt time.Duration) {
	if tau, status := p.torqueIn.Read(); status == port.NewData {
		p.lastTau = tau
	}
	if err := p.stage.Step(p.lastTau, dt.Seconds()); err != nil {
		logger.Errorw("plant step failed", "error", err)
		return
	}
	q, qd := p.stage.State()
	p.posOut.Write(q)
	p.velOut.Write(qd)

	p.ticks++
	if p.logEvery > 0 && p.ticks%p.logEvery == 0 {
		logger.Infow("plant state", "position", q[:3], "torque", p.lastTau)
	}
}

func (p *plant) Stop(ctx context.Context) error { return nil }

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	app := &cli.App{
		Name:  "cartopt",
		Usage: "drive a fake arm through a demo square with the Cartesian controller",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a JSON config file (stock tuning if omitted)",
			},
			&cli.DurationFlag{
				Name:  "duration",
				Value: time.Minute,
				Usage: "give up if the demo path has not finished by then",
			},
			&cli.Float64Flag{
				Name:  "side",
				Value: 0.2,
				Usage: "side length of the demo square in meters",
			},
		},
		Action: func(c *cli.Context) error {
			return run(ctx, c.String("config"), c.Duration("duration"), c.Float64("side"), logger)
		},
	}
	return app.RunContext(ctx, args)
}

func run(ctx context.Context, configPath string, timeout time.Duration, side float64, logger golog.Logger) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Read(configPath); err != nil {
			return err
		}
	}

	fs := referenceframe.NewStaticFrameSystem("arm")
	if err := fs.AddFrame(cfg.Generator.BaseFrame, spatialmath.NewZeroPose()); err != nil {
		return err
	}

	stage := fake.NewStage(cfg.Controller.EndEffectorFrame)
	solver, err := qp.NewNLoptSolver(stage.DOF(), logger)
	if err != nil {
		return err
	}
	defer solver.Close()

	gen := trajectory.NewGenerator(cfg.Generator, fs, logger)
	ctrl := control.NewController(cfg.Controller, stage, solver, logger)
	ctrl.TrajectoryIn = gen.TrajectoryOut

	sim := &plant{
		stage:    stage,
		torqueIn: ctrl.TorqueOut,
		posOut:   ctrl.JointPositionIn,
		velOut:   ctrl.JointVelocityIn,
		logEvery: int(cfg.Frequency), // once a second
	}

	l := loop.NewLoop(cfg.Frequency, logger, sim, gen, ctrl)
	if err := l.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := l.Stop(context.Background()); err != nil {
			logger.Errorw("loop stop failed", "error", err)
		}
	}()

	// A square in the horizontal plane, back to the start.
	square := []spatialmath.Pose{
		spatialmath.NewPoseFromPoint(r3.Vector{}),
		spatialmath.NewPoseFromPoint(r3.Vector{X: side}),
		spatialmath.NewPoseFromPoint(r3.Vector{X: side, Y: side}),
		spatialmath.NewPoseFromPoint(r3.Vector{Y: side}),
		spatialmath.NewPoseFromPoint(r3.Vector{}),
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		done <- gen.UpdateWaypoints(runCtx, square, referenceframe.World)
	})

	select {
	case err := <-done:
		if err != nil {
			return errors.Wrap(err, "demo path failed")
		}
		logger.Info("demo path complete")
		return nil
	case <-runCtx.Done():
		gen.Interrupt()
		<-done
		return errors.Wrap(runCtx.Err(), "demo path did not finish")
	}
}
