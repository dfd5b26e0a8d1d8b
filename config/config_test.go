package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cartopt.json")
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestReadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"frequency": 250,
		"generator": {
			"base_frame": "arm_base",
			"vel_max": 0.25,
			"acc_max": 1.5,
			"radius": 0.02,
			"eqradius": 0.05
		},
		"controller": {
			"ee_frame": "gripper",
			"p_gains": {"linear": {"x": 800, "y": 800, "z": 800}, "angular": {"x": 200, "y": 200, "z": 200}},
			"d_gains": {"linear": {"x": 40, "y": 40, "z": 40}, "angular": {"x": 8, "y": 8, "z": 8}},
			"max_torque": [90, 90, 90, 20, 20, 20],
			"gravity_compensated": true,
			"max_solver_iterations": 500
		}
	}`)
	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Frequency, test.ShouldEqual, 250)
	test.That(t, cfg.Generator.BaseFrame, test.ShouldEqual, "arm_base")
	test.That(t, cfg.Generator.MaxVelocity, test.ShouldEqual, 0.25)
	test.That(t, cfg.Controller.EndEffectorFrame, test.ShouldEqual, "gripper")
	test.That(t, cfg.Controller.PGain.Linear.X, test.ShouldEqual, 800)
	test.That(t, cfg.Controller.TorqueLimits, test.ShouldResemble, []float64{90, 90, 90, 20, 20, 20})
	test.That(t, cfg.Controller.MaxSolverIterations, test.ShouldEqual, 500)
}

func TestReadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `{"frequency": 500}`)
	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Frequency, test.ShouldEqual, 500)
	test.That(t, cfg.Generator, test.ShouldResemble, Default().Generator)
	test.That(t, cfg.Controller.EndEffectorFrame, test.ShouldEqual, Default().Controller.EndEffectorFrame)
}

func TestReadRejectsBadFiles(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = Read(writeConfig(t, `{not json`))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = Read(writeConfig(t, `{"frequency": -5}`))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = Read(writeConfig(t, `{"generator": {"vel_max": -1}}`))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDefaultValidates(t *testing.T) {
	test.That(t, Default().Validate(), test.ShouldBeNil)
}
