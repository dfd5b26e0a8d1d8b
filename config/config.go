// Package config reads and validates the JSON configuration of a control stack: the
// loop frequency plus the generator and controller tunings.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/cartopt/control"
	"go.viam.com/cartopt/trajectory"
)

// Config is the root configuration document.
type Config struct {
	// Frequency is the control loop rate in Hz.
	Frequency float64 `json:"frequency"`
	// Generator tunes the trajectory generator.
	Generator trajectory.GeneratorConfig `json:"generator"`
	// Controller tunes the Cartesian torque controller.
	Controller control.Config `json:"controller"`
}

// Default returns a runnable stock configuration at 1 kHz.
func Default() Config {
	return Config{
		Frequency:  1000,
		Generator:  trajectory.DefaultGeneratorConfig(),
		Controller: control.DefaultConfig(),
	}
}

// Validate returns every problem with the configuration.
func (cfg Config) Validate() error {
	var err error
	if cfg.Frequency <= 0 {
		err = multierr.Append(err, errors.New("frequency must be positive"))
	}
	err = multierr.Append(err, cfg.Generator.Validate())
	err = multierr.Append(err, cfg.Controller.Validate())
	return err
}

// Read loads and validates a configuration file. Fields absent from the file keep
// their Default values.
func Read(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "cannot read config file")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "cannot parse config file %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "invalid config file %q", path)
	}
	return cfg, nil
}
