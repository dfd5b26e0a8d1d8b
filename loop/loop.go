// Package loop drives a set of control components at a fixed frequency from a single
// background goroutine, so every component observes the same period and tick order.
package loop

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

const maxFrequencyHz = 1000.0

// Component is one ticked member of a control loop. Configure and Start run once, in
// registration order, before the first Tick; Stop runs once after the last.
type Component interface {
	Name() string
	Configure(ctx context.Context) error
	Start(ctx context.Context) error
	Tick(ctx context.Context, dt time.Duration)
	Stop(ctx context.Context) error
}

// Loop ticks its components at a fixed frequency until stopped.
type Loop struct {
	logger     golog.Logger
	clock      clock.Clock
	frequency  float64
	components []Component

	mu                      sync.Mutex
	cancelCtx               context.Context
	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
	running                 bool
}

// NewLoop returns a stopped loop ticking the given components in order at frequency Hz.
func NewLoop(frequency float64, logger golog.Logger, components ...Component) *Loop {
	return &Loop{
		logger:     logger,
		clock:      clock.New(),
		frequency:  frequency,
		components: components,
	}
}

// SetClock replaces the wall clock, for tests. Call before Start.
func (l *Loop) SetClock(c clock.Clock) {
	l.clock = c
}

// Start configures and starts every component in order, then begins ticking. A
// component failing to configure or start aborts the whole loop; components already
// started are stopped again.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("loop already running")
	}
	if l.frequency <= 0 || l.frequency > maxFrequencyHz {
		return errors.Errorf("loop frequency must be in (0, %v] Hz, got %v", maxFrequencyHz, l.frequency)
	}
	if len(l.components) == 0 {
		return errors.New("loop has no components")
	}

	for _, c := range l.components {
		if err := c.Configure(ctx); err != nil {
			return errors.Wrapf(err, "configuring %q", c.Name())
		}
	}
	started := make([]Component, 0, len(l.components))
	for _, c := range l.components {
		if err := c.Start(ctx); err != nil {
			err = errors.Wrapf(err, "starting %q", c.Name())
			for _, s := range started {
				err = multierr.Append(err, s.Stop(ctx))
			}
			return err
		}
		started = append(started, c)
	}

	l.cancelCtx, l.cancel = context.WithCancel(context.Background())
	l.running = true
	l.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(l.run, l.activeBackgroundWorkers.Done)
	return nil
}

func (l *Loop) run() {
	dt := time.Duration(float64(time.Second) / l.frequency)
	ticker := l.clock.Ticker(dt)
	defer ticker.Stop()
	for {
		select {
		case <-l.cancelCtx.Done():
			return
		case <-ticker.C:
		}
		for _, c := range l.components {
			c.Tick(l.cancelCtx, dt)
		}
	}
}

// Stop halts ticking and stops every component in order, combining their errors.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return nil
	}
	l.cancel()
	l.activeBackgroundWorkers.Wait()
	l.running = false

	var err error
	for _, c := range l.components {
		err = multierr.Append(err, c.Stop(ctx))
	}
	return err
}

// Running reports whether the loop is ticking.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
