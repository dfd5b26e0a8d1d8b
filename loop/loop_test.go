package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

type recordingComponent struct {
	name       string
	mu         sync.Mutex
	ticks      int
	lastDt     time.Duration
	failConfig bool
	failStart  bool
	stopErr    error
}

func (c *recordingComponent) Name() string { return c.name }

func (c *recordingComponent) Configure(ctx context.Context) error {
	if c.failConfig {
		return errors.New("bad config")
	}
	return nil
}

func (c *recordingComponent) Start(ctx context.Context) error {
	if c.failStart {
		return errors.New("cannot start")
	}
	return nil
}

func (c *recordingComponent) Tick(ctx context.Context, dt time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	c.lastDt = dt
}

func (c *recordingComponent) Stop(ctx context.Context) error {
	return c.stopErr
}

func (c *recordingComponent) tickCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

func TestLoopTicksComponents(t *testing.T) {
	logger := golog.NewTestLogger(t)
	a := &recordingComponent{name: "a"}
	b := &recordingComponent{name: "b"}

	mock := clock.NewMock()
	l := NewLoop(100, logger, a, b)
	l.SetClock(mock)
	ctx := context.Background()
	test.That(t, l.Start(ctx), test.ShouldBeNil)
	test.That(t, l.Running(), test.ShouldBeTrue)

	// Advance the mock until five ticks have landed; ticks advanced before the loop
	// goroutine creates its ticker are lost, so keep feeding.
	for i := 0; a.tickCount() < 5; i++ {
		test.That(t, i, test.ShouldBeLessThan, 1000)
		mock.Add(10 * time.Millisecond)
		time.Sleep(time.Millisecond)
	}
	test.That(t, l.Stop(ctx), test.ShouldBeNil)
	test.That(t, l.Running(), test.ShouldBeFalse)

	test.That(t, a.tickCount(), test.ShouldBeGreaterThanOrEqualTo, 5)
	test.That(t, b.tickCount(), test.ShouldEqual, a.tickCount())
	test.That(t, a.lastDt, test.ShouldEqual, 10*time.Millisecond)
}

func TestLoopRejectsBadFrequency(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ctx := context.Background()
	c := &recordingComponent{name: "a"}

	test.That(t, NewLoop(0, logger, c).Start(ctx), test.ShouldNotBeNil)
	test.That(t, NewLoop(-10, logger, c).Start(ctx), test.ShouldNotBeNil)
	test.That(t, NewLoop(1001, logger, c).Start(ctx), test.ShouldNotBeNil)
	test.That(t, NewLoop(100, logger).Start(ctx), test.ShouldNotBeNil)
}

func TestLoopAbortsOnConfigureFailure(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ctx := context.Background()
	good := &recordingComponent{name: "good"}
	bad := &recordingComponent{name: "bad", failConfig: true}

	l := NewLoop(100, logger, good, bad)
	err := l.Start(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"bad"`)
	test.That(t, l.Running(), test.ShouldBeFalse)
}

func TestLoopStopsStartedComponentsOnStartFailure(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ctx := context.Background()
	first := &recordingComponent{name: "first", stopErr: errors.New("stop noise")}
	bad := &recordingComponent{name: "bad", failStart: true}

	l := NewLoop(100, logger, first, bad)
	err := l.Start(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"bad"`)
	test.That(t, err.Error(), test.ShouldContainSubstring, "stop noise")
	test.That(t, l.Running(), test.ShouldBeFalse)
}

func TestLoopDoubleStartAndIdleStop(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ctx := context.Background()
	c := &recordingComponent{name: "a"}
	l := NewLoop(100, logger, c)
	l.SetClock(clock.NewMock())

	test.That(t, l.Stop(ctx), test.ShouldBeNil)
	test.That(t, l.Start(ctx), test.ShouldBeNil)
	test.That(t, l.Start(ctx), test.ShouldNotBeNil)
	test.That(t, l.Stop(ctx), test.ShouldBeNil)

	// Restart after a clean stop works.
	test.That(t, l.Start(ctx), test.ShouldBeNil)
	test.That(t, l.Stop(ctx), test.ShouldBeNil)
}
