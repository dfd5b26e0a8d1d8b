package trajectory

import (
	"testing"

	"go.viam.com/test"
)

func TestTrapProfileCruise(t *testing.T) {
	// 0.5 m at vel_max 0.1 and acc_max 2.0: 0.05 s to reach cruise covering 0.0025 m,
	// the same to stop, and 0.495 m at cruise for 4.95 s. Total 5.05 s.
	p, err := NewTrapProfile(0.1, 2.0)
	test.That(t, err, test.ShouldBeNil)
	p.SetProfile(0, 0.5)

	test.That(t, p.Duration(), test.ShouldAlmostEqual, 5.05, 1e-9)
	test.That(t, p.Pos(0), test.ShouldAlmostEqual, 0)
	test.That(t, p.Pos(0.05), test.ShouldAlmostEqual, 0.0025, 1e-9)
	test.That(t, p.Vel(0.05), test.ShouldAlmostEqual, 0.1, 1e-9)
	test.That(t, p.Vel(2.5), test.ShouldAlmostEqual, 0.1)
	test.That(t, p.Acc(2.5), test.ShouldAlmostEqual, 0)
	test.That(t, p.Acc(0.01), test.ShouldAlmostEqual, 2.0)
	test.That(t, p.Acc(5.04), test.ShouldAlmostEqual, -2.0)
	test.That(t, p.Pos(5.05), test.ShouldAlmostEqual, 0.5, 1e-9)

	// Clamped outside the motion.
	test.That(t, p.Pos(-1), test.ShouldAlmostEqual, 0)
	test.That(t, p.Pos(100), test.ShouldAlmostEqual, 0.5)
	test.That(t, p.Vel(100), test.ShouldAlmostEqual, 0)
	test.That(t, p.Acc(-1), test.ShouldAlmostEqual, 0)
}

func TestTrapProfileTriangular(t *testing.T) {
	// Too short to reach cruise: 0.001 m at acc 2.0 peaks after sqrt(0.0005) s.
	p, err := NewTrapProfile(0.1, 2.0)
	test.That(t, err, test.ShouldBeNil)
	p.SetProfile(0, 0.001)

	half := p.Duration() / 2
	test.That(t, p.Duration(), test.ShouldAlmostEqual, 2*0.0223606797749979, 1e-9)
	test.That(t, p.Vel(half), test.ShouldBeLessThan, 0.1)
	test.That(t, p.Pos(half), test.ShouldAlmostEqual, 0.0005, 1e-9)
	test.That(t, p.Pos(p.Duration()), test.ShouldAlmostEqual, 0.001, 1e-9)
}

func TestTrapProfileBackward(t *testing.T) {
	p, err := NewTrapProfile(0.1, 2.0)
	test.That(t, err, test.ShouldBeNil)
	p.SetProfile(0.5, 0)

	test.That(t, p.Duration(), test.ShouldAlmostEqual, 5.05, 1e-9)
	test.That(t, p.Vel(2.5), test.ShouldAlmostEqual, -0.1)
	test.That(t, p.Pos(p.Duration()), test.ShouldAlmostEqual, 0)
}

func TestTrapProfileZeroDistance(t *testing.T) {
	p, err := NewTrapProfile(0.1, 2.0)
	test.That(t, err, test.ShouldBeNil)
	p.SetProfile(0, 0)
	test.That(t, p.Duration(), test.ShouldAlmostEqual, 0)
	test.That(t, p.Pos(0), test.ShouldAlmostEqual, 0)
	test.That(t, p.Vel(0), test.ShouldAlmostEqual, 0)
}

func TestTrapProfileInvalidLimits(t *testing.T) {
	_, err := NewTrapProfile(0, 2.0)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewTrapProfile(0.1, -1)
	test.That(t, err, test.ShouldNotBeNil)
}
