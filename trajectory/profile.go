package trajectory

import (
	"math"

	"github.com/pkg/errors"
)

// TrapProfile times motion along an arc length with constant-acceleration,
// constant-velocity and constant-deceleration phases. When the distance is too short to
// reach the velocity limit the cruise phase vanishes and the profile is triangular.
type TrapProfile struct {
	maxVel, maxAcc float64
	startPos       float64
	endPos         float64
	sign           float64
	t1             float64 // end of the acceleration phase
	t2             float64 // start of the deceleration phase
	duration       float64
}

// NewTrapProfile returns a profile with the given velocity and acceleration limits. The
// profile covers no distance until SetProfile is called.
func NewTrapProfile(maxVel, maxAcc float64) (*TrapProfile, error) {
	if maxVel <= 0 {
		return nil, errors.Errorf("velocity limit must be positive, got %v", maxVel)
	}
	if maxAcc <= 0 {
		return nil, errors.Errorf("acceleration limit must be positive, got %v", maxAcc)
	}
	return &TrapProfile{maxVel: maxVel, maxAcc: maxAcc}, nil
}

// SetProfile plans the timing from pos1 to pos2.
func (p *TrapProfile) SetProfile(pos1, pos2 float64) {
	p.startPos = pos1
	p.endPos = pos2
	dist := pos2 - pos1
	if dist == 0 {
		p.sign = 0
		p.t1, p.t2, p.duration = 0, 0, 0
		return
	}
	p.sign = 1
	if dist < 0 {
		p.sign = -1
	}
	p.t1 = p.maxVel / p.maxAcc
	accelDist := p.sign * p.maxAcc * p.t1 * p.t1 / 2
	cruiseTime := (dist - 2*accelDist) / (p.sign * p.maxVel)
	if cruiseTime > 0 {
		p.duration = 2*p.t1 + cruiseTime
	} else {
		p.t1 = math.Sqrt(dist / p.sign / p.maxAcc)
		p.duration = 2 * p.t1
	}
	p.t2 = p.duration - p.t1
}

// Duration returns the total time of the planned motion.
func (p *TrapProfile) Duration() float64 {
	return p.duration
}

// Pos returns the position at time t, clamped to the profile endpoints outside
// [0, Duration].
func (p *TrapProfile) Pos(t float64) float64 {
	switch {
	case t <= 0:
		return p.startPos
	case t < p.t1:
		return p.startPos + p.sign*p.maxAcc*t*t/2
	case t < p.t2:
		return p.startPos + p.sign*p.maxAcc*p.t1*p.t1/2 + p.sign*p.maxAcc*p.t1*(t-p.t1)
	case t < p.duration:
		remaining := p.duration - t
		return p.endPos - p.sign*p.maxAcc*remaining*remaining/2
	default:
		return p.endPos
	}
}

// Vel returns the velocity at time t, zero outside [0, Duration].
func (p *TrapProfile) Vel(t float64) float64 {
	switch {
	case t <= 0 || t >= p.duration:
		return 0
	case t < p.t1:
		return p.sign * p.maxAcc * t
	case t < p.t2:
		return p.sign * p.maxAcc * p.t1
	default:
		return p.sign * p.maxAcc * (p.duration - t)
	}
}

// Acc returns the acceleration at time t, zero outside [0, Duration].
func (p *TrapProfile) Acc(t float64) float64 {
	switch {
	case t <= 0 || t >= p.duration:
		return 0
	case t < p.t1:
		return p.sign * p.maxAcc
	case t < p.t2:
		return 0
	default:
		return -p.sign * p.maxAcc
	}
}
