package trajectory

import "go.viam.com/cartopt/spatialmath"

// Point is one sample of a trajectory: the desired pose plus its velocity and
// acceleration twists at a single instant.
type Point struct {
	Pose         spatialmath.Pose
	Twist        spatialmath.Twist
	Acceleration spatialmath.Twist
}

// Trajectory is a time-parameterized Cartesian motion.
type Trajectory interface {
	// Duration returns the total time of the motion.
	Duration() float64
	// SampleAt returns the trajectory point at time t. Sampling outside [0, Duration]
	// holds the nearest endpoint with zero velocity and acceleration.
	SampleAt(t float64) Point
}

// segment pairs a geometric path with a velocity profile covering its length.
type segment struct {
	path Path
	prof *TrapProfile
}

// NewSegment returns the trajectory following path under prof. The profile must
// already cover [0, path.Length()].
func NewSegment(path Path, prof *TrapProfile) Trajectory {
	return &segment{path: path, prof: prof}
}

func (sg *segment) Duration() float64 {
	return sg.prof.Duration()
}

func (sg *segment) SampleAt(t float64) Point {
	s := sg.prof.Pos(t)
	sd := sg.prof.Vel(t)
	sdd := sg.prof.Acc(t)
	return Point{
		Pose:         sg.path.PoseAt(s),
		Twist:        sg.path.TwistAt(s, sd),
		Acceleration: sg.path.AccAt(s, sd, sdd),
	}
}

// stationary holds one pose for a fixed amount of time.
type stationary struct {
	pose     spatialmath.Pose
	duration float64
}

// NewStationary returns a trajectory holding pose for the given duration.
func NewStationary(pose spatialmath.Pose, duration float64) Trajectory {
	return &stationary{pose: pose, duration: duration}
}

func (st *stationary) Duration() float64 {
	return st.duration
}

func (st *stationary) SampleAt(t float64) Point {
	return Point{Pose: st.pose}
}

// composite plays trajectories back to back.
type composite struct {
	parts []Trajectory
	total float64
}

// NewComposite concatenates trajectories in order.
func NewComposite(parts ...Trajectory) Trajectory {
	c := &composite{parts: parts}
	for _, part := range parts {
		c.total += part.Duration()
	}
	return c
}

func (c *composite) Duration() float64 {
	return c.total
}

func (c *composite) SampleAt(t float64) Point {
	if t < 0 {
		t = 0
	}
	elapsed := 0.0
	for i, part := range c.parts {
		local := t - elapsed
		if local <= part.Duration() || i == len(c.parts)-1 {
			return part.SampleAt(local)
		}
		elapsed += part.Duration()
	}
	// Unreachable with at least one part; keep the zero value for empty composites.
	return Point{}
}
