// Package trajectory converts Cartesian waypoint lists into time-parameterized
// motions: geometric paths with rounded corners, trapezoidal velocity profiles, and
// the generator component that streams samples to the controller.
package trajectory

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/cartopt/spatialmath"
)

// Path is a geometric curve parameterized by arc length s in [0, Length]. Twists and
// accelerations are expressed in the path's base frame.
type Path interface {
	// Length returns the total arc length, aggregating translation and rotation.
	Length() float64
	// PoseAt returns the pose at arc length s.
	PoseAt(s float64) spatialmath.Pose
	// TwistAt returns the velocity twist at arc length s traversed at rate sd.
	TwistAt(s, sd float64) spatialmath.Twist
	// AccAt returns the acceleration twist at arc length s traversed at rate sd with
	// rate change sdd.
	AccAt(s, sd, sdd float64) spatialmath.Twist
}

// point is the degenerate path staying at a single pose.
type point struct {
	pose spatialmath.Pose
}

// NewPointPath returns the zero-length path holding a single pose.
func NewPointPath(pose spatialmath.Pose) Path {
	return &point{pose: pose}
}

func (p *point) Length() float64 {
	return 0
}

func (p *point) PoseAt(s float64) spatialmath.Pose {
	return p.pose
}

func (p *point) TwistAt(s, sd float64) spatialmath.Twist {
	return spatialmath.Twist{}
}

func (p *point) AccAt(s, sd, sdd float64) spatialmath.Twist {
	return spatialmath.Twist{}
}

// line moves in a straight segment between two poses, rotating about a single fixed
// axis. The arc length aggregates translation and rotation through eqradius.
type line struct {
	start    spatialmath.Pose
	dir      r3.Vector // unit translation direction, zero vector if none
	dist     float64
	rotAxis  r3.Vector // unit rotation axis in the base frame, zero vector if none
	rotAngle float64
	length   float64
}

func newLine(start, end spatialmath.Pose, eqradius float64) (*line, error) {
	l := &line{start: start}
	delta := end.Point.Sub(start.Point)
	l.dist = delta.Norm()
	if l.dist > 0 {
		l.dir = delta.Mul(1 / l.dist)
	}
	aa := spatialmath.QuatToR3AA(spatialmath.OrientationBetween(start, end))
	l.rotAngle = aa.Norm()
	if l.rotAngle > 0 {
		l.rotAxis = aa.Mul(1 / l.rotAngle)
	}
	l.length = math.Max(l.dist, eqradius*l.rotAngle)
	if l.length == 0 {
		return nil, errors.New("cannot build a line between identical poses")
	}
	return l, nil
}

// lengthToS maps a translation distance along the segment to the aggregated arc length.
func (l *line) lengthToS(dist float64) float64 {
	if l.dist == 0 {
		return 0
	}
	return l.length * dist / l.dist
}

func (l *line) Length() float64 {
	return l.length
}

func (l *line) PoseAt(s float64) spatialmath.Pose {
	frac := s / l.length
	return spatialmath.Pose{
		Orientation: quat.Mul(spatialmath.R3AAToQuat(l.rotAxis.Mul(l.rotAngle*frac)), l.start.Orientation),
		Point:       l.start.Point.Add(l.dir.Mul(l.dist * frac)),
	}
}

func (l *line) TwistAt(s, sd float64) spatialmath.Twist {
	return spatialmath.Twist{
		Linear:  l.dir.Mul(l.dist / l.length * sd),
		Angular: l.rotAxis.Mul(l.rotAngle / l.length * sd),
	}
}

func (l *line) AccAt(s, sd, sdd float64) spatialmath.Twist {
	return spatialmath.Twist{
		Linear:  l.dir.Mul(l.dist / l.length * sdd),
		Angular: l.rotAxis.Mul(l.rotAngle / l.length * sdd),
	}
}

// compositePath concatenates paths end to end.
type compositePath struct {
	segments []Path
	ends     []float64 // cumulative arc length at the end of each segment
	total    float64
}

func newCompositePath(segments ...Path) *compositePath {
	c := &compositePath{segments: segments}
	for _, seg := range segments {
		c.total += seg.Length()
		c.ends = append(c.ends, c.total)
	}
	return c
}

// locate returns the segment covering arc length s and s local to that segment.
func (c *compositePath) locate(s float64) (Path, float64) {
	if s <= 0 {
		return c.segments[0], 0
	}
	if s >= c.total {
		last := c.segments[len(c.segments)-1]
		return last, last.Length()
	}
	i := sort.SearchFloat64s(c.ends, s)
	if c.ends[i] == s {
		i++
	}
	start := c.ends[i] - c.segments[i].Length()
	return c.segments[i], s - start
}

func (c *compositePath) Length() float64 {
	return c.total
}

func (c *compositePath) PoseAt(s float64) spatialmath.Pose {
	seg, local := c.locate(s)
	return seg.PoseAt(local)
}

func (c *compositePath) TwistAt(s, sd float64) spatialmath.Twist {
	seg, local := c.locate(s)
	return seg.TwistAt(local, sd)
}

func (c *compositePath) AccAt(s, sd, sdd float64) spatialmath.Twist {
	seg, local := c.locate(s)
	return seg.AccAt(local, sd, sdd)
}
