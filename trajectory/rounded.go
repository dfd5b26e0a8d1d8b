package trajectory

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/cartopt/spatialmath"
)

// Geometry below this scale is considered degenerate.
const geomEpsilon = 1e-6

// arc is a circular fillet between two line segments. Translation follows the circle;
// orientation is interpolated about a single fixed axis over the arc.
type arc struct {
	center      r3.Vector
	xAxis       r3.Vector // unit, from center to the arc start
	yAxis       r3.Vector // unit, in the circle plane, toward the sweep direction
	radius      float64
	sweep       float64 // radians, > 0
	startOrient quat.Number
	rotAxis     r3.Vector
	rotAngle    float64
	length      float64
}

func newArc(start, end spatialmath.Pose, center r3.Vector, sweep, eqradius float64) (*arc, error) {
	a := &arc{center: center, sweep: sweep, startOrient: start.Orientation}
	fromCenter := start.Point.Sub(center)
	a.radius = fromCenter.Norm()
	if a.radius < geomEpsilon || sweep < geomEpsilon || sweep > math.Pi-geomEpsilon {
		return nil, errors.New("degenerate circular fillet")
	}
	a.xAxis = fromCenter.Mul(1 / a.radius)
	// Solve end = center + radius*(xAxis*cos(sweep) + yAxis*sin(sweep)) for yAxis.
	toEnd := end.Point.Sub(center).Mul(1 / a.radius)
	a.yAxis = toEnd.Sub(a.xAxis.Mul(math.Cos(sweep))).Mul(1 / math.Sin(sweep))
	if math.Abs(a.yAxis.Norm()-1) > 1e-3 {
		return nil, errors.New("fillet endpoints do not lie on a common circle")
	}
	a.yAxis = a.yAxis.Normalize()
	aa := spatialmath.QuatToR3AA(spatialmath.OrientationBetween(start, end))
	a.rotAngle = aa.Norm()
	if a.rotAngle > 0 {
		a.rotAxis = aa.Mul(1 / a.rotAngle)
	}
	a.length = math.Max(a.radius*sweep, eqradius*a.rotAngle)
	return a, nil
}

// radial returns the unit vector from the center to the point at angle theta.
func (a *arc) radial(theta float64) r3.Vector {
	return a.xAxis.Mul(math.Cos(theta)).Add(a.yAxis.Mul(math.Sin(theta)))
}

// tangent returns the unit tangent at angle theta.
func (a *arc) tangent(theta float64) r3.Vector {
	return a.yAxis.Mul(math.Cos(theta)).Sub(a.xAxis.Mul(math.Sin(theta)))
}

func (a *arc) Length() float64 {
	return a.length
}

func (a *arc) PoseAt(s float64) spatialmath.Pose {
	frac := s / a.length
	return spatialmath.Pose{
		Orientation: quat.Mul(spatialmath.R3AAToQuat(a.rotAxis.Mul(a.rotAngle*frac)), a.startOrient),
		Point:       a.center.Add(a.radial(a.sweep * frac).Mul(a.radius)),
	}
}

func (a *arc) TwistAt(s, sd float64) spatialmath.Twist {
	theta := a.sweep * s / a.length
	return spatialmath.Twist{
		Linear:  a.tangent(theta).Mul(a.radius * a.sweep / a.length * sd),
		Angular: a.rotAxis.Mul(a.rotAngle / a.length * sd),
	}
}

func (a *arc) AccAt(s, sd, sdd float64) spatialmath.Twist {
	theta := a.sweep * s / a.length
	speed := a.radius * a.sweep / a.length * sd
	return spatialmath.Twist{
		Linear: a.tangent(theta).Mul(a.radius * a.sweep / a.length * sdd).
			Sub(a.radial(theta).Mul(speed * speed / a.radius)),
		Angular: a.rotAxis.Mul(a.rotAngle / a.length * sdd),
	}
}

// NewRoundedComposite builds a path through the given waypoints where every interior
// corner is replaced by a circular fillet of the given radius, leaving the path tangent
// continuous. eqradius converts rotation into equivalent arc length so that pure
// reorientation still takes time under a velocity profile. Requires at least two
// waypoints; collinear interior waypoints get no fillet.
func NewRoundedComposite(waypoints []spatialmath.Pose, radius, eqradius float64) (Path, error) {
	if radius <= 0 {
		return nil, errors.New("rounding radius must be positive")
	}
	if eqradius <= 0 {
		return nil, errors.New("equivalent radius must be positive")
	}
	if len(waypoints) < 2 {
		return nil, errors.Errorf("rounded path needs at least 2 waypoints, got %d", len(waypoints))
	}

	var segments []Path
	start := waypoints[0]
	via := waypoints[1]
	for _, next := range waypoints[2:] {
		ab := via.Point.Sub(start.Point)
		bc := next.Point.Sub(via.Point)
		abdist := ab.Norm()
		bcdist := bc.Norm()
		if abdist < geomEpsilon || bcdist < geomEpsilon {
			return nil, errors.New("consecutive waypoints coincide")
		}
		cosAlpha := ab.Dot(bc) / (abdist * bcdist)
		cosAlpha = math.Max(-1, math.Min(1, cosAlpha))
		alpha := math.Acos(cosAlpha)
		if math.Pi-alpha < geomEpsilon {
			return nil, errors.New("path reverses direction at a waypoint")
		}
		if alpha < geomEpsilon {
			// Collinear; keep the corner as-is.
			seg, err := newLine(start, via, eqradius)
			if err != nil {
				return nil, err
			}
			segments = append(segments, seg)
			start, via = via, next
			continue
		}
		trim := radius / math.Tan((math.Pi-alpha)/2)
		if trim >= abdist || trim >= bcdist {
			return nil, errors.Errorf("rounding radius %v too large for segment near waypoint at %v", radius, via.Point)
		}
		line1, err := newLine(start, via, eqradius)
		if err != nil {
			return nil, err
		}
		line2, err := newLine(via, next, eqradius)
		if err != nil {
			return nil, err
		}
		filletStart := line1.PoseAt(line1.lengthToS(abdist - trim))
		filletEnd := line2.PoseAt(line2.lengthToS(trim))
		// Unit vector from the fillet start toward the outside of the turn.
		outward := ab.Cross(ab.Cross(bc)).Normalize()
		center := filletStart.Point.Sub(outward.Mul(radius))

		entry, err := newLine(start, filletStart, eqradius)
		if err != nil {
			return nil, err
		}
		fillet, err := newArc(filletStart, filletEnd, center, alpha, eqradius)
		if err != nil {
			return nil, err
		}
		segments = append(segments, entry, fillet)
		start, via = filletEnd, next
	}
	last, err := newLine(start, via, eqradius)
	if err != nil {
		return nil, err
	}
	segments = append(segments, last)
	return newCompositePath(segments...), nil
}
