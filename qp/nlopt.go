package qp

import (
	"github.com/edaniels/golog"
	"github.com/go-nlopt/nlopt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	solveEpsilon = 1e-10
)

// NLoptSolver solves box-constrained QPs with SLSQP. A cold Init starts from the
// clamped origin; Hotstart seeds the search with the previous solution, which is close
// to optimal when consecutive problems differ only slightly.
type NLoptSolver struct {
	opt          *nlopt.NLopt
	size         int
	lastSolution []float64
	logger       golog.Logger
}

// NewNLoptSolver returns a solver for problems of the given size.
func NewNLoptSolver(size int, logger golog.Logger) (*NLoptSolver, error) {
	if size <= 0 {
		return nil, errors.Errorf("solver size must be positive, got %d", size)
	}
	opt, err := nlopt.NewNLopt(nlopt.LD_SLSQP, uint(size))
	if err != nil {
		return nil, errors.Wrap(err, "nlopt creation error")
	}
	err = multierr.Combine(
		opt.SetFtolRel(solveEpsilon),
		opt.SetXtolRel(solveEpsilon),
	)
	if err != nil {
		opt.Destroy()
		return nil, errors.Wrap(err, "nlopt setup error")
	}
	return &NLoptSolver{opt: opt, size: size, logger: logger}, nil
}

// Init implements Solver with a cold start from the clamped origin.
func (s *NLoptSolver) Init(prob *Problem, maxIter int) ([]float64, error) {
	seed := make([]float64, s.size)
	clampInto(seed, prob)
	return s.solve(prob, seed, maxIter)
}

// Hotstart implements Solver, seeding from the last solution when one exists.
func (s *NLoptSolver) Hotstart(prob *Problem, maxIter int) ([]float64, error) {
	if s.lastSolution == nil {
		return s.Init(prob, maxIter)
	}
	seed := make([]float64, s.size)
	copy(seed, s.lastSolution)
	clampInto(seed, prob)
	return s.solve(prob, seed, maxIter)
}

func (s *NLoptSolver) solve(prob *Problem, seed []float64, maxIter int) ([]float64, error) {
	if prob.Size() != s.size {
		return nil, errors.Errorf("problem has %d variables, solver built for %d", prob.Size(), s.size)
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	lower := make([]float64, s.size)
	upper := make([]float64, s.size)
	for i := 0; i < s.size; i++ {
		lower[i] = prob.Lower.AtVec(i)
		upper[i] = prob.Upper.AtVec(i)
	}

	err := multierr.Combine(
		s.opt.SetLowerBounds(lower),
		s.opt.SetUpperBounds(upper),
		s.opt.SetMaxEval(maxIter),
		s.opt.SetMinObjective(func(x, gradient []float64) float64 {
			if len(gradient) > 0 {
				prob.Gradient(x, gradient)
			}
			return prob.Cost(x)
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "nlopt setup error")
	}

	solution, _, err := s.opt.Optimize(seed)
	if err != nil {
		return nil, errors.Wrap(err, "solve failed")
	}

	// SLSQP can overshoot the box by a rounding error; the caller treats the result as
	// hard torque limits.
	x := make([]float64, s.size)
	copy(x, solution)
	for i := range x {
		if x[i] < lower[i] {
			x[i] = lower[i]
		}
		if x[i] > upper[i] {
			x[i] = upper[i]
		}
	}
	s.lastSolution = x
	out := make([]float64, s.size)
	copy(out, x)
	return out, nil
}

// Close releases the underlying optimizer.
func (s *NLoptSolver) Close() {
	s.opt.Destroy()
}

func clampInto(x []float64, prob *Problem) {
	for i := range x {
		lo, hi := prob.Lower.AtVec(i), prob.Upper.AtVec(i)
		if x[i] < lo {
			x[i] = lo
		}
		if x[i] > hi {
			x[i] = hi
		}
	}
}
