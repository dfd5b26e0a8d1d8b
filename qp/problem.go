// Package qp poses and solves the box-constrained quadratic programs at the heart of
// the Cartesian optimization controller: minimize ½ xᵀHx + gᵀx subject to
// lb ≤ x ≤ ub.
package qp

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultMaxIterations bounds the working-set recalculations of a single solve.
const DefaultMaxIterations = 1000

// Problem is one box-constrained QP. H is symmetric positive semi-definite by
// construction when built through NewLeastSquares.
type Problem struct {
	H     *mat.SymDense
	G     *mat.VecDense
	Lower *mat.VecDense
	Upper *mat.VecDense
}

// Size returns the number of decision variables.
func (p *Problem) Size() int {
	return p.G.Len()
}

// Cost evaluates ½ xᵀHx + gᵀx.
func (p *Problem) Cost(x []float64) float64 {
	xv := mat.NewVecDense(len(x), x)
	var hx mat.VecDense
	hx.MulVec(p.H, xv)
	return 0.5*mat.Dot(xv, &hx) + mat.Dot(p.G, xv)
}

// Gradient evaluates Hx + g into dst.
func (p *Problem) Gradient(x, dst []float64) {
	xv := mat.NewVecDense(len(x), x)
	hx := mat.NewVecDense(len(dst), dst)
	hx.MulVec(p.H, xv)
	hx.AddVec(hx, p.G)
}

// NewLeastSquares builds the QP minimizing ‖a·x + b‖² inside the box [lower, upper]:
// H = 2aᵀa and g = 2aᵀb.
func NewLeastSquares(a *mat.Dense, b *mat.VecDense, lower, upper []float64) (*Problem, error) {
	rows, n := a.Dims()
	if b.Len() != rows {
		return nil, errors.Errorf("a has %d rows but b has %d entries", rows, b.Len())
	}
	if len(lower) != n || len(upper) != n {
		return nil, errors.Errorf("bounds must have %d entries, got %d and %d", n, len(lower), len(upper))
	}
	for i := range lower {
		if lower[i] > upper[i] {
			return nil, errors.Errorf("lower bound %d exceeds its upper bound", i)
		}
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)
	h := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			h.SetSym(i, j, 2*ata.At(i, j))
		}
	}

	g := mat.NewVecDense(n, nil)
	g.MulVec(a.T(), b)
	g.ScaleVec(2, g)

	return &Problem{
		H:     h,
		G:     g,
		Lower: mat.NewVecDense(n, append([]float64{}, lower...)),
		Upper: mat.NewVecDense(n, append([]float64{}, upper...)),
	}, nil
}

// Solver solves box-constrained QPs. Init performs a cold start; Hotstart reuses
// whatever internal state the previous solve left behind to converge faster on a
// similar problem. Both are bounded by maxIter and return a solution inside the box or
// an error.
type Solver interface {
	Init(prob *Problem, maxIter int) ([]float64, error)
	Hotstart(prob *Problem, maxIter int) ([]float64, error)
}
