package qp

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestNewLeastSquares(t *testing.T) {
	// min ‖Ix − (1, 2)‖² has H = 2I, g = (−2, −4) and minimizer (1, 2).
	a := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	b := mat.NewVecDense(2, []float64{-1, -2})
	prob, err := NewLeastSquares(a, b, []float64{-10, -10}, []float64{10, 10})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, prob.Size(), test.ShouldEqual, 2)
	test.That(t, prob.H.At(0, 0), test.ShouldAlmostEqual, 2)
	test.That(t, prob.H.At(0, 1), test.ShouldAlmostEqual, 0)
	test.That(t, prob.G.AtVec(0), test.ShouldAlmostEqual, -2)
	test.That(t, prob.G.AtVec(1), test.ShouldAlmostEqual, -4)

	// At the minimizer, the cost is −½‖b‖² relative to the dropped constant.
	test.That(t, prob.Cost([]float64{1, 2}), test.ShouldAlmostEqual, -2.5)
	grad := make([]float64, 2)
	prob.Gradient([]float64{1, 2}, grad)
	test.That(t, grad[0], test.ShouldAlmostEqual, 0)
	test.That(t, grad[1], test.ShouldAlmostEqual, 0)
}

func TestNewLeastSquaresValidation(t *testing.T) {
	a := mat.NewDense(2, 2, nil)
	b := mat.NewVecDense(3, nil)
	_, err := NewLeastSquares(a, b, []float64{0, 0}, []float64{1, 1})
	test.That(t, err, test.ShouldNotBeNil)

	b = mat.NewVecDense(2, nil)
	_, err = NewLeastSquares(a, b, []float64{0}, []float64{1, 1})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewLeastSquares(a, b, []float64{2, 0}, []float64{1, 1})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNLoptSolverUnconstrainedMinimum(t *testing.T) {
	logger := golog.NewTestLogger(t)
	a := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	b := mat.NewVecDense(2, []float64{-1, -2})
	prob, err := NewLeastSquares(a, b, []float64{-10, -10}, []float64{10, 10})
	test.That(t, err, test.ShouldBeNil)

	solver, err := NewNLoptSolver(2, logger)
	test.That(t, err, test.ShouldBeNil)
	defer solver.Close()

	x, err := solver.Init(prob, DefaultMaxIterations)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x[0], test.ShouldAlmostEqual, 1, 1e-6)
	test.That(t, x[1], test.ShouldAlmostEqual, 2, 1e-6)
}

func TestNLoptSolverRespectsBounds(t *testing.T) {
	logger := golog.NewTestLogger(t)
	// Unconstrained minimizer is (1, 2) but the box caps x₁ at 0.5.
	a := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	b := mat.NewVecDense(2, []float64{-1, -2})
	prob, err := NewLeastSquares(a, b, []float64{-0.5, -0.5}, []float64{0.5, 0.5})
	test.That(t, err, test.ShouldBeNil)

	solver, err := NewNLoptSolver(2, logger)
	test.That(t, err, test.ShouldBeNil)
	defer solver.Close()

	x, err := solver.Init(prob, DefaultMaxIterations)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x[0], test.ShouldAlmostEqual, 0.5, 1e-6)
	test.That(t, x[1], test.ShouldAlmostEqual, 0.5, 1e-6)
}

func TestNLoptSolverHotstart(t *testing.T) {
	logger := golog.NewTestLogger(t)
	solver, err := NewNLoptSolver(2, logger)
	test.That(t, err, test.ShouldBeNil)
	defer solver.Close()

	a := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	bounds := []float64{-10, -10}
	upper := []float64{10, 10}

	prob, err := NewLeastSquares(a, mat.NewVecDense(2, []float64{-1, -2}), bounds, upper)
	test.That(t, err, test.ShouldBeNil)
	_, err = solver.Init(prob, DefaultMaxIterations)
	test.That(t, err, test.ShouldBeNil)

	// A nearby problem solved hot lands on its own minimizer.
	prob2, err := NewLeastSquares(a, mat.NewVecDense(2, []float64{-1.1, -2.1}), bounds, upper)
	test.That(t, err, test.ShouldBeNil)
	x, err := solver.Hotstart(prob2, DefaultMaxIterations)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x[0], test.ShouldAlmostEqual, 1.1, 1e-6)
	test.That(t, x[1], test.ShouldAlmostEqual, 2.1, 1e-6)

	// Hotstart without a prior solve falls back to a cold start.
	fresh, err := NewNLoptSolver(2, logger)
	test.That(t, err, test.ShouldBeNil)
	defer fresh.Close()
	x, err = fresh.Hotstart(prob, DefaultMaxIterations)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x[0], test.ShouldAlmostEqual, 1, 1e-6)
}

func TestNLoptSolverSizeMismatch(t *testing.T) {
	logger := golog.NewTestLogger(t)
	solver, err := NewNLoptSolver(3, logger)
	test.That(t, err, test.ShouldBeNil)
	defer solver.Close()

	a := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	prob, err := NewLeastSquares(a, mat.NewVecDense(2, nil), []float64{-1, -1}, []float64{1, 1})
	test.That(t, err, test.ShouldBeNil)
	_, err = solver.Init(prob, DefaultMaxIterations)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewNLoptSolver(0, logger)
	test.That(t, err, test.ShouldNotBeNil)
}
