package stepper

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"toksim/internal/config"
	"toksim/internal/fvm"
	"toksim/internal/geometry"
	"toksim/internal/plasma"
	"toksim/internal/transport"
)

// NewtonRaphson iterates the full nonlinear residual to convergence. The
// Jacobian comes from forward finite differences of the residual; steps are
// clamped to a maximum relative size and halved while they fail to reduce
// the residual norm.
type NewtonRaphson struct{}

func (s *NewtonRaphson) Step(cfg *config.Config, geo *geometry.Geometry, model transport.Model,
	state *plasma.State, dt float64) (*plasma.State, Diagnostics, error) {

	if len(activeQuantities(cfg)) == 0 {
		return accept(cfg, geo, model, nil, nil, state, dt, Diagnostics{Converged: true})
	}
	ev := newEvaluator(cfg, geo, model, state, dt, cfg.Solver.UsePereverzev)
	sc := cfg.Solver

	x := append([]float64(nil), ev.xOld...)
	r := ev.residual(x)
	rnorm := rmsNorm(r)

	iters := 0
	converged := rnorm < sc.ResidualTol

	for !converged && iters < sc.MaxIterations {
		iters++

		jac := jacobian(ev, x, r)
		rhs := mat.NewVecDense(len(r), nil)
		for i, ri := range r {
			rhs.SetVec(i, -ri)
		}
		delta, err := fvm.Solve(jac, rhs)
		if err != nil {
			return nil, Diagnostics{Iterations: iters}, &plasma.StepError{
				Step: state.Step, Time: state.Time, Wrapped: err}
		}
		clampStep(delta, x, sc.DeltaMax)

		// backtracking line search on the residual norm
		lambda := 1.0
		var xNew, rNew []float64
		var rnNew float64
		for try := 0; ; try++ {
			xNew = make([]float64, len(x))
			for i := range x {
				xNew[i] = x[i] + lambda*delta[i]
			}
			rNew = ev.residual(xNew)
			rnNew = rmsNorm(rNew)
			if rnNew < rnorm || try >= 5 {
				break
			}
			lambda *= 0.5
		}

		stepSize := 0.0
		for i := range x {
			rel := lambda * delta[i] / (math.Abs(x[i]) + 1)
			stepSize += rel * rel
		}
		stepSize = math.Sqrt(stepSize / float64(len(x)))

		x, r, rnorm = xNew, rNew, rnNew
		if rnorm < sc.ResidualTol || stepSize < sc.StepTol {
			converged = true
		}
	}

	diag := Diagnostics{Iterations: iters, ResidualNorm: rnorm, Converged: converged}
	if !converged && sc.OnNonConvergence != "accept" {
		return nil, diag, &plasma.StepError{
			Step: state.Step, Time: state.Time,
			Wrapped: fmt.Errorf("%w: residual %.3e after %d iterations",
				plasma.ErrNonConverged, rnorm, iters),
		}
	}
	return accept(cfg, geo, model, ev.qs, x, state, dt, diag)
}

// jacobian approximates dr/dx by forward differences, one column per
// unknown. r0 is the residual already evaluated at x.
func jacobian(ev *evaluator, x, r0 []float64) *mat.Dense {
	m := len(x)
	jac := mat.NewDense(m, m, nil)
	xp := append([]float64(nil), x...)
	for j := 0; j < m; j++ {
		eps := 1e-6 * (math.Abs(x[j]) + 1e-3)
		xp[j] = x[j] + eps
		rp := ev.residual(xp)
		xp[j] = x[j]
		for i := 0; i < m; i++ {
			jac.Set(i, j, (rp[i]-r0[i])/eps)
		}
	}
	return jac
}

// clampStep rescales delta so no component moves more than deltaMax
// relative to the current value.
func clampStep(delta, x []float64, deltaMax float64) {
	if deltaMax <= 0 {
		return
	}
	worst := 0.0
	for i := range delta {
		rel := math.Abs(delta[i]) / (math.Abs(x[i]) + 1e-10)
		if rel > worst {
			worst = rel
		}
	}
	if worst > deltaMax {
		scale := deltaMax / worst
		for i := range delta {
			delta[i] *= scale
		}
	}
}
