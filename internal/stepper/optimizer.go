package stepper

import (
	"fmt"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"toksim/internal/config"
	"toksim/internal/fvm"
	"toksim/internal/geometry"
	"toksim/internal/plasma"
	"toksim/internal/transport"
)

// Optimizer reformulates the step as minimizing half the squared residual
// norm and hands it to an L-BFGS quasi-Newton search, warm-started from a
// single linear solve. Slower than Newton but tolerant of poor initial
// guesses and stiff transport models.
type Optimizer struct{}

func (s *Optimizer) Step(cfg *config.Config, geo *geometry.Geometry, model transport.Model,
	state *plasma.State, dt float64) (*plasma.State, Diagnostics, error) {

	if len(activeQuantities(cfg)) == 0 {
		return accept(cfg, geo, model, nil, nil, state, dt, Diagnostics{Converged: true})
	}
	ev := newEvaluator(cfg, geo, model, state, dt, cfg.Solver.UsePereverzev)
	sc := cfg.Solver

	a, b := ev.system(ev.xOld)
	x0, err := fvm.Solve(a, b)
	if err != nil {
		return nil, Diagnostics{}, &plasma.StepError{Step: state.Step, Time: state.Time, Wrapped: err}
	}

	objective := func(x []float64) float64 {
		r := ev.residual(x)
		sum := 0.0
		for _, ri := range r {
			sum += ri * ri
		}
		return 0.5 * sum
	}
	problem := optimize.Problem{
		Func: objective,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, objective, x, nil)
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: sc.ResidualTol,
		MajorIterations:   sc.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   sc.StepTol,
			Iterations: 5,
		},
	}

	result, optErr := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if result == nil {
		return nil, Diagnostics{}, &plasma.StepError{
			Step: state.Step, Time: state.Time,
			Wrapped: fmt.Errorf("%w: %v", plasma.ErrNonConverged, optErr),
		}
	}

	x := result.X
	rnorm := rmsNorm(ev.residual(x))
	converged := optErr == nil && rnorm < sc.ResidualTol

	diag := Diagnostics{
		Iterations:   result.Stats.MajorIterations,
		ResidualNorm: rnorm,
		Converged:    converged,
	}
	if !converged && sc.OnNonConvergence != "accept" {
		return nil, diag, &plasma.StepError{
			Step: state.Step, Time: state.Time,
			Wrapped: fmt.Errorf("%w: residual %.3e after %d iterations",
				plasma.ErrNonConverged, rnorm, diag.Iterations),
		}
	}
	return accept(cfg, geo, model, ev.qs, x, state, dt, diag)
}
