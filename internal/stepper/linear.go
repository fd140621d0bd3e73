package stepper

import (
	"toksim/internal/config"
	"toksim/internal/fvm"
	"toksim/internal/geometry"
	"toksim/internal/plasma"
	"toksim/internal/transport"
)

// Linear takes one theta-method solve with coefficients frozen at the old
// state, optionally followed by fixed-count corrector solves that
// re-evaluate the coefficients at the latest prediction. No convergence
// check is performed; the corrector count is part of the configuration.
type Linear struct{}

func (s *Linear) Step(cfg *config.Config, geo *geometry.Geometry, model transport.Model,
	state *plasma.State, dt float64) (*plasma.State, Diagnostics, error) {

	if len(activeQuantities(cfg)) == 0 {
		return accept(cfg, geo, model, nil, nil, state, dt, Diagnostics{Converged: true})
	}
	ev := newEvaluator(cfg, geo, model, state, dt, cfg.Solver.UsePereverzev)

	a, b := ev.system(ev.xOld)
	x, err := fvm.Solve(a, b)
	if err != nil {
		return nil, Diagnostics{}, &plasma.StepError{Step: state.Step, Time: state.Time, Wrapped: err}
	}
	iters := 1

	if cfg.Solver.PredictorCorrector {
		for k := 0; k < cfg.Solver.CorrectorSteps; k++ {
			a, b = ev.system(x)
			x, err = fvm.Solve(a, b)
			if err != nil {
				return nil, Diagnostics{}, &plasma.StepError{Step: state.Step, Time: state.Time, Wrapped: err}
			}
			iters++
		}
	}

	diag := Diagnostics{
		Iterations:   iters,
		ResidualNorm: rmsNorm(ev.residual(x)),
		Converged:    true,
	}
	return accept(cfg, geo, model, ev.qs, x, state, dt, diag)
}
