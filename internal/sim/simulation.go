package sim

import (
	"context"
	"errors"
	"fmt"

	"toksim/internal/config"
	"toksim/internal/geometry"
	"toksim/internal/plasma"
	"toksim/internal/stepper"
	"toksim/internal/timestep"
	"toksim/internal/transport"
)

// Simulation owns one run: geometry, transport model, stepper and time-step
// calculator assembled from a validated configuration. Restarting means
// constructing a fresh Simulation.
type Simulation struct {
	cfg   *config.Config
	geo   *geometry.Geometry
	model transport.Model
	step  stepper.Stepper
	calc  timestep.Calculator

	metrics   []Metric
	observers []Observer
}

// New validates the configuration and assembles all components.
func New(cfg *config.Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var geo *geometry.Geometry
	switch cfg.Geometry.Type {
	case "circular":
		geo = geometry.BuildCircular(cfg.GeometryParams())
	case "equilibrium":
		g, err := geometry.BuildFromEquilibrium(cfg.GeometryParams())
		if err != nil {
			return nil, err
		}
		geo = g
	default:
		return nil, fmt.Errorf("sim: unknown geometry type %q", cfg.Geometry.Type)
	}

	model, err := transport.New(cfg.Transport.Model)
	if err != nil {
		return nil, err
	}
	step, err := stepper.New(cfg)
	if err != nil {
		return nil, err
	}
	calc, err := timestep.New(cfg)
	if err != nil {
		return nil, err
	}

	return &Simulation{
		cfg:   cfg,
		geo:   geo,
		model: model,
		step:  step,
		calc:  calc,
	}, nil
}

func (s *Simulation) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulation) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Geometry exposes the assembled geometry for reporting layers.
func (s *Simulation) Geometry() *geometry.Geometry { return s.geo }

// Run advances the plasma from the built initial state until the time-step
// calculator declares the run finished. Rejected steps retry from the same
// state with the step halved; a step shrinking below MinDt is fatal. The
// context is checked between steps only, so cancellation never tears a step
// in half.
func (s *Simulation) Run(ctx context.Context) (*Result, error) {
	st := BuildInitialState(s.cfg, s.geo)
	return s.RunFrom(ctx, st)
}

// RunFrom runs the loop from an explicit starting state.
func (s *Simulation) RunFrom(ctx context.Context, st *plasma.State) (*Result, error) {
	result := &Result{
		States:  []*plasma.State{st.Clone()},
		Metrics: make(map[string]float64),
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	tFinal := s.cfg.TimeStep.TFinal
	minDt := s.cfg.TimeStep.MinDt

	for s.calc.NotDone(st.Time) {
		select {
		case <-ctx.Done():
			s.finalize(result)
			return result, ctx.Err()
		default:
		}

		coeffs := s.model.Coeffs(s.cfg, s.geo, st)
		dt, err := s.calc.NextDt(st, s.geo, coeffs)
		if err != nil {
			s.finalize(result)
			return result, err
		}
		if s.cfg.TimeStep.Type != "array" && st.Time+dt > tFinal {
			dt = tFinal - st.Time
		}

		retries := 0
		var next *plasma.State
		var diag stepper.Diagnostics
		for {
			next, diag, err = s.step.Step(s.cfg, s.geo, s.model, st, dt)
			if err == nil {
				break
			}
			if !recoverable(err) {
				s.finalize(result)
				return result, err
			}
			dt /= 2
			retries++
			result.Retries++
			if dt < minDt {
				s.finalize(result)
				return result, fmt.Errorf("%w: dt %g below minimum %g at t=%g: %v",
					plasma.ErrStepTooSmall, dt, minDt, st.Time, err)
			}
		}

		info := StepInfo{
			Dt:           dt,
			Iterations:   diag.Iterations,
			ResidualNorm: diag.ResidualNorm,
			Converged:    diag.Converged,
			Retries:      retries,
		}
		for _, m := range s.metrics {
			m.Observe(next, info)
		}
		for _, o := range s.observers {
			o.OnStep(next.Clone(), info)
		}

		st = next
		result.States = append(result.States, st)
		result.Steps = append(result.Steps, info)
	}

	s.finalize(result)
	return result, nil
}

func (s *Simulation) finalize(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

// recoverable reports whether an error should trigger a retry with a
// smaller step rather than aborting the run.
func recoverable(err error) bool {
	return errors.Is(err, plasma.ErrStepRejected) || errors.Is(err, plasma.ErrNonConverged)
}
