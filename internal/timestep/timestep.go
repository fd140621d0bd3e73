package timestep

import (
	"fmt"
	"sort"

	"toksim/internal/config"
	"toksim/internal/geometry"
	"toksim/internal/plasma"
	"toksim/internal/transport"
)

// Calculator proposes the next time step size. The simulation loop may
// still shrink the proposal when a step is rejected.
type Calculator interface {
	// NextDt returns the step to attempt from the given state.
	NextDt(state *plasma.State, geo *geometry.Geometry, coeffs transport.Coeffs) (float64, error)
	// NotDone reports whether the simulation should keep stepping.
	NotDone(t float64) bool
}

// New selects a calculator by the configured type.
func New(cfg *config.Config) (Calculator, error) {
	switch cfg.TimeStep.Type {
	case "fixed":
		return &Fixed{Dt: cfg.TimeStep.FixedDt, TFinal: cfg.TimeStep.TFinal}, nil
	case "chi":
		return &ChiBased{
			Safety: cfg.TimeStep.Safety,
			MaxDt:  cfg.TimeStep.MaxDt,
			TFinal: cfg.TimeStep.TFinal,
		}, nil
	case "array":
		times := append([]float64(nil), cfg.TimeStep.Times...)
		sort.Float64s(times)
		return &Array{Times: times}, nil
	default:
		return nil, fmt.Errorf("timestep: unknown calculator type %q", cfg.TimeStep.Type)
	}
}

// Fixed always proposes the same step.
type Fixed struct {
	Dt     float64
	TFinal float64
}

func (f *Fixed) NextDt(*plasma.State, *geometry.Geometry, transport.Coeffs) (float64, error) {
	return f.Dt, nil
}

func (f *Fixed) NotDone(t float64) bool { return t < f.TFinal-1e-12 }

// ChiBased scales the step with the explicit diffusive stability bound
// dt ~ dr^2 / chi_max, multiplied by a safety factor and clamped to MaxDt.
// Large transport shrinks the step; quiescent plasma runs at the cap.
type ChiBased struct {
	Safety float64
	MaxDt  float64
	TFinal float64
}

func (c *ChiBased) NextDt(_ *plasma.State, geo *geometry.Geometry, coeffs transport.Coeffs) (float64, error) {
	chi := coeffs.MaxChi()
	if chi <= 0 {
		return c.MaxDt, nil
	}
	dt := c.Safety * geo.Dr * geo.Dr / chi
	if dt > c.MaxDt {
		dt = c.MaxDt
	}
	if dt <= 0 {
		return 0, fmt.Errorf("timestep: non-positive dt %g from chi %g", dt, chi)
	}
	return dt, nil
}

func (c *ChiBased) NotDone(t float64) bool { return t < c.TFinal-1e-12 }

// Array steps through a prescribed, sorted list of times. The step lands
// exactly on the next listed time past the current one.
type Array struct {
	Times []float64
}

func (a *Array) NextDt(state *plasma.State, _ *geometry.Geometry, _ transport.Coeffs) (float64, error) {
	t := state.Time
	i := sort.SearchFloat64s(a.Times, t+1e-12)
	if i >= len(a.Times) {
		return 0, fmt.Errorf("timestep: no prescribed time beyond t=%g", t)
	}
	return a.Times[i] - t, nil
}

func (a *Array) NotDone(t float64) bool {
	return len(a.Times) > 0 && t < a.Times[len(a.Times)-1]-1e-12
}
