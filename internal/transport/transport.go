package transport

import (
	"fmt"

	"toksim/internal/config"
	"toksim/internal/geometry"
	"toksim/internal/plasma"
)

// Coeffs bundles face-centered transport coefficients for all transported
// quantities. All slices have length n+1.
type Coeffs struct {
	ChiFaceIon []float64 // ion heat diffusivity [m^2/s]
	ChiFaceEl  []float64 // electron heat diffusivity [m^2/s]
	DFaceEl    []float64 // particle diffusivity [m^2/s]
	VFaceEl    []float64 // particle convection velocity [m/s]
}

// Model computes transport coefficients from the current plasma state.
// Implementations must be pure functions of their inputs: the stepper
// re-evaluates them multiple times within one nonlinear iteration.
type Model interface {
	Coeffs(cfg *config.Config, geo *geometry.Geometry, state *plasma.State) Coeffs
}

// New selects a model by its configured name.
func New(name string) (Model, error) {
	switch name {
	case "constant":
		return Constant{}, nil
	case "critical-gradient":
		return CriticalGradient{}, nil
	default:
		return nil, fmt.Errorf("transport: unknown model %q", name)
	}
}

// MaxChi returns the largest heat diffusivity in the bundle, used by the
// adaptive time-step calculator for its stability bound.
func (c Coeffs) MaxChi() float64 {
	max := 0.0
	for _, chi := range [][]float64{c.ChiFaceIon, c.ChiFaceEl} {
		for _, v := range chi {
			if v > max {
				max = v
			}
		}
	}
	return max
}
