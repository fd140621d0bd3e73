package transport

import (
	"toksim/internal/config"
	"toksim/internal/geometry"
	"toksim/internal/plasma"
)

// CriticalGradient is a stiff heat transport model: diffusivity stays at a
// floor below a normalized temperature gradient threshold and grows
// linearly with the excess above it. This makes the coefficient matrix
// strongly state-dependent, which is the regime the nonlinear steppers and
// the Pereverzev-Corrigan stabilization exist for.
type CriticalGradient struct{}

func (CriticalGradient) Coeffs(cfg *config.Config, geo *geometry.Geometry, state *plasma.State) Coeffs {
	tc := cfg.Transport
	n := geo.Mesh.Nx + 1

	chiIon := chiFromGradient(geo, state.TiCell, state.TiBound, tc)
	chiEl := chiFromGradient(geo, state.TeCell, state.TeBound, tc)

	return Coeffs{
		ChiFaceIon: chiIon,
		ChiFaceEl:  chiEl,
		DFaceEl:    uniform(n, tc.DEl),
		VFaceEl:    uniform(n, tc.VEl),
	}
}

// chiFromGradient evaluates chi on faces from the normalized logarithmic
// gradient R/L_T = -Rmaj * dT/dr / T.
func chiFromGradient(geo *geometry.Geometry, tCell []float64, tBound float64, tc config.TransportConfig) []float64 {
	n := len(tCell)
	chi := make([]float64, n+1)
	chi[0] = tc.ChiMin // zero gradient on axis
	for i := 1; i <= n; i++ {
		var grad, t float64
		if i < n {
			grad = (tCell[i] - tCell[i-1]) / geo.Dr
			t = 0.5 * (tCell[i] + tCell[i-1])
		} else {
			grad = (tBound - tCell[n-1]) / (0.5 * geo.Dr)
			t = tBound
		}
		rlt := -geo.Rmaj * grad / t
		c := tc.ChiMin
		if rlt > tc.CritGrad {
			c += tc.Stiffness * (rlt - tc.CritGrad)
		}
		if c > tc.ChiMax {
			c = tc.ChiMax
		}
		chi[i] = c
	}
	return chi
}
