package transport

import (
	"toksim/internal/config"
	"toksim/internal/geometry"
	"toksim/internal/plasma"
)

// Constant applies uniform transport coefficients across the whole radius.
type Constant struct{}

func (Constant) Coeffs(cfg *config.Config, geo *geometry.Geometry, _ *plasma.State) Coeffs {
	n := geo.Mesh.Nx + 1
	return Coeffs{
		ChiFaceIon: uniform(n, cfg.Transport.ChiIon),
		ChiFaceEl:  uniform(n, cfg.Transport.ChiEl),
		DFaceEl:    uniform(n, cfg.Transport.DEl),
		VFaceEl:    uniform(n, cfg.Transport.VEl),
	}
}

func uniform(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
