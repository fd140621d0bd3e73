package sources

import (
	"math"

	"toksim/internal/config"
	"toksim/internal/geometry"
	"toksim/internal/plasma"
)

// KeV20ToMJ converts an energy density expressed in (1e20 m^-3)*keV to
// MJ/m^3. Heat sources are in MW/m^3, so transient heat coefficients carry
// this factor.
const KeV20ToMJ = 1.602e-2

const mu0 = 4e-7 * math.Pi

// Profiles holds volumetric source densities on the cell grid, one entry
// per transported quantity, plus the implicit ion-electron coupling
// coefficient.
type Profiles struct {
	QIonCell []float64 // MW/m^3
	QElCell  []float64 // MW/m^3
	SNeCell  []float64 // 1e20 m^-3 / s
	JExtCell []float64 // driven current density [MA/m^2]

	// QeiCoef couples the heat equations implicitly:
	// Qei = QeiCoef * (Te - Ti) [MW/m^3].
	QeiCoef []float64
}

// Compute evaluates all source profiles for the given state. Pure function
// of (config, geometry, state).
func Compute(cfg *config.Config, geo *geometry.Geometry, state *plasma.State) Profiles {
	sc := cfg.Sources
	n := geo.Mesh.Nx

	p := Profiles{
		QIonCell: make([]float64, n),
		QElCell:  make([]float64, n),
		SNeCell:  make([]float64, n),
		JExtCell: make([]float64, n),
		QeiCoef:  make([]float64, n),
	}

	if sc.PTot > 0 {
		heat := gaussianProfile(geo, sc.HeatLoc, sc.HeatWidth, sc.PTot)
		for i := range heat {
			p.QIonCell[i] = sc.HeatIonFrac * heat[i]
			p.QElCell[i] = (1 - sc.HeatIonFrac) * heat[i]
		}
	}
	if sc.STot > 0 {
		p.SNeCell = gaussianProfile(geo, sc.ParticleLoc, sc.ParticleWidth, sc.STot)
	}
	if sc.JExtTot != 0 {
		// normalized by area, not volume: current density integrates over
		// the poloidal cross-section
		p.JExtCell = gaussianAreaProfile(geo, sc.JExtLoc, sc.JExtWidth, sc.JExtTot)
	}

	for i := 0; i < n; i++ {
		p.QeiCoef[i] = sc.QeiMult * qeiCoefficient(state.NeCell[i], state.TeCell[i])
	}
	return p
}

// gaussianProfile builds exp(-(rnorm-loc)^2 / (2 w^2)) on cells, scaled so
// its volume integral equals total.
func gaussianProfile(geo *geometry.Geometry, loc, width, total float64) []float64 {
	n := geo.Mesh.Nx
	prof := make([]float64, n)
	integral := 0.0
	for i := 0; i < n; i++ {
		d := (geo.RNorm[i] - loc) / width
		prof[i] = math.Exp(-0.5 * d * d)
		integral += prof[i] * geo.Vpr[i] * geo.Dr
	}
	for i := range prof {
		prof[i] *= total / integral
	}
	return prof
}

// gaussianAreaProfile is the same shape normalized by the area integral.
func gaussianAreaProfile(geo *geometry.Geometry, loc, width, total float64) []float64 {
	n := geo.Mesh.Nx
	prof := make([]float64, n)
	integral := 0.0
	for i := 0; i < n; i++ {
		d := (geo.RNorm[i] - loc) / width
		prof[i] = math.Exp(-0.5 * d * d)
		integral += prof[i] * geo.Spr[i] * geo.Dr
	}
	for i := range prof {
		prof[i] *= total / integral
	}
	return prof
}

// qeiCoefficient is the collisional ion-electron heat exchange coefficient
// in MW/(m^3 keV), for ne in 1e20 m^-3 and Te in keV. Scales as ne^2 /
// Te^(3/2), the classical equilibration dependence.
func qeiCoefficient(ne, te float64) float64 {
	if te <= 0 {
		return 0
	}
	return 7.5e-3 * ne * ne / math.Pow(te, 1.5)
}

// SpitzerConductivity returns the plasma parallel conductivity profile
// sigma ~ Te^(3/2) on cells, in MA/(V m) scaled units used by the current
// diffusion equation.
func SpitzerConductivity(teCell []float64) []float64 {
	out := make([]float64, len(teCell))
	for i, te := range teCell {
		if te < 0 {
			te = 0
		}
		out[i] = 1.9e1 * math.Pow(te, 1.5)
	}
	return out
}

// PsiSourceCell converts the driven current density into the poloidal flux
// equation source term. Current drive is configured in MA but the flux
// integrals run in amperes.
func PsiSourceCell(geo *geometry.Geometry, jExtCell []float64) []float64 {
	const ampsPerMA = 1e6
	out := make([]float64, len(jExtCell))
	for i := range jExtCell {
		out[i] = 2 * math.Pi * geo.Rmaj * mu0 * jExtCell[i] * ampsPerMA
	}
	return out
}
