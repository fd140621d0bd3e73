package plasma

import (
	"math"

	"toksim/internal/geometry"
)

const mu0 = 4e-7 * math.Pi

// PsiFaceGrad returns dpsi/drho on the face grid from a cell-centered psi.
// The axis face gradient is exactly zero; the edge face uses a one-sided
// difference.
func PsiFaceGrad(geo *geometry.Geometry, psiCell []float64) []float64 {
	n := len(psiCell)
	grad := make([]float64, n+1)
	for i := 1; i < n; i++ {
		grad[i] = (psiCell[i] - psiCell[i-1]) / geo.Dr
	}
	grad[n] = (psiCell[n-1] - psiCell[n-2]) / geo.Dr
	return grad
}

// SafetyFactor computes q on the face grid from the poloidal flux profile.
// q = 2*pi*B0*rho / (dpsi/drho), with the on-axis removable singularity
// replaced by the limit from the flux curvature.
func SafetyFactor(geo *geometry.Geometry, psiCell []float64) []float64 {
	grad := PsiFaceGrad(geo, psiCell)
	q := make([]float64, len(grad))
	for i := 1; i < len(q); i++ {
		q[i] = 2 * math.Pi * geo.B0 * geo.RFace[i] / grad[i]
	}
	// on axis q -> 2*pi*B0 / (d2psi/drho2)
	d2psi := grad[1] / geo.RFace[1]
	q[0] = 2 * math.Pi * geo.B0 / d2psi
	return q
}

// MagneticShear computes s = (rho/q) dq/drho on the face grid. Shear
// vanishes on axis.
func MagneticShear(geo *geometry.Geometry, qFace []float64) []float64 {
	n := len(qFace)
	s := make([]float64, n)
	for i := 1; i < n-1; i++ {
		dq := (qFace[i+1] - qFace[i-1]) / (2 * geo.Dr)
		s[i] = geo.RFace[i] / qFace[i] * dq
	}
	dq := (qFace[n-1] - qFace[n-2]) / geo.Dr
	s[n-1] = geo.RFace[n-1] / qFace[n-1] * dq
	return s
}

// CurrentDensity computes the toroidal current density on cells from the
// poloidal flux: I(rho) = G2 * dpsi/drho / mu0, j = 2*pi*Rmaj * dI/dV.
func CurrentDensity(geo *geometry.Geometry, psiCell []float64) []float64 {
	grad := PsiFaceGrad(geo, psiCell)
	n := len(psiCell)
	iFace := make([]float64, n+1)
	for i := range iFace {
		iFace[i] = geo.G2Face[i] * grad[i] / mu0
	}
	j := make([]float64, n)
	for i := 0; i < n; i++ {
		dV := geo.VolumeFace[i+1] - geo.VolumeFace[i]
		j[i] = 2 * math.Pi * geo.Rmaj * (iFace[i+1] - iFace[i]) / dV
	}
	return j
}

// UpdateDerived returns a copy of s with the flux-derived diagnostics
// recomputed. The primary profiles are untouched.
func UpdateDerived(geo *geometry.Geometry, s *State) *State {
	out := s.Clone()
	out.QFace = SafetyFactor(geo, out.PsiCell)
	out.SFace = MagneticShear(geo, out.QFace)
	out.JtotCell = CurrentDensity(geo, out.PsiCell)
	return out
}
