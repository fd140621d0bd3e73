package sim

import (
	"math"

	"toksim/internal/config"
	"toksim/internal/geometry"
	"toksim/internal/plasma"
)

const mu0 = 4e-7 * math.Pi

// BuildInitialState constructs the t=0 plasma state from the profile
// configuration: linear temperature profiles between core and edge, a
// parabolic density shape scaled to the requested volume average, and a
// poloidal flux consistent with a peaked initial current profile carrying
// the configured total plasma current.
func BuildInitialState(cfg *config.Config, geo *geometry.Geometry) *plasma.State {
	n := geo.Mesh.Nx
	pc := cfg.Profiles

	st := &plasma.State{}
	st.TiCell = make([]float64, n)
	st.TeCell = make([]float64, n)
	st.NeCell = make([]float64, n)
	st.TiBound = pc.TiBound
	st.TeBound = pc.TeBound
	st.NeBound = pc.NeBound

	for i := 0; i < n; i++ {
		r := geo.RNorm[i]
		st.TiCell[i] = pc.TiCore + (pc.TiBound-pc.TiCore)*r
		st.TeCell[i] = pc.TeCore + (pc.TeBound-pc.TeCore)*r
	}

	// density: peaked parabolic shape rescaled so the volume average hits
	// nbar
	shape := make([]float64, n)
	num, den := 0.0, 0.0
	for i := 0; i < n; i++ {
		r := geo.RNorm[i]
		shape[i] = pc.NPeak - (pc.NPeak-1)*r*r
		num += shape[i] * geo.Vpr[i]
		den += geo.Vpr[i]
	}
	scale := pc.Nbar * den / num
	for i := 0; i < n; i++ {
		st.NeCell[i] = shape[i] * scale
	}

	st.PsiCell, st.PsiBound = initialPsi(cfg, geo)
	return plasma.UpdateDerived(geo, st)
}

// initialPsi integrates the poloidal flux consistent with the initial
// current profile. Equilibrium geometries carry a flux profile derived from
// the measured current; circular geometries integrate an analytic peaked
// profile j ~ (1 - rnorm^2)^nu on the high-resolution sub-grid.
func initialPsi(cfg *config.Config, geo *geometry.Geometry) ([]float64, float64) {
	if geo.Type == geometry.Equilibrium && geo.PsiFromIp != nil {
		psi := append([]float64(nil), geo.PsiFromIp...)
		return psi, edgeValue(geo, psi)
	}

	nh := len(geo.RHiresNorm)
	jShape := make([]float64, nh)
	for i := 0; i < nh; i++ {
		r := geo.RHiresNorm[i]
		jShape[i] = math.Pow(1-r*r, cfg.Profiles.NuJ)
	}

	// scale so the area integral carries Ip, in amperes
	weighted := make([]float64, nh)
	for i := 0; i < nh; i++ {
		weighted[i] = jShape[i] * geo.SprHires[i]
	}
	total := trapz(weighted, geo.RHires)
	ctot := cfg.Geometry.Ip * 1e6 / total

	// enclosed current, then dpsi/drho = mu0 I / G2 with I(0) = G2(0) = 0
	iEnclosed := cumTrapz(weighted, geo.RHires)
	grad := make([]float64, nh)
	for i := 1; i < nh; i++ {
		grad[i] = mu0 * ctot * iEnclosed[i] / geo.G2Hires[i]
	}
	psiHires := cumTrapz(grad, geo.RHires)

	psi := make([]float64, geo.Mesh.Nx)
	for i := range psi {
		psi[i] = interpAt(geo.RNorm[i], geo.RHiresNorm, psiHires)
	}
	return psi, psiHires[nh-1]
}

// edgeValue extrapolates a cell profile to the outer face.
func edgeValue(geo *geometry.Geometry, cell []float64) float64 {
	n := len(cell)
	return cell[n-1] + 0.5*(cell[n-1]-cell[n-2])
}

func trapz(y, x []float64) float64 {
	sum := 0.0
	for i := 1; i < len(y); i++ {
		sum += 0.5 * (y[i] + y[i-1]) * (x[i] - x[i-1])
	}
	return sum
}

func cumTrapz(y, x []float64) []float64 {
	out := make([]float64, len(y))
	for i := 1; i < len(y); i++ {
		out[i] = out[i-1] + 0.5*(y[i]+y[i-1])*(x[i]-x[i-1])
	}
	return out
}

// interpAt linearly interpolates ys(xs) at x, clamping outside the range.
func interpAt(x float64, xs, ys []float64) float64 {
	n := len(xs)
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xs[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	f := (x - xs[lo]) / (xs[hi] - xs[lo])
	return ys[lo] + f*(ys[hi]-ys[lo])
}
