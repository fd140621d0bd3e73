package geometry

import (
	"math"
	"path/filepath"

	"toksim/internal/grid"
)

const mu0 = 4e-7 * math.Pi

// Equilibrium file fields. Profiles are stored normalized to Rmaj and B0;
// the builder restores physical units.
var equilibriumFields = []string{
	"rho_norm",     // normalized toroidal flux radius
	"volume",       // V / Rmaj^3
	"area",         // S / Rmaj^2
	"grad_v",       // <|grad V|> / Rmaj^2
	"grad_v_sq",    // <(grad V)^2> / Rmaj^4
	"grad_v_sq_r2", // <(grad V)^2 / R^2> / Rmaj^2
	"one_over_r2",  // <1/R^2> * Rmaj^2
	"f_profile",    // F / (Rmaj*B0)
	"ip_profile",   // enclosed current, normalized by Rmaj*B0/mu0
	"delta_upper",  // upper triangularity
	"delta_lower",  // lower triangularity
}

// BuildFromEquilibrium constructs a geometry from a tabulated equilibrium
// file. Profiles are re-normalized using Rmaj, B0 and the configured plasma
// current, then linearly interpolated onto the simulation grid.
func BuildFromEquilibrium(p Params) (*Geometry, error) {
	dir := ResolveDir(p.Dir)
	data, err := LoadEquilibriumFile(filepath.Join(dir, p.File))
	if err != nil {
		return nil, err
	}
	return buildFromEquilibriumData(p, data)
}

func buildFromEquilibriumData(p Params, data map[string][]float64) (*Geometry, error) {
	if err := requireFields(data, equilibriumFields...); err != nil {
		return nil, err
	}

	rhon := data["rho_norm"]
	m := len(rhon)

	// restore physical units
	volume := scale(data["volume"], p.Rmaj*p.Rmaj*p.Rmaj)
	area := scale(data["area"], p.Rmaj*p.Rmaj)
	g0 := scale(data["grad_v"], p.Rmaj*p.Rmaj)
	g1 := scale(data["grad_v_sq"], p.Rmaj*p.Rmaj*p.Rmaj*p.Rmaj)
	g2 := scale(data["grad_v_sq_r2"], p.Rmaj*p.Rmaj)
	g3 := scale(data["one_over_r2"], 1/(p.Rmaj*p.Rmaj))
	fprof := scale(data["f_profile"], p.Rmaj*p.B0)
	ip := scale(data["ip_profile"], p.Rmaj*p.B0/mu0)

	rho := scale(rhon, p.Rmaj) // toroidal flux coordinate, rmax = rho[-1]
	rmax := rho[m-1]

	// dV/drho and dS/drho by central differences; the edge-gradient
	// approximation is wrong on axis, where the exact value is zero.
	vpr := gradient(volume, rho)
	spr := gradient(area, rho)
	vpr[0] = 0
	spr[0] = 0

	// G2 with the axis value pinned to zero (rho -> 0 limit).
	g2geo := make([]float64, m)
	for i := 1; i < m; i++ {
		g2geo[i] = p.Rmaj / (16 * math.Pi * math.Pi * math.Pi * math.Pi) *
			fprof[i] / (p.Rmaj * p.B0) * g2[i] * g3[i] / rho[i]
	}

	// Poloidal flux consistent with the tabulated current profile. The
	// file's own psi tends to have noisy second derivatives, so integrate
	// dpsi/drho = mu0*Ip/G2 instead.
	dpsidrho := make([]float64, m)
	for i := 1; i < m; i++ {
		dpsidrho[i] = ip[i] * mu0 / g2geo[i]
	}
	psiFromIp := cumulativeTrapezoid(dpsidrho, rho)
	psiFromIp[m-1] = psiFromIp[m-2] + mu0*ip[m-1]/g2geo[m-1]*(rho[m-1]-rho[m-2])

	// rescale to the configured plasma current
	ipScale := 1.0
	if p.Ip > 0 {
		ipScale = p.Ip * 1e6 / ip[m-1]
		psiFromIp = scale(psiFromIp, ipScale)
	}

	// plasma current density from the enclosed-current profile
	jtot := make([]float64, m)
	dIdV := gradient(ip, volume)
	for i := range jtot {
		jtot[i] = 2 * math.Pi * p.Rmaj * dIdV[i] * ipScale
	}

	drNorm := 1.0 / float64(p.Nr)
	mesh := grid.Construct(p.Nr, drNorm)

	g := &Geometry{
		Type:      Equilibrium,
		Mesh:      mesh,
		DrNorm:    drNorm,
		Dr:        drNorm * rmax,
		Rmax:      rmax,
		Rmaj:      p.Rmaj,
		B0:        p.B0,
		RFaceNorm: mesh.FaceCenters,
		RNorm:     mesh.CellCenters,
	}
	g.RFace = scale(g.RFaceNorm, rmax)
	g.R = scale(g.RNorm, rmax)

	interpCell := func(y []float64) []float64 { return interp(g.RNorm, rhon, y) }
	interpFace := func(y []float64) []float64 { return interp(g.RFaceNorm, rhon, y) }

	g.Volume = interpCell(volume)
	g.VolumeFace = interpFace(volume)
	g.Area = interpCell(area)
	g.AreaFace = interpFace(area)
	g.Vpr = interpCell(vpr)
	g.VprFace = interpFace(vpr)
	g.Spr = interpCell(spr)
	g.SprFace = interpFace(spr)
	g.G2 = interpCell(g2geo)
	g.G2Face = interpFace(g2geo)
	g.G0 = interpCell(g0)
	g.G0Face = interpFace(g0)
	g.G1 = interpCell(g1)
	g.G1Face = interpFace(g1)
	g.F = interpCell(fprof)
	g.FFace = interpFace(fprof)
	g.JtotCell = interpCell(jtot)
	g.JtotFace = interpFace(jtot)
	g.PsiFromIp = interpCell(psiFromIp)
	g.DeltaUpper = interpFace(data["delta_upper"])
	g.DeltaLower = interpFace(data["delta_lower"])

	g.DeltaFace = make([]float64, p.Nr+1)
	for i := range g.DeltaFace {
		g.DeltaFace[i] = 0.5 * (g.DeltaUpper[i] + g.DeltaLower[i])
	}

	g.Rout = make([]float64, p.Nr)
	g.Rin = make([]float64, p.Nr)
	for i := range g.R {
		g.Rout[i] = p.Rmaj + g.R[i]
		g.Rin[i] = p.Rmaj - g.R[i]
	}
	g.RoutFace = make([]float64, p.Nr+1)
	g.RinFace = make([]float64, p.Nr+1)
	for i := range g.RFace {
		g.RoutFace[i] = p.Rmaj + g.RFace[i]
		g.RinFace[i] = p.Rmaj - g.RFace[i]
	}

	g.axisGuardedRatios()
	return g, nil
}

// interp evaluates piecewise-linear interpolation of (xs, ys) at each x.
// xs must be increasing; x outside the range clamps to the end values.
func interp(x, xs, ys []float64) []float64 {
	out := make([]float64, len(x))
	for i, xi := range x {
		out[i] = interp1(xi, xs, ys)
	}
	return out
}

func interp1(x float64, xs, ys []float64) float64 {
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
	t := (x - xs[lo]) / (xs[hi] - xs[lo])
	return ys[lo] + t*(ys[hi]-ys[lo])
}

// gradient computes dy/dx with central differences in the interior and
// one-sided differences at the ends.
func gradient(y, x []float64) []float64 {
	n := len(y)
	out := make([]float64, n)
	out[0] = (y[1] - y[0]) / (x[1] - x[0])
	out[n-1] = (y[n-1] - y[n-2]) / (x[n-1] - x[n-2])
	for i := 1; i < n-1; i++ {
		out[i] = (y[i+1] - y[i-1]) / (x[i+1] - x[i-1])
	}
	return out
}

// cumulativeTrapezoid integrates y dx from the origin, returning the
// running integral at each point (zero at index 0).
func cumulativeTrapezoid(y, x []float64) []float64 {
	out := make([]float64, len(y))
	for i := 1; i < len(y); i++ {
		out[i] = out[i-1] + 0.5*(y[i]+y[i-1])*(x[i]-x[i-1])
	}
	return out
}
