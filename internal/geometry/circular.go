package geometry

import (
	"math"

	"toksim/internal/grid"
)

// BuildCircular constructs an analytic circular-cross-section geometry with
// an assumed linear elongation profile kappa(r) = 1 + rnorm*(kappa-1). The
// normalized radial coordinate is r/Rmin.
func BuildCircular(p Params) *Geometry {
	nr := p.Nr
	kappaParam := p.Kappa
	if kappaParam == 0 {
		kappaParam = 1.72
	}
	hiresFac := p.HiresFac
	if hiresFac == 0 {
		hiresFac = 4
	}

	drNorm := 1.0 / float64(nr)
	mesh := grid.Construct(nr, drNorm)
	rmax := p.Rmin

	g := &Geometry{
		Type:      Circular,
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

	kappa := elongation(g.RNorm, kappaParam)
	kappaFace := elongation(g.RFaceNorm, kappaParam)

	g.Volume = circularVolume(g.R, kappa, p.Rmaj)
	g.VolumeFace = circularVolume(g.RFace, kappaFace, p.Rmaj)
	g.Area = circularArea(g.R, kappa)
	g.AreaFace = circularArea(g.RFace, kappaFace)

	g.Vpr = circularVpr(g.R, kappa, g.Volume, kappaParam, p.Rmaj, rmax)
	g.VprFace = circularVpr(g.RFace, kappaFace, g.VolumeFace, kappaParam, p.Rmaj, rmax)
	g.Spr = circularSpr(g.R, kappa, g.Area, kappaParam, rmax)
	g.SprFace = circularSpr(g.RFace, kappaFace, g.AreaFace, kappaParam, rmax)

	g.DeltaFace = make([]float64, nr+1)

	// G2 uses <1/R^2> in the circular approximation. The face array starts
	// at zero on axis and takes the analytic outer value at the edge.
	g.G2 = make([]float64, nr)
	for i := range g.G2 {
		g.G2[i] = g.Vpr[i] / circularG2Denom(g.R[i], p.Rmaj)
	}
	g.G2Face = make([]float64, nr+1)
	for i := 1; i < nr; i++ {
		g.G2Face[i] = 0.5 * (g.G2[i-1] + g.G2[i])
	}
	g.G2Face[nr] = g.VprFace[nr] / circularG2Denom(g.RFace[nr], p.Rmaj)

	g.G0 = append([]float64(nil), g.Vpr...)
	g.G0Face = append([]float64(nil), g.VprFace...)
	g.G1 = square(g.Vpr)
	g.G1Face = square(g.VprFace)

	g.F = constant(nr, p.Rmaj*p.B0)
	g.FFace = constant(nr+1, p.Rmaj*p.B0)

	g.Rout = offset(g.R, p.Rmaj, 1)
	g.RoutFace = offset(g.RFace, p.Rmaj, 1)
	g.Rin = offset(g.R, p.Rmaj, -1)
	g.RinFace = offset(g.RFace, p.Rmaj, -1)

	// High-resolution grid for flux/current integrations.
	nh := nr * hiresFac
	g.RHiresNorm = make([]float64, nh)
	for i := range g.RHiresNorm {
		g.RHiresNorm[i] = float64(i) / float64(nh-1)
	}
	g.RHires = scale(g.RHiresNorm, rmax)
	kappaHires := elongation(g.RHiresNorm, kappaParam)
	volHires := circularVolume(g.RHires, kappaHires, p.Rmaj)
	areaHires := circularArea(g.RHires, kappaHires)
	g.VprHires = circularVpr(g.RHires, kappaHires, volHires, kappaParam, p.Rmaj, rmax)
	g.SprHires = circularSpr(g.RHires, kappaHires, areaHires, kappaParam, rmax)
	g.G2Hires = make([]float64, nh)
	for i := range g.G2Hires {
		g.G2Hires[i] = g.VprHires[i] / circularG2Denom(g.RHires[i], p.Rmaj)
	}

	g.axisGuardedRatios()
	return g
}

func elongation(rnorm []float64, kappaParam float64) []float64 {
	out := make([]float64, len(rnorm))
	for i, rn := range rnorm {
		out[i] = 1 + rn*(kappaParam-1)
	}
	return out
}

func circularVolume(r, kappa []float64, rmaj float64) []float64 {
	out := make([]float64, len(r))
	for i := range r {
		out[i] = 2 * math.Pi * math.Pi * rmaj * r[i] * r[i] * kappa[i]
	}
	return out
}

func circularArea(r, kappa []float64) []float64 {
	out := make([]float64, len(r))
	for i := range r {
		out[i] = math.Pi * r[i] * r[i] * kappa[i]
	}
	return out
}

func circularVpr(r, kappa, volume []float64, kappaParam, rmaj, rmax float64) []float64 {
	out := make([]float64, len(r))
	for i := range r {
		out[i] = 4*math.Pi*math.Pi*rmaj*r[i]*kappa[i] + volume[i]/kappa[i]*(kappaParam-1)/rmax
	}
	return out
}

func circularSpr(r, kappa, area []float64, kappaParam, rmax float64) []float64 {
	out := make([]float64, len(r))
	for i := range r {
		out[i] = 2*math.Pi*r[i]*kappa[i] + area[i]/kappa[i]*(kappaParam-1)/rmax
	}
	return out
}

func circularG2Denom(r, rmaj float64) float64 {
	return 4 * math.Pi * math.Pi * rmaj * rmaj * math.Sqrt(1-(r/rmaj)*(r/rmaj))
}

func scale(x []float64, f float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] * f
	}
	return out
}

func square(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] * x[i]
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func offset(x []float64, base float64, sign float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = base + sign*x[i]
	}
	return out
}
