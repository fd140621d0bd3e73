package geometry

import (
	"toksim/internal/grid"
)

// Type discriminates the geometry variants.
type Type int

const (
	Circular Type = iota
	Equilibrium
)

// Params is the subset of configuration needed to build a geometry.
type Params struct {
	Nr    int     // number of radial cells
	Rmaj  float64 // major radius [m]
	Rmin  float64 // minor radius [m]
	B0    float64 // magnetic field on axis [T]
	Kappa float64 // edge elongation (circular geometry)
	Ip    float64 // plasma current [MA], rescales equilibrium psi

	// Equilibrium file lookup. Dir falls back to TOKSIM_GEOMETRY_DIR, then
	// DefaultGeometryDir.
	Dir  string
	File string

	HiresFac int // refinement factor for flux/current integrations
}

// Geometry holds precomputed flux-surface metric data over the mesh. All
// slices are read-only after construction; cell arrays have length Nr and
// face arrays Nr+1.
type Geometry struct {
	Type Type
	Mesh grid.Grid1D

	DrNorm float64
	Dr     float64
	Rmax   float64 // radius denormalization constant
	Rmaj   float64
	B0     float64

	RFaceNorm []float64
	RNorm     []float64
	RFace     []float64
	R         []float64

	Volume     []float64
	VolumeFace []float64
	Area       []float64
	AreaFace   []float64

	Vpr     []float64 // dV/drho on cells
	VprFace []float64
	Spr     []float64 // dS/drho on cells
	SprFace []float64

	DeltaFace []float64 // triangularity

	G2     []float64
	G2Face []float64
	G0     []float64 // <grad V>
	G0Face []float64
	G1     []float64 // <(grad V)^2>
	G1Face []float64

	// Ratios used directly by the transport equations. The first face sits
	// on the magnetic axis where vpr -> 0; the analytic limits (1, 0, 1)
	// are substituted there instead of dividing.
	G0OverVprFace  []float64
	G1OverVpr      []float64
	G1OverVprFace  []float64
	G1OverVpr2     []float64
	G1OverVpr2Face []float64

	F     []float64 // F = B*R flux function
	FFace []float64

	Rin      []float64
	RinFace  []float64
	Rout     []float64
	RoutFace []float64

	// High-resolution sub-grid used for poloidal flux <-> plasma current
	// integrations (circular geometry only).
	RHiresNorm []float64
	RHires     []float64
	VprHires   []float64
	SprHires   []float64
	G2Hires    []float64

	// Equilibrium-derived current profile and flux consistent with it
	// (equilibrium geometry only).
	JtotCell   []float64
	JtotFace   []float64
	PsiFromIp  []float64
	DeltaUpper []float64
	DeltaLower []float64
}

// axisGuardedRatios fills the precomputed g0/vpr, g1/vpr and g1/vpr^2 face
// ratios, substituting the on-axis limits at face 0.
func (g *Geometry) axisGuardedRatios() {
	n := len(g.VprFace)
	g.G0OverVprFace = make([]float64, n)
	g.G1OverVprFace = make([]float64, n)
	g.G1OverVpr2Face = make([]float64, n)
	g.G0OverVprFace[0] = 1.0
	g.G1OverVprFace[0] = 0.0
	g.G1OverVpr2Face[0] = 1.0
	for i := 1; i < n; i++ {
		g.G0OverVprFace[i] = g.G0Face[i] / g.VprFace[i]
		g.G1OverVprFace[i] = g.G1Face[i] / g.VprFace[i]
		g.G1OverVpr2Face[i] = g.G1Face[i] / (g.VprFace[i] * g.VprFace[i])
	}

	g.G1OverVpr = make([]float64, len(g.Vpr))
	g.G1OverVpr2 = make([]float64, len(g.Vpr))
	for i := range g.Vpr {
		g.G1OverVpr[i] = g.G1[i] / g.Vpr[i]
		g.G1OverVpr2[i] = g.G1[i] / (g.Vpr[i] * g.Vpr[i])
	}
}
