package stepper

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"toksim/internal/config"
	"toksim/internal/fvm"
	"toksim/internal/geometry"
	"toksim/internal/plasma"
	"toksim/internal/sources"
	"toksim/internal/transport"
)

// Diagnostics reports what one step cost and how it converged. Coeffs are
// the transport coefficients at the accepted state, always without the
// Pereverzev-Corrigan contribution.
type Diagnostics struct {
	Iterations   int
	ResidualNorm float64
	Converged    bool
	Coeffs       transport.Coeffs
}

// Stepper advances the plasma state by one time step. Implementations must
// not retain references to the input state.
type Stepper interface {
	Step(cfg *config.Config, geo *geometry.Geometry, model transport.Model,
		state *plasma.State, dt float64) (*plasma.State, Diagnostics, error)
}

// New selects a stepper by the configured solver type.
func New(cfg *config.Config) (Stepper, error) {
	switch cfg.Solver.Type {
	case "linear":
		return &Linear{}, nil
	case "newton":
		return &NewtonRaphson{}, nil
	case "optimizer":
		return &Optimizer{}, nil
	default:
		return nil, fmt.Errorf("stepper: unknown solver type %q", cfg.Solver.Type)
	}
}

// quantity identifies one transported variable in the block system.
type quantity int

const (
	qTi quantity = iota
	qTe
	qNe
	qPsi
)

// activeQuantities lists the enabled equations in block order.
func activeQuantities(cfg *config.Config) []quantity {
	var qs []quantity
	if cfg.Equations.IonHeat {
		qs = append(qs, qTi)
	}
	if cfg.Equations.ElHeat {
		qs = append(qs, qTe)
	}
	if cfg.Equations.Density {
		qs = append(qs, qNe)
	}
	if cfg.Equations.Current {
		qs = append(qs, qPsi)
	}
	return qs
}

func profileOf(q quantity, st *plasma.State) []float64 {
	switch q {
	case qTi:
		return st.TiCell
	case qTe:
		return st.TeCell
	case qNe:
		return st.NeCell
	default:
		return st.PsiCell
	}
}

// packState flattens the active profiles into one solution vector.
func packState(qs []quantity, st *plasma.State) []float64 {
	n := len(st.TiCell)
	x := make([]float64, 0, len(qs)*n)
	for _, q := range qs {
		x = append(x, profileOf(q, st)...)
	}
	return x
}

// applySolution produces a new state with the active profiles replaced by
// the solution vector. Disabled profiles are carried through untouched.
func applySolution(qs []quantity, x []float64, st *plasma.State) *plasma.State {
	n := len(st.TiCell)
	out := st.Clone()
	for e, q := range qs {
		block := x[e*n : (e+1)*n]
		switch q {
		case qTi:
			copy(out.TiCell, block)
		case qTe:
			copy(out.TeCell, block)
		case qNe:
			copy(out.NeCell, block)
		case qPsi:
			copy(out.PsiCell, block)
		}
	}
	return out
}

// validate enforces the post-solve constraints: finite everywhere, strictly
// positive temperatures and density.
func validate(st *plasma.State) error {
	if !st.IsValid() {
		return fmt.Errorf("%w: non-finite profile values", plasma.ErrStepRejected)
	}
	if !st.Positive() {
		return fmt.Errorf("%w: non-positive temperature or density", plasma.ErrStepRejected)
	}
	return nil
}

// accept finalizes a solution vector into the next state: recomputes the
// flux-derived diagnostics, validates, and stamps time bookkeeping.
func accept(cfg *config.Config, geo *geometry.Geometry, model transport.Model,
	qs []quantity, x []float64, old *plasma.State, dt float64,
	diag Diagnostics) (*plasma.State, Diagnostics, error) {

	next := applySolution(qs, x, old)
	if err := validate(next); err != nil {
		return nil, diag, &plasma.StepError{Step: old.Step, Time: old.Time, Wrapped: err}
	}
	next.Time = old.Time + dt
	next.Step = old.Step + 1
	next = plasma.UpdateDerived(geo, next)

	diag.Coeffs = model.Coeffs(cfg, geo, next)
	return next, diag, nil
}

func rmsNorm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(v)))
}

// evaluator builds the theta-method block system for candidate states. The
// old-side coefficients are evaluated once at construction.
type evaluator struct {
	cfg   *config.Config
	geo   *geometry.Geometry
	model transport.Model
	old   *plasma.State
	qs    []quantity
	dt    float64

	pereverzev bool

	xOld   []float64
	eqsOld []fvm.EquationCoeffs
	cplOld []fvm.Coupling
}

func newEvaluator(cfg *config.Config, geo *geometry.Geometry, model transport.Model,
	old *plasma.State, dt float64, pereverzev bool) *evaluator {

	ev := &evaluator{
		cfg:        cfg,
		geo:        geo,
		model:      model,
		old:        old,
		qs:         activeQuantities(cfg),
		dt:         dt,
		pereverzev: pereverzev,
	}
	ev.xOld = packState(ev.qs, old)
	ev.eqsOld, ev.cplOld = ev.equationsAt(old)
	return ev
}

// system assembles the block system with the new-side coefficients
// evaluated at the candidate solution vector x.
func (ev *evaluator) system(x []float64) (*mat.Dense, *mat.VecDense) {
	candidate := applySolution(ev.qs, x, ev.old)
	eqsNew, cplNew := ev.equationsAt(candidate)
	return fvm.Assemble(eqsNew, ev.eqsOld, cplNew, ev.cplOld,
		ev.xOld, x, ev.geo.Dr, ev.dt, ev.cfg.Solver.Theta)
}

// residual is the theta-method residual r(x) = A(x) x - b(x), scaled by
// the RHS magnitude so tolerances are relative.
func (ev *evaluator) residual(x []float64) []float64 {
	a, b := ev.system(x)
	r := fvm.Residual(a, b, x)
	scale := 0.0
	for i := 0; i < b.Len(); i++ {
		scale += b.AtVec(i) * b.AtVec(i)
	}
	scale = math.Sqrt(scale/float64(b.Len())) + 1e-30
	for i := range r {
		r[i] /= scale
	}
	return r
}

// equationsAt builds per-equation coefficient bundles with geometry factors
// folded in, evaluated at the given state.
func (ev *evaluator) equationsAt(st *plasma.State) ([]fvm.EquationCoeffs, []fvm.Coupling) {
	cfg, geo := ev.cfg, ev.geo
	coeffs := ev.model.Coeffs(cfg, geo, st)
	src := sources.Compute(cfg, geo, st)

	mode := convectionMode(cfg.Solver.ConvectionDirichletMode)
	n := geo.Mesh.Nx

	neFace := faceProfile(st.NeCell, st.NeBound)

	eqs := make([]fvm.EquationCoeffs, 0, len(ev.qs))
	index := make(map[quantity]int, len(ev.qs))

	for _, q := range ev.qs {
		index[q] = len(eqs)
		switch q {
		case qTi:
			eqs = append(eqs, ev.heatEquation(st, st.TiCell, st.TiBound,
				coeffs.ChiFaceIon, neFace, src.QIonCell, src.QeiCoef, mode))
		case qTe:
			eqs = append(eqs, ev.heatEquation(st, st.TeCell, st.TeBound,
				coeffs.ChiFaceEl, neFace, src.QElCell, src.QeiCoef, mode))
		case qNe:
			eq := fvm.EquationCoeffs{
				TransientCell: append([]float64(nil), geo.Vpr...),
				DFace:         make([]float64, n+1),
				VFace:         make([]float64, n+1),
				SourceCell:    make([]float64, n),
				SourceMatCell: make([]float64, n),
				RightBC:       st.NeBound,
				Mode:          mode,
			}
			for j := 0; j <= n; j++ {
				eq.DFace[j] = geo.G1OverVprFace[j] * coeffs.DFaceEl[j]
				eq.VFace[j] = geo.G0Face[j] * coeffs.VFaceEl[j]
			}
			for i := 0; i < n; i++ {
				eq.SourceCell[i] = geo.Vpr[i] * src.SNeCell[i]
			}
			if ev.pereverzev {
				dpc := make([]float64, n+1)
				for j := 0; j <= n; j++ {
					dpc[j] = geo.G1OverVprFace[j] * cfg.Solver.DPereverzev
				}
				addPereverzev(&eq, dpc, ev.old.NeCell, ev.old.NeBound, geo.Dr)
			}
			eqs = append(eqs, eq)
		case qPsi:
			sigma := sources.SpitzerConductivity(st.TeCell)
			eq := fvm.EquationCoeffs{
				TransientCell: make([]float64, n),
				DFace:         append([]float64(nil), geo.G2Face...),
				VFace:         make([]float64, n+1),
				SourceCell:    sources.PsiSourceCell(geo, src.JExtCell),
				SourceMatCell: make([]float64, n),
				RightBC:       st.PsiBound,
				Mode:          mode,
			}
			for i := 0; i < n; i++ {
				eq.TransientCell[i] = sigma[i] * mu0
			}
			eqs = append(eqs, eq)
		}
	}

	// ion-electron heat exchange couples the two heat equations
	var cpl []fvm.Coupling
	iTi, okTi := index[qTi]
	iTe, okTe := index[qTe]
	if okTi && okTe {
		exch := make([]float64, n)
		for i := 0; i < n; i++ {
			exch[i] = geo.Vpr[i] * src.QeiCoef[i]
		}
		cpl = append(cpl,
			fvm.Coupling{Row: iTi, Col: iTe, DiagCell: exch},
			fvm.Coupling{Row: iTe, Col: iTi, DiagCell: exch},
		)
	}
	return eqs, cpl
}

func (ev *evaluator) heatEquation(st *plasma.State, tCell []float64, tBound float64,
	chiFace, neFace, qCell, qeiCoef []float64, mode fvm.ConvectionMode) fvm.EquationCoeffs {

	geo := ev.geo
	n := geo.Mesh.Nx
	eq := fvm.EquationCoeffs{
		TransientCell: make([]float64, n),
		DFace:         make([]float64, n+1),
		VFace:         make([]float64, n+1),
		SourceCell:    make([]float64, n),
		SourceMatCell: make([]float64, n),
		RightBC:       tBound,
		Mode:          mode,
	}
	for i := 0; i < n; i++ {
		eq.TransientCell[i] = 1.5 * geo.Vpr[i] * st.NeCell[i] * sources.KeV20ToMJ
		eq.SourceCell[i] = geo.Vpr[i] * qCell[i]
		eq.SourceMatCell[i] = -geo.Vpr[i] * qeiCoef[i]
	}
	for j := 0; j <= n; j++ {
		eq.DFace[j] = geo.G1OverVprFace[j] * chiFace[j] * neFace[j] * sources.KeV20ToMJ
	}
	if ev.pereverzev {
		dpc := make([]float64, n+1)
		for j := 0; j <= n; j++ {
			dpc[j] = geo.G1OverVprFace[j] * ev.cfg.Solver.ChiPereverzev * neFace[j] * sources.KeV20ToMJ
		}
		// compensate against the step's starting profile
		var ref []float64
		refBound := tBound
		if sameSlice(tCell, st.TiCell) {
			ref = ev.old.TiCell
			refBound = ev.old.TiBound
		} else {
			ref = ev.old.TeCell
			refBound = ev.old.TeBound
		}
		addPereverzev(&eq, dpc, ref, refBound, geo.Dr)
	}
	return eq
}

func sameSlice(a, b []float64) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}

// addPereverzev blends an artificially large diffusivity into the
// equation together with a compensating convection chosen so the added
// flux vanishes at the reference profile. The stabilizer damps out as the
// iteration converges and never appears in reported coefficients.
func addPereverzev(eq *fvm.EquationCoeffs, dpc, refCell []float64, refBound, dr float64) {
	n := len(refCell)
	for j := 1; j <= n; j++ {
		var grad, xf float64
		if j < n {
			grad = (refCell[j] - refCell[j-1]) / dr
			xf = 0.5 * (refCell[j] + refCell[j-1])
		} else {
			grad = (refBound - refCell[n-1]) / (0.5 * dr)
			xf = refBound
		}
		if math.Abs(xf) < 1e-12 {
			continue
		}
		eq.DFace[j] += dpc[j]
		eq.VFace[j] += dpc[j] * grad / xf
	}
}

func convectionMode(name string) fvm.ConvectionMode {
	switch name {
	case config.ConvectionExplicit:
		return fvm.ConvectionExplicit
	case config.ConvectionImplicit:
		return fvm.ConvectionImplicit
	default:
		return fvm.ConvectionSemiImplicit
	}
}

// faceProfile interpolates a cell profile onto faces, holding the
// Dirichlet value at the outer face.
func faceProfile(cell []float64, bound float64) []float64 {
	n := len(cell)
	face := make([]float64, n+1)
	face[0] = cell[0]
	for j := 1; j < n; j++ {
		face[j] = 0.5 * (cell[j-1] + cell[j])
	}
	face[n] = bound
	return face
}

const mu0 = 4e-7 * math.Pi
