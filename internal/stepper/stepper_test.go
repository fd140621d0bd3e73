package stepper

import (
	"errors"
	"math"
	"testing"

	"toksim/internal/config"
	"toksim/internal/fvm"
	"toksim/internal/geometry"
	"toksim/internal/plasma"
	"toksim/internal/transport"
)

// heatOnlyConfig produces a genuinely linear system: constant transport,
// no ion-electron exchange, density and current frozen.
func heatOnlyConfig() *config.Config {
	cfg := config.Default()
	cfg.Geometry.Nr = 12
	cfg.Equations.Density = false
	cfg.Equations.Current = false
	cfg.Sources.QeiMult = 0
	cfg.Sources.PTot = 10
	cfg.Solver.PredictorCorrector = false
	return cfg
}

func testState(geo *geometry.Geometry) *plasma.State {
	n := geo.Mesh.Nx
	st := &plasma.State{}
	st.TiCell = make([]float64, n)
	st.TeCell = make([]float64, n)
	st.NeCell = make([]float64, n)
	st.PsiCell = make([]float64, n)
	for i := 0; i < n; i++ {
		st.TiCell[i] = 10 - 9*geo.RNorm[i]
		st.TeCell[i] = 10 - 9*geo.RNorm[i]
		st.NeCell[i] = 0.8
		st.PsiCell[i] = geo.RNorm[i] * geo.RNorm[i] * 50
	}
	st.TiBound = 1
	st.TeBound = 1
	st.NeBound = 0.8
	st.PsiBound = 50
	return st
}

func maxRelDiff(a, b []float64) float64 {
	worst := 0.0
	for i := range a {
		d := math.Abs(a[i]-b[i]) / (math.Abs(b[i]) + 1e-12)
		if d > worst {
			worst = d
		}
	}
	return worst
}

func TestStepAdvancesBookkeeping(t *testing.T) {
	cfg := heatOnlyConfig()
	geo := geometry.BuildCircular(cfg.GeometryParams())
	st := testState(geo)
	st.Time = 2.5
	st.Step = 7

	next, diag, err := (&Linear{}).Step(cfg, geo, transport.Constant{}, st, 0.05)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if next.Time != 2.55 {
		t.Errorf("time = %g, want 2.55", next.Time)
	}
	if next.Step != 8 {
		t.Errorf("step = %d, want 8", next.Step)
	}
	if !diag.Converged {
		t.Error("linear step should always report converged")
	}
	if len(diag.Coeffs.ChiFaceIon) != geo.Mesh.Nx+1 {
		t.Errorf("reported chi has %d faces, want %d", len(diag.Coeffs.ChiFaceIon), geo.Mesh.Nx+1)
	}
	// input state must be untouched
	if st.Time != 2.5 || st.Step != 7 {
		t.Error("input state was mutated")
	}
}

func TestDisabledEquationsCarryThrough(t *testing.T) {
	cfg := heatOnlyConfig()
	geo := geometry.BuildCircular(cfg.GeometryParams())
	st := testState(geo)

	next, _, err := (&Linear{}).Step(cfg, geo, transport.Constant{}, st, 0.05)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	for i := range st.NeCell {
		if next.NeCell[i] != st.NeCell[i] {
			t.Fatalf("NeCell[%d] changed with density equation disabled", i)
		}
		if next.PsiCell[i] != st.PsiCell[i] {
			t.Fatalf("PsiCell[%d] changed with current equation disabled", i)
		}
	}
	if len(next.QFace) != geo.Mesh.Nx+1 {
		t.Errorf("derived q not recomputed: %d faces", len(next.QFace))
	}
}

func TestSourceFreeStepDecays(t *testing.T) {
	cfg := heatOnlyConfig()
	cfg.Sources.PTot = 0
	geo := geometry.BuildCircular(cfg.GeometryParams())
	st := testState(geo)

	next, _, err := (&Linear{}).Step(cfg, geo, transport.Constant{}, st, 0.1)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	oldMax, newMax := st.TiCell[0], next.TiCell[0]
	for i := range st.TiCell {
		oldMax = math.Max(oldMax, st.TiCell[i])
		newMax = math.Max(newMax, next.TiCell[i])
	}
	if newMax > oldMax+1e-12 {
		t.Errorf("pure diffusion raised the peak: %g -> %g", oldMax, newMax)
	}
	if !next.Positive() {
		t.Error("diffusion toward a positive boundary must keep profiles positive")
	}
}

func TestSolversAgreeOnLinearProblem(t *testing.T) {
	cfg := heatOnlyConfig()
	geo := geometry.BuildCircular(cfg.GeometryParams())
	st := testState(geo)
	model := transport.Constant{}

	ref, _, err := (&Linear{}).Step(cfg, geo, model, st, 0.05)
	if err != nil {
		t.Fatalf("linear step failed: %v", err)
	}
	newton, diag, err := (&NewtonRaphson{}).Step(cfg, geo, model, st, 0.05)
	if err != nil {
		t.Fatalf("newton step failed: %v", err)
	}
	if !diag.Converged {
		t.Errorf("newton did not converge on a linear problem: residual %g", diag.ResidualNorm)
	}
	if d := maxRelDiff(newton.TiCell, ref.TiCell); d > 1e-6 {
		t.Errorf("newton Ti deviates from direct solve by %g", d)
	}
	opt, _, err := (&Optimizer{}).Step(cfg, geo, model, st, 0.05)
	if err != nil {
		t.Fatalf("optimizer step failed: %v", err)
	}
	if d := maxRelDiff(opt.TiCell, ref.TiCell); d > 1e-4 {
		t.Errorf("optimizer Ti deviates from direct solve by %g", d)
	}
}

func TestNewtonNonConvergencePolicy(t *testing.T) {
	cfg := heatOnlyConfig()
	cfg.Solver.MaxIterations = 0 // exhaust the budget immediately
	geo := geometry.BuildCircular(cfg.GeometryParams())
	st := testState(geo)

	_, _, err := (&NewtonRaphson{}).Step(cfg, geo, transport.Constant{}, st, 0.05)
	if !errors.Is(err, plasma.ErrNonConverged) {
		t.Fatalf("reject policy: got %v, want ErrNonConverged", err)
	}
	var stepErr *plasma.StepError
	if !errors.As(err, &stepErr) {
		t.Fatal("non-convergence should carry step context")
	}

	cfg.Solver.OnNonConvergence = "accept"
	next, diag, err := (&NewtonRaphson{}).Step(cfg, geo, transport.Constant{}, st, 0.05)
	if err != nil {
		t.Fatalf("accept policy should not error: %v", err)
	}
	if diag.Converged {
		t.Error("diagnostics must still flag the non-convergence")
	}
	if next == nil {
		t.Fatal("accept policy must return a state")
	}
}

func TestPackRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Equations.Density = true
	geo := geometry.BuildCircular(cfg.GeometryParams())
	st := testState(geo)

	qs := activeQuantities(cfg)
	if len(qs) != 4 {
		t.Fatalf("expected 4 active equations, got %d", len(qs))
	}
	x := packState(qs, st)
	back := applySolution(qs, x, st)
	if maxRelDiff(back.TiCell, st.TiCell) != 0 ||
		maxRelDiff(back.NeCell, st.NeCell) != 0 ||
		maxRelDiff(back.PsiCell, st.PsiCell) != 0 {
		t.Error("pack/apply round trip altered profiles")
	}
}

func TestPereverzevFluxCancelsAtReference(t *testing.T) {
	n := 8
	dr := 1.0 / float64(n)
	ref := make([]float64, n)
	for i := range ref {
		ref[i] = 5 - 4*(float64(i)+0.5)*dr
	}
	refBound := 1.0

	eq := fvm.EquationCoeffs{
		DFace: make([]float64, n+1),
		VFace: make([]float64, n+1),
	}
	dpc := make([]float64, n+1)
	for j := range dpc {
		dpc[j] = 20
	}
	addPereverzev(&eq, dpc, ref, refBound, dr)

	for j := 1; j < n; j++ {
		grad := (ref[j] - ref[j-1]) / dr
		xf := 0.5 * (ref[j] + ref[j-1])
		flux := -eq.DFace[j]*grad + eq.VFace[j]*xf
		if math.Abs(flux) > 1e-10 {
			t.Errorf("face %d: net added flux %g, want 0", j, flux)
		}
	}
}

func TestRejectsNonPositiveResult(t *testing.T) {
	st := &plasma.State{}
	st.TiCell = []float64{1, -1}
	st.TeCell = []float64{1, 1}
	st.NeCell = []float64{1, 1}
	st.PsiCell = []float64{0, 1}
	st.TiBound, st.TeBound, st.NeBound = 1, 1, 1

	if err := validate(st); !errors.Is(err, plasma.ErrStepRejected) {
		t.Fatalf("got %v, want ErrStepRejected", err)
	}
	st.TiCell[1] = math.NaN()
	if err := validate(st); !errors.Is(err, plasma.ErrStepRejected) {
		t.Fatalf("NaN state: got %v, want ErrStepRejected", err)
	}
}
