package plasma

import (
	"math"
	"testing"

	"toksim/internal/geometry"
)

func testState(n int) *State {
	st := &State{}
	st.TiCell = make([]float64, n)
	st.TeCell = make([]float64, n)
	st.NeCell = make([]float64, n)
	st.PsiCell = make([]float64, n)
	for i := 0; i < n; i++ {
		st.TiCell[i] = 5
		st.TeCell[i] = 5
		st.NeCell[i] = 0.8
		st.PsiCell[i] = float64(i)
	}
	st.TiBound = 1
	st.TeBound = 1
	st.NeBound = 0.5
	return st
}

func TestCloneIndependence(t *testing.T) {
	st := testState(10)
	c := st.Clone()
	c.TiCell[3] = 99
	c.Time = 7

	if st.TiCell[3] == 99 {
		t.Error("clone shares TiCell backing array")
	}
	if st.Time == 7 {
		t.Error("clone shares scalar fields")
	}
}

func TestIsValid(t *testing.T) {
	st := testState(5)
	if !st.IsValid() {
		t.Error("clean state reported invalid")
	}
	st.TeCell[2] = math.NaN()
	if st.IsValid() {
		t.Error("NaN not detected")
	}
	st.TeCell[2] = math.Inf(1)
	if st.IsValid() {
		t.Error("Inf not detected")
	}
}

func TestPositive(t *testing.T) {
	st := testState(5)
	if !st.Positive() {
		t.Error("positive state reported non-positive")
	}
	st.NeCell[0] = 0
	if st.Positive() {
		t.Error("zero density not detected")
	}
	st.NeCell[0] = 0.8
	st.TiBound = -1
	if st.Positive() {
		t.Error("negative boundary not detected")
	}
}

// A parabolic flux psi = a*rho^2 has dpsi/drho = 2a*rho, so q =
// 2*pi*B0*rho / (2a*rho) is radially constant, including the on-axis limit.
func TestSafetyFactorParabolicFlux(t *testing.T) {
	geo := geometry.BuildCircular(geometry.Params{Nr: 20, Rmaj: 6.2, Rmin: 2.0, B0: 5.3})
	a := 3.0
	psi := make([]float64, 20)
	for i, r := range geo.R {
		psi[i] = a * r * r
	}

	q := SafetyFactor(geo, psi)
	want := math.Pi * geo.B0 / a
	// the edge face uses a one-sided gradient and is only approximate
	for i := 0; i < len(q)-1; i++ {
		if math.Abs(q[i]-want)/want > 1e-9 {
			t.Fatalf("q[%d] = %g, want %g", i, q[i], want)
		}
	}
	if math.Abs(q[len(q)-1]-want)/want > 0.1 {
		t.Errorf("edge q = %g, want near %g", q[len(q)-1], want)
	}
}

func TestMagneticShearVanishesForFlatQ(t *testing.T) {
	geo := geometry.BuildCircular(geometry.Params{Nr: 15, Rmaj: 6.2, Rmin: 2.0, B0: 5.3})
	q := make([]float64, 16)
	for i := range q {
		q[i] = 2.5
	}
	for i, s := range MagneticShear(geo, q) {
		if math.Abs(s) > 1e-12 {
			t.Fatalf("shear[%d] = %g for flat q", i, s)
		}
	}
}

// Summing j*dV over all cells must reproduce the enclosed current at the
// edge face, since the current density is defined as its volume derivative.
func TestCurrentDensityIsConsistentWithEnclosedCurrent(t *testing.T) {
	geo := geometry.BuildCircular(geometry.Params{Nr: 20, Rmaj: 6.2, Rmin: 2.0, B0: 5.3})
	psi := make([]float64, 20)
	for i, r := range geo.R {
		psi[i] = 10 * r * r / (1 + r)
	}

	j := CurrentDensity(geo, psi)
	sum := 0.0
	for i := range j {
		sum += j[i] * (geo.VolumeFace[i+1] - geo.VolumeFace[i])
	}

	grad := PsiFaceGrad(geo, psi)
	n := len(psi)
	iEdge := geo.G2Face[n] * grad[n] / mu0
	want := 2 * math.Pi * geo.Rmaj * iEdge
	if math.Abs(sum-want)/math.Abs(want) > 1e-9 {
		t.Errorf("integrated j = %g, want %g", sum, want)
	}
}

func TestUpdateDerivedKeepsPrimaryProfiles(t *testing.T) {
	geo := geometry.BuildCircular(geometry.Params{Nr: 10, Rmaj: 6.2, Rmin: 2.0, B0: 5.3})
	st := testState(10)
	for i, r := range geo.R {
		st.PsiCell[i] = 2 * r * r
	}

	out := UpdateDerived(geo, st)
	if out == st {
		t.Fatal("UpdateDerived must return a copy")
	}
	for i := range st.TiCell {
		if out.TiCell[i] != st.TiCell[i] || out.PsiCell[i] != st.PsiCell[i] {
			t.Fatalf("primary profile changed at cell %d", i)
		}
	}
	if len(out.QFace) != 11 || len(out.SFace) != 11 || len(out.JtotCell) != 10 {
		t.Errorf("derived lengths wrong: q=%d s=%d j=%d", len(out.QFace), len(out.SFace), len(out.JtotCell))
	}
}
