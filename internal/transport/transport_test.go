package transport

import (
	"math"
	"testing"

	"toksim/internal/config"
	"toksim/internal/geometry"
	"toksim/internal/plasma"
)

func testGeometry(cfg *config.Config) *geometry.Geometry {
	return geometry.BuildCircular(cfg.GeometryParams())
}

func flatState(n int, ti, te float64) *plasma.State {
	st := &plasma.State{}
	st.TiCell = make([]float64, n)
	st.TeCell = make([]float64, n)
	st.NeCell = make([]float64, n)
	for i := 0; i < n; i++ {
		st.TiCell[i] = ti
		st.TeCell[i] = te
		st.NeCell[i] = 0.8
	}
	st.TiBound = ti
	st.TeBound = te
	st.NeBound = 0.8
	return st
}

func TestNewUnknownModel(t *testing.T) {
	if _, err := New("bohm"); err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestConstantModelIsUniform(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.ChiIon = 1.5
	cfg.Transport.ChiEl = 2.5
	cfg.Transport.DEl = 0.3
	cfg.Transport.VEl = -0.1
	geo := testGeometry(cfg)

	c := Constant{}.Coeffs(cfg, geo, nil)
	if len(c.ChiFaceIon) != cfg.Geometry.Nr+1 {
		t.Fatalf("chi has %d faces, want %d", len(c.ChiFaceIon), cfg.Geometry.Nr+1)
	}
	for i := range c.ChiFaceIon {
		if c.ChiFaceIon[i] != 1.5 || c.ChiFaceEl[i] != 2.5 || c.DFaceEl[i] != 0.3 || c.VFaceEl[i] != -0.1 {
			t.Fatalf("face %d not uniform: %+v", i, c)
		}
	}
}

func TestCriticalGradientFloorOnFlatProfile(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.Model = "critical-gradient"
	geo := testGeometry(cfg)
	st := flatState(cfg.Geometry.Nr, 5.0, 5.0)

	c := CriticalGradient{}.Coeffs(cfg, geo, st)
	for i, chi := range c.ChiFaceIon {
		if chi != cfg.Transport.ChiMin {
			t.Fatalf("flat profile should sit at the chi floor, face %d has %g", i, chi)
		}
	}
}

func TestCriticalGradientGrowsAboveThreshold(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.CritGrad = 2.0
	cfg.Transport.Stiffness = 1.0
	geo := testGeometry(cfg)

	nr := cfg.Geometry.Nr
	st := flatState(nr, 1, 1)
	for i := 0; i < nr; i++ {
		st.TiCell[i] = 10 - 9*geo.RNorm[i]
	}
	st.TiBound = 1

	c := CriticalGradient{}.Coeffs(cfg, geo, st)

	// interior face gradient check against the closed form
	j := nr / 2
	grad := (st.TiCell[j] - st.TiCell[j-1]) / geo.Dr
	tf := 0.5 * (st.TiCell[j] + st.TiCell[j-1])
	rlt := -geo.Rmaj * grad / tf
	want := cfg.Transport.ChiMin + cfg.Transport.Stiffness*(rlt-cfg.Transport.CritGrad)
	if rlt <= cfg.Transport.CritGrad {
		t.Fatalf("test profile is not above threshold (R/L_T = %g)", rlt)
	}
	if math.Abs(c.ChiFaceIon[j]-want) > 1e-12 {
		t.Errorf("chi[%d] = %g, want %g", j, c.ChiFaceIon[j], want)
	}

	// flat electrons stay on the floor
	for i, chi := range c.ChiFaceEl {
		if chi != cfg.Transport.ChiMin {
			t.Fatalf("electron channel should stay at floor, face %d has %g", i, chi)
		}
	}
}

func TestCriticalGradientClampsToMax(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.CritGrad = 0.1
	cfg.Transport.Stiffness = 1e6
	cfg.Transport.ChiMax = 40.0
	geo := testGeometry(cfg)

	nr := cfg.Geometry.Nr
	st := flatState(nr, 1, 1)
	for i := 0; i < nr; i++ {
		st.TiCell[i] = 10 - 9*geo.RNorm[i]
	}
	st.TiBound = 1

	c := CriticalGradient{}.Coeffs(cfg, geo, st)
	for i := 1; i < len(c.ChiFaceIon); i++ {
		if c.ChiFaceIon[i] > cfg.Transport.ChiMax {
			t.Fatalf("chi[%d] = %g exceeds the clamp %g", i, c.ChiFaceIon[i], cfg.Transport.ChiMax)
		}
	}
	if c.ChiFaceIon[nr/2] != cfg.Transport.ChiMax {
		t.Errorf("stiff mid-radius face should saturate at the clamp, got %g", c.ChiFaceIon[nr/2])
	}
}

func TestMaxChi(t *testing.T) {
	c := Coeffs{
		ChiFaceIon: []float64{1, 7, 2},
		ChiFaceEl:  []float64{3, 4, 5},
	}
	if got := c.MaxChi(); got != 7 {
		t.Errorf("MaxChi = %g, want 7", got)
	}
	if got := (Coeffs{}).MaxChi(); got != 0 {
		t.Errorf("empty MaxChi = %g, want 0", got)
	}
}
