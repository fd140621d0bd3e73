package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Geometry.Nr = 50
	cfg.Solver.Type = "newton"
	cfg.Solver.Theta = 0.5
	cfg.Transport.Model = "critical-gradient"
	cfg.TimeStep.Times = []float64{0, 0.5, 1.0}

	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Geometry.Nr != 50 || loaded.Solver.Type != "newton" || loaded.Solver.Theta != 0.5 {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
	if loaded.Transport.Model != "critical-gradient" {
		t.Errorf("transport model = %q", loaded.Transport.Model)
	}
	if len(loaded.TimeStep.Times) != 3 || loaded.TimeStep.Times[1] != 0.5 {
		t.Errorf("times = %v", loaded.TimeStep.Times)
	}
}

// Partial files override only the keys they name; everything else keeps the
// default value.
func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	content := "geometry:\n  nr: 40\nsolver:\n  type: optimizer\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Geometry.Nr != 40 {
		t.Errorf("nr = %d, want 40", cfg.Geometry.Nr)
	}
	if cfg.Solver.Type != "optimizer" {
		t.Errorf("solver = %q, want optimizer", cfg.Solver.Type)
	}
	if cfg.Geometry.Rmaj != DefaultRmaj || cfg.Solver.Theta != DefaultTheta {
		t.Errorf("defaults lost: rmaj=%g theta=%g", cfg.Geometry.Rmaj, cfg.Solver.Theta)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"nr too small", func(c *Config) { c.Geometry.Nr = 3 }},
		{"rmin not positive", func(c *Config) { c.Geometry.Rmin = 0 }},
		{"rmaj below rmin", func(c *Config) { c.Geometry.Rmaj = 1; c.Geometry.Rmin = 2 }},
		{"theta above one", func(c *Config) { c.Solver.Theta = 1.5 }},
		{"negative t_final", func(c *Config) { c.TimeStep.TFinal = -1 }},
		{"fixed dt zero", func(c *Config) { c.TimeStep.Type = "fixed"; c.TimeStep.FixedDt = 0 }},
		{"array too short", func(c *Config) { c.TimeStep.Type = "array"; c.TimeStep.Times = []float64{0} }},
		{"bad convection mode", func(c *Config) { c.Solver.ConvectionDirichletMode = "upstream" }},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestPresets(t *testing.T) {
	if GetPreset("no-such-preset") != nil {
		t.Error("unknown preset should return nil")
	}

	stiff := GetPreset("stiff")
	if stiff == nil {
		t.Fatal("stiff preset missing")
	}
	if stiff.Transport.Model != "critical-gradient" || stiff.Solver.Type != "newton" {
		t.Errorf("stiff preset wrong: %+v", stiff.Solver)
	}
	if !stiff.Solver.UsePereverzev {
		t.Error("stiff preset should enable Pereverzev stabilization")
	}
	if err := stiff.Validate(); err != nil {
		t.Errorf("stiff preset should validate: %v", err)
	}

	for _, name := range ListPresets() {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %q does not validate: %v", name, err)
		}
	}
}

func TestGeometryParams(t *testing.T) {
	cfg := Default()
	cfg.Geometry.Dir = "/custom/geo"
	p := cfg.GeometryParams()
	if p.Nr != cfg.Geometry.Nr || p.Rmaj != cfg.Geometry.Rmaj || p.Dir != "/custom/geo" {
		t.Errorf("params mapping wrong: %+v", p)
	}
}
