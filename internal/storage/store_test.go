package storage

import (
	"math"
	"testing"

	"toksim/internal/config"
	"toksim/internal/plasma"
	"toksim/internal/sim"
)

func fakeResult() *sim.Result {
	mk := func(t float64, base float64) *plasma.State {
		st := &plasma.State{}
		st.TiCell = []float64{base + 1, base + 2, base + 3}
		st.TeCell = []float64{base + 4, base + 5, base + 6}
		st.NeCell = []float64{1, 1, 1}
		st.PsiCell = []float64{0, base, 2 * base}
		st.Time = t
		return st
	}
	return &sim.Result{
		States:  []*plasma.State{mk(0, 1), mk(0.1, 2), mk(0.2, 3)},
		Steps:   []sim.StepInfo{{Dt: 0.1}, {Dt: 0.1}},
		Retries: 1,
		Metrics: map[string]float64{"stored_energy_mj": 42.5},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	result := fakeResult()

	runID, err := store.Save(cfg, result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	meta, err := store.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Solver != cfg.Solver.Type || meta.Nr != cfg.Geometry.Nr {
		t.Errorf("metadata mismatch: %+v", meta)
	}
	if meta.Steps != 2 || meta.Retries != 1 {
		t.Errorf("steps=%d retries=%d, want 2 and 1", meta.Steps, meta.Retries)
	}
	if math.Abs(meta.Metrics["stored_energy_mj"]-42.5) > 1e-12 {
		t.Errorf("metric not persisted: %v", meta.Metrics)
	}

	runs, err := store.List()
	if err != nil || len(runs) != 1 {
		t.Fatalf("list: %v, %d runs", err, len(runs))
	}
}

func TestHistoryColumnsAndProfiles(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	result := fakeResult()
	runID, err := store.Save(config.Default(), result)
	if err != nil {
		t.Fatal(err)
	}

	h, err := store.LoadHistory(runID)
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(h.Rows) != 3 {
		t.Fatalf("history has %d rows, want 3", len(h.Rows))
	}

	times, ok := h.Column("time")
	if !ok {
		t.Fatal("time column missing")
	}
	for i, want := range []float64{0, 0.1, 0.2} {
		if math.Abs(times[i]-want) > 1e-12 {
			t.Errorf("times[%d] = %g, want %g", i, times[i], want)
		}
	}

	ti := h.Profile("ti", 1)
	want := result.States[1].TiCell
	if len(ti) != len(want) {
		t.Fatalf("ti profile has %d cells, want %d", len(ti), len(want))
	}
	for i := range ti {
		if math.Abs(ti[i]-want[i]) > 1e-9 {
			t.Errorf("ti[%d] = %g, want %g", i, ti[i], want[i])
		}
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	store := New("/nonexistent/toksim-test")
	runs, err := store.List()
	if err != nil {
		t.Fatalf("missing base dir should not error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs from a missing dir", len(runs))
	}
}
