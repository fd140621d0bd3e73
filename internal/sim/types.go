package sim

import "toksim/internal/plasma"

// StepInfo summarizes one accepted step for observers and metrics.
type StepInfo struct {
	Dt           float64
	Iterations   int
	ResidualNorm float64
	Converged    bool
	Retries      int
}

// Metric accumulates a scalar over the run.
type Metric interface {
	Name() string
	Observe(st *plasma.State, info StepInfo)
	Value() float64
	Reset()
}

// Observer is notified after every accepted step with a state it may keep.
type Observer interface {
	OnStep(st *plasma.State, info StepInfo)
}

// Result is the ordered history of a run plus accumulated diagnostics.
// States[0] is the initial state; Steps[i] describes the step that produced
// States[i+1].
type Result struct {
	States []*plasma.State
	Steps  []StepInfo

	Retries int
	Metrics map[string]float64
}

// FinalState returns the last state of the history.
func (r *Result) FinalState() *plasma.State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}

// Times extracts the time axis of the history.
func (r *Result) Times() []float64 {
	ts := make([]float64, len(r.States))
	for i, st := range r.States {
		ts[i] = st.Time
	}
	return ts
}
