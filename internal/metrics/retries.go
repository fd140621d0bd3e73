package metrics

import (
	"toksim/internal/plasma"
	"toksim/internal/sim"
)

// Retries counts how many rejected attempts the run needed in total. A
// nonzero value flags a configuration running close to its stability edge.
type Retries struct {
	name  string
	total int
}

func NewRetries() *Retries {
	return &Retries{name: "retries"}
}

func (r *Retries) Name() string { return r.name }

func (r *Retries) Observe(_ *plasma.State, info sim.StepInfo) {
	r.total += info.Retries
}

func (r *Retries) Value() float64 { return float64(r.total) }

func (r *Retries) Reset() { r.total = 0 }
