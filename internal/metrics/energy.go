package metrics

import (
	"gonum.org/v1/gonum/floats"

	"toksim/internal/geometry"
	"toksim/internal/plasma"
	"toksim/internal/sim"
	"toksim/internal/sources"
)

// StoredEnergy tracks the thermal stored energy W = integral of
// 1.5 * ne * (Ti + Te) over the plasma volume, in MJ. Value reports the
// latest observation, which at the end of a run is the final stored energy.
type StoredEnergy struct {
	name string
	geo  *geometry.Geometry
	last float64
}

func NewStoredEnergy(geo *geometry.Geometry) *StoredEnergy {
	return &StoredEnergy{name: "stored_energy_mj", geo: geo}
}

func (e *StoredEnergy) Name() string { return e.name }

func (e *StoredEnergy) Observe(st *plasma.State, _ sim.StepInfo) {
	n := len(st.TiCell)
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		density := 1.5 * st.NeCell[i] * (st.TiCell[i] + st.TeCell[i]) * sources.KeV20ToMJ
		w[i] = density * e.geo.Vpr[i] * e.geo.Dr
	}
	e.last = floats.Sum(w)
}

func (e *StoredEnergy) Value() float64 { return e.last }

func (e *StoredEnergy) Reset() { e.last = 0 }
