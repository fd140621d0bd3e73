package metrics

import (
	"toksim/internal/geometry"
	"toksim/internal/plasma"
	"toksim/internal/sim"
)

// MeanDensity accumulates the time average of the volume-averaged electron
// density over a run, in 1e20 m^-3.
type MeanDensity struct {
	name    string
	geo     *geometry.Geometry
	sum     float64
	samples int
}

func NewMeanDensity(geo *geometry.Geometry) *MeanDensity {
	return &MeanDensity{name: "mean_density_1e20", geo: geo}
}

func (m *MeanDensity) Name() string { return m.name }

func (m *MeanDensity) Observe(st *plasma.State, _ sim.StepInfo) {
	num, den := 0.0, 0.0
	for i := range st.NeCell {
		num += st.NeCell[i] * m.geo.Vpr[i]
		den += m.geo.Vpr[i]
	}
	m.sum += num / den
	m.samples++
}

func (m *MeanDensity) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanDensity) Reset() {
	m.sum = 0
	m.samples = 0
}
