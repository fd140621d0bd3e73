package plasma

import "math"

// Profiles holds the directly evolved cell-centered quantities and their
// outer-edge Dirichlet boundary values. Temperatures in keV, density in
// units of 1e20 m^-3, poloidal flux in Wb.
type Profiles struct {
	TiCell  []float64
	TeCell  []float64
	NeCell  []float64
	PsiCell []float64

	TiBound  float64
	TeBound  float64
	NeBound  float64
	PsiBound float64
}

// State is the full evolving plasma state. QFace, SFace and JtotCell are
// derived from PsiCell on every accepted step; the rest advances only
// through the stepper. States are never mutated in place: each accepted
// step produces a fresh copy, which keeps rollback on rejected steps safe.
type State struct {
	Profiles

	QFace    []float64 // safety factor
	SFace    []float64 // magnetic shear
	JtotCell []float64 // toroidal current density

	Time float64
	Step int
}

func cloneSlice(s []float64) []float64 {
	if s == nil {
		return nil
	}
	c := make([]float64, len(s))
	copy(c, s)
	return c
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.TiCell = cloneSlice(s.TiCell)
	c.TeCell = cloneSlice(s.TeCell)
	c.NeCell = cloneSlice(s.NeCell)
	c.PsiCell = cloneSlice(s.PsiCell)
	c.QFace = cloneSlice(s.QFace)
	c.SFace = cloneSlice(s.SFace)
	c.JtotCell = cloneSlice(s.JtotCell)
	return &c
}

// IsValid reports whether every profile is free of NaN and Inf.
func (s *State) IsValid() bool {
	for _, profile := range [][]float64{s.TiCell, s.TeCell, s.NeCell, s.PsiCell} {
		for _, v := range profile {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Positive reports whether temperatures and density are strictly positive
// everywhere, including the boundary values.
func (s *State) Positive() bool {
	for _, profile := range [][]float64{s.TiCell, s.TeCell, s.NeCell} {
		for _, v := range profile {
			if v <= 0 {
				return false
			}
		}
	}
	return s.TiBound > 0 && s.TeBound > 0 && s.NeBound > 0
}
