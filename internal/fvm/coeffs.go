package fvm

// ConvectionMode selects how convective flux splits between the matrix and
// the right-hand side. Explicit folds it entirely into the RHS at the
// evaluation state; implicit uses central weights in the matrix;
// semi-implicit uses upwind weights blended with the sign of the local
// velocity, which is the stable default.
type ConvectionMode int

const (
	ConvectionExplicit ConvectionMode = iota
	ConvectionImplicit
	ConvectionSemiImplicit
)

// EquationCoeffs is the semi-discrete form of one transported quantity:
//
//	TransientCell_i * dx_i/dt = (C x)_i + c_i
//
// where C collects diffusion, convection and implicit source terms and c
// the explicit sources and boundary contributions. Geometry factors are
// already folded into every array. Cell arrays have length n, face arrays
// n+1.
type EquationCoeffs struct {
	TransientCell []float64
	DFace         []float64 // diffusion coefficient on faces
	VFace         []float64 // convection velocity on faces
	SourceCell    []float64 // explicit volumetric source
	SourceMatCell []float64 // implicit source, adds to the matrix diagonal

	RightBC float64 // Dirichlet value at the outer face
	Mode    ConvectionMode
}

// Coupling adds a diagonal block linking two equations, e.g. the
// ion-electron heat exchange: equation Row gains DiagCell * x_Col.
type Coupling struct {
	Row      int
	Col      int
	DiagCell []float64
}
