package fvm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"toksim/internal/plasma"
)

// Discretize turns one equation's coefficients into its spatial operator
// (C, c) on a grid with cell spacing dr. The inner face carries no flux
// (Neumann), the outer face holds the Dirichlet value through a half-cell
// ghost flux. xEval supplies the profile used when convection is explicit.
func Discretize(eq EquationCoeffs, dr float64, xEval []float64) (Tridiag, []float64) {
	n := len(eq.TransientCell)
	tri := newTridiag(n)
	c := make([]float64, n)
	dr2 := dr * dr

	// diffusion across interior faces
	for j := 1; j < n; j++ {
		d := eq.DFace[j] / dr2
		tri.Diag[j-1] -= d
		tri.Upper[j-1] += d
		tri.Diag[j] -= d
		tri.Lower[j] += d
	}
	// outer Dirichlet face: half-cell distance to the boundary value
	dOut := 2 * eq.DFace[n] / dr2
	tri.Diag[n-1] -= dOut
	c[n-1] += dOut * eq.RightBC

	// convection
	switch eq.Mode {
	case ConvectionExplicit:
		for i := 0; i < n; i++ {
			c[i] -= (faceFlux(eq, xEval, i+1) - faceFlux(eq, xEval, i)) / dr
		}
	default:
		for j := 1; j < n; j++ {
			v := eq.VFace[j] / dr
			wl, wr := convWeights(eq.Mode, eq.VFace[j])
			tri.Diag[j-1] -= v * wl
			tri.Upper[j-1] -= v * wr
			tri.Lower[j] += v * wl
			tri.Diag[j] += v * wr
		}
		// outer face carries the known boundary value
		c[n-1] -= eq.VFace[n] * eq.RightBC / dr
	}

	// sources
	for i := 0; i < n; i++ {
		tri.Diag[i] += eq.SourceMatCell[i]
		c[i] += eq.SourceCell[i]
	}
	return tri, c
}

// faceFlux evaluates the convective flux at face j from a given profile.
// The inner face is flux-free; the outer face uses the boundary value.
func faceFlux(eq EquationCoeffs, x []float64, j int) float64 {
	n := len(x)
	switch {
	case j == 0:
		return 0
	case j == n:
		return eq.VFace[n] * eq.RightBC
	default:
		return eq.VFace[j] * 0.5 * (x[j-1] + x[j])
	}
}

func convWeights(mode ConvectionMode, v float64) (wl, wr float64) {
	if mode == ConvectionImplicit {
		return 0.5, 0.5
	}
	// upwind blended with the velocity sign
	switch {
	case v > 0:
		return 1, 0
	case v < 0:
		return 0, 1
	default:
		return 0.5, 0.5
	}
}

// Assemble builds the theta-weighted block linear system for one time step:
//
//	(T_new/dt - theta*C_new) x_new =
//	    (T_old/dt + (1-theta)*C_old) x_old + theta*c_new + (1-theta)*c_old
//
// eqsNew/cplNew are evaluated at the nonlinear iteration's evaluation state
// (xEval, flattened per equation), eqsOld/cplOld at the accepted old state.
func Assemble(
	eqsNew, eqsOld []EquationCoeffs,
	cplNew, cplOld []Coupling,
	xOld, xEval []float64,
	dr, dt, theta float64,
) (*mat.Dense, *mat.VecDense) {
	k := len(eqsNew)
	n := len(eqsNew[0].TransientCell)
	size := k * n

	a := mat.NewDense(size, size, nil)
	b := mat.NewVecDense(size, nil)

	for e := 0; e < k; e++ {
		triNew, cNew := Discretize(eqsNew[e], dr, xEval[e*n:(e+1)*n])
		triOld, cOld := Discretize(eqsOld[e], dr, xOld[e*n:(e+1)*n])
		oldApplied := triOld.Apply(xOld[e*n : (e+1)*n])

		for i := 0; i < n; i++ {
			row := e*n + i
			a.Set(row, row, eqsNew[e].TransientCell[i]/dt-theta*triNew.Diag[i])
			if i > 0 {
				a.Set(row, row-1, -theta*triNew.Lower[i])
			}
			if i < n-1 {
				a.Set(row, row+1, -theta*triNew.Upper[i])
			}
			rhs := eqsOld[e].TransientCell[i]/dt*xOld[row] +
				(1-theta)*(oldApplied[i]+cOld[i]) +
				theta*cNew[i]
			b.SetVec(row, rhs)
		}
	}

	// off-diagonal coupling blocks (ion-electron heat exchange)
	for _, cp := range cplNew {
		for i := 0; i < n; i++ {
			row := cp.Row*n + i
			col := cp.Col*n + i
			a.Set(row, col, a.At(row, col)-theta*cp.DiagCell[i])
		}
	}
	for _, cp := range cplOld {
		for i := 0; i < n; i++ {
			row := cp.Row*n + i
			col := cp.Col*n + i
			b.SetVec(row, b.AtVec(row)+(1-theta)*cp.DiagCell[i]*xOld[col])
		}
	}
	return a, b
}

// Solve factorizes A and solves A x = b, reporting a singular or
// ill-conditioned system as a fatal solver error.
func Solve(a *mat.Dense, b *mat.VecDense) ([]float64, error) {
	var lu mat.LU
	lu.Factorize(a)
	x := mat.NewVecDense(b.Len(), nil)
	if err := lu.SolveVecTo(x, false, b); err != nil {
		return nil, fmt.Errorf("%w: %v", plasma.ErrSingularSystem, err)
	}
	out := make([]float64, x.Len())
	copy(out, x.RawVector().Data)
	return out, nil
}

// Residual computes r = A x - b for a candidate solution.
func Residual(a *mat.Dense, b *mat.VecDense, x []float64) []float64 {
	size := b.Len()
	xv := mat.NewVecDense(size, x)
	r := mat.NewVecDense(size, nil)
	r.MulVec(a, xv)
	out := make([]float64, size)
	for i := 0; i < size; i++ {
		out[i] = r.AtVec(i) - b.AtVec(i)
	}
	return out
}
