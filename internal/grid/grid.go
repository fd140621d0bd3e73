package grid

import "fmt"

// Grid1D is a uniform 1-D mesh of cells with faces. Faces span [0, Nx*Dx],
// cell centers sit at the midpoints between adjacent faces. Treat as
// immutable once constructed.
type Grid1D struct {
	Nx          int
	Dx          float64
	FaceCenters []float64
	CellCenters []float64
}

// Construct builds a Grid1D with nx cells of width dx.
func Construct(nx int, dx float64) Grid1D {
	faces := make([]float64, nx+1)
	cells := make([]float64, nx)
	for i := 0; i <= nx; i++ {
		faces[i] = float64(i) * dx
	}
	for i := 0; i < nx; i++ {
		cells[i] = (float64(i) + 0.5) * dx
	}
	return Grid1D{Nx: nx, Dx: dx, FaceCenters: faces, CellCenters: cells}
}

// FaceToCell infers cell values from face values by midpoint averaging.
// Input must have length n+1; output has length n.
func FaceToCell(face []float64) []float64 {
	cell := make([]float64, len(face)-1)
	for i := range cell {
		cell[i] = 0.5 * (face[i] + face[i+1])
	}
	return cell
}

// CellToFace infers face values from cell values: midpoint averages on
// interior faces, linear extrapolation at the two boundary faces.
func CellToFace(cell []float64) []float64 {
	n := len(cell)
	face := make([]float64, n+1)
	for i := 1; i < n; i++ {
		face[i] = 0.5 * (cell[i-1] + cell[i])
	}
	if n >= 2 {
		face[0] = cell[0] - 0.5*(cell[1]-cell[0])
		face[n] = cell[n-1] + 0.5*(cell[n-1]-cell[n-2])
	} else if n == 1 {
		face[0] = cell[0]
		face[n] = cell[0]
	}
	return face
}

// Validate checks the grid invariants. Construct always produces a valid
// grid; this exists for grids rebuilt from stored runs.
func (g Grid1D) Validate() error {
	if g.Nx <= 0 || g.Dx <= 0 {
		return fmt.Errorf("grid: nx and dx must be positive, got nx=%d dx=%g", g.Nx, g.Dx)
	}
	if len(g.FaceCenters) != g.Nx+1 || len(g.CellCenters) != g.Nx {
		return fmt.Errorf("grid: inconsistent sizes: %d faces, %d cells for nx=%d",
			len(g.FaceCenters), len(g.CellCenters), g.Nx)
	}
	for i := 1; i < len(g.FaceCenters); i++ {
		if g.FaceCenters[i] <= g.FaceCenters[i-1] {
			return fmt.Errorf("grid: face centers not strictly increasing at index %d", i)
		}
	}
	return nil
}
