package fvm

// Tridiag is one equation's spatial operator in tridiagonal form: Lower[i]
// multiplies x[i-1], Diag[i] multiplies x[i], Upper[i] multiplies x[i+1].
type Tridiag struct {
	Lower []float64
	Diag  []float64
	Upper []float64
}

func newTridiag(n int) Tridiag {
	return Tridiag{
		Lower: make([]float64, n),
		Diag:  make([]float64, n),
		Upper: make([]float64, n),
	}
}

// Apply computes y = C x.
func (t Tridiag) Apply(x []float64) []float64 {
	n := len(t.Diag)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		y[i] = t.Diag[i] * x[i]
		if i > 0 {
			y[i] += t.Lower[i] * x[i-1]
		}
		if i < n-1 {
			y[i] += t.Upper[i] * x[i+1]
		}
	}
	return y
}
