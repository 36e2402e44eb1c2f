// Package numeric provides the dense/complex matrix primitives, Park
// transform, and companion-model coefficient tables shared by every
// component's stamp/pre-step/post-step implementation. The sparse nodal
// system itself lives in pkg/sysmatrix; this package is for the small,
// dense per-component kernels (e.g. the synchronous generator's 7x7
// inductance matrix) where a sparse solver is the wrong tool.
package numeric

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// InvertReal returns the inverse of a square real matrix given in
// row-major order, backed by gonum's LU factorization. Used by the
// synchronous generator to turn its inductance matrix L into the
// reactance matrix L^-1 once at construction (spec §4.4).
func InvertReal(rows int, data []float64) ([]float64, error) {
	a := mat.NewDense(rows, rows, append([]float64(nil), data...))
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil, fmt.Errorf("matrix inversion failed: %w", err)
	}
	out := make([]float64, rows*rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < rows; j++ {
			out[i*rows+j] = inv.At(i, j)
		}
	}
	return out, nil
}

// MulVec multiplies a row-major square matrix by a column vector.
func MulVec(rows int, m []float64, v []float64) []float64 {
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < rows; j++ {
			sum += m[i*rows+j] * v[j]
		}
		out[i] = sum
	}
	return out
}

// SolveComplex3 solves a 3x3 complex linear system Ax=b via gonum's dense
// complex LU support layered over the real/imag split (gonum's mat package
// has no native complex Dense type, so this composes two real solves via
// the standard block-matrix embedding of a complex system into a real
// one: [[Re,-Im],[Im,Re]] * [xRe;xIm] = [bRe;bIm]). No component calls
// it: the three-winding transformer stamps its star node directly.
func SolveComplex3(a [3][3]complex128, b [3]complex128) ([3]complex128, error) {
	n := 3
	full := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			re, im := real(a[i][j]), imag(a[i][j])
			full.Set(i, j, re)
			full.Set(i, j+n, -im)
			full.Set(i+n, j, im)
			full.Set(i+n, j+n, re)
		}
	}
	rhs := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		rhs.SetVec(i, real(b[i]))
		rhs.SetVec(i+n, imag(b[i]))
	}

	var x mat.VecDense
	if err := x.SolveVec(full, rhs); err != nil {
		return [3]complex128{}, fmt.Errorf("complex solve failed: %w", err)
	}

	var out [3]complex128
	for i := 0; i < n; i++ {
		out[i] = complex(x.AtVec(i), x.AtVec(i+n))
	}
	return out, nil
}
