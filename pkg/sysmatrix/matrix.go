// Package sysmatrix holds the per-era system conductance matrix: assembled
// once per (Δt, topology-generation) pair from component stamps,
// factorized once, and reused across time steps with only the
// right-hand-side vector changing (spec §3 "SystemMatrix era", §4.7).
package sysmatrix

import (
	"github.com/edp1096/sparse"

	"github.com/dpsimgo/corepsim/simerr"
)

// LHS is the stamp-time view of the system matrix: component Stamp
// implementations only ever add conductance, never read back a solved
// value (spec §4.1 item 5 "Stamp (LHS)").
type LHS interface {
	AddElement(i, j int, value float64)
	AddComplexElement(i, j int, real, imag float64)
}

// RHS is the pre-step-time view: component PreStep implementations
// accumulate history-source / forcing contributions here.
type RHS interface {
	AddRHS(i int, value float64)
	AddComplexRHS(i int, real, imag float64)
}

// Solution is the post-step-time view: component PostStep implementations
// read back solved node voltages here.
type Solution interface {
	At(i int) float64
	AtComplex(i int) complex128
}

// Matrix is the concrete system matrix: a real or complex sparse
// conductance matrix plus its RHS/solution vectors, backed by
// github.com/edp1096/sparse (the teacher's own dependency).
type Matrix struct {
	Size      int
	IsComplex bool

	sp           *sparse.Matrix
	rhs          []float64
	rhsImag      []float64
	solution     []float64
	solutionImag []float64
	config       *sparse.Configuration

	factored bool
}

// New allocates a system matrix of the given size (number of scalar
// unknowns). isComplex selects the SP/DP complex-admittance form; the EMT
// real trapezoidal form uses isComplex=false.
func New(size int, isComplex bool) (*Matrix, error) {
	config := &sparse.Configuration{
		Real:           true,
		Complex:        isComplex,
		Expandable:     true,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
	}

	sp, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, simerr.Matrixf("creating sparse matrix: %w", err)
	}

	vecSize := size + 1
	vecSizeImag := size + 1
	if isComplex {
		vecSize *= 2
		vecSizeImag = 1
	}

	return &Matrix{
		Size:         size,
		IsComplex:    isComplex,
		sp:           sp,
		config:       config,
		rhs:          make([]float64, vecSize),
		rhsImag:      make([]float64, vecSizeImag),
		solution:     make([]float64, vecSize),
		solutionImag: make([]float64, vecSizeImag),
	}, nil
}

// Reset clears the matrix and RHS, ready for a fresh Stamp pass (called
// once per era, not once per step — spec §3 "the system matrix within an
// era is constant").
func (m *Matrix) Reset() {
	m.sp.Clear()
	m.ClearRHS()
	m.factored = false
}

// ClearRHS zeroes only the RHS vector, used between steps within the same
// era (the LHS stays stamped and factorized).
func (m *Matrix) ClearRHS() {
	for i := range m.rhs {
		m.rhs[i] = 0
	}
	for i := range m.rhsImag {
		m.rhsImag[i] = 0
	}
}

func (m *Matrix) bounded(i int) bool { return i >= 1 && i <= m.Size }

// AddElement implements LHS for the real (EMT) form.
func (m *Matrix) AddElement(i, j int, value float64) {
	if !m.bounded(i) || !m.bounded(j) {
		return
	}
	m.sp.GetElement(int64(i), int64(j)).Real += value
}

// AddComplexElement implements LHS for the complex (SP/DP) form.
func (m *Matrix) AddComplexElement(i, j int, real, imag float64) {
	if !m.bounded(i) || !m.bounded(j) {
		return
	}
	e := m.sp.GetElement(int64(i), int64(j))
	e.Real += real
	e.Imag += imag
}

// AddRHS implements RHS for the real form.
func (m *Matrix) AddRHS(i int, value float64) {
	if !m.bounded(i) {
		return
	}
	m.rhs[i] += value
}

// AddComplexRHS implements RHS for the complex form.
func (m *Matrix) AddComplexRHS(i int, real, imag float64) {
	if !m.bounded(i) {
		return
	}
	m.rhs[2*i] += real
	m.rhs[2*i+1] += imag
}

// At implements Solution for the real form.
func (m *Matrix) At(i int) float64 {
	if !m.bounded(i) || i >= len(m.solution) {
		return 0
	}
	return m.solution[i]
}

// AtComplex implements Solution for the complex form. The underlying
// sparse solver returns a flat solution vector with the imaginary half
// offset by Size (mirrors github.com/edp1096/sparse's own convention, see
// the teacher's CircuitMatrix.GetComplexSolution).
func (m *Matrix) AtComplex(i int) complex128 {
	if !m.bounded(i) {
		return 0
	}
	return complex(m.solution[i], m.solution[i+m.Size])
}

// Factor factorizes the currently stamped LHS. Called once per era; the
// solver re-solves with Solve for each subsequent step without refactoring.
func (m *Matrix) Factor() error {
	if err := m.sp.Factor(); err != nil {
		return simerr.Matrixf("factorization failed (singular or near-singular topology): %w", err)
	}
	m.factored = true
	return nil
}

// Solve solves LHS*x=RHS using the cached factorization, factoring the
// matrix first if it hasn't been factored yet in this era.
func (m *Matrix) Solve() error {
	if !m.factored {
		if err := m.Factor(); err != nil {
			return err
		}
	}

	var err error
	if m.IsComplex {
		m.solution, m.solutionImag, err = m.sp.SolveComplex(m.rhs, m.rhsImag)
	} else {
		m.solution, err = m.sp.Solve(m.rhs)
	}
	if err != nil {
		return simerr.Matrixf("solve failed: %w", err)
	}
	return nil
}

// Destroy releases the underlying sparse matrix's native resources.
func (m *Matrix) Destroy() {
	if m.sp != nil {
		m.sp.Destroy()
	}
}
