// Package attribute implements the named, typed, read/write attribute
// registry every component exposes (spec §3, §9 "Attribute system"). It
// wires component internal state to the data logger and to the
// power-flow-to-dynamic-simulation initialization bridge without ever
// exposing a raw pointer across a component boundary.
package attribute

import "fmt"

// Type tags the kind of value an attribute handle carries.
type Type int

const (
	Real Type = iota
	Complex
	MatrixReal
	MatrixComplex
)

func (t Type) String() string {
	switch t {
	case Real:
		return "real"
	case Complex:
		return "complex"
	case MatrixReal:
		return "matrix_real"
	case MatrixComplex:
		return "matrix_complex"
	default:
		return "unknown"
	}
}

// Flags describes the read/write capability of a handle.
type Flags uint8

const (
	Readable Flags = 1 << iota
	Writable
)

// Handle is a polymorphic reference into a component's live state. It
// never exposes the underlying pointer: callers go through Get/Set
// thunks, so a component's internal representation can change shape
// without breaking anything that merely logs or seeds it.
type Handle struct {
	Type  Type
	Flags Flags

	getReal    func() float64
	setReal    func(float64)
	getComplex func() complex128
	setComplex func(complex128)
	getMatR    func() []float64
	setMatR    func([]float64)
	getMatC    func() []complex128
	setMatC    func([]complex128)
}

// NewReal builds a read/write Real handle (read-only if set is nil,
// write-only if get is nil).
func NewReal(get func() float64, set func(float64)) Handle {
	var f Flags
	if get != nil {
		f |= Readable
	}
	if set != nil {
		f |= Writable
	}
	return Handle{Type: Real, Flags: f, getReal: get, setReal: set}
}

// NewComplex builds a Complex handle.
func NewComplex(get func() complex128, set func(complex128)) Handle {
	var f Flags
	if get != nil {
		f |= Readable
	}
	if set != nil {
		f |= Writable
	}
	return Handle{Type: Complex, Flags: f, getComplex: get, setComplex: set}
}

// NewMatrixReal builds a MatrixReal handle (flattened row-major).
func NewMatrixReal(get func() []float64, set func([]float64)) Handle {
	var f Flags
	if get != nil {
		f |= Readable
	}
	if set != nil {
		f |= Writable
	}
	return Handle{Type: MatrixReal, Flags: f, getMatR: get, setMatR: set}
}

// NewMatrixComplex builds a MatrixComplex handle (flattened row-major).
func NewMatrixComplex(get func() []complex128, set func([]complex128)) Handle {
	var f Flags
	if get != nil {
		f |= Readable
	}
	if set != nil {
		f |= Writable
	}
	return Handle{Type: MatrixComplex, Flags: f, getMatC: get, setMatC: set}
}

// GetReal reads a Real attribute.
func (h Handle) GetReal() (float64, error) {
	if h.Type != Real || h.getReal == nil {
		return 0, fmt.Errorf("attribute: not a readable real handle")
	}
	return h.getReal(), nil
}

// SetReal writes a Real attribute.
func (h Handle) SetReal(v float64) error {
	if h.Type != Real || h.setReal == nil {
		return fmt.Errorf("attribute: not a writable real handle")
	}
	h.setReal(v)
	return nil
}

// GetComplex reads a Complex attribute.
func (h Handle) GetComplex() (complex128, error) {
	if h.Type != Complex || h.getComplex == nil {
		return 0, fmt.Errorf("attribute: not a readable complex handle")
	}
	return h.getComplex(), nil
}

// SetComplex writes a Complex attribute.
func (h Handle) SetComplex(v complex128) error {
	if h.Type != Complex || h.setComplex == nil {
		return fmt.Errorf("attribute: not a writable complex handle")
	}
	h.setComplex(v)
	return nil
}

// GetMatrixReal reads a MatrixReal attribute.
func (h Handle) GetMatrixReal() ([]float64, error) {
	if h.Type != MatrixReal || h.getMatR == nil {
		return nil, fmt.Errorf("attribute: not a readable matrix_real handle")
	}
	return h.getMatR(), nil
}

// SetMatrixReal writes a MatrixReal attribute.
func (h Handle) SetMatrixReal(v []float64) error {
	if h.Type != MatrixReal || h.setMatR == nil {
		return fmt.Errorf("attribute: not a writable matrix_real handle")
	}
	h.setMatR(v)
	return nil
}

// GetMatrixComplex reads a MatrixComplex attribute.
func (h Handle) GetMatrixComplex() ([]complex128, error) {
	if h.Type != MatrixComplex || h.getMatC == nil {
		return nil, fmt.Errorf("attribute: not a readable matrix_complex handle")
	}
	return h.getMatC(), nil
}

// SetMatrixComplex writes a MatrixComplex attribute.
func (h Handle) SetMatrixComplex(v []complex128) error {
	if h.Type != MatrixComplex || h.setMatC == nil {
		return fmt.Errorf("attribute: not a writable matrix_complex handle")
	}
	h.setMatC(v)
	return nil
}

// Table is a component's named attribute registry, built once at
// construction time (spec §4.1 "Attribute registration").
type Table map[string]Handle

// New returns an empty attribute table.
func New() Table { return make(Table) }

// Names returns the table's attribute names, for logger wiring.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	return names
}
