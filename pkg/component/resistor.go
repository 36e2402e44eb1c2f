package component

import (
	"github.com/dpsimgo/corepsim/pkg/attribute"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

// Resistor is the ideal resistor exemplar: G = 1/R stamped directly, no
// time integration (spec §4.2). Supports all three domains; for EMT it
// stamps the same real conductance to all three phase rows.
type Resistor struct {
	Base
	Ohms float64

	voltageSingle complex128
	currentSingle complex128
	voltageABC    [3]float64
	currentABC    [3]float64
}

var _ Component = (*Resistor)(nil)

// NewResistor builds a 2-terminal resistor of the given domain and
// resistance in ohms.
func NewResistor(id, name string, domain topology.Domain, ohms float64) (*Resistor, error) {
	if ohms <= 0 {
		return nil, componentParamError(id, "resistance must be positive")
	}
	return &Resistor{Base: NewBase(id, name, domain), Ohms: ohms}, nil
}

func (r *Resistor) NumTerminals() int     { return 2 }
func (r *Resistor) NumVirtualNodes() int  { return 0 }
func (r *Resistor) Meta() Meta {
	return Meta{NumTerminals: 2, Domain: r.Domain()}
}

func (r *Resistor) InitializeFromNodesAndTerminals(nomFreq float64) error {
	switch r.Domain() {
	case topology.EMT:
		n1, n2 := r.Terminals()[0].Node, r.Terminals()[1].Node
		for i := 0; i < 3; i++ {
			var v1, v2 float64
			if !n1.IsGround() {
				v1 = n1.InitialVoltageABC[i]
			}
			if !n2.IsGround() {
				v2 = n2.InitialVoltageABC[i]
			}
			r.voltageABC[i] = v1 - v2
			r.currentABC[i] = r.voltageABC[i] / r.Ohms
		}
	default:
		n1, n2 := r.Terminals()[0].Node, r.Terminals()[1].Node
		var v1, v2 complex128
		if !n1.IsGround() {
			v1 = n1.InitialVoltageSingle
		}
		if !n2.IsGround() {
			v2 = n2.InitialVoltageSingle
		}
		r.voltageSingle = v1 - v2
		r.currentSingle = r.voltageSingle / complex(r.Ohms, 0)
	}
	return nil
}

func (r *Resistor) PreStep(t, dt float64) ([]RHSContribution, error) { return nil, nil }

func (r *Resistor) PostStep(sol sysmatrix.Solution) error {
	n1i, n2i := r.NodeIndex(0), r.NodeIndex(1)
	switch r.Domain() {
	case topology.EMT:
		// ABC rows are consecutive starting at the node's base index.
		for i := 0; i < 3; i++ {
			v1, v2 := 0.0, 0.0
			if n1i != topology.GroundIndex {
				v1 = sol.At(n1i + i)
			}
			if n2i != topology.GroundIndex {
				v2 = sol.At(n2i + i)
			}
			r.voltageABC[i] = v1 - v2
			r.currentABC[i] = r.voltageABC[i] / r.Ohms
		}
	default:
		var v1, v2 complex128
		if n1i != topology.GroundIndex {
			v1 = sol.AtComplex(n1i)
		}
		if n2i != topology.GroundIndex {
			v2 = sol.AtComplex(n2i)
		}
		r.voltageSingle = v1 - v2
		r.currentSingle = r.voltageSingle / complex(r.Ohms, 0)
	}
	return nil
}

func (r *Resistor) Stamp(m sysmatrix.LHS, era sysmatrix.Era) error {
	g := 1.0 / r.Ohms
	n1, n2 := r.NodeIndex(0), r.NodeIndex(1)

	stampReal := func(i1, i2 int) {
		if i1 != topology.GroundIndex {
			m.AddElement(i1, i1, g)
			if i2 != topology.GroundIndex {
				m.AddElement(i1, i2, -g)
			}
		}
		if i2 != topology.GroundIndex {
			m.AddElement(i2, i2, g)
			if i1 != topology.GroundIndex {
				m.AddElement(i2, i1, -g)
			}
		}
	}
	stampComplex := func(i1, i2 int) {
		if i1 != topology.GroundIndex {
			m.AddComplexElement(i1, i1, g, 0)
			if i2 != topology.GroundIndex {
				m.AddComplexElement(i1, i2, -g, 0)
			}
		}
		if i2 != topology.GroundIndex {
			m.AddComplexElement(i2, i2, g, 0)
			if i1 != topology.GroundIndex {
				m.AddComplexElement(i2, i1, -g, 0)
			}
		}
	}

	if r.Domain() == topology.EMT {
		for phase := 0; phase < 3; phase++ {
			a, b := n1, n2
			if a != topology.GroundIndex {
				a += phase
			}
			if b != topology.GroundIndex {
				b += phase
			}
			stampReal(a, b)
		}
		return nil
	}
	stampComplex(n1, n2)
	return nil
}

func (r *Resistor) Attributes() attribute.Table {
	t := attribute.New()
	if r.Domain() == topology.EMT {
		t["V"] = attribute.NewMatrixReal(func() []float64 { return r.voltageABC[:] }, nil)
		t["I"] = attribute.NewMatrixReal(func() []float64 { return r.currentABC[:] }, nil)
	} else {
		t["V"] = attribute.NewComplex(func() complex128 { return r.voltageSingle }, nil)
		t["I"] = attribute.NewComplex(func() complex128 { return r.currentSingle }, nil)
	}
	t["R"] = attribute.NewReal(func() float64 { return r.Ohms }, func(v float64) { r.Ohms = v })
	return t
}
