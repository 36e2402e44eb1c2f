package component

import (
	"github.com/dpsimgo/corepsim/internal/consts"
	"github.com/dpsimgo/corepsim/pkg/attribute"
	"github.com/dpsimgo/corepsim/pkg/numeric"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

// Capacitor is the ideal capacitor exemplar, dual to Inductor: EMT uses the
// trapezoidal companion model, DP the carrier-shifted complex companion,
// SP the direct admittance Y=jωC (spec §4.2).
type Capacitor struct {
	Base
	Farads float64

	prevVoltageABC [3]float64
	prevCurrentABC [3]float64
	voltageABC     [3]float64
	currentABC     [3]float64

	prevVoltageSingle complex128
	prevCurrentSingle complex128
	voltageSingle     complex128
	currentSingle     complex128

	y           complex128
	lastHistory complex128
	omega       float64

	lastG          float64
	lastHistoryABC [3]float64
}

var _ Component = (*Capacitor)(nil)

// NewCapacitor builds a 2-terminal capacitor of the given domain and
// capacitance in farads.
func NewCapacitor(id, name string, domain topology.Domain, farads float64) (*Capacitor, error) {
	if farads <= 0 {
		return nil, componentParamError(id, "capacitance must be positive")
	}
	return &Capacitor{Base: NewBase(id, name, domain), Farads: farads}, nil
}

func (c *Capacitor) NumTerminals() int    { return 2 }
func (c *Capacitor) NumVirtualNodes() int { return 0 }
func (c *Capacitor) Meta() Meta           { return Meta{NumTerminals: 2, Domain: c.Domain()} }

func (c *Capacitor) InitializeFromNodesAndTerminals(nomFreq float64) error {
	switch c.Domain() {
	case topology.EMT:
		omega := consts.TwoPi * nomFreq
		n1, n2 := c.Terminals()[0].Node, c.Terminals()[1].Node
		for i := 0; i < 3; i++ {
			var v1, v2 float64
			if !n1.IsGround() {
				v1 = n1.InitialVoltageABC[i]
			}
			if !n2.IsGround() {
				v2 = n2.InitialVoltageABC[i]
			}
			c.voltageABC[i] = v1 - v2
			c.currentABC[i] = omega * c.Farads * c.voltageABC[i]
			c.prevVoltageABC[i] = c.voltageABC[i]
			c.prevCurrentABC[i] = c.currentABC[i]
		}
	default:
		omega := consts.TwoPi * nomFreq
		n1, n2 := c.Terminals()[0].Node, c.Terminals()[1].Node
		var v1, v2 complex128
		if !n1.IsGround() {
			v1 = n1.InitialVoltageSingle
		}
		if !n2.IsGround() {
			v2 = n2.InitialVoltageSingle
		}
		c.voltageSingle = v1 - v2
		c.currentSingle = complex(0, omega*c.Farads) * c.voltageSingle
		c.prevVoltageSingle = c.voltageSingle
		c.prevCurrentSingle = c.currentSingle
	}
	return nil
}

func (c *Capacitor) PreStep(t, dt float64) ([]RHSContribution, error) {
	n1, n2 := c.NodeIndex(0), c.NodeIndex(1)

	switch c.Domain() {
	case topology.EMT:
		g := numeric.CapacitorCompanion(numeric.Trapezoidal, c.Farads, dt)
		c.lastG = g
		var out []RHSContribution
		for i := 0; i < 3; i++ {
			ih := numeric.CapacitorHistoryCurrent(g, c.prevCurrentABC[i], c.prevVoltageABC[i])
			c.lastHistoryABC[i] = ih
			if n1 != topology.GroundIndex {
				out = append(out, RHSContribution{Index: n1 + i, Value: -ih})
			}
			if n2 != topology.GroundIndex {
				out = append(out, RHSContribution{Index: n2 + i, Value: ih})
			}
		}
		return out, nil
	case topology.DP:
		c.lastHistory = numeric.DPCapacitorHistory(c.Farads, c.omega, dt, c.prevCurrentSingle, c.prevVoltageSingle)
		var out []RHSContribution
		if n1 != topology.GroundIndex {
			out = append(out, RHSContribution{Index: n1, Value: -real(c.lastHistory), Imag: -imag(c.lastHistory)})
		}
		if n2 != topology.GroundIndex {
			out = append(out, RHSContribution{Index: n2, Value: real(c.lastHistory), Imag: imag(c.lastHistory)})
		}
		return out, nil
	default: // SP
		c.lastHistory = 0
		return nil, nil
	}
}

func (c *Capacitor) PostStep(sol sysmatrix.Solution) error {
	n1i, n2i := c.NodeIndex(0), c.NodeIndex(1)
	switch c.Domain() {
	case topology.EMT:
		for i := 0; i < 3; i++ {
			v1, v2 := 0.0, 0.0
			if n1i != topology.GroundIndex {
				v1 = sol.At(n1i + i)
			}
			if n2i != topology.GroundIndex {
				v2 = sol.At(n2i + i)
			}
			vd := v1 - v2
			c.voltageABC[i] = vd
			c.currentABC[i] = c.lastG*vd + c.lastHistoryABC[i]
			c.prevVoltageABC[i] = vd
			c.prevCurrentABC[i] = c.currentABC[i]
		}
	default:
		var v1, v2 complex128
		if n1i != topology.GroundIndex {
			v1 = sol.AtComplex(n1i)
		}
		if n2i != topology.GroundIndex {
			v2 = sol.AtComplex(n2i)
		}
		c.voltageSingle = v1 - v2
		c.currentSingle = c.y*c.voltageSingle + c.lastHistory
		c.prevVoltageSingle = c.voltageSingle
		c.prevCurrentSingle = c.currentSingle
	}
	return nil
}

func (c *Capacitor) Stamp(m sysmatrix.LHS, era sysmatrix.Era) error {
	n1, n2 := c.NodeIndex(0), c.NodeIndex(1)

	switch c.Domain() {
	case topology.EMT:
		g := numeric.CapacitorCompanion(numeric.Trapezoidal, c.Farads, era.Dt)
		for phase := 0; phase < 3; phase++ {
			a, b := n1, n2
			if a != topology.GroundIndex {
				a += phase
			}
			if b != topology.GroundIndex {
				b += phase
			}
			stampRealG(m, a, b, g)
		}
		return nil
	case topology.DP:
		c.omega = era.CarrierOmega
		c.y = numeric.DPCapacitorCompanion(c.Farads, era.CarrierOmega, era.Dt)
		stampComplexY(m, n1, n2, c.y)
		return nil
	default: // SP
		omega := era.CarrierOmega
		if omega == 0 {
			omega = 1
		}
		c.omega = omega
		c.y = complex(0, omega*c.Farads)
		stampComplexY(m, n1, n2, c.y)
		return nil
	}
}

func (c *Capacitor) Attributes() attribute.Table {
	t := attribute.New()
	if c.Domain() == topology.EMT {
		t["V"] = attribute.NewMatrixReal(func() []float64 { return c.voltageABC[:] }, nil)
		t["I"] = attribute.NewMatrixReal(func() []float64 { return c.currentABC[:] }, nil)
	} else {
		t["V"] = attribute.NewComplex(func() complex128 { return c.voltageSingle }, nil)
		t["I"] = attribute.NewComplex(func() complex128 { return c.currentSingle }, nil)
	}
	t["C"] = attribute.NewReal(func() float64 { return c.Farads }, func(v float64) { c.Farads = v })
	return t
}
