package component

import (
	"github.com/dpsimgo/corepsim/internal/consts"
	"github.com/dpsimgo/corepsim/pkg/attribute"
	"github.com/dpsimgo/corepsim/pkg/numeric"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

// Inductor is the ideal inductor exemplar. EMT uses the trapezoidal
// companion model (conductance + history current source); DP uses the
// carrier-shifted complex companion form; SP uses the direct admittance
// Y=1/(jωL) with no time integration (spec §4.2).
type Inductor struct {
	Base
	Henries float64

	// EMT per-phase history state.
	prevVoltageABC [3]float64
	prevCurrentABC [3]float64
	voltageABC     [3]float64
	currentABC     [3]float64

	// DP/SP envelope history state.
	prevVoltageSingle complex128
	prevCurrentSingle complex128
	voltageSingle     complex128
	currentSingle     complex128

	// y and lastHistory are the admittance and (DP-only) history term
	// computed at the most recent Stamp/PreStep, cached so PostStep can
	// recover the branch current without re-deriving era parameters.
	y           complex128
	lastHistory complex128
	omega       float64

	lastG          float64
	lastHistoryABC [3]float64
}

var _ Component = (*Inductor)(nil)

// NewInductor builds a 2-terminal inductor of the given domain and
// inductance in henries.
func NewInductor(id, name string, domain topology.Domain, henries float64) (*Inductor, error) {
	if henries <= 0 {
		return nil, componentParamError(id, "inductance must be positive")
	}
	return &Inductor{Base: NewBase(id, name, domain), Henries: henries}, nil
}

func (l *Inductor) NumTerminals() int    { return 2 }
func (l *Inductor) NumVirtualNodes() int { return 0 }
func (l *Inductor) Meta() Meta           { return Meta{NumTerminals: 2, Domain: l.Domain()} }

func (l *Inductor) InitializeFromNodesAndTerminals(nomFreq float64) error {
	// Steady state: current through the inductor is whatever the
	// terminal voltages already imply at nominal frequency, matching
	// spec §4.1 item 2's "physically consistent steady state" contract.
	switch l.Domain() {
	case topology.EMT:
		omega := consts.TwoPi * nomFreq
		n1, n2 := l.Terminals()[0].Node, l.Terminals()[1].Node
		for i := 0; i < 3; i++ {
			var v1, v2 float64
			if !n1.IsGround() {
				v1 = n1.InitialVoltageABC[i]
			}
			if !n2.IsGround() {
				v2 = n2.InitialVoltageABC[i]
			}
			l.voltageABC[i] = v1 - v2
			if omega > 0 {
				l.currentABC[i] = l.voltageABC[i] / (omega * l.Henries)
			}
			l.prevVoltageABC[i] = l.voltageABC[i]
			l.prevCurrentABC[i] = l.currentABC[i]
		}
	default:
		omega := consts.TwoPi * nomFreq
		n1, n2 := l.Terminals()[0].Node, l.Terminals()[1].Node
		var v1, v2 complex128
		if !n1.IsGround() {
			v1 = n1.InitialVoltageSingle
		}
		if !n2.IsGround() {
			v2 = n2.InitialVoltageSingle
		}
		l.voltageSingle = v1 - v2
		if omega > 0 {
			l.currentSingle = l.voltageSingle / complex(0, omega*l.Henries)
		}
		l.prevVoltageSingle = l.voltageSingle
		l.prevCurrentSingle = l.currentSingle
	}
	return nil
}

func (l *Inductor) PreStep(t, dt float64) ([]RHSContribution, error) {
	n1, n2 := l.NodeIndex(0), l.NodeIndex(1)

	switch l.Domain() {
	case topology.EMT:
		g := numeric.InductorCompanion(numeric.Trapezoidal, l.Henries, dt)
		l.lastG = g
		var out []RHSContribution
		for i := 0; i < 3; i++ {
			ih := numeric.InductorHistoryCurrent(g, l.prevCurrentABC[i], l.prevVoltageABC[i])
			l.lastHistoryABC[i] = ih
			if n1 != topology.GroundIndex {
				out = append(out, RHSContribution{Index: n1 + i, Value: -ih})
			}
			if n2 != topology.GroundIndex {
				out = append(out, RHSContribution{Index: n2 + i, Value: ih})
			}
		}
		return out, nil
	case topology.DP:
		l.lastHistory = numeric.DPInductorHistory(l.Henries, l.omega, dt, l.y, l.prevCurrentSingle, l.prevVoltageSingle)
		var out []RHSContribution
		if n1 != topology.GroundIndex {
			out = append(out, RHSContribution{Index: n1, Value: -real(l.lastHistory), Imag: -imag(l.lastHistory)})
		}
		if n2 != topology.GroundIndex {
			out = append(out, RHSContribution{Index: n2, Value: real(l.lastHistory), Imag: imag(l.lastHistory)})
		}
		return out, nil
	default: // SP
		l.lastHistory = 0
		return nil, nil
	}
}

func (l *Inductor) PostStep(sol sysmatrix.Solution) error {
	n1i, n2i := l.NodeIndex(0), l.NodeIndex(1)
	switch l.Domain() {
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
			l.voltageABC[i] = vd
			l.currentABC[i] = l.lastG*vd + l.lastHistoryABC[i]
			l.prevVoltageABC[i] = vd
			l.prevCurrentABC[i] = l.currentABC[i]
		}
	default:
		var v1, v2 complex128
		if n1i != topology.GroundIndex {
			v1 = sol.AtComplex(n1i)
		}
		if n2i != topology.GroundIndex {
			v2 = sol.AtComplex(n2i)
		}
		l.voltageSingle = v1 - v2
		l.currentSingle = l.y*l.voltageSingle + l.lastHistory
		l.prevVoltageSingle = l.voltageSingle
		l.prevCurrentSingle = l.currentSingle
	}
	return nil
}

func (l *Inductor) Stamp(m sysmatrix.LHS, era sysmatrix.Era) error {
	n1, n2 := l.NodeIndex(0), l.NodeIndex(1)

	switch l.Domain() {
	case topology.EMT:
		g := numeric.InductorCompanion(numeric.Trapezoidal, l.Henries, era.Dt)
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
		l.omega = era.CarrierOmega
		l.y = numeric.DPInductorCompanion(l.Henries, era.CarrierOmega, era.Dt)
		stampComplexY(m, n1, n2, l.y)
		return nil
	default: // SP
		omega := era.CarrierOmega
		if omega == 0 {
			omega = 1
		}
		l.omega = omega
		l.y = complex(0, -1/(omega*l.Henries))
		stampComplexY(m, n1, n2, l.y)
		return nil
	}
}

func (l *Inductor) Attributes() attribute.Table {
	t := attribute.New()
	if l.Domain() == topology.EMT {
		t["V"] = attribute.NewMatrixReal(func() []float64 { return l.voltageABC[:] }, nil)
		t["I"] = attribute.NewMatrixReal(func() []float64 { return l.currentABC[:] }, nil)
	} else {
		t["V"] = attribute.NewComplex(func() complex128 { return l.voltageSingle }, nil)
		t["I"] = attribute.NewComplex(func() complex128 { return l.currentSingle }, nil)
	}
	t["L"] = attribute.NewReal(func() float64 { return l.Henries }, func(v float64) { l.Henries = v })
	return t
}

func stampRealG(m sysmatrix.LHS, i1, i2 int, g float64) {
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

func stampComplexY(m sysmatrix.LHS, i1, i2 int, y complex128) {
	re, im := real(y), imag(y)
	if i1 != topology.GroundIndex {
		m.AddComplexElement(i1, i1, re, im)
		if i2 != topology.GroundIndex {
			m.AddComplexElement(i1, i2, -re, -im)
		}
	}
	if i2 != topology.GroundIndex {
		m.AddComplexElement(i2, i2, re, im)
		if i1 != topology.GroundIndex {
			m.AddComplexElement(i2, i1, -re, -im)
		}
	}
}
