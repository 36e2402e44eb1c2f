package component

import (
	"github.com/dpsimgo/corepsim/internal/consts"
	"github.com/dpsimgo/corepsim/pkg/attribute"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

// Switch is the ideal breaker exemplar: a resistor whose conductance snaps
// between GOn and GOff. Open/Close bump the owning topology's generation,
// invalidating the cached matrix era (spec §4.3, §9 "Matrix era
// invalidation").
type Switch struct {
	Base
	GOn, GOff float64
	closed    bool

	topo *topology.SystemTopology

	voltageABC    [3]float64
	currentABC    [3]float64
	voltageSingle complex128
	currentSingle complex128
}

var _ Component = (*Switch)(nil)
var _ Switchable = (*Switch)(nil)

// NewSwitch builds a 2-terminal switch bound to topo (so Open/Close can
// bump its generation counter), starting in the given state.
func NewSwitch(id, name string, domain topology.Domain, topo *topology.SystemTopology, initiallyClosed bool) (*Switch, error) {
	return &Switch{
		Base:   NewBase(id, name, domain),
		GOn:    consts.DefaultSwitchGOn,
		GOff:   consts.DefaultSwitchGOff,
		closed: initiallyClosed,
		topo:   topo,
	}, nil
}

func (sw *Switch) NumTerminals() int    { return 2 }
func (sw *Switch) NumVirtualNodes() int { return 0 }
func (sw *Switch) Meta() Meta           { return Meta{NumTerminals: 2, Domain: sw.Domain()} }

func (sw *Switch) conductance() float64 {
	if sw.closed {
		return sw.GOn
	}
	return sw.GOff
}

func (sw *Switch) InitializeFromNodesAndTerminals(nomFreq float64) error {
	g := sw.conductance()
	n1, n2 := sw.Terminals()[0].Node, sw.Terminals()[1].Node
	if sw.Domain() == topology.EMT {
		for i := 0; i < 3; i++ {
			var v1, v2 float64
			if !n1.IsGround() {
				v1 = n1.InitialVoltageABC[i]
			}
			if !n2.IsGround() {
				v2 = n2.InitialVoltageABC[i]
			}
			sw.voltageABC[i] = v1 - v2
			sw.currentABC[i] = g * sw.voltageABC[i]
		}
		return nil
	}
	var v1, v2 complex128
	if !n1.IsGround() {
		v1 = n1.InitialVoltageSingle
	}
	if !n2.IsGround() {
		v2 = n2.InitialVoltageSingle
	}
	sw.voltageSingle = v1 - v2
	sw.currentSingle = complex(g, 0) * sw.voltageSingle
	return nil
}

func (sw *Switch) PreStep(t, dt float64) ([]RHSContribution, error) { return nil, nil }

func (sw *Switch) PostStep(sol sysmatrix.Solution) error {
	n1i, n2i := sw.NodeIndex(0), sw.NodeIndex(1)
	g := sw.conductance()
	if sw.Domain() == topology.EMT {
		for i := 0; i < 3; i++ {
			v1, v2 := 0.0, 0.0
			if n1i != topology.GroundIndex {
				v1 = sol.At(n1i + i)
			}
			if n2i != topology.GroundIndex {
				v2 = sol.At(n2i + i)
			}
			sw.voltageABC[i] = v1 - v2
			sw.currentABC[i] = g * sw.voltageABC[i]
		}
		return nil
	}
	var v1, v2 complex128
	if n1i != topology.GroundIndex {
		v1 = sol.AtComplex(n1i)
	}
	if n2i != topology.GroundIndex {
		v2 = sol.AtComplex(n2i)
	}
	sw.voltageSingle = v1 - v2
	sw.currentSingle = complex(g, 0) * sw.voltageSingle
	return nil
}

func (sw *Switch) Stamp(m sysmatrix.LHS, era sysmatrix.Era) error {
	g := sw.conductance()
	n1, n2 := sw.NodeIndex(0), sw.NodeIndex(1)

	if sw.Domain() == topology.EMT {
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
	}
	stampComplexY(m, n1, n2, complex(g, 0))
	return nil
}

// Open de-energizes the branch (G=GOff) and bumps the topology generation.
func (sw *Switch) Open() error {
	if !sw.closed {
		return nil
	}
	sw.closed = false
	if sw.topo != nil {
		sw.topo.BumpGeneration()
	}
	return nil
}

// Close energizes the branch (G=GOn) and bumps the topology generation.
func (sw *Switch) Close() error {
	if sw.closed {
		return nil
	}
	sw.closed = true
	if sw.topo != nil {
		sw.topo.BumpGeneration()
	}
	return nil
}

func (sw *Switch) Attributes() attribute.Table {
	t := attribute.New()
	if sw.Domain() == topology.EMT {
		t["V"] = attribute.NewMatrixReal(func() []float64 { return sw.voltageABC[:] }, nil)
		t["I"] = attribute.NewMatrixReal(func() []float64 { return sw.currentABC[:] }, nil)
	} else {
		t["V"] = attribute.NewComplex(func() complex128 { return sw.voltageSingle }, nil)
		t["I"] = attribute.NewComplex(func() complex128 { return sw.currentSingle }, nil)
	}
	t["Closed"] = attribute.NewReal(func() float64 {
		if sw.closed {
			return 1
		}
		return 0
	}, nil)
	return t
}
