package component

import (
	"github.com/dpsimgo/corepsim/pkg/attribute"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

// VoltageSource is the ideal voltage-source exemplar. Unlike the current
// source it needs an explicit branch-current unknown to enforce v1-v2=V
// (spec's MNA definition: "node voltages augmented with explicit currents
// for ideal voltage sources"), modeled here as one virtual node per phase
// whose "voltage" unknown is actually the branch current.
type VoltageSource struct {
	Base
	Wave Waveform

	PhasorMag   float64
	PhasorAngle float64

	currentABC    [3]float64
	voltageABC    [3]float64
	currentSingle complex128
	voltageSingle complex128
}

var _ Component = (*VoltageSource)(nil)

// NewVoltageSource builds a 2-terminal voltage source of the given domain
// and time-domain waveform.
func NewVoltageSource(id, name string, domain topology.Domain, wave Waveform) (*VoltageSource, error) {
	return &VoltageSource{Base: NewBase(id, name, domain), Wave: wave}, nil
}

func (s *VoltageSource) NumTerminals() int    { return 2 }
func (s *VoltageSource) NumVirtualNodes() int { return 1 }
func (s *VoltageSource) Meta() Meta           { return Meta{NumTerminals: 2, NumVirtualNodes: 1, Domain: s.Domain()} }

func (s *VoltageSource) InitializeFromNodesAndTerminals(nomFreq float64) error {
	if s.Domain() == topology.EMT {
		v0 := s.Wave.Value(0)
		for p := 0; p < 3; p++ {
			s.voltageABC[p] = v0
		}
		return nil
	}
	re := s.PhasorMag * cosDeg(s.PhasorAngle)
	im := s.PhasorMag * sinDeg(s.PhasorAngle)
	s.voltageSingle = complex(re, im)
	return nil
}

func (s *VoltageSource) PreStep(t, dt float64) ([]RHSContribution, error) {
	branch := s.VNodeIndex(0)
	var out []RHSContribution

	if s.Domain() == topology.EMT {
		v := s.Wave.Value(t)
		for p := 0; p < 3; p++ {
			s.voltageABC[p] = v
			out = append(out, RHSContribution{Index: branch + p, Value: v})
		}
		return out, nil
	}

	re, im := real(s.voltageSingle), imag(s.voltageSingle)
	out = append(out, RHSContribution{Index: branch, Value: re, Imag: im})
	return out, nil
}

func (s *VoltageSource) PostStep(sol sysmatrix.Solution) error {
	branch := s.VNodeIndex(0)
	if s.Domain() == topology.EMT {
		for p := 0; p < 3; p++ {
			s.currentABC[p] = sol.At(branch + p)
		}
		return nil
	}
	s.currentSingle = sol.AtComplex(branch)
	return nil
}

// Stamp augments the system with v1-v2=V rows/columns keyed by the branch
// virtual node, mirroring the teacher's ideal-voltage-source MNA pattern.
func (s *VoltageSource) Stamp(m sysmatrix.LHS, era sysmatrix.Era) error {
	n1, n2 := s.NodeIndex(0), s.NodeIndex(1)
	branch := s.VNodeIndex(0)

	if s.Domain() == topology.EMT {
		for p := 0; p < 3; p++ {
			b := branch + p
			a, c := n1, n2
			if a != topology.GroundIndex {
				a += p
			}
			if c != topology.GroundIndex {
				c += p
			}
			stampBranchRow(m, a, c, b)
		}
		return nil
	}
	stampComplexBranchRow(m, n1, n2, branch)
	return nil
}

func stampBranchRow(m sysmatrix.LHS, n1, n2, branch int) {
	if n1 != topology.GroundIndex {
		m.AddElement(branch, n1, 1)
		m.AddElement(n1, branch, 1)
	}
	if n2 != topology.GroundIndex {
		m.AddElement(branch, n2, -1)
		m.AddElement(n2, branch, -1)
	}
}

func stampComplexBranchRow(m sysmatrix.LHS, n1, n2, branch int) {
	if n1 != topology.GroundIndex {
		m.AddComplexElement(branch, n1, 1, 0)
		m.AddComplexElement(n1, branch, 1, 0)
	}
	if n2 != topology.GroundIndex {
		m.AddComplexElement(branch, n2, -1, 0)
		m.AddComplexElement(n2, branch, -1, 0)
	}
}

func (s *VoltageSource) Attributes() attribute.Table {
	t := attribute.New()
	if s.Domain() == topology.EMT {
		t["V"] = attribute.NewMatrixReal(func() []float64 { return s.voltageABC[:] }, nil)
		t["I"] = attribute.NewMatrixReal(func() []float64 { return s.currentABC[:] }, nil)
	} else {
		t["V"] = attribute.NewComplex(func() complex128 { return s.voltageSingle }, nil)
		t["I"] = attribute.NewComplex(func() complex128 { return s.currentSingle }, nil)
	}
	return t
}
