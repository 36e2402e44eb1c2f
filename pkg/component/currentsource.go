package component

import (
	"github.com/dpsimgo/corepsim/internal/consts"
	"github.com/dpsimgo/corepsim/pkg/attribute"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

// CurrentSource is the ideal Norton current-source exemplar: pure RHS
// injection, no LHS stamp, no branch-current unknown (spec §4.2). EMT
// samples the waveform once per phase (same waveform replicated across A/B/C
// unless phased externally); SP/DP take a complex phasor magnitude/angle.
type CurrentSource struct {
	Base
	Wave Waveform

	// SP/DP phasor form, used when Wave.Kind==DC as a magnitude/angle pair.
	PhasorMag   float64
	PhasorAngle float64

	currentABC    [3]float64
	voltageABC    [3]float64
	currentSingle complex128
	voltageSingle complex128
}

var _ Component = (*CurrentSource)(nil)

// NewCurrentSource builds a 2-terminal current source of the given domain
// and time-domain waveform.
func NewCurrentSource(id, name string, domain topology.Domain, wave Waveform) (*CurrentSource, error) {
	return &CurrentSource{Base: NewBase(id, name, domain), Wave: wave}, nil
}

func (s *CurrentSource) NumTerminals() int    { return 2 }
func (s *CurrentSource) NumVirtualNodes() int { return 0 }
func (s *CurrentSource) Meta() Meta           { return Meta{NumTerminals: 2, Domain: s.Domain()} }

func (s *CurrentSource) InitializeFromNodesAndTerminals(nomFreq float64) error {
	n1, n2 := s.Terminals()[0].Node, s.Terminals()[1].Node
	if s.Domain() == topology.EMT {
		i0 := s.Wave.Value(0)
		for p := 0; p < 3; p++ {
			s.currentABC[p] = i0
		}
		for p := 0; p < 3; p++ {
			var v1, v2 float64
			if !n1.IsGround() {
				v1 = n1.InitialVoltageABC[p]
			}
			if !n2.IsGround() {
				v2 = n2.InitialVoltageABC[p]
			}
			s.voltageABC[p] = v1 - v2
		}
		return nil
	}
	re := s.PhasorMag * cosDeg(s.PhasorAngle)
	im := s.PhasorMag * sinDeg(s.PhasorAngle)
	s.currentSingle = complex(re, im)
	var v1, v2 complex128
	if !n1.IsGround() {
		v1 = n1.InitialVoltageSingle
	}
	if !n2.IsGround() {
		v2 = n2.InitialVoltageSingle
	}
	s.voltageSingle = v1 - v2
	return nil
}

func (s *CurrentSource) PreStep(t, dt float64) ([]RHSContribution, error) {
	n1, n2 := s.NodeIndex(0), s.NodeIndex(1)
	var out []RHSContribution

	if s.Domain() == topology.EMT {
		current := s.Wave.Value(t)
		for p := 0; p < 3; p++ {
			s.currentABC[p] = current
			if n1 != topology.GroundIndex {
				out = append(out, RHSContribution{Index: n1 + p, Value: current})
			}
			if n2 != topology.GroundIndex {
				out = append(out, RHSContribution{Index: n2 + p, Value: -current})
			}
		}
		return out, nil
	}

	re, im := real(s.currentSingle), imag(s.currentSingle)
	if n1 != topology.GroundIndex {
		out = append(out, RHSContribution{Index: n1, Value: re, Imag: im})
	}
	if n2 != topology.GroundIndex {
		out = append(out, RHSContribution{Index: n2, Value: -re, Imag: -im})
	}
	return out, nil
}

func (s *CurrentSource) PostStep(sol sysmatrix.Solution) error {
	n1i, n2i := s.NodeIndex(0), s.NodeIndex(1)
	if s.Domain() == topology.EMT {
		for p := 0; p < 3; p++ {
			v1, v2 := 0.0, 0.0
			if n1i != topology.GroundIndex {
				v1 = sol.At(n1i + p)
			}
			if n2i != topology.GroundIndex {
				v2 = sol.At(n2i + p)
			}
			s.voltageABC[p] = v1 - v2
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
	s.voltageSingle = v1 - v2
	return nil
}

// Stamp is a no-op: an ideal current source contributes no conductance.
func (s *CurrentSource) Stamp(m sysmatrix.LHS, era sysmatrix.Era) error { return nil }

func (s *CurrentSource) Attributes() attribute.Table {
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
