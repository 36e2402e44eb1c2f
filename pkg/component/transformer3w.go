package component

import (
	"math"

	"github.com/dpsimgo/corepsim/pkg/attribute"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

// ThreeWindingTransformerWinding holds one winding's series impedance,
// complex off-nominal tap ratio, and nameplate voltage.
type ThreeWindingTransformerWinding struct {
	ROhms, XOhms   float64
	RatioMag       float64 // defaults to 1 (nominal tap) if zero
	RatioAngleDeg  float64
	NominalVoltage float64
}

// ThreeWindingTransformer is the SP three-winding-transformer exemplar: an
// exposed virtual star node with three distinct owned series-impedance
// windings (spec §9 — the original_source model reused a single
// mSubResistor2 variable across all three windings, a bug; this resolves
// it by giving every winding its own impedance and admittance stamp), an
// optional magnetizing shunt at the star node, and a snubber conductance
// at the lowest-nominal-voltage terminal for numerical damping.
type ThreeWindingTransformer struct {
	Base
	Windings [3]ThreeWindingTransformerWinding

	// MagnetizingSusceptance is an optional shunt admittance (siemens, at
	// the star node to ground) modeling core losses/magnetizing current.
	MagnetizingSusceptance float64
	// SnubberOhms, if zero, is derived from the lowest winding nominal
	// voltage the way original_source derives mSnubberResistance.
	SnubberOhms float64

	snubberWinding int

	voltageStar complex128
	voltageExt  [3]complex128
	currentExt  [3]complex128
}

var _ Component = (*ThreeWindingTransformer)(nil)

// NewThreeWindingTransformer builds a 3-terminal SP three-winding
// transformer from per-winding series impedance and tap parameters.
func NewThreeWindingTransformer(id, name string, windings [3]ThreeWindingTransformerWinding) (*ThreeWindingTransformer, error) {
	for i, w := range windings {
		if w.ROhms < 0 || w.XOhms == 0 {
			return nil, componentParamError(id, "winding resistance must be non-negative and reactance non-zero")
		}
		if windings[i].RatioMag == 0 {
			windings[i].RatioMag = 1
		}
	}

	t := &ThreeWindingTransformer{Base: NewBase(id, name, topology.SP), Windings: windings}

	lowest := 0
	for i := 1; i < 3; i++ {
		if windings[i].NominalVoltage < windings[lowest].NominalVoltage {
			lowest = i
		}
	}
	t.snubberWinding = lowest
	if t.SnubberOhms == 0 && windings[lowest].NominalVoltage != 0 {
		t.SnubberOhms = math.Abs(windings[lowest].NominalVoltage) * 1e6
	}

	return t, nil
}

func (t *ThreeWindingTransformer) NumTerminals() int    { return 3 }
func (t *ThreeWindingTransformer) NumVirtualNodes() int { return 1 }
func (t *ThreeWindingTransformer) Meta() Meta {
	return Meta{NumTerminals: 3, NumVirtualNodes: 1, Domain: topology.SP}
}

func (t *ThreeWindingTransformer) windingAdmittance(i int) complex128 {
	w := t.Windings[i]
	return 1 / complex(w.ROhms, w.XOhms)
}

func (t *ThreeWindingTransformer) windingRatio(i int) complex128 {
	w := t.Windings[i]
	return complex(w.RatioMag*cosDeg(w.RatioAngleDeg), w.RatioMag*sinDeg(w.RatioAngleDeg))
}

func (t *ThreeWindingTransformer) InitializeFromNodesAndTerminals(nomFreq float64) error {
	for i := 0; i < 3; i++ {
		n := t.Terminals()[i].Node
		if !n.IsGround() {
			t.voltageExt[i] = n.InitialVoltageSingle
		}
	}
	return nil
}

func (t *ThreeWindingTransformer) PreStep(tm, dt float64) ([]RHSContribution, error) { return nil, nil }

func (t *ThreeWindingTransformer) PostStep(sol sysmatrix.Solution) error {
	star := t.VNodeIndex(0)
	if star != topology.GroundIndex {
		t.voltageStar = sol.AtComplex(star)
	}
	for i := 0; i < 3; i++ {
		idx := t.NodeIndex(i)
		if idx != topology.GroundIndex {
			t.voltageExt[i] = sol.AtComplex(idx)
		} else {
			t.voltageExt[i] = 0
		}
		y := t.windingAdmittance(i)
		a := t.windingRatio(i)
		aMagSq := real(a)*real(a) + imag(a)*imag(a)
		yff := y / complex(aMagSq, 0)
		yft := -y / complexConj(a)
		t.currentExt[i] = yff*t.voltageExt[i] + yft*t.voltageStar
	}
	return nil
}

func complexConj(c complex128) complex128 { return complex(real(c), -imag(c)) }

// Stamp stamps each winding's off-nominal-tap admittance between its
// external terminal and the shared star node (Yff=y/|a|^2, Yft=-y/conj(a),
// Ytf=-y/a, Ytt=y, the standard tap-transformer two-port form), plus the
// optional magnetizing shunt and snubber conductance.
func (t *ThreeWindingTransformer) Stamp(m sysmatrix.LHS, era sysmatrix.Era) error {
	star := t.VNodeIndex(0)

	for i := 0; i < 3; i++ {
		ext := t.NodeIndex(i)
		y := t.windingAdmittance(i)
		a := t.windingRatio(i)
		aMagSq := real(a)*real(a) + imag(a)*imag(a)

		yff := y / complex(aMagSq, 0)
		yft := -y / complexConj(a)
		ytf := -y / a
		ytt := y

		if ext != topology.GroundIndex {
			addC(m, ext, ext, yff)
			if star != topology.GroundIndex {
				addC(m, ext, star, yft)
				addC(m, star, ext, ytf)
			}
		}
		if star != topology.GroundIndex {
			addC(m, star, star, ytt)
		}
	}

	if t.MagnetizingSusceptance != 0 && star != topology.GroundIndex {
		addC(m, star, star, complex(0, t.MagnetizingSusceptance))
	}

	if t.SnubberOhms > 0 {
		extS := t.NodeIndex(t.snubberWinding)
		if extS != topology.GroundIndex {
			addC(m, extS, extS, complex(1/t.SnubberOhms, 0))
		}
	}
	return nil
}

func addC(m sysmatrix.LHS, i, j int, y complex128) {
	m.AddComplexElement(i, j, real(y), imag(y))
}

func (t *ThreeWindingTransformer) Attributes() attribute.Table {
	table := attribute.New()
	table["VStar"] = attribute.NewComplex(func() complex128 { return t.voltageStar }, nil)
	for i := 0; i < 3; i++ {
		idx := i
		table["V"+windingSuffix(idx)] = attribute.NewComplex(func() complex128 { return t.voltageExt[idx] }, nil)
		table["I"+windingSuffix(idx)] = attribute.NewComplex(func() complex128 { return t.currentExt[idx] }, nil)
	}
	return table
}

func windingSuffix(i int) string {
	switch i {
	case 0:
		return "1"
	case 1:
		return "2"
	default:
		return "3"
	}
}
