package component_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpsimgo/corepsim/pkg/component"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

func threeEqualWindings(nominal [3]float64) [3]component.ThreeWindingTransformerWinding {
	var w [3]component.ThreeWindingTransformerWinding
	for i := range w {
		w[i] = component.ThreeWindingTransformerWinding{
			ROhms: 0.01, XOhms: 0.1, NominalVoltage: nominal[i],
		}
	}
	return w
}

func TestThreeWindingTransformerRejectsZeroReactance(t *testing.T) {
	w := threeEqualWindings([3]float64{230, 115, 13.8})
	w[1].XOhms = 0
	_, err := component.NewThreeWindingTransformer("T1", "T1", w)
	assert.Error(t, err)
}

func TestThreeWindingTransformerDefaultsRatioMagToOne(t *testing.T) {
	w := threeEqualWindings([3]float64{230, 115, 13.8})
	tr, err := component.NewThreeWindingTransformer("T1", "T1", w)
	require.NoError(t, err)
	for _, winding := range tr.Windings {
		assert.Equal(t, 1.0, winding.RatioMag)
	}
}

func TestThreeWindingTransformerDerivesSnubberFromLowestNominalWinding(t *testing.T) {
	w := threeEqualWindings([3]float64{230, 115, 13.8})
	tr, err := component.NewThreeWindingTransformer("T1", "T1", w)
	require.NoError(t, err)
	assert.Greater(t, tr.SnubberOhms, 0.0)
	assert.InDelta(t, 13.8e6, tr.SnubberOhms, 1e-3) // 1e6 × the 13.8 V winding
}

// Each winding's own impedance feeds its own stamp: giving winding 2 a much
// larger reactance than windings 1/3 must change only winding 2's
// self-admittance contribution, proving the three windings are not
// aliased to a single shared impedance.
func TestThreeWindingTransformerWindingsStampIndependently(t *testing.T) {
	w := threeEqualWindings([3]float64{230, 115, 13.8})
	w[1].XOhms = 100 // much weaker coupling on winding 2
	tr, err := component.NewThreeWindingTransformer("T1", "T1", w)
	require.NoError(t, err)

	topo := topology.New(60)
	require.NoError(t, topo.AddComponent(tr, []string{"hv", "mv", "lv"}))
	topo.Index()
	require.NoError(t, tr.InitializeFromNodesAndTerminals(60))

	lhs := make(map[[2]int]complex128)
	rec := component3wLHS{out: lhs}
	require.NoError(t, tr.Stamp(rec, sysmatrix.Era{}))

	// hv and lv terminals (strong windings) get much larger self-admittance
	// magnitude than mv (weak winding), since |Yff|=|y|/|a|^2 and
	// |y|=1/sqrt(R^2+X^2) shrinks drastically as X grows.
	hv := topo.Nodes()[0].Index
	mv := topo.Nodes()[1].Index
	lv := topo.Nodes()[2].Index

	magHV := cabs(lhs[[2]int{hv, hv}])
	magMV := cabs(lhs[[2]int{mv, mv}])
	magLV := cabs(lhs[[2]int{lv, lv}])

	assert.Greater(t, magHV, magMV)
	assert.Greater(t, magLV, magMV)
}

func TestThreeWindingTransformerAttributesExposeAllThreeWindings(t *testing.T) {
	w := threeEqualWindings([3]float64{230, 115, 13.8})
	tr, err := component.NewThreeWindingTransformer("T1", "T1", w)
	require.NoError(t, err)
	topo := topology.New(60)
	require.NoError(t, topo.AddComponent(tr, []string{"hv", "mv", "lv"}))
	topo.Index()
	require.NoError(t, tr.InitializeFromNodesAndTerminals(60))

	attrs := tr.Attributes()
	for _, key := range []string{"VStar", "V1", "I1", "V2", "I2", "V3", "I3"} {
		_, ok := attrs[key]
		assert.True(t, ok, "missing %q", key)
	}
}

type component3wLHS struct {
	out map[[2]int]complex128
}

func (l component3wLHS) AddElement(i, j int, value float64) { l.AddComplexElement(i, j, value, 0) }
func (l component3wLHS) AddComplexElement(i, j int, re, im float64) {
	l.out[[2]int{i, j}] += complex(re, im)
}

func cabs(c complex128) float64 {
	re, im := real(c), imag(c)
	return re*re + im*im // squared magnitude is enough for ordering comparisons
}
