package component_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpsimgo/corepsim/pkg/component"
	"github.com/dpsimgo/corepsim/pkg/solver"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

func TestCurrentSourceStampIsANoOp(t *testing.T) {
	topo := topology.New(60)
	src, err := component.NewCurrentSource("I1", "I1", topology.EMT, component.NewDCWaveform(1))
	require.NoError(t, err)
	require.NoError(t, topo.AddComponent(src, []string{"1", "0"}))
	topo.Index()

	lhs := make(map[[2]int]complex128)
	require.NoError(t, src.Stamp(csLHS{out: lhs}, sysmatrix.Era{}))
	assert.Empty(t, lhs)
}

// A DC current source into a resistor must produce V=I*R on every phase,
// not just phase A: PostStep must update voltageABC for all three phases
// (a prior version only ever wrote phase 0, leaving B/C stuck at zero).
func TestCurrentSourceResistorSettlesWithAllThreePhasesTracked(t *testing.T) {
	const i, r = 2.0, 10.0

	topo := topology.New(60)
	src, err := component.NewCurrentSource("I1", "I1", topology.EMT, component.NewDCWaveform(i))
	require.NoError(t, err)
	require.NoError(t, topo.AddComponent(src, []string{"1", "0"}))

	res, err := component.NewResistor("R1", "R1", topology.EMT, r)
	require.NoError(t, err)
	require.NoError(t, topo.AddComponent(res, []string{"1", "0"}))

	topo.Index()
	require.NoError(t, src.InitializeFromNodesAndTerminals(60))
	require.NoError(t, res.InitializeFromNodesAndTerminals(60))

	sv, err := solver.New(topo, solver.Options{Dt: 1e-4, FinalTime: 2e-4})
	require.NoError(t, err)
	status, err := sv.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solver.Completed, status)

	v, err := src.Attributes()["V"].GetMatrixReal()
	require.NoError(t, err)
	for _, got := range v {
		assert.InDelta(t, i*r, got, 1e-6)
	}
}

// Current-source-into-resistor (spec §8 scenario 1): i=10A, R=1Ω settles
// to v=10V exactly (no reactive elements, no transient to wait out).
func TestCurrentSourceResistorMatchesSpecExactNumbers(t *testing.T) {
	const i, r = 10.0, 1.0

	topo := topology.New(60)
	src, err := component.NewCurrentSource("I1", "I1", topology.EMT, component.NewDCWaveform(i))
	require.NoError(t, err)
	require.NoError(t, topo.AddComponent(src, []string{"1", "0"}))

	res, err := component.NewResistor("R1", "R1", topology.EMT, r)
	require.NoError(t, err)
	require.NoError(t, topo.AddComponent(res, []string{"1", "0"}))

	topo.Index()
	require.NoError(t, src.InitializeFromNodesAndTerminals(60))
	require.NoError(t, res.InitializeFromNodesAndTerminals(60))

	sv, err := solver.New(topo, solver.Options{Dt: 1e-4, FinalTime: 2e-4})
	require.NoError(t, err)
	status, err := sv.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solver.Completed, status)

	v, err := res.Attributes()["V"].GetMatrixReal()
	require.NoError(t, err)
	iOut, err := res.Attributes()["I"].GetMatrixReal()
	require.NoError(t, err)
	for p := range v {
		assert.InDelta(t, 10.0, v[p], 1e-9)
		assert.InDelta(t, 10.0, iOut[p], 1e-9)
	}
}

type csLHS struct {
	out map[[2]int]complex128
}

func (l csLHS) AddElement(i, j int, value float64) { l.AddComplexElement(i, j, value, 0) }
func (l csLHS) AddComplexElement(i, j int, re, im float64) {
	l.out[[2]int{i, j}] += complex(re, im)
}
