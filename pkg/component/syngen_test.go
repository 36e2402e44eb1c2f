package component_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpsimgo/corepsim/pkg/component"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

func baseGenParams() component.SynchronousGeneratorParams {
	return component.SynchronousGeneratorParams{
		NomPowerVA: 100e6, NomVoltLL: 13800, NomFreqHz: 60,
		PoleNumber: 2, NomFieldCurrent: 1000,
		Rs: 0.003, Ll: 0.15, Lmd: 1.7, Lmq: 1.64,
		Rfd: 0.0006, Llfd: 0.165, Rkd: 0.0284, Llkd: 0.1713,
		Rkq1: 0.0062, Llkq1: 0.7252, Rkq2: 0.0237, Llkq2: 0.125,
		H: 3.7,
	}
}

func TestNewSynchronousGeneratorRejectsNonPositiveNameplate(t *testing.T) {
	p := baseGenParams()
	p.NomPowerVA = 0
	_, err := component.NewSynchronousGenerator("G1", "G1", p)
	assert.Error(t, err)
}

func TestNewSynchronousGeneratorRejectsNonPositivePoleNumber(t *testing.T) {
	p := baseGenParams()
	p.PoleNumber = 0
	_, err := component.NewSynchronousGenerator("G1", "G1", p)
	assert.Error(t, err)
}

func TestSynchronousGeneratorIdleInitStateHasUnityMechanicalSpeed(t *testing.T) {
	p := baseGenParams()
	p.InitActivePowerW = 0
	p.InitReactivePowerVAR = 0
	p.InitTerminalVoltV = p.NomVoltLL
	g, err := component.NewSynchronousGenerator("G1", "G1", p)
	require.NoError(t, err)

	omega, err := g.Attributes()["OmegaMechPU"].GetReal()
	require.NoError(t, err)
	assert.Equal(t, 1.0, omega)
}

func TestSynchronousGeneratorStampIsNoOpOnTheMatrix(t *testing.T) {
	p := baseGenParams()
	p.InitTerminalVoltV = p.NomVoltLL
	g, err := component.NewSynchronousGenerator("G1", "G1", p)
	require.NoError(t, err)

	topo := topology.New(60)
	require.NoError(t, topo.AddComponent(g, []string{"bus1"}))
	topo.Index()

	lhs := make(map[[2]int]complex128)
	rec := genLHS{out: lhs}
	require.NoError(t, g.Stamp(rec, sysmatrix.Era{Dt: 5e-5}))
	assert.Empty(t, lhs)
}

func TestSynchronousGeneratorInjectsThreePhaseCurrentOnPreStep(t *testing.T) {
	p := baseGenParams()
	p.InitTerminalVoltV = p.NomVoltLL
	g, err := component.NewSynchronousGenerator("G1", "G1", p)
	require.NoError(t, err)

	topo := topology.New(60)
	require.NoError(t, topo.AddComponent(g, []string{"bus1"}))
	topo.Index()
	require.NoError(t, g.InitializeFromNodesAndTerminals(60))

	contribs, err := g.PreStep(0, 5e-5)
	require.NoError(t, err)
	assert.Len(t, contribs, 3)
}

func TestSynchronousGeneratorAttributesExposeMachineState(t *testing.T) {
	p := baseGenParams()
	p.InitTerminalVoltV = p.NomVoltLL
	g, err := component.NewSynchronousGenerator("G1", "G1", p)
	require.NoError(t, err)

	attrs := g.Attributes()
	for _, key := range []string{"V", "I", "OmegaMechPU", "ThetaMech", "MechPowerPU", "FieldVoltagePU"} {
		_, ok := attrs[key]
		assert.True(t, ok, "missing %q", key)
	}
}

type genLHS struct {
	out map[[2]int]complex128
}

func (l genLHS) AddElement(i, j int, value float64) { l.AddComplexElement(i, j, value, 0) }
func (l genLHS) AddComplexElement(i, j int, re, im float64) {
	l.out[[2]int{i, j}] += complex(re, im)
}
