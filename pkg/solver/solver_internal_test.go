package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpsimgo/corepsim/pkg/component"
	"github.com/dpsimgo/corepsim/pkg/event"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

func buildResistiveDivider(t *testing.T) *topology.SystemTopology {
	t.Helper()
	topo := topology.New(60)

	vs, err := component.NewVoltageSource("V1", "V1", topology.EMT, component.NewDCWaveform(10))
	require.NoError(t, err)
	require.NoError(t, topo.AddComponent(vs, []string{"1", "0"}))

	r, err := component.NewResistor("R1", "R1", topology.EMT, 5)
	require.NoError(t, err)
	require.NoError(t, topo.AddComponent(r, []string{"1", "0"}))

	topo.Index()
	require.NoError(t, vs.InitializeFromNodesAndTerminals(60))
	require.NoError(t, r.InitializeFromNodesAndTerminals(60))
	return topo
}

// A stationary (no switch events) run assembles the system matrix exactly
// once: every subsequent step hits the same era in the cache instead of
// re-stamping, which is only correct because Stamp is idempotent.
func TestAssembleCachesOneEraAcrossSteps(t *testing.T) {
	topo := buildResistiveDivider(t)
	sv, err := New(topo, Options{Dt: 1e-3, FinalTime: 5e-3})
	require.NoError(t, err)

	status, err := sv.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Completed, status)
	assert.Len(t, sv.cache.Eras(), 1)
}

// A switch event bumps the topology generation mid-run, forcing one
// re-assembly into a second cached era.
func TestSwitchEventForcesReassembly(t *testing.T) {
	topo := topology.New(60)

	vs, err := component.NewVoltageSource("V1", "V1", topology.EMT, component.NewDCWaveform(10))
	require.NoError(t, err)
	require.NoError(t, topo.AddComponent(vs, []string{"1", "0"}))

	sw, err := component.NewSwitch("SW1", "SW1", topology.EMT, topo, true)
	require.NoError(t, err)
	require.NoError(t, topo.AddComponent(sw, []string{"1", "2"}))

	r, err := component.NewResistor("R1", "R1", topology.EMT, 5)
	require.NoError(t, err)
	require.NoError(t, topo.AddComponent(r, []string{"2", "0"}))

	topo.Index()
	for _, el := range topo.Elements() {
		require.NoError(t, el.(component.Component).InitializeFromNodesAndTerminals(60))
	}

	q := event.NewQueue()
	q.Schedule(event.Scheduled{Time: 2e-3, TargetID: "SW1", Op: event.Open})

	sv, err := New(topo, Options{Dt: 1e-3, FinalTime: 5e-3, Events: q})
	require.NoError(t, err)

	status, err := sv.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Completed, status)
	assert.Len(t, sv.cache.Eras(), 2)
}

func TestResistiveDividerSettlesToOhmsLaw(t *testing.T) {
	topo := buildResistiveDivider(t)
	sv, err := New(topo, Options{Dt: 1e-3, FinalTime: 3e-3})
	require.NoError(t, err)

	_, err = sv.Run(context.Background())
	require.NoError(t, err)

	r := topo.Elements()[1].(*component.Resistor)
	iHandle := r.Attributes()["I"]
	cur, err := iHandle.GetMatrixReal()
	require.NoError(t, err)
	for _, i := range cur {
		assert.InDelta(t, 2.0, i, 1e-6) // 10V / 5ohm
	}
}
