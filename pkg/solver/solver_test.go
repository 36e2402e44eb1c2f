package solver_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpsimgo/corepsim/pkg/component"
	"github.com/dpsimgo/corepsim/pkg/solver"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

// An isolated RC circuit (no source) discharges monotonically toward zero,
// tracking the analytic exp(-t/RC) envelope within trapezoidal
// discretization error.
func TestRCDischargeFollowsExponentialEnvelope(t *testing.T) {
	const r, c, dt = 1000.0, 1e-6, 1e-5
	tau := r * c

	topo := topology.New(60)
	capacitor, err := component.NewCapacitor("C1", "C1", topology.EMT, c)
	require.NoError(t, err)
	require.NoError(t, topo.AddComponent(capacitor, []string{"1", "0"}))

	res, err := component.NewResistor("R1", "R1", topology.EMT, r)
	require.NoError(t, err)
	require.NoError(t, topo.AddComponent(res, []string{"1", "0"}))

	topo.Index()
	for _, n := range topo.Nodes() {
		if n.Name == "1" {
			n.InitialVoltageABC = [3]float64{100, 100, 100}
		}
	}
	require.NoError(t, capacitor.InitializeFromNodesAndTerminals(60))
	require.NoError(t, res.InitializeFromNodesAndTerminals(60))

	sv, err := solver.New(topo, solver.Options{Dt: dt, FinalTime: 5 * tau})
	require.NoError(t, err)

	status, err := sv.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solver.Completed, status)

	v := res.Attributes()["V"]
	vals, err := v.GetMatrixReal()
	require.NoError(t, err)

	want := 100 * math.Exp(-5*tau/tau)
	for _, got := range vals {
		assert.InDelta(t, want, got, 2.0) // trapezoidal discretization tolerance
		assert.Less(t, got, 100.0)
		assert.GreaterOrEqual(t, got, 0.0)
	}
}

// recordingLHS implements sysmatrix.LHS by accumulating every stamped
// element into a plain map, for comparing two independent stamp passes.
type recordingLHS struct {
	out map[[2]int]complex128
}

func (l recordingLHS) AddElement(i, j int, value float64) {
	l.AddComplexElement(i, j, value, 0)
}

func (l recordingLHS) AddComplexElement(i, j int, re, im float64) {
	l.out[[2]int{i, j}] += complex(re, im)
}

// Stamping the same component twice into independent matrices must produce
// identical left-hand sides: Stamp is a pure function of component state,
// which is what makes matrix-era caching (see pkg/solver) safe.
func TestStampIsIdempotentAcrossFreshMatrices(t *testing.T) {
	build := func() *component.Resistor {
		topo := topology.New(60)
		r, err := component.NewResistor("R1", "R1", topology.SP, 7)
		require.NoError(t, err)
		require.NoError(t, topo.AddComponent(r, []string{"1", "0"}))
		topo.Index()
		return r
	}

	collect := func(r *component.Resistor) map[[2]int]complex128 {
		got := make(map[[2]int]complex128)
		require.NoError(t, r.Stamp(recordingLHS{out: got}, sysmatrix.Era{}))
		return got
	}

	assert.Equal(t, collect(build()), collect(build()))
}
