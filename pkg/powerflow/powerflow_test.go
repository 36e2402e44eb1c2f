package powerflow_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpsimgo/corepsim/pkg/component"
	"github.com/dpsimgo/corepsim/pkg/powerflow"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

// calcPQ returns the power injected at bus i implied by a converged
// voltage vector and the bus admittance matrix: S_i = V_i * conj(sum_k Y_ik V_k).
func calcPQ(i int, v []complex128, ybus [][]complex128) (p, q float64) {
	var acc complex128
	for k, y := range ybus[i] {
		acc += y * v[k]
	}
	s := v[i] * complexConj(acc)
	return real(s), imag(s)
}

func complexConj(c complex128) complex128 { return complex(real(c), -imag(c)) }

func TestSolveTwoBusLineSatisfiesPowerMismatch(t *testing.T) {
	r := 0.1 // ohm-equivalent per-unit resistance
	g := complex(1/r, 0)
	ybus := [][]complex128{
		{g, -g},
		{-g, g},
	}
	buses := []powerflow.BusSpec{
		{Name: "slack", Type: powerflow.VD, VMag: 1.0, VAngle: 0},
		{Name: "load", Type: powerflow.PQ, P: -0.1, Q: 0},
	}

	res, err := powerflow.Solve(buses, ybus, powerflow.DefaultOptions())
	require.NoError(t, err)
	require.True(t, res.Converged)

	p, q := calcPQ(1, res.V, ybus)
	assert.InDelta(t, -0.1, p, 1e-6)
	assert.InDelta(t, 0, q, 1e-6)
	assert.Less(t, math.Abs(res.MaxMismatch), 1e-6)
}

func TestSolveDivergesForUnreachableSetpoint(t *testing.T) {
	// A single bus line with near-zero admittance cannot source any real
	// power no matter the angle/magnitude; NR should fail to converge.
	g := complex(1e-9, 0)
	ybus := [][]complex128{
		{g, -g},
		{-g, g},
	}
	buses := []powerflow.BusSpec{
		{Name: "slack", Type: powerflow.VD, VMag: 1.0, VAngle: 0},
		{Name: "load", Type: powerflow.PQ, P: -5, Q: -5},
	}

	opts := powerflow.Options{Tolerance: 1e-9, MaxIterations: 5}
	_, err := powerflow.Solve(buses, ybus, opts)
	assert.Error(t, err)
}

func TestBuildYBusAndNodeOrderMatchResistorStamp(t *testing.T) {
	topo := topology.New(60)
	r, err := component.NewResistor("R1", "R1", topology.SP, 10)
	require.NoError(t, err)
	require.NoError(t, topo.AddComponent(r, []string{"1", "0"}))
	topo.Index()

	order := powerflow.NodeOrder(topo)
	require.Len(t, order, 1)
	assert.Equal(t, "1", order[0].Name)

	ybus, err := powerflow.BuildYBus(topo, sysmatrix.Era{})
	require.NoError(t, err)
	require.Len(t, ybus, 1)
	assert.InDelta(t, 0.1, real(ybus[0][0]), 1e-12)
}

// Three-winding transformer PF power balance (spec §8 scenario 5): after
// a converged power flow, the currents the three windings deliver into
// the virtual star node (spec §4.6's treatment of the star as a
// zero-injection PQ bus) must sum to zero, the same KCL balance the
// power-flow Jacobian solved for.
func TestThreeWindingTransformerStarNodeCurrentsSumToZeroAfterPF(t *testing.T) {
	topo := topology.New(60)
	windings := [3]component.ThreeWindingTransformerWinding{
		{ROhms: 0.01, XOhms: 0.10, NominalVoltage: 230e3},
		{ROhms: 0.02, XOhms: 0.08, NominalVoltage: 115e3},
		{ROhms: 0.03, XOhms: 0.12, NominalVoltage: 13.8e3},
	}
	xf, err := component.NewThreeWindingTransformer("T1", "T1", windings)
	require.NoError(t, err)
	require.NoError(t, topo.AddComponent(xf, []string{"1", "2", "3"}))
	topo.Index()

	order := powerflow.NodeOrder(topo)
	ybus, err := powerflow.BuildYBus(topo, sysmatrix.Era{})
	require.NoError(t, err)

	named := map[string]powerflow.BusSpec{
		"1": {Name: "1", Type: powerflow.VD, VMag: 1.0, VAngle: 0},
		"2": {Name: "2", Type: powerflow.PQ, P: -0.3, Q: -0.05},
		"3": {Name: "3", Type: powerflow.PQ, P: -0.2, Q: -0.02},
	}
	buses := powerflow.DefaultBusSpecs(order, named)

	res, err := powerflow.Solve(buses, ybus, powerflow.DefaultOptions())
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.NoError(t, powerflow.ApplyToTopology(topo, order, res))

	attrs := xf.Attributes()
	vStar, err := attrs["VStar"].GetComplex()
	require.NoError(t, err)

	var sum complex128
	for i, w := range windings {
		vExt, err := attrs["V"+windingSuffixFor(i)].GetComplex()
		require.NoError(t, err)

		y := 1 / complex(w.ROhms, w.XOhms)
		ratioMag := w.RatioMag
		if ratioMag == 0 {
			ratioMag = 1
		}
		a := complex(ratioMag, 0)
		ytf := -y / a
		ytt := y
		sum += ytf*vExt + ytt*vStar
	}

	assert.InDelta(t, 0, real(sum), 1e-6)
	assert.InDelta(t, 0, imag(sum), 1e-6)
}

func windingSuffixFor(i int) string {
	switch i {
	case 0:
		return "1"
	case 1:
		return "2"
	default:
		return "3"
	}
}

func TestDefaultBusSpecsDefaultsUnnamedNodesToZeroInjectionPQ(t *testing.T) {
	topo := topology.New(60)
	r, err := component.NewResistor("R1", "R1", topology.SP, 10)
	require.NoError(t, err)
	require.NoError(t, topo.AddComponent(r, []string{"1", "0"}))
	topo.Index()

	order := powerflow.NodeOrder(topo)
	specs := powerflow.DefaultBusSpecs(order, nil)
	require.Len(t, specs, 1)
	assert.Equal(t, powerflow.PQ, specs[0].Type)
	assert.Zero(t, specs[0].P)
	assert.Zero(t, specs[0].Q)
}
