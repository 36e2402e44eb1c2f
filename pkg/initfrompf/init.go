// Package initfrompf bridges a converged power-flow topology into a
// dynamic (EMT/DP) topology's initial state (spec §4.8): each node's
// complex voltage is transferred by name, phase-expanded into the
// symmetric abc instantaneous values for ABC-phase nodes, after which
// every dynamic component re-derives its internal state via
// InitializeFromNodesAndTerminals.
package initfrompf

import (
	"math"
	"math/cmplx"

	"github.com/dpsimgo/corepsim/pkg/component"
	"github.com/dpsimgo/corepsim/pkg/topology"
	"github.com/dpsimgo/corepsim/simerr"
)

const twoPiOver3 = 2 * math.Pi / 3

// phasorToABC embeds a single-phase phasor into a balanced three-phase
// instantaneous snapshot at t=0: v_a=Vm*cos(θ), v_b/v_c shifted by
// ∓120°, matching the convention pkg/numeric.Park/InversePark use
// elsewhere in the module.
func phasorToABC(v complex128) [3]float64 {
	mag, theta := cmplx.Abs(v), cmplx.Phase(v)
	return [3]float64{
		mag * math.Cos(theta),
		mag * math.Cos(theta-twoPiOver3),
		mag * math.Cos(theta+twoPiOver3),
	}
}

// Transfer seeds dyn's node initial voltages from pf's converged node
// voltages (matched by name; a dynamic-only node such as a virtual node
// has no power-flow counterpart and is left at zero) and then invokes
// every dynamic component's InitializeFromNodesAndTerminals, yielding a
// consistent t=0 state (spec §4.8).
func Transfer(pf, dyn *topology.SystemTopology) error {
	byName := make(map[string]*topology.Node, len(pf.Nodes()))
	for _, n := range pf.Nodes() {
		byName[n.Name] = n
	}

	for _, nd := range dyn.Nodes() {
		src, ok := byName[nd.Name]
		if !ok {
			continue
		}
		switch nd.Phase {
		case topology.ABC:
			nd.InitialVoltageABC = phasorToABC(src.VoltageSingle)
		default:
			nd.InitialVoltageSingle = src.VoltageSingle
		}
	}

	for _, el := range dyn.Elements() {
		c, ok := el.(component.Component)
		if !ok {
			continue
		}
		if err := c.InitializeFromNodesAndTerminals(dyn.NominalFrequency); err != nil {
			return simerr.Topologyf("initializing %s from power-flow seed: %w", el.ID(), err).WithComponent(el.ID())
		}
	}
	return nil
}
