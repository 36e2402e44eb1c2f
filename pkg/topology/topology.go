package topology

import (
	"strconv"

	"github.com/dpsimgo/corepsim/simerr"
)

// Element is the narrow view of a component the topology needs in order
// to wire terminals and allocate virtual nodes, without depending on the
// full component.Component contract (stamp/pre-step/post-step live in
// pkg/component, which imports pkg/topology — not the other way around).
type Element interface {
	ID() string
	Name() string
	NumTerminals() int
	NumVirtualNodes() int
	Domain() Domain
	SetVirtualNodes([]*VirtualNode)
	SetTerminals([]*Terminal)
}

// SystemTopology is the ordered set of nodes and components plus the
// nominal frequency (spec §3). The generation counter is bumped by switch
// events; the solver keys its factorized-matrix cache on
// (Δt, generation) — spec §3 "SystemMatrix era", §9 "Matrix era
// invalidation".
type SystemTopology struct {
	NominalFrequency float64

	nodes      []*Node // regular + virtual, insertion order
	nodeByName map[string]*Node
	elements   []Element
	ids        map[string]bool

	generation int
	indexed    bool
}

// New creates an empty topology for the given nominal frequency in Hz.
func New(nominalFrequency float64) *SystemTopology {
	return &SystemTopology{
		NominalFrequency: nominalFrequency,
		nodeByName:       make(map[string]*Node),
		ids:              make(map[string]bool),
	}
}

// Generation returns the current topology-era generation counter.
func (t *SystemTopology) Generation() int { return t.generation }

// BumpGeneration invalidates the cached system matrix; called by a switch
// transitioning open<->closed (spec §4.3, §9).
func (t *SystemTopology) BumpGeneration() { t.generation++ }

// GetOrCreateNode returns the named node, creating it with the given
// phase type if it doesn't exist yet. "0" and "GND" (case-sensitive, as
// the CIM/netlist loaders normalize upstream) resolve to Ground.
func (t *SystemTopology) GetOrCreateNode(name string, phase PhaseType) (*Node, error) {
	if name == "0" || name == "GND" {
		return Ground, nil
	}
	if n, ok := t.nodeByName[name]; ok {
		if n.Phase != phase {
			return nil, simerr.Topologyf("node %q: mismatched phase types (%s vs %s)", name, n.Phase, phase)
		}
		return n, nil
	}
	n := &Node{Name: name, Phase: phase, Index: GroundIndex}
	t.nodeByName[name] = n
	t.nodes = append(t.nodes, n)
	return n, nil
}

// AddComponent resolves terminalNodeNames into terminals (creating nodes
// as needed), allocates the component's declared virtual nodes, and
// registers the component. Must be called before Index().
func (t *SystemTopology) AddComponent(c Element, terminalNodeNames []string) error {
	if t.indexed {
		return simerr.Topologyf("component %s: cannot add after indexing", c.ID())
	}
	if t.ids[c.ID()] {
		return simerr.Topologyf("duplicate component id %q", c.ID())
	}
	if len(terminalNodeNames) != c.NumTerminals() {
		return simerr.Topologyf("component %s: expected %d terminal(s), got %d", c.ID(), c.NumTerminals(), len(terminalNodeNames))
	}

	phase := c.Domain().Phase()
	terminals := make([]*Terminal, len(terminalNodeNames))
	for i, name := range terminalNodeNames {
		n, err := t.GetOrCreateNode(name, phase)
		if err != nil {
			return err
		}
		terminals[i] = &Terminal{Node: n}
	}
	c.SetTerminals(terminals)

	if nv := c.NumVirtualNodes(); nv > 0 {
		vns := make([]*VirtualNode, nv)
		for i := range vns {
			vn := &VirtualNode{
				Node:    Node{Name: c.ID() + ".vn" + strconv.Itoa(i), Phase: phase, Index: GroundIndex},
				OwnerID: c.ID(),
			}
			vns[i] = vn
			t.nodes = append(t.nodes, &vn.Node)
		}
		c.SetVirtualNodes(vns)
	}

	t.ids[c.ID()] = true
	t.elements = append(t.elements, c)
	return nil
}

// Elements returns the registered components in insertion order (spec §5:
// "component pre-step order = topology insertion order").
func (t *SystemTopology) Elements() []Element { return t.elements }

// Nodes returns every regular and virtual node, in insertion order.
func (t *SystemTopology) Nodes() []*Node { return t.nodes }

// Index assigns a compact, deterministic matrix index to every non-ground
// node in insertion order (spec §3 invariant), consuming 3 rows for ABC
// nodes. Returns the total system size (number of scalar unknowns).
func (t *SystemTopology) Index() int {
	next := 1 // 1-based, matching the sparse solver's indexing convention
	for _, n := range t.nodes {
		n.Index = next
		next += n.Phase.RowCount()
	}
	t.indexed = true
	return next - 1
}
