// Package component defines the polymorphic electrical-element contract
// (spec §4.1) and the concrete exemplar components: resistor, inductor,
// capacitor, current/voltage source, switch, pi-line, synchronous
// generator, and three-winding transformer.
//
// Deliberately avoids a deep class hierarchy: every concrete type embeds
// Base for id/name/terminal bookkeeping and otherwise implements the
// Component capability interface directly (spec §9 "Polymorphism over
// components").
package component

import (
	"github.com/dpsimgo/corepsim/pkg/attribute"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

// Meta is a component's static metadata, queried once at topology build
// time (spec §4.1 item 1).
type Meta struct {
	NumTerminals    int
	NumVirtualNodes int
	Frequencies     []float64
	Domain          topology.Domain
}

// RHSContribution is one (matrixIndex, value) pair a component's pre-step
// contributes to the right-hand-side vector (spec §4.1 item 3).
type RHSContribution struct {
	Index int
	Value float64
	// Imag is non-zero only for SP/DP (complex) contributions.
	Imag float64
}

// Component is the capability interface every electrical element
// satisfies (spec §4.1).
type Component interface {
	topology.Element

	Meta() Meta

	// InitializeFromNodesAndTerminals computes internal parameters
	// (reactance, initial interface voltage/current, virtual-node state)
	// from the terminal nodes' seeded voltages, at nominal frequency
	// nomFreq. After it returns, the component is in a physically
	// consistent steady state matching its terminal voltages (spec §4.1
	// item 2).
	InitializeFromNodesAndTerminals(nomFreq float64) error

	// PreStep produces the step's RHS contributions, depending only on
	// state as of the previous PostStep (spec §4.1 item 3).
	PreStep(t, dt float64) ([]RHSContribution, error)

	// PostStep reads the freshly solved node-voltage vector and updates
	// interface voltage/current and any internal integrator state (spec
	// §4.1 item 4).
	PostStep(sol sysmatrix.Solution) error

	// Stamp adds this component's conductance contributions to the
	// shared system matrix. Called once per matrix era; must be
	// idempotent w.r.t. re-assembly and additive w.r.t. other components
	// (spec §4.1 item 5).
	Stamp(m sysmatrix.LHS, era sysmatrix.Era) error

	// Attributes returns the component's named attribute table (spec
	// §4.1 item 6).
	Attributes() attribute.Table
}

// Switchable is implemented by components that can change topology at
// runtime. A transition invalidates the owning topology's matrix era
// (spec §4.1, §4.3).
type Switchable interface {
	Open() error
	Close() error
}

// Base holds the id/name/terminal/virtual-node bookkeeping every concrete
// component embeds, mirroring the teacher's BaseDevice pattern.
type Base struct {
	id        string
	name      string
	terminals []*topology.Terminal
	vnodes    []*topology.VirtualNode
	domain    topology.Domain
}

// NewBase constructs the embeddable bookkeeping struct.
func NewBase(id, name string, domain topology.Domain) Base {
	return Base{id: id, name: name, domain: domain}
}

func (b *Base) ID() string                   { return b.id }
func (b *Base) Name() string                 { return b.name }
func (b *Base) Domain() topology.Domain      { return b.domain }
func (b *Base) Terminals() []*topology.Terminal { return b.terminals }
func (b *Base) VirtualNodes() []*topology.VirtualNode { return b.vnodes }

func (b *Base) SetTerminals(t []*topology.Terminal)          { b.terminals = t }
func (b *Base) SetVirtualNodes(v []*topology.VirtualNode)    { b.vnodes = v }

// NodeIndex returns the matrix index of terminal i, or GroundIndex.
func (b *Base) NodeIndex(i int) int {
	if i < 0 || i >= len(b.terminals) {
		return topology.GroundIndex
	}
	return b.terminals[i].NodeIndex()
}

// VNodeIndex returns the matrix index of virtual node i, or GroundIndex.
func (b *Base) VNodeIndex(i int) int {
	if i < 0 || i >= len(b.vnodes) {
		return topology.GroundIndex
	}
	return b.vnodes[i].Index
}
