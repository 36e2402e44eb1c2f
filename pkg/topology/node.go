package topology

// PhaseType distinguishes a single complex-scalar node (used by SP and DP
// domains) from a three-phase real node (used by EMT), per spec §3.
type PhaseType int

const (
	Single PhaseType = iota
	ABC
)

func (p PhaseType) String() string {
	if p == ABC {
		return "abc"
	}
	return "single"
}

// RowCount is the number of consecutive matrix rows/columns a node of this
// phase type occupies: 1 for a complex scalar (Single), 3 for a three-phase
// real node (ABC) — spec §3 invariant "For EMT/ABC nodes, the matrix index
// spans three consecutive rows/columns."
func (p PhaseType) RowCount() int {
	if p == ABC {
		return 3
	}
	return 1
}

// Domain is the simulation domain a component is built for: steady-state
// phasor, dynamic phasor, or electromagnetic transient (spec §3, §4.2).
type Domain int

const (
	SP Domain = iota
	DP
	EMT
)

func (d Domain) String() string {
	switch d {
	case SP:
		return "SP"
	case DP:
		return "DP"
	case EMT:
		return "EMT"
	default:
		return "unknown"
	}
}

// Phase returns the node representation a domain's terminals use: EMT
// nodes are three-phase real (ABC); SP and DP nodes are single complex
// scalars (the DP carrier envelope, or the SP phasor).
func (d Domain) Phase() PhaseType {
	if d == EMT {
		return ABC
	}
	return Single
}

// GroundIndex is the sentinel matrix index for the ground node, excluded
// from the system matrix (spec §3).
const GroundIndex = -1

// Node is a named attachment point in the topology. Its lifetime spans one
// simulation run (spec §3).
type Node struct {
	Name  string
	Phase PhaseType
	Index int // GroundIndex (-1) until indexed, or assigned by Index()

	// InitialVoltage seeds the node before the first pre-step (e.g. from a
	// converged power-flow result, see pkg/initfrompf).
	InitialVoltageSingle complex128
	InitialVoltageABC    [3]float64

	// VoltageSingle/VoltageABC hold the current solved voltage, written
	// back by the solver after each linear solve.
	VoltageSingle complex128
	VoltageABC    [3]float64
}

// IsGround reports whether this node is the ground reference.
func (n *Node) IsGround() bool { return n == nil || n.Index == GroundIndex }

// VirtualNode is topologically indistinguishable from a Node but is owned
// by exactly one component and destroyed with it (spec §3). The topology
// allocates virtual nodes in an arena indexed alongside regular nodes, so
// no component ever holds a raw pointer that outlives the topology.
type VirtualNode struct {
	Node
	OwnerID string
}

// Ground is the shared sentinel node every terminal resolves to when a
// netlist or loader names "0" or "GND".
var Ground = &Node{Name: "GND", Index: GroundIndex}
