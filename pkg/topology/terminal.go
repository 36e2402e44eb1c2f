package topology

// Terminal pairs one port of a component to a node, and holds the
// per-terminal observed voltage/current the component's post-step fills
// in (spec §3).
type Terminal struct {
	Node *Node

	VoltageSingle complex128
	VoltageABC    [3]float64
	CurrentSingle complex128
	CurrentABC    [3]float64
}

// NodeIndex returns the terminal's node's matrix index, or GroundIndex if
// the terminal is grounded.
func (t *Terminal) NodeIndex() int {
	if t.Node == nil {
		return GroundIndex
	}
	return t.Node.Index
}
