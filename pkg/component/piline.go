package component

import (
	"github.com/dpsimgo/corepsim/pkg/attribute"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

// PiLine is the pi-equivalent transmission-line exemplar: a series R+L
// branch through an owned virtual node (the midpoint), with C/2 shunt
// capacitance at each terminal (spec §4.2, §"Virtual node"). Built by
// composing the three other exemplar primitives rather than re-deriving
// their companion models.
type PiLine struct {
	Base
	ROhms, LHenries, CFarads float64

	series   *Resistor
	seriesL  *Inductor
	shunt1   *Capacitor
	shunt2   *Capacitor
}

var _ Component = (*PiLine)(nil)

// NewPiLine builds a 2-terminal pi-equivalent line with total series
// resistance ROhms, series inductance LHenries, and total shunt
// capacitance CFarads (split C/2 at each end).
func NewPiLine(id, name string, domain topology.Domain, rOhms, lHenries, cFarads float64) (*PiLine, error) {
	if rOhms <= 0 {
		return nil, componentParamError(id, "series resistance must be positive")
	}
	if lHenries <= 0 {
		return nil, componentParamError(id, "series inductance must be positive")
	}
	if cFarads < 0 {
		return nil, componentParamError(id, "shunt capacitance must be non-negative")
	}

	series, err := NewResistor(id+".R", name+".R", domain, rOhms)
	if err != nil {
		return nil, err
	}
	seriesL, err := NewInductor(id+".L", name+".L", domain, lHenries)
	if err != nil {
		return nil, err
	}

	pl := &PiLine{
		Base:     NewBase(id, name, domain),
		ROhms:    rOhms,
		LHenries: lHenries,
		CFarads:  cFarads,
		series:   series,
		seriesL:  seriesL,
	}
	if cFarads > 0 {
		shunt1, err := NewCapacitor(id+".C1", name+".C1", domain, cFarads/2)
		if err != nil {
			return nil, err
		}
		shunt2, err := NewCapacitor(id+".C2", name+".C2", domain, cFarads/2)
		if err != nil {
			return nil, err
		}
		pl.shunt1, pl.shunt2 = shunt1, shunt2
	}
	return pl, nil
}

func (pl *PiLine) NumTerminals() int    { return 2 }
func (pl *PiLine) NumVirtualNodes() int { return 1 }
func (pl *PiLine) Meta() Meta {
	return Meta{NumTerminals: 2, NumVirtualNodes: 1, Domain: pl.Domain()}
}

// wireSubComponents gives each internal primitive synthetic terminals
// pointing at the line's actual terminal nodes and its owned virtual
// (midpoint) node, so their existing Stamp/PreStep/PostStep logic runs
// unmodified.
func (pl *PiLine) wireSubComponents() {
	from, to := pl.Terminals()[0], pl.Terminals()[1]
	mid := &topology.Terminal{Node: &pl.VirtualNodes()[0].Node}

	pl.series.SetTerminals([]*topology.Terminal{from, mid})
	pl.seriesL.SetTerminals([]*topology.Terminal{mid, to})
	if pl.shunt1 != nil {
		pl.shunt1.SetTerminals([]*topology.Terminal{from, groundTerminal()})
		pl.shunt2.SetTerminals([]*topology.Terminal{to, groundTerminal()})
	}
}

func groundTerminal() *topology.Terminal { return &topology.Terminal{Node: topology.Ground} }

func (pl *PiLine) InitializeFromNodesAndTerminals(nomFreq float64) error {
	pl.wireSubComponents()
	if err := pl.series.InitializeFromNodesAndTerminals(nomFreq); err != nil {
		return err
	}
	if err := pl.seriesL.InitializeFromNodesAndTerminals(nomFreq); err != nil {
		return err
	}
	if pl.shunt1 != nil {
		if err := pl.shunt1.InitializeFromNodesAndTerminals(nomFreq); err != nil {
			return err
		}
		if err := pl.shunt2.InitializeFromNodesAndTerminals(nomFreq); err != nil {
			return err
		}
	}
	return nil
}

func (pl *PiLine) PreStep(t, dt float64) ([]RHSContribution, error) {
	var out []RHSContribution
	rhs, err := pl.series.PreStep(t, dt)
	if err != nil {
		return nil, err
	}
	out = append(out, rhs...)
	rhs, err = pl.seriesL.PreStep(t, dt)
	if err != nil {
		return nil, err
	}
	out = append(out, rhs...)
	if pl.shunt1 != nil {
		rhs, err = pl.shunt1.PreStep(t, dt)
		if err != nil {
			return nil, err
		}
		out = append(out, rhs...)
		rhs, err = pl.shunt2.PreStep(t, dt)
		if err != nil {
			return nil, err
		}
		out = append(out, rhs...)
	}
	return out, nil
}

func (pl *PiLine) PostStep(sol sysmatrix.Solution) error {
	if err := pl.series.PostStep(sol); err != nil {
		return err
	}
	if err := pl.seriesL.PostStep(sol); err != nil {
		return err
	}
	if pl.shunt1 != nil {
		if err := pl.shunt1.PostStep(sol); err != nil {
			return err
		}
		if err := pl.shunt2.PostStep(sol); err != nil {
			return err
		}
	}
	return nil
}

func (pl *PiLine) Stamp(m sysmatrix.LHS, era sysmatrix.Era) error {
	if err := pl.series.Stamp(m, era); err != nil {
		return err
	}
	if err := pl.seriesL.Stamp(m, era); err != nil {
		return err
	}
	if pl.shunt1 != nil {
		if err := pl.shunt1.Stamp(m, era); err != nil {
			return err
		}
		if err := pl.shunt2.Stamp(m, era); err != nil {
			return err
		}
	}
	return nil
}

func (pl *PiLine) Attributes() attribute.Table {
	t := attribute.New()
	t["R"] = attribute.NewReal(func() float64 { return pl.ROhms }, nil)
	t["L"] = attribute.NewReal(func() float64 { return pl.LHenries }, nil)
	t["C"] = attribute.NewReal(func() float64 { return pl.CFarads }, nil)
	for k, v := range pl.series.Attributes() {
		t["seriesR."+k] = v
	}
	for k, v := range pl.seriesL.Attributes() {
		t["seriesL."+k] = v
	}
	if pl.shunt1 != nil {
		for k, v := range pl.shunt1.Attributes() {
			t["shunt1."+k] = v
		}
		for k, v := range pl.shunt2.Attributes() {
			t["shunt2."+k] = v
		}
	}
	return t
}
