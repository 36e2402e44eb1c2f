package component

import (
	"math"

	"github.com/dpsimgo/corepsim/internal/consts"
	"github.com/dpsimgo/corepsim/pkg/attribute"
	"github.com/dpsimgo/corepsim/pkg/numeric"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

// SynchronousGenerator is the EMT round-rotor machine exemplar: a pure
// current-injection component (no LHS stamp) driven by a 7-state flux
// model (stator q,d,0 plus rotor kq1,kq2,fd,kd), integrated with forward
// Euler, per spec §4.2/§9. Grounded on original_source's
// SynchronGeneratorEMT per-unit construction path; the stator-referred
// construction path is unsupported by omission — no state-type field
// exists to request it (it is demonstrably incomplete in the source
// material: torque and several initial states are never computed there).
// It attaches to a single three-phase (ABC) terminal and drives all
// three phase rows of that node, matching the `idx+phase` convention
// Resistor/Switch/PiLine use for EMT stamping.
type SynchronousGenerator struct {
	Base

	// Per-unit machine parameters (Krause notation).
	Rs, Ll, Lmd, Lmq                 float64
	Rfd, Llfd, Rkd, Llkd             float64
	Rkq1, Llkq1, Rkq2, Llkq2         float64
	H float64 // inertia constant, seconds
	PoleNumber int

	NomPowerVA, NomVoltLL, NomFreqHz float64
	NomFieldCurrent                  float64

	// Bases.
	baseV, baseI, baseZ, baseOmElec, baseOmMech, baseL, basePsi float64

	// Derived matrices (gonum-inverted once at initialization).
	inductance [7][7]float64
	resistance [7][7]float64
	reverse    [7]float64
	reactance  [7][7]float64 // inductance^-1

	// Mechanical/electrical state.
	omMech      float64 // per-unit mechanical speed
	thetaMech   float64
	fluxes      [7]float64
	currents    [7]float64
	mechPowerPU float64
	lastDt      float64

	// Interface state.
	voltageABC [3]float64
	currentABC [3]float64

	// FluxDeadband zeroes any flux derivative smaller than this magnitude
	// before integration (spec §9 Open Question: present but undocumented
	// in the original; defaults to 0 = disabled here).
	FluxDeadband float64

	fieldVoltagePU float64
}

var _ Component = (*SynchronousGenerator)(nil)

// SynchronousGeneratorParams collects the per-unit nameplate and Krause
// circuit parameters needed to build a SynchronousGenerator.
type SynchronousGeneratorParams struct {
	NomPowerVA, NomVoltLL, NomFreqHz float64
	PoleNumber                       int
	NomFieldCurrent                  float64

	Rs, Ll, Lmd, Lmq         float64
	Rfd, Llfd, Rkd, Llkd     float64
	Rkq1, Llkq1, Rkq2, Llkq2 float64
	H                        float64

	// InitActivePowerW / InitReactivePowerVAR / InitTerminalVoltV /
	// InitVoltAngleRad seed the steady-state flux/angle state (spec §4.1
	// item 2).
	InitActivePowerW, InitReactivePowerVAR, InitTerminalVoltV, InitVoltAngleRad float64
}

// NewSynchronousGenerator builds a single-terminal (ABC) EMT synchronous
// generator from per-unit parameters. Only per-unit construction is
// supported (spec §9 Open Question resolution).
func NewSynchronousGenerator(id, name string, p SynchronousGeneratorParams) (*SynchronousGenerator, error) {
	if p.NomPowerVA <= 0 || p.NomVoltLL <= 0 || p.NomFreqHz <= 0 {
		return nil, componentParamError(id, "nameplate power/voltage/frequency must be positive")
	}
	if p.PoleNumber <= 0 {
		return nil, componentParamError(id, "pole number must be positive")
	}

	g := &SynchronousGenerator{
		Base:            NewBase(id, name, topology.EMT),
		Rs:              p.Rs, Ll: p.Ll, Lmd: p.Lmd, Lmq: p.Lmq,
		Rfd: p.Rfd, Llfd: p.Llfd, Rkd: p.Rkd, Llkd: p.Llkd,
		Rkq1: p.Rkq1, Llkq1: p.Llkq1, Rkq2: p.Rkq2, Llkq2: p.Llkq2,
		H:               p.H,
		PoleNumber:      p.PoleNumber,
		NomPowerVA:      p.NomPowerVA,
		NomVoltLL:       p.NomVoltLL,
		NomFreqHz:       p.NomFreqHz,
		NomFieldCurrent: p.NomFieldCurrent,
	}

	baseVRMS := p.NomVoltLL / math.Sqrt(3)
	g.baseV = baseVRMS * math.Sqrt(2)
	baseIRMS := p.NomPowerVA / (3 * baseVRMS)
	g.baseI = baseIRMS * math.Sqrt(2)
	g.baseZ = g.baseV / g.baseI
	g.baseOmElec = consts.TwoPi * p.NomFreqHz
	g.baseOmMech = g.baseOmElec / (float64(p.PoleNumber) / 2)
	g.baseL = g.baseZ / g.baseOmElec
	g.basePsi = g.baseL * g.baseI

	g.buildMatrices()
	g.initStates(p.InitActivePowerW, p.InitReactivePowerVAR, p.InitTerminalVoltV, p.InitVoltAngleRad)

	return g, nil
}

func (g *SynchronousGenerator) NumTerminals() int    { return 1 }
func (g *SynchronousGenerator) NumVirtualNodes() int { return 0 }
func (g *SynchronousGenerator) Meta() Meta {
	return Meta{NumTerminals: 1, Domain: topology.EMT, Frequencies: []float64{g.NomFreqHz}}
}

// buildMatrices assembles the 7x7 inductance/resistance matrices (state
// order q,d,0,kq1,kq2,fd,kd, matching original_source's row layout and
// pkg/numeric.DQ0's q-then-d convention) and inverts the inductance
// matrix once via gonum.
func (g *SynchronousGenerator) buildMatrices() {
	L := &g.inductance
	L[0] = [7]float64{g.Ll + g.Lmq, 0, 0, g.Lmq, g.Lmq, 0, 0}
	L[1] = [7]float64{0, g.Ll + g.Lmd, 0, 0, 0, g.Lmd, g.Lmd}
	L[2] = [7]float64{0, 0, g.Ll, 0, 0, 0, 0}
	L[3] = [7]float64{g.Lmq, 0, 0, g.Llkq1 + g.Lmq, g.Lmq, 0, 0}
	L[4] = [7]float64{g.Lmq, 0, 0, g.Lmq, g.Llkq2 + g.Lmq, 0, 0}
	L[5] = [7]float64{0, g.Lmd, 0, 0, 0, g.Llfd + g.Lmd, g.Lmd}
	L[6] = [7]float64{0, g.Lmd, 0, 0, 0, g.Lmd, g.Llkd + g.Lmd}

	R := &g.resistance
	diag := [7]float64{g.Rs, g.Rs, g.Rs, g.Rkq1, g.Rkq2, g.Rfd, g.Rkd}
	for i := 0; i < 7; i++ {
		R[i] = [7]float64{}
		R[i][i] = diag[i]
	}

	g.reverse = [7]float64{-1, -1, -1, 1, 1, 1, 1}

	flat := make([]float64, 49)
	for i := 0; i < 7; i++ {
		for j := 0; j < 7; j++ {
			flat[i*7+j] = L[i][j]
		}
	}
	inv, err := numeric.InvertReal(7, flat)
	if err != nil {
		// A non-invertible inductance matrix means the supplied
		// parameters describe an unphysical machine; fall back to the
		// identity so the component still runs instead of panicking.
		inv = make([]float64, 49)
		for i := 0; i < 7; i++ {
			inv[i*7+i] = 1
		}
	}
	for i := 0; i < 7; i++ {
		for j := 0; j < 7; j++ {
			g.reactance[i][j] = inv[i*7+j]
		}
	}
}

// initStates seeds the steady-state flux/current/angle state from a
// terminal operating point, per original_source's initStatesInPerUnit.
func (g *SynchronousGenerator) initStates(initP, initQ, initVt, initAngle float64) {
	pu := initP / g.NomPowerVA
	qu := initQ / g.NomPowerVA
	s := math.Hypot(pu, qu)
	vt := initVt / g.baseV
	if vt == 0 {
		vt = 1
	}
	it := 0.0
	if vt != 0 {
		it = s / vt
	}
	pf := 0.0
	if s != 0 {
		pf = math.Acos(pu / s)
	}

	delta := math.Atan(((g.Lmq+g.Ll)*it*math.Cos(pf) - g.Rs*it*math.Sin(pf)) /
		(vt + g.Rs*it*math.Cos(pf) + (g.Lmq+g.Ll)*it*math.Sin(pf)))

	vd := vt * math.Sin(delta)
	vq := vt * math.Cos(delta)
	id := it * math.Sin(delta+pf)
	iq := it * math.Cos(delta+pf)

	ifd := (vq + g.Rs*iq + (g.Lmd+g.Ll)*id) / g.Lmd
	vfd := g.Rfd * ifd
	g.fieldVoltagePU = vfd

	psid := vq + g.Rs*iq
	psiq := -vd - g.Rs*id
	psifd := (g.Lmd+g.Llfd)*ifd - g.Lmd*id
	psikd := g.Lmd * (ifd - id)
	psikq1 := -g.Lmq * iq
	psikq2 := -g.Lmq * iq

	g.omMech = 1
	g.currents = [7]float64{iq, id, 0, 0, 0, ifd, 0}
	g.fluxes = [7]float64{psiq, psid, 0, psikq1, psikq2, psifd, psikd}
	g.thetaMech = initAngle + delta
}

func (g *SynchronousGenerator) InitializeFromNodesAndTerminals(nomFreq float64) error {
	dq0 := numeric.DQ0{g.currents[0], g.currents[1], g.currents[2]}
	abc := numeric.InversePark(g.thetaMech, dq0)
	for i := 0; i < 3; i++ {
		g.currentABC[i] = abc[i] * g.baseI
	}
	return nil
}

func (g *SynchronousGenerator) PreStep(t, dt float64) ([]RHSContribution, error) {
	idx := g.NodeIndex(0)
	if idx == topology.GroundIndex {
		return nil, nil
	}
	out := make([]RHSContribution, 0, 3)
	for i := 0; i < 3; i++ {
		out = append(out, RHSContribution{Index: idx + i, Value: g.currentABC[i]})
	}
	return out, nil
}

// PostStep reads the terminal voltage, park-transforms it, integrates the
// 7-state flux/speed/angle model forward one step (forward Euler, per
// original_source's stepInPerUnit), and recomputes the injected abc
// current for the next step's PreStep.
func (g *SynchronousGenerator) PostStep(sol sysmatrix.Solution) error {
	var abcV numeric.ABC
	idx := g.NodeIndex(0)
	for i := 0; i < 3; i++ {
		v := 0.0
		if idx != topology.GroundIndex {
			v = sol.At(idx + i)
		}
		abcV[i] = v / g.baseV
		g.voltageABC[i] = v
	}
	dq0V := numeric.Park(g.thetaMech, abcV)

	mechTorque := g.mechPowerPU
	if g.omMech != 0 {
		mechTorque = g.mechPowerPU / g.omMech
	}
	elecTorque := g.fluxes[1]*g.currents[0] - g.fluxes[0]*g.currents[1]

	dt := g.lastDt

	g.omMech += dt * (1 / (2 * g.H)) * (mechTorque - elecTorque)

	voltages := [7]float64{dq0V[0], dq0V[1], dq0V[2], 0, 0, g.fieldVoltagePU, 0}

	// currents = reverse * reactance * fluxes
	var rxFlux [7]float64
	for i := 0; i < 7; i++ {
		sum := 0.0
		for j := 0; j < 7; j++ {
			sum += g.reactance[i][j] * g.fluxes[j]
		}
		rxFlux[i] = g.reverse[i] * sum
	}
	g.currents = rxFlux

	var dtFlux [7]float64
	for i := 0; i < 7; i++ {
		rCurrent := 0.0
		for j := 0; j < 7; j++ {
			rCurrent += g.resistance[i][j] * g.currents[j]
		}
		dtFlux[i] = voltages[i] - rCurrent
	}
	dtFlux[0] -= g.omMech * g.fluxes[1]
	dtFlux[1] += g.omMech * g.fluxes[0]

	if g.FluxDeadband > 0 {
		for i := range dtFlux {
			if math.Abs(dtFlux[i]) < g.FluxDeadband {
				dtFlux[i] = 0
			}
		}
	}

	for i := range g.fluxes {
		g.fluxes[i] += dt * g.baseOmElec * dtFlux[i]
	}

	for i := 0; i < 7; i++ {
		sum := 0.0
		for j := 0; j < 7; j++ {
			sum += g.reactance[i][j] * g.fluxes[j]
		}
		g.currents[i] = g.reverse[i] * sum
	}

	g.thetaMech += dt * (g.omMech * g.baseOmMech)

	dq0I := numeric.DQ0{g.currents[0], g.currents[1], g.currents[2]}
	abcI := numeric.InversePark(g.thetaMech, dq0I)
	for i := 0; i < 3; i++ {
		g.currentABC[i] = abcI[i] * g.baseI
	}
	return nil
}

// Stamp is a no-op: the machine is modeled as a pure current injection
// against terminal voltage solved on the previous step, never as an
// admittance (spec §4.1 item 5 allows a zero-contribution Stamp).
func (g *SynchronousGenerator) Stamp(m sysmatrix.LHS, era sysmatrix.Era) error {
	g.lastDt = era.Dt
	return nil
}

func (g *SynchronousGenerator) Attributes() attribute.Table {
	t := attribute.New()
	t["V"] = attribute.NewMatrixReal(func() []float64 { return g.voltageABC[:] }, nil)
	t["I"] = attribute.NewMatrixReal(func() []float64 { return g.currentABC[:] }, nil)
	t["OmegaMechPU"] = attribute.NewReal(func() float64 { return g.omMech }, nil)
	t["ThetaMech"] = attribute.NewReal(func() float64 { return g.thetaMech }, nil)
	t["MechPowerPU"] = attribute.NewReal(func() float64 { return g.mechPowerPU }, func(v float64) { g.mechPowerPU = v })
	t["FieldVoltagePU"] = attribute.NewReal(func() float64 { return g.fieldVoltagePU }, func(v float64) { g.fieldVoltagePU = v })
	return t
}
