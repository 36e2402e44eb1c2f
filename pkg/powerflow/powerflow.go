// Package powerflow implements the Newton-Raphson steady-state bus voltage
// solver ("NRP", spec §4.6): PV/PQ/VD bus types, an analytically assembled
// Jacobian, and per-component interface-quantity updates once the bus
// voltages converge.
package powerflow

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/dpsimgo/corepsim/pkg/component"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
	"github.com/dpsimgo/corepsim/simerr"
)

// BusType is one of the three power-flow bus kinds (spec §4.6).
type BusType int

const (
	// PQ buses fix injected active and reactive power; voltage magnitude
	// and angle are unknowns.
	PQ BusType = iota
	// PV buses fix injected active power and voltage magnitude; voltage
	// angle and reactive power are unknowns.
	PV
	// VD is the slack/reference bus: voltage magnitude and angle are
	// fixed, injected power is an output.
	VD
)

func (t BusType) String() string {
	switch t {
	case PV:
		return "PV"
	case VD:
		return "VD"
	default:
		return "PQ"
	}
}

// BusSpec is one bus's power-flow specification, in the same order as the
// topology's node index (see NodeOrder).
type BusSpec struct {
	Name   string
	Type   BusType
	P, Q   float64 // specified injected real/reactive power, per-unit
	VMag   float64 // specified voltage magnitude (PV, VD); flat-start 1.0 if zero on PQ
	VAngle float64 // specified voltage angle, radians (VD only)
}

// Options configures the Newton-Raphson iteration (spec §4.6 defaults).
type Options struct {
	Tolerance     float64
	MaxIterations int
}

// DefaultOptions returns spec.md §4.6's defaults: ε=1e-9, N_max=40.
func DefaultOptions() Options { return Options{Tolerance: 1e-9, MaxIterations: 40} }

// Result is the converged (or last-iterate) bus voltage solution.
type Result struct {
	V           []complex128 // per bus, same order as the BusSpec slice
	Iterations  int
	Converged   bool
	MaxMismatch float64
}

// Solve runs Newton-Raphson power flow against a fixed bus admittance
// matrix ybus (n x n, same order as buses), per spec §4.6: classic NR on
// the power-mismatch equations, analytic Jacobian each iteration,
// convergence when max |ΔP|,|ΔQ| < ε, divergence declared after N_max
// iterations.
func Solve(buses []BusSpec, ybus [][]complex128, opts Options) (*Result, error) {
	n := len(buses)
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}

	vmag := make([]float64, n)
	vang := make([]float64, n)
	for i, b := range buses {
		switch b.Type {
		case VD:
			vmag[i] = b.VMag
			vang[i] = b.VAngle
		case PV:
			vmag[i] = b.VMag
			vang[i] = 0
		default:
			vmag[i] = 1.0
			if b.VMag > 0 {
				vmag[i] = b.VMag
			}
			vang[i] = 0
		}
	}

	g := make([][]float64, n)
	bb := make([][]float64, n)
	for i := range g {
		g[i] = make([]float64, n)
		bb[i] = make([]float64, n)
		for j := range g[i] {
			g[i][j] = real(ybus[i][j])
			bb[i][j] = imag(ybus[i][j])
		}
	}

	// Unknown ordering: voltage angle for every non-slack bus, then
	// voltage magnitude for every PQ bus.
	angleIdx := make([]int, n)
	magIdx := make([]int, n)
	for i := range angleIdx {
		angleIdx[i], magIdx[i] = -1, -1
	}
	nu := 0
	for i, b := range buses {
		if b.Type != VD {
			angleIdx[i] = nu
			nu++
		}
	}
	for i, b := range buses {
		if b.Type == PQ {
			magIdx[i] = nu
			nu++
		}
	}

	calcP := func(i int) float64 {
		sum := 0.0
		for j := 0; j < n; j++ {
			theta := vang[i] - vang[j]
			sum += vmag[j] * (g[i][j]*math.Cos(theta) + bb[i][j]*math.Sin(theta))
		}
		return vmag[i] * sum
	}
	calcQ := func(i int) float64 {
		sum := 0.0
		for j := 0; j < n; j++ {
			theta := vang[i] - vang[j]
			sum += vmag[j] * (g[i][j]*math.Sin(theta) - bb[i][j]*math.Cos(theta))
		}
		return vmag[i] * sum
	}

	res := &Result{}
	for iter := 0; iter < opts.MaxIterations; iter++ {
		mismatch := make([]float64, nu)
		maxMis := 0.0
		for i, b := range buses {
			if b.Type != VD {
				m := b.P - calcP(i)
				mismatch[angleIdx[i]] = m
				if math.Abs(m) > maxMis {
					maxMis = math.Abs(m)
				}
			}
			if b.Type == PQ {
				m := b.Q - calcQ(i)
				mismatch[magIdx[i]] = m
				if math.Abs(m) > maxMis {
					maxMis = math.Abs(m)
				}
			}
		}
		res.Iterations = iter
		res.MaxMismatch = maxMis
		if maxMis < opts.Tolerance {
			res.Converged = true
			break
		}

		// Jacobian holds d(Pcalc,Qcalc)/d(theta,V); solving J*dx=mismatch
		// and adding dx to x drives f(x)=spec-calc(x) to zero.
		jac := mat.NewDense(nu, nu, nil)
		for i, bi := range buses {
			pi, qi := calcP(i), calcQ(i)
			if bi.Type != VD {
				row := angleIdx[i]
				for k, bk := range buses {
					if bk.Type == VD {
						continue
					}
					col := angleIdx[k]
					var d float64
					if i == k {
						d = -qi - bb[i][i]*vmag[i]*vmag[i]
					} else {
						theta := vang[i] - vang[k]
						d = vmag[i] * vmag[k] * (g[i][k]*math.Sin(theta) - bb[i][k]*math.Cos(theta))
					}
					jac.Set(row, col, d)
				}
				for k, bk := range buses {
					if bk.Type != PQ {
						continue
					}
					col := magIdx[k]
					var d float64
					if i == k {
						d = pi/vmag[i] + g[i][i]*vmag[i]
					} else {
						theta := vang[i] - vang[k]
						d = vmag[i] * (g[i][k]*math.Cos(theta) + bb[i][k]*math.Sin(theta))
					}
					jac.Set(row, col, d)
				}
			}
			if bi.Type == PQ {
				row := magIdx[i]
				for k, bk := range buses {
					if bk.Type == VD {
						continue
					}
					col := angleIdx[k]
					var d float64
					if i == k {
						d = pi - g[i][i]*vmag[i]*vmag[i]
					} else {
						theta := vang[i] - vang[k]
						d = -vmag[i] * vmag[k] * (g[i][k]*math.Cos(theta) + bb[i][k]*math.Sin(theta))
					}
					jac.Set(row, col, d)
				}
				for k, bk := range buses {
					if bk.Type != PQ {
						continue
					}
					col := magIdx[k]
					var d float64
					if i == k {
						d = qi/vmag[i] - bb[i][i]*vmag[i]
					} else {
						theta := vang[i] - vang[k]
						d = vmag[i] * (g[i][k]*math.Sin(theta) - bb[i][k]*math.Cos(theta))
					}
					jac.Set(row, col, d)
				}
			}
		}

		rhs := mat.NewVecDense(nu, mismatch)
		var dx mat.VecDense
		if err := dx.SolveVec(jac, rhs); err != nil {
			return res, simerr.Convergencef("power flow Jacobian solve failed at iteration %d: %w", iter, err)
		}

		for i, b := range buses {
			if b.Type != VD {
				vang[i] += dx.AtVec(angleIdx[i])
			}
			if b.Type == PQ {
				vmag[i] += dx.AtVec(magIdx[i])
			}
		}
	}

	res.V = make([]complex128, n)
	for i := range res.V {
		res.V[i] = complex(vmag[i]*math.Cos(vang[i]), vmag[i]*math.Sin(vang[i]))
	}

	if !res.Converged {
		return res, simerr.Convergencef("power flow failed to converge in %d iterations (max mismatch %.3e)", opts.MaxIterations, res.MaxMismatch)
	}
	return res, nil
}

// denseLHS accumulates component stamps into a dense complex bus
// admittance matrix rather than the sparse per-era system matrix, since
// power-flow bus counts are small and the same Stamp implementations
// (spec §4.1 item 5) apply unmodified.
type denseLHS struct {
	y [][]complex128
}

func (d *denseLHS) AddElement(i, j int, value float64) { d.AddComplexElement(i, j, value, 0) }

func (d *denseLHS) AddComplexElement(i, j int, re, im float64) {
	if i < 1 || i > len(d.y) || j < 1 || j > len(d.y) {
		return
	}
	d.y[i-1][j-1] += complex(re, im)
}

// BuildYBus assembles the bus admittance matrix for an already-indexed SP
// topology by replaying every component's Stamp against a dense complex
// accumulator (spec §4.6 "complex bus admittance matrix Y_bus").
func BuildYBus(topo *topology.SystemTopology, era sysmatrix.Era) ([][]complex128, error) {
	n := 0
	for _, nd := range topo.Nodes() {
		if nd.Index > n {
			n = nd.Index
		}
	}
	y := make([][]complex128, n)
	for i := range y {
		y[i] = make([]complex128, n)
	}
	lhs := &denseLHS{y: y}
	for _, el := range topo.Elements() {
		c, ok := el.(component.Component)
		if !ok {
			continue
		}
		if err := c.Stamp(lhs, era); err != nil {
			return nil, simerr.Topologyf("stamping %s for power flow: %w", el.ID(), err).WithComponent(el.ID())
		}
	}
	return y, nil
}

// NodeOrder returns every non-ground node ordered by its matrix index
// (1-based, matching BuildYBus's bus ordering). A BusSpec slice passed to
// Solve must follow this same order.
func NodeOrder(topo *topology.SystemTopology) []*topology.Node {
	n := 0
	for _, nd := range topo.Nodes() {
		if nd.Index > n {
			n = nd.Index
		}
	}
	order := make([]*topology.Node, n)
	for _, nd := range topo.Nodes() {
		if nd.Index >= 1 {
			order[nd.Index-1] = nd
		}
	}
	return order
}

// DefaultBusSpecs builds a BusSpec slice matching NodeOrder's ordering,
// taking each named bus's spec from named and defaulting every other node
// (including virtual nodes, e.g. a three-winding transformer's star node)
// to a PQ bus with zero injected power — which is exactly the
// power-mismatch equation for a node with no source or load attached.
func DefaultBusSpecs(order []*topology.Node, named map[string]BusSpec) []BusSpec {
	specs := make([]BusSpec, len(order))
	for i, nd := range order {
		if s, ok := named[nd.Name]; ok {
			specs[i] = s
			continue
		}
		specs[i] = BusSpec{Name: nd.Name, Type: PQ, VMag: 1.0}
	}
	return specs
}

// sliceSolution adapts a flat per-bus voltage slice to sysmatrix.Solution
// so a converged power-flow result can drive each component's existing
// PostStep without a parallel code path.
type sliceSolution []complex128

func (s sliceSolution) At(i int) float64 {
	if i < 1 || i > len(s) {
		return 0
	}
	return real(s[i-1])
}

func (s sliceSolution) AtComplex(i int) complex128 {
	if i < 1 || i > len(s) {
		return 0
	}
	return s[i-1]
}

// ApplyToTopology writes a converged result's bus voltages back onto the
// topology's nodes and invokes each component's PostStep so per-component
// interface quantities (spec §4.6 "filled via each component's post-solve
// updater") reflect the power-flow solution.
func ApplyToTopology(topo *topology.SystemTopology, order []*topology.Node, result *Result) error {
	sol := sliceSolution(result.V)
	for i, nd := range order {
		nd.VoltageSingle = result.V[i]
		nd.InitialVoltageSingle = result.V[i]
	}
	for _, el := range topo.Elements() {
		c, ok := el.(component.Component)
		if !ok {
			continue
		}
		if err := c.PostStep(sol); err != nil {
			return simerr.Runtimef("power flow post-solve update for %s: %w", el.ID(), err).WithComponent(el.ID())
		}
	}
	return nil
}
