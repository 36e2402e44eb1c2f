// Package solver drives the dynamic (EMT/DP) modified-nodal-analysis
// time-stepping loop (spec §4.7): pre-step RHS accumulation, event
// application, era-gated re-assembly, solve, write-back, post-step, and
// logger sampling, once per Δt until the run's final time or cancellation.
package solver

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dpsimgo/corepsim/pkg/component"
	"github.com/dpsimgo/corepsim/pkg/datalogger"
	"github.com/dpsimgo/corepsim/pkg/event"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
	"github.com/dpsimgo/corepsim/simerr"
)

// Options configures one dynamic simulation run.
type Options struct {
	Dt        float64
	FinalTime float64
	// CarrierOmega is the DP carrier angular frequency (rad/s); zero for
	// EMT/SP. It is folded into the matrix era alongside Δt and topology
	// generation (spec §3, §9 "Matrix era invalidation").
	CarrierOmega float64
	// IsComplex selects the SP/DP complex system matrix; false selects
	// the EMT real trapezoidal form.
	IsComplex bool
	// Parallel runs each component's PreStep in its own goroutine
	// (golang.org/x/sync/errgroup, no concurrency limit), still reducing
	// RHS contributions back into topology insertion order for
	// reproducibility. Stamp always runs sequentially.
	Parallel bool

	Logger *datalogger.Logger
	Events *event.Queue
	Log    zerolog.Logger
}

// Status reports how a run ended.
type Status int

const (
	Completed Status = iota
	Cancelled
)

// Solver drives the main loop of spec §4.7 over an already-indexed
// topology whose components have already had
// InitializeFromNodesAndTerminals called (directly, or via
// pkg/initfrompf.Transfer).
type Solver struct {
	topo  *topology.SystemTopology
	opts  Options
	comps []component.Component
	byID  map[string]component.Component

	cache  *sysmatrix.Cache
	matrix *sysmatrix.Matrix
	era    sysmatrix.Era
}

// New builds a Solver. topo must already be indexed (topology.Index) and
// every registered element must implement component.Component.
func New(topo *topology.SystemTopology, opts Options) (*Solver, error) {
	if opts.Dt <= 0 {
		return nil, simerr.Parameterf("solver: timestep must be positive")
	}
	els := topo.Elements()
	comps := make([]component.Component, len(els))
	byID := make(map[string]component.Component, len(els))
	for i, el := range els {
		c, ok := el.(component.Component)
		if !ok {
			return nil, simerr.Topologyf("element %s does not implement component.Component", el.ID())
		}
		comps[i] = c
		byID[c.ID()] = c
	}
	return &Solver{
		topo:  topo,
		opts:  opts,
		comps: comps,
		byID:  byID,
		cache: sysmatrix.NewCache(),
	}, nil
}

// systemSize returns the number of scalar unknowns, per topology.Index.
func (s *Solver) systemSize() int {
	size := 0
	for _, nd := range s.topo.Nodes() {
		if nd.Index < 0 {
			continue
		}
		if top := nd.Index + nd.Phase.RowCount() - 1; top > size {
			size = top
		}
	}
	return size
}

// assemble fetches the cached matrix for the current era (stamp
// idempotence, spec §8 invariant 2, means a cache hit is exactly as
// correct as re-stamping) or builds and factorizes a fresh one.
func (s *Solver) assemble() error {
	if m, ok := s.cache.Get(s.era); ok {
		s.matrix = m
		s.matrix.ClearRHS()
		return nil
	}

	m, err := sysmatrix.New(s.systemSize(), s.opts.IsComplex)
	if err != nil {
		return err
	}
	for _, c := range s.comps {
		if err := c.Stamp(m, s.era); err != nil {
			return simerr.Matrixf("stamping %s: %w", c.ID(), err).WithComponent(c.ID()).WithEra(s.era.Generation)
		}
	}
	if err := m.Factor(); err != nil {
		return err
	}
	s.cache.Put(s.era, m)
	s.matrix = m
	return nil
}

// preStep runs every component's PreStep, reducing results back into
// topology insertion order regardless of whether they ran concurrently.
func (s *Solver) preStep(t float64) ([]component.RHSContribution, error) {
	contribs := make([][]component.RHSContribution, len(s.comps))

	if !s.opts.Parallel {
		for i, c := range s.comps {
			rc, err := c.PreStep(t, s.opts.Dt)
			if err != nil {
				return nil, simerr.Runtimef("pre-step %s: %w", c.ID(), err).WithComponent(c.ID()).WithTime(t)
			}
			contribs[i] = rc
		}
	} else {
		var eg errgroup.Group
		for i, c := range s.comps {
			i, c := i, c
			eg.Go(func() error {
				rc, err := c.PreStep(t, s.opts.Dt)
				if err != nil {
					return simerr.Runtimef("pre-step %s: %w", c.ID(), err).WithComponent(c.ID()).WithTime(t)
				}
				contribs[i] = rc
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	var out []component.RHSContribution
	for _, rc := range contribs {
		out = append(out, rc...)
	}
	return out, nil
}

// writeBack copies the freshly solved vector into every non-ground node's
// VoltageSingle/VoltageABC fields.
func (s *Solver) writeBack() {
	for _, nd := range s.topo.Nodes() {
		if nd.IsGround() {
			continue
		}
		if nd.Phase == topology.ABC {
			for i := 0; i < 3; i++ {
				nd.VoltageABC[i] = s.matrix.At(nd.Index + i)
			}
		} else {
			nd.VoltageSingle = s.matrix.AtComplex(nd.Index)
		}
	}
}

func (s *Solver) flush() {
	if s.opts.Logger != nil {
		s.opts.Logger.Flush()
	}
}

// Run executes the main loop of spec §4.7 until FinalTime or ctx is
// cancelled, checked once per step boundary.
func (s *Solver) Run(ctx context.Context) (Status, error) {
	s.era = sysmatrix.Era{Dt: s.opts.Dt, Generation: s.topo.Generation(), CarrierOmega: s.opts.CarrierOmega}
	if err := s.assemble(); err != nil {
		return Completed, err
	}
	defer s.cache.Destroy()

	t := 0.0
	for t < s.opts.FinalTime {
		select {
		case <-ctx.Done():
			s.flush()
			return Cancelled, nil
		default:
		}

		contribs, err := s.preStep(t)
		if err != nil {
			s.flush()
			return Completed, err
		}

		if s.opts.Events != nil {
			due := s.opts.Events.Due(t)
			for _, evErr := range event.Apply(due, s.byID) {
				s.opts.Log.Warn().Err(evErr).Float64("t", t).Msg("event application failed")
			}
		}

		wantEra := sysmatrix.Era{Dt: s.opts.Dt, Generation: s.topo.Generation(), CarrierOmega: s.opts.CarrierOmega}
		if wantEra != s.era {
			s.era = wantEra
			if err := s.assemble(); err != nil {
				s.flush()
				return Completed, err
			}
		} else {
			s.matrix.ClearRHS()
		}

		for _, rc := range contribs {
			if s.opts.IsComplex {
				s.matrix.AddComplexRHS(rc.Index, rc.Value, rc.Imag)
			} else {
				s.matrix.AddRHS(rc.Index, rc.Value)
			}
		}

		if err := s.matrix.Solve(); err != nil {
			s.flush()
			return Completed, simerr.Matrixf("solving at t=%g: %w", t, err).WithTime(t).WithEra(s.era.Generation)
		}

		s.writeBack()

		for _, c := range s.comps {
			if err := c.PostStep(s.matrix); err != nil {
				s.flush()
				return Completed, simerr.Runtimef("post-step %s: %w", c.ID(), err).WithComponent(c.ID()).WithTime(t)
			}
		}

		if s.opts.Logger != nil {
			if err := s.opts.Logger.Sample(t); err != nil {
				return Completed, err
			}
		}

		t += s.opts.Dt
	}

	s.flush()
	return Completed, nil
}
