package sysmatrix

import "fmt"

// Era identifies a (Δt, topology-generation) pair. The solver caches one
// factorized matrix per era and only re-factorizes when a switch event
// bumps the topology generation (spec §3, §9 "Matrix era invalidation").
type Era struct {
	Dt         float64
	Generation int
	// CarrierOmega is the dynamic-phasor carrier angular frequency (rad/s)
	// in effect for this era. Zero for EMT eras, where it is unused. It is
	// part of the cache key because it changes the stamped admittance
	// without changing topology; solver.Run takes it unchanged from
	// Options.CarrierOmega for every era of a run.
	CarrierOmega float64
}

func (e Era) String() string {
	return fmt.Sprintf("era(dt=%g,gen=%d,omega=%g)", e.Dt, e.Generation, e.CarrierOmega)
}

// Cache holds one factorized Matrix per Era, keyed by the whole Era
// (Δt, generation, carrier frequency).
type Cache struct {
	bySize map[Era]*Matrix
}

// NewCache returns an empty era cache.
func NewCache() *Cache {
	return &Cache{bySize: make(map[Era]*Matrix)}
}

// Get returns the cached matrix for era, if any.
func (c *Cache) Get(era Era) (*Matrix, bool) {
	m, ok := c.bySize[era]
	return m, ok
}

// Put stores m under era, replacing any previous entry.
func (c *Cache) Put(era Era, m *Matrix) {
	c.bySize[era] = m
}

// Eras returns the set of eras currently cached, for diagnostics.
func (c *Cache) Eras() []Era {
	out := make([]Era, 0, len(c.bySize))
	for e := range c.bySize {
		out = append(out, e)
	}
	return out
}

// Destroy releases every cached matrix's native resources.
func (c *Cache) Destroy() {
	for _, m := range c.bySize {
		m.Destroy()
	}
	c.bySize = make(map[Era]*Matrix)
}
