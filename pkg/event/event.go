// Package event implements the discrete event queue (spec §4.6): switch
// open/close and parameter changes applied at scheduled times, strictly
// before matrix assembly for the step in which they occur.
package event

import (
	"sort"

	"github.com/dpsimgo/corepsim/pkg/attribute"
	"github.com/dpsimgo/corepsim/pkg/component"
)

// Op identifies what a Scheduled event does to its target component.
type Op int

const (
	// Open opens the target Switchable.
	Open Op = iota
	// Close closes the target Switchable.
	Close
	// SetParameter writes Value to the target's named real attribute.
	SetParameter
)

// Scheduled is one event in the queue: at Time, apply Op to the component
// named TargetID (Attribute/Value are only meaningful for SetParameter).
type Scheduled struct {
	Time      float64
	TargetID  string
	Op        Op
	Attribute string
	Value     float64
}

// Queue holds scheduled events sorted by time, consuming them as the
// simulation clock advances. Events at the same timestamp apply in the
// order they were scheduled (the sort is stable); when such events target
// disjoint components, the resulting state does not depend on that order.
type Queue struct {
	events []Scheduled
	sorted bool
}

// NewQueue returns an empty event queue.
func NewQueue() *Queue { return &Queue{} }

// Schedule adds an event to the queue, invalidating the cached order.
func (q *Queue) Schedule(e Scheduled) {
	q.events = append(q.events, e)
	q.sorted = false
}

func (q *Queue) ensureSorted() {
	if q.sorted {
		return
	}
	sort.SliceStable(q.events, func(i, j int) bool { return q.events[i].Time < q.events[j].Time })
	q.sorted = true
}

// Due returns and removes every event with Time <= t, in time order.
func (q *Queue) Due(t float64) []Scheduled {
	q.ensureSorted()
	i := 0
	for i < len(q.events) && q.events[i].Time <= t {
		i++
	}
	due := q.events[:i]
	q.events = q.events[i:]
	return due
}

// Pending reports whether any event remains in the queue.
func (q *Queue) Pending() bool { return len(q.events) > 0 }

// UnknownTargetError records a non-fatal event-application failure: the
// event named a component id the topology doesn't have (spec §4.6 "unknown
// targets are reported, not fatal").
type UnknownTargetError struct {
	TargetID string
}

func (e *UnknownTargetError) Error() string {
	return "event target not found: " + e.TargetID
}

// Apply applies events to the component set, returning one
// *UnknownTargetError per event whose target isn't in byID (collected, not
// returned as the first error, so a batch of due events all get applied
// before the caller is told what failed).
func Apply(events []Scheduled, byID map[string]component.Component) []error {
	var errs []error
	for _, e := range events {
		c, ok := byID[e.TargetID]
		if !ok {
			errs = append(errs, &UnknownTargetError{TargetID: e.TargetID})
			continue
		}
		if err := applyOne(e, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func applyOne(e Scheduled, c component.Component) error {
	switch e.Op {
	case Open:
		sw, ok := c.(component.Switchable)
		if !ok {
			return &UnknownTargetError{TargetID: e.TargetID}
		}
		return sw.Open()
	case Close:
		sw, ok := c.(component.Switchable)
		if !ok {
			return &UnknownTargetError{TargetID: e.TargetID}
		}
		return sw.Close()
	case SetParameter:
		attrs := c.Attributes()
		h, ok := attrs[e.Attribute]
		if !ok || h.Type != attribute.Real {
			return &UnknownTargetError{TargetID: e.TargetID}
		}
		return h.SetReal(e.Value)
	}
	return nil
}
