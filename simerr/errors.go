// Package simerr defines the structured diagnostic error kinds the
// simulator reports, per the error-handling design: every failure carries
// its kind plus whatever context (component id, time, era) applies.
package simerr

import "fmt"

// Kind classifies a simulator failure.
type Kind int

const (
	// Topology covers unknown-node terminals, duplicate ids, mismatched
	// phase types on connected terminals. Fatal at initialization.
	Topology Kind = iota
	// Parameter covers non-finite or out-of-range component parameters.
	// Fatal at initialization.
	Parameter
	// Matrix covers a singular or near-singular LHS at factorization.
	// Fatal for the offending era.
	Matrix
	// Convergence covers NRP failing to converge within the iteration cap.
	Convergence
	// Event covers an event targeting an unknown component. Non-fatal.
	Event
	// Runtime covers a non-finite value surfacing in the RHS after a
	// component pre-step. Fatal.
	Runtime
)

func (k Kind) String() string {
	switch k {
	case Topology:
		return "topology"
	case Parameter:
		return "parameter"
	case Matrix:
		return "matrix"
	case Convergence:
		return "convergence"
	case Event:
		return "event"
	case Runtime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Diagnostic is the structured error every simulator failure surfaces as.
type Diagnostic struct {
	Kind        Kind
	ComponentID string
	Time        float64
	Era         int
	Err         error
}

func (d *Diagnostic) Error() string {
	msg := fmt.Sprintf("%s error", d.Kind)
	if d.ComponentID != "" {
		msg += fmt.Sprintf(" [component=%s]", d.ComponentID)
	}
	if d.Era != 0 {
		msg += fmt.Sprintf(" [era=%d]", d.Era)
	}
	if d.Time != 0 {
		msg += fmt.Sprintf(" [t=%g]", d.Time)
	}
	if d.Err != nil {
		msg += ": " + d.Err.Error()
	}
	return msg
}

func (d *Diagnostic) Unwrap() error { return d.Err }

// New builds a Diagnostic with the given kind wrapping err.
func New(kind Kind, err error) *Diagnostic {
	return &Diagnostic{Kind: kind, Err: err}
}

// WithComponent attaches a component id, returning the same diagnostic for
// chaining at the call site.
func (d *Diagnostic) WithComponent(id string) *Diagnostic {
	d.ComponentID = id
	return d
}

// WithTime attaches a simulation time.
func (d *Diagnostic) WithTime(t float64) *Diagnostic {
	d.Time = t
	return d
}

// WithEra attaches an era generation number.
func (d *Diagnostic) WithEra(era int) *Diagnostic {
	d.Era = era
	return d
}

// Topologyf builds a Topology-kind diagnostic from a format string.
func Topologyf(format string, args ...any) *Diagnostic {
	return New(Topology, fmt.Errorf(format, args...))
}

// Parameterf builds a Parameter-kind diagnostic from a format string.
func Parameterf(format string, args ...any) *Diagnostic {
	return New(Parameter, fmt.Errorf(format, args...))
}

// Matrixf builds a Matrix-kind diagnostic from a format string.
func Matrixf(format string, args ...any) *Diagnostic {
	return New(Matrix, fmt.Errorf(format, args...))
}

// Convergencef builds a Convergence-kind diagnostic from a format string.
func Convergencef(format string, args ...any) *Diagnostic {
	return New(Convergence, fmt.Errorf(format, args...))
}

// Eventf builds an Event-kind diagnostic from a format string.
func Eventf(format string, args ...any) *Diagnostic {
	return New(Event, fmt.Errorf(format, args...))
}

// Runtimef builds a Runtime-kind diagnostic from a format string.
func Runtimef(format string, args ...any) *Diagnostic {
	return New(Runtime, fmt.Errorf(format, args...))
}
