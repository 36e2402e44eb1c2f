// Package datalogger samples registered component attributes at each
// solver time step and writes one CSV file per attribute under
// logs/<simName>/<attrName>.csv (spec §6). Column 0 is always the
// simulation time in seconds; subsequent columns are the scalar
// components of the attribute's value.
//
// encoding/csv is the stdlib choice here deliberately: no repo in the
// example pack wires a dedicated CSV library, so this is the one sink in
// the module built on the standard library rather than a pack dependency
// (see DESIGN.md).
package datalogger

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dpsimgo/corepsim/pkg/attribute"
	"github.com/dpsimgo/corepsim/simerr"
)

type sink struct {
	f          *os.File
	w          *csv.Writer
	wroteHead  bool
}

type namedHandle struct {
	name string
	h    attribute.Handle
}

// Logger owns one CSV sink per registered attribute for the duration of a
// simulation run (spec §5 "Lifetime": the logger's output is scoped to
// the run and closed on exit).
type Logger struct {
	dir     string
	handles []namedHandle
	sinks   map[string]*sink
}

// New creates logs/<simName> and returns a Logger writing into it.
func New(simName string) (*Logger, error) {
	dir := filepath.Join("logs", simName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, simerr.Runtimef("creating log directory %s: %w", dir, err)
	}
	return &Logger{dir: dir, sinks: make(map[string]*sink)}, nil
}

func sanitize(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return r.Replace(name)
}

// Register opens (or reuses) the sink for name and adds h to the sample
// list. h must be readable.
func (l *Logger) Register(name string, h attribute.Handle) error {
	if h.Flags&attribute.Readable == 0 {
		return simerr.Parameterf("attribute %q is not readable", name)
	}
	if _, ok := l.sinks[name]; !ok {
		path := filepath.Join(l.dir, sanitize(name)+".csv")
		f, err := os.Create(path)
		if err != nil {
			return simerr.Runtimef("creating log file %s: %w", path, err)
		}
		l.sinks[name] = &sink{f: f, w: csv.NewWriter(f)}
	}
	l.handles = append(l.handles, namedHandle{name: name, h: h})
	return nil
}

// RegisterAll registers every readable handle in a component's attribute
// table, prefixing each column file with "<componentID>.<attrName>";
// handles without the Readable flag are skipped.
func (l *Logger) RegisterAll(componentID string, t attribute.Table) error {
	for attrName, h := range t {
		if h.Flags&attribute.Readable == 0 {
			continue
		}
		if err := l.Register(componentID+"."+attrName, h); err != nil {
			return err
		}
	}
	return nil
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// Sample writes one row (at time t) to every registered attribute's sink.
func (l *Logger) Sample(t float64) error {
	for _, nh := range l.handles {
		if err := l.sampleOne(t, nh); err != nil {
			return err
		}
	}
	return nil
}

func (l *Logger) sampleOne(t float64, nh namedHandle) error {
	s := l.sinks[nh.name]
	row := []string{fmtFloat(t)}

	switch nh.h.Type {
	case attribute.Real:
		v, err := nh.h.GetReal()
		if err != nil {
			return err
		}
		if !s.wroteHead {
			if err := s.w.Write([]string{"t", "value"}); err != nil {
				return err
			}
			s.wroteHead = true
		}
		row = append(row, fmtFloat(v))

	case attribute.Complex:
		v, err := nh.h.GetComplex()
		if err != nil {
			return err
		}
		if !s.wroteHead {
			if err := s.w.Write([]string{"t", "re", "im"}); err != nil {
				return err
			}
			s.wroteHead = true
		}
		row = append(row, fmtFloat(real(v)), fmtFloat(imag(v)))

	case attribute.MatrixReal:
		v, err := nh.h.GetMatrixReal()
		if err != nil {
			return err
		}
		if !s.wroteHead {
			head := []string{"t"}
			for i := range v {
				head = append(head, "c"+strconv.Itoa(i))
			}
			if err := s.w.Write(head); err != nil {
				return err
			}
			s.wroteHead = true
		}
		for _, x := range v {
			row = append(row, fmtFloat(x))
		}

	case attribute.MatrixComplex:
		v, err := nh.h.GetMatrixComplex()
		if err != nil {
			return err
		}
		if !s.wroteHead {
			head := []string{"t"}
			for i := range v {
				head = append(head, "c"+strconv.Itoa(i)+"re", "c"+strconv.Itoa(i)+"im")
			}
			if err := s.w.Write(head); err != nil {
				return err
			}
			s.wroteHead = true
		}
		for _, x := range v {
			row = append(row, fmtFloat(real(x)), fmtFloat(imag(x)))
		}
	}

	s.w.Write(row)
	return s.w.Error()
}

// Flush flushes and closes every sink. Called once at the end of a run
// (including on cancellation, spec §5).
func (l *Logger) Flush() error {
	var firstErr error
	for _, s := range l.sinks {
		s.w.Flush()
		if err := s.w.Error(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := s.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
