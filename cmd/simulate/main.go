// Command simulate is the CLI driver: parse flags, load a topology,
// optionally seed it from a power-flow solve, run the dynamic solver, and
// flush the data logger (spec §6).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dpsimgo/corepsim/pkg/component"
	"github.com/dpsimgo/corepsim/pkg/datalogger"
	"github.com/dpsimgo/corepsim/pkg/initfrompf"
	"github.com/dpsimgo/corepsim/pkg/loader"
	"github.com/dpsimgo/corepsim/pkg/numeric"
	"github.com/dpsimgo/corepsim/pkg/powerflow"
	"github.com/dpsimgo/corepsim/pkg/solver"
	"github.com/dpsimgo/corepsim/pkg/sysmatrix"
	"github.com/dpsimgo/corepsim/pkg/topology"
)

// optionMap accumulates repeated "--option key=val" flags into a
// map[string]string, the same pattern the teacher's single-valued flags
// could have used had cmd/main.go needed a repeated one.
type optionMap map[string]string

func (m optionMap) String() string {
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (m optionMap) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("--option expects key=val, got %q", s)
	}
	m[k] = v
	return nil
}

func main() {
	timestep := flag.Float64("timestep", 1e-4, "dynamic solver time step in seconds")
	duration := flag.Float64("duration", 1.0, "simulation duration in seconds")
	steadyInit := flag.Bool("steady-init", false, "seed initial state from a power-flow solve before the dynamic run")
	name := flag.String("name", "run", "simulation name; logs are written under logs/<name>")
	frequency := flag.Float64("frequency", 60.0, "nominal system frequency in Hz")
	complexDomain := flag.Bool("complex", false, "treat the dynamic run as DP/SP (complex matrix) instead of EMT (real)")
	opts := make(optionMap)
	flag.Var(opts, "option", "loader-specific key=val option, may be repeated")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		log.Fatal("usage: simulate [flags] topology-file [topology-file ...]")
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if len(opts) > 0 {
		zlog.Debug().Str("options", opts.String()).Msg("loader options given (unused by the built-in netlist loader, forwarded for pluggable loaders)")
	}

	ld := loader.NetlistLoader{}
	domain := topology.EMT
	if *complexDomain {
		domain = topology.DP
	}

	dyn, err := ld.Load(files, domain, *frequency)
	if err != nil {
		log.Fatalf("loading topology: %v", err)
	}
	dyn.Index()

	if *steadyInit {
		zlog.Info().Msg("running power-flow seed pass")
		pf, err := ld.Load(files, topology.SP, *frequency)
		if err != nil {
			log.Fatalf("loading power-flow topology: %v", err)
		}
		pf.Index()

		order := powerflow.NodeOrder(pf)
		ybus, err := powerflow.BuildYBus(pf, sysmatrix.Era{})
		if err != nil {
			log.Fatalf("building Ybus: %v", err)
		}
		buses := powerflow.DefaultBusSpecs(order, nil)
		res, err := powerflow.Solve(buses, ybus, powerflow.DefaultOptions())
		if err != nil {
			log.Fatalf("power-flow solve: %v", err)
		}
		if err := powerflow.ApplyToTopology(pf, order, res); err != nil {
			log.Fatalf("applying power-flow result: %v", err)
		}
		if err := initfrompf.Transfer(pf, dyn); err != nil {
			log.Fatalf("seeding dynamic topology from power-flow result: %v", err)
		}
	} else {
		for _, el := range dyn.Elements() {
			c, ok := el.(component.Component)
			if !ok {
				continue
			}
			if err := c.InitializeFromNodesAndTerminals(*frequency); err != nil {
				log.Fatalf("initializing %s: %v", c.ID(), err)
			}
		}
	}

	dl, err := datalogger.New(*name)
	if err != nil {
		log.Fatalf("creating data logger: %v", err)
	}
	for _, el := range dyn.Elements() {
		c, ok := el.(component.Component)
		if !ok {
			continue
		}
		if err := dl.RegisterAll(c.ID(), c.Attributes()); err != nil {
			log.Fatalf("registering logger attributes for %s: %v", c.ID(), err)
		}
	}

	sv, err := solver.New(dyn, solver.Options{
		Dt:        *timestep,
		FinalTime: *duration,
		IsComplex: *complexDomain,
		Logger:    dl,
		Log:       zlog,
	})
	if err != nil {
		log.Fatalf("creating solver: %v", err)
	}

	status, err := sv.Run(context.Background())
	if err != nil {
		log.Fatalf("simulation failed: %v", err)
	}
	zlog.Info().Str("status", statusString(status)).Msg("simulation finished")

	fmt.Printf("%s run %q: %s over %s at %s\n",
		domainString(domain), *name,
		statusString(status),
		numeric.FormatValueFactor(*duration, "s"),
		numeric.FormatFrequency(*frequency))
}

func domainString(d topology.Domain) string {
	if d == topology.DP {
		return "DP"
	}
	return "EMT"
}

func statusString(s solver.Status) string {
	if s == solver.Cancelled {
		return "cancelled"
	}
	return "completed"
}
