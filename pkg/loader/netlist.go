// Package loader implements the in-module example/default topology
// loader (spec §6): a one-line power-system element syntax, grounded on
// the teacher's pkg/netlist card parser but repurposed from SPICE-card
// syntax (R/L/C/V/I devices between two numbered nodes) to the exemplar
// component set this module builds (resistor, inductor, capacitor,
// current/voltage source with waveform, switch, pi-equivalent line).
//
// It lives outside pkg/topology deliberately: pkg/topology documents
// (see Element's doc comment) that it must never import pkg/component, so
// a loader that constructs concrete components can't be a topology
// method — it satisfies topology.Loader from the outside instead.
package loader

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/dpsimgo/corepsim/pkg/component"
	"github.com/dpsimgo/corepsim/pkg/topology"
	"github.com/dpsimgo/corepsim/simerr"
)

var _ topology.Loader = NetlistLoader{}

// NetlistLoader reads one-line element descriptions into a SystemTopology.
type NetlistLoader struct{}

var unitMap = map[string]float64{
	"T": 1e12, "G": 1e9, "meg": 1e6, "K": 1e3, "k": 1e3,
	"m": 1e-3, "u": 1e-6, "n": 1e-9, "p": 1e-12, "f": 1e-15,
}

var valueRe = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)(meg|[TGKkmunpf])?$`)

// ParseValue parses an engineering-notation numeric literal ("10k",
// "2.2u", "1e-6"), per the teacher's netlist value grammar.
func ParseValue(s string) (float64, error) {
	m := valueRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, simerr.Parameterf("invalid value %q", s)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, simerr.Parameterf("invalid value %q: %v", s, err)
	}
	if m[2] != "" {
		v *= unitMap[m[2]]
	}
	return v, nil
}

// Load reads every file, appending elements into one shared topology at
// the given domain and nominal frequency.
func (NetlistLoader) Load(files []string, domain topology.Domain, nominalFreq float64) (*topology.SystemTopology, error) {
	topo := topology.New(nominalFreq)
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, simerr.Topologyf("reading %s: %w", f, err)
		}
		if err := parseInto(topo, string(content), domain); err != nil {
			return nil, simerr.Topologyf("parsing %s: %w", f, err)
		}
	}
	return topo, nil
}

func parseInto(topo *topology.SystemTopology, text string, domain topology.Domain) error {
	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return simerr.Topologyf("invalid element line: %q", line)
		}
		if err := buildElement(topo, fields, domain); err != nil {
			return err
		}
	}
	return nil
}

func kvParams(fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if k, v, ok := strings.Cut(f, "="); ok {
			out[strings.ToUpper(k)] = v
		}
	}
	return out
}

func buildElement(topo *topology.SystemTopology, fields []string, domain topology.Domain) error {
	name := fields[0]
	upper := strings.ToUpper(name)

	switch {
	case strings.HasPrefix(upper, "SW"):
		if len(fields) < 3 {
			return simerr.Topologyf("%s: expected 2 nodes", name)
		}
		closed := true
		if len(fields) > 3 {
			closed = strings.EqualFold(fields[3], "closed")
		}
		sw, err := component.NewSwitch(name, name, domain, topo, closed)
		if err != nil {
			return err
		}
		return topo.AddComponent(sw, fields[1:3])

	case strings.HasPrefix(upper, "PI"):
		if len(fields) < 4 {
			return simerr.Topologyf("%s: expected 2 nodes and R=/L=/C= params", name)
		}
		kv := kvParams(fields[3:])
		r, err := ParseValue(kv["R"])
		if err != nil {
			return err
		}
		l, err := ParseValue(kv["L"])
		if err != nil {
			return err
		}
		c := 0.0
		if cv, ok := kv["C"]; ok {
			if c, err = ParseValue(cv); err != nil {
				return err
			}
		}
		pl, err := component.NewPiLine(name, name, domain, r, l, c)
		if err != nil {
			return err
		}
		return topo.AddComponent(pl, fields[1:3])
	}

	switch upper[0] {
	case 'R':
		if len(fields) < 4 {
			return simerr.Topologyf("%s: expected 2 nodes and a value", name)
		}
		v, err := ParseValue(fields[3])
		if err != nil {
			return err
		}
		r, err := component.NewResistor(name, name, domain, v)
		if err != nil {
			return err
		}
		return topo.AddComponent(r, fields[1:3])

	case 'L':
		if len(fields) < 4 {
			return simerr.Topologyf("%s: expected 2 nodes and a value", name)
		}
		v, err := ParseValue(fields[3])
		if err != nil {
			return err
		}
		ind, err := component.NewInductor(name, name, domain, v)
		if err != nil {
			return err
		}
		return topo.AddComponent(ind, fields[1:3])

	case 'C':
		if len(fields) < 4 {
			return simerr.Topologyf("%s: expected 2 nodes and a value", name)
		}
		v, err := ParseValue(fields[3])
		if err != nil {
			return err
		}
		cap_, err := component.NewCapacitor(name, name, domain, v)
		if err != nil {
			return err
		}
		return topo.AddComponent(cap_, fields[1:3])

	case 'V':
		if len(fields) < 4 {
			return simerr.Topologyf("%s: expected 2 nodes and a waveform", name)
		}
		wave, err := parseWaveform(fields[3:])
		if err != nil {
			return err
		}
		vs, err := component.NewVoltageSource(name, name, domain, wave)
		if err != nil {
			return err
		}
		return topo.AddComponent(vs, fields[1:3])

	case 'I':
		if len(fields) < 4 {
			return simerr.Topologyf("%s: expected 2 nodes and a waveform", name)
		}
		wave, err := parseWaveform(fields[3:])
		if err != nil {
			return err
		}
		cs, err := component.NewCurrentSource(name, name, domain, wave)
		if err != nil {
			return err
		}
		return topo.AddComponent(cs, fields[1:3])
	}

	return simerr.Topologyf("%s: unrecognized element type", name)
}

// parseWaveform parses "DC(v)", "SIN(offset amplitude freq [phaseDeg])",
// "PULSE(v1 v2 delay rise fall width period)", or
// "PWL(t0 v0 t1 v1 ...)" into a component.Waveform.
func parseWaveform(fields []string) (component.Waveform, error) {
	joined := strings.Join(fields, " ")
	joined = strings.ReplaceAll(joined, "(", " ( ")
	joined = strings.ReplaceAll(joined, ")", " ) ")
	words := strings.Fields(joined)
	if len(words) == 0 {
		return component.Waveform{}, simerr.Parameterf("missing waveform")
	}

	kind := strings.ToUpper(words[0])
	var args []string
	for _, w := range words[1:] {
		if w == "(" || w == ")" {
			continue
		}
		args = append(args, w)
	}

	nums := make([]float64, len(args))
	for i, a := range args {
		v, err := ParseValue(a)
		if err != nil {
			return component.Waveform{}, err
		}
		nums[i] = v
	}

	switch kind {
	case "DC":
		if len(nums) < 1 {
			return component.Waveform{}, simerr.Parameterf("DC: missing value")
		}
		return component.NewDCWaveform(nums[0]), nil
	case "SIN":
		if len(nums) < 3 {
			return component.Waveform{}, simerr.Parameterf("SIN: expected offset amplitude freq [phaseDeg]")
		}
		phase := 0.0
		if len(nums) > 3 {
			phase = nums[3]
		}
		return component.NewSinWaveform(nums[0], nums[1], nums[2], phase), nil
	case "PULSE":
		if len(nums) < 7 {
			return component.Waveform{}, simerr.Parameterf("PULSE: expected v1 v2 delay rise fall width period")
		}
		return component.NewPulseWaveform(nums[0], nums[1], nums[2], nums[3], nums[4], nums[5], nums[6]), nil
	case "PWL":
		if len(nums) < 2 || len(nums)%2 != 0 {
			return component.Waveform{}, simerr.Parameterf("PWL: expected pairs of time/value")
		}
		times := make([]float64, len(nums)/2)
		values := make([]float64, len(nums)/2)
		for i := 0; i < len(nums); i += 2 {
			times[i/2] = nums[i]
			values[i/2] = nums[i+1]
		}
		return component.NewPWLWaveform(times, values), nil
	}
	return component.Waveform{}, simerr.Parameterf("unsupported waveform type: %s", kind)
}
