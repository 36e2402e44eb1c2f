package topology

// Loader builds a SystemTopology from a list of input files at the given
// domain and nominal frequency (spec §6). Concrete CIM/CSV/JSON loaders
// are out of scope (spec.md Non-goals); pkg/loader ships the in-module
// one-line element netlist as the example/default implementation.
type Loader interface {
	Load(files []string, domain Domain, nominalFreq float64) (*SystemTopology, error)
}
