// Package scenario loads YAML dispatch scenarios and runs them against a
// fresh dispatch.Env. A scenario declares backends, generic functions and
// calls; running it reports which backend every call resolved to.
package scenario

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoYAML []byte

// Scenario is the document root.
type Scenario struct {
	Name      string     `yaml:"name"`
	TiePolicy string     `yaml:"tie_policy,omitempty"`
	Backends  []Backend  `yaml:"backends"`
	Functions []Function `yaml:"functions"`
	Calls     []Call     `yaml:"calls"`
}

// Backend declares a dispatch.Backend. Late backends register themselves on
// every function through a callback instead of being listed by functions.
type Backend struct {
	Name       string   `yaml:"name"`
	Types      []string `yaml:"types"`
	Supersedes []string `yaml:"supersedes,omitempty"`
	OptIn      bool     `yaml:"opt_in,omitempty"`
	Late       bool     `yaml:"late,omitempty"`
}

// Function declares a dispatch.Dispatchable dispatching on argument positions.
type Function struct {
	Name       string   `yaml:"name"`
	DispatchOn []int    `yaml:"dispatch_on"`
	Fallback   bool     `yaml:"fallback,omitempty"`
	Backends   []string `yaml:"backends"`
}

// Call is one resolution. Either Args (a regular call) or Invoke (direct
// invoke on a type) is set. Overrides are entered outermost first; Context
// overrides travel in the call context instead of the shared stack.
type Call struct {
	Function  string   `yaml:"function"`
	Args      []string `yaml:"args,omitempty"`
	Invoke    string   `yaml:"invoke,omitempty"`
	Overrides []string `yaml:"overrides,omitempty"`
	Context   []string `yaml:"context,omitempty"`

	// Expect is a backend name, "fallback", "no-match" or "ambiguous".
	Expect string `yaml:"expect,omitempty"`
}

// IsInvoke reports whether the call resolves via direct invoke.
func (c Call) IsInvoke() bool { return c.Invoke != "" }

// ErrInvalidScenario is wrapped by every validation failure.
var ErrInvalidScenario = errors.New("scenario: invalid")

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user supplied scenario path
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(data)
}

// Demo returns the built-in scenario mirroring examples/arrays.
func Demo() *Scenario {
	sc, err := Parse(demoYAML)
	if err != nil {
		panic(err)
	}
	return sc
}

// Marshal encodes the scenario back to YAML.
func (s *Scenario) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidScenario}, args...)...)
}

// Validate checks names and catalog references.
func (s *Scenario) Validate() error {
	backends := make(map[string]bool, len(s.Backends))
	for i, b := range s.Backends {
		if b.Name == "" {
			return invalid("backend %d has no name", i)
		}
		if backends[b.Name] {
			return invalid("duplicate backend %q", b.Name)
		}
		backends[b.Name] = true
		for _, t := range append(append([]string(nil), b.Types...), b.Supersedes...) {
			if _, ok := descriptorFor(t); !ok {
				return invalid("backend %q: unknown type %q", b.Name, t)
			}
		}
	}

	functions := make(map[string]bool, len(s.Functions))
	for i, f := range s.Functions {
		if f.Name == "" {
			return invalid("function %d has no name", i)
		}
		if functions[f.Name] {
			return invalid("duplicate function %q", f.Name)
		}
		functions[f.Name] = true
		for _, p := range f.DispatchOn {
			if p < 0 {
				return invalid("function %q: negative position %d", f.Name, p)
			}
		}
		for _, b := range f.Backends {
			if !backends[b] {
				return invalid("function %q: unknown backend %q", f.Name, b)
			}
		}
	}

	for i, c := range s.Calls {
		if !functions[c.Function] {
			return invalid("call %d: unknown function %q", i, c.Function)
		}
		if c.IsInvoke() && len(c.Args) > 0 {
			return invalid("call %d: args and invoke are exclusive", i)
		}
		for _, a := range c.Args {
			if _, ok := sampleFor(a); !ok {
				return invalid("call %d: unknown argument kind %q", i, a)
			}
		}
		if c.IsInvoke() {
			if _, ok := typeFor(c.Invoke); !ok {
				return invalid("call %d: unknown invoke kind %q", i, c.Invoke)
			}
		}
		for _, o := range append(append([]string(nil), c.Overrides...), c.Context...) {
			if !backends[o] {
				return invalid("call %d: unknown override %q", i, o)
			}
		}
	}
	return nil
}
