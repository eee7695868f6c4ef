package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/precodita/dispatch"
)

//
// -----------------------------------------------------------------------------
// Parse / Validate
// -----------------------------------------------------------------------------

// TestDemo_Parses verifies the embedded demo scenario is valid.
func TestDemo_Parses(t *testing.T) {
	t.Parallel()

	sc := Demo()
	assert.Equal(t, "arrays-demo", sc.Name)
	assert.Len(t, sc.Backends, 4)
	assert.Len(t, sc.Functions, 3)
}

// TestParse_Invalid verifies validation failures wrap ErrInvalidScenario.
func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown type":      "backends: [{name: a, types: [quaternion]}]",
		"duplicate backend": "backends: [{name: a, types: [int]}, {name: a, types: [int]}]",
		"unknown backend":   "functions: [{name: f, dispatch_on: [0], backends: [ghost]}]",
		"unknown function":  "calls: [{function: f, args: [int]}]",
		"unknown kind": `
backends: [{name: a, types: [int]}]
functions: [{name: f, dispatch_on: [0], backends: [a]}]
calls: [{function: f, args: [tensor]}]`,
		"args and invoke": `
functions: [{name: f, dispatch_on: [0]}]
calls: [{function: f, args: [int], invoke: int}]`,
		"unknown override": `
functions: [{name: f, dispatch_on: [0]}]
calls: [{function: f, args: [int], overrides: [ghost]}]`,
		"negative position": "functions: [{name: f, dispatch_on: [-1]}]",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

// TestParse_UnknownField verifies strict decoding.
func TestParse_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("backends: [{name: a, types: [int], priority: 3}]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding scenario")
}

// TestLoad_RoundTrip verifies a marshalled scenario loads back.
func TestLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	data, err := Demo().Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "demo.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	sc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Demo(), sc)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestKinds verifies the catalog listing is sorted and complete.
func TestKinds(t *testing.T) {
	t.Parallel()

	kinds := Kinds()
	assert.IsIncreasing(t, kinds)
	assert.Contains(t, kinds, "arraylike")
	assert.Contains(t, kinds, "none")
}

//
// -----------------------------------------------------------------------------
// Run
// -----------------------------------------------------------------------------

// TestRun_Demo verifies every demo expectation holds.
func TestRun_Demo(t *testing.T) {
	t.Parallel()

	rep, err := Run(context.Background(), Demo(), Options{})
	require.NoError(t, err)
	require.Len(t, rep.Outcomes, len(Demo().Calls))

	for _, o := range rep.Outcomes {
		assert.True(t, o.Passed(), "call %d (%s %v): got %s, want %s", o.Index, o.Call.Function, o.Call.Args, o.Result(), o.Call.Expect)
	}
	assert.Equal(t, 0, rep.Failed())
	assert.Equal(t, []string{"generic/func", "generic/new_func", "generic/ones"}, rep.Late)
	assert.Equal(t, 0, rep.Env.Overrides().Len())
}

// TestRun_TiePolicy verifies scenario and option tie policies.
func TestRun_TiePolicy(t *testing.T) {
	t.Parallel()

	doc := `
backends:
  - {name: x, types: [int]}
  - {name: y, types: [int]}
functions:
  - {name: f, dispatch_on: [0], backends: [x, y]}
calls:
  - {function: f, args: [int]}
  - {function: f, args: [int], context: [y]}
`
	sc, err := Parse([]byte(doc))
	require.NoError(t, err)

	rep, err := Run(context.Background(), sc, Options{})
	require.NoError(t, err)
	assert.Equal(t, "ambiguous", rep.Outcomes[0].Result())
	assert.Equal(t, "y", rep.Outcomes[1].Result())

	rep, err = Run(context.Background(), sc, Options{TiePolicy: dispatch.TieRegistrationOrder})
	require.NoError(t, err)
	assert.Equal(t, "x", rep.Outcomes[0].Result())

	sc.TiePolicy = "bogus"
	_, err = Run(context.Background(), sc, Options{})
	require.ErrorIs(t, err, ErrInvalidScenario)
}

// TestRun_FailedExpectation verifies mismatches are counted.
func TestRun_FailedExpectation(t *testing.T) {
	t.Parallel()

	doc := `
backends: [{name: a, types: [int]}]
functions: [{name: f, dispatch_on: [0], backends: [a]}]
calls:
  - {function: f, args: [int], expect: b}
  - {function: f, args: [string], expect: no-match}
  - {function: f, invoke: none, expect: no-match}
`
	sc, err := Parse([]byte(doc))
	require.NoError(t, err)

	rep, err := Run(context.Background(), sc, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed())
	assert.False(t, rep.Outcomes[0].Passed())
	assert.True(t, rep.Outcomes[1].Passed())
	assert.True(t, rep.Outcomes[2].Passed())
}
