package scenario

import (
	"reflect"
	"sort"

	"github.com/sghaida/precodita/dispatch"
	"github.com/sghaida/precodita/examples/arrays"
)

// kind is one named entry of the type catalog: a descriptor for backends and
// a sample value for calls.
type kind struct {
	descriptor dispatch.Descriptor
	sample     func() any
}

// catalog maps the names usable in scenario files onto the array domain.
// "none" is the skip marker and has no descriptor.
var catalog = map[string]kind{
	"ndarray":   {dispatch.TypeOf[*arrays.NDArray](), func() any { return arrays.Array(1) }},
	"matrix":    {dispatch.TypeOf[*arrays.Matrix](), func() any { return arrays.NewMatrix(1) }},
	"masked":    {dispatch.TypeOf[*arrays.Masked](), func() any { return arrays.NewMasked(1) }},
	"int":       {dispatch.TypeOf[int](), func() any { return 2 }},
	"float":     {dispatch.TypeOf[float64](), func() any { return 2.5 }},
	"string":    {dispatch.TypeOf[string](), func() any { return "asdf" }},
	"shape":     {dispatch.TypeOf[[]int](), func() any { return []int{2, 2} }},
	"array":     {dispatch.TypeOf[arrays.ArrayLike](), nil},
	"arraylike": {arrays.ArrayCapability, nil},
	"none":      {nil, func() any { return nil }},
}

// Kinds lists the catalog names.
func Kinds() []string {
	out := make([]string, 0, len(catalog))
	for k := range catalog {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func descriptorFor(name string) (dispatch.Descriptor, bool) {
	k, ok := catalog[name]
	if !ok || k.descriptor == nil {
		return nil, false
	}
	return k.descriptor, true
}

func sampleFor(name string) (any, bool) {
	k, ok := catalog[name]
	if !ok || k.sample == nil {
		return nil, false
	}
	return k.sample(), true
}

func typeFor(name string) (reflect.Type, bool) {
	if name == "none" {
		return nil, true
	}
	v, ok := sampleFor(name)
	if !ok {
		return nil, false
	}
	return reflect.TypeOf(v), true
}
