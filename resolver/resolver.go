package resolver

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/seyaytua/manken/core"
)

// ObjectReader loads the object behind an indirect reference
type ObjectReader interface {
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// ObjectResolver expands indirect references in PDF objects
// It can recursively resolve references in dictionaries and arrays
type ObjectResolver struct {
	reader       ObjectReader
	path         *bitset.BitSet // object numbers on the current expansion path
	maxDepth     int
	currentDepth int
}

// Option configures the resolver
type Option func(*ObjectResolver)

// WithMaxDepth sets the maximum recursion depth (default: 100)
func WithMaxDepth(depth int) Option {
	return func(r *ObjectResolver) {
		r.maxDepth = depth
	}
}

// NewResolver creates a new object resolver
func NewResolver(reader ObjectReader, opts ...Option) *ObjectResolver {
	r := &ObjectResolver{
		reader:   reader,
		path:     bitset.New(64),
		maxDepth: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve follows obj if it is a reference; containers are returned as is
func (r *ObjectResolver) Resolve(obj core.Object) (core.Object, error) {
	defer r.Reset()
	return r.resolve(obj, false)
}

// ResolveDeep returns a copy of obj with every reference inside replaced
// by the object it points to. An object that contains itself fails with
// a CyclicReference error; the same object reached along two branches is
// expanded twice.
func (r *ObjectResolver) ResolveDeep(obj core.Object) (core.Object, error) {
	defer r.Reset()
	return r.resolve(obj, true)
}

func (r *ObjectResolver) resolve(obj core.Object, deep bool) (core.Object, error) {
	if r.currentDepth >= r.maxDepth {
		return nil, fmt.Errorf("maximum recursion depth (%d) exceeded", r.maxDepth)
	}

	switch v := obj.(type) {
	case core.IndirectRef:
		if !v.Valid() {
			return core.Null{}, nil
		}
		if r.path.Test(uint(v.Number)) {
			return nil, core.NewParseError(core.CyclicReference, -1,
				fmt.Errorf("object %s contains itself", v))
		}
		r.path.Set(uint(v.Number))
		defer r.path.Clear(uint(v.Number))

		resolved, err := r.reader.ResolveReference(v)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve reference %s: %w", v, err)
		}
		if !deep {
			return resolved, nil
		}
		return r.descend(resolved, deep)

	case core.Dict:
		if !deep {
			return v, nil
		}
		out := make(core.Dict, len(v))
		for key, value := range v {
			resolved, err := r.descend(value, deep)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve dict key %s: %w", key, err)
			}
			out[key] = resolved
		}
		return out, nil

	case core.Array:
		if !deep {
			return v, nil
		}
		out := make(core.Array, len(v))
		for i, elem := range v {
			resolved, err := r.descend(elem, deep)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve array element %d: %w", i, err)
			}
			out[i] = resolved
		}
		return out, nil

	case *core.Stream:
		if !deep {
			return v, nil
		}
		dict, err := r.descend(v.Dict, deep)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve stream dict: %w", err)
		}
		out := v.Clone()
		out.Dict = dict.(core.Dict)
		return out, nil
	}

	// Primitive types don't need resolution
	return obj, nil
}

func (r *ObjectResolver) descend(obj core.Object, deep bool) (core.Object, error) {
	r.currentDepth++
	defer func() { r.currentDepth-- }()
	return r.resolve(obj, deep)
}

// Reset clears the path set and depth counter
func (r *ObjectResolver) Reset() {
	r.path.ClearAll()
	r.currentDepth = 0
}

// ResolveDict deep resolves a dictionary and all its values
func (r *ObjectResolver) ResolveDict(dict core.Dict) (core.Dict, error) {
	resolved, err := r.ResolveDeep(dict)
	if err != nil {
		return nil, err
	}
	return resolved.(core.Dict), nil
}
