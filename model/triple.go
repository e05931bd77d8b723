// Package model defines the ingestion records consumed by the loaders.
package model

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"sort"
)

// IDKey is the reserved property key inside an edge triple's property map.
// Its value is the id requested for the edge itself.
const IDKey = "id"

// ErrInvalidTriple is returned when a triple is constructed with a nil id,
// an empty key or label, or a nil value.
var ErrInvalidTriple = errors.New("invalid triple")

// Kind discriminates the two triple variants.
type Kind uint8

const (
	// KindProperty sets a property on a vertex.
	KindProperty Kind = iota + 1
	// KindEdge creates an edge between two vertices.
	KindEdge
)

func (k Kind) String() string {
	switch k {
	case KindProperty:
		return "property"
	case KindEdge:
		return "edge"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Triple is one immutable ingestion record.
//
// A property triple reads "set Key=Value on Vertex". An edge triple reads
// "create an edge labeled Label from Out to In with Properties".
// The zero value is not a valid triple.
type Triple struct {
	kind  Kind
	out   any
	key   string // property key or edge label
	value any    // property value (property triples only)
	in    any    // in-vertex id (edge triples only)
	props map[string]any
}

// NewPropertyTriple returns a triple that sets key=value on vertex.
func NewPropertyTriple(vertex any, key string, value any) (Triple, error) {
	if vertex == nil {
		return Triple{}, fmt.Errorf("%w: nil vertex id", ErrInvalidTriple)
	}
	if key == "" {
		return Triple{}, fmt.Errorf("%w: empty property key", ErrInvalidTriple)
	}
	if value == nil {
		return Triple{}, fmt.Errorf("%w: nil value for key %q", ErrInvalidTriple, key)
	}
	return Triple{kind: KindProperty, out: vertex, key: key, value: value}, nil
}

// NewEdgeTriple returns a triple that creates an edge from out to in.
//
// The property map is copied. A nil map and an empty map are equivalent.
// The entry under IDKey, if any, is the id requested for the edge.
func NewEdgeTriple(out any, label string, in any, props map[string]any) (Triple, error) {
	if out == nil {
		return Triple{}, fmt.Errorf("%w: nil out vertex id", ErrInvalidTriple)
	}
	if in == nil {
		return Triple{}, fmt.Errorf("%w: nil in vertex id", ErrInvalidTriple)
	}
	if label == "" {
		return Triple{}, fmt.Errorf("%w: empty edge label", ErrInvalidTriple)
	}
	t := Triple{kind: KindEdge, out: out, key: label, in: in}
	if len(props) > 0 {
		for k, v := range props {
			if k == "" {
				return Triple{}, fmt.Errorf("%w: empty edge property key", ErrInvalidTriple)
			}
			if v == nil {
				return Triple{}, fmt.Errorf("%w: nil value for edge property %q", ErrInvalidTriple, k)
			}
		}
		t.props = maps.Clone(props)
	}
	return t, nil
}

// MustProperty is like NewPropertyTriple but panics on error.
// Intended for tests and literals.
func MustProperty(vertex any, key string, value any) Triple {
	t, err := NewPropertyTriple(vertex, key, value)
	if err != nil {
		panic(err)
	}
	return t
}

// MustEdge is like NewEdgeTriple but panics on error.
// Intended for tests and literals.
func MustEdge(out any, label string, in any, props map[string]any) Triple {
	t, err := NewEdgeTriple(out, label, in, props)
	if err != nil {
		panic(err)
	}
	return t
}

// Kind returns the variant of the triple.
func (t Triple) Kind() Kind { return t.kind }

// IsEdge reports whether t creates an edge.
func (t Triple) IsEdge() bool { return t.kind == KindEdge }

// Vertex returns the vertex id a property triple targets.
// For edge triples it is the out-vertex id.
func (t Triple) Vertex() any { return t.out }

// Key returns the property key of a property triple.
func (t Triple) Key() string {
	if t.kind != KindProperty {
		return ""
	}
	return t.key
}

// Value returns the property value of a property triple.
func (t Triple) Value() any { return t.value }

// Out returns the out-vertex id of an edge triple.
func (t Triple) Out() any { return t.out }

// Label returns the edge label of an edge triple.
func (t Triple) Label() string {
	if t.kind != KindEdge {
		return ""
	}
	return t.key
}

// In returns the in-vertex id of an edge triple.
func (t Triple) In() any { return t.in }

// VertexIDs returns the vertex ids referenced by the triple: one for a
// property triple, two (out, in) for an edge triple.
func (t Triple) VertexIDs() []any {
	if t.kind == KindEdge {
		return []any{t.out, t.in}
	}
	return []any{t.out}
}

// RequestedID returns the id requested for the edge via IDKey.
func (t Triple) RequestedID() (any, bool) {
	v, ok := t.props[IDKey]
	return v, ok
}

// Property returns a single edge property.
func (t Triple) Property(key string) (any, bool) {
	v, ok := t.props[key]
	return v, ok
}

// NumProperties returns the number of edge properties, IDKey included.
func (t Triple) NumProperties() int { return len(t.props) }

// Properties iterates the edge properties in key order, IDKey included.
func (t Triple) Properties() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		keys := make([]string, 0, len(t.props))
		for k := range t.props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !yield(k, t.props[k]) {
				return
			}
		}
	}
}

func (t Triple) String() string {
	switch t.kind {
	case KindProperty:
		return fmt.Sprintf("(%v %s=%v)", t.out, t.key, t.value)
	case KindEdge:
		return fmt.Sprintf("(%v -%s-> %v)", t.out, t.key, t.in)
	default:
		return "(invalid)"
	}
}
