package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPropertyTriple(t *testing.T) {
	tr, err := NewPropertyTriple("v1", "name", "alice")
	require.NoError(t, err)

	assert.Equal(t, KindProperty, tr.Kind())
	assert.False(t, tr.IsEdge())
	assert.Equal(t, "v1", tr.Vertex())
	assert.Equal(t, "name", tr.Key())
	assert.Equal(t, "alice", tr.Value())
	assert.Equal(t, "", tr.Label())
	assert.Equal(t, []any{"v1"}, tr.VertexIDs())
}

func TestNewPropertyTriple_Invalid(t *testing.T) {
	_, err := NewPropertyTriple(nil, "k", 1)
	assert.ErrorIs(t, err, ErrInvalidTriple)

	_, err = NewPropertyTriple("v", "", 1)
	assert.ErrorIs(t, err, ErrInvalidTriple)

	_, err = NewPropertyTriple("v", "k", nil)
	assert.ErrorIs(t, err, ErrInvalidTriple)
}

func TestNewEdgeTriple(t *testing.T) {
	props := map[string]any{"weight": 0.5, IDKey: "e1"}
	tr, err := NewEdgeTriple(1, "knows", 2, props)
	require.NoError(t, err)

	// The triple owns a copy of the map.
	props["weight"] = 9.0

	assert.Equal(t, KindEdge, tr.Kind())
	assert.Equal(t, 1, tr.Out())
	assert.Equal(t, 2, tr.In())
	assert.Equal(t, "knows", tr.Label())
	assert.Equal(t, "", tr.Key())
	assert.Equal(t, []any{1, 2}, tr.VertexIDs())

	id, ok := tr.RequestedID()
	assert.True(t, ok)
	assert.Equal(t, "e1", id)

	w, ok := tr.Property("weight")
	assert.True(t, ok)
	assert.Equal(t, 0.5, w)

	var keys []string
	for k := range tr.Properties() {
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"id", "weight"}, keys)
}

func TestNewEdgeTriple_NilAndEmptyProps(t *testing.T) {
	a, err := NewEdgeTriple("a", "x", "b", nil)
	require.NoError(t, err)
	b, err := NewEdgeTriple("a", "x", "b", map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, 0, a.NumProperties())
	assert.Equal(t, 0, b.NumProperties())
	_, ok := a.RequestedID()
	assert.False(t, ok)
}

func TestNewEdgeTriple_Invalid(t *testing.T) {
	cases := map[string]func() error{
		"nil out": func() error { _, err := NewEdgeTriple(nil, "x", "b", nil); return err },
		"nil in":  func() error { _, err := NewEdgeTriple("a", "x", nil, nil); return err },
		"label":   func() error { _, err := NewEdgeTriple("a", "", "b", nil); return err },
		"key":     func() error { _, err := NewEdgeTriple("a", "x", "b", map[string]any{"": 1}); return err },
		"value":   func() error { _, err := NewEdgeTriple("a", "x", "b", map[string]any{"k": nil}); return err },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, fn(), ErrInvalidTriple)
		})
	}
}

func TestMustPanics(t *testing.T) {
	assert.Panics(t, func() { MustProperty(nil, "k", 1) })
	assert.Panics(t, func() { MustEdge("a", "", "b", nil) })
}
