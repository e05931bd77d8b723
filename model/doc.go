// Package model defines the ingestion record of the loaders.
//
// A Triple is either a property assignment on a vertex or an edge between
// two vertices:
//
//	p := model.MustProperty(1, "name", "alice")
//	e := model.MustEdge(1, "knows", 2, map[string]any{"since": 2020})
//
// Vertices are never declared on their own. They are implied by the ids the
// triples reference. Ids are caller supplied ("external") values and are
// translated into store handles while loading.
//
// Triples are immutable: constructors copy the property map and accessors
// never expose it.
package model
