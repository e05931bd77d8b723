package idcache

import (
	"reflect"

	"github.com/hupe1980/batchgraph/internal/resource"
)

const objectCost = 64

type objectCache struct {
	m      map[any]any
	budget *resource.Budget
}

func newObjectCache(budget *resource.Budget) *objectCache {
	return &objectCache{m: make(map[any]any), budget: budget}
}

func (c *objectCache) Shape() Shape { return ShapeObject }

func (c *objectCache) Len() int { return len(c.m) }

func (c *objectCache) MemoryUsage() int64 { return c.budget.Used() }

func (c *objectCache) Contains(id any) bool {
	_, ok := c.Get(id)
	return ok
}

func (c *objectCache) Get(id any) (any, bool) {
	if !isComparable(id) {
		return nil, false
	}
	h, ok := c.m[objectKey(id)]
	return h, ok
}

func (c *objectCache) Put(id, handle any) error {
	if !isComparable(id) {
		return unsupported(ShapeObject, id)
	}
	key := objectKey(id)
	if existing, ok := c.m[key]; ok {
		if sameHandle(existing, handle) {
			return nil
		}
		return &ConflictError{ID: id, Existing: existing, Attempted: handle}
	}
	if err := c.budget.Charge(objectCost); err != nil {
		return err
	}
	c.m[key] = handle
	return nil
}

// objectKey folds every integer kind onto int64, so OBJECT and NUMBER agree
// on which ids name the same vertex.
func objectKey(id any) any {
	if _, ok := id.(string); ok {
		return id
	}
	if n, ok := toInt64(id); ok {
		return n
	}
	return id
}

// isComparable reports whether id can be used as a map key without panicking.
func isComparable(id any) bool {
	return id != nil && reflect.ValueOf(id).Comparable()
}
