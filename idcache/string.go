package idcache

import "github.com/hupe1980/batchgraph/internal/resource"

const stringOverhead = 48

type stringCache struct {
	m      map[string]any
	budget *resource.Budget
}

func newStringCache(budget *resource.Budget) *stringCache {
	return &stringCache{m: make(map[string]any), budget: budget}
}

func (c *stringCache) Shape() Shape { return ShapeString }

func (c *stringCache) Len() int { return len(c.m) }

func (c *stringCache) MemoryUsage() int64 { return c.budget.Used() }

func (c *stringCache) Contains(id any) bool {
	_, ok := c.Get(id)
	return ok
}

func (c *stringCache) Get(id any) (any, bool) {
	s, ok := id.(string)
	if !ok {
		return nil, false
	}
	h, ok := c.m[s]
	return h, ok
}

func (c *stringCache) Put(id, handle any) error {
	s, ok := id.(string)
	if !ok {
		return unsupported(ShapeString, id)
	}
	if existing, ok := c.m[s]; ok {
		if sameHandle(existing, handle) {
			return nil
		}
		return &ConflictError{ID: id, Existing: existing, Attempted: handle}
	}
	if err := c.budget.Charge(int64(len(s)) + stringOverhead); err != nil {
		return err
	}
	c.m[s] = handle
	return nil
}
