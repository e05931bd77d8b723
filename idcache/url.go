package idcache

import (
	"net/url"
	"strings"

	"github.com/hupe1980/batchgraph/internal/resource"
)

const (
	urlEntryOverhead  = 40
	urlPrefixOverhead = 32
)

// urlCache splits every URI into namespace prefix and local name and interns
// the prefix, so a namespace shared by millions of ids is stored once.
type urlCache struct {
	prefixes map[string]uint32
	m        map[urlKey]any
	budget   *resource.Budget
}

type urlKey struct {
	prefix uint32
	local  string
}

func newURLCache(budget *resource.Budget) *urlCache {
	return &urlCache{
		prefixes: make(map[string]uint32),
		m:        make(map[urlKey]any),
		budget:   budget,
	}
}

func (c *urlCache) Shape() Shape { return ShapeURL }

func (c *urlCache) Len() int { return len(c.m) }

func (c *urlCache) MemoryUsage() int64 { return c.budget.Used() }

// NumPrefixes returns the number of interned namespace prefixes.
func (c *urlCache) NumPrefixes() int { return len(c.prefixes) }

func (c *urlCache) Contains(id any) bool {
	_, ok := c.Get(id)
	return ok
}

func (c *urlCache) Get(id any) (any, bool) {
	s, ok := urlString(id)
	if !ok {
		return nil, false
	}
	prefix, local := splitURL(s)
	p, ok := c.prefixes[prefix]
	if !ok {
		return nil, false
	}
	h, ok := c.m[urlKey{prefix: p, local: local}]
	return h, ok
}

func (c *urlCache) Put(id, handle any) error {
	s, ok := urlString(id)
	if !ok {
		return unsupported(ShapeURL, id)
	}
	prefix, local := splitURL(s)

	p, known := c.prefixes[prefix]
	if known {
		if existing, ok := c.m[urlKey{prefix: p, local: local}]; ok {
			if sameHandle(existing, handle) {
				return nil
			}
			return &ConflictError{ID: id, Existing: existing, Attempted: handle}
		}
	}

	cost := int64(len(local)) + urlEntryOverhead
	if !known {
		cost += int64(len(prefix)) + urlPrefixOverhead
	}
	if err := c.budget.Charge(cost); err != nil {
		return err
	}
	if !known {
		p = uint32(len(c.prefixes))
		c.prefixes[prefix] = p
	}
	c.m[urlKey{prefix: p, local: local}] = handle
	return nil
}

func urlString(id any) (string, bool) {
	switch v := id.(type) {
	case string:
		return v, true
	case *url.URL:
		if v == nil {
			return "", false
		}
		return v.String(), true
	default:
		return "", false
	}
}

// splitURL splits after the last '/', '#' or ':'.
func splitURL(s string) (prefix, local string) {
	i := strings.LastIndexAny(s, "/#:")
	if i < 0 {
		return "", s
	}
	return s[:i+1], s[i+1:]
}
