package idcache

import (
	"math"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/batchgraph/internal/resource"
)

const (
	pageBits = 14
	pageSize = 1 << pageBits // 16384
	pageMask = pageSize - 1

	// maxPagedID bounds the page table to 2^18 pointers.
	maxPagedID = 1 << 32

	pageCost     = pageSize * 8
	slotCost     = 24
	overflowCost = 48
)

// numberCache stores non-negative ids below maxPagedID in a dynamic array of
// fixed-size pages for O(1) access without hashing. Other integers go to an
// overflow map. Reads of the paged range are lock-free.
type numberCache struct {
	mu       sync.Mutex // Protects page table growth
	pages    atomic.Pointer[[]*numberPage]
	overflow map[int64]any
	count    int
	budget   *resource.Budget
}

type numberPage struct {
	entries [pageSize]atomic.Pointer[slot]
}

type slot struct {
	handle any
}

func newNumberCache(budget *resource.Budget) *numberCache {
	c := &numberCache{
		overflow: make(map[int64]any),
		budget:   budget,
	}
	p := make([]*numberPage, 0, 16)
	c.pages.Store(&p)
	return c
}

func (c *numberCache) Shape() Shape { return ShapeNumber }

func (c *numberCache) Len() int { return c.count }

func (c *numberCache) MemoryUsage() int64 { return c.budget.Used() }

func (c *numberCache) Contains(id any) bool {
	_, ok := c.Get(id)
	return ok
}

func (c *numberCache) Get(id any) (any, bool) {
	n, ok := toInt64(id)
	if !ok {
		return nil, false
	}
	return c.get(n)
}

func (c *numberCache) get(n int64) (any, bool) {
	if n < 0 || n >= maxPagedID {
		h, ok := c.overflow[n]
		return h, ok
	}

	pageIdx := int(n >> pageBits)
	pages := *c.pages.Load()
	if pageIdx >= len(pages) || pages[pageIdx] == nil {
		return nil, false
	}
	s := pages[pageIdx].entries[n&pageMask].Load()
	if s == nil {
		return nil, false
	}
	return s.handle, true
}

func (c *numberCache) Put(id, handle any) error {
	n, ok := toInt64(id)
	if !ok {
		return unsupported(ShapeNumber, id)
	}

	if existing, ok := c.get(n); ok {
		if sameHandle(existing, handle) {
			return nil
		}
		return &ConflictError{ID: id, Existing: existing, Attempted: handle}
	}

	if n < 0 || n >= maxPagedID {
		if err := c.budget.Charge(overflowCost); err != nil {
			return err
		}
		c.overflow[n] = handle
		c.count++
		return nil
	}

	pages, err := c.ensurePageExists(int(n >> pageBits))
	if err != nil {
		return err
	}
	if err := c.budget.Charge(slotCost); err != nil {
		return err
	}
	pages[n>>pageBits].entries[n&pageMask].Store(&slot{handle: handle})
	c.count++
	return nil
}

// ensurePageExists guarantees that the page for pageIdx exists and returns
// the page table snapshot that contains it.
func (c *numberCache) ensurePageExists(pageIdx int) ([]*numberPage, error) {
	// Fast path
	pages := *c.pages.Load()
	if pageIdx < len(pages) && pages[pageIdx] != nil {
		return pages, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Reload under lock
	pages = *c.pages.Load()
	if pageIdx < len(pages) && pages[pageIdx] != nil {
		return pages, nil
	}

	if err := c.budget.Charge(pageCost); err != nil {
		return nil, err
	}

	n := len(pages)
	if pageIdx >= n {
		n = pageIdx + 1
	}
	newCap := cap(pages)
	if newCap == 0 {
		newCap = 16
	}
	for newCap < n {
		newCap *= 2
	}
	grown := make([]*numberPage, n, newCap)
	copy(grown, pages)
	// Only the requested page is allocated; sparse ids leave nil holes.
	grown[pageIdx] = &numberPage{}

	c.pages.Store(&grown)
	return grown, nil
}

// toInt64 normalizes any Go integer kind, named integer types included.
func toInt64(id any) (int64, bool) {
	switch v := id.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint32:
		return int64(v), true
	case nil:
		return 0, false
	}

	rv := reflect.ValueOf(id)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	default:
		return 0, false
	}
}
