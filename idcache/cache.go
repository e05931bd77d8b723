package idcache

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/hupe1980/batchgraph/internal/resource"
)

var (
	// ErrUnsupportedID is returned when an id does not fit the cache shape.
	ErrUnsupportedID = errors.New("id does not fit cache shape")

	// ErrMemoryLimitExceeded is returned by Put when the memory budget is spent.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
)

// ConflictError is returned when an external id is already mapped to a
// different handle.
type ConflictError struct {
	ID        any
	Existing  any
	Attempted any
}

func (e *ConflictError) Error() string {
	if e.Attempted == nil {
		return fmt.Sprintf("id conflict: %v already maps to %v", e.ID, e.Existing)
	}
	return fmt.Sprintf("id conflict: %v maps to %v, refusing %v", e.ID, e.Existing, e.Attempted)
}

// Shape selects the storage strategy of a Cache.
type Shape uint8

const (
	// ShapeObject accepts any comparable id.
	ShapeObject Shape = iota
	// ShapeNumber accepts Go integers and stores dense ranges in a paged array.
	ShapeNumber
	// ShapeString accepts strings.
	ShapeString
	// ShapeURL accepts URIs and interns their namespace prefix.
	ShapeURL
)

func (s Shape) String() string {
	switch s {
	case ShapeObject:
		return "object"
	case ShapeNumber:
		return "number"
	case ShapeString:
		return "string"
	case ShapeURL:
		return "url"
	default:
		return fmt.Sprintf("Shape(%d)", uint8(s))
	}
}

// ParseShape parses a shape name as returned by Shape.String.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(name) {
	case "object":
		return ShapeObject, nil
	case "number":
		return ShapeNumber, nil
	case "string":
		return ShapeString, nil
	case "url", "uri":
		return ShapeURL, nil
	default:
		return 0, fmt.Errorf("unknown id shape %q", name)
	}
}

// Cache maps external ids to store handles.
//
// A Cache is not safe for concurrent writes. Reads are safe from any number
// of goroutines once every write happened-before them.
type Cache interface {
	// Put records id -> handle. Putting the same pair twice is a no-op;
	// putting a different handle for a known id fails with *ConflictError.
	Put(id, handle any) error

	// Get returns the handle for id.
	Get(id any) (any, bool)

	// Contains reports whether id is mapped.
	Contains(id any) bool

	// Len returns the number of mapped ids.
	Len() int

	// MemoryUsage returns the estimated bytes charged for the entries.
	MemoryUsage() int64

	// Shape returns the storage strategy.
	Shape() Shape
}

// Options configures a Cache.
type Options struct {
	// MemoryLimitBytes caps the estimated size of the entries. 0 means unlimited.
	MemoryLimitBytes int64
}

// WithMemoryLimit caps the estimated memory of the cache entries.
func WithMemoryLimit(bytes int64) func(*Options) {
	return func(o *Options) {
		o.MemoryLimitBytes = bytes
	}
}

// New returns an empty Cache for the given shape.
func New(shape Shape, optFns ...func(*Options)) (Cache, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MemoryLimitBytes < 0 {
		return nil, fmt.Errorf("idcache: negative memory limit %d", opts.MemoryLimitBytes)
	}
	budget := resource.NewBudget(opts.MemoryLimitBytes)

	switch shape {
	case ShapeObject:
		return newObjectCache(budget), nil
	case ShapeNumber:
		return newNumberCache(budget), nil
	case ShapeString:
		return newStringCache(budget), nil
	case ShapeURL:
		return newURLCache(budget), nil
	default:
		return nil, fmt.Errorf("idcache: unknown shape %v", shape)
	}
}

// sameHandle compares two handles without panicking on non-comparable values.
func sameHandle(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Comparable() && vb.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func unsupported(shape Shape, id any) error {
	return fmt.Errorf("%w: %T for %s shape", ErrUnsupportedID, id, shape)
}
