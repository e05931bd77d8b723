package idcache

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Set is a set of external ids using the same shape rules as Cache.
// The loader uses it to stage the ids of one wave.
type Set interface {
	// Add inserts id and reports whether it was absent.
	Add(id any) (bool, error)
	Contains(id any) bool
	Len() int
	Reset()
}

// NewSet returns an empty Set for the given shape.
func NewSet(shape Shape) Set {
	switch shape {
	case ShapeNumber:
		return &numberSet{bm: roaring64.New()}
	case ShapeString:
		return &stringSet{m: make(map[string]struct{}), shape: ShapeString, conv: stringID}
	case ShapeURL:
		return &stringSet{m: make(map[string]struct{}), shape: ShapeURL, conv: urlString}
	default:
		return &objectSet{m: make(map[any]struct{})}
	}
}

// numberSet stores integers in a compressed bitmap; int64 maps onto uint64
// one-to-one, so negative ids need no special case.
type numberSet struct {
	bm *roaring64.Bitmap
}

func (s *numberSet) Add(id any) (bool, error) {
	n, ok := toInt64(id)
	if !ok {
		return false, unsupported(ShapeNumber, id)
	}
	return s.bm.CheckedAdd(uint64(n)), nil
}

func (s *numberSet) Contains(id any) bool {
	n, ok := toInt64(id)
	return ok && s.bm.Contains(uint64(n))
}

func (s *numberSet) Len() int { return int(s.bm.GetCardinality()) }

func (s *numberSet) Reset() { s.bm.Clear() }

type stringSet struct {
	m     map[string]struct{}
	shape Shape
	conv  func(any) (string, bool)
}

func (s *stringSet) Add(id any) (bool, error) {
	k, ok := s.conv(id)
	if !ok {
		return false, unsupported(s.shape, id)
	}
	if _, ok := s.m[k]; ok {
		return false, nil
	}
	s.m[k] = struct{}{}
	return true, nil
}

func (s *stringSet) Contains(id any) bool {
	k, ok := s.conv(id)
	if !ok {
		return false
	}
	_, ok = s.m[k]
	return ok
}

func (s *stringSet) Len() int { return len(s.m) }

func (s *stringSet) Reset() { clear(s.m) }

type objectSet struct {
	m map[any]struct{}
}

func (s *objectSet) Add(id any) (bool, error) {
	if !isComparable(id) {
		return false, unsupported(ShapeObject, id)
	}
	key := objectKey(id)
	if _, ok := s.m[key]; ok {
		return false, nil
	}
	s.m[key] = struct{}{}
	return true, nil
}

func (s *objectSet) Contains(id any) bool {
	if !isComparable(id) {
		return false
	}
	_, ok := s.m[objectKey(id)]
	return ok
}

func (s *objectSet) Len() int { return len(s.m) }

func (s *objectSet) Reset() { clear(s.m) }

func stringID(id any) (string, bool) {
	s, ok := id.(string)
	return s, ok
}
