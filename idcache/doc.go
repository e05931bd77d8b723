// Package idcache maps caller-supplied vertex ids to store handles.
//
// A Cache is created for one identifier shape and keeps it for its lifetime.
// The shape only changes how entries are stored, never the contract:
//
//   - ShapeNumber: integers; dense ranges live in fixed-size pages addressed
//     by id, with no hashing. Page reads are lock-free.
//   - ShapeString: strings in a hash map.
//   - ShapeURL: URIs split into an interned namespace prefix and a local name.
//   - ShapeObject: any comparable value.
//
// # Contract
//
//	c, _ := idcache.New(idcache.ShapeNumber)
//	_ = c.Put(42, h1)          // ok
//	_ = c.Put(42, h1)          // ok, same handle
//	err := c.Put(42, h2)       // *idcache.ConflictError
//
// Entries are never evicted. WithMemoryLimit turns the estimated entry
// footprint into a hard budget: Put fails with ErrMemoryLimitExceeded instead
// of silently dropping a mapping the load still needs.
package idcache
