// Package mmap maps spool files into memory for replay.
//
// A spooled triple stream is written once and then read front to back on
// every pass of the loader. Mapping the file lets each pass decode straight
// from the page cache, and the sequential access hint lets the kernel read
// ahead and drop pages behind the reader.
//
//	m, err := mmap.Open(path)
//	if err != nil { ... }
//	defer m.Close()
//	_ = m.Advise(mmap.AccessSequential)
//	r := m.Reader()
//
// Unix uses mmap(2) and madvise(2); on Windows the file is mapped with
// MapViewOfFile and Advise is a no-op.
//
// A Mapping is safe for concurrent readers. Close is idempotent, but no
// reader may touch the bytes once it returned.
package mmap
