// Package source provides re-iterable triple streams for the loaders.
//
// The parallel loader reads its input twice, once per phase, so inputs are
// Sources rather than plain iterators. Slice and Func cover in-memory and
// generated data. Single-pass inputs such as network streams are drained
// once into a Spool with Materialize and replayed from a memory-mapped
// temporary file:
//
//	sp, err := source.Materialize(ctx, stream)
//	if err != nil { ... }
//	defer sp.Close()
//	report, err := loader.Load(ctx, sp)
//
// Dumps written by Encoder are JSON lines behind a plain JSON header that
// records the codec and the compression (none, LZ4 or zstd). Scalars are
// type tagged so integer ids survive the trip unchanged. Integers decode as
// int64, unsigned values above math.MaxInt64 as uint64.
//
// Sub-packages s3 and minio read and write dumps in object storage.
package source
