package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"sync"

	"github.com/hupe1980/batchgraph/codec"
	"github.com/hupe1980/batchgraph/internal/mmap"
	"github.com/hupe1980/batchgraph/model"
)

// ErrSpoolClosed is returned when a closed Spool is iterated.
var ErrSpoolClosed = errors.New("spool closed")

// SpoolOptions configures Materialize.
type SpoolOptions struct {
	// Dir is the directory of the spool file. Empty means os.TempDir.
	Dir string
	// Compression of the spool file. Defaults to CompressionLZ4.
	Compression Compression
	// Codec of the spool records. Defaults to codec.Default.
	Codec codec.Codec
}

// Spool is a single-pass stream written to a temporary file so it can be
// replayed any number of times. Every pass decodes from a read-only memory
// mapping of the file.
type Spool struct {
	path  string
	count int64

	mu      sync.RWMutex
	mapping *mmap.Mapping
}

// Materialize drains seq into a spool file. The caller must Close the Spool
// to remove the file.
func Materialize(ctx context.Context, seq iter.Seq2[model.Triple, error], optFns ...func(o *SpoolOptions)) (*Spool, error) {
	opts := SpoolOptions{Compression: CompressionLZ4, Codec: codec.Default}
	for _, fn := range optFns {
		fn(&opts)
	}

	f, err := os.CreateTemp(opts.Dir, "batchgraph-spool-*.jsonl")
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	path := f.Name()
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(path)
	}

	bw := bufio.NewWriterSize(f, 1<<20)
	count, err := Write(ctx, bw, seq, func(o *EncoderOptions) {
		o.Codec = opts.Codec
		o.Compression = opts.Compression
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		cleanup()
		return nil, fmt.Errorf("flush spool file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close spool file: %w", err)
	}

	m, err := mmap.Open(path)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("map spool file: %w", err)
	}
	_ = m.Advise(mmap.AccessSequential)

	return &Spool{path: path, count: count, mapping: m}, nil
}

// Triples replays the spooled stream from the start.
func (s *Spool) Triples(ctx context.Context) iter.Seq2[model.Triple, error] {
	return func(yield func(model.Triple, error) bool) {
		// Hold the read lock for the whole pass so Close cannot unmap
		// the bytes under a running decoder.
		s.mu.RLock()
		defer s.mu.RUnlock()

		if s.mapping == nil {
			yield(model.Triple{}, ErrSpoolClosed)
			return
		}
		for t, err := range Decode(ctx, s.mapping.Reader()) {
			if !yield(t, err) || err != nil {
				return
			}
		}
	}
}

// Len returns the number of spooled triples.
func (s *Spool) Len() int64 { return s.count }

// Path returns the location of the spool file.
func (s *Spool) Path() string { return s.path }

// Size returns the size of the spool file in bytes.
func (s *Spool) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mapping == nil {
		return 0
	}
	return s.mapping.Size()
}

// Close unmaps and removes the spool file. It is idempotent.
func (s *Spool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapping == nil {
		return nil
	}
	err := s.mapping.Close()
	s.mapping = nil
	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
		err = rmErr
	}
	return err
}
