package source

import (
	"context"
	"errors"
	"iter"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/batchgraph/model"
)

// once yields the triples of s exactly one time.
func once(t *testing.T, s Slice) iter.Seq2[model.Triple, error] {
	used := false
	return func(yield func(model.Triple, error) bool) {
		require.False(t, used, "single-pass stream iterated twice")
		used = true
		for _, tr := range s {
			if !yield(tr, nil) {
				return
			}
		}
	}
}

func TestMaterialize_Replay(t *testing.T) {
	ctx := context.Background()
	in := sample()

	for _, c := range compressions {
		t.Run(c.String(), func(t *testing.T) {
			sp, err := Materialize(ctx, once(t, in), func(o *SpoolOptions) {
				o.Dir = t.TempDir()
				o.Compression = c
			})
			require.NoError(t, err)
			assert.Equal(t, int64(len(in)), sp.Len())
			assert.Positive(t, sp.Size())

			for pass := 0; pass < 3; pass++ {
				got, err := Collect(ctx, sp)
				require.NoError(t, err)
				assert.Equal(t, in, got)
			}

			require.NoError(t, sp.Close())
			_, err = os.Stat(sp.Path())
			assert.ErrorIs(t, err, os.ErrNotExist)
			require.NoError(t, sp.Close())

			_, err = Collect(ctx, sp)
			assert.ErrorIs(t, err, ErrSpoolClosed)
		})
	}
}

func TestMaterialize_Empty(t *testing.T) {
	ctx := context.Background()
	sp, err := Materialize(ctx, once(t, nil), func(o *SpoolOptions) { o.Dir = t.TempDir() })
	require.NoError(t, err)
	defer sp.Close()

	got, err := Collect(ctx, sp)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMaterialize_SourceError(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("stream broke")
	seq := func(yield func(model.Triple, error) bool) {
		if !yield(model.MustProperty(1, "k", "v"), nil) {
			return
		}
		yield(model.Triple{}, boom)
	}

	_, err := Materialize(context.Background(), seq, func(o *SpoolOptions) { o.Dir = dir })
	assert.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "spool file is removed on failure")
}
