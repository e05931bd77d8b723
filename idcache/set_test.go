package idcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	for _, shape := range allShapes {
		t.Run(shape.String(), func(t *testing.T) {
			s := NewSet(shape)

			added, err := s.Add(idFor(shape, 1))
			require.NoError(t, err)
			assert.True(t, added)

			added, err = s.Add(idFor(shape, 1))
			require.NoError(t, err)
			assert.False(t, added)

			_, err = s.Add(idFor(shape, 2))
			require.NoError(t, err)
			assert.Equal(t, 2, s.Len())
			assert.True(t, s.Contains(idFor(shape, 2)))

			s.Reset()
			assert.Equal(t, 0, s.Len())
			assert.False(t, s.Contains(idFor(shape, 1)))
		})
	}
}

func TestNumberSet_Negative(t *testing.T) {
	s := NewSet(ShapeNumber)
	added, err := s.Add(-5)
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, s.Contains(int64(-5)))
	assert.False(t, s.Contains(5))
}

func TestObjectSet_IntegerKinds(t *testing.T) {
	s := NewSet(ShapeObject)
	added, err := s.Add(7)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add(uint64(7))
	require.NoError(t, err)
	assert.False(t, added)
	assert.True(t, s.Contains(int8(7)))
	assert.Equal(t, 1, s.Len())
}

func TestSet_Unsupported(t *testing.T) {
	_, err := NewSet(ShapeNumber).Add("x")
	assert.ErrorIs(t, err, ErrUnsupportedID)

	_, err = NewSet(ShapeString).Add(1)
	assert.ErrorIs(t, err, ErrUnsupportedID)

	_, err = NewSet(ShapeObject).Add(map[string]int{})
	assert.ErrorIs(t, err, ErrUnsupportedID)
}
