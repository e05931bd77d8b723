package codec

import (
	"bytes"
	"errors"
	"io"
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Kind  string         `json:"k"`
	Out   int64          `json:"o"`
	Label string         `json:"l,omitempty"`
	Props map[string]any `json:"p,omitempty"`
}

var codecs = []Codec{JSON{}, GoJSON{}}

func TestByName(t *testing.T) {
	for _, c := range codecs {
		got, ok := ByName(c.Name())
		require.True(t, ok)
		assert.Equal(t, c, got)
	}
	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestCodec_Stream(t *testing.T) {
	in := []record{
		{Kind: "e", Out: 1 << 53, Label: "knows", Props: map[string]any{"since": "2020"}},
		{Kind: "p", Out: -7},
		{Kind: "e", Out: 3, Label: "<a&b>"},
	}

	for _, c := range codecs {
		t.Run(c.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			enc := c.NewEncoder(&buf)
			for _, r := range in {
				require.NoError(t, enc.Encode(r))
			}
			assert.Equal(t, len(in), bytes.Count(buf.Bytes(), []byte("\n")))
			assert.Contains(t, buf.String(), "<a&b>", "html is not escaped")

			// Streams are interchangeable between codecs.
			for _, reader := range codecs {
				dec := reader.NewDecoder(bytes.NewReader(buf.Bytes()))
				var out []record
				for {
					var r record
					err := dec.Decode(&r)
					if errors.Is(err, io.EOF) {
						break
					}
					require.NoError(t, err)
					out = append(out, r)
				}
				assert.Equal(t, in, out)
			}
		})
	}
}

func TestMustMarshal(t *testing.T) {
	assert.JSONEq(t, `{"k":"p","o":1}`, string(MustMarshal(nil, record{Kind: "p", Out: 1})))
	assert.Panics(t, func() { MustMarshal(JSON{}, func() {}) })
}

func TestValue(t *testing.T) {
	type level int16

	u, err := url.Parse("http://example.org/a#b")
	require.NoError(t, err)

	cases := []struct {
		in   any
		want any
	}{
		{"s", "s"},
		{true, true},
		{42, int64(42)},
		{int8(-3), int64(-3)},
		{level(7), int64(7)},
		{uint32(9), int64(9)},
		{uint64(math.MaxUint64), uint64(math.MaxUint64)},
		{float32(0.5), float64(0.5)},
		{2.25, 2.25},
		{u, u},
	}
	for _, tc := range cases {
		v, err := WrapValue(tc.in)
		require.NoError(t, err)

		var back Value
		require.NoError(t, Default.Unmarshal(MustMarshal(Default, v), &back))
		got, err := back.Any()
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err = WrapValue([]int{1})
	assert.ErrorIs(t, err, ErrUnsupportedValue)

	_, err = Value{T: "blob"}.Any()
	assert.ErrorIs(t, err, ErrInvalidValue)
}
