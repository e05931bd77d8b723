// Package codec centralizes the JSON encoding of triple dumps, spool files
// and stored property values.
//
// Dumps are self-describing: their header records the codec name, and readers
// select the matching codec with ByName. Both built-in codecs produce plain
// JSON, so a dump written by one can be read by the other.
package codec

import (
	"fmt"
	"io"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string

	// NewEncoder returns a stream encoder writing one value per line to w.
	NewEncoder(w io.Writer) Encoder
	// NewDecoder returns a stream decoder reading consecutive values from r.
	NewDecoder(r io.Reader) Decoder
}

// Encoder writes a stream of values.
type Encoder interface {
	Encode(v any) error
}

// Decoder reads a stream of values. Decode returns io.EOF after the last one.
type Decoder interface {
	Decode(v any) error
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// MustMarshal is a helper for tests and benchmarks.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
