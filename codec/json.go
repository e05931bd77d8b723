package codec

import (
	"encoding/json"
	"io"
)

// JSON is the standard-library JSON codec.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// NewEncoder returns a newline-delimited JSON encoder.
func (JSON) NewEncoder(w io.Writer) Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// NewDecoder returns a JSON stream decoder.
func (JSON) NewDecoder(r io.Reader) Decoder { return json.NewDecoder(r) }

// Default is the codec used for newly written dumps and spool files.
//
// Existing dumps store the codec name in their header and are opened with
// the codec they were written with.
var Default Codec = GoJSON{}
