package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/hupe1980/batchgraph/codec"
	"github.com/hupe1980/batchgraph/model"
)

const (
	dumpFormat  = "batchgraph-triples"
	dumpVersion = 1
)

var (
	// ErrInvalidDump is returned when a dump header or record is malformed.
	ErrInvalidDump = errors.New("invalid triple dump")

	// ErrUnsupportedValue is returned when an id or property value has no
	// dump representation.
	ErrUnsupportedValue = codec.ErrUnsupportedValue
)

// Header is the first line of every dump. It is always plain JSON and
// describes how the rest of the stream is encoded.
type Header struct {
	Format      string `json:"format"`
	Version     int    `json:"version"`
	Codec       string `json:"codec"`
	Compression string `json:"compression"`
}

// record is the wire form of one triple.
type record struct {
	Kind  string                 `json:"k"`
	Out   codec.Value            `json:"o"`
	Key   string                 `json:"n"`
	Value *codec.Value           `json:"v,omitempty"`
	In    *codec.Value           `json:"i,omitempty"`
	Props map[string]codec.Value `json:"p,omitempty"`
}

// decodeValue unwraps a tagged value; malformed values make the dump invalid.
func decodeValue(v codec.Value) (any, error) {
	x, err := v.Any()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDump, err)
	}
	return x, nil
}

func toRecord(t model.Triple) (record, error) {
	out, err := codec.WrapValue(t.Out())
	if err != nil {
		return record{}, err
	}

	switch t.Kind() {
	case model.KindProperty:
		val, err := codec.WrapValue(t.Value())
		if err != nil {
			return record{}, fmt.Errorf("property %q: %w", t.Key(), err)
		}
		return record{Kind: "p", Out: out, Key: t.Key(), Value: &val}, nil
	case model.KindEdge:
		in, err := codec.WrapValue(t.In())
		if err != nil {
			return record{}, err
		}
		r := record{Kind: "e", Out: out, Key: t.Label(), In: &in}
		if t.NumProperties() > 0 {
			r.Props = make(map[string]codec.Value, t.NumProperties())
			for k, v := range t.Properties() {
				pv, err := codec.WrapValue(v)
				if err != nil {
					return record{}, fmt.Errorf("edge property %q: %w", k, err)
				}
				r.Props[k] = pv
			}
		}
		return r, nil
	default:
		return record{}, fmt.Errorf("%w: %v", model.ErrInvalidTriple, t)
	}
}

func (r record) triple() (model.Triple, error) {
	out, err := decodeValue(r.Out)
	if err != nil {
		return model.Triple{}, err
	}

	switch r.Kind {
	case "p":
		if r.Value == nil {
			return model.Triple{}, fmt.Errorf("%w: property record without value", ErrInvalidDump)
		}
		v, err := decodeValue(*r.Value)
		if err != nil {
			return model.Triple{}, err
		}
		return model.NewPropertyTriple(out, r.Key, v)
	case "e":
		if r.In == nil {
			return model.Triple{}, fmt.Errorf("%w: edge record without in vertex", ErrInvalidDump)
		}
		in, err := decodeValue(*r.In)
		if err != nil {
			return model.Triple{}, err
		}
		var props map[string]any
		if len(r.Props) > 0 {
			props = make(map[string]any, len(r.Props))
			for k, pv := range r.Props {
				if props[k], err = decodeValue(pv); err != nil {
					return model.Triple{}, err
				}
			}
		}
		return model.NewEdgeTriple(out, r.Key, in, props)
	default:
		return model.Triple{}, fmt.Errorf("%w: unknown record kind %q", ErrInvalidDump, r.Kind)
	}
}

// EncoderOptions configures an Encoder.
type EncoderOptions struct {
	// Codec encodes the records. Defaults to codec.Default.
	Codec codec.Codec
	// Compression compresses everything after the header.
	Compression Compression
}

// Encoder writes triples as a self-describing dump.
type Encoder struct {
	cw    io.WriteCloser
	enc   codec.Encoder
	count int64
	done  bool
}

// NewEncoder writes the dump header to w and returns an Encoder for the
// records. Close must be called to flush the compressor; it does not close w.
func NewEncoder(w io.Writer, optFns ...func(o *EncoderOptions)) (*Encoder, error) {
	opts := EncoderOptions{Codec: codec.Default}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}

	h := Header{
		Format:      dumpFormat,
		Version:     dumpVersion,
		Codec:       opts.Codec.Name(),
		Compression: opts.Compression.String(),
	}
	if err := (codec.JSON{}).NewEncoder(w).Encode(h); err != nil {
		return nil, fmt.Errorf("write dump header: %w", err)
	}

	cw, err := compressWriter(w, opts.Compression)
	if err != nil {
		return nil, err
	}
	return &Encoder{cw: cw, enc: opts.Codec.NewEncoder(cw)}, nil
}

// Encode appends one triple.
func (e *Encoder) Encode(t model.Triple) error {
	if e.done {
		return errors.New("encoder closed")
	}
	r, err := toRecord(t)
	if err != nil {
		return fmt.Errorf("encode %v: %w", t, err)
	}
	if err := e.enc.Encode(r); err != nil {
		return err
	}
	e.count++
	return nil
}

// Count returns the number of triples written.
func (e *Encoder) Count() int64 { return e.count }

// Close flushes buffered output.
func (e *Encoder) Close() error {
	if e.done {
		return nil
	}
	e.done = true
	return e.cw.Close()
}

// Write encodes one full pass of seq to w and returns the triple count.
func Write(ctx context.Context, w io.Writer, seq iter.Seq2[model.Triple, error], optFns ...func(o *EncoderOptions)) (int64, error) {
	enc, err := NewEncoder(w, optFns...)
	if err != nil {
		return 0, err
	}
	defer enc.Close()

	for t, err := range seq {
		if err != nil {
			return enc.Count(), err
		}
		if err := ctx.Err(); err != nil {
			return enc.Count(), err
		}
		if err := enc.Encode(t); err != nil {
			return enc.Count(), err
		}
	}
	return enc.Count(), enc.Close()
}

// Decoder reads a dump written by Encoder.
type Decoder struct {
	header Header
	rc     io.ReadCloser
	dec    codec.Decoder
}

// NewDecoder reads and validates the dump header.
func NewDecoder(r io.Reader) (*Decoder, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrInvalidDump)
		}
		return nil, err
	}

	var h Header
	if err := (codec.JSON{}).Unmarshal(line, &h); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrInvalidDump, err)
	}
	if h.Format != dumpFormat {
		return nil, fmt.Errorf("%w: format %q", ErrInvalidDump, h.Format)
	}
	if h.Version != dumpVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidDump, h.Version)
	}
	c, ok := codec.ByName(h.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidDump, h.Codec)
	}
	comp, err := ParseCompression(h.Compression)
	if err != nil {
		return nil, err
	}

	rc, err := decompressReader(br, comp)
	if err != nil {
		return nil, err
	}
	return &Decoder{header: h, rc: rc, dec: c.NewDecoder(rc)}, nil
}

// Header returns the dump header.
func (d *Decoder) Header() Header { return d.header }

// Next returns the next triple, or io.EOF after the last one.
func (d *Decoder) Next() (model.Triple, error) {
	var r record
	if err := d.dec.Decode(&r); err != nil {
		if errors.Is(err, io.EOF) {
			return model.Triple{}, io.EOF
		}
		return model.Triple{}, fmt.Errorf("%w: %w", ErrInvalidDump, err)
	}
	return r.triple()
}

// Close releases the decompressor. It does not close the underlying reader.
func (d *Decoder) Close() error { return d.rc.Close() }

// Decode returns a single pass over the dump in r.
func Decode(ctx context.Context, r io.Reader) iter.Seq2[model.Triple, error] {
	return func(yield func(model.Triple, error) bool) {
		d, err := NewDecoder(r)
		if err != nil {
			yield(model.Triple{}, err)
			return
		}
		defer d.Close()

		for {
			if err := ctx.Err(); err != nil {
				yield(model.Triple{}, err)
				return
			}
			t, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(model.Triple{}, err)
				return
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}
