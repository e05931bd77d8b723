package codec

import (
	"io"
	"testing"
)

type benchValue struct {
	T string `json:"t"`
	I int64  `json:"i,omitempty"`
	S string `json:"s,omitempty"`
}

type benchPayload struct {
	Kind  string                `json:"k"`
	Out   benchValue            `json:"o"`
	Label string                `json:"l"`
	In    benchValue            `json:"i"`
	Props map[string]benchValue `json:"p"`
}

func benchmarkCodecMarshal(b *testing.B, c Codec, v any) {
	b.Helper()
	b.ReportAllocs()

	warm, err := c.Marshal(v)
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(warm)))

	var sink []byte
	b.ResetTimer()
	for b.Loop() {
		out, err := c.Marshal(v)
		if err != nil {
			b.Fatal(err)
		}
		sink = out
	}
	_ = sink
}

func benchmarkCodecUnmarshal[T any](b *testing.B, c Codec, data []byte, dst *T) {
	b.Helper()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	var v T
	b.ResetTimer()
	for b.Loop() {
		if err := c.Unmarshal(data, &v); err != nil {
			b.Fatal(err)
		}
	}
	if dst != nil {
		*dst = v
	}
}

func BenchmarkCodec_Marshal_Payload(b *testing.B) {
	payload := benchPayload{
		Kind:  "e",
		Out:   benchValue{T: "int", I: 123456789},
		Label: "knows",
		In:    benchValue{T: "str", S: "http://example.org/people/p42"},
		Props: map[string]benchValue{
			"since":  {T: "int", I: 2020},
			"source": {T: "str", S: "bench"},
		},
	}

	b.Run("stdlib", func(b *testing.B) { benchmarkCodecMarshal(b, JSON{}, payload) })
	b.Run("go-json", func(b *testing.B) { benchmarkCodecMarshal(b, GoJSON{}, payload) })
}

func BenchmarkCodec_Unmarshal_Payload(b *testing.B) {
	payload := benchPayload{
		Kind:  "e",
		Out:   benchValue{T: "int", I: 123456789},
		Label: "knows",
		In:    benchValue{T: "str", S: "http://example.org/people/p42"},
		Props: map[string]benchValue{
			"since":  {T: "int", I: 2020},
			"source": {T: "str", S: "bench"},
		},
	}

	jsonData := MustMarshal(JSON{}, payload)

	b.Run("stdlib", func(b *testing.B) {
		var sink benchPayload
		benchmarkCodecUnmarshal(b, JSON{}, jsonData, &sink)
		_ = sink
	})
	b.Run("go-json", func(b *testing.B) {
		var sink benchPayload
		benchmarkCodecUnmarshal(b, GoJSON{}, jsonData, &sink)
		_ = sink
	})
}

func BenchmarkCodec_Encode_Stream(b *testing.B) {
	payload := benchPayload{Kind: "p", Out: benchValue{T: "int", I: 1}, Label: "name"}

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		b.Run(c.Name(), func(b *testing.B) {
			b.ReportAllocs()
			enc := c.NewEncoder(io.Discard)
			for b.Loop() {
				if err := enc.Encode(payload); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
