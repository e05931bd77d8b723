package codec

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
)

var (
	// ErrUnsupportedValue is returned when a value has no Value representation.
	ErrUnsupportedValue = errors.New("unsupported value type")

	// ErrInvalidValue is returned when a decoded Value is malformed.
	ErrInvalidValue = errors.New("invalid value")
)

// Value is a type-tagged scalar. Tagging keeps integers integral, which a
// bare JSON number would not guarantee.
//
// Integers of every kind decode as int64 (uint64 above math.MaxInt64),
// floats as float64.
type Value struct {
	T string  `json:"t"`
	I int64   `json:"i,omitempty"`
	U uint64  `json:"u,omitempty"`
	F float64 `json:"f,omitempty"`
	S string  `json:"s,omitempty"`
	B bool    `json:"b,omitempty"`
}

const (
	tagInt    = "int"
	tagUint   = "uint"
	tagFloat  = "float"
	tagString = "str"
	tagBool   = "bool"
	tagURL    = "url"
)

// WrapValue tags v. Supported are Go integers, floats, strings, bools, their
// named variants and *url.URL.
func WrapValue(v any) (Value, error) {
	switch x := v.(type) {
	case string:
		return Value{T: tagString, S: x}, nil
	case bool:
		return Value{T: tagBool, B: x}, nil
	case int:
		return Value{T: tagInt, I: int64(x)}, nil
	case int64:
		return Value{T: tagInt, I: x}, nil
	case float64:
		return Value{T: tagFloat, F: x}, nil
	case *url.URL:
		if x == nil {
			break
		}
		return Value{T: tagURL, S: x.String()}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Value{T: tagInt, I: rv.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			return Value{T: tagInt, I: int64(u)}, nil
		}
		return Value{T: tagUint, U: u}, nil
	case reflect.Float32, reflect.Float64:
		return Value{T: tagFloat, F: rv.Float()}, nil
	case reflect.String:
		return Value{T: tagString, S: rv.String()}, nil
	case reflect.Bool:
		return Value{T: tagBool, B: rv.Bool()}, nil
	}
	return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

// Any returns the Go value: int64, uint64, float64, string, bool or *url.URL.
func (v Value) Any() (any, error) {
	switch v.T {
	case tagInt:
		return v.I, nil
	case tagUint:
		return v.U, nil
	case tagFloat:
		return v.F, nil
	case tagString:
		return v.S, nil
	case tagBool:
		return v.B, nil
	case tagURL:
		u, err := url.Parse(v.S)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return u, nil
	default:
		return nil, fmt.Errorf("%w: unknown tag %q", ErrInvalidValue, v.T)
	}
}
