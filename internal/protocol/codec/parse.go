package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/edgelink/internal/protocol/schema"
)

// Parse builds a value of type t from text. Arrays are comma separated and
// may be wrapped in braces; char arrays and strings take the text as is.
func Parse(t schema.FieldType, raw string) (Value, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	var v Value
	var err error
	switch {
	case t.Base == schema.String:
		v = String(raw)
	case t.Kind == schema.Scalar:
		v, err = parseScalar(t.Base, strings.TrimSpace(raw))
	case t.Base == schema.Char:
		v = CharArray(raw)
	default:
		v, err = parseArray(t.Base, splitList(raw))
	}
	if err != nil {
		return nil, err
	}
	if err := Check(t, v); err != nil {
		return nil, err
	}
	return v, nil
}

func splitList(raw string) []string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseScalar(b schema.BaseType, s string) (Value, error) {
	switch b {
	case schema.Char:
		if len(s) != 1 {
			return nil, fmt.Errorf("%w: char needs one byte, got %q", ErrTypeMismatch, s)
		}
		return Char(s[0]), nil
	case schema.Float:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		return Float(float32(f)), nil
	case schema.Int8, schema.Int16, schema.Int32:
		bits := b.Size() * 8
		n, err := strconv.ParseInt(s, 0, bits)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		switch b {
		case schema.Int8:
			return Int8(n), nil
		case schema.Int16:
			return Int16(n), nil
		default:
			return Int32(n), nil
		}
	case schema.Uint8, schema.Uint16, schema.Uint32:
		bits := b.Size() * 8
		n, err := strconv.ParseUint(s, 0, bits)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		switch b {
		case schema.Uint8:
			return Uint8(n), nil
		case schema.Uint16:
			return Uint16(n), nil
		default:
			return Uint32(n), nil
		}
	}
	return nil, fmt.Errorf("%w: cannot parse %s", ErrTypeMismatch, b)
}

func parseArray(b schema.BaseType, items []string) (Value, error) {
	var out Value
	switch b {
	case schema.Int8:
		out = make(Int8Array, 0, len(items))
	case schema.Int16:
		out = make(Int16Array, 0, len(items))
	case schema.Int32:
		out = make(Int32Array, 0, len(items))
	case schema.Uint8:
		out = make(Uint8Array, 0, len(items))
	case schema.Uint16:
		out = make(Uint16Array, 0, len(items))
	case schema.Uint32:
		out = make(Uint32Array, 0, len(items))
	case schema.Float:
		out = make(FloatArray, 0, len(items))
	default:
		return nil, fmt.Errorf("%w: cannot parse %s array", ErrTypeMismatch, b)
	}
	for _, item := range items {
		v, err := parseScalar(b, item)
		if err != nil {
			return nil, err
		}
		switch arr := out.(type) {
		case Int8Array:
			out = append(arr, int8(v.(Int8)))
		case Int16Array:
			out = append(arr, int16(v.(Int16)))
		case Int32Array:
			out = append(arr, int32(v.(Int32)))
		case Uint8Array:
			out = append(arr, uint8(v.(Uint8)))
		case Uint16Array:
			out = append(arr, uint16(v.(Uint16)))
		case Uint32Array:
			out = append(arr, uint32(v.(Uint32)))
		case FloatArray:
			out = append(arr, float32(v.(Float)))
		}
	}
	return out, nil
}
