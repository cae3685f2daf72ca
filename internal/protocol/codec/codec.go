package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/danmuck/edgelink/internal/protocol/schema"
)

var (
	ErrOutOfBounds  = errors.New("codec: out of bounds")
	ErrTypeMismatch = errors.New("codec: value does not match field type")
	ErrArrayLength  = errors.New("codec: array length does not match fixed size")
	ErrArrayTooLong = errors.New("codec: variable array too long")
)

// Check reports whether v can be encoded as a field of type t.
func Check(t schema.FieldType, v Value) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("%w: nil value for %s", ErrTypeMismatch, t)
	}
	if v.Base() != t.Base {
		return fmt.Errorf("%w: %s value for %s field", ErrTypeMismatch, v.Base(), t)
	}
	switch t.Kind {
	case schema.Scalar:
		if !IsScalar(v) {
			return fmt.Errorf("%w: array value for %s field", ErrTypeMismatch, t)
		}
	case schema.Fixed:
		if IsScalar(v) {
			return fmt.Errorf("%w: scalar value for %s field", ErrTypeMismatch, t)
		}
		if v.Len() != t.Len {
			return fmt.Errorf("%w: got %d elements, want %d", ErrArrayLength, v.Len(), t.Len)
		}
	case schema.Variable:
		if IsScalar(v) {
			return fmt.Errorf("%w: scalar value for %s field", ErrTypeMismatch, t)
		}
		if v.Len() > schema.MaxVariableLen {
			return fmt.Errorf("%w: %d elements, max %d", ErrArrayTooLong, v.Len(), schema.MaxVariableLen)
		}
	}
	return nil
}

// Size returns the encoded size of v as a field of type t. v must pass Check.
func Size(t schema.FieldType, v Value) int {
	switch t.Kind {
	case schema.Scalar:
		return t.Base.Size()
	case schema.Fixed:
		return t.Base.Size() * t.Len
	default:
		return 1 + t.Base.Size()*v.Len()
	}
}

// Append encodes v as a field of type t onto dst.
func Append(dst []byte, t schema.FieldType, v Value) ([]byte, error) {
	if err := Check(t, v); err != nil {
		return dst, err
	}
	if t.Kind == schema.Variable {
		dst = append(dst, byte(v.Len()))
	}
	le := binary.LittleEndian
	switch x := v.(type) {
	case Char:
		dst = append(dst, byte(x))
	case Int8:
		dst = append(dst, byte(x))
	case Uint8:
		dst = append(dst, byte(x))
	case Int16:
		dst = le.AppendUint16(dst, uint16(x))
	case Uint16:
		dst = le.AppendUint16(dst, uint16(x))
	case Int32:
		dst = le.AppendUint32(dst, uint32(x))
	case Uint32:
		dst = le.AppendUint32(dst, uint32(x))
	case Float:
		dst = le.AppendUint32(dst, floatBits(float32(x)))
	case CharArray:
		dst = append(dst, x...)
	case String:
		dst = append(dst, x...)
	case Uint8Array:
		dst = append(dst, x...)
	case Int8Array:
		for _, e := range x {
			dst = append(dst, byte(e))
		}
	case Int16Array:
		for _, e := range x {
			dst = le.AppendUint16(dst, uint16(e))
		}
	case Uint16Array:
		for _, e := range x {
			dst = le.AppendUint16(dst, e)
		}
	case Int32Array:
		for _, e := range x {
			dst = le.AppendUint32(dst, uint32(e))
		}
	case Uint32Array:
		for _, e := range x {
			dst = le.AppendUint32(dst, e)
		}
	case FloatArray:
		for _, e := range x {
			dst = le.AppendUint32(dst, floatBits(e))
		}
	default:
		return dst, fmt.Errorf("%w: unsupported value %T", ErrTypeMismatch, v)
	}
	return dst, nil
}

// Decode reads one field of type t starting at buf[cursor]. It returns the
// value and the number of bytes consumed. Decoded arrays never alias buf.
func Decode(t schema.FieldType, buf []byte, cursor int) (Value, int, error) {
	if err := t.Validate(); err != nil {
		return nil, 0, err
	}
	if cursor < 0 || cursor > len(buf) {
		return nil, 0, fmt.Errorf("%w: cursor %d of %d", ErrOutOfBounds, cursor, len(buf))
	}
	pos := cursor
	count := 1
	switch t.Kind {
	case schema.Fixed:
		count = t.Len
	case schema.Variable:
		if pos >= len(buf) {
			return nil, 0, fmt.Errorf("%w: missing count for %s at %d", ErrOutOfBounds, t, pos)
		}
		count = int(buf[pos])
		pos++
	}
	width := t.Base.Size() * count
	if len(buf)-pos < width {
		return nil, 0, fmt.Errorf("%w: %s needs %d bytes at %d, have %d", ErrOutOfBounds, t, width, pos, len(buf)-pos)
	}
	data := buf[pos : pos+width]
	consumed := pos + width - cursor
	if t.Kind == schema.Scalar {
		return decodeScalar(t.Base, data), consumed, nil
	}
	return decodeArray(t.Base, data, count), consumed, nil
}

func decodeScalar(b schema.BaseType, data []byte) Value {
	le := binary.LittleEndian
	switch b {
	case schema.Char:
		return Char(data[0])
	case schema.Int8:
		return Int8(int8(data[0]))
	case schema.Uint8:
		return Uint8(data[0])
	case schema.Int16:
		return Int16(int16(le.Uint16(data)))
	case schema.Uint16:
		return Uint16(le.Uint16(data))
	case schema.Int32:
		return Int32(int32(le.Uint32(data)))
	case schema.Uint32:
		return Uint32(le.Uint32(data))
	default:
		return Float(math.Float32frombits(le.Uint32(data)))
	}
}

func decodeArray(b schema.BaseType, data []byte, count int) Value {
	le := binary.LittleEndian
	switch b {
	case schema.Char:
		return CharArray(append([]byte(nil), data...))
	case schema.String:
		return String(data)
	case schema.Uint8:
		return Uint8Array(append([]byte(nil), data...))
	case schema.Int8:
		out := make(Int8Array, count)
		for i := range out {
			out[i] = int8(data[i])
		}
		return out
	case schema.Int16:
		out := make(Int16Array, count)
		for i := range out {
			out[i] = int16(le.Uint16(data[2*i:]))
		}
		return out
	case schema.Uint16:
		out := make(Uint16Array, count)
		for i := range out {
			out[i] = le.Uint16(data[2*i:])
		}
		return out
	case schema.Int32:
		out := make(Int32Array, count)
		for i := range out {
			out[i] = int32(le.Uint32(data[4*i:]))
		}
		return out
	case schema.Uint32:
		out := make(Uint32Array, count)
		for i := range out {
			out[i] = le.Uint32(data[4*i:])
		}
		return out
	default:
		out := make(FloatArray, count)
		for i := range out {
			out[i] = math.Float32frombits(le.Uint32(data[4*i:]))
		}
		return out
	}
}

func floatBits(f float32) uint32 {
	return math.Float32bits(f)
}
