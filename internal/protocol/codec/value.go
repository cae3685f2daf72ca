package codec

import (
	"slices"

	"github.com/danmuck/edgelink/internal/protocol/schema"
)

// Value is one typed field value. The set of implementations is closed:
// one per base type for scalars, one per base type for arrays, and String.
type Value interface {
	// Base is the element type.
	Base() schema.BaseType
	// Len is the element count, or -1 for scalars.
	Len() int
	value()
}

// Scalars.
type (
	Char   byte
	Int8   int8
	Int16  int16
	Int32  int32
	Uint8  uint8
	Uint16 uint16
	Uint32 uint32
	Float  float32
)

// Arrays. Fixed and variable arrays share a representation; the field
// type decides whether a count prefix is written.
type (
	CharArray   []byte
	Int8Array   []int8
	Int16Array  []int16
	Int32Array  []int32
	Uint8Array  []uint8
	Uint16Array []uint16
	Uint32Array []uint32
	FloatArray  []float32
)

// String is a variable char sequence labelled as text.
type String string

func (Char) Base() schema.BaseType   { return schema.Char }
func (Int8) Base() schema.BaseType   { return schema.Int8 }
func (Int16) Base() schema.BaseType  { return schema.Int16 }
func (Int32) Base() schema.BaseType  { return schema.Int32 }
func (Uint8) Base() schema.BaseType  { return schema.Uint8 }
func (Uint16) Base() schema.BaseType { return schema.Uint16 }
func (Uint32) Base() schema.BaseType { return schema.Uint32 }
func (Float) Base() schema.BaseType  { return schema.Float }

func (CharArray) Base() schema.BaseType   { return schema.Char }
func (Int8Array) Base() schema.BaseType   { return schema.Int8 }
func (Int16Array) Base() schema.BaseType  { return schema.Int16 }
func (Int32Array) Base() schema.BaseType  { return schema.Int32 }
func (Uint8Array) Base() schema.BaseType  { return schema.Uint8 }
func (Uint16Array) Base() schema.BaseType { return schema.Uint16 }
func (Uint32Array) Base() schema.BaseType { return schema.Uint32 }
func (FloatArray) Base() schema.BaseType  { return schema.Float }
func (String) Base() schema.BaseType      { return schema.String }

func (Char) Len() int   { return -1 }
func (Int8) Len() int   { return -1 }
func (Int16) Len() int  { return -1 }
func (Int32) Len() int  { return -1 }
func (Uint8) Len() int  { return -1 }
func (Uint16) Len() int { return -1 }
func (Uint32) Len() int { return -1 }
func (Float) Len() int  { return -1 }

func (v CharArray) Len() int   { return len(v) }
func (v Int8Array) Len() int   { return len(v) }
func (v Int16Array) Len() int  { return len(v) }
func (v Int32Array) Len() int  { return len(v) }
func (v Uint8Array) Len() int  { return len(v) }
func (v Uint16Array) Len() int { return len(v) }
func (v Uint32Array) Len() int { return len(v) }
func (v FloatArray) Len() int  { return len(v) }
func (v String) Len() int      { return len(v) }

func (Char) value()        {}
func (Int8) value()        {}
func (Int16) value()       {}
func (Int32) value()       {}
func (Uint8) value()       {}
func (Uint16) value()      {}
func (Uint32) value()      {}
func (Float) value()       {}
func (CharArray) value()   {}
func (Int8Array) value()   {}
func (Int16Array) value()  {}
func (Int32Array) value()  {}
func (Uint8Array) value()  {}
func (Uint16Array) value() {}
func (Uint32Array) value() {}
func (FloatArray) value()  {}
func (String) value()      {}

// IsScalar reports whether v holds a single element.
func IsScalar(v Value) bool {
	return v.Len() < 0
}

// Copy returns a value that shares no memory with v.
func Copy(v Value) Value {
	switch x := v.(type) {
	case CharArray:
		return append(CharArray(nil), x...)
	case Int8Array:
		return append(Int8Array(nil), x...)
	case Int16Array:
		return append(Int16Array(nil), x...)
	case Int32Array:
		return append(Int32Array(nil), x...)
	case Uint8Array:
		return append(Uint8Array(nil), x...)
	case Uint16Array:
		return append(Uint16Array(nil), x...)
	case Uint32Array:
		return append(Uint32Array(nil), x...)
	case FloatArray:
		return append(FloatArray(nil), x...)
	default:
		return v
	}
}

// Equal compares two values element by element. Floats compare by bit
// pattern so NaN payloads survive a round trip comparison.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case Float:
		y, ok := b.(Float)
		return ok && floatBits(float32(x)) == floatBits(float32(y))
	case CharArray:
		y, ok := b.(CharArray)
		return ok && slices.Equal(x, y)
	case Int8Array:
		y, ok := b.(Int8Array)
		return ok && slices.Equal(x, y)
	case Int16Array:
		y, ok := b.(Int16Array)
		return ok && slices.Equal(x, y)
	case Int32Array:
		y, ok := b.(Int32Array)
		return ok && slices.Equal(x, y)
	case Uint8Array:
		y, ok := b.(Uint8Array)
		return ok && slices.Equal(x, y)
	case Uint16Array:
		y, ok := b.(Uint16Array)
		return ok && slices.Equal(x, y)
	case Uint32Array:
		y, ok := b.(Uint32Array)
		return ok && slices.Equal(x, y)
	case FloatArray:
		y, ok := b.(FloatArray)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if floatBits(x[i]) != floatBits(y[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
