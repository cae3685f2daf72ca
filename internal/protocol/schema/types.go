package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// BaseType is the element type of a field.
type BaseType uint8

const (
	Char BaseType = iota + 1
	Int8
	Int16
	Int32
	Uint8
	Uint16
	Uint32
	Float
	String
)

var baseTypeNames = map[BaseType]string{
	Char:   "char",
	Int8:   "int8",
	Int16:  "int16",
	Int32:  "int32",
	Uint8:  "uint8",
	Uint16: "uint16",
	Uint32: "uint32",
	Float:  "float",
	String: "string",
}

var baseTypeOrder = []BaseType{Char, Uint8, Uint16, Uint32, Int8, Int16, Int32, Float, String}

func (b BaseType) String() string {
	if name, ok := baseTypeNames[b]; ok {
		return name
	}
	return fmt.Sprintf("basetype(%d)", uint8(b))
}

// Size returns the encoded width of one element. String has no fixed width
// and reports 1, the width of one character.
func (b BaseType) Size() int {
	switch b {
	case Char, Int8, Uint8, String:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float:
		return 4
	default:
		return 0
	}
}

// Valid reports whether b is one of the nine wire types.
func (b BaseType) Valid() bool {
	_, ok := baseTypeNames[b]
	return ok
}

// ArrayKind distinguishes scalars from fixed and variable arrays.
type ArrayKind uint8

const (
	Scalar ArrayKind = iota
	Fixed
	Variable
)

func (k ArrayKind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Fixed:
		return "fixed"
	case Variable:
		return "variable"
	default:
		return fmt.Sprintf("arraykind(%d)", uint8(k))
	}
}

// MaxVariableLen is the element cap of a variable array or string: the
// count prefix is one byte.
const MaxVariableLen = 255

// FieldType describes the wire shape of one field.
type FieldType struct {
	Base BaseType
	Kind ArrayKind
	// Len is the element count of a Fixed array, zero otherwise.
	Len int
}

// ScalarOf returns the scalar field type of b.
func ScalarOf(b BaseType) FieldType {
	if b == String {
		return FieldType{Base: String, Kind: Variable}
	}
	return FieldType{Base: b, Kind: Scalar}
}

// FixedOf returns a fixed array type of n elements.
func FixedOf(b BaseType, n int) FieldType {
	return FieldType{Base: b, Kind: Fixed, Len: n}
}

// VariableOf returns a variable array type.
func VariableOf(b BaseType) FieldType {
	return FieldType{Base: b, Kind: Variable}
}

// IsArray reports whether values of t are sequences. Strings count as
// variable char arrays on the wire but are not arrays at the type level.
func (t FieldType) IsArray() bool {
	return t.Base != String && t.Kind != Scalar
}

// ByteSize returns the encoded size, or 0 for variable-length types.
func (t FieldType) ByteSize() int {
	switch t.Kind {
	case Scalar:
		return t.Base.Size()
	case Fixed:
		return t.Base.Size() * t.Len
	default:
		return 0
	}
}

// Validate checks the invariants of the type.
func (t FieldType) Validate() error {
	if !t.Base.Valid() {
		return fmt.Errorf("%w: unknown base type %d", ErrBadFieldType, uint8(t.Base))
	}
	switch t.Kind {
	case Scalar:
		if t.Base == String {
			return fmt.Errorf("%w: string is always variable", ErrBadFieldType)
		}
		if t.Len != 0 {
			return fmt.Errorf("%w: scalar with length %d", ErrBadFieldType, t.Len)
		}
	case Fixed:
		if t.Base == String {
			return fmt.Errorf("%w: string cannot be a fixed array", ErrBadFieldType)
		}
		if t.Len <= 0 || t.Len > MaxVariableLen {
			return fmt.Errorf("%w: fixed array length %d", ErrBadFieldType, t.Len)
		}
	case Variable:
		if t.Len != 0 {
			return fmt.Errorf("%w: variable array with length %d", ErrBadFieldType, t.Len)
		}
	default:
		return fmt.Errorf("%w: unknown array kind %d", ErrBadFieldType, uint8(t.Kind))
	}
	return nil
}

func (t FieldType) String() string {
	switch {
	case t.Base == String:
		return "string"
	case t.Kind == Fixed:
		return t.Base.String() + "[" + strconv.Itoa(t.Len) + "]"
	case t.Kind == Variable:
		return t.Base.String() + "[]"
	default:
		return t.Base.String()
	}
}

// ParseFieldType parses catalog type strings such as "uint8", "float[3]",
// "int16[]" and "string".
func ParseFieldType(raw string) (FieldType, error) {
	s := strings.TrimSpace(raw)
	base := BaseType(0)
	for _, b := range baseTypeOrder {
		if strings.HasPrefix(s, baseTypeNames[b]) {
			base = b
			break
		}
	}
	if base == 0 {
		return FieldType{}, fmt.Errorf("%w: %q", ErrBadFieldType, raw)
	}
	rest := s[len(base.String()):]
	t := FieldType{Base: base, Kind: Scalar}
	switch {
	case rest == "":
		if base == String {
			t.Kind = Variable
		}
	case rest == "[]":
		if base == String {
			return FieldType{}, fmt.Errorf("%w: string arrays are not supported: %q", ErrBadFieldType, raw)
		}
		t.Kind = Variable
	case strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]"):
		n, err := strconv.Atoi(rest[1 : len(rest)-1])
		if err != nil {
			return FieldType{}, fmt.Errorf("%w: bad array length in %q", ErrBadFieldType, raw)
		}
		t.Kind = Fixed
		t.Len = n
	default:
		return FieldType{}, fmt.Errorf("%w: %q", ErrBadFieldType, raw)
	}
	if err := t.Validate(); err != nil {
		return FieldType{}, err
	}
	return t, nil
}

// MessageField is one named, typed field of a definition.
type MessageField struct {
	Name string
	Type FieldType
	// ByteSize is 0 for variable-length fields.
	ByteSize int
}

// NewMessageField builds a field, validating its type.
func NewMessageField(name string, t FieldType) (MessageField, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return MessageField{}, fmt.Errorf("%w: empty field name", ErrBadFieldType)
	}
	if err := t.Validate(); err != nil {
		return MessageField{}, fmt.Errorf("field %s: %w", name, err)
	}
	return MessageField{Name: name, Type: t, ByteSize: t.ByteSize()}, nil
}
