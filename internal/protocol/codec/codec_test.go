package codec

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/danmuck/edgelink/internal/protocol/schema"
	"github.com/danmuck/edgelink/internal/testutil/testlog"
)

func TestAppendInt32IsLittleEndian(t *testing.T) {
	testlog.Start(t)
	got, err := Append(nil, schema.ScalarOf(schema.Int32), Int32(42))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !bytes.Equal(got, []byte{0x2A, 0x00, 0x00, 0x00}) {
		t.Fatalf("unexpected encoding % X", got)
	}
}

func TestFloatUsesIEEEBitPattern(t *testing.T) {
	testlog.Start(t)
	got, err := Append(nil, schema.ScalarOf(schema.Float), Float(1.0))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !bytes.Equal(got, []byte{0x00, 0x00, 0x80, 0x3F}) {
		t.Fatalf("unexpected encoding % X", got)
	}
}

func TestRoundTripEveryShape(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name string
		typ  schema.FieldType
		val  Value
		size int
	}{
		{"char", schema.ScalarOf(schema.Char), Char('z'), 1},
		{"int8", schema.ScalarOf(schema.Int8), Int8(-5), 1},
		{"uint8", schema.ScalarOf(schema.Uint8), Uint8(250), 1},
		{"int16", schema.ScalarOf(schema.Int16), Int16(-1234), 2},
		{"uint16", schema.ScalarOf(schema.Uint16), Uint16(65000), 2},
		{"int32", schema.ScalarOf(schema.Int32), Int32(math.MinInt32), 4},
		{"uint32", schema.ScalarOf(schema.Uint32), Uint32(math.MaxUint32), 4},
		{"float", schema.ScalarOf(schema.Float), Float(-3.5), 4},
		{"fixed float", schema.FixedOf(schema.Float, 3), FloatArray{1, 2.5, -0.25}, 12},
		{"fixed int16", schema.FixedOf(schema.Int16, 2), Int16Array{-1, 300}, 4},
		{"fixed char", schema.FixedOf(schema.Char, 4), CharArray("abcd"), 4},
		{"variable uint8", schema.VariableOf(schema.Uint8), Uint8Array{1, 2, 3}, 4},
		{"variable int8", schema.VariableOf(schema.Int8), Int8Array{-1, 0, 1}, 4},
		{"variable uint16", schema.VariableOf(schema.Uint16), Uint16Array{7}, 3},
		{"variable int32", schema.VariableOf(schema.Int32), Int32Array{-7, 7}, 9},
		{"variable uint32", schema.VariableOf(schema.Uint32), Uint32Array{}, 1},
		{"string", schema.ScalarOf(schema.String), String("hello"), 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Check(tt.typ, tt.val); err != nil {
				t.Fatalf("check: %v", err)
			}
			if got := Size(tt.typ, tt.val); got != tt.size {
				t.Fatalf("size = %d want %d", got, tt.size)
			}
			prefix := []byte{0xEE}
			buf, err := Append(prefix, tt.typ, tt.val)
			if err != nil {
				t.Fatalf("append: %v", err)
			}
			if len(buf) != 1+tt.size {
				t.Fatalf("encoded %d bytes, want %d", len(buf)-1, tt.size)
			}
			out, n, err := Decode(tt.typ, buf, 1)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if n != tt.size {
				t.Fatalf("consumed %d, want %d", n, tt.size)
			}
			if !Equal(out, tt.val) {
				t.Fatalf("round trip mismatch: got %#v want %#v", out, tt.val)
			}
		})
	}
}

func TestVariableArrayBoundary(t *testing.T) {
	testlog.Start(t)
	typ := schema.VariableOf(schema.Uint8)
	max := make(Uint8Array, 255)
	for i := range max {
		max[i] = uint8(i)
	}
	buf, err := Append(nil, typ, max)
	if err != nil {
		t.Fatalf("append 255: %v", err)
	}
	if len(buf) != 256 || buf[0] != 255 {
		t.Fatalf("unexpected encoding len=%d count=%d", len(buf), buf[0])
	}
	out, n, err := Decode(typ, buf, 0)
	if err != nil || n != 256 || !Equal(out, max) {
		t.Fatalf("decode 255: n=%d err=%v", n, err)
	}

	tooLong := make(Uint8Array, 256)
	if _, err := Append(nil, typ, tooLong); !errors.Is(err, ErrArrayTooLong) {
		t.Fatalf("expected ErrArrayTooLong, got %v", err)
	}
	if _, err := Append(nil, schema.ScalarOf(schema.String), String(strings.Repeat("x", 256))); !errors.Is(err, ErrArrayTooLong) {
		t.Fatalf("expected ErrArrayTooLong for string, got %v", err)
	}
}

func TestStringAndCharArrayEncodeIdentically(t *testing.T) {
	testlog.Start(t)
	a, err := Append(nil, schema.ScalarOf(schema.String), String("pprz"))
	if err != nil {
		t.Fatalf("append string: %v", err)
	}
	b, err := Append(nil, schema.VariableOf(schema.Char), CharArray("pprz"))
	if err != nil {
		t.Fatalf("append char array: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("string % X != char array % X", a, b)
	}
	s, _, err := Decode(schema.ScalarOf(schema.String), b, 0)
	if err != nil || s != String("pprz") {
		t.Fatalf("decode as string: %v %v", s, err)
	}
}

func TestDecodeOutOfBounds(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name string
		typ  schema.FieldType
		buf  []byte
		at   int
	}{
		{"short scalar", schema.ScalarOf(schema.Int32), []byte{1, 2, 3}, 0},
		{"cursor at end", schema.ScalarOf(schema.Uint8), []byte{1}, 1},
		{"cursor past end", schema.ScalarOf(schema.Uint8), []byte{1}, 5},
		{"negative cursor", schema.ScalarOf(schema.Uint8), []byte{1}, -1},
		{"short fixed", schema.FixedOf(schema.Int16, 3), []byte{1, 2, 3, 4, 5}, 0},
		{"missing count", schema.VariableOf(schema.Uint8), []byte{}, 0},
		{"count exceeds data", schema.VariableOf(schema.Uint16), []byte{3, 1, 0, 2, 0}, 0},
		{"string count exceeds data", schema.ScalarOf(schema.String), []byte{10, 'a'}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Decode(tt.typ, tt.buf, tt.at); !errors.Is(err, ErrOutOfBounds) {
				t.Fatalf("expected ErrOutOfBounds, got %v", err)
			}
		})
	}
}

func TestCheckRejectsMismatches(t *testing.T) {
	testlog.Start(t)
	if err := Check(schema.ScalarOf(schema.Int32), Int16(1)); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch for base mismatch, got %v", err)
	}
	if err := Check(schema.ScalarOf(schema.Int16), Int16Array{1}); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch for array in scalar, got %v", err)
	}
	if err := Check(schema.FixedOf(schema.Float, 3), FloatArray{1, 2}); !errors.Is(err, ErrArrayLength) {
		t.Fatalf("expected ErrArrayLength, got %v", err)
	}
	if err := Check(schema.VariableOf(schema.Float), Float(1)); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch for scalar in array, got %v", err)
	}
	if err := Check(schema.ScalarOf(schema.Uint8), nil); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch for nil, got %v", err)
	}
}

func TestDecodedArraysDoNotAliasInput(t *testing.T) {
	testlog.Start(t)
	buf := []byte{2, 'o', 'k'}
	v, _, err := Decode(schema.VariableOf(schema.Char), buf, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	buf[1] = 'X'
	if string(v.(CharArray)) != "ok" {
		t.Fatalf("decoded value changed with input: %q", v)
	}
}

func TestFormat(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		val    Value
		asChar bool
		want   string
	}{
		{Int8(65), false, "65"},
		{Int8(65), true, "A"},
		{Uint8Array{72, 105}, false, "{72,105}"},
		{Uint8Array{72, 105}, true, "{H,i}"},
		{CharArray("abc"), false, `"abc"`},
		{String("text"), false, "text"},
		{Float(1.5), false, "1.500000"},
		{Int16Array{-1, 2}, false, "{-1,2}"},
		{Uint32(7), false, "7"},
		{nil, false, "NOTSET"},
	}
	for _, tt := range tests {
		if got := Format(tt.val, tt.asChar); got != tt.want {
			t.Fatalf("Format(%#v, %v) = %q want %q", tt.val, tt.asChar, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		raw  string
		typ  schema.FieldType
		want Value
	}{
		{"42", schema.ScalarOf(schema.Int32), Int32(42)},
		{"0x10", schema.ScalarOf(schema.Uint16), Uint16(16)},
		{"-3.25", schema.ScalarOf(schema.Float), Float(-3.25)},
		{"q", schema.ScalarOf(schema.Char), Char('q')},
		{"{1, 2, 3}", schema.FixedOf(schema.Int8, 3), Int8Array{1, 2, 3}},
		{"1.5,2", schema.VariableOf(schema.Float), FloatArray{1.5, 2}},
		{"", schema.VariableOf(schema.Uint8), Uint8Array{}},
		{"hi there", schema.ScalarOf(schema.String), String("hi there")},
		{"abc", schema.VariableOf(schema.Char), CharArray("abc")},
	}
	for _, tt := range tests {
		got, err := Parse(tt.typ, tt.raw)
		if err != nil {
			t.Fatalf("parse %q as %s: %v", tt.raw, tt.typ, err)
		}
		if !Equal(got, tt.want) {
			t.Fatalf("parse %q = %#v want %#v", tt.raw, got, tt.want)
		}
	}
	if _, err := Parse(schema.ScalarOf(schema.Uint8), "300"); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch for overflow, got %v", err)
	}
	if _, err := Parse(schema.FixedOf(schema.Int16, 2), "1,2,3"); !errors.Is(err, ErrArrayLength) {
		t.Fatalf("expected ErrArrayLength, got %v", err)
	}
}
