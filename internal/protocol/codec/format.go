package codec

import (
	"strconv"
	"strings"
)

// Format renders v for display. Char arrays print quoted, strings print as
// is, other arrays print as {a,b,c}. 8-bit integers print as numbers unless
// int8AsChar is set.
func Format(v Value, int8AsChar bool) string {
	var b strings.Builder
	switch x := v.(type) {
	case nil:
		return "NOTSET"
	case Char:
		b.WriteByte(byte(x))
	case Int8:
		writeInt8(&b, byte(x), int64(x), int8AsChar)
	case Uint8:
		writeInt8(&b, byte(x), int64(x), int8AsChar)
	case Int16:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case Uint16:
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case Int32:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case Uint32:
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case Float:
		b.WriteString(formatFloat(float32(x)))
	case String:
		b.WriteString(string(x))
	case CharArray:
		b.WriteByte('"')
		b.Write(x)
		b.WriteByte('"')
	case Int8Array:
		writeList(&b, x, func(e int8) { writeInt8(&b, byte(e), int64(e), int8AsChar) })
	case Uint8Array:
		writeList(&b, x, func(e uint8) { writeInt8(&b, e, int64(e), int8AsChar) })
	case Int16Array:
		writeList(&b, x, func(e int16) { b.WriteString(strconv.FormatInt(int64(e), 10)) })
	case Uint16Array:
		writeList(&b, x, func(e uint16) { b.WriteString(strconv.FormatUint(uint64(e), 10)) })
	case Int32Array:
		writeList(&b, x, func(e int32) { b.WriteString(strconv.FormatInt(int64(e), 10)) })
	case Uint32Array:
		writeList(&b, x, func(e uint32) { b.WriteString(strconv.FormatUint(uint64(e), 10)) })
	case FloatArray:
		writeList(&b, x, func(e float32) { b.WriteString(formatFloat(e)) })
	}
	return b.String()
}

func writeInt8(b *strings.Builder, raw byte, n int64, asChar bool) {
	if asChar {
		b.WriteByte(raw)
		return
	}
	b.WriteString(strconv.FormatInt(n, 10))
}

func writeList[T any](b *strings.Builder, xs []T, each func(T)) {
	b.WriteByte('{')
	for i, e := range xs {
		if i != 0 {
			b.WriteByte(',')
		}
		each(e)
	}
	b.WriteByte('}')
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', 6, 32)
}
