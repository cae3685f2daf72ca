package message

import (
	"strings"

	"github.com/danmuck/edgelink/internal/protocol/codec"
)

// FormatOptions tunes display rendering.
type FormatOptions struct {
	// Int8AsChar prints 8-bit integer fields as characters.
	Int8AsChar bool
}

// Format renders NAME [field=value; field={v1,v2}; ...]. Unset fields
// print as NOTSET.
func (m *Message) Format(opts FormatOptions) string {
	var b strings.Builder
	b.WriteString(m.def.Name)
	b.WriteString(" [")
	for i, v := range m.values {
		if i != 0 {
			b.WriteString("; ")
		}
		b.WriteString(m.def.Field(i).Name)
		b.WriteByte('=')
		b.WriteString(codec.Format(v, opts.Int8AsChar))
	}
	b.WriteByte(']')
	return b.String()
}

func (m *Message) String() string {
	return m.Format(FormatOptions{})
}
