package message

import (
	"fmt"
	"strings"

	"github.com/danmuck/edgelink/internal/protocol/codec"
	"github.com/danmuck/edgelink/internal/protocol/schema"
)

// Message is a set of field values for one definition plus routing ids.
// Values are filled incrementally; completeness is checked at Serialize.
type Message struct {
	SenderID    uint8
	ReceiverID  uint8
	ComponentID uint8

	def    *schema.MessageDefinition
	values []codec.Value
}

// New returns an empty message for def.
func New(def *schema.MessageDefinition) *Message {
	return &Message{def: def, values: make([]codec.Value, def.NumFields())}
}

// Definition returns the schema the message was built against.
func (m *Message) Definition() *schema.MessageDefinition {
	return m.def
}

// Name returns the definition name.
func (m *Message) Name() string {
	return m.def.Name
}

// Set stores a copy of v for the named field after checking it against the
// field type. Later changes to the caller's slice do not reach the message.
func (m *Message) Set(name string, v codec.Value) error {
	f, i, err := m.def.FieldByName(name)
	if err != nil {
		return &FieldError{Message: m.def.Name, Field: name, Err: err}
	}
	if err := codec.Check(f.Type, v); err != nil {
		return &FieldError{Message: m.def.Name, Field: name, Err: err}
	}
	m.values[i] = codec.Copy(v)
	return nil
}

// MustSet is Set for statically known values; it panics on error.
func (m *Message) MustSet(name string, v codec.Value) *Message {
	if err := m.Set(name, v); err != nil {
		panic(err)
	}
	return m
}

// Get returns the value of the named field.
func (m *Message) Get(name string) (codec.Value, error) {
	_, i, err := m.def.FieldByName(name)
	if err != nil {
		return nil, &FieldError{Message: m.def.Name, Field: name, Err: err}
	}
	if m.values[i] == nil {
		return nil, &FieldError{Message: m.def.Name, Field: name, Err: ErrNotSet}
	}
	return m.values[i], nil
}

// Value returns the named field as a concrete value type.
func Value[T codec.Value](m *Message, name string) (T, error) {
	var zero T
	v, err := m.Get(name)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, &FieldError{Message: m.def.Name, Field: name, Err: fmt.Errorf("%w: holds %T, asked for %T", codec.ErrTypeMismatch, v, zero)}
	}
	return out, nil
}

// Missing lists the fields without a value, in schema order.
func (m *Message) Missing() []string {
	var out []string
	for i, v := range m.values {
		if v == nil {
			out = append(out, m.def.Field(i).Name)
		}
	}
	return out
}

// Complete reports whether every field has a value.
func (m *Message) Complete() bool {
	for _, v := range m.values {
		if v == nil {
			return false
		}
	}
	return true
}

// Size returns the serialized size of the fields.
func (m *Message) Size() (int, error) {
	if missing := m.Missing(); len(missing) > 0 {
		return 0, fmt.Errorf("%w: %s missing %s", ErrIncomplete, m.def.Name, strings.Join(missing, ","))
	}
	size := 0
	for i, v := range m.values {
		size += codec.Size(m.def.Field(i).Type, v)
	}
	return size, nil
}

// Serialize encodes every field in schema order.
func (m *Message) Serialize() ([]byte, error) {
	return m.AppendFields(nil)
}

// AppendFields appends the encoded fields to dst.
func (m *Message) AppendFields(dst []byte) ([]byte, error) {
	if missing := m.Missing(); len(missing) > 0 {
		return dst, fmt.Errorf("%w: %s missing %s", ErrIncomplete, m.def.Name, strings.Join(missing, ","))
	}
	var err error
	for i, v := range m.values {
		f := m.def.Field(i)
		dst, err = codec.Append(dst, f.Type, v)
		if err != nil {
			return dst, &FieldError{Message: m.def.Name, Field: f.Name, Err: err}
		}
	}
	return dst, nil
}

// Deserialize decodes the fields of def from buf starting at cursor. The
// last field must end exactly at len(buf).
func Deserialize(def *schema.MessageDefinition, buf []byte, cursor int) (*Message, error) {
	if def == nil {
		return nil, ErrNilDefinition
	}
	m := New(def)
	pos := cursor
	for i, f := range def.Fields() {
		v, n, err := codec.Decode(f.Type, buf, pos)
		if err != nil {
			return nil, &FieldError{Message: def.Name, Field: f.Name, Err: err}
		}
		m.values[i] = v
		pos += n
	}
	if pos != len(buf) {
		return nil, fmt.Errorf("%w: %s ended at %d of %d", ErrTrailingBytes, def.Name, pos, len(buf))
	}
	return m, nil
}

// Equal compares definitions, routing ids and every field value.
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.def != other.def && (m.def.ClassID != other.def.ClassID || m.def.ID != other.def.ID || m.def.Name != other.def.Name) {
		return false
	}
	if m.SenderID != other.SenderID || m.ReceiverID != other.ReceiverID || m.ComponentID != other.ComponentID {
		return false
	}
	if len(m.values) != len(other.values) {
		return false
	}
	for i := range m.values {
		if !codec.Equal(m.values[i], other.values[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (m *Message) Clone() *Message {
	out := &Message{
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		ComponentID: m.ComponentID,
		def:         m.def,
		values:      make([]codec.Value, len(m.values)),
	}
	for i, v := range m.values {
		if v != nil {
			out.values[i] = codec.Copy(v)
		}
	}
	return out
}
