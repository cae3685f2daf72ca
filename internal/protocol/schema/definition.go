package schema

import (
	"fmt"
	"strings"
)

// MaxClassID and MaxComponentID bound the ids that share the
// class/component byte of the payload header.
const (
	MaxClassID     = 0x0F
	MaxComponentID = 0x0F
)

// MessageDefinition is the ordered, typed field list of one message kind.
// It is immutable once built.
type MessageDefinition struct {
	ClassID   uint8
	ID        uint8
	Name      string
	ClassName string

	fields []MessageField
	index  map[string]int
}

// NewMessageDefinition validates fields and builds a definition.
func NewMessageDefinition(classID, id uint8, name string, fields []MessageField) (*MessageDefinition, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ValidationError{Message: fmt.Sprintf("%d:%d", classID, id), Reason: "missing name"}
	}
	if classID > MaxClassID {
		return nil, ValidationError{Message: name, Reason: fmt.Sprintf("class id %d exceeds %d", classID, MaxClassID)}
	}
	def := &MessageDefinition{
		ClassID: classID,
		ID:      id,
		Name:    name,
		fields:  make([]MessageField, 0, len(fields)),
		index:   make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if err := f.Type.Validate(); err != nil {
			return nil, ValidationError{Message: name, Field: f.Name, Reason: err.Error()}
		}
		if _, dup := def.index[f.Name]; dup {
			return nil, ValidationError{Message: name, Field: f.Name, Reason: "duplicate field"}
		}
		f.ByteSize = f.Type.ByteSize()
		def.index[f.Name] = len(def.fields)
		def.fields = append(def.fields, f)
	}
	return def, nil
}

// Fields returns the ordered field list. Callers must not modify it.
func (d *MessageDefinition) Fields() []MessageField {
	return d.fields
}

// NumFields returns the number of fields.
func (d *MessageDefinition) NumFields() int {
	return len(d.fields)
}

// Field returns the i-th field.
func (d *MessageDefinition) Field(i int) MessageField {
	return d.fields[i]
}

// FieldByName looks up a field by name.
func (d *MessageDefinition) FieldByName(name string) (MessageField, int, error) {
	i, ok := d.index[name]
	if !ok {
		return MessageField{}, -1, fmt.Errorf("%w: %s in message %s", ErrNoSuchField, name, d.Name)
	}
	return d.fields[i], i, nil
}

// HasField reports whether the definition declares name.
func (d *MessageDefinition) HasField(name string) bool {
	_, ok := d.index[name]
	return ok
}

// MinimumSize sums the sizes of all fixed-size fields.
func (d *MessageDefinition) MinimumSize() int {
	size := 0
	for _, f := range d.fields {
		size += f.ByteSize
	}
	return size
}

// IsRequest reports whether the message is a request by naming convention.
func (d *MessageDefinition) IsRequest() bool {
	return strings.HasSuffix(d.Name, "_REQ")
}

func (d *MessageDefinition) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(%d) in class %d", d.Name, d.ID, d.ClassID)
	for _, f := range d.fields {
		fmt.Fprintf(&b, "\n\t%s : %s", f.Name, f.Type)
	}
	return b.String()
}
