package message

import (
	"fmt"

	"github.com/danmuck/edgelink/internal/protocol"
	"github.com/danmuck/edgelink/internal/protocol/schema"
)

// Resolver finds definitions by class and message id. *schema.Catalog
// satisfies it.
type Resolver interface {
	LookupID(classID, msgID uint8) (*schema.MessageDefinition, error)
}

// Header is the routing prefix of every payload.
type Header struct {
	SenderID    uint8
	ReceiverID  uint8
	ClassID     uint8
	ComponentID uint8
	MessageID   uint8
}

// ParseHeader reads the four routing bytes at the start of payload.
func ParseHeader(payload []byte) (Header, error) {
	if len(payload) < protocol.HeaderLen {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrShortPayload, len(payload))
	}
	return Header{
		SenderID:    payload[0],
		ReceiverID:  payload[1],
		ClassID:     payload[2] & 0x0F,
		ComponentID: payload[2] >> 4,
		MessageID:   payload[3],
	}, nil
}

// Append writes the four routing bytes to dst.
func (h Header) Append(dst []byte) ([]byte, error) {
	if h.ClassID > schema.MaxClassID || h.ComponentID > schema.MaxComponentID {
		return dst, fmt.Errorf("%w: class=%d component=%d", ErrNibbleRange, h.ClassID, h.ComponentID)
	}
	return append(dst, h.SenderID, h.ReceiverID, h.ComponentID<<4|h.ClassID, h.MessageID), nil
}

// Header returns the routing header m would be sent with.
func (m *Message) Header() Header {
	return Header{
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		ClassID:     m.def.ClassID,
		ComponentID: m.ComponentID,
		MessageID:   m.def.ID,
	}
}

// EncodePayload returns SENDER | RECEIVER | CLASS_COMPONENT | MSG_ID | FIELDS.
func EncodePayload(m *Message) ([]byte, error) {
	return AppendPayload(nil, m)
}

// AppendPayload appends the encoded payload of m to dst.
func AppendPayload(dst []byte, m *Message) ([]byte, error) {
	start := len(dst)
	dst, err := m.Header().Append(dst)
	if err != nil {
		return dst, err
	}
	dst, err = m.AppendFields(dst)
	if err != nil {
		return dst[:start], err
	}
	return dst, nil
}

// DecodePayload resolves the definition named by the routing header and
// decodes the fields up to the end of payload.
func DecodePayload(r Resolver, payload []byte) (*Message, error) {
	h, err := ParseHeader(payload)
	if err != nil {
		return nil, err
	}
	def, err := r.LookupID(h.ClassID, h.MessageID)
	if err != nil {
		return nil, err
	}
	m, err := Deserialize(def, payload, protocol.HeaderLen)
	if err != nil {
		return nil, err
	}
	m.SenderID = h.SenderID
	m.ReceiverID = h.ReceiverID
	m.ComponentID = h.ComponentID
	return m, nil
}
