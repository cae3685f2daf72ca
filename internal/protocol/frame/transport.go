package frame

import (
	"errors"
	"io"
)

var (
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrNoMessage       = errors.New("frame: no message in progress")
	ErrLengthMismatch  = errors.New("frame: payload length differs from StartMessage")
	ErrNilSink         = errors.New("frame: nil sink")
)

// Sink receives complete frames, one Write per frame.
type Sink interface {
	io.Writer
}

// Transport is one wire framing variant. The send side is a critical
// section from StartMessage until EndMessage or AbortMessage; concurrent
// senders block in StartMessage. The receive side has a single consumer.
type Transport interface {
	Name() string
	// Overhead is the number of bytes added around a payload.
	Overhead() int
	// CheckSpace reports ErrPayloadTooLarge when payloadLen cannot be framed.
	CheckSpace(payloadLen int) error

	StartMessage(sink Sink, payloadLen int) error
	PutBytes(b []byte) error
	EndMessage() error
	AbortMessage()

	// ParseByte advances the receive state machine and reports whether a
	// complete, valid message is ready.
	ParseByte(c byte) bool
	// Feed parses b until a message is ready and returns the bytes used.
	Feed(b []byte) int
	MessageReady() bool
	// Consume returns a copy of the ready payload and clears the ready flag.
	Consume() ([]byte, bool)
	// Reset drops any partial frame and returns to the initial state.
	Reset()

	Stats() StatsSnapshot
}

// WriteFrame sends one payload through t.
func WriteFrame(t Transport, sink Sink, payload []byte) error {
	if err := t.StartMessage(sink, len(payload)); err != nil {
		return err
	}
	if err := t.PutBytes(payload); err != nil {
		t.AbortMessage()
		return err
	}
	return t.EndMessage()
}

// feed is the shared Feed loop over a ParseByte function.
func feed(parse func(byte) bool, b []byte) int {
	for i, c := range b {
		if parse(c) {
			return i + 1
		}
	}
	return len(b)
}

var (
	_ Transport = (*PlainFrame)(nil)
	_ Transport = (*LogFrame)(nil)
	_ Transport = (*RadioFrame)(nil)
)
