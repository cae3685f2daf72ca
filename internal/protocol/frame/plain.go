package frame

import (
	"fmt"

	"github.com/danmuck/edgelink/internal/protocol"
)

// PlainFrame is the pprz framing: STX | LENGTH | PAYLOAD | CK_A | CK_B.
type PlainFrame struct {
	stats Stats
	tx    *TxBuffer
	rx    *Parser
	out   []byte
}

// NewPlainFrame returns a pprz transport.
func NewPlainFrame() *PlainFrame {
	f := &PlainFrame{out: make([]byte, 0, protocol.BufferLen)}
	f.tx = NewTxBuffer(&f.stats)
	f.rx = NewParser(&f.stats, protocol.STX)
	return f
}

func (f *PlainFrame) Name() string  { return "pprz" }
func (f *PlainFrame) Overhead() int { return protocol.Overhead }

func (f *PlainFrame) CheckSpace(payloadLen int) error {
	return checkPlainSpace(payloadLen)
}

func checkPlainSpace(payloadLen int) error {
	if payloadLen < 0 || payloadLen > protocol.MaxPayloadLen {
		return fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, payloadLen, protocol.MaxPayloadLen)
	}
	return nil
}

func (f *PlainFrame) StartMessage(sink Sink, payloadLen int) error {
	if err := f.CheckSpace(payloadLen); err != nil {
		return err
	}
	return f.tx.Start(sink, payloadLen)
}

func (f *PlainFrame) PutBytes(b []byte) error {
	return f.tx.Put(b)
}

func (f *PlainFrame) EndMessage() error {
	payload, err := f.tx.Payload()
	if err != nil {
		f.tx.Abort()
		return err
	}
	f.out = AppendPlain(f.out[:0], protocol.STX, payload)
	return f.tx.Emit(f.out)
}

func (f *PlainFrame) AbortMessage() {
	f.tx.Abort()
}

func (f *PlainFrame) ParseByte(c byte) bool   { return f.rx.ParseByte(c) }
func (f *PlainFrame) Feed(b []byte) int       { return f.rx.Feed(b) }
func (f *PlainFrame) MessageReady() bool      { return f.rx.MessageReady() }
func (f *PlainFrame) Consume() ([]byte, bool) { return f.rx.Consume() }
func (f *PlainFrame) Reset()                  { f.rx.Reset() }
func (f *PlainFrame) Stats() StatsSnapshot    { return f.stats.Snapshot() }

// State exposes the receive state for diagnostics.
func (f *PlainFrame) State() State { return f.rx.State() }
