package frame

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/danmuck/edgelink/internal/protocol"
)

// LogOverhead counts STX, LENGTH, SOURCE, TIMESTAMP and CHECKSUM.
const LogOverhead = 8

// logHeaderLen is SOURCE plus the 4-byte timestamp.
const logHeaderLen = 5

// Clock returns a timestamp in units of 100 microseconds.
type Clock func() uint32

// SinceClock returns a Clock counting from start.
func SinceClock(start time.Time) Clock {
	return func() uint32 {
		return uint32(time.Since(start) / (100 * time.Microsecond))
	}
}

type logState uint8

const (
	logUninit logState = iota
	logGotSTX
	logGotLength
	logGotHeader
	logGotPayload
)

// LogFrame is the pprzlog framing used for on-board recording:
// STX | LEN | SOURCE | TIMESTAMP | PAYLOAD | CK, where LEN is the payload
// length and CK is the 8-bit sum of LEN through the end of the payload.
type LogFrame struct {
	source uint8
	clock  Clock
	stats  Stats
	tx     *TxBuffer
	out    []byte

	state     logState
	ck        byte
	length    int
	idx       int
	header    [logHeaderLen]byte
	payload   [protocol.BufferLen]byte
	ready     bool
	lastSrc   uint8
	lastStamp uint32
}

// NewLogFrame returns a pprzlog transport tagging sent frames with source.
// A nil clock counts from construction time.
func NewLogFrame(source uint8, clock Clock) *LogFrame {
	if clock == nil {
		clock = SinceClock(time.Now())
	}
	f := &LogFrame{
		source: source,
		clock:  clock,
		out:    make([]byte, 0, protocol.BufferLen+LogOverhead),
	}
	f.tx = NewTxBuffer(&f.stats)
	return f
}

func (f *LogFrame) Name() string  { return "pprzlog" }
func (f *LogFrame) Overhead() int { return LogOverhead }

func (f *LogFrame) CheckSpace(payloadLen int) error {
	if payloadLen < 0 || payloadLen > protocol.MaxFrameLen {
		return fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, payloadLen, protocol.MaxFrameLen)
	}
	return nil
}

func (f *LogFrame) StartMessage(sink Sink, payloadLen int) error {
	if err := f.CheckSpace(payloadLen); err != nil {
		return err
	}
	return f.tx.Start(sink, payloadLen)
}

func (f *LogFrame) PutBytes(b []byte) error {
	return f.tx.Put(b)
}

func (f *LogFrame) EndMessage() error {
	payload, err := f.tx.Payload()
	if err != nil {
		f.tx.Abort()
		return err
	}
	out := append(f.out[:0], protocol.STX, byte(len(payload)), f.source)
	out = binary.LittleEndian.AppendUint32(out, f.clock())
	out = append(out, payload...)
	var ck byte
	for _, c := range out[1:] {
		ck += c
	}
	f.out = append(out, ck)
	return f.tx.Emit(f.out)
}

func (f *LogFrame) AbortMessage() {
	f.tx.Abort()
}

func (f *LogFrame) ParseByte(c byte) bool {
	f.stats.BytesReceived.Add(1)
	switch f.state {
	case logUninit:
		if c == protocol.STX {
			f.state = logGotSTX
		}
	case logGotSTX:
		if f.ready {
			f.stats.Overruns.Add(1)
			f.fail()
			return false
		}
		f.length = int(c)
		f.ck = c
		f.idx = 0
		f.state = logGotLength
	case logGotLength:
		f.header[f.idx] = c
		f.ck += c
		f.idx++
		if f.idx == logHeaderLen {
			f.idx = 0
			if f.length == 0 {
				f.state = logGotPayload
			} else {
				f.state = logGotHeader
			}
		}
	case logGotHeader:
		f.payload[f.idx] = c
		f.ck += c
		f.idx++
		if f.idx == f.length {
			f.state = logGotPayload
		}
	case logGotPayload:
		if c != f.ck {
			f.fail()
			return false
		}
		f.lastSrc = f.header[0]
		f.lastStamp = binary.LittleEndian.Uint32(f.header[1:])
		f.ready = true
		f.state = logUninit
		f.stats.Received.Add(1)
		return true
	}
	return false
}

func (f *LogFrame) fail() {
	f.stats.Errors.Add(1)
	f.state = logUninit
}

func (f *LogFrame) Feed(b []byte) int  { return feed(f.ParseByte, b) }
func (f *LogFrame) MessageReady() bool { return f.ready }

func (f *LogFrame) Consume() ([]byte, bool) {
	if !f.ready {
		return nil, false
	}
	f.ready = false
	return append([]byte(nil), f.payload[:f.length]...), true
}

func (f *LogFrame) Reset() {
	f.state = logUninit
	f.ready = false
	f.idx = 0
}

func (f *LogFrame) Stats() StatsSnapshot { return f.stats.Snapshot() }

// Source returns the source byte of the last received frame.
func (f *LogFrame) Source() uint8 { return f.lastSrc }

// Timestamp returns the timestamp of the last received frame in units of
// 100 microseconds.
func (f *LogFrame) Timestamp() uint32 { return f.lastStamp }
