package frame

import "github.com/danmuck/edgelink/internal/protocol"

// State is a receive state of the pprz parser.
type State uint8

const (
	StateUninit State = iota
	StateGotSTX
	StateGotLength
	StateGotPayload
	StateGotCRC1
)

func (s State) String() string {
	switch s {
	case StateUninit:
		return "UNINIT"
	case StateGotSTX:
		return "GOT_STX"
	case StateGotLength:
		return "GOT_LENGTH"
	case StateGotPayload:
		return "GOT_PAYLOAD"
	case StateGotCRC1:
		return "GOT_CRC1"
	default:
		return "UNKNOWN"
	}
}

// Checksum returns the running pair seeded with length over payload.
func Checksum(length byte, payload []byte) (byte, byte) {
	a, b := length, length
	for _, c := range payload {
		a += c
		b += a
	}
	return a, b
}

// AppendPlain appends STX | LENGTH | PAYLOAD | CK_A | CK_B to dst. The
// caller checks that payload fits.
func AppendPlain(dst []byte, stx byte, payload []byte) []byte {
	length := byte(len(payload) + protocol.Overhead)
	a, b := Checksum(length, payload)
	dst = append(dst, stx, length)
	dst = append(dst, payload...)
	return append(dst, a, b)
}

// Parser is the pprz receive state machine. It accepts frames opened by
// any of its start bytes and remembers which one opened the ready frame.
type Parser struct {
	starts []byte
	stats  *Stats

	state   State
	stx     byte
	ckA     byte
	ckB     byte
	length  int
	idx     int
	ready   bool
	payload [protocol.BufferLen]byte
}

// NewParser returns a parser counting into stats.
func NewParser(stats *Stats, starts ...byte) *Parser {
	if len(starts) == 0 {
		starts = []byte{protocol.STX}
	}
	return &Parser{starts: append([]byte(nil), starts...), stats: stats}
}

func (p *Parser) isStart(c byte) bool {
	for _, s := range p.starts {
		if c == s {
			return true
		}
	}
	return false
}

// ParseByte advances the state machine by one byte.
func (p *Parser) ParseByte(c byte) bool {
	p.stats.BytesReceived.Add(1)
	switch p.state {
	case StateUninit:
		if p.isStart(c) {
			p.stx = c
			p.state = StateGotSTX
		}
	case StateGotSTX:
		if p.ready {
			p.stats.Overruns.Add(1)
			p.fail()
			return false
		}
		if int(c) < protocol.Overhead {
			p.fail()
			return false
		}
		p.length = int(c) - protocol.Overhead
		p.ckA, p.ckB = c, c
		p.idx = 0
		if p.length == 0 {
			p.state = StateGotPayload
		} else {
			p.state = StateGotLength
		}
	case StateGotLength:
		p.payload[p.idx] = c
		p.ckA += c
		p.ckB += p.ckA
		p.idx++
		if p.idx == p.length {
			p.state = StateGotPayload
		}
	case StateGotPayload:
		if c != p.ckA {
			p.fail()
			return false
		}
		p.state = StateGotCRC1
	case StateGotCRC1:
		if c != p.ckB {
			p.fail()
			return false
		}
		p.ready = true
		p.state = StateUninit
		p.stats.Received.Add(1)
		return true
	default:
		p.fail()
	}
	return false
}

func (p *Parser) fail() {
	p.stats.Errors.Add(1)
	p.state = StateUninit
}

// Feed parses b until a message is ready and returns the bytes used.
func (p *Parser) Feed(b []byte) int {
	return feed(p.ParseByte, b)
}

// MessageReady reports whether a payload is waiting to be consumed.
func (p *Parser) MessageReady() bool {
	return p.ready
}

// Payload returns the ready payload without copying or clearing it.
func (p *Parser) Payload() []byte {
	if !p.ready {
		return nil
	}
	return p.payload[:p.length]
}

// StartByte returns the start byte of the ready (or current) frame.
func (p *Parser) StartByte() byte {
	return p.stx
}

// Consume returns a copy of the ready payload and clears the ready flag.
func (p *Parser) Consume() ([]byte, bool) {
	if !p.ready {
		return nil, false
	}
	out := append([]byte(nil), p.payload[:p.length]...)
	p.ready = false
	return out, true
}

// Drop clears the ready flag without copying.
func (p *Parser) Drop() {
	p.ready = false
}

// State returns the current receive state.
func (p *Parser) State() State {
	return p.state
}

// Reset drops any partial or unconsumed frame.
func (p *Parser) Reset() {
	p.state = StateUninit
	p.ready = false
	p.idx = 0
	p.length = 0
}
