package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/danmuck/edgelink/internal/protocol"
)

// XBee API framing constants.
const (
	XBeeStart = 0x7E

	// XBeeAPIOverhead counts START, LEN_MSB, LEN_LSB and CHECKSUM.
	XBeeAPIOverhead = 4

	GroundStationAddr uint16 = 0x0100
	BroadcastAddr     uint16 = 0xFFFF
)

// XBeeVariant selects the radio module API.
type XBeeVariant uint8

const (
	XBee24 XBeeVariant = iota
	XBee868
)

type xbeeProfile struct {
	name       string
	txID       byte
	rxID       byte
	txHeader   []byte
	addrOffset int
	rxOffset   int
	// rssiIndex is the RSSI byte of an RX frame, or -1.
	rssiIndex int
}

var xbeeProfiles = map[XBeeVariant]xbeeProfile{
	XBee24: {
		name:       "2.4",
		txID:       0x01,
		rxID:       0x81,
		txHeader:   []byte{0x01, 0x00, 0x00, 0x00, 0x00},
		addrOffset: 2,
		rxOffset:   5,
		rssiIndex:  3,
	},
	XBee868: {
		name:       "868",
		txID:       0x10,
		rxID:       0x90,
		txHeader:   []byte{0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xFF, 0xFE, 0x00, 0x00},
		addrOffset: 8,
		rxOffset:   12,
		rssiIndex:  -1,
	},
}

func (v XBeeVariant) String() string {
	if p, ok := xbeeProfiles[v]; ok {
		return p.name
	}
	return fmt.Sprintf("xbee(%d)", uint8(v))
}

// ParseXBeeVariant accepts "2.4" and "868".
func ParseXBeeVariant(s string) (XBeeVariant, error) {
	for v, p := range xbeeProfiles {
		if p.name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("frame: unknown xbee variant %q", s)
}

// DestinationAddr maps a receiver id to the radio address.
func DestinationAddr(receiver uint8) uint16 {
	switch receiver {
	case 0:
		return GroundStationAddr
	case 0xFF:
		return BroadcastAddr
	default:
		return uint16(receiver)
	}
}

type radioState uint8

const (
	radioUninit radioState = iota
	radioGotStart
	radioGotLengthMSB
	radioGotLengthLSB
	radioGotPayload
)

// RadioFrame is XBee API framing: START | LEN(BE16) | FRAME_DATA | CS with
// a TX request header in front of the payload. The destination address is
// taken from the receiver byte of the payload.
type RadioFrame struct {
	profile xbeeProfile
	variant XBeeVariant
	stats   Stats
	tx      *TxBuffer
	out     []byte

	state  radioState
	cs     byte
	length int
	idx    int
	data   [protocol.BufferLen + 16]byte
	ready  bool
	start  int
	end    int
	rssi   uint8
}

// NewRadioFrame returns an XBee transport for variant.
func NewRadioFrame(variant XBeeVariant) (*RadioFrame, error) {
	p, ok := xbeeProfiles[variant]
	if !ok {
		return nil, fmt.Errorf("frame: unknown xbee variant %d", variant)
	}
	f := &RadioFrame{
		profile: p,
		variant: variant,
		out:     make([]byte, 0, protocol.BufferLen+XBeeAPIOverhead+len(p.txHeader)),
	}
	f.tx = NewTxBuffer(&f.stats)
	return f, nil
}

func (f *RadioFrame) Name() string         { return "xbee" }
func (f *RadioFrame) Variant() XBeeVariant { return f.variant }
func (f *RadioFrame) Overhead() int        { return XBeeAPIOverhead + len(f.profile.txHeader) }

func (f *RadioFrame) CheckSpace(payloadLen int) error {
	return checkPlainSpace(payloadLen)
}

func (f *RadioFrame) StartMessage(sink Sink, payloadLen int) error {
	if err := f.CheckSpace(payloadLen); err != nil {
		return err
	}
	return f.tx.Start(sink, payloadLen)
}

func (f *RadioFrame) PutBytes(b []byte) error {
	return f.tx.Put(b)
}

func (f *RadioFrame) EndMessage() error {
	payload, err := f.tx.Payload()
	if err != nil {
		f.tx.Abort()
		return err
	}
	dest := GroundStationAddr
	if len(payload) > 1 {
		dest = DestinationAddr(payload[1])
	}
	out := append(f.out[:0], XBeeStart, 0, 0)
	out = append(out, f.profile.txHeader...)
	binary.BigEndian.PutUint16(out[3+f.profile.addrOffset:], dest)
	out = append(out, payload...)
	data := out[3:]
	binary.BigEndian.PutUint16(out[1:3], uint16(len(data)))
	var sum byte
	for _, c := range data {
		sum += c
	}
	f.out = append(out, 0xFF-sum)
	return f.tx.Emit(f.out)
}

func (f *RadioFrame) AbortMessage() {
	f.tx.Abort()
}

func (f *RadioFrame) ParseByte(c byte) bool {
	f.stats.BytesReceived.Add(1)
	switch f.state {
	case radioUninit:
		if c == XBeeStart {
			f.state = radioGotStart
		}
	case radioGotStart:
		if f.ready {
			f.stats.Overruns.Add(1)
			f.fail()
			return false
		}
		f.length = int(c) << 8
		f.state = radioGotLengthMSB
	case radioGotLengthMSB:
		f.length |= int(c)
		if f.length == 0 || f.length > len(f.data) {
			f.fail()
			return false
		}
		f.idx = 0
		f.cs = 0
		f.state = radioGotLengthLSB
	case radioGotLengthLSB:
		f.data[f.idx] = c
		f.cs += c
		f.idx++
		if f.idx == f.length {
			f.state = radioGotPayload
		}
	case radioGotPayload:
		if c+f.cs != 0xFF {
			f.fail()
			return false
		}
		f.state = radioUninit
		return f.accept()
	}
	return false
}

// accept exposes the RF data of a checksum-valid API frame.
func (f *RadioFrame) accept() bool {
	data := f.data[:f.length]
	offset := 0
	switch data[0] {
	case f.profile.rxID:
		offset = f.profile.rxOffset
		if f.profile.rssiIndex >= 0 && len(data) > f.profile.rssiIndex {
			f.rssi = data[f.profile.rssiIndex]
		}
	case f.profile.txID:
		offset = len(f.profile.txHeader)
	default:
		f.stats.Ignored.Add(1)
		return false
	}
	if len(data) < offset {
		f.stats.Ignored.Add(1)
		return false
	}
	f.start, f.end = offset, len(data)
	f.ready = true
	f.stats.Received.Add(1)
	return true
}

func (f *RadioFrame) fail() {
	f.stats.Errors.Add(1)
	f.state = radioUninit
}

func (f *RadioFrame) Feed(b []byte) int  { return feed(f.ParseByte, b) }
func (f *RadioFrame) MessageReady() bool { return f.ready }

func (f *RadioFrame) Consume() ([]byte, bool) {
	if !f.ready {
		return nil, false
	}
	f.ready = false
	return append([]byte(nil), f.data[f.start:f.end]...), true
}

func (f *RadioFrame) Reset() {
	f.state = radioUninit
	f.ready = false
	f.idx = 0
}

func (f *RadioFrame) Stats() StatsSnapshot { return f.stats.Snapshot() }

// RSSI returns the signal strength reported with the last RX frame.
func (f *RadioFrame) RSSI() uint8 { return f.rssi }
