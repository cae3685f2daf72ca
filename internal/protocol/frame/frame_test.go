package frame

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/danmuck/edgelink/internal/protocol"
	"github.com/danmuck/edgelink/internal/testutil/testlog"
)

func TestPlainFrameSingleInt32Payload(t *testing.T) {
	testlog.Start(t)
	f := NewPlainFrame()
	var out bytes.Buffer
	if err := WriteFrame(f, &out, []byte{0x2A, 0, 0, 0}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	want := []byte{0x99, 0x08, 0x2A, 0x00, 0x00, 0x00, 0x32, 0xD0}
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("frame = % X want % X", out.Bytes(), want)
	}
	s := f.Stats()
	if s.MessagesSent != 1 || s.BytesSent != 8 {
		t.Fatalf("unexpected tx stats %+v", s)
	}
}

func TestPlainFrameRoundTrip(t *testing.T) {
	testlog.Start(t)
	tx := NewPlainFrame()
	rx := NewPlainFrame()
	var wire bytes.Buffer
	payloads := [][]byte{
		{1, 0, 0x01, 2},
		{},
		bytes.Repeat([]byte{0x99}, protocol.MaxPayloadLen),
	}
	for _, p := range payloads {
		if err := WriteFrame(tx, &wire, p); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}
	stream := append([]byte{0x00, 0x13, 0x37}, wire.Bytes()...)
	for i, p := range payloads {
		n := rx.Feed(stream)
		stream = stream[n:]
		got, ok := rx.Consume()
		if !ok {
			t.Fatalf("payload %d not received", i)
		}
		if !bytes.Equal(got, p) {
			t.Fatalf("payload %d mismatch: got %d bytes want %d", i, len(got), len(p))
		}
	}
	if len(stream) != 0 {
		t.Fatalf("%d bytes left over", len(stream))
	}
	if s := rx.Stats(); s.Received != 3 || s.Errors != 0 {
		t.Fatalf("unexpected rx stats %+v", s)
	}
}

func TestParserBadChecksumResyncs(t *testing.T) {
	testlog.Start(t)
	f := NewPlainFrame()
	frame := AppendPlain(nil, protocol.STX, []byte{1, 2, 3, 4, 5})
	frame[len(frame)-2] ^= 0xFF
	for _, c := range frame {
		if f.ParseByte(c) {
			t.Fatalf("corrupt frame reported ready")
		}
	}
	if f.MessageReady() {
		t.Fatalf("message ready after bad ck_a")
	}
	if f.State() != StateUninit {
		t.Fatalf("state = %s want UNINIT", f.State())
	}
	if got := f.Stats().Errors; got != 1 {
		t.Fatalf("errors = %d want 1", got)
	}
}

func TestParserSingleBitFlipIsRejected(t *testing.T) {
	testlog.Start(t)
	good := AppendPlain(nil, protocol.STX, []byte{0x2A, 0, 0, 0})
	for i := 1; i < len(good); i++ {
		for bit := 0; bit < 8; bit++ {
			frame := append([]byte(nil), good...)
			frame[i] ^= 1 << bit
			p := NewParser(&Stats{})
			p.Feed(frame)
			if p.MessageReady() {
				t.Fatalf("flip byte %d bit %d accepted", i, bit)
			}
		}
	}
}

func TestParserOverrun(t *testing.T) {
	testlog.Start(t)
	f := NewPlainFrame()
	first := AppendPlain(nil, protocol.STX, []byte{1, 2, 3})
	second := AppendPlain(nil, protocol.STX, []byte{4, 5, 6})
	f.Feed(first)
	if !f.MessageReady() {
		t.Fatalf("first frame not ready")
	}
	f.Feed(second)
	s := f.Stats()
	if s.Overruns != 1 || s.Received != 1 {
		t.Fatalf("unexpected stats after overrun %+v", s)
	}
	got, ok := f.Consume()
	if !ok || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("first payload lost: %v %v", got, ok)
	}
	f.Feed(second)
	got, ok = f.Consume()
	if !ok || !bytes.Equal(got, []byte{4, 5, 6}) {
		t.Fatalf("second payload after consume: %v %v", got, ok)
	}
}

func TestParserShortLengthIsError(t *testing.T) {
	testlog.Start(t)
	f := NewPlainFrame()
	f.Feed([]byte{protocol.STX, 3, protocol.STX, 4, 4, 4})
	if !f.MessageReady() {
		t.Fatalf("empty frame after bad length not received")
	}
	s := f.Stats()
	if s.Errors != 1 || s.Received != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
	got, _ := f.Consume()
	if len(got) != 0 {
		t.Fatalf("expected empty payload, got % X", got)
	}
}

func TestParserResetDropsPartialFrame(t *testing.T) {
	testlog.Start(t)
	f := NewPlainFrame()
	frame := AppendPlain(nil, protocol.STX, []byte{9, 9, 9})
	f.Feed(frame[:4])
	if f.State() != StateGotLength {
		t.Fatalf("state = %s want GOT_LENGTH", f.State())
	}
	f.Reset()
	if f.State() != StateUninit {
		t.Fatalf("state after reset = %s", f.State())
	}
	f.Feed(frame)
	if _, ok := f.Consume(); !ok {
		t.Fatalf("frame after reset not received")
	}
}

func TestSecondaryStartByte(t *testing.T) {
	testlog.Start(t)
	p := NewParser(&Stats{}, protocol.STX, protocol.STXSecure)
	p.Feed(AppendPlain(nil, protocol.STXSecure, []byte{7}))
	if !p.MessageReady() || p.StartByte() != protocol.STXSecure {
		t.Fatalf("secure start byte not recognised")
	}
}

func TestTxErrors(t *testing.T) {
	testlog.Start(t)
	f := NewPlainFrame()
	var out bytes.Buffer
	if err := f.StartMessage(&out, protocol.MaxPayloadLen+1); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if err := f.PutBytes([]byte{1}); !errors.Is(err, ErrNoMessage) {
		t.Fatalf("expected ErrNoMessage, got %v", err)
	}
	if err := f.EndMessage(); !errors.Is(err, ErrNoMessage) {
		t.Fatalf("expected ErrNoMessage, got %v", err)
	}
	if err := f.StartMessage(nil, 1); !errors.Is(err, ErrNilSink) {
		t.Fatalf("expected ErrNilSink, got %v", err)
	}

	if err := f.StartMessage(&out, 3); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.PutBytes([]byte{1, 2, 3, 4}); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch on overflow, got %v", err)
	}
	_ = f.PutBytes([]byte{1})
	if err := f.EndMessage(); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch on short payload, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("partial frame written")
	}
	// the failed message released the send lock
	if err := WriteFrame(f, &out, []byte{5}); err != nil {
		t.Fatalf("write after failure: %v", err)
	}
}

func TestAbortReleasesSendLock(t *testing.T) {
	testlog.Start(t)
	f := NewPlainFrame()
	var out bytes.Buffer
	if err := f.StartMessage(&out, 2); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.AbortMessage()
	f.AbortMessage()
	if err := WriteFrame(f, &out, []byte{1, 2}); err != nil {
		t.Fatalf("write after abort: %v", err)
	}
	if out.Len() != 6 {
		t.Fatalf("expected one 6-byte frame, got %d bytes", out.Len())
	}
}

func TestConcurrentSendersDoNotInterleave(t *testing.T) {
	testlog.Start(t)
	tx := NewPlainFrame()
	var wire bytes.Buffer
	var wg sync.WaitGroup
	const senders, each = 8, 50
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func(id byte) {
			defer wg.Done()
			payload := bytes.Repeat([]byte{id}, 10+int(id))
			for i := 0; i < each; i++ {
				if err := WriteFrame(tx, &wire, payload); err != nil {
					t.Errorf("sender %d: %v", id, err)
					return
				}
			}
		}(byte(s))
	}
	wg.Wait()

	rx := NewPlainFrame()
	stream := wire.Bytes()
	count := 0
	for len(stream) > 0 {
		stream = stream[rx.Feed(stream):]
		if p, ok := rx.Consume(); ok {
			if len(p) != 10+int(p[0]) {
				t.Fatalf("payload of sender %d has length %d", p[0], len(p))
			}
			count++
		}
	}
	if count != senders*each {
		t.Fatalf("received %d frames want %d", count, senders*each)
	}
	if s := rx.Stats(); s.Errors != 0 {
		t.Fatalf("interleaved frames: %+v", s)
	}
}
