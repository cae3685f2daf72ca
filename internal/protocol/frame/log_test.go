package frame

import (
	"bytes"
	"testing"

	"github.com/danmuck/edgelink/internal/testutil/testlog"
)

func TestLogFrameLayout(t *testing.T) {
	testlog.Start(t)
	f := NewLogFrame(3, func() uint32 { return 0x01020304 })
	var out bytes.Buffer
	if err := WriteFrame(f, &out, []byte{0x10, 0x20}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ck := byte(2 + 3 + 4 + 3 + 2 + 1 + 0x10 + 0x20)
	want := []byte{0x99, 2, 3, 0x04, 0x03, 0x02, 0x01, 0x10, 0x20, ck}
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("frame = % X want % X", out.Bytes(), want)
	}
	if f.Overhead() != len(want)-2 {
		t.Fatalf("overhead %d does not match layout", f.Overhead())
	}
}

func TestLogFrameRoundTrip(t *testing.T) {
	testlog.Start(t)
	stamp := uint32(0)
	tx := NewLogFrame(9, func() uint32 { stamp += 10; return stamp })
	rx := NewLogFrame(0, nil)
	var wire bytes.Buffer
	_ = WriteFrame(tx, &wire, []byte{1, 2, 3})
	_ = WriteFrame(tx, &wire, nil)

	stream := wire.Bytes()
	stream = stream[rx.Feed(stream):]
	got, ok := rx.Consume()
	if !ok || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("first payload: %v %v", got, ok)
	}
	if rx.Source() != 9 || rx.Timestamp() != 10 {
		t.Fatalf("source=%d ts=%d", rx.Source(), rx.Timestamp())
	}
	rx.Feed(stream)
	got, ok = rx.Consume()
	if !ok || len(got) != 0 || rx.Timestamp() != 20 {
		t.Fatalf("empty payload: %v %v ts=%d", got, ok, rx.Timestamp())
	}
}

func TestLogFrameBadChecksum(t *testing.T) {
	testlog.Start(t)
	tx := NewLogFrame(1, func() uint32 { return 0 })
	var wire bytes.Buffer
	_ = WriteFrame(tx, &wire, []byte{5})
	frame := wire.Bytes()
	frame[len(frame)-1]++
	rx := NewLogFrame(0, nil)
	rx.Feed(frame)
	if rx.MessageReady() {
		t.Fatalf("corrupt log frame accepted")
	}
	if rx.Stats().Errors != 1 {
		t.Fatalf("errors = %d want 1", rx.Stats().Errors)
	}
}
