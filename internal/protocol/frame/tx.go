package frame

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/danmuck/edgelink/internal/protocol"
)

// TxBuffer accumulates one outgoing payload while holding the send lock of
// its transport. Variants build the frame around Payload and hand it to Emit.
type TxBuffer struct {
	mu     sync.Mutex
	active atomic.Bool
	sink   Sink
	want   int
	buf    []byte
	stats  *Stats
}

// NewTxBuffer returns a buffer that counts sends into stats.
func NewTxBuffer(stats *Stats) *TxBuffer {
	return &TxBuffer{
		buf:   make([]byte, 0, protocol.BufferLen),
		stats: stats,
	}
}

// Start acquires the send lock for a payload of n bytes.
func (t *TxBuffer) Start(sink Sink, n int) error {
	if sink == nil {
		return ErrNilSink
	}
	t.mu.Lock()
	t.active.Store(true)
	t.sink = sink
	t.want = n
	t.buf = t.buf[:0]
	return nil
}

// Put appends payload bytes.
func (t *TxBuffer) Put(b []byte) error {
	if !t.active.Load() {
		return ErrNoMessage
	}
	if len(t.buf)+len(b) > t.want {
		return fmt.Errorf("%w: %d bytes declared, %d written", ErrLengthMismatch, t.want, len(t.buf)+len(b))
	}
	t.buf = append(t.buf, b...)
	return nil
}

// Payload returns the accumulated payload once it has the declared length.
// The slice is valid until Emit or Abort.
func (t *TxBuffer) Payload() ([]byte, error) {
	if !t.active.Load() {
		return nil, ErrNoMessage
	}
	if len(t.buf) != t.want {
		return nil, fmt.Errorf("%w: %d bytes declared, %d written", ErrLengthMismatch, t.want, len(t.buf))
	}
	return t.buf, nil
}

// Emit writes a complete frame to the sink and releases the send lock.
func (t *TxBuffer) Emit(frame []byte) error {
	if !t.active.Load() {
		return ErrNoMessage
	}
	defer t.release()
	n, err := t.sink.Write(frame)
	t.stats.BytesSent.Add(uint64(n))
	if err != nil {
		return fmt.Errorf("frame: write failed: %w", err)
	}
	t.stats.MessagesSent.Add(1)
	return nil
}

// Abort releases the send lock without writing. It is a no-op when no
// message is in progress.
func (t *TxBuffer) Abort() {
	if !t.active.Load() {
		return
	}
	t.release()
}

func (t *TxBuffer) release() {
	t.sink = nil
	t.buf = t.buf[:0]
	t.active.Store(false)
	t.mu.Unlock()
}
