package device

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
)

var (
	ErrClosed    = errors.New("device: closed")
	ErrNoPeer    = errors.New("device: no remote peer")
	ErrKind      = errors.New("device: unknown kind")
	ErrNoAddress = errors.New("device: address required")
)

// Device is a byte sink and source. Available and ReadAll never block.
type Device interface {
	Available() int
	ReadAll() []byte
	Write(p []byte) (int, error)
}

// Conn is a Device backed by an OS resource.
type Conn interface {
	Device
	io.Closer
}

// Buffer is an in-memory FIFO device.
type Buffer struct {
	mu   sync.Mutex
	data []byte
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// ReadAll drains and returns every buffered byte.
func (b *Buffer) ReadAll() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.data) == 0 {
		return nil
	}
	out := b.data
	b.data = nil
	return out
}

// Write appends p. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	b.data = append(b.data, p...)
	b.mu.Unlock()
	return len(p), nil
}

// Loopback is one end of a Pipe: writes go to the peer, reads come from it.
type Loopback struct {
	in  *Buffer
	out *Buffer
}

// Pipe returns two cross-connected in-memory devices.
func Pipe() (*Loopback, *Loopback) {
	a, b := NewBuffer(), NewBuffer()
	return &Loopback{in: a, out: b}, &Loopback{in: b, out: a}
}

func (l *Loopback) Available() int              { return l.in.Available() }
func (l *Loopback) ReadAll() []byte             { return l.in.ReadAll() }
func (l *Loopback) Write(p []byte) (int, error) { return l.out.Write(p) }

// Spec names a device to open.
type Spec struct {
	// Kind is udp, tcp or stdio.
	Kind   string
	Local  string
	Remote string
}

// Open builds the device described by spec.
func Open(spec Spec) (Conn, error) {
	switch strings.ToLower(strings.TrimSpace(spec.Kind)) {
	case "udp":
		return ListenUDP(spec.Local, spec.Remote)
	case "tcp":
		if strings.TrimSpace(spec.Remote) == "" {
			return nil, fmt.Errorf("%w: tcp needs a remote", ErrNoAddress)
		}
		conn, err := net.Dial("tcp", spec.Remote)
		if err != nil {
			return nil, fmt.Errorf("device: dial %s: %w", spec.Remote, err)
		}
		return NewStream(conn, "tcp:"+spec.Remote), nil
	case "stdio":
		return NewStream(stdio{}, "stdio"), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrKind, spec.Kind)
	}
}

type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return os.Stdin.Close() }
