package device

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog/log"
)

const readChunk = 512

// Stream adapts a blocking io.ReadWriteCloser. A background goroutine moves
// incoming bytes into a Buffer so Available and ReadAll never block.
type Stream struct {
	name string
	rwc  io.ReadWriteCloser
	buf  *Buffer

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
	errMu   sync.Mutex
	err     error
}

// NewStream starts reading from rwc.
func NewStream(rwc io.ReadWriteCloser, name string) *Stream {
	s := &Stream{
		name: name,
		rwc:  rwc,
		buf:  NewBuffer(),
		done: make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *Stream) readLoop() {
	defer close(s.done)
	chunk := make([]byte, readChunk)
	for {
		n, err := s.rwc.Read(chunk)
		if n > 0 {
			_, _ = s.buf.Write(chunk[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				err = ErrClosed
			}
			s.errMu.Lock()
			s.err = err
			s.errMu.Unlock()
			log.Debug().Str("device", s.name).Err(err).Msg("device.Stream read loop stopped")
			return
		}
	}
}

func (s *Stream) Available() int  { return s.buf.Available() }
func (s *Stream) ReadAll() []byte { return s.buf.ReadAll() }

// Write sends p in one call to the underlying writer.
func (s *Stream) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.rwc.Write(p)
}

// Err returns the error that stopped the reader, or nil while it runs.
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Done is closed when the reader stops.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Close closes the underlying stream.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.rwc.Close()
	})
	return err
}
