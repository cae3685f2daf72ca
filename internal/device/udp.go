package device

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const maxDatagram = 2048

// UDP is a datagram device. Each Write is one datagram. With no fixed
// remote, writes go to the last peer a datagram came from.
type UDP struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
	buf    *Buffer

	mu   sync.Mutex
	peer *net.UDPAddr
	err  error
	done chan struct{}
}

// ListenUDP binds local (default ":0") and optionally fixes remote.
func ListenUDP(local, remote string) (*UDP, error) {
	if strings.TrimSpace(local) == "" {
		local = ":0"
	}
	laddr, err := net.ResolveUDPAddr("udp", local)
	if err != nil {
		return nil, fmt.Errorf("device: resolve %s: %w", local, err)
	}
	var raddr *net.UDPAddr
	if strings.TrimSpace(remote) != "" {
		raddr, err = net.ResolveUDPAddr("udp", remote)
		if err != nil {
			return nil, fmt.Errorf("device: resolve %s: %w", remote, err)
		}
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("device: listen %s: %w", local, err)
	}
	u := &UDP{
		conn:   conn,
		remote: raddr,
		buf:    NewBuffer(),
		done:   make(chan struct{}),
	}
	go u.readLoop()
	return u, nil
}

func (u *UDP) readLoop() {
	defer close(u.done)
	packet := make([]byte, maxDatagram)
	for {
		n, addr, err := u.conn.ReadFromUDP(packet)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				err = ErrClosed
			} else {
				log.Warn().Err(err).Str("local", u.LocalAddr().String()).Msg("device.UDP read loop stopped")
			}
			u.mu.Lock()
			u.err = err
			u.mu.Unlock()
			return
		}
		u.mu.Lock()
		u.peer = addr
		u.mu.Unlock()
		_, _ = u.buf.Write(packet[:n])
	}
}

func (u *UDP) Available() int  { return u.buf.Available() }
func (u *UDP) ReadAll() []byte { return u.buf.ReadAll() }

func (u *UDP) Write(p []byte) (int, error) {
	dst := u.remote
	if dst == nil {
		u.mu.Lock()
		dst = u.peer
		u.mu.Unlock()
	}
	if dst == nil {
		return 0, ErrNoPeer
	}
	return u.conn.WriteToUDP(p, dst)
}

// Err returns the error that stopped the reader, or nil while it runs.
func (u *UDP) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

// Done is closed when the reader stops.
func (u *UDP) Done() <-chan struct{} {
	return u.done
}

// LocalAddr returns the bound address.
func (u *UDP) LocalAddr() *net.UDPAddr {
	return u.conn.LocalAddr().(*net.UDPAddr)
}

// Close stops the reader and releases the socket.
func (u *UDP) Close() error {
	err := u.conn.Close()
	<-u.done
	return err
}
