package secure

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/danmuck/edgelink/internal/protocol"
	"github.com/danmuck/edgelink/internal/protocol/frame"
)

const (
	KeyLen     = chacha20poly1305.KeySize
	CounterLen = 4
	TagLen     = chacha20poly1305.Overhead
	// CryptoOverhead is the counter and tag carried in every encrypted payload.
	CryptoOverhead = CounterLen + TagLen
	// MaxPlaintextLen is the largest payload that still fits once encrypted.
	MaxPlaintextLen = protocol.MaxPayloadLen - CryptoOverhead
)

var (
	ErrKeyLength        = errors.New("secure: key must be 32 bytes")
	ErrCounterExhausted = errors.New("secure: tx counter exhausted")
)

// Config holds the initial keys. Frames go out in plaintext until a tx key
// is installed, and plaintext is accepted only until an rx key is installed.
type Config struct {
	TxKey []byte
	RxKey []byte
	// RequireEncryption drops received plaintext frames even before an rx
	// key is installed.
	RequireEncryption bool
}

// SecureFrame is pprz framing with ChaCha20-Poly1305 encryption. The wire
// payload of an encrypted frame is COUNTER | CIPHERTEXT | TAG, the counter
// being the little-endian nonce prefix and the additional data. Received
// counters must strictly increase.
type SecureFrame struct {
	stats frame.Stats
	tx    *frame.TxBuffer
	rx    *frame.Parser

	keysMu      sync.RWMutex
	txAEAD      cipher.AEAD
	rxAEAD      cipher.AEAD
	requireEnc  atomic.Bool
	txCounter   atomic.Uint32
	rxCounter   atomic.Uint32
	sealed      []byte
	out         []byte
	plain       []byte
	ready       bool
	plaintextRx bool
}

// New returns a secure transport with the keys present in cfg installed.
func New(cfg Config) (*SecureFrame, error) {
	f := &SecureFrame{
		sealed: make([]byte, 0, protocol.BufferLen),
		out:    make([]byte, 0, protocol.BufferLen),
		plain:  make([]byte, 0, protocol.BufferLen),
	}
	f.tx = frame.NewTxBuffer(&f.stats)
	f.rx = frame.NewParser(&f.stats, protocol.STX, protocol.STXSecure)
	f.requireEnc.Store(cfg.RequireEncryption)
	if len(cfg.TxKey) > 0 {
		if err := f.SetTxKey(cfg.TxKey); err != nil {
			return nil, err
		}
	}
	if len(cfg.RxKey) > 0 {
		if err := f.SetRxKey(cfg.RxKey); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLen {
		return nil, fmt.Errorf("%w: got %d", ErrKeyLength, len(key))
	}
	return chacha20poly1305.New(key)
}

// SetKeys installs both session keys. Counters are kept. Once installed,
// sends are encrypted and received plaintext is dropped.
func (f *SecureFrame) SetKeys(txKey, rxKey []byte) error {
	txA, err := newAEAD(txKey)
	if err != nil {
		return fmt.Errorf("tx key: %w", err)
	}
	rxA, err := newAEAD(rxKey)
	if err != nil {
		return fmt.Errorf("rx key: %w", err)
	}
	f.keysMu.Lock()
	f.txAEAD, f.rxAEAD = txA, rxA
	f.keysMu.Unlock()
	return nil
}

// SetTxKey installs the send key; later sends are encrypted.
func (f *SecureFrame) SetTxKey(key []byte) error {
	a, err := newAEAD(key)
	if err != nil {
		return fmt.Errorf("tx key: %w", err)
	}
	f.keysMu.Lock()
	f.txAEAD = a
	f.keysMu.Unlock()
	return nil
}

// SetRxKey installs the receive key; received plaintext is dropped from
// then on.
func (f *SecureFrame) SetRxKey(key []byte) error {
	a, err := newAEAD(key)
	if err != nil {
		return fmt.Errorf("rx key: %w", err)
	}
	f.keysMu.Lock()
	f.rxAEAD = a
	f.keysMu.Unlock()
	return nil
}

// RequireEncryption switches dropping of received plaintext frames while
// no rx key is installed. With an rx key, plaintext is always dropped.
func (f *SecureFrame) RequireEncryption(on bool) {
	f.requireEnc.Store(on)
}

// acceptsPlaintext reports whether the transport is still bootstrapping.
func (f *SecureFrame) acceptsPlaintext() bool {
	if f.requireEnc.Load() {
		return false
	}
	f.keysMu.RLock()
	defer f.keysMu.RUnlock()
	return f.rxAEAD == nil
}

// Encrypting reports whether sends are encrypted.
func (f *SecureFrame) Encrypting() bool {
	f.keysMu.RLock()
	defer f.keysMu.RUnlock()
	return f.txAEAD != nil
}

// TxCounter returns the counter of the last encrypted send.
func (f *SecureFrame) TxCounter() uint32 { return f.txCounter.Load() }

// RxCounter returns the highest accepted receive counter.
func (f *SecureFrame) RxCounter() uint32 { return f.rxCounter.Load() }

// LastWasPlaintext reports whether the ready message arrived unencrypted.
func (f *SecureFrame) LastWasPlaintext() bool { return f.plaintextRx }

func (f *SecureFrame) Name() string  { return "secure" }
func (f *SecureFrame) Overhead() int { return protocol.Overhead + CryptoOverhead }

// CheckSpace applies the encrypted bound even during plaintext bootstrap
// so the allowed payload size does not change when keys arrive.
func (f *SecureFrame) CheckSpace(payloadLen int) error {
	if payloadLen < 0 || payloadLen > MaxPlaintextLen {
		return fmt.Errorf("%w: %d bytes, max %d", frame.ErrPayloadTooLarge, payloadLen, MaxPlaintextLen)
	}
	return nil
}

func (f *SecureFrame) StartMessage(sink frame.Sink, payloadLen int) error {
	if err := f.CheckSpace(payloadLen); err != nil {
		return err
	}
	return f.tx.Start(sink, payloadLen)
}

func (f *SecureFrame) PutBytes(b []byte) error {
	return f.tx.Put(b)
}

func (f *SecureFrame) EndMessage() error {
	payload, err := f.tx.Payload()
	if err != nil {
		f.tx.Abort()
		return err
	}
	f.keysMu.RLock()
	aead := f.txAEAD
	f.keysMu.RUnlock()
	if aead == nil {
		f.out = frame.AppendPlain(f.out[:0], protocol.STX, payload)
		return f.tx.Emit(f.out)
	}

	prev := f.txCounter.Load()
	if prev == math.MaxUint32 {
		f.tx.Abort()
		return ErrCounterExhausted
	}
	counter := prev + 1
	var nonce [chacha20poly1305.NonceSize]byte
	binary.LittleEndian.PutUint32(nonce[:CounterLen], counter)
	aad := nonce[:CounterLen]

	sealed := append(f.sealed[:0], aad...)
	sealed = aead.Seal(sealed, nonce[:], payload, aad)
	f.sealed = sealed
	f.txCounter.Store(counter)

	f.out = frame.AppendPlain(f.out[:0], protocol.STXSecure, sealed)
	return f.tx.Emit(f.out)
}

func (f *SecureFrame) AbortMessage() {
	f.tx.Abort()
}

// ParseByte runs the pprz parser and then authenticates complete frames.
// Replayed and forged frames are counted and dropped, as are plaintext
// frames once an rx key is installed.
func (f *SecureFrame) ParseByte(c byte) bool {
	if !f.rx.ParseByte(c) {
		return false
	}
	payload := f.rx.Payload()
	if f.rx.StartByte() == protocol.STX {
		if !f.acceptsPlaintext() {
			f.stats.PlaintextDrops.Add(1)
			log.Debug().Str("counter", "plaintext_drops").Int("len", len(payload)).Msg("secure.ParseByte drop")
			f.rx.Drop()
			return false
		}
		f.plain = append(f.plain[:0], payload...)
		f.plaintextRx = true
		f.ready = true
		return true
	}
	if !f.open(payload) {
		f.rx.Drop()
		return false
	}
	f.plaintextRx = false
	f.ready = true
	return true
}

func (f *SecureFrame) open(payload []byte) bool {
	f.keysMu.RLock()
	aead := f.rxAEAD
	f.keysMu.RUnlock()
	if aead == nil || len(payload) < CryptoOverhead {
		f.stats.DecryptErrors.Add(1)
		log.Debug().Str("counter", "decrypt_errors").Bool("has_key", aead != nil).Int("len", len(payload)).Msg("secure.ParseByte drop")
		return false
	}
	counter := binary.LittleEndian.Uint32(payload[:CounterLen])
	if counter <= f.rxCounter.Load() {
		f.stats.ReplayErrors.Add(1)
		log.Debug().Str("counter", "replay_errors").Uint32("got", counter).Uint32("last", f.rxCounter.Load()).Msg("secure.ParseByte drop")
		return false
	}
	var nonce [chacha20poly1305.NonceSize]byte
	copy(nonce[:CounterLen], payload[:CounterLen])
	plain, err := aead.Open(f.plain[:0], nonce[:], payload[CounterLen:], payload[:CounterLen])
	if err != nil {
		f.stats.DecryptErrors.Add(1)
		log.Debug().Str("counter", "decrypt_errors").Uint32("got", counter).Msg("secure.ParseByte drop")
		return false
	}
	f.plain = plain
	f.rxCounter.Store(counter)
	return true
}

func (f *SecureFrame) Feed(b []byte) int {
	for i, c := range b {
		if f.ParseByte(c) {
			return i + 1
		}
	}
	return len(b)
}

func (f *SecureFrame) MessageReady() bool { return f.ready }

func (f *SecureFrame) Consume() ([]byte, bool) {
	if !f.ready {
		return nil, false
	}
	f.ready = false
	f.rx.Drop()
	return append([]byte(nil), f.plain...), true
}

func (f *SecureFrame) Reset() {
	f.rx.Reset()
	f.ready = false
}

func (f *SecureFrame) Stats() frame.StatsSnapshot { return f.stats.Snapshot() }

var _ frame.Transport = (*SecureFrame)(nil)
