package link

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/edgelink/internal/device"
	"github.com/danmuck/edgelink/internal/protocol"
	"github.com/danmuck/edgelink/internal/protocol/frame"
	"github.com/danmuck/edgelink/internal/protocol/message"
	"github.com/danmuck/edgelink/internal/protocol/schema"
)

var (
	ErrNilDefinition = errors.New("link: nil definition")
	ErrNilCallback   = errors.New("link: nil callback")
	ErrNotInCatalog  = errors.New("link: definition not in catalog")
)

// BindingID identifies one Bind registration.
type BindingID uint64

// Callback receives decoded messages. It runs on the polling goroutine and
// must not keep or modify msg after returning.
type Callback func(senderID uint8, msg *message.Message)

type binding struct {
	def *schema.MessageDefinition
	cb  Callback
}

// Option configures a Link.
type Option func(*Link)

// WithName labels the link in logs and metrics.
func WithName(name string) Option {
	return func(l *Link) { l.name = name }
}

// WithSenderID stamps every sent payload with id.
func WithSenderID(id uint8) Option {
	return func(l *Link) {
		l.senderID = id
		l.stampSender = true
	}
}

// WithPollObserver reports the duration of every poll made by Run.
func WithPollObserver(fn func(time.Duration)) Option {
	return func(l *Link) { l.onPoll = fn }
}

// Link joins a device, a transport and a catalog: messages are sent as
// frames and received frames are decoded and handed to bound callbacks.
type Link struct {
	name        string
	dev         device.Device
	transport   frame.Transport
	catalog     *schema.Catalog
	senderID    uint8
	stampSender bool
	onPoll      func(time.Duration)

	sendMu  sync.Mutex
	sendBuf []byte

	pollMu sync.Mutex

	bindMu   sync.RWMutex
	bindings map[BindingID]binding
	nextID   BindingID

	dispatched   atomic.Uint64
	decodeErrors atomic.Uint64
	sent         atomic.Uint64
	sendErrors   atomic.Uint64
}

// New builds a link.
func New(dev device.Device, transport frame.Transport, catalog *schema.Catalog, opts ...Option) *Link {
	l := &Link{
		name:      transport.Name(),
		dev:       dev,
		transport: transport,
		catalog:   catalog,
		sendBuf:   make([]byte, 0, protocol.BufferLen),
		bindings:  make(map[BindingID]binding),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Link) Name() string               { return l.name }
func (l *Link) Transport() frame.Transport { return l.transport }
func (l *Link) Catalog() *schema.Catalog   { return l.catalog }

// Bind registers cb for messages of def.
func (l *Link) Bind(def *schema.MessageDefinition, cb Callback) (BindingID, error) {
	if def == nil {
		return 0, ErrNilDefinition
	}
	if cb == nil {
		return 0, ErrNilCallback
	}
	known, err := l.catalog.LookupID(def.ClassID, def.ID)
	if err != nil || known.Name != def.Name {
		return 0, fmt.Errorf("%w: %s", ErrNotInCatalog, def.Name)
	}
	l.bindMu.Lock()
	defer l.bindMu.Unlock()
	l.nextID++
	l.bindings[l.nextID] = binding{def: known, cb: cb}
	return l.nextID, nil
}

// BindAll registers cb for every definition of the catalog.
func (l *Link) BindAll(cb Callback) ([]BindingID, error) {
	defs := l.catalog.Definitions()
	ids := make([]BindingID, 0, len(defs))
	for _, def := range defs {
		id, err := l.Bind(def, cb)
		if err != nil {
			for _, done := range ids {
				l.Unbind(done)
			}
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Unbind removes a registration. Unknown ids are ignored.
func (l *Link) Unbind(id BindingID) {
	l.bindMu.Lock()
	delete(l.bindings, id)
	l.bindMu.Unlock()
}

// Send frames msg onto the device. Sends are serialized per link.
func (l *Link) Send(msg *message.Message) error {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()
	payload, err := message.AppendPayload(l.sendBuf[:0], msg)
	if err != nil {
		l.sendErrors.Add(1)
		log.Error().Err(err).Str("link", l.name).Str("message", msg.Name()).Msg("link.Send encode failed")
		return err
	}
	l.sendBuf = payload
	if l.stampSender {
		payload[0] = l.senderID
	}
	if err := frame.WriteFrame(l.transport, l.dev, payload); err != nil {
		l.sendErrors.Add(1)
		log.Error().Err(err).Str("link", l.name).Str("message", msg.Name()).Msg("link.Send frame failed")
		return err
	}
	l.sent.Add(1)
	return nil
}

// Poll drains the device, parses frames and dispatches decoded messages.
// It returns the number of messages dispatched. Frames that fail to decode
// came from the wire and are counted, not returned.
func (l *Link) Poll() (int, error) {
	l.pollMu.Lock()
	defer l.pollMu.Unlock()
	data := l.dev.ReadAll()
	if len(data) == 0 {
		if e, ok := l.dev.(interface{ Err() error }); ok {
			if err := e.Err(); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}
	count := 0
	for len(data) > 0 {
		n := l.transport.Feed(data)
		data = data[n:]
		payload, ok := l.transport.Consume()
		if !ok {
			continue
		}
		count += l.dispatch(payload)
	}
	return count, nil
}

func (l *Link) dispatch(payload []byte) int {
	msg, err := message.DecodePayload(l.catalog, payload)
	if err != nil {
		l.decodeErrors.Add(1)
		log.Debug().Err(err).Str("link", l.name).Int("len", len(payload)).Msg("link.Poll decode failed")
		return 0
	}
	l.bindMu.RLock()
	targets := make([]binding, 0, 1)
	ids := make([]BindingID, 0, 1)
	for id, b := range l.bindings {
		if b.def == msg.Definition() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		targets = append(targets, l.bindings[id])
	}
	l.bindMu.RUnlock()
	if len(targets) == 0 {
		return 0
	}
	for _, b := range targets {
		b.cb(msg.SenderID, msg)
	}
	l.dispatched.Add(1)
	return 1
}

// Run polls every interval until ctx is done or the device fails.
func (l *Link) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info().Str("link", l.name).Dur("interval", interval).Msg("link.Run started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("link", l.name).Msg("link.Run stopped")
			return nil
		case <-ticker.C:
			start := time.Now()
			_, err := l.Poll()
			if l.onPoll != nil {
				l.onPoll(time.Since(start))
			}
			if err != nil {
				log.Warn().Err(err).Str("link", l.name).Msg("link.Run device failed")
				return err
			}
		}
	}
}

// Stats is a snapshot of link and transport counters.
type Stats struct {
	Name         string              `json:"name"`
	Transport    string              `json:"transport"`
	Bindings     int                 `json:"bindings"`
	Dispatched   uint64              `json:"dispatched"`
	DecodeErrors uint64              `json:"decode_errors"`
	Sent         uint64              `json:"sent"`
	SendErrors   uint64              `json:"send_errors"`
	Frames       frame.StatsSnapshot `json:"frames"`
}

func (l *Link) Stats() Stats {
	l.bindMu.RLock()
	n := len(l.bindings)
	l.bindMu.RUnlock()
	return Stats{
		Name:         l.name,
		Transport:    l.transport.Name(),
		Bindings:     n,
		Dispatched:   l.dispatched.Load(),
		DecodeErrors: l.decodeErrors.Load(),
		Sent:         l.sent.Load(),
		SendErrors:   l.sendErrors.Load(),
		Frames:       l.transport.Stats(),
	}
}
