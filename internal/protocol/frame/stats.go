package frame

import "sync/atomic"

// Stats holds per-transport counters. Fields are safe to read from any
// goroutine.
type Stats struct {
	Received       atomic.Uint64
	Errors         atomic.Uint64
	Overruns       atomic.Uint64
	DecryptErrors  atomic.Uint64
	ReplayErrors   atomic.Uint64
	PlaintextDrops atomic.Uint64
	Ignored        atomic.Uint64
	BytesSent      atomic.Uint64
	MessagesSent   atomic.Uint64
	BytesReceived  atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Received       uint64 `json:"received"`
	Errors         uint64 `json:"errors"`
	Overruns       uint64 `json:"overruns"`
	DecryptErrors  uint64 `json:"decrypt_errors"`
	ReplayErrors   uint64 `json:"replay_errors"`
	PlaintextDrops uint64 `json:"plaintext_drops"`
	Ignored        uint64 `json:"ignored"`
	BytesSent      uint64 `json:"bytes_sent"`
	MessagesSent   uint64 `json:"messages_sent"`
	BytesReceived  uint64 `json:"bytes_received"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Received:       s.Received.Load(),
		Errors:         s.Errors.Load(),
		Overruns:       s.Overruns.Load(),
		DecryptErrors:  s.DecryptErrors.Load(),
		ReplayErrors:   s.ReplayErrors.Load(),
		PlaintextDrops: s.PlaintextDrops.Load(),
		Ignored:        s.Ignored.Load(),
		BytesSent:      s.BytesSent.Load(),
		MessagesSent:   s.MessagesSent.Load(),
		BytesReceived:  s.BytesReceived.Load(),
	}
}
