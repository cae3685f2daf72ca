package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	TransportPlain  = "pprz"
	TransportSecure = "secure"
	TransportLog    = "pprzlog"
	TransportXBee   = "xbee"
)

var (
	ErrMissingName      = errors.New("config: missing name")
	ErrMissingSchema    = errors.New("config: missing schema")
	ErrInvalidTransport = errors.New("config: invalid transport")
	ErrInvalidVariant   = errors.New("config: invalid xbee variant")
	ErrInvalidDevice    = errors.New("config: invalid device kind")
	ErrMissingAddress   = errors.New("config: device address required")
	ErrKeyLength        = errors.New("config: key must be 64 hex characters")
	ErrIDRange          = errors.New("config: id out of range")
	ErrPollInterval     = errors.New("config: poll interval must be positive")
)

type DeviceConfig struct {
	Kind   string
	Local  string
	Remote string
}

// SecureConfig carries keys as hex text; DecodeKey turns them into bytes.
type SecureConfig struct {
	TxKey             string
	RxKey             string
	RequireEncryption bool
}

type MonitorConfig struct {
	// Addr empty disables the monitor server.
	Addr        string
	CORSOrigins []string
	// Token, when set, is required as a bearer token on every route but
	// /health.
	Token string
}

type LinkConfig struct {
	Name         string
	SenderID     uint8
	ReceiverID   uint8
	ComponentID  uint8
	Schema       string
	Transport    string
	XBeeVariant  string
	PollInterval time.Duration
	Device       DeviceConfig
	Secure       SecureConfig
	Monitor      MonitorConfig
}

func DefaultLinkConfig() LinkConfig {
	return LinkConfig{
		Name:         "edgelink",
		SenderID:     1,
		Transport:    TransportPlain,
		XBeeVariant:  "2.4",
		PollInterval: 10 * time.Millisecond,
		Device: DeviceConfig{
			Kind:  "udp",
			Local: "127.0.0.1:4242",
		},
		Monitor: MonitorConfig{
			Addr:        "127.0.0.1:9090",
			CORSOrigins: []string{"http://localhost:3000"},
		},
	}
}

type fileConfig struct {
	Name         string      `toml:"name"`
	SenderID     int         `toml:"sender_id"`
	ReceiverID   int         `toml:"receiver_id"`
	ComponentID  int         `toml:"component_id"`
	Schema       string      `toml:"schema"`
	Transport    string      `toml:"transport"`
	XBeeVariant  string      `toml:"xbee_variant"`
	PollInterval string      `toml:"poll_interval"`
	Device       fileDevice  `toml:"device"`
	Secure       fileSecure  `toml:"secure"`
	Monitor      fileMonitor `toml:"monitor"`
}

type fileDevice struct {
	Kind   string `toml:"kind"`
	Local  string `toml:"local"`
	Remote string `toml:"remote"`
}

type fileSecure struct {
	TxKey             string `toml:"tx_key"`
	RxKey             string `toml:"rx_key"`
	RequireEncryption bool   `toml:"require_encryption"`
}

type fileMonitor struct {
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins"`
	Token       string   `toml:"token"`
}

// LoadLinkConfig reads path over DefaultLinkConfig and validates the
// result. A relative schema path is resolved against the config file's
// directory.
func LoadLinkConfig(path string) (LinkConfig, error) {
	cfg := DefaultLinkConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return LinkConfig{}, fmt.Errorf("load link config: %w", err)
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	ids := []struct {
		key string
		raw int
		dst *uint8
	}{
		{"sender_id", raw.SenderID, &cfg.SenderID},
		{"receiver_id", raw.ReceiverID, &cfg.ReceiverID},
		{"component_id", raw.ComponentID, &cfg.ComponentID},
	}
	for _, id := range ids {
		if !meta.IsDefined(id.key) {
			continue
		}
		if id.raw < 0 || id.raw > 255 {
			return LinkConfig{}, fmt.Errorf("%w: %s=%d", ErrIDRange, id.key, id.raw)
		}
		*id.dst = uint8(id.raw)
	}
	if meta.IsDefined("schema") {
		cfg.Schema = strings.TrimSpace(raw.Schema)
		if cfg.Schema != "" && !filepath.IsAbs(cfg.Schema) {
			cfg.Schema = filepath.Join(filepath.Dir(path), cfg.Schema)
		}
	}
	if meta.IsDefined("transport") {
		cfg.Transport = strings.ToLower(strings.TrimSpace(raw.Transport))
	}
	if meta.IsDefined("xbee_variant") {
		cfg.XBeeVariant = strings.TrimSpace(raw.XBeeVariant)
	}
	if meta.IsDefined("poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PollInterval))
		if err != nil {
			return LinkConfig{}, fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}

	if meta.IsDefined("device", "kind") {
		cfg.Device.Kind = strings.ToLower(strings.TrimSpace(raw.Device.Kind))
	}
	if meta.IsDefined("device", "local") {
		cfg.Device.Local = strings.TrimSpace(raw.Device.Local)
	}
	if meta.IsDefined("device", "remote") {
		cfg.Device.Remote = strings.TrimSpace(raw.Device.Remote)
	}

	if meta.IsDefined("secure", "tx_key") {
		cfg.Secure.TxKey = strings.TrimSpace(raw.Secure.TxKey)
	}
	if meta.IsDefined("secure", "rx_key") {
		cfg.Secure.RxKey = strings.TrimSpace(raw.Secure.RxKey)
	}
	if meta.IsDefined("secure", "require_encryption") {
		cfg.Secure.RequireEncryption = raw.Secure.RequireEncryption
	}

	if meta.IsDefined("monitor", "addr") {
		cfg.Monitor.Addr = strings.TrimSpace(raw.Monitor.Addr)
	}
	if meta.IsDefined("monitor", "cors_origins") {
		cfg.Monitor.CORSOrigins = normalizeList(raw.Monitor.CORSOrigins)
	}
	if meta.IsDefined("monitor", "token") {
		cfg.Monitor.Token = strings.TrimSpace(raw.Monitor.Token)
	}

	if err := ValidateLinkConfig(cfg); err != nil {
		return LinkConfig{}, fmt.Errorf("link config %s: %w", path, err)
	}
	return cfg, nil
}

func ValidateLinkConfig(cfg LinkConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(cfg.Schema) == "" {
		return ErrMissingSchema
	}
	if cfg.ComponentID > 15 {
		return fmt.Errorf("%w: component_id=%d exceeds 15", ErrIDRange, cfg.ComponentID)
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("%w: %v", ErrPollInterval, cfg.PollInterval)
	}
	switch cfg.Transport {
	case TransportPlain, TransportLog:
	case TransportXBee:
		switch cfg.XBeeVariant {
		case "2.4", "868":
		default:
			return fmt.Errorf("%w: %q", ErrInvalidVariant, cfg.XBeeVariant)
		}
	case TransportSecure:
		for name, key := range map[string]string{"tx_key": cfg.Secure.TxKey, "rx_key": cfg.Secure.RxKey} {
			if key == "" {
				continue
			}
			if _, err := DecodeKey(key); err != nil {
				return fmt.Errorf("secure.%s: %w", name, err)
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransport, cfg.Transport)
	}
	switch cfg.Device.Kind {
	case "udp":
		if cfg.Device.Local == "" {
			return fmt.Errorf("%w: udp needs device.local", ErrMissingAddress)
		}
	case "tcp":
		if cfg.Device.Remote == "" {
			return fmt.Errorf("%w: tcp needs device.remote", ErrMissingAddress)
		}
	case "stdio":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDevice, cfg.Device.Kind)
	}
	return nil
}

// DecodeKey parses a 32-byte key written as 64 hex characters. An empty
// string decodes to a nil key.
func DecodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if len(s) != 64 {
		return nil, fmt.Errorf("%w: got %d", ErrKeyLength, len(s))
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyLength, err)
	}
	return key, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
