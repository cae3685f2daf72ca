package config

import (
	"fmt"
	"time"

	"github.com/danmuck/edgelink/internal/device"
	"github.com/danmuck/edgelink/internal/protocol/frame"
	"github.com/danmuck/edgelink/internal/protocol/secure"
)

// NewTransport builds the frame variant named by cfg.Transport.
func NewTransport(cfg LinkConfig) (frame.Transport, error) {
	switch cfg.Transport {
	case TransportPlain:
		return frame.NewPlainFrame(), nil
	case TransportLog:
		return frame.NewLogFrame(cfg.SenderID, frame.SinceClock(time.Now())), nil
	case TransportXBee:
		variant, err := frame.ParseXBeeVariant(cfg.XBeeVariant)
		if err != nil {
			return nil, err
		}
		return frame.NewRadioFrame(variant)
	case TransportSecure:
		tx, err := DecodeKey(cfg.Secure.TxKey)
		if err != nil {
			return nil, fmt.Errorf("secure.tx_key: %w", err)
		}
		rx, err := DecodeKey(cfg.Secure.RxKey)
		if err != nil {
			return nil, fmt.Errorf("secure.rx_key: %w", err)
		}
		return secure.New(secure.Config{
			TxKey:             tx,
			RxKey:             rx,
			RequireEncryption: cfg.Secure.RequireEncryption,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidTransport, cfg.Transport)
	}
}

func (c LinkConfig) DeviceSpec() device.Spec {
	return device.Spec{
		Kind:   c.Device.Kind,
		Local:  c.Device.Local,
		Remote: c.Device.Remote,
	}
}
