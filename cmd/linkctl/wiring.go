package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danmuck/edgelink/internal/config"
	"github.com/danmuck/edgelink/internal/device"
	"github.com/danmuck/edgelink/internal/link"
	"github.com/danmuck/edgelink/internal/observability"
	"github.com/danmuck/edgelink/internal/protocol/schema"
)

func loadConfig(cmd *cobra.Command) (config.LinkConfig, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.LinkConfig{}, err
	}
	return config.LoadLinkConfig(path)
}

// openLink loads the catalog, opens the device and builds the link. The
// caller owns the returned device.
func openLink(cfg config.LinkConfig) (*link.Link, device.Conn, error) {
	catalog, err := schema.LoadFile(cfg.Schema)
	if err != nil {
		return nil, nil, err
	}
	transport, err := config.NewTransport(cfg)
	if err != nil {
		return nil, nil, err
	}
	dev, err := device.Open(cfg.DeviceSpec())
	if err != nil {
		return nil, nil, fmt.Errorf("open device: %w", err)
	}
	l := link.New(dev, transport, catalog,
		link.WithName(cfg.Name),
		link.WithSenderID(cfg.SenderID),
		link.WithPollObserver(func(d time.Duration) { observability.RecordPoll(cfg.Name, d) }),
	)
	return l, dev, nil
}
