package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/danmuck/edgelink/internal/monitor"
	"github.com/danmuck/edgelink/internal/protocol/message"
)

func newListenCmd() *cobra.Command {
	var int8AsChar bool
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Receive and log every catalog message",
		Long: `Open the configured device, decode every frame against the catalog and
log each message. The monitor server runs alongside when monitor.addr is set.
Stops on SIGINT or SIGTERM.

Examples:
  linkctl listen -c link.toml
  linkctl listen -c link.toml --int8-as-char`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			l, dev, err := openLink(cfg)
			if err != nil {
				return err
			}
			defer dev.Close()

			opts := message.FormatOptions{Int8AsChar: int8AsChar}
			if _, err := l.BindAll(func(sender uint8, msg *message.Message) {
				log.Info().
					Str("link", cfg.Name).
					Uint8("sender", sender).
					Str("message", msg.Format(opts)).
					Msg("received")
			}); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			if cfg.Monitor.Addr != "" {
				srv := monitor.New(cfg.Name, l, l.Catalog(),
					monitor.WithCORSOrigins(cfg.Monitor.CORSOrigins),
					monitor.WithToken(cfg.Monitor.Token),
				)
				g.Go(func() error { return srv.Serve(ctx, cfg.Monitor.Addr) })
			}

			log.Info().
				Str("link", cfg.Name).
				Str("transport", l.Transport().Name()).
				Str("device", cfg.Device.Kind).
				Int("messages", l.Catalog().Len()).
				Msg("listening")
			g.Go(func() error { return l.Run(ctx, cfg.PollInterval) })
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&int8AsChar, "int8-as-char", false, "print int8/uint8 fields as characters")
	return cmd
}
