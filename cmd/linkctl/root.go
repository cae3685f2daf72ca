package main

import (
	"github.com/spf13/cobra"

	"github.com/danmuck/edgelink/internal/logging"
)

const defaultConfigPath = "link.toml"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "linkctl",
		Short: "linkctl - framed telemetry link tool",
		Long: `linkctl sends and receives catalog-defined messages over a framed byte link.

Transports: pprz (plain), secure (ChaCha20-Poly1305), pprzlog (timestamped
log frames) and xbee (XBee API radio frames). Devices: udp, tcp, stdio.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.ConfigureRuntime()
		},
	}
	root.PersistentFlags().StringP("config", "c", defaultConfigPath, "link config file path")

	root.AddCommand(newListenCmd())
	root.AddCommand(newSendCmd())
	root.AddCommand(newCatalogCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newValidateCmd())
	return root
}
