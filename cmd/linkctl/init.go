package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/edgelink/internal/config"
	"github.com/danmuck/edgelink/internal/protocol/schema"
)

func newInitCmd() *cobra.Command {
	var (
		kind   string
		output string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an example link config or schema file",
		Long: `Write an example file. Kinds: link, schema.

Examples:
  linkctl init --kind link -o link.toml
  linkctl init --kind schema -o messages.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				switch kind {
				case "link":
					output = defaultConfigPath
				case "schema":
					output = "messages.toml"
				default:
					return fmt.Errorf("unknown kind: %s", kind)
				}
			}
			if err := config.WriteTemplate(output, kind, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s config to %s\n", kind, output)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "link", "file kind: link|schema")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a link config and its schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			catalog, err := schema.LoadFile(cfg.Schema)
			if err != nil {
				return err
			}
			if _, err := config.NewTransport(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "VALID: link %q, transport %s, device %s, %d message(s)\n",
				cfg.Name, cfg.Transport, cfg.Device.Kind, catalog.Len())
			return nil
		},
	}
}
