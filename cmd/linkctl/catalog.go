package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/edgelink/internal/protocol/schema"
)

func newCatalogCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the message definitions of a schema file",
		Long: `Print every message definition of an XML or TOML schema file. Without
--schema the schema named by the link config is used.

Examples:
  linkctl catalog --schema messages.xml
  linkctl catalog -c link.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				path = cfg.Schema
			}
			catalog, err := schema.LoadFile(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, def := range catalog.Definitions() {
				req := ""
				if def.IsRequest() {
					req = " request"
				}
				fmt.Fprintf(out, "%s(%d) in class %d [%s, min %d bytes%s]\n",
					def.Name, def.ID, def.ClassID, def.ClassName, def.MinimumSize(), req)
				for _, f := range def.Fields() {
					fmt.Fprintf(out, "\t%s : %s\n", f.Name, f.Type)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "schema", "", "schema file (.xml or .toml)")
	return cmd
}
