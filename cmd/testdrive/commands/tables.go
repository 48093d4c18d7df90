package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crate/testdrive/internal/config"
	"github.com/crate/testdrive/internal/db"
)

func newTablesCmd() *cobra.Command {
	var extSchema string

	tablesCmd := &cobra.Command{
		Use:   "tables",
		Short: "List the tables emptied by a canvas reset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.NewSettings()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed(flagExtSchema) {
				settings.ExtSchema = extSchema
				if err := settings.Validate(); err != nil {
					return err
				}
			}

			refs, err := db.DefaultCatalog(settings)
			if err != nil {
				return err
			}
			for _, name := range db.Strings(refs) {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	tablesCmd.Flags().StringVar(&extSchema, flagExtSchema, "", "Schema of the bookkeeping tables (env: CRATEDB_EXT_SCHEMA)")
	return tablesCmd
}
