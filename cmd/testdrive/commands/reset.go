package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/crate/testdrive/internal/config"
	"github.com/crate/testdrive/internal/db"
)

// openDB connects to the database emptied by "reset"
var openDB = func(dsn string) (*gorm.DB, error) {
	return db.Open(dsn, 0)
}

func newResetCmd() *cobra.Command {
	var (
		dsn    string
		tables []string
	)

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Empty the reset tables of a running database",
		Long: `Empty the given tables, or every table of the catalog when none are given.
Tables which do not exist are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			refs, err := resolveTables(tables)
			if err != nil {
				return err
			}

			gdb, err := openDB(dsn)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(gdb) }()

			if err := db.NewResetter(gdb).Reset(cmd.Context(), refs); err != nil {
				return fmt.Errorf("error resetting tables: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d tables\n", len(refs))
			return nil
		},
	}

	resetCmd.Flags().StringVar(&dsn, flagDSN, db.Options{}.DSN(), "Connection string of the database")
	resetCmd.Flags().StringArrayVar(&tables, flagTable, nil, `Table to empty as "schema"."table" (repeatable)`)
	return resetCmd
}

// resolveTables parses explicit table names, falling back to the catalog
// for the current environment.
func resolveTables(names []string) ([]db.TableRef, error) {
	if len(names) == 0 {
		settings, err := config.NewSettings()
		if err != nil {
			return nil, err
		}
		return db.DefaultCatalog(settings)
	}

	refs := make([]db.TableRef, 0, len(names))
	for _, name := range names {
		ref, err := db.ParseTableRef(name)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
