// Package commands implements the testdrive command line interface
package commands

import (
	"github.com/spf13/cobra"

	rootconfig "github.com/crate/testdrive/config"
	"github.com/crate/testdrive/internal/logger"
)

// flag names
const (
	flagEnvFile   = "env-file"
	flagDSN       = "dsn"
	flagTable     = "table"
	flagImage     = "image"
	flagHTTPPort  = "http-port"
	flagKeep      = "keep"
	flagAddr      = "addr"
	flagCluster   = "cluster"
	flagExtSchema = "ext-schema"
)

// NewRootCmd builds the testdrive command tree
func NewRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "testdrive",
		Short: "testdrive - CrateDB test fixtures outside of go test",
		Long: `testdrive runs the fixtures used by the integration tests by hand: a
disposable CrateDB container, the canvas reset, and the cloud API simulator.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// Variables from the env file never override the process environment.
			if err := rootconfig.LoadDotEnv(envFile); err != nil {
				return err
			}
			logger.InitializeAndConfigure()
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, flagEnvFile, ".env", "Env file to load before running")

	rootCmd.AddCommand(newServiceCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newTablesCmd())
	return rootCmd
}

// Execute runs the command line
func Execute() error {
	return NewRootCmd().Execute()
}
