package commands

import (
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crate/testdrive/test/mocks"
)

func newSimulateCmd() *cobra.Command {
	var (
		addr      string
		clusterID string
	)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Serve the cloud API simulator",
		Long: `Serve the cloud API simulator with the import job lifecycle of one cluster
registered. Point a client's base URL at the printed address.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sim := mocks.NewCloudSimulatorApp()
			defer sim.Close()
			if err := sim.RegisterCluster(clusterID); err != nil {
				return err
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("error listening on %s: %w", addr, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			served := make(chan error, 1)
			go func() { served <- sim.Serve(ln) }()
			fmt.Fprintf(cmd.OutOrStdout(), "simulating cluster %s on http://%s\n", clusterID, ln.Addr())

			select {
			case err := <-served:
				return err
			case <-ctx.Done():
			}
			if err := sim.App.Shutdown(); err != nil {
				return fmt.Errorf("error shutting down simulator: %w", err)
			}
			// unblocks Serve if it had not started accepting yet
			_ = ln.Close()
			return <-served
		},
	}

	simulateCmd.Flags().StringVar(&addr, flagAddr, ":8080", "Address to listen on")
	simulateCmd.Flags().StringVar(&clusterID, flagCluster, mocks.DefaultClusterID, "Cluster ID to register")
	return simulateCmd
}
