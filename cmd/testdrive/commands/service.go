package commands

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	rootconfig "github.com/crate/testdrive/config"
	"github.com/crate/testdrive/internal/constants"
	"github.com/crate/testdrive/internal/service"
)

const defaultHTTPPort = 44209

// newService creates the service started by "service up"
var newService = func(opts ...service.Option) (service.Handle, error) {
	return service.NewCrateDBFromEnv(opts...)
}

func newServiceCmd() *cobra.Command {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manage a disposable CrateDB service",
	}
	serviceCmd.AddCommand(newServiceUpCmd())
	return serviceCmd
}

func newServiceUpCmd() *cobra.Command {
	var (
		image    string
		httpPort int
		keep     bool
	)

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Start CrateDB and keep it running until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed(flagImage) {
				image = rootconfig.GetEnv(constants.EnvCrateDBImage, image)
			}

			svc, err := newService(
				service.WithImage(image),
				service.WithPortMapping(service.PortMapping{httpPort: 0}),
				service.WithStartupOptions(service.StartupOptions{"http.port": strconv.Itoa(httpPort)}),
				service.WithKeep(keep),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := svc.Start(ctx); err != nil {
				_ = svc.Stop(context.Background())
				return fmt.Errorf("error starting service: %w", err)
			}

			endpoint := svc.Endpoint()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "DSN:", endpoint.DSN())
			fmt.Fprintln(out, "HTTP:", endpoint.HTTPURL())

			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := svc.Stop(stopCtx); err != nil {
				return fmt.Errorf("error stopping service: %w", err)
			}
			fmt.Fprintln(out, "stopped")
			return nil
		},
	}

	upCmd.Flags().StringVar(&image, flagImage, service.DefaultImage, "CrateDB image (env: TESTDRIVE_CRATEDB_IMAGE)")
	upCmd.Flags().IntVar(&httpPort, flagHTTPPort, defaultHTTPPort, "CrateDB HTTP port inside the container")
	upCmd.Flags().BoolVar(&keep, flagKeep, false, "Leave the container running on exit")
	return upCmd
}
