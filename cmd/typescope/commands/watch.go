package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/openfroyo/typescope/pkg/introspect"
	"github.com/openfroyo/typescope/pkg/loader"
	"github.com/spf13/cobra"
)

func newWatchCommand() *cobra.Command {
	var serveMetrics bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rescan binaries as they change",
		Long: `Watch the base location and rescan every binary that is written or
replaced, until interrupted. Only available for the full profile, where
binaries live on the filesystem.

With --metrics the Prometheus metrics are served on the configured listen
address while watching.`,
		Example: `  typescope watch -b /opt/app/bin
  typescope watch -b /opt/app/bin --metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close(context.Background())

			if s.loader.Profile() != introspect.ProfileFull {
				return fmt.Errorf("watch is not supported by the %s profile", s.loader.Profile())
			}

			ctx := cmd.Context()
			logger := s.tel.Logger.NewComponentLogger("watch")

			if serveMetrics {
				if err := s.tel.Metrics.StartMetricsServer(ctx, func(err error) {
					logger.WithError(err).Error("Metrics server failed")
				}); err != nil {
					return err
				}
				logger.WithField("address", s.tel.Config.Metrics.ListenAddress).Info("Serving metrics")
			}

			base := s.cfg.Loader.BaseLocation
			w, err := loader.NewWatcher(base, s.tel.Logger.Zerolog())
			if err != nil {
				return err
			}

			return w.Run(ctx, func(name string) {
				if err := s.loader.Forget(ctx, name, base); err != nil {
					logger.WithError(err).Warnf("Failed to release %s", name)
				}

				m, result, err := s.scan(ctx, name)
				if err != nil {
					// Removed binaries show up as change events too.
					if errors.Is(err, loader.ErrNotFound) {
						logger.Infof("Binary %s removed", name)
						return
					}
					printBinaryReport(cmd.OutOrStdout(), binaryReport{Binary: name, Error: err.Error()})
					return
				}

				report := newBinaryReport(name, m, result)
				if jsonOutput {
					_ = writeJSON(cmd.OutOrStdout(), report)
					return
				}
				printBinaryReport(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.Flags().BoolVar(&serveMetrics, "metrics", false, "serve Prometheus metrics while watching")

	return cmd
}
