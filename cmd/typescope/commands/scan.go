package commands

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/openfroyo/typescope/pkg/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newScanCommand() *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "scan [binary...]",
		Short: "List the exported types of binaries",
		Long: `Load each binary by name and list the exported types that loaded.

Types that fail to load are counted and logged as warnings; the rest of the
binary is still reported. Binaries are scanned concurrently.

Without arguments, the binaries listed under loader.binaries in the config
file are scanned.`,
		Example: `  # Scan a binary next to the current directory
  typescope scan Plugins

  # Scan several binaries from a directory
  typescope scan -b /opt/app/bin Plugins Extensions

  # Machine-readable output
  typescope scan --json Plugins`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close(context.Background())

			names := args
			if len(names) == 0 {
				names = s.cfg.Loader.Binaries
			}
			if len(names) == 0 {
				return errors.New("no binaries given and none configured under loader.binaries")
			}

			telemetry.FromContext(cmd.Context()).
				WithField("base", s.cfg.Loader.BaseLocation).
				WithField("profile", s.loader.Profile()).
				Debugf("Scanning %d binaries", len(names))

			reports := scanAll(cmd.Context(), s, names, jobs)

			if jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), reports); err != nil {
					return err
				}
			} else {
				for _, r := range reports {
					printBinaryReport(cmd.OutOrStdout(), r)
				}
			}

			failed := 0
			for _, r := range reports {
				if r.Error != "" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d binaries could not be scanned", failed, len(reports))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "number of binaries scanned concurrently (default GOMAXPROCS)")

	return cmd
}

// scanAll scans names concurrently. A failing binary is reported in its slot
// and never cancels the others.
func scanAll(ctx context.Context, s *session, names []string, jobs int) []binaryReport {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Each goroutine owns its index
	reports := make([]binaryReport, len(names))
	logger := telemetry.FromContext(ctx).NewComponentLogger("scan")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(names)))

	for i, name := range names {
		g.Go(func() error {
			m, result, err := s.scan(gctx, name)
			if err != nil {
				logger.WithError(err).WithField("binary", name).Debug("Binary could not be scanned")
				reports[i] = binaryReport{
					Binary:   name,
					Location: s.loader.Location(name, s.cfg.Loader.BaseLocation),
					Error:    err.Error(),
				}
				return nil
			}
			reports[i] = newBinaryReport(name, m, result)
			return nil
		})
	}
	_ = g.Wait()

	return reports
}
