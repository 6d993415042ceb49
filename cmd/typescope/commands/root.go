package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath   string
	baseLocation string
	verbose      bool
	jsonOutput   bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "typescope",
		Short: "typescope - type introspection for loaded binaries",
		Long: `typescope loads plugin binaries by name and inspects the types they export.

A binary whose types only partially load is still usable: every type that
loaded is reported and each failure is logged as a warning.

Binaries are resolved for the profile typescope was built with:
  - full: <base-location>/<name>.wasm on the filesystem
  - sandbox: <name>.wasm in embedded resources
  - mobile: modules linked into the process`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&baseLocation, "base-location", "b", "", "directory binaries are loaded from (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newScanCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newInvokeCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, buildDate))

	return rootCmd
}
