package commands

import (
	"fmt"

	"github.com/openfroyo/typescope/pkg/introspect"
	"github.com/openfroyo/typescope/pkg/wasmhost"
	"github.com/spf13/cobra"
)

func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]any{
				"version":    version,
				"commit":     commit,
				"build_date": buildDate,
				"profile":    string(introspect.ActiveProfile),
				"abi":        wasmhost.HostABI,
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), info)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "typescope %s\n", versionColor.Sprint(version))
			fmt.Fprintf(w, "  commit:  %s\n", commit)
			fmt.Fprintf(w, "  built:   %s\n", buildDate)
			fmt.Fprintf(w, "  profile: %s\n", introspect.ActiveProfile)
			fmt.Fprintf(w, "  abi:     %d\n", wasmhost.HostABI)
			return nil
		},
	}
}
