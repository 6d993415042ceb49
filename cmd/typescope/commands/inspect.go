package commands

import (
	"context"

	"github.com/openfroyo/typescope/pkg/introspect"
	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <binary> <type>",
		Short: "Show the attributes, members and static methods of a type",
		Long: `Show everything known about one exported type: its capability flags,
base type chain, attributes (including inherited ones), members with their
attributes, and static methods with their parameters.`,
		Example: `  typescope inspect Plugins Plugins.FileTarget
  typescope inspect --json -b /opt/app/bin Plugins Plugins.FileTarget`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close(context.Background())

			t, err := s.findType(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			report := inspectReport{
				typeReport: newTypeReport(t, true),
				Chain:      baseChain(t),
				Assembly:   introspect.DeclaringAssembly(t),
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printTypeReport(cmd.OutOrStdout(), args[0], report.typeReport)
			return nil
		},
	}

	return cmd
}

type inspectReport struct {
	typeReport
	Chain    []string            `json:"chain,omitempty"`
	Assembly introspect.Assembly `json:"assembly"`
}

// baseChain lists the supertypes of t, nearest first.
func baseChain(t introspect.Type) []string {
	var chain []string
	for base, ok := introspect.BaseType(t); ok; base, ok = introspect.BaseType(base) {
		chain = append(chain, base.Name())
	}
	return chain
}
