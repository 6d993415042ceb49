package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/openfroyo/typescope/pkg/introspect"
	"github.com/openfroyo/typescope/pkg/telemetry"
	"github.com/spf13/cobra"
)

func newInvokeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoke <binary> <type> <method> [arg...]",
		Short: "Invoke a static method of an exported type",
		Long: `Invoke a static method by name.

Arguments are parsed as integers, floats or booleans where possible and
passed as strings otherwise. An argument of "_" is omitted and takes the
parameter default; trailing parameters that are not given are omitted too.`,
		Example: `  # Call Plugins.Foo.Create(2, 3) with its third parameter defaulted
  typescope invoke Plugins Plugins.Foo Create 2 3

  # Explicitly omit the second parameter
  typescope invoke Plugins Plugins.Foo Create 2 _ 4`,
		Args: cobra.MinimumNArgs(3),
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
			method := args[2]

			m, ok := introspect.FindStaticMethod(t, method)
			if !ok {
				return &introspect.InvocationError{Type: t.Name(), Method: method, Err: introspect.ErrMethodNotFound}
			}

			ctx, span := s.tel.Tracer.StartInvokeSpan(cmd.Context(), t.Name(), method)
			telemetry.FromContext(ctx).
				WithField("trace_id", telemetry.TraceID(ctx)).
				Debugf("Invoking %s.%s with %d arguments", t.Name(), method, len(args)-3)
			result, err := introspect.InvokeMethod(ctx, m, method, parseArgs(args[3:])...)
			telemetry.End(span, err)
			s.tel.Metrics.RecordInvocation(err)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"type":   t.Name(),
					"method": method,
					"result": result,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s.%s => %s\n", t.Name(), method, loadedColor.Sprintf("%v", result))
			return nil
		},
	}

	return cmd
}

// parseArgs converts command line arguments to method arguments.
func parseArgs(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = parseArg(a)
	}
	return out
}

func parseArg(a string) any {
	if a == "_" {
		return introspect.Missing
	}
	if n, err := strconv.ParseInt(a, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(a, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(a); err == nil {
		return b
	}
	return a
}
