package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/openfroyo/typescope/pkg/config"
	"github.com/openfroyo/typescope/pkg/introspect"
	"github.com/openfroyo/typescope/pkg/loader"
	"github.com/openfroyo/typescope/pkg/scanner"
	"github.com/openfroyo/typescope/pkg/telemetry"
	"github.com/spf13/cobra"
)

// session holds everything a command needs to load and scan binaries.
type session struct {
	cfg     *config.Config
	tel     *telemetry.Telemetry
	loader  *loader.Loader
	scanner *scanner.Scanner
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if baseLocation != "" {
		cfg.Loader.BaseLocation = baseLocation
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// newSession builds the session for cmd and carries its logger in the
// command context.
func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	cmd.SetContext(tel.Logger.WithContext(cmd.Context()))

	return &session{
		cfg: cfg,
		tel: tel,
		loader: loader.NewFromConfig(cfg.Loader,
			tel.Logger.NewComponentLogger("loader"),
			loader.WithMetrics(tel.Metrics),
			loader.WithTracer(tel.Tracer),
		),
		scanner: scanner.New(
			tel.Logger.NewComponentLogger("scanner"),
			scanner.WithMetrics(tel.Metrics),
			scanner.WithTracer(tel.Tracer),
		),
	}, nil
}

// load loads a binary by name from the configured base location.
func (s *session) load(ctx context.Context, name string) (introspect.Module, error) {
	return s.loader.LoadByName(ctx, name, s.cfg.Loader.BaseLocation)
}

// scan loads a binary and scans its exported types.
func (s *session) scan(ctx context.Context, name string) (introspect.Module, *scanner.ScanResult, error) {
	m, err := s.load(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.scanner.ScanExportedTypes(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	telemetry.FromContext(ctx).WithScanID(result.ID).WithModule(result.Module).Debugf("Scanned %s", result)
	return m, result, nil
}

// findType scans name and returns the loaded type called typeName.
func (s *session) findType(ctx context.Context, name, typeName string) (introspect.Type, error) {
	_, result, err := s.scan(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, t := range result.Types {
		if t.Name() == typeName {
			return t, nil
		}
	}
	return nil, fmt.Errorf("type %s not found in %s (%d types loaded, %d failed)", typeName, name, len(result.Types), result.Failed)
}

func (s *session) close(ctx context.Context) error {
	return errors.Join(s.loader.Close(ctx), s.tel.Shutdown(ctx))
}
