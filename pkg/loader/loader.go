// Package loader resolves a logical binary name to a loaded module for the
// active hosting profile.
//
// The full profile reads "<base>/<name>.wasm" from the filesystem, the
// sandbox profile reads "<name>.wasm" from embedded resources, and the
// mobile profile looks the module up among modules linked into the process.
// Successful loads are memoized per location; failures are not cached and
// never retried.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/openfroyo/typescope/pkg/config"
	"github.com/openfroyo/typescope/pkg/introspect"
	"github.com/openfroyo/typescope/pkg/telemetry"
	"github.com/openfroyo/typescope/pkg/wasmhost"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/singleflight"
)

// ErrNotFound matches a *LoadError for a binary that does not exist.
var ErrNotFound = errors.New("binary not found")

// LoadError reports a binary that could not be loaded.
type LoadError struct {
	// Name is the logical binary name.
	Name string

	// Location is where the binary was looked up.
	Location string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load binary %s from %s: %v", e.Name, e.Location, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports ErrNotFound for missing binaries.
func (e *LoadError) Is(target error) bool {
	return target == ErrNotFound && errors.Is(e.Err, fs.ErrNotExist)
}

// Logger is the diagnostic sink for load progress.
type Logger interface {
	Infof(format string, args ...any)
}

// Metrics records load outcomes. *telemetry.Metrics implements it.
type Metrics interface {
	RecordLoad(profile string, duration time.Duration, err error)
}

// SpanStarter starts trace spans.
type SpanStarter interface {
	Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
}

type closer interface {
	Close(ctx context.Context) error
}

// Loader loads binaries by name and memoizes them.
type Loader struct {
	resolver Resolver
	host     wasmhost.Config
	log      Logger
	metrics  Metrics
	tracer   SpanStarter

	group singleflight.Group

	// mu protects binaries.
	mu sync.RWMutex

	// binaries maps a resolved location to its loaded module.
	binaries map[string]introspect.Module
}

// Option configures a Loader.
type Option func(*Loader)

// WithResolver replaces the profile default resolver.
func WithResolver(r Resolver) Option {
	return func(l *Loader) { l.resolver = r }
}

// WithHostConfig sets the configuration WASM binaries are compiled with.
func WithHostConfig(c wasmhost.Config) Option {
	return func(l *Loader) { l.host = c }
}

// WithMetrics records every load in m.
func WithMetrics(m Metrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// WithTracer opens a span per load.
func WithTracer(t SpanStarter) Option {
	return func(l *Loader) { l.tracer = t }
}

// New creates a loader logging through log, which may be nil.
func New(log Logger, opts ...Option) *Loader {
	l := &Loader{
		resolver: DefaultResolver(),
		host:     wasmhost.DefaultConfig(),
		log:      log,
		tracer:   noop.NewTracerProvider().Tracer("typescope/loader"),
		binaries: make(map[string]introspect.Module),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewFromConfig creates a loader whose host settings come from cfg. Options
// are applied after the configuration.
func NewFromConfig(cfg config.LoaderConfig, log Logger, opts ...Option) *Loader {
	host := wasmhost.DefaultConfig()
	if cfg.MemoryLimitPages > 0 {
		host.MemoryLimitPages = cfg.MemoryLimitPages
	}
	if cfg.ABI > 0 {
		host.ABI = cfg.ABI
	}
	host.Timeout = cfg.Timeout

	return New(log, append([]Option{WithHostConfig(host)}, opts...)...)
}

// Profile reports the hosting profile of the loader's resolver.
func (l *Loader) Profile() introspect.Profile {
	return l.resolver.Profile()
}

// Location returns where name would be loaded from.
func (l *Loader) Location(name, baseLocation string) string {
	return l.resolver.Location(name, baseLocation)
}

// LoadByName loads the binary called name. baseLocation is only consulted
// by the full profile.
func (l *Loader) LoadByName(ctx context.Context, name, baseLocation string) (introspect.Module, error) {
	location := l.resolver.Location(name, baseLocation)
	l.info("Loading binary file: %s", location)

	if m, ok := l.cached(location); ok {
		return m, nil
	}

	v, err, _ := l.group.Do(location, func() (any, error) {
		if m, ok := l.cached(location); ok {
			return m, nil
		}
		m, err := l.load(ctx, name, location)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.binaries[location] = m
		l.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(introspect.Module), nil
}

func (l *Loader) load(ctx context.Context, name, location string) (introspect.Module, error) {
	profile := string(l.resolver.Profile())
	timer := telemetry.NewTimer()

	ctx, span := l.tracer.Start(ctx, "loader.load", trace.WithAttributes(
		attribute.String("typescope.binary", name),
		attribute.String("typescope.location", location),
		attribute.String("typescope.profile", profile),
	))
	defer span.End()

	m, err := l.open(ctx, name, location)
	if l.metrics != nil {
		l.metrics.RecordLoad(profile, timer.Duration(), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return m, nil
}

func (l *Loader) open(ctx context.Context, name, location string) (introspect.Module, error) {
	src, err := l.resolver.Open(ctx, location)
	if err != nil {
		return nil, &LoadError{Name: name, Location: location, Err: err}
	}
	if src.Module != nil {
		return src.Module, nil
	}

	bin, err := wasmhost.Compile(ctx, name, location, src.Bytes, l.host)
	if err != nil {
		return nil, &LoadError{Name: name, Location: location, Err: err}
	}
	return bin, nil
}

func (l *Loader) cached(location string) (introspect.Module, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.binaries[location]
	return m, ok
}

// Forget drops the memoized binary for name so the next load reads it
// again. Compiled binaries are closed.
func (l *Loader) Forget(ctx context.Context, name, baseLocation string) error {
	location := l.resolver.Location(name, baseLocation)

	l.mu.Lock()
	m, ok := l.binaries[location]
	delete(l.binaries, location)
	l.mu.Unlock()

	if !ok {
		return nil
	}
	if c, ok := m.(closer); ok {
		return c.Close(ctx)
	}
	return nil
}

// Close releases every compiled binary and empties the memo.
func (l *Loader) Close(ctx context.Context) error {
	l.mu.Lock()
	binaries := l.binaries
	l.binaries = make(map[string]introspect.Module)
	l.mu.Unlock()

	var errs []error
	for location, m := range binaries {
		c, ok := m.(closer)
		if !ok {
			continue
		}
		if err := c.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", location, err))
		}
	}
	return errors.Join(errs...)
}

// info logs through the sink. A failing sink never fails the load.
func (l *Loader) info(format string, args ...any) {
	if l.log == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	l.log.Infof(format, args...)
}
