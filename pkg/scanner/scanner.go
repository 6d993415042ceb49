// Package scanner enumerates the exported types of a loaded module, keeping
// every type that loaded when others fail.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openfroyo/typescope/pkg/introspect"
	"github.com/openfroyo/typescope/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Logger is the diagnostic sink for type load failures.
type Logger interface {
	Warnf(format string, args ...any)
}

// Metrics records scan outcomes. *telemetry.Metrics implements it.
type Metrics interface {
	RecordScan(module string, loaded, failed int, duration time.Duration, err error)
}

// SpanStarter starts trace spans. Both trace.Tracer and *telemetry.Tracer
// implement it.
type SpanStarter interface {
	Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
}

// ScanResult is the outcome of a scan.
type ScanResult struct {
	// ID correlates the scan with its log lines and span.
	ID string `json:"id"`

	// Module is the scanned module name.
	Module string `json:"module"`

	// Types are the types that loaded, in host order. No element is nil.
	Types []introspect.Type `json:"-"`

	// Failed is the number of types that could not be loaded.
	Failed int `json:"failed"`
}

// Scanner scans modules. The zero value is not usable; use New.
type Scanner struct {
	log     Logger
	metrics Metrics
	tracer  SpanStarter
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithMetrics records every scan in m.
func WithMetrics(m Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithTracer opens a span per scan.
func WithTracer(t SpanStarter) Option {
	return func(s *Scanner) { s.tracer = t }
}

// New creates a scanner warning through log. log may be nil.
func New(log Logger, opts ...Option) *Scanner {
	s := &Scanner{
		log:    log,
		tracer: noop.NewTracerProvider().Tracer("typescope/scanner"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanExportedTypes scans m with a scanner that only logs.
func ScanExportedTypes(ctx context.Context, m introspect.Module, log Logger) (*ScanResult, error) {
	return New(log).ScanExportedTypes(ctx, m)
}

// ScanExportedTypes returns the exported types of m that loaded.
//
// A partial load, reported by the module as an *introspect.TypeLoadError, is
// not an error: every loader error is logged as a warning and the loaded
// types are returned in host order. Any other enumeration error is returned
// unchanged.
func (s *Scanner) ScanExportedTypes(ctx context.Context, m introspect.Module) (*ScanResult, error) {
	if m == nil {
		return nil, errors.New("scan: nil module")
	}

	result := &ScanResult{ID: uuid.NewString(), Module: m.Name()}
	timer := telemetry.NewTimer()
	log := s.scoped(result)

	_, span := s.tracer.Start(ctx, "scanner.scan", trace.WithAttributes(
		attribute.String("typescope.module", result.Module),
		attribute.String("typescope.scan_id", result.ID),
	))
	defer span.End()

	types, err := m.ExportedTypes()
	if err != nil {
		var loadErr *introspect.TypeLoadError
		if !errors.As(err, &loadErr) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.record(result, timer.Duration(), err)
			return nil, err
		}
		for _, le := range loadErr.LoaderErrors {
			warn(log, "Type load exception: %v", le)
		}
		if loadErr.Types != nil {
			types = loadErr.Types
		}
	}

	result.Types, result.Failed = project(classify(types))

	span.SetAttributes(
		attribute.Int("typescope.types_loaded", len(result.Types)),
		attribute.Int("typescope.types_failed", result.Failed),
	)
	span.SetStatus(codes.Ok, "")
	s.record(result, timer.Duration(), nil)
	return result, nil
}

func (s *Scanner) record(r *ScanResult, d time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordScan(r.Module, len(r.Types), r.Failed, d, err)
}

// scoped returns the sink for one scan. A *telemetry.Logger gets the scan id
// and module as fields, so callers can correlate the warnings with r.
func (s *Scanner) scoped(r *ScanResult) Logger {
	if l, ok := s.log.(*telemetry.Logger); ok && l != nil {
		return l.WithScanID(r.ID).WithModule(r.Module)
	}
	return s.log
}

// warn logs through the sink. A failing sink never fails the scan.
func warn(log Logger, format string, args ...any) {
	if log == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	log.Warnf(format, args...)
}

// entry is one slot of a partial enumeration.
type entry struct {
	typ    introspect.Type
	loaded bool
}

func classify(types []introspect.Type) []entry {
	entries := make([]entry, len(types))
	for i, t := range types {
		entries[i] = entry{typ: t, loaded: t != nil}
	}
	return entries
}

func project(entries []entry) ([]introspect.Type, int) {
	types := make([]introspect.Type, 0, len(entries))
	failed := 0
	for _, e := range entries {
		if !e.loaded {
			failed++
			continue
		}
		types = append(types, e.typ)
	}
	return types, failed
}

// String summarizes the result.
func (r *ScanResult) String() string {
	return fmt.Sprintf("%s: %d types loaded, %d failed", r.Module, len(r.Types), r.Failed)
}
