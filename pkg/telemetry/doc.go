// Package telemetry provides observability instrumentation for typescope.
//
// It integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry) and metrics (Prometheus) behind one Config.
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// # Structured Logging
//
// Logger satisfies the diagnostic sinks of the scanner and loader packages,
// so a component logger can be handed to them directly:
//
//	log := tel.Logger.NewComponentLogger("scanner")
//	s := scanner.New(log, scanner.WithMetrics(tel.Metrics), scanner.WithTracer(tel.Tracer))
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// Scans, loads and invocations each open a span. Exporters: stdout, otlp
// (gRPC) or none.
//
// # Metrics
//
// All metrics live in a private registry:
//
//   - scans_total{module,result}: result is ok, partial or error
//   - types_loaded_total{module}, types_failed_total{module}
//   - scan_duration_seconds{module}
//   - binary_loads_total{profile,result}, binary_load_duration_seconds{profile}
//   - invocations_total{result}
//
// Metrics are exposed over HTTP by Metrics.Handler or StartMetricsServer.
package telemetry
