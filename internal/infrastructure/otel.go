package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"salespipeline/internal/config"
)

const (
	ServiceName = "sales-pipeline"
	MeterName   = "salespipeline"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	EnableMetrics  bool
	EnableTracing  bool
	// MetricsFile receives the Prometheus text exposition at shutdown
	MetricsFile string
	// TraceFile receives one JSON document per finished span
	TraceFile string
}

// NewOTelConfig derives the OpenTelemetry configuration from the pipeline config
func NewOTelConfig(cfg config.TelemetryConfig) *OTelConfig {
	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: config.AppVersion,
		EnableMetrics:  cfg.EnableMetrics,
		EnableTracing:  cfg.EnableTracing,
		MetricsFile:    cfg.MetricsFile,
		TraceFile:      cfg.TraceFile,
	}
}

// OTelProviders holds the OpenTelemetry providers.
// Tracer and Meter are always usable; they are no-ops when disabled.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *prometheus.Registry
	Logger         *slog.Logger

	cfg       *OTelConfig
	traceFile *os.File
}

// InitializeOTel sets up span export to the trace file and metric collection
// into a private Prometheus registry.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		defaults := config.Default()
		defaults.DerivePaths()
		cfg = NewOTelConfig(defaults.Telemetry)
	}
	if logger == nil {
		logger = GetLogger()
	}

	providers := &OTelProviders{
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:  metricnoop.NewMeterProvider().Meter(MeterName),
		Logger: logger,
		cfg:    cfg,
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	if cfg.EnableTracing {
		if err := providers.initializeTracing(res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := providers.initializeMetrics(res); err != nil {
			providers.closeTraceFile()
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	logger.Info("OpenTelemetry initialized",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// initializeTracing exports spans synchronously; a batch run ends right after its last span
func (p *OTelProviders) initializeTracing(res *resource.Resource) error {
	if err := os.MkdirAll(filepath.Dir(p.cfg.TraceFile), 0755); err != nil {
		return fmt.Errorf("failed to create trace directory: %w", err)
	}
	file, err := os.Create(p.cfg.TraceFile)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(file))
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	p.traceFile = file
	p.TracerProvider = tp
	p.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(p.cfg.ServiceVersion))
	return nil
}

func (p *OTelProviders) initializeMetrics(res *resource.Resource) error {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	p.Registry = registry
	p.MeterProvider = mp
	p.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(p.cfg.ServiceVersion))
	return nil
}

// WriteMetrics writes the current metric values in Prometheus text format
// to the configured metrics file, for a node_exporter textfile collector.
func (p *OTelProviders) WriteMetrics() error {
	if p.Registry == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.cfg.MetricsFile), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	return prometheus.WriteToTextfile(p.cfg.MetricsFile, p.Registry)
}

// Shutdown writes the metrics file, then flushes and stops both providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if err := p.WriteMetrics(); err != nil {
		errs = append(errs, fmt.Errorf("write metrics: %w", err))
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if err := p.closeTraceFile(); err != nil {
		errs = append(errs, fmt.Errorf("close trace file: %w", err))
	}

	return errors.Join(errs...)
}

func (p *OTelProviders) closeTraceFile() error {
	if p.traceFile == nil {
		return nil
	}
	err := p.traceFile.Close()
	p.traceFile = nil
	return err
}
