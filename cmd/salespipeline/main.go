package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"salespipeline/internal/config"
	"salespipeline/internal/infrastructure"
	"salespipeline/internal/operations"
	"salespipeline/internal/report"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one pipeline and returns the process exit status
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("salespipeline", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configFile := flags.String("config", "", "YAML configuration file (defaults to pipeline.yaml if present)")
	input := flags.String("input", "", "input workbook (defaults to "+config.DefaultInputFile+")")
	database := flags.String("db", "", "SQLite database file (defaults to "+config.DefaultDatabaseFile+")")
	export := flags.String("export", "", "cleaned workbook (defaults to "+config.DefaultExportFile+")")
	chart := flags.String("chart", "", "box plot image (defaults to "+config.DefaultChartFile+")")
	logLevel := flags.String("log-level", "", "log level: debug, info, warn or error")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	overrides := map[*string]string{
		&cfg.Paths.InputFile:    *input,
		&cfg.Paths.DatabaseFile: *database,
		&cfg.Paths.ExportFile:   *export,
		&cfg.Paths.ChartFile:    *chart,
		&cfg.Logging.Level:      *logLevel,
	}
	for field, value := range overrides {
		if value != "" {
			*field = value
		}
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(stderr, "Failed to create required directories: %v\n", err)
		return 1
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger, using default: %v\n", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.EnsureRunID(context.Background())
	logger.InfoContext(ctx, "Starting sales data pipeline",
		slog.String("version", config.AppVersion),
		slog.String("input_file", cfg.Paths.InputFile),
		slog.String("database_file", cfg.Paths.DatabaseFile),
		slog.String("export_file", cfg.Paths.ExportFile),
		slog.String("chart_file", cfg.Paths.ChartFile))

	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		logger.WarnContext(ctx, "Telemetry disabled", slog.String("error", err.Error()))
		providers, _ = infrastructure.InitializeOTel(&infrastructure.OTelConfig{ServiceName: infrastructure.ServiceName}, logger)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	systemMetrics, err := infrastructure.RegisterSystemMetrics(providers.Meter)
	if err != nil {
		logger.WarnContext(ctx, "Runtime metrics disabled", slog.String("error", err.Error()))
	}

	tracer, err := operations.NewOperationTracer(providers)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create operation tracer", slog.String("error", err.Error()))
		return 1
	}

	console := report.NewConsole(stdout)
	registry := operations.NewRegistry()
	deps := operations.StageDeps{
		Config:  operations.NewConfig(cfg.Paths),
		Console: console,
		Metrics: tracer.Metrics(),
		Logger:  logger,
	}
	if err := operations.RegisterPipeline(registry, deps); err != nil {
		logger.ErrorContext(ctx, "Failed to register pipeline steps", slog.String("error", err.Error()))
		return 1
	}

	manager := operations.NewManager(registry, console, tracer, logger)
	state, err := manager.Execute(ctx)

	if systemMetrics != nil {
		stats := systemMetrics.Stats()
		logger.InfoContext(ctx, "Pipeline resource usage",
			slog.String("heap", humanize.Bytes(stats.HeapAlloc)),
			slog.String("total_alloc", humanize.Bytes(stats.TotalAlloc)),
			slog.Uint64("gc_cycles", uint64(stats.GCCount)),
			slog.Duration("uptime", stats.ProcessUptime))
	}

	if err != nil {
		logger.ErrorContext(ctx, "Pipeline halted",
			slog.String("error", err.Error()),
			slog.Duration("duration", state.Duration()))
		return 1
	}

	if state.SinkErrors.HasErrors() {
		logger.WarnContext(ctx, "Pipeline finished with sink failures",
			slog.String("errors", state.SinkErrors.Error()),
			slog.Duration("duration", state.Duration()))
		return 0
	}
	logger.InfoContext(ctx, "Pipeline finished",
		slog.Duration("duration", state.Duration()))
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
