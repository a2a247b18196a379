package operations

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"salespipeline/internal/chart"
	"salespipeline/internal/dataprocessing"
	perrors "salespipeline/internal/errors"
	"salespipeline/internal/exporter"
	"salespipeline/internal/infrastructure"
	"salespipeline/internal/report"
	"salespipeline/internal/storage"
)

// StageDeps holds what every pipeline Step needs
type StageDeps struct {
	Config  *Config
	Console *report.Console
	Metrics *infrastructure.PipelineMetrics
	Logger  *slog.Logger
}

// RegisterPipeline registers the six pipeline steps in execution order:
// load, transform, then the sinks storage, verify, chart and export.
func RegisterPipeline(registry *Registry, deps StageDeps) error {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	store := storage.NewStore(deps.Config.DatabaseFile, deps.Config.TableName, deps.Logger)

	steps := []Step{
		NewLoadStage(deps),
		NewTransformStage(deps),
		NewStorageStage(deps, store),
		NewVerifyStage(deps, store),
		NewChartStage(deps),
		NewExportStage(deps),
	}
	for _, step := range steps {
		if err := registry.Register(step); err != nil {
			return err
		}
	}
	return nil
}

// LoadStage reads the input workbook and previews it
type LoadStage struct {
	BaseStage
	deps   StageDeps
	loader *dataprocessing.Loader
}

// NewLoadStage creates a new load Step
func NewLoadStage(deps StageDeps) *LoadStage {
	return &LoadStage{
		BaseStage: NewBaseStage(StageIDLoad, StageNameLoad, perrors.PhaseLoading, perrors.ErrorTypeLoad, nil),
		deps:      deps,
		loader:    dataprocessing.NewLoader(deps.Logger),
	}
}

// Execute loads the workbook into state.Raw
func (s *LoadStage) Execute(ctx context.Context, state *OperationState) error {
	raw, err := s.loader.LoadWorkbook(ctx, s.deps.Config.InputFile)
	if err != nil {
		return err
	}

	s.deps.Console.Success("Excel file loaded successfully")
	s.deps.Console.RawTable(raw, s.deps.Config.PreviewRows)

	rows, _ := raw.Shape()
	if s.deps.Metrics != nil {
		s.deps.Metrics.RowsLoaded.Add(ctx, int64(rows))
	}
	state.GetStage(s.ID()).SetMetadata("rows", rows)
	state.Raw = raw
	return nil
}

// TransformStage cleans the raw table and describes its revenue
type TransformStage struct {
	BaseStage
	deps        StageDeps
	transformer *dataprocessing.Transformer
}

// NewTransformStage creates a new transform Step
func NewTransformStage(deps StageDeps) *TransformStage {
	return &TransformStage{
		BaseStage:   NewBaseStage(StageIDTransform, StageNameTransform, perrors.PhaseTransformation, perrors.ErrorTypeTransform, []string{StageIDLoad}),
		deps:        deps,
		transformer: dataprocessing.NewTransformer(deps.Logger),
	}
}

// Validate requires a loaded table
func (s *TransformStage) Validate(state *OperationState) error {
	if state.Raw == nil {
		return fmt.Errorf("no raw table loaded")
	}
	return nil
}

// Execute fills state.Table and state.Stats
func (s *TransformStage) Execute(ctx context.Context, state *OperationState) error {
	table, err := s.transformer.Transform(ctx, state.Raw)
	if err != nil {
		return err
	}

	c := s.deps.Console
	c.Success("Date column converted to datetime")
	c.Success("Time-related features added (Month, MonthNum, Quarter, Year)")
	c.Success("Text formatting standardized")
	c.Success("Revenue column converted to numeric")
	c.Success("Data sorted by date")
	c.NullCounts("Missing values after cleaning", dataprocessing.ProfileTable(table))

	stats, err := dataprocessing.DescribeRevenue(table)
	if err != nil {
		return err
	}
	c.RevenueStats(stats)

	state.Table = table
	state.Stats = &stats
	return nil
}

// sinkStage is the common part of the steps that need a cleaned table
type sinkStage struct {
	BaseStage
	deps StageDeps
}

// Validate requires a cleaned table
func (s *sinkStage) Validate(state *OperationState) error {
	if state.Table == nil {
		return fmt.Errorf("no cleaned table available")
	}
	return nil
}

// StorageStage replaces the sales table in the SQLite database
type StorageStage struct {
	sinkStage
	store *storage.Store
}

// NewStorageStage creates a new storage Step
func NewStorageStage(deps StageDeps, store *storage.Store) *StorageStage {
	return &StorageStage{
		sinkStage: sinkStage{
			BaseStage: NewBaseStage(StageIDStorage, StageNameStorage, perrors.PhaseSink, perrors.ErrorTypeStorage, []string{StageIDTransform}),
			deps:      deps,
		},
		store: store,
	}
}

// Execute writes every record to the database
func (s *StorageStage) Execute(ctx context.Context, state *OperationState) error {
	s.deps.Console.Info("Connecting to SQLite database '%s'...", s.store.Path())
	n, err := s.store.ReplaceSales(ctx, state.Table)
	if err != nil {
		return err
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.RowsStored.Add(ctx, int64(n),
			metric.WithAttributes(attribute.String("table", s.deps.Config.TableName)))
	}
	state.GetStage(s.ID()).SetMetadata("rows", n)
	s.deps.Console.Success("Data successfully stored in SQLite database (%s rows)", exporter.FormatCount(n))
	s.deps.Console.Success("Database connection closed")
	return nil
}

// VerifyStage reads the stored table back
type VerifyStage struct {
	sinkStage
	store *storage.Store
}

// NewVerifyStage creates a new verification Step
func NewVerifyStage(deps StageDeps, store *storage.Store) *VerifyStage {
	return &VerifyStage{
		sinkStage: sinkStage{
			BaseStage: NewBaseStage(StageIDVerify, StageNameVerify, perrors.PhaseSink, perrors.ErrorTypeStorage, []string{StageIDStorage}),
			deps:      deps,
		},
		store: store,
	}
}

// Execute counts and samples the stored rows
func (s *VerifyStage) Execute(ctx context.Context, state *OperationState) error {
	v, err := s.store.Verify(ctx, state.Table.Len(), s.deps.Config.VerificationSample)
	if err != nil {
		return err
	}
	s.deps.Console.Verification(v)
	state.Verification = v
	return nil
}

// ChartStage renders the revenue box plot
type ChartStage struct {
	sinkStage
	renderer *chart.BoxPlotRenderer
}

// NewChartStage creates a new chart Step
func NewChartStage(deps StageDeps) *ChartStage {
	return &ChartStage{
		sinkStage: sinkStage{
			BaseStage: NewBaseStage(StageIDChart, StageNameChart, perrors.PhaseSink, perrors.ErrorTypeRender, []string{StageIDTransform}),
			deps:      deps,
		},
		renderer: chart.NewBoxPlotRenderer(deps.Logger),
	}
}

// Execute writes the chart image
func (s *ChartStage) Execute(ctx context.Context, state *OperationState) error {
	s.deps.Console.Info("Creating revenue boxplot...")
	if err := s.renderer.Render(ctx, s.deps.Config.ChartFile, state.Table); err != nil {
		return err
	}
	s.deps.Console.Success("Boxplot saved to '%s'", s.deps.Config.ChartFile)
	return nil
}

// ExportStage writes the cleaned workbook
type ExportStage struct {
	sinkStage
	writer *exporter.XLSXWriter
}

// NewExportStage creates a new export Step
func NewExportStage(deps StageDeps) *ExportStage {
	return &ExportStage{
		sinkStage: sinkStage{
			BaseStage: NewBaseStage(StageIDExport, StageNameExport, perrors.PhaseSink, perrors.ErrorTypeExport, []string{StageIDTransform}),
			deps:      deps,
		},
		writer: exporter.NewXLSXWriter(deps.Logger,
			exporter.WithSheetName(deps.Config.SheetName),
			exporter.WithDateFormat(deps.Config.DateFormat)),
	}
}

// Execute writes every record to the export file
func (s *ExportStage) Execute(ctx context.Context, state *OperationState) error {
	if err := s.writer.WriteSales(ctx, s.deps.Config.ExportFile, state.Table); err != nil {
		return err
	}
	s.deps.Console.Success("Cleaned data exported to '%s'", s.deps.Config.ExportFile)
	return nil
}
