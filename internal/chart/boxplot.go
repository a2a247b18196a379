// Package chart renders revenue charts as image files.
package chart

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"salespipeline/internal/dataprocessing"
	perrors "salespipeline/internal/errors"
	"salespipeline/internal/exporter"
	"salespipeline/internal/infrastructure"
	"salespipeline/internal/validation"
	"salespipeline/pkg/contracts/domain"
)

var (
	meanColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	medianColor = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// BoxPlotRenderer draws the revenue distribution with mean and median markers
type BoxPlotRenderer struct {
	width     vg.Length
	height    vg.Length
	validator *validation.FileValidator
	logger    *slog.Logger
}

// NewBoxPlotRenderer creates a renderer producing 10x6 inch images
func NewBoxPlotRenderer(logger *slog.Logger) *BoxPlotRenderer {
	logger = infrastructure.WithComponent(logger, "chart")
	return &BoxPlotRenderer{
		width:     10 * vg.Inch,
		height:    6 * vg.Inch,
		validator: validation.NewFileValidator(logger),
		logger:    logger,
	}
}

// Render saves a box plot of the table's non-null revenue to path.
// The image format follows the file extension.
func (r *BoxPlotRenderer) Render(ctx context.Context, path string, table *domain.SalesTable) error {
	values := table.RevenueValues()
	if len(values) == 0 {
		return perrors.NewRenderError(fmt.Errorf("no revenue values to plot"))
	}
	stats, err := dataprocessing.DescribeRevenue(table)
	if err != nil {
		return perrors.NewRenderError(err)
	}
	if err := r.validator.ValidateOutputFile(path); err != nil {
		return perrors.NewRenderError(err)
	}

	p, err := newBoxPlot(values, stats)
	if err != nil {
		return perrors.NewRenderError(err)
	}
	if err := p.Save(r.width, r.height, path); err != nil {
		return perrors.NewRenderError(fmt.Errorf("save %s: %w", path, err))
	}

	r.logger.InfoContext(ctx, "Chart rendered",
		slog.String("file_path", path),
		slog.Int("values", len(values)),
		slog.Float64("mean", stats.Mean),
		slog.Float64("median", stats.Median))
	return nil
}

func newBoxPlot(values []float64, stats domain.RevenueStats) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Revenue Distribution - Boxplot"
	p.Y.Label.Text = "Revenue ($)"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	box, err := plotter.NewBoxPlot(vg.Points(80), 0, plotter.Values(values))
	if err != nil {
		return nil, fmt.Errorf("box plot: %w", err)
	}
	box.FillColor = color.RGBA{R: 173, G: 216, B: 230, A: 255}
	p.Add(box)

	mean, err := markerLine(stats.Mean, meanColor)
	if err != nil {
		return nil, err
	}
	median, err := markerLine(stats.Median, medianColor)
	if err != nil {
		return nil, err
	}
	p.Add(mean, median)
	p.Legend.Add("Mean: "+exporter.FormatCurrency(stats.Mean), mean)
	p.Legend.Add("Median: "+exporter.FormatCurrency(stats.Median), median)

	p.NominalX("Revenue")
	p.X.Min, p.X.Max = -0.5, 0.5
	return p, nil
}

// markerLine is a dashed horizontal line across the box at y
func markerLine(y float64, c color.Color) (*plotter.Line, error) {
	line, err := plotter.NewLine(plotter.XYs{{X: -0.4, Y: y}, {X: 0.4, Y: y}})
	if err != nil {
		return nil, fmt.Errorf("marker line: %w", err)
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	line.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	return line, nil
}
