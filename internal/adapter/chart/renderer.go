// Package chart draws price history line charts to a PNG file.
package chart

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"os"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"cryptochat/internal/domain"
	"cryptochat/internal/infra/config"
	"cryptochat/internal/infra/tracer"
)

// HistorySource supplies the series to plot.
type HistorySource interface {
	PriceHistory(ctx context.Context, ticker, period string) domain.PriceSeries
}

// Renderer writes the Close column of a price series to one fixed path.
// Each render overwrites the previous image.
type Renderer struct {
	source HistorySource
	path   string
	width  int
	height int
	logger *slog.Logger
}

// NewRenderer creates a Renderer that writes to cfg.OutputPath.
func NewRenderer(source HistorySource, cfg config.ChartConfig, logger *slog.Logger) *Renderer {
	return &Renderer{
		source: source,
		path:   cfg.OutputPath,
		width:  cfg.Width,
		height: cfg.Height,
		logger: logger,
	}
}

// Path returns where charts are written.
func (r *Renderer) Path() string { return r.path }

// RenderPriceHistory fetches the series and, if it has data, writes the
// chart. With no data nothing is written and Rendered is false.
func (r *Renderer) RenderPriceHistory(ctx context.Context, ticker, period string) (domain.ImageOutput, error) {
	ctx, span := tracer.StartSpan(ctx, "chart.render")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("chart.ticker", ticker), tracer.StringAttr("chart.period", period))

	out := domain.ImageOutput{Path: r.path, Ticker: ticker}

	series := r.source.PriceHistory(ctx, ticker, period)
	if series.Empty() {
		r.logger.Info("price history not available", "ticker", ticker, "period", period)
		span.SetAttributes(tracer.BoolAttr("chart.rendered", false))
		tracer.SetOK(span)
		return out, nil
	}

	var buf bytes.Buffer
	if err := r.draw(&buf, series); err != nil {
		err = domain.NewDomainError("Chart.Render", domain.ErrChartWrite, err.Error())
		tracer.RecordError(span, err)
		return out, err
	}
	if err := os.WriteFile(r.path, buf.Bytes(), 0o644); err != nil {
		err = domain.NewDomainError("Chart.Render", domain.ErrChartWrite, err.Error())
		tracer.RecordError(span, err)
		return out, err
	}

	out.Rendered = true
	r.logger.Debug("chart written", "path", r.path, "ticker", ticker, "points", len(series.Points))
	span.SetAttributes(tracer.BoolAttr("chart.rendered", true), tracer.IntAttr("chart.points", len(series.Points)))
	tracer.SetOK(span)
	return out, nil
}

var gridStyle = gochart.Style{
	StrokeColor: drawing.ColorFromHex("d0d0d0"),
	StrokeWidth: 1,
}

func (r *Renderer) draw(buf *bytes.Buffer, series domain.PriceSeries) error {
	xs := make([]time.Time, len(series.Points))
	for i, p := range series.Points {
		xs[i] = p.Time
	}
	ys := series.Closes()

	line := gochart.TimeSeries{
		Name:    "Close",
		XValues: xs,
		YValues: ys,
		Style: gochart.Style{
			StrokeColor: drawing.ColorFromHex("1f77b4"),
			StrokeWidth: 2,
		},
	}

	graph := gochart.Chart{
		Title:  "Price History of " + series.Ticker,
		Width:  r.width,
		Height: r.height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:           "Date",
			ValueFormatter: gochart.TimeDateValueFormatter,
			GridMajorStyle: gridStyle,
		},
		YAxis: gochart.YAxis{
			Name:           "Price (USD)",
			GridMajorStyle: gridStyle,
		},
	}

	// A single bar has zero width and height; give the axes explicit ranges.
	if len(xs) == 1 {
		x := gochart.TimeToFloat64(xs[0])
		half := float64(12 * time.Hour)
		graph.XAxis.Range = &gochart.ContinuousRange{Min: x - half, Max: x + half}
		line.Style.DotWidth = 4
	}
	if lo, hi := minMax(ys); lo == hi {
		pad := math.Abs(lo) * 0.01
		if pad == 0 {
			pad = 1
		}
		graph.YAxis.Range = &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}

	graph.Series = []gochart.Series{line}
	return graph.Render(gochart.PNG, buf)
}

func minMax(vs []float64) (float64, float64) {
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
