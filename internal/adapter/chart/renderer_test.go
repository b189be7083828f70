package chart

import (
	"bytes"
	"context"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptochat/internal/domain"
	"cryptochat/internal/infra/config"
)

type stubHistory struct {
	series domain.PriceSeries
	calls  int
	period string
}

func (s *stubHistory) PriceHistory(_ context.Context, ticker, period string) domain.PriceSeries {
	s.calls++
	s.period = period
	out := s.series
	out.Ticker = ticker
	return out
}

func daily(closes ...float64) domain.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := domain.PriceSeries{Period: "1mo"}
	for i, c := range closes {
		s.Points = append(s.Points, domain.PricePoint{Time: start.AddDate(0, 0, i), Close: c})
	}
	return s
}

func newRenderer(t *testing.T, src HistorySource) *Renderer {
	t.Helper()
	return NewRenderer(src, config.ChartConfig{
		OutputPath: filepath.Join(t.TempDir(), "output.png"),
		Width:      1000,
		Height:     600,
	}, slog.Default())
}

func TestRenderWritesPNG(t *testing.T) {
	src := &stubHistory{series: daily(42000, 43500.5, 41000, 44800)}
	r := newRenderer(t, src)

	out, err := r.RenderPriceHistory(context.Background(), "BTC-USD", "1mo")
	require.NoError(t, err)
	assert.True(t, out.Rendered)
	assert.Equal(t, r.Path(), out.Path)
	assert.Equal(t, "1mo", src.period)

	data, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1000, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
}

func TestRenderOverwritesPreviousImage(t *testing.T) {
	r := newRenderer(t, &stubHistory{series: daily(1, 2, 3)})
	require.NoError(t, os.WriteFile(r.Path(), []byte("stale"), 0o644))

	_, err := r.RenderPriceHistory(context.Background(), "ETH-USD", "5d")
	require.NoError(t, err)

	data, err := os.ReadFile(r.Path())
	require.NoError(t, err)
	assert.NotEqual(t, []byte("stale"), data)
}

func TestRenderSinglePointAndFlatSeries(t *testing.T) {
	for name, series := range map[string]domain.PriceSeries{
		"single point": daily(67000.5),
		"flat":         daily(1, 1, 1),
		"flat zero":    daily(0, 0),
	} {
		t.Run(name, func(t *testing.T) {
			r := newRenderer(t, &stubHistory{series: series})
			out, err := r.RenderPriceHistory(context.Background(), "BTC-USD", "1d")
			require.NoError(t, err)
			assert.True(t, out.Rendered)
		})
	}
}

func TestRenderEmptySeriesWritesNothing(t *testing.T) {
	var logs bytes.Buffer
	r := NewRenderer(&stubHistory{}, config.ChartConfig{
		OutputPath: filepath.Join(t.TempDir(), "output.png"),
		Width:      400,
		Height:     300,
	}, slog.New(slog.NewJSONHandler(&logs, nil)))

	out, err := r.RenderPriceHistory(context.Background(), "NOPE-USD", "1mo")
	require.NoError(t, err)
	assert.False(t, out.Rendered)
	assert.Equal(t, "Price history of NOPE-USD not available", out.String())

	_, statErr := os.Stat(r.Path())
	assert.True(t, os.IsNotExist(statErr))

	assert.Contains(t, logs.String(), `"msg":"price history not available"`)
	assert.Contains(t, logs.String(), `"ticker":"NOPE-USD"`)
}

func TestRenderWriteFailure(t *testing.T) {
	r := NewRenderer(&stubHistory{series: daily(1, 2)}, config.ChartConfig{
		OutputPath: filepath.Join(t.TempDir(), "missing-dir", "output.png"),
		Width:      400,
		Height:     300,
	}, slog.Default())

	_, err := r.RenderPriceHistory(context.Background(), "BTC-USD", "1mo")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrChartWrite)
}
