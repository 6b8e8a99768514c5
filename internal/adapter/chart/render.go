// Package chart renders aggregated valuation series as PNG images
package chart

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/simaogato/assetflow-backend/internal/usecase/timeseries"
)

var palette = []string{
	"2563eb", // blue-600
	"16a34a", // green-600
	"f59e0b", // amber-500
	"dc2626", // red-600
	"7c3aed", // violet-600
	"0891b2", // cyan-600
	"9ca3af", // gray-400
}

// Options controls the rendered image
type Options struct {
	Title    string
	Width    int
	Height   int
	Currency string // axis labels; defaults to KRW
}

// RenderStacked draws one filled band per group key, stacked in key order,
// so the top edge of the chart is the daily total
func RenderStacked(points []timeseries.Point, opts Options) ([]byte, error) {
	keys := timeseries.Keys(points)
	dates := dateAxis(points)
	if len(dates) < 2 {
		return nil, fmt.Errorf("need at least 2 dates, got %d", len(dates))
	}
	if opts.Width == 0 {
		opts.Width = 900
	}
	if opts.Height == 0 {
		opts.Height = 400
	}
	if opts.Currency == "" {
		opts.Currency = "KRW"
	}

	index := make(map[string]int, len(dates))
	xValues := make([]time.Time, len(dates))
	for i, d := range dates {
		index[d] = i
		xValues[i], _ = domain.ParseDate(d)
	}

	values := make(map[string][]decimal.Decimal, len(keys))
	for _, k := range keys {
		values[k] = make([]decimal.Decimal, len(dates))
	}
	for _, p := range points {
		values[p.Key][index[p.Date]] = p.Value
	}

	// cumulative bands, drawn from the top down so lower bands stay visible
	running := make([]decimal.Decimal, len(dates))
	bands := make([]chart.Series, len(keys))
	for i, k := range keys {
		y := make([]float64, len(dates))
		for j := range dates {
			running[j] = running[j].Add(values[k][j])
			y[j] = running[j].InexactFloat64()
		}
		color := drawing.ColorFromHex(palette[i%len(palette)])
		bands[len(keys)-1-i] = chart.TimeSeries{
			Name: k,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 1.5,
				FillColor:   color.WithAlpha(180),
			},
			XValues: xValues,
			YValues: y,
		}
	}

	graph := chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return domain.FormatMoney(decimal.NewFromFloat(f).Round(0), opts.Currency)
				}
				return ""
			},
		},
		Series: bands,
	}
	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

func dateAxis(points []timeseries.Point) []string {
	var dates []string
	for _, p := range points {
		if n := len(dates); n == 0 || dates[n-1] != p.Date {
			dates = append(dates, p.Date)
		}
	}
	return dates
}
