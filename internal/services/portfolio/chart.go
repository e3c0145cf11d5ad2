package portfolio

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/folio/internal/models"
)

// Chart kinds accepted by RenderAllocationChart.
const (
	ChartSector      = "sector"
	ChartCategory    = "category"
	ChartPerformance = "performance"
)

var comparisonColors = []string{"9ca3af", "f59e0b", "10b981", "ef4444"}

// RenderAllocationChart renders a snapshot chart as PNG bytes. Sector and
// category render as pie charts; performance renders the cumulative TWR
// series against any comparison series.
func (s *Service) RenderAllocationChart(snapshot *models.PortfolioSnapshot, kind string) ([]byte, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("no snapshot to chart: %w", models.ErrNotFound)
	}
	switch kind {
	case ChartSector:
		return renderPie("Sector Allocation", snapshot.SectorData)
	case ChartCategory:
		return renderPie("Category Allocation", snapshot.CategoryData)
	case ChartPerformance:
		return renderPerformance(snapshot.TWR)
	default:
		return nil, fmt.Errorf("chart kind %q: %w", kind, models.ErrNotFound)
	}
}

func renderPie(title string, slices []models.AllocationSlice) ([]byte, error) {
	values := make([]chart.Value, 0, len(slices))
	var total float64
	for _, sl := range slices {
		if sl.Value <= 0 {
			continue
		}
		total += sl.Value
		values = append(values, chart.Value{Label: sl.Name, Value: sl.Value})
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s has no holdings: %w", title, models.ErrNotFound)
	}
	for i := range values {
		values[i].Label = fmt.Sprintf("%s %.1f%%", values[i].Label, values[i].Value/total*100)
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  600,
		Height: 600,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

func renderPerformance(dataset *models.TWRDataset) ([]byte, error) {
	if dataset == nil || len(dataset.ChartData) < 2 {
		return nil, fmt.Errorf("need at least 2 TWR points: %w", models.ErrNotFound)
	}

	series := []chart.Series{timeSeries("Portfolio", dataset.ChartData, chart.Style{
		StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
		StrokeWidth: 2.5,
	})}

	names := make([]string, 0, len(dataset.Comparisons))
	for name := range dataset.Comparisons {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		points := dataset.Comparisons[name]
		if len(points) < 2 {
			continue
		}
		series = append(series, timeSeries(name, points, chart.Style{
			StrokeColor:     drawing.ColorFromHex(comparisonColors[i%len(comparisonColors)]),
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		}))
	}

	graph := chart.Chart{
		Title:  "Time-Weighted Return",
		Width:  900,
		Height: 400,
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
					return fmt.Sprintf("%.0f%%", f)
				}
				return ""
			},
		},
		Series: series,
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

func timeSeries(name string, points []models.TWRPoint, style chart.Style) chart.TimeSeries {
	xs := make([]time.Time, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		d, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			continue
		}
		xs = append(xs, d)
		ys = append(ys, p.Value)
	}
	return chart.TimeSeries{Name: name, Style: style, XValues: xs, YValues: ys}
}
