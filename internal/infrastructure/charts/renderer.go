package charts

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"ClimateTrend/internal/domain"
	"ClimateTrend/internal/ports"
)

// Renderer draws the yearly summary charts as PNG files. Existing files are
// overwritten so a rerun always reflects the current dataset.
type Renderer struct {
	temperaturePath   string
	precipitationPath string
}

var _ ports.ChartRenderer = (*Renderer)(nil)

// NewRenderer returns a renderer writing to the two given paths.
func NewRenderer(temperaturePath, precipitationPath string) *Renderer {
	return &Renderer{
		temperaturePath:   temperaturePath,
		precipitationPath: precipitationPath,
	}
}

var (
	observedColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	trendColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// RenderTemperature draws average annual temperature as a line chart, with the
// fitted trend overlaid as a dashed line when one is available. Years without
// a defined average are left out rather than drawn as zero.
func (r *Renderer) RenderTemperature(summaries []domain.AnnualSummary, trend *domain.TrendResult) error {
	points := make(plotter.XYs, 0, len(summaries))
	for _, s := range summaries {
		if s.AvgTemp == nil {
			continue
		}
		points = append(points, plotter.XY{X: float64(s.Year), Y: *s.AvgTemp})
	}
	if len(points) == 0 {
		return errors.New("no yearly data to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Average Annual Temperature, %d-%d", int(points[0].X), int(points[len(points)-1].X))
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Temperature (°C)"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(points)
	if err != nil {
		return fmt.Errorf("build temperature line: %w", err)
	}
	line.LineStyle.Color = observedColor
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("avg temp", line)
	p.Legend.Top = true

	if trend != nil {
		fit, err := plotter.NewLine(plotter.XYs{
			{X: points[0].X, Y: trend.Intercept + trend.Slope*points[0].X},
			{X: points[len(points)-1].X, Y: trend.Intercept + trend.Slope*points[len(points)-1].X},
		})
		if err != nil {
			return fmt.Errorf("build trend line: %w", err)
		}
		fit.LineStyle.Color = trendColor
		fit.LineStyle.Width = vg.Points(1.5)
		fit.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(fit)
		p.Legend.Add(fmt.Sprintf("trend %+.2f °C/decade", trend.PerDecade()), fit)
	}

	return save(p, r.temperaturePath)
}

// RenderPrecipitation draws total annual precipitation as a bar chart. Years
// without precipitation data are left out rather than drawn as zero.
func (r *Renderer) RenderPrecipitation(summaries []domain.AnnualSummary) error {
	values := make(plotter.Values, 0, len(summaries))
	labels := make([]string, 0, len(summaries))
	for _, s := range summaries {
		if s.TotalPrecip == nil {
			continue
		}
		values = append(values, *s.TotalPrecip)
		// Label every fifth year; a label per bar is unreadable over 50 years.
		if s.Year%5 == 0 {
			labels = append(labels, strconv.Itoa(s.Year))
		} else {
			labels = append(labels, "")
		}
	}
	if len(values) == 0 {
		return errors.New("no yearly data to plot")
	}

	p := plot.New()
	p.Title.Text = "Total Annual Precipitation (mm)"
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Precipitation (mm)"

	bars, err := plotter.NewBarChart(values, vg.Points(4))
	if err != nil {
		return fmt.Errorf("build precipitation bars: %w", err)
	}
	bars.Color = observedColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)

	return save(p, r.precipitationPath)
}

func save(p *plot.Plot, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create chart dir: %w", err)
		}
	}
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save chart %s: %w", path, err)
	}
	return nil
}
