package chartrender

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	imageWidth  = 8 * vg.Inch
	imageHeight = 4.5 * vg.Inch
)

var (
	barWidth = vg.Points(18)
	boxWidth = vg.Points(24)
)

// renderImage draws the payload with gonum/plot and writes a PNG with a
// random name into the renderer's chart directory.
func (r *Renderer) renderImage(payload *Payload) (string, error) {
	p := plot.New()
	p.Title.Text = payload.Title
	p.X.Label.Text = payload.XLabel
	p.Y.Label.Text = payload.YLabel

	var err error
	switch payload.Kind {
	case "line":
		err = drawLines(p, payload)
	case "scatter":
		err = drawScatter(p, payload)
	case "bar":
		err = drawBars(p, payload)
	case "histogram":
		err = drawHistogram(p, payload)
	case "box":
		err = drawBoxes(p, payload)
	case "heatmap":
		err = drawHeatmap(p, payload)
	default:
		err = fmt.Errorf("unsupported chart kind %q", payload.Kind)
	}
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create chart directory: %w", err)
	}
	path := filepath.Join(r.dir, uuid.NewString()+".png")
	if err := p.Save(imageWidth, imageHeight, path); err != nil {
		return "", fmt.Errorf("save chart image: %w", err)
	}
	return path, nil
}

func drawLines(p *plot.Plot, payload *Payload) error {
	for i, series := range payload.Series {
		line, err := plotter.NewLine(indexedXYs(series.Values))
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		if series.Name != "" {
			p.Legend.Add(series.Name, line)
		}
	}
	applyLabelTicks(&p.X, payload.X)
	return nil
}

func drawScatter(p *plot.Plot, payload *Payload) error {
	for i, series := range payload.Series {
		scatter, err := plotter.NewScatter(indexedXYs(series.Values))
		if err != nil {
			return err
		}
		scatter.Color = plotutil.Color(i)
		p.Add(scatter)
		if series.Name != "" {
			p.Legend.Add(series.Name, scatter)
		}
	}
	applyLabelTicks(&p.X, payload.X)
	return nil
}

func drawBars(p *plot.Plot, payload *Payload) error {
	horizontal := strings.EqualFold(payload.Orientation, "horizontal")
	var previous *plotter.BarChart
	for i, series := range payload.Series {
		bars, err := plotter.NewBarChart(plotter.Values(series.Values), barWidth)
		if err != nil {
			return err
		}
		bars.Color = plotutil.Color(i)
		bars.Horizontal = horizontal
		if previous != nil {
			if payload.Stacked {
				bars.StackOn(previous)
			} else {
				bars.Offset = previous.Offset + barWidth
			}
		}
		p.Add(bars)
		if series.Name != "" {
			p.Legend.Add(series.Name, bars)
		}
		previous = bars
	}
	if horizontal {
		p.NominalY(payload.X...)
	} else {
		p.NominalX(payload.X...)
	}
	return nil
}

func drawHistogram(p *plot.Plot, payload *Payload) error {
	hist, err := plotter.NewHist(plotter.Values(payload.Series[0].Values), 20)
	if err != nil {
		return err
	}
	p.Add(hist)
	return nil
}

func drawBoxes(p *plot.Plot, payload *Payload) error {
	for i, series := range payload.Series {
		box, err := plotter.NewBoxPlot(boxWidth, float64(i), plotter.Values(series.Values))
		if err != nil {
			return err
		}
		p.Add(box)
	}
	p.NominalX(payload.X...)
	return nil
}

func drawHeatmap(p *plot.Plot, payload *Payload) error {
	grid := &heatGrid{payload: payload}
	heat := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	p.Add(heat)
	applyLabelTicks(&p.X, payload.X)
	names := make([]string, 0, len(payload.Series))
	for _, series := range payload.Series {
		names = append(names, series.Name)
	}
	applyLabelTicks(&p.Y, names)
	return nil
}

// heatGrid adapts a payload to plotter.GridXYZ: columns follow x,
// rows follow the per-y-category series.
type heatGrid struct {
	payload *Payload
}

func (g *heatGrid) Dims() (int, int) {
	return len(g.payload.X), len(g.payload.Series)
}

func (g *heatGrid) Z(c, r int) float64 {
	return g.payload.Series[r].Values[c]
}

func (g *heatGrid) X(c int) float64 { return float64(c) }
func (g *heatGrid) Y(r int) float64 { return float64(r) }

func indexedXYs(values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i] = plotter.XY{X: float64(i), Y: v}
	}
	return xys
}

// applyLabelTicks pins categorical labels onto a numeric axis, thinning
// them so long series stay readable.
func applyLabelTicks(axis *plot.Axis, labels []string) {
	const maxTicks = 8
	step := 1
	if len(labels) > maxTicks {
		step = (len(labels) + maxTicks - 1) / maxTicks
	}
	ticks := make([]plot.Tick, 0, len(labels))
	for i, label := range labels {
		tick := plot.Tick{Value: float64(i)}
		if i%step == 0 || i == len(labels)-1 {
			tick.Label = label
		}
		ticks = append(ticks, tick)
	}
	axis.Tick.Marker = plot.ConstantTicks(ticks)
}
