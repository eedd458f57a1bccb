package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/radiation.explorer/internal/belief"
	"github.com/banshee-data/radiation.explorer/internal/explore"
	"github.com/banshee-data/radiation.explorer/internal/fsutil"
	"github.com/banshee-data/radiation.explorer/internal/sensor"
)

// beliefXYZ adapts a grid to plotter.GridXYZ. Columns of the plot are grid
// rows so that plot X matches the sensor X coordinate.
type beliefXYZ struct {
	g *belief.Grid
}

func (b beliefXYZ) Dims() (c, r int)   { return b.g.Rows(), b.g.Cols() }
func (b beliefXYZ) Z(c, r int) float64 { return b.g.At(c, r) }
func (b beliefXYZ) X(c int) float64    { return float64(c) + 0.5 }
func (b beliefXYZ) Y(r int) float64    { return float64(r) + 0.5 }

// BeliefPlot builds a heatmap of the belief with the sensor pose and the
// ground-truth sources overlaid. pose and sources may be nil.
func BeliefPlot(g *belief.Grid, pose *sensor.Pose, sources []belief.Cell, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (row)"
	p.Y.Label.Text = "Y (col)"

	hm := plotter.NewHeatMap(beliefXYZ{g: g}, palette.Heat(12, 1))
	if hm.Max == hm.Min {
		// A flat belief (the prior) would otherwise divide by zero.
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	if len(sources) > 0 {
		pts := make(plotter.XYs, len(sources))
		for i, s := range sources {
			pts[i] = plotter.XY{X: float64(s.Row) + 0.5, Y: float64(s.Col) + 0.5}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create source scatter: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Color = color.RGBA{R: 30, G: 144, B: 255, A: 255}
		sc.GlyphStyle.Radius = vg.Points(5)
		p.Add(sc)
		p.Legend.Add("sources", sc)
	}

	if pose != nil {
		heading := plotter.XYs{
			{X: pose.X, Y: pose.Y},
			{X: pose.X + 0.8*math.Cos(pose.Angle), Y: pose.Y + 0.8*math.Sin(pose.Angle)},
		}
		line, err := plotter.NewLine(heading)
		if err != nil {
			return nil, fmt.Errorf("failed to create heading line: %w", err)
		}
		line.Width = vg.Points(2)
		line.Color = color.Black
		p.Add(line)
		p.Legend.Add("sensor", line)
	}

	p.X.Min, p.X.Max = 0, float64(g.Rows())
	p.Y.Min, p.Y.Max = 0, float64(g.Cols())
	return p, nil
}

// savePNG renders p at the given size into path on fsys.
func savePNG(fsys fsutil.FileSystem, path string, p *plot.Plot, w, h vg.Length) error {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return err
	}
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteBeliefPNG saves BeliefPlot to path.
func WriteBeliefPNG(fsys fsutil.FileSystem, path string, g *belief.Grid, pose *sensor.Pose, sources []belief.Cell, title string) error {
	p, err := BeliefPlot(g, pose, sources, title)
	if err != nil {
		return err
	}
	if err := savePNG(fsys, path, p, 6*vg.Inch, 6*vg.Inch); err != nil {
		return fmt.Errorf("failed to save belief plot: %w", err)
	}
	return nil
}

// EntropyPlot builds a line plot of entropy per step, with the predicted
// entropy as a dashed line where it was computed.
func EntropyPlot(results []explore.StepResult) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Map entropy"
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Entropy (nats)"

	actual := make(plotter.XYs, 0, len(results))
	predicted := make(plotter.XYs, 0, len(results))
	for _, r := range results {
		actual = append(actual, plotter.XY{X: float64(r.Step), Y: r.Entropy})
		if !math.IsNaN(r.ExpectedEntropy) {
			predicted = append(predicted, plotter.XY{X: float64(r.Step), Y: r.ExpectedEntropy})
		}
	}
	if len(actual) == 0 {
		return p, nil
	}

	line, err := plotter.NewLine(actual)
	if err != nil {
		return nil, fmt.Errorf("failed to create entropy line: %w", err)
	}
	line.Width = vg.Points(1.5)
	line.Color = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	p.Add(line)
	p.Legend.Add("entropy", line)

	if len(predicted) > 0 {
		pl, err := plotter.NewLine(predicted)
		if err != nil {
			return nil, fmt.Errorf("failed to create expected entropy line: %w", err)
		}
		pl.Width = vg.Points(1)
		pl.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		pl.Color = color.RGBA{R: 30, G: 30, B: 200, A: 255}
		p.Add(pl)
		p.Legend.Add("expected", pl)
	}
	p.Legend.Top = true
	return p, nil
}

// WriteEntropyPNG saves EntropyPlot to path.
func WriteEntropyPNG(fsys fsutil.FileSystem, path string, results []explore.StepResult) error {
	p, err := EntropyPlot(results)
	if err != nil {
		return err
	}
	if err := savePNG(fsys, path, p, 10*vg.Inch, 5*vg.Inch); err != nil {
		return fmt.Errorf("failed to save entropy plot: %w", err)
	}
	return nil
}
