package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/radiation.explorer/internal/belief"
	"github.com/banshee-data/radiation.explorer/internal/explore"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// BeliefChart renders the belief as a coloured scatter, one square per cell.
func BeliefChart(g *belief.Grid, title string) *charts.Scatter {
	data := make([]opts.ScatterData, 0, g.NumCells())
	maxRate := 0.0
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			v := g.At(r, c)
			maxRate = math.Max(maxRate, v)
			data = append(data, opts.ScatterData{Value: []interface{}{float64(r) + 0.5, float64(c) + 0.5, v}})
		}
	}
	if maxRate == 0 {
		maxRate = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Belief", Width: "700px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("grid=%dx%d k=%g entropy=%.4f", g.Rows(), g.Cols(), g.NumSources(), g.Entropy())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: g.Rows(), Name: "X (row)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: g.Cols(), Name: "Y (col)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxRate),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("belief", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 600 / max(g.Rows(), g.Cols())}))
	return scatter
}

// EntropyChart renders entropy per step, plus the predicted entropy when the
// results carry one.
func EntropyChart(results []explore.StepResult) *charts.Line {
	steps := make([]string, len(results))
	actual := make([]opts.LineData, len(results))
	predicted := make([]opts.LineData, len(results))
	hasPrediction := false
	for i, r := range results {
		steps[i] = strconv.Itoa(r.Step)
		actual[i] = opts.LineData{Value: r.Entropy}
		if math.IsNaN(r.ExpectedEntropy) {
			predicted[i] = opts.LineData{Value: "-"}
			continue
		}
		hasPrediction = true
		predicted[i] = opts.LineData{Value: r.ExpectedEntropy}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Entropy", Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Map entropy", Subtitle: fmt.Sprintf("steps=%d", len(results))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Step"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "nats"}),
	)
	line.SetXAxis(steps).AddSeries("entropy", actual)
	if hasPrediction {
		line.AddSeries("expected", predicted)
	}
	return line
}

// RenderHTML writes a page with the final belief and the entropy trace.
func RenderHTML(w io.Writer, g *belief.Grid, results []explore.StepResult) error {
	page := components.NewPage()
	page.PageTitle = "Exploration report"
	page.AddCharts(BeliefChart(g, "Final belief"), EntropyChart(results))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}
