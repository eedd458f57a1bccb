package belief

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/radiation.explorer/internal/monitoring"
)

// FusionWeight is the weight kept by the old belief when a measurement is
// fused in; the update array gets 1-FusionWeight. Downstream entropy
// expectations depend on this exact constant.
const FusionWeight = 0.5

// Sensor is the collaborator consumed by Update.
type Sensor interface {
	// InView reports whether cell (row, col) is inside the sensor's current
	// field of view. It must be callable for every cell and free of side
	// effects.
	InView(row, col int) bool

	// Sense returns the number of sources the sensor currently reports. It
	// may be stochastic and is called exactly once per Update.
	Sense() float64
}

// ViewFunc adapts a plain predicate to the InView half of a Sensor.
type ViewFunc func(row, col int) bool

// StaticSensor is a Sensor with a fixed view and a fixed reading. Simulation
// and tests use it to replay a measurement against a grid.
type StaticSensor struct {
	View  ViewFunc
	Count float64
}

// InView implements Sensor.
func (s StaticSensor) InView(row, col int) bool { return s.View(row, col) }

// Sense implements Sensor.
func (s StaticSensor) Sense() float64 { return s.Count }

// Cell addresses one grid cell.
type Cell struct {
	Row int
	Col int
}

// Grid is a rows×cols matrix of Poisson rates, one per cell, plus the fixed
// total number of sources k believed to exist on the grid.
type Grid struct {
	rows   int
	cols   int
	k      float64
	belief *mat.Dense
}

// NewGrid creates a grid with a uniform prior of k/(rows*cols) in every cell.
func NewGrid(rows, cols int, k float64) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, rows, cols)
	}
	if !(k > 0) || math.IsInf(k, 0) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidSourceCount, k)
	}

	prior := k / float64(rows*cols)
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = prior
	}
	return &Grid{
		rows:   rows,
		cols:   cols,
		k:      k,
		belief: mat.NewDense(rows, cols, data),
	}, nil
}

// Rows returns the number of grid rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of grid columns.
func (g *Grid) Cols() int { return g.cols }

// NumCells returns rows*cols.
func (g *Grid) NumCells() int { return g.rows * g.cols }

// NumSources returns k, the total source count the grid was built with.
func (g *Grid) NumSources() float64 { return g.k }

// At returns the rate of one cell.
func (g *Grid) At(row, col int) float64 { return g.belief.At(row, col) }

// Belief returns a copy of the rate matrix.
func (g *Grid) Belief() *mat.Dense { return mat.DenseCopyOf(g.belief) }

// Rates returns the rates in row-major order as a fresh slice.
func (g *Grid) Rates() []float64 {
	out := make([]float64, 0, g.rows*g.cols)
	for r := 0; r < g.rows; r++ {
		out = append(out, g.belief.RawRowView(r)...)
	}
	return out
}

// Sum returns the total expected source count across the grid. It equals k
// at construction but drifts as updates are fused in.
func (g *Grid) Sum() float64 { return floats.Sum(g.Rates()) }

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	return &Grid{
		rows:   g.rows,
		cols:   g.cols,
		k:      g.k,
		belief: mat.DenseCopyOf(g.belief),
	}
}

// Update fuses one sensor reading into the belief.
//
// The reading m says "m sources somewhere in view", spread uniformly over the
// in-view cells; the remaining k-m sources are spread uniformly over the
// cells outside the view. The result is blended 50/50 with the old belief.
//
// A reading above k (or a negative or non-finite reading) is rejected: the
// grid is unchanged and the returned error satisfies IsRejected. A view
// covering no cells or every cell returns a *DegenerateViewError, also
// without touching the grid.
func (g *Grid) Update(s Sensor) (bool, error) {
	m := s.Sense()
	if m < 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		monitoring.Debugf("belief: invalid measurement %g, did not update", m)
		return false, &InvalidMeasurementError{Measurement: m}
	}
	if m > g.k {
		monitoring.Debugf("belief: measured %g sources (k=%g), did not update", m, g.k)
		return false, &MeasurementExceedsTotalError{Measurement: m, Total: g.k}
	}

	n := g.rows * g.cols
	mask := make([]bool, n)
	inView := 0
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			if s.InView(r, c) {
				mask[r*g.cols+c] = true
				inView++
			}
		}
	}
	if inView == 0 || inView == n {
		return false, &DegenerateViewError{InView: inView, Total: n}
	}

	inRate := m / float64(inView)
	outRate := (g.k - m) / float64(n-inView)
	update := mat.NewDense(g.rows, g.cols, nil)
	update.Apply(func(r, c int, _ float64) float64 {
		if mask[r*g.cols+c] {
			return inRate
		}
		return outRate
	}, update)

	update.Scale(1-FusionWeight, update)
	g.belief.Scale(FusionWeight, g.belief)
	g.belief.Add(g.belief, update)
	return true, nil
}

// Validate checks the grid invariant: every rate finite and non-negative.
func (g *Grid) Validate() error {
	for r := 0; r < g.rows; r++ {
		for c, v := range g.belief.RawRowView(r) {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("cell (%d,%d): %w", r, c, &InvalidRateError{Rate: v})
			}
		}
	}
	return nil
}
