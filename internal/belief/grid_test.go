package belief

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// viewOf returns a predicate that is true only for the listed cells.
func viewOf(cells ...Cell) ViewFunc {
	set := make(map[Cell]bool, len(cells))
	for _, c := range cells {
		set[c] = true
	}
	return func(row, col int) bool { return set[Cell{Row: row, Col: col}] }
}

func viewAll(int, int) bool  { return true }
func viewNone(int, int) bool { return false }

// countingSensor records how often Sense is called.
type countingSensor struct {
	StaticSensor
	senses int
}

func (s *countingSensor) Sense() float64 {
	s.senses++
	return s.Count
}

func mustGrid(t *testing.T, rows, cols int, k float64) *Grid {
	t.Helper()
	g, err := NewGrid(rows, cols, k)
	require.NoError(t, err)
	return g
}

func TestNewGrid_UniformPrior(t *testing.T) {
	t.Parallel()

	g := mustGrid(t, 4, 5, 3)
	assert.Equal(t, 4, g.Rows())
	assert.Equal(t, 5, g.Cols())
	assert.Equal(t, 20, g.NumCells())
	assert.Equal(t, 3.0, g.NumSources())

	for r := 0; r < 4; r++ {
		for c := 0; c < 5; c++ {
			assert.InDelta(t, 3.0/20.0, g.At(r, c), 1e-15, "cell (%d,%d)", r, c)
		}
	}
	assert.InDelta(t, 3.0, g.Sum(), 1e-12)
	assert.NoError(t, g.Validate())
}

func TestNewGrid_InvalidArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		rows, cols int
		k          float64
		want       error
	}{
		{"zero rows", 0, 3, 1, ErrInvalidDimensions},
		{"negative cols", 3, -1, 1, ErrInvalidDimensions},
		{"zero sources", 3, 3, 0, ErrInvalidSourceCount},
		{"negative sources", 3, 3, -2, ErrInvalidSourceCount},
		{"NaN sources", 3, 3, math.NaN(), ErrInvalidSourceCount},
		{"infinite sources", 3, 3, math.Inf(1), ErrInvalidSourceCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGrid(tt.rows, tt.cols, tt.k)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdate_SingleCellView(t *testing.T) {
	t.Parallel()

	g := mustGrid(t, 3, 3, 1)
	ok, err := g.Update(StaticSensor{View: viewOf(Cell{1, 1}), Count: 1})
	require.NoError(t, err)
	require.True(t, ok)

	centre := 0.5*(1.0/9.0) + 0.5*1.0
	other := 0.5 * (1.0 / 9.0)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			want := other
			if r == 1 && c == 1 {
				want = centre
			}
			assert.InDelta(t, want, g.At(r, c), 1e-15, "cell (%d,%d)", r, c)
		}
	}
	assert.InDelta(t, 0.5556, g.At(1, 1), 1e-4)
	assert.InDelta(t, 0.0556, g.At(0, 0), 1e-4)

	h := g.Entropy()
	assert.False(t, math.IsNaN(h) || math.IsInf(h, 0), "entropy must be finite, got %v", h)
	assert.InDelta(t, PoissonEntropy(centre)+8*PoissonEntropy(other), h, 1e-12)
}

func TestUpdate_RejectsMeasurementAboveTotal(t *testing.T) {
	t.Parallel()

	g := mustGrid(t, 3, 3, 1)
	// Move away from the prior first so the comparison is not trivial.
	_, err := g.Update(StaticSensor{View: viewOf(Cell{0, 0}, Cell{0, 1}), Count: 1})
	require.NoError(t, err)
	before := g.Belief()

	s := &countingSensor{StaticSensor: StaticSensor{View: viewOf(Cell{1, 1}), Count: 2}}
	ok, err := g.Update(s)
	assert.False(t, ok)
	assert.Equal(t, 1, s.senses)

	var exceeds *MeasurementExceedsTotalError
	require.True(t, errors.As(err, &exceeds), "got %v", err)
	assert.Equal(t, 2.0, exceeds.Measurement)
	assert.Equal(t, 1.0, exceeds.Total)
	assert.True(t, IsRejected(err))

	assert.True(t, mat.Equal(before, g.Belief()), "belief changed on rejected update")
}

func TestUpdate_InvalidMeasurement(t *testing.T) {
	t.Parallel()

	for _, m := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		g := mustGrid(t, 2, 2, 1)
		before := g.Belief()

		ok, err := g.Update(StaticSensor{View: viewOf(Cell{0, 0}), Count: m})
		assert.False(t, ok)

		var invalid *InvalidMeasurementError
		assert.True(t, errors.As(err, &invalid), "measurement %v: got %v", m, err)
		assert.True(t, IsRejected(err))
		assert.True(t, mat.Equal(before, g.Belief()))
	}
}

func TestUpdate_DegenerateView(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		view   ViewFunc
		inView int
	}{
		{"all cells", viewAll, 9},
		{"no cells", viewNone, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustGrid(t, 3, 3, 1)
			before := g.Belief()

			ok, err := g.Update(StaticSensor{View: tt.view, Count: 1})
			assert.False(t, ok)

			var degenerate *DegenerateViewError
			require.True(t, errors.As(err, &degenerate), "got %v", err)
			assert.Equal(t, tt.inView, degenerate.InView)
			assert.Equal(t, 9, degenerate.Total)
			assert.False(t, IsRejected(err))
			assert.True(t, mat.Equal(before, g.Belief()))
		})
	}
}

func TestUpdate_CallsSenseOnce(t *testing.T) {
	t.Parallel()

	g := mustGrid(t, 3, 3, 2)
	s := &countingSensor{StaticSensor: StaticSensor{View: viewOf(Cell{2, 2}), Count: 1}}
	_, err := g.Update(s)
	require.NoError(t, err)
	assert.Equal(t, 1, s.senses)
}

func TestUpdate_Convexity(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	const rows, cols, k = 6, 7, 3.0
	g := mustGrid(t, rows, cols, k)

	for step := 0; step < 200; step++ {
		inView := make(map[Cell]bool)
		for len(inView) == 0 || len(inView) == rows*cols {
			inView = make(map[Cell]bool)
			for r := 0; r < rows; r++ {
				for c := 0; c < cols; c++ {
					if rng.Float64() < 0.3 {
						inView[Cell{r, c}] = true
					}
				}
			}
		}
		m := float64(rng.IntN(int(k) + 1))
		view := func(r, c int) bool { return inView[Cell{r, c}] }

		old := g.Belief()
		ok, err := g.Update(StaticSensor{View: view, Count: m})
		require.NoError(t, err)
		require.True(t, ok)

		n := len(inView)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				upd := (k - m) / float64(rows*cols-n)
				if inView[Cell{r, c}] {
					upd = m / float64(n)
				}
				lo := math.Min(old.At(r, c), upd)
				hi := math.Max(old.At(r, c), upd)
				got := g.At(r, c)
				assert.True(t, got >= lo && got <= hi,
					"step %d cell (%d,%d): %v outside [%v, %v]", step, r, c, got, lo, hi)
			}
		}
		require.NoError(t, g.Validate())
	}
}

func TestUpdate_FullMeasurementDrainsOutsideView(t *testing.T) {
	t.Parallel()

	g := mustGrid(t, 4, 4, 2)
	view := viewOf(Cell{0, 0}, Cell{0, 1})
	for i := 0; i < 60; i++ {
		ok, err := g.Update(StaticSensor{View: view, Count: 2})
		require.NoError(t, err)
		require.True(t, ok)
	}

	assert.InDelta(t, 1.0, g.At(0, 0), 1e-9)
	assert.InDelta(t, 1.0, g.At(0, 1), 1e-9)
	assert.GreaterOrEqual(t, g.At(3, 3), 0.0)
	assert.Less(t, g.At(3, 3), 1e-9)
	assert.NoError(t, g.Validate())

	h := g.Entropy()
	assert.False(t, math.IsNaN(h) || math.IsInf(h, 0))
}

func TestUpdate_KeepsTotalMass(t *testing.T) {
	t.Parallel()

	// Every update array sums to k, so the blend keeps the total at k.
	g := mustGrid(t, 5, 5, 3)
	views := []ViewFunc{
		viewOf(Cell{0, 0}),
		viewOf(Cell{1, 1}, Cell{1, 2}, Cell{2, 2}),
		func(r, c int) bool { return r < 2 },
	}
	for i, v := range views {
		_, err := g.Update(StaticSensor{View: v, Count: float64(i)})
		require.NoError(t, err)
		assert.InDelta(t, 3.0, g.Sum(), 1e-12)
	}
}

func TestClone_Independent(t *testing.T) {
	t.Parallel()

	g := mustGrid(t, 3, 3, 1)
	clone := g.Clone()

	_, err := clone.Update(StaticSensor{View: viewOf(Cell{0, 0}), Count: 1})
	require.NoError(t, err)

	assert.InDelta(t, 1.0/9.0, g.At(0, 0), 1e-15, "original mutated through clone")
	assert.NotEqual(t, g.At(0, 0), clone.At(0, 0))
	assert.Equal(t, g.NumSources(), clone.NumSources())
}

func TestBelief_ReturnsCopy(t *testing.T) {
	t.Parallel()

	g := mustGrid(t, 2, 2, 1)
	b := g.Belief()
	b.Set(0, 0, 42)
	assert.InDelta(t, 0.25, g.At(0, 0), 1e-15)

	rates := g.Rates()
	rates[1] = -1
	assert.NoError(t, g.Validate())
}
