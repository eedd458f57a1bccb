package explore

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/radiation.explorer/internal/belief"
)

func firstRow(row, _ int) bool { return row == 0 }

func TestExpectedEntropy_DoesNotMutateGrid(t *testing.T) {
	t.Parallel()

	g, err := belief.NewGrid(4, 4, 2)
	require.NoError(t, err)
	before := g.Rates()

	h, err := ExpectedEntropy(g, firstRow, 200, rand.NewPCG(3, 4))
	require.NoError(t, err)
	assert.False(t, math.IsNaN(h) || math.IsInf(h, 0))
	assert.Equal(t, before, g.Rates())
}

func TestExpectedEntropy_DeterministicPerSeed(t *testing.T) {
	t.Parallel()

	g, err := belief.NewGrid(4, 4, 2)
	require.NoError(t, err)

	a, err := ExpectedEntropy(g, firstRow, 100, rand.NewPCG(9, 9))
	require.NoError(t, err)
	b, err := ExpectedEntropy(g, firstRow, 100, rand.NewPCG(9, 9))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExpectedEntropy_RejectedSamplesKeepCurrentEntropy(t *testing.T) {
	t.Parallel()

	// The belief has all its mass in view, so every sample with two or more
	// sources exceeds k=1 and is rejected. With k=1 on a 1x2 grid the mean
	// must stay between the best and worst outcomes.
	g, err := belief.NewGrid(1, 2, 1)
	require.NoError(t, err)
	view := func(_, col int) bool { return col == 0 }

	current := g.Entropy()
	zero := g.Clone()
	_, err = zero.Update(belief.StaticSensor{View: view, Count: 0})
	require.NoError(t, err)
	one := g.Clone()
	_, err = one.Update(belief.StaticSensor{View: view, Count: 1})
	require.NoError(t, err)

	mean, std, err := ExpectedEntropyStdDev(g, view, 500, rand.NewPCG(5, 6))
	require.NoError(t, err)
	lo := math.Min(current, math.Min(zero.Entropy(), one.Entropy()))
	hi := math.Max(current, math.Max(zero.Entropy(), one.Entropy()))
	assert.GreaterOrEqual(t, mean, lo-1e-12)
	assert.LessOrEqual(t, mean, hi+1e-12)
	assert.GreaterOrEqual(t, std, 0.0)
}

func TestExpectedEntropy_Errors(t *testing.T) {
	t.Parallel()

	g, err := belief.NewGrid(3, 3, 1)
	require.NoError(t, err)

	_, err = ExpectedEntropy(g, firstRow, 0, rand.NewPCG(1, 1))
	assert.ErrorIs(t, err, ErrNoIterations)

	_, err = ExpectedEntropy(g, func(int, int) bool { return true }, 10, rand.NewPCG(1, 1))
	var degenerate *belief.DegenerateViewError
	assert.True(t, errors.As(err, &degenerate), "got %v", err)
}
