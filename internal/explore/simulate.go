package explore

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/radiation.explorer/internal/belief"
)

// ErrNoIterations is returned by ExpectedEntropy when iters is not positive.
var ErrNoIterations = errors.New("expected entropy needs at least one iteration")

// ExpectedEntropy estimates the map entropy after one measurement taken with
// the given view. Each iteration samples a source layout from the belief,
// counts the sampled sources in view, fuses that count into a clone of the
// grid and records the clone's entropy. Samples holding more than k sources
// in view are rejected by the update, so they contribute the current entropy.
// The input grid is never modified.
func ExpectedEntropy(g *belief.Grid, view belief.ViewFunc, iters int, src rand.Source) (float64, error) {
	mean, _, err := ExpectedEntropyStdDev(g, view, iters, src)
	return mean, err
}

// ExpectedEntropyStdDev is ExpectedEntropy plus the sample standard deviation
// across iterations. The deviation is NaN for a single iteration.
func ExpectedEntropyStdDev(g *belief.Grid, view belief.ViewFunc, iters int, src rand.Source) (mean, std float64, err error) {
	if iters <= 0 {
		return 0, 0, ErrNoIterations
	}

	current := g.Entropy()
	entropies := make([]float64, iters)
	for i := range entropies {
		sources := g.SampleSources(src)
		m := belief.CountInView(sources, view)

		clone := g.Clone()
		_, err := clone.Update(belief.StaticSensor{View: view, Count: float64(m)})
		switch {
		case err == nil:
			entropies[i] = clone.Entropy()
		case belief.IsRejected(err):
			entropies[i] = current
		default:
			return 0, 0, fmt.Errorf("simulate iteration %d: %w", i, err)
		}
	}

	mean, std = stat.MeanStdDev(entropies, nil)
	return mean, std, nil
}
