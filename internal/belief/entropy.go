package belief

import "math"

const (
	// rateEpsilon is the rate at or below which a cell is treated as holding
	// no sources and contributes zero entropy. ln(rate) is singular at 0.
	rateEpsilon = 1e-12

	// maxCorrectionTerms caps the series index in PoissonEntropy.
	maxCorrectionTerms = 6
)

// Entropy returns the map entropy in nats: the sum of per-cell Poisson
// entropies. It does not modify the grid.
func (g *Grid) Entropy() float64 {
	var total float64
	for r := 0; r < g.rows; r++ {
		for _, rate := range g.belief.RawRowView(r) {
			total += PoissonEntropy(rate)
		}
	}
	return total
}

// PoissonEntropy approximates the entropy in nats of a Poisson variable with
// the given rate, using
//
//	rate*(1 - ln rate) + exp(-rate) * sum_{i=2}^{n} rate^i ln(i!) / i!
//
// with n = min(6, 2*round(rate)). round is math.Round (half away from zero),
// so rates 0.5, 1.5 and 2.5 use 2, 4 and 6 correction terms.
//
// The truncated series loses accuracy as the rate grows (past roughly 4.7 the
// value drifts below zero) but stays finite for any finite rate. Rates at or
// below 1e-12 return exactly 0. A negative or non-finite rate panics with
// *InvalidRateError.
func PoissonEntropy(rate float64) float64 {
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		panic(&InvalidRateError{Rate: rate})
	}
	if rate <= rateEpsilon {
		return 0
	}

	entropy := rate * (1.0 - math.Log(rate))

	// exp(-rate) is folded into the running power so that large rates
	// underflow to zero instead of producing 0*Inf.
	term := rate * math.Exp(-rate)
	fact := 1.0
	var extra float64
	for i := 2; i <= correctionTerms(rate); i++ {
		term *= rate
		fact *= float64(i)
		extra += term * math.Log(fact) / fact
	}
	return entropy + extra
}

// correctionTerms returns the highest series index used for rate.
func correctionTerms(rate float64) int {
	n := 2 * math.Round(rate)
	if n > maxCorrectionTerms {
		return maxCorrectionTerms
	}
	return int(n)
}
