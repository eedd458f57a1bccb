package belief

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// SampleSources draws one source layout from the belief. The rates define a
// non-homogeneous Poisson process, so each cell independently receives a
// Poisson(rate) number of sources. A cell appears once per source it holds.
// The number of sources returned is not bounded by k.
func (g *Grid) SampleSources(src rand.Source) []Cell {
	var out []Cell
	for r := 0; r < g.rows; r++ {
		for c, rate := range g.belief.RawRowView(r) {
			if rate <= rateEpsilon {
				continue
			}
			n := int(distuv.Poisson{Lambda: rate, Src: src}.Rand())
			for ; n > 0; n-- {
				out = append(out, Cell{Row: r, Col: c})
			}
		}
	}
	return out
}

// CountInView returns how many of the given sources fall inside view.
func CountInView(sources []Cell, view ViewFunc) int {
	n := 0
	for _, s := range sources {
		if view(s.Row, s.Col) {
			n++
		}
	}
	return n
}
