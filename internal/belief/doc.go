// Package belief owns the belief grid: a per-cell Poisson rate estimate of
// how many sources sit in each cell of a 2D grid.
//
// Responsibilities: uniform prior construction, fusing count-only sensor
// measurements into the grid, Poisson entropy of the belief, sampling
// source layouts from the belief, and snapshot serialisation.
// Key types: Grid, Sensor, Cell, Snapshot.
//
// Cells are modelled as independent Poisson variables (a spatial Poisson
// process), so map entropy is the sum of per-cell entropies. The grid has
// no length scale; sensors only need to answer which cells they can see.
//
// A Grid is a plain value object and is not safe for concurrent mutation.
// Planners evaluating what-if measurements should work on Clone copies and
// only commit the chosen result.
package belief
