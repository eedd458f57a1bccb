// Package explore drives a survey: a sensor turning in place on the grid,
// fusing one reading per step into the belief and reporting the resulting map
// entropy.
//
// ExpectedEntropy answers "what would the entropy be after looking there"
// by Monte Carlo over the current belief. It works on clones and never
// changes the grid it is given.
package explore
