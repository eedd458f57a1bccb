// Package sensor provides the reference wedge-shaped field-of-view sensor
// and ground-truth source placement used to drive a belief grid.
//
// Poses live in grid units: cell (i, j) has its centre at (i+0.5, j+0.5), X
// runs along rows and Y along columns. Only bearings matter; the grid has no
// physical length scale, so the sensor has unlimited range.
package sensor
