package belief

import (
	"errors"
	"fmt"
)

// ErrInvalidDimensions is returned by NewGrid for non-positive grid sizes.
var ErrInvalidDimensions = errors.New("grid dimensions must be positive")

// ErrInvalidSourceCount is returned by NewGrid when k is not a positive,
// finite number.
var ErrInvalidSourceCount = errors.New("source count must be positive and finite")

// MeasurementExceedsTotalError reports a measurement larger than the total
// source count. The update is rejected and the grid is left untouched; the
// grid remains usable.
type MeasurementExceedsTotalError struct {
	Measurement float64
	Total       float64
}

func (e *MeasurementExceedsTotalError) Error() string {
	return fmt.Sprintf("measured %g sources but only %g exist; update rejected", e.Measurement, e.Total)
}

// InvalidMeasurementError reports a negative or non-finite measurement.
type InvalidMeasurementError struct {
	Measurement float64
}

func (e *InvalidMeasurementError) Error() string {
	return fmt.Sprintf("invalid measurement %g: must be finite and non-negative", e.Measurement)
}

// DegenerateViewError reports a field of view that covers no cells or every
// cell. The update rule cannot split mass between the in-view and
// out-of-view sets in either case, so this is a caller contract violation.
type DegenerateViewError struct {
	InView int
	Total  int
}

func (e *DegenerateViewError) Error() string {
	if e.InView == 0 {
		return fmt.Sprintf("degenerate view: no cells in view (grid has %d cells)", e.Total)
	}
	return fmt.Sprintf("degenerate view: all %d cells in view", e.Total)
}

// InvalidRateError reports a negative or non-finite rate reaching the entropy
// computation. It means the grid invariant was broken upstream and is raised
// as a panic, never returned.
type InvalidRateError struct {
	Rate float64
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("invalid Poisson rate %g", e.Rate)
}

// IsRejected reports whether err is a recoverable measurement rejection, as
// opposed to a contract violation the caller must fix.
func IsRejected(err error) bool {
	var exceeds *MeasurementExceedsTotalError
	var invalid *InvalidMeasurementError
	return errors.As(err, &exceeds) || errors.As(err, &invalid)
}
