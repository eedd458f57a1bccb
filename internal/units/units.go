// Package units provides shared constants and validation for angle units
package units

import "math"

// Unit constants
const (
	Degrees = "deg"
	Radians = "rad"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Degrees, Radians}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "deg, rad"
}

// ToRadians converts an angle given in unit to radians.
// Unknown units are treated as radians.
func ToRadians(angle float64, unit string) float64 {
	switch unit {
	case Degrees:
		return angle * math.Pi / 180.0
	default:
		return angle
	}
}

// FromRadians converts an angle in radians to the target unit.
func FromRadians(rad float64, unit string) float64 {
	switch unit {
	case Degrees:
		return rad * 180.0 / math.Pi
	default:
		return rad
	}
}

// WrapAngle maps an angle in radians into (-pi, pi].
func WrapAngle(rad float64) float64 {
	w := math.Mod(rad, 2*math.Pi)
	if w <= -math.Pi {
		w += 2 * math.Pi
	} else if w > math.Pi {
		w -= 2 * math.Pi
	}
	return w
}
