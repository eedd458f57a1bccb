package sensor

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/radiation.explorer/internal/belief"
	"github.com/banshee-data/radiation.explorer/internal/units"
)

// Pose is a sensor position and heading on the grid. Angle is in radians.
type Pose struct {
	X     float64
	Y     float64
	Angle float64
}

// Rotate returns the pose turned by delta radians, with the heading wrapped
// into (-pi, pi].
func (p Pose) Rotate(delta float64) Pose {
	p.Angle = units.WrapAngle(p.Angle + delta)
	return p
}

// Cell returns the grid cell containing the pose.
func (p Pose) Cell() belief.Cell {
	return belief.Cell{Row: int(math.Floor(p.X)), Col: int(math.Floor(p.Y))}
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.1f°)", p.X, p.Y, units.FromRadians(p.Angle, units.Degrees))
}

// CentredPose returns a pose at the middle of a rows×cols grid.
func CentredPose(rows, cols int, angle float64) Pose {
	return Pose{X: 0.5 * float64(rows), Y: 0.5 * float64(cols), Angle: units.WrapAngle(angle)}
}

// FieldOfView is a wedge sensor: it sees every cell whose centre lies within
// FOV/2 of its heading, and counts the ground-truth sources in those cells.
type FieldOfView struct {
	Pose    Pose
	FOV     float64       // full wedge width in radians
	Sources []belief.Cell // ground truth

	// MissProb is the probability that an in-view source goes undetected.
	// Zero means every in-view source is counted.
	MissProb float64
	Src      rand.Source
}

// New creates a noiseless wedge sensor.
func New(pose Pose, fov float64, sources []belief.Cell) *FieldOfView {
	return &FieldOfView{Pose: pose, FOV: fov, Sources: sources}
}

// WithMissProb makes each in-view source go undetected with probability p,
// drawing from src.
func (s *FieldOfView) WithMissProb(p float64, src rand.Source) *FieldOfView {
	s.MissProb = p
	s.Src = src
	return s
}

// Validate checks the sensor parameters.
func (s *FieldOfView) Validate() error {
	if !(s.FOV > 0) || s.FOV > 2*math.Pi {
		return fmt.Errorf("FOV must be in (0, 2pi], got %f", s.FOV)
	}
	if s.MissProb < 0 || s.MissProb > 1 || math.IsNaN(s.MissProb) {
		return fmt.Errorf("MissProb must be in [0, 1], got %f", s.MissProb)
	}
	if s.MissProb > 0 && s.Src == nil {
		return fmt.Errorf("MissProb %f requires a random source", s.MissProb)
	}
	return nil
}

// InView implements belief.Sensor. The cell whose centre coincides with the
// pose has no bearing and is never in view.
func (s *FieldOfView) InView(row, col int) bool {
	dx := float64(row) + 0.5 - s.Pose.X
	dy := float64(col) + 0.5 - s.Pose.Y
	if math.Hypot(dx, dy) < 1e-9 {
		return false
	}
	bearing := math.Atan2(dy, dx)
	return math.Abs(units.WrapAngle(bearing-s.Pose.Angle)) <= 0.5*s.FOV
}

// View returns InView as a belief.ViewFunc.
func (s *FieldOfView) View() belief.ViewFunc { return s.InView }

// Sense implements belief.Sensor: the number of ground-truth sources in view,
// thinned by MissProb.
func (s *FieldOfView) Sense() float64 {
	var detect distuv.Bernoulli
	noisy := s.MissProb > 0
	if noisy {
		detect = distuv.Bernoulli{P: 1 - s.MissProb, Src: s.Src}
	}

	n := 0
	for _, src := range s.Sources {
		if !s.InView(src.Row, src.Col) {
			continue
		}
		if noisy && detect.Rand() == 0 {
			continue
		}
		n++
	}
	return float64(n)
}

// RandomSources places k sources uniformly at random on a rows×cols grid.
// Several sources may share a cell.
func RandomSources(rows, cols, k int, src rand.Source) []belief.Cell {
	rng := rand.New(src)
	out := make([]belief.Cell, k)
	for i := range out {
		out[i] = belief.Cell{Row: rng.IntN(rows), Col: rng.IntN(cols)}
	}
	return out
}
