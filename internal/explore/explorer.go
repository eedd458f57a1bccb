package explore

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/banshee-data/radiation.explorer/internal/belief"
	"github.com/banshee-data/radiation.explorer/internal/config"
	"github.com/banshee-data/radiation.explorer/internal/monitoring"
	"github.com/banshee-data/radiation.explorer/internal/sensor"
	"github.com/banshee-data/radiation.explorer/internal/timeutil"
)

// Options configures an Explorer.
type Options struct {
	Pose        sensor.Pose
	FOV         float64 // radians
	AngularStep float64 // radians added to the heading before each reading
	MissProb    float64

	// Samples is the Monte Carlo iteration count used to predict each step's
	// entropy before the reading is fused. Zero disables the prediction.
	Samples int

	// Interval is the pause between consecutive steps in Run.
	Interval time.Duration

	Src   rand.Source
	Clock timeutil.Clock
}

// StepResult describes one survey step.
type StepResult struct {
	Step        int
	Pose        sensor.Pose
	Measurement float64
	Accepted    bool
	Entropy     float64

	// ExpectedEntropy is the predicted entropy for this step's view, or NaN
	// when prediction is disabled.
	ExpectedEntropy float64

	Rates []float64 // row-major belief after the step
	Time  time.Time
}

// Observer is called after every step of Run. A non-nil error stops the run.
type Observer func(StepResult) error

// Explorer runs a survey over a belief grid against ground-truth sources.
type Explorer struct {
	grid    *belief.Grid
	sources []belief.Cell
	opts    Options
	pose    sensor.Pose
	step    int
}

// New creates an Explorer. The grid is owned by the explorer from here on.
func New(grid *belief.Grid, sources []belief.Cell, opts Options) (*Explorer, error) {
	if grid == nil {
		return nil, fmt.Errorf("explorer needs a belief grid")
	}
	if opts.Src == nil {
		return nil, fmt.Errorf("explorer needs a random source")
	}
	if opts.Samples < 0 {
		return nil, fmt.Errorf("samples must be non-negative, got %d", opts.Samples)
	}
	if opts.Interval < 0 {
		return nil, fmt.Errorf("interval must be non-negative, got %s", opts.Interval)
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	probe := sensor.New(opts.Pose, opts.FOV, sources).WithMissProb(opts.MissProb, opts.Src)
	if err := probe.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sensor: %w", err)
	}

	return &Explorer{
		grid:    grid,
		sources: append([]belief.Cell(nil), sources...),
		opts:    opts,
		pose:    opts.Pose,
	}, nil
}

// NewFromConfig builds a survey from cfg: a uniform grid, sources placed at
// random from the configured seed and a sensor centred on the grid.
func NewFromConfig(cfg *config.ExplorerConfig, clock timeutil.Clock) (*Explorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	rows, cols, k := cfg.GetRows(), cfg.GetCols(), cfg.GetNumSources()
	grid, err := belief.NewGrid(rows, cols, float64(k))
	if err != nil {
		return nil, err
	}

	seed := cfg.GetSeed()
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	sources := sensor.RandomSources(rows, cols, k, src)
	monitoring.Debugf("explore: ground truth sources %v", sources)

	return New(grid, sources, Options{
		Pose:        sensor.CentredPose(rows, cols, cfg.GetInitialAngle()),
		FOV:         cfg.GetFieldOfView(),
		AngularStep: cfg.GetAngularStep(),
		MissProb:    cfg.GetMissProb(),
		Samples:     cfg.GetNumSamples(),
		Interval:    cfg.GetStepInterval(),
		Src:         src,
		Clock:       clock,
	})
}

// Grid returns a copy of the current belief.
func (e *Explorer) Grid() *belief.Grid { return e.grid.Clone() }

// Sources returns the ground-truth sources.
func (e *Explorer) Sources() []belief.Cell { return append([]belief.Cell(nil), e.sources...) }

// Pose returns the current sensor pose.
func (e *Explorer) Pose() sensor.Pose { return e.pose }

// Steps returns the number of completed steps.
func (e *Explorer) Steps() int { return e.step }

// Step turns the sensor by the angular step, takes one reading and fuses it.
// A rejected reading is logged and reported with Accepted false. A degenerate
// view is returned as an error and the step is not counted.
func (e *Explorer) Step() (StepResult, error) {
	pose := e.pose.Rotate(e.opts.AngularStep)
	s := sensor.New(pose, e.opts.FOV, e.sources).WithMissProb(e.opts.MissProb, e.opts.Src)

	expected := math.NaN()
	if e.opts.Samples > 0 {
		var err error
		expected, err = ExpectedEntropy(e.grid, s.View(), e.opts.Samples, e.opts.Src)
		if err != nil {
			return StepResult{}, fmt.Errorf("step %d at %s: %w", e.step+1, pose, err)
		}
	}

	// Sense once so the reading reported here is the one fused.
	m := s.Sense()
	accepted, err := e.grid.Update(belief.StaticSensor{View: s.View(), Count: m})
	if err != nil && !belief.IsRejected(err) {
		return StepResult{}, fmt.Errorf("step %d at %s: %w", e.step+1, pose, err)
	}
	if err != nil {
		monitoring.Logf("explore: step %d reading rejected: %v", e.step+1, err)
	}

	e.pose = pose
	e.step++
	return StepResult{
		Step:            e.step,
		Pose:            pose,
		Measurement:     m,
		Accepted:        accepted,
		Entropy:         e.grid.Entropy(),
		ExpectedEntropy: expected,
		Rates:           e.grid.Rates(),
		Time:            e.opts.Clock.Now(),
	}, nil
}

// Run performs steps survey steps, pausing Interval between them, and calls
// obs after each one. It stops early when ctx is done, when a step fails or
// when obs returns an error. The completed results are returned in all cases.
func (e *Explorer) Run(ctx context.Context, steps int, obs Observer) ([]StepResult, error) {
	results := make([]StepResult, 0, steps)
	for i := 0; i < steps; i++ {
		if i > 0 && e.opts.Interval > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-e.opts.Clock.After(e.opts.Interval):
			}
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := e.Step()
		if err != nil {
			return results, err
		}
		results = append(results, res)

		if obs != nil {
			if err := obs(res); err != nil {
				return results, fmt.Errorf("observer at step %d: %w", res.Step, err)
			}
		}
	}
	return results, nil
}
