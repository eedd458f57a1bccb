package explore

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/radiation.explorer/internal/belief"
	"github.com/banshee-data/radiation.explorer/internal/config"
	"github.com/banshee-data/radiation.explorer/internal/monitoring"
	"github.com/banshee-data/radiation.explorer/internal/sensor"
	"github.com/banshee-data/radiation.explorer/internal/timeutil"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newExplorer(t *testing.T, rows, cols int, k float64, sources []belief.Cell, opts Options) *Explorer {
	t.Helper()
	grid, err := belief.NewGrid(rows, cols, k)
	require.NoError(t, err)
	if opts.Src == nil {
		opts.Src = rand.NewPCG(1, 2)
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.NewMockClock(epoch)
	}
	e, err := New(grid, sources, opts)
	require.NoError(t, err)
	return e
}

func TestNew_RejectsBadOptions(t *testing.T) {
	t.Parallel()

	grid, err := belief.NewGrid(3, 3, 1)
	require.NoError(t, err)
	src := rand.NewPCG(1, 1)
	pose := sensor.CentredPose(3, 3, 0)

	tests := []struct {
		name string
		grid *belief.Grid
		opts Options
	}{
		{"nil grid", nil, Options{Pose: pose, FOV: 1, Src: src}},
		{"nil source", grid, Options{Pose: pose, FOV: 1}},
		{"zero fov", grid, Options{Pose: pose, FOV: 0, Src: src}},
		{"miss prob above one", grid, Options{Pose: pose, FOV: 1, MissProb: 2, Src: src}},
		{"negative samples", grid, Options{Pose: pose, FOV: 1, Samples: -1, Src: src}},
		{"negative interval", grid, Options{Pose: pose, FOV: 1, Interval: -time.Second, Src: src}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.grid, nil, tt.opts)
			assert.Nil(t, e)
			assert.Error(t, err)
		})
	}
}

func TestStep_RotatesAndFuses(t *testing.T) {
	t.Parallel()

	// Sensor at the centre of a 5x5 grid. Heading pi/2 with a 0.2pi wedge
	// sees cells (2,3) and (2,4).
	sources := []belief.Cell{{Row: 2, Col: 4}}
	e := newExplorer(t, 5, 5, 1, sources, Options{
		Pose:        sensor.CentredPose(5, 5, 0),
		FOV:         0.2 * math.Pi,
		AngularStep: math.Pi / 2,
	})

	res, err := e.Step()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Step)
	assert.InDelta(t, math.Pi/2, res.Pose.Angle, 1e-12)
	assert.Equal(t, 1.0, res.Measurement)
	assert.True(t, res.Accepted)
	assert.True(t, math.IsNaN(res.ExpectedEntropy), "prediction disabled")
	assert.Equal(t, epoch, res.Time)

	g := e.Grid()
	assert.InDelta(t, 0.5*(1.0/25)+0.5*0.5, g.At(2, 4), 1e-12)
	assert.InDelta(t, 0.5*(1.0/25), g.At(0, 0), 1e-12)
	assert.InDelta(t, g.Entropy(), res.Entropy, 1e-12)
	assert.Equal(t, g.Rates(), res.Rates)
	assert.Equal(t, res.Pose, e.Pose())
	assert.Equal(t, 1, e.Steps())
}

func TestStep_RejectedReadingIsRecorded(t *testing.T) {
	var logs []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logs = append(logs, format)
	})
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	// Three sources all in view but the grid believes in only two.
	sources := []belief.Cell{{Row: 0, Col: 0}, {Row: 4, Col: 4}, {Row: 0, Col: 4}}
	e := newExplorer(t, 5, 5, 2, sources, Options{
		Pose: sensor.CentredPose(5, 5, 0),
		FOV:  2 * math.Pi,
	})
	before := e.Grid().Rates()

	res, err := e.Step()
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, 3.0, res.Measurement)
	assert.Equal(t, before, res.Rates)
	assert.Equal(t, 1, e.Steps())
	assert.Len(t, logs, 1)
}

func TestStep_DegenerateViewIsFatal(t *testing.T) {
	t.Parallel()

	// On a 1x2 grid the two cells sit at bearings of -pi/2 and pi/2 from the
	// centre, so a narrow wedge facing 0 sees nothing.
	e := newExplorer(t, 1, 2, 1, nil, Options{
		Pose: sensor.CentredPose(1, 2, 0),
		FOV:  0.1,
	})

	_, err := e.Step()
	var degenerate *belief.DegenerateViewError
	require.True(t, errors.As(err, &degenerate), "got %v", err)
	assert.Equal(t, 0, degenerate.InView)
	assert.Equal(t, 0, e.Steps())
}

func TestStep_PredictsEntropy(t *testing.T) {
	t.Parallel()

	e := newExplorer(t, 5, 5, 2, []belief.Cell{{Row: 0, Col: 2}}, Options{
		Pose:        sensor.CentredPose(5, 5, 0),
		FOV:         0.5 * math.Pi,
		AngularStep: 0.33 * math.Pi,
		Samples:     50,
	})
	res, err := e.Step()
	require.NoError(t, err)
	assert.False(t, math.IsNaN(res.ExpectedEntropy))
	assert.False(t, math.IsInf(res.ExpectedEntropy, 0))
}

func TestRun_StepsAndPacing(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(epoch)
	e := newExplorer(t, 5, 5, 2, []belief.Cell{{Row: 1, Col: 1}, {Row: 3, Col: 2}}, Options{
		Pose:        sensor.CentredPose(5, 5, 0),
		FOV:         0.5 * math.Pi,
		AngularStep: 0.33 * math.Pi,
		Interval:    30 * time.Millisecond,
		Clock:       clock,
	})

	var seen []int
	results, err := e.Run(context.Background(), 10, func(r StepResult) error {
		seen = append(seen, r.Step)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, results, 10)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, seen)

	waits := clock.Waits()
	assert.Len(t, waits, 9)
	assert.Equal(t, epoch.Add(9*30*time.Millisecond), results[9].Time)

	g := e.Grid()
	assert.NoError(t, g.Validate())
	assert.InDelta(t, 2.0, g.Sum(), 1e-9)
	assert.InDelta(t, g.Entropy(), results[9].Entropy, 1e-12)
}

func TestRun_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	e := newExplorer(t, 5, 5, 1, nil, Options{
		Pose:        sensor.CentredPose(5, 5, 0),
		FOV:         1,
		AngularStep: 1,
	})
	ctx, cancel := context.WithCancel(context.Background())

	results, err := e.Run(ctx, 5, func(r StepResult) error {
		if r.Step == 2 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 2)
}

func TestRun_ObserverErrorStops(t *testing.T) {
	t.Parallel()

	e := newExplorer(t, 5, 5, 1, nil, Options{
		Pose:        sensor.CentredPose(5, 5, 0),
		FOV:         1,
		AngularStep: 1,
	})
	boom := errors.New("disk full")

	results, err := e.Run(context.Background(), 5, func(StepResult) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Len(t, results, 1)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.MustLoadDefaultConfig()
	e, err := NewFromConfig(cfg, timeutil.NewMockClock(epoch))
	require.NoError(t, err)

	g := e.Grid()
	assert.Equal(t, cfg.GetRows(), g.Rows())
	assert.Equal(t, cfg.GetCols(), g.Cols())
	assert.Len(t, e.Sources(), cfg.GetNumSources())
	assert.Equal(t, sensor.CentredPose(cfg.GetRows(), cfg.GetCols(), cfg.GetInitialAngle()), e.Pose())

	// Same seed, same ground truth.
	again, err := NewFromConfig(cfg, timeutil.NewMockClock(epoch))
	require.NoError(t, err)
	assert.Equal(t, e.Sources(), again.Sources())
}
