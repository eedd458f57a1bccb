package report

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/banshee-data/radiation.explorer/internal/belief"
	"github.com/banshee-data/radiation.explorer/internal/explore"
	"github.com/banshee-data/radiation.explorer/internal/fsutil"
	"github.com/banshee-data/radiation.explorer/internal/monitoring"
)

// Recorder collects the steps of a run and writes its reports.
type Recorder struct {
	mu        sync.Mutex
	fs        fsutil.FileSystem
	outputDir string
	rows      int
	cols      int
	k         float64
	sources   []belief.Cell
	results   []explore.StepResult

	// EveryStep writes belief_step_NNN.png after each observed step.
	EveryStep bool
}

// NewRecorder creates a recorder for a rows×cols grid with k sources that
// writes to the local filesystem. Ground-truth sources are drawn on the
// belief plots when given.
func NewRecorder(outputDir string, rows, cols int, k float64, sources []belief.Cell) (*Recorder, error) {
	return NewRecorderFS(fsutil.OSFileSystem{}, outputDir, rows, cols, k, sources)
}

// NewRecorderFS is NewRecorder writing through fsys.
func NewRecorderFS(fsys fsutil.FileSystem, outputDir string, rows, cols int, k float64, sources []belief.Cell) (*Recorder, error) {
	if err := fsys.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &Recorder{
		fs:        fsys,
		outputDir: outputDir,
		rows:      rows,
		cols:      cols,
		k:         k,
		sources:   append([]belief.Cell(nil), sources...),
	}, nil
}

// OutputDir returns the directory reports are written to.
func (r *Recorder) OutputDir() string { return r.outputDir }

// Observe records one step. It has the explore.Observer signature.
func (r *Recorder) Observe(res explore.StepResult) error {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()

	if !r.EveryStep {
		return nil
	}
	g, err := r.grid(res)
	if err != nil {
		return err
	}
	path := filepath.Join(r.outputDir, fmt.Sprintf("belief_step_%03d.png", res.Step))
	title := fmt.Sprintf("Step %d: measured %g, entropy %.4f", res.Step, res.Measurement, res.Entropy)
	pose := res.Pose
	return WriteBeliefPNG(r.fs, path, g, &pose, r.sources, title)
}

// Results returns a copy of the recorded steps.
func (r *Recorder) Results() []explore.StepResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]explore.StepResult(nil), r.results...)
}

// WriteReports writes belief.png, entropy.png and report.html for the last
// recorded step. It returns the number of files written.
func (r *Recorder) WriteReports() (int, error) {
	results := r.Results()
	if len(results) == 0 {
		return 0, nil
	}
	last := results[len(results)-1]
	g, err := r.grid(last)
	if err != nil {
		return 0, err
	}

	pose := last.Pose
	if err := WriteBeliefPNG(r.fs, filepath.Join(r.outputDir, "belief.png"), g, &pose, r.sources, fmt.Sprintf("Belief after step %d", last.Step)); err != nil {
		return 0, err
	}
	if err := WriteEntropyPNG(r.fs, filepath.Join(r.outputDir, "entropy.png"), results); err != nil {
		return 1, err
	}

	f, err := r.fs.Create(filepath.Join(r.outputDir, "report.html"))
	if err != nil {
		return 2, fmt.Errorf("failed to create report: %w", err)
	}
	if err := RenderHTML(f, g, results); err != nil {
		f.Close()
		return 2, err
	}
	if err := f.Close(); err != nil {
		return 2, fmt.Errorf("failed to close report: %w", err)
	}

	monitoring.Logf("report: wrote %d steps to %s", len(results), r.outputDir)
	return 3, nil
}

func (r *Recorder) grid(res explore.StepResult) (*belief.Grid, error) {
	g, err := belief.Restore(belief.Snapshot{Rows: r.rows, Cols: r.cols, NumSources: r.k, Rates: res.Rates})
	if err != nil {
		return nil, fmt.Errorf("step %d: %w", res.Step, err)
	}
	return g, nil
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakeOutputDir returns baseDir/<runID>/<timestamp>, or baseDir/run_<timestamp>
// when runID is empty.
func MakeOutputDir(baseDir, runID string, now time.Time) string {
	ts := FormatTimestamp(now)
	if runID != "" {
		return filepath.Join(baseDir, runID, ts)
	}
	return filepath.Join(baseDir, "run_"+ts)
}
