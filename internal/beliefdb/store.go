package beliefdb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/radiation.explorer/internal/belief"
)

// ErrNotFound is returned when a run or snapshot does not exist.
var ErrNotFound = errors.New("not found")

// Run is one exploration run: the grid shape and the parameters it was
// started with.
type Run struct {
	RunID       string          `json:"run_id"`
	Rows        int             `json:"rows"`
	Cols        int             `json:"cols"`
	NumSources  float64         `json:"num_sources"`
	ParamsJSON  json.RawMessage `json:"params_json,omitempty"`
	CreatedAtNs int64           `json:"created_at_ns"`
}

// BeliefSnapshot is the belief after one step of a run.
type BeliefSnapshot struct {
	SnapshotID      int64
	RunID           string
	Step            int
	PoseX           float64
	PoseY           float64
	PoseAngle       float64
	Measurement     float64
	Accepted        bool
	Entropy         float64
	ExpectedEntropy *float64 // nil when no prediction was made
	GridBlob        []byte   // gob+gzip belief.Snapshot
	TakenUnixNanos  int64
}

// EncodeGrid serialises a grid for BeliefSnapshot.GridBlob.
func EncodeGrid(g *belief.Grid) ([]byte, error) {
	return belief.EncodeSnapshot(g.Snapshot())
}

// Grid decodes the stored belief.
func (s *BeliefSnapshot) Grid() (*belief.Grid, error) {
	snap, err := belief.DecodeSnapshot(s.GridBlob)
	if err != nil {
		return nil, err
	}
	return belief.Restore(snap)
}

// InsertRun creates a new run. If run.RunID is empty, a new UUID is
// generated; if CreatedAtNs is zero it is stamped from the database clock.
func (db *DB) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAtNs == 0 {
		run.CreatedAtNs = db.clock.Now().UnixNano()
	}

	query := `
		INSERT INTO runs (run_id, grid_rows, grid_cols, num_sources, params_json, created_at_ns)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.Exec(query,
		run.RunID,
		run.Rows,
		run.Cols,
		run.NumSources,
		nullString(string(run.ParamsJSON)),
		run.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(runID string) (*Run, error) {
	query := `
		SELECT run_id, grid_rows, grid_cols, num_sources, params_json, created_at_ns
		FROM runs
		WHERE run_id = ?
	`

	var run Run
	var params sql.NullString
	err := db.QueryRow(query, runID).Scan(
		&run.RunID,
		&run.Rows,
		&run.Cols,
		&run.NumSources,
		&params,
		&run.CreatedAtNs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if params.Valid && params.String != "" {
		run.ParamsJSON = json.RawMessage(params.String)
	}
	return &run, nil
}

// ListRuns returns all runs, newest first.
func (db *DB) ListRuns() ([]*Run, error) {
	rows, err := db.Query(`
		SELECT run_id, grid_rows, grid_cols, num_sources, params_json, created_at_ns
		FROM runs
		ORDER BY created_at_ns DESC, run_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var params sql.NullString
		if err := rows.Scan(&run.RunID, &run.Rows, &run.Cols, &run.NumSources, &params, &run.CreatedAtNs); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if params.Valid && params.String != "" {
			run.ParamsJSON = json.RawMessage(params.String)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs rows: %w", err)
	}
	return runs, nil
}

// InsertSnapshot persists a snapshot and returns its snapshot_id.
func (db *DB) InsertSnapshot(s *BeliefSnapshot) (int64, error) {
	if s == nil {
		return 0, nil
	}
	if len(s.GridBlob) == 0 {
		return 0, fmt.Errorf("insert snapshot: empty grid blob")
	}
	if s.TakenUnixNanos == 0 {
		s.TakenUnixNanos = db.clock.Now().UnixNano()
	}

	stmt := `INSERT INTO belief_snapshots (run_id, step, pose_x, pose_y, pose_angle, measurement, accepted, entropy, expected_entropy, grid_blob, taken_unix_nanos)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := db.Exec(stmt,
		s.RunID, s.Step, s.PoseX, s.PoseY, s.PoseAngle,
		s.Measurement, s.Accepted, s.Entropy, nullFloat64(s.ExpectedEntropy),
		s.GridBlob, s.TakenUnixNanos,
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert snapshot id: %w", err)
	}
	s.SnapshotID = id
	return id, nil
}

const snapshotColumns = `snapshot_id, run_id, step, pose_x, pose_y, pose_angle, measurement, accepted, entropy, expected_entropy, grid_blob, taken_unix_nanos`

// ListSnapshots returns every snapshot of a run in step order.
func (db *DB) ListSnapshots(runID string) ([]*BeliefSnapshot, error) {
	rows, err := db.Query(`SELECT `+snapshotColumns+` FROM belief_snapshots WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*BeliefSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots rows: %w", err)
	}
	return out, nil
}

// LatestSnapshot returns the highest-step snapshot of a run. It returns
// ErrNotFound when the run has none.
func (db *DB) LatestSnapshot(runID string) (*BeliefSnapshot, error) {
	row := db.QueryRow(`SELECT `+snapshotColumns+` FROM belief_snapshots WHERE run_id = ? ORDER BY step DESC LIMIT 1`, runID)
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest snapshot for run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(r scanner) (*BeliefSnapshot, error) {
	var s BeliefSnapshot
	var expected sql.NullFloat64
	err := r.Scan(
		&s.SnapshotID, &s.RunID, &s.Step, &s.PoseX, &s.PoseY, &s.PoseAngle,
		&s.Measurement, &s.Accepted, &s.Entropy, &expected,
		&s.GridBlob, &s.TakenUnixNanos,
	)
	if err != nil {
		return nil, err
	}
	if expected.Valid {
		v := expected.Float64
		s.ExpectedEntropy = &v
	}
	return &s, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullFloat64 maps nil and NaN to SQL NULL.
func nullFloat64(f *float64) interface{} {
	if f == nil || math.IsNaN(*f) {
		return nil
	}
	return *f
}
