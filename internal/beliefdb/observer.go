package beliefdb

import (
	"math"

	"github.com/banshee-data/radiation.explorer/internal/belief"
	"github.com/banshee-data/radiation.explorer/internal/explore"
)

// Observer returns an explore.Observer that stores every step of run as a
// belief snapshot. The run must already be inserted.
func (db *DB) Observer(run *Run) explore.Observer {
	return func(res explore.StepResult) error {
		blob, err := belief.EncodeSnapshot(belief.Snapshot{
			Rows:       run.Rows,
			Cols:       run.Cols,
			NumSources: run.NumSources,
			Rates:      res.Rates,
		})
		if err != nil {
			return err
		}

		s := &BeliefSnapshot{
			RunID:       run.RunID,
			Step:        res.Step,
			PoseX:       res.Pose.X,
			PoseY:       res.Pose.Y,
			PoseAngle:   res.Pose.Angle,
			Measurement: res.Measurement,
			Accepted:    res.Accepted,
			Entropy:     res.Entropy,
			GridBlob:    blob,
		}
		if !math.IsNaN(res.ExpectedEntropy) {
			v := res.ExpectedEntropy
			s.ExpectedEntropy = &v
		}
		if !res.Time.IsZero() {
			s.TakenUnixNanos = res.Time.UnixNano()
		}
		_, err = db.InsertSnapshot(s)
		return err
	}
}
