// Command explore runs a simulated radiation survey: a wedge sensor turns
// in place on a grid, each reading is fused into a Poisson-rate belief, and
// the map entropy is reported after every step.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/radiation.explorer/internal/beliefdb"
	"github.com/banshee-data/radiation.explorer/internal/config"
	"github.com/banshee-data/radiation.explorer/internal/explore"
	"github.com/banshee-data/radiation.explorer/internal/monitoring"
	"github.com/banshee-data/radiation.explorer/internal/report"
	"github.com/banshee-data/radiation.explorer/internal/timeutil"
	"github.com/banshee-data/radiation.explorer/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a JSON run configuration (defaults built in when empty)")
	dbPath      = flag.String("db", "", "SQLite database for run history (overrides db_path)")
	noDB        = flag.Bool("no-db", false, "Do not persist the run")
	reportDir   = flag.String("reports", "", "Base directory for reports (overrides report_dir)")
	noReports   = flag.Bool("no-reports", false, "Do not write PNG/HTML reports")
	everyStep   = flag.Bool("every-step", false, "Write a belief PNG after every step")
	steps       = flag.Int("steps", -1, "Number of survey steps (overrides num_steps when >= 0)")
	verbose     = flag.Bool("verbose", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

// runOptions holds the resolved command-line overrides.
type runOptions struct {
	dbPath    string // empty disables persistence
	reportDir string // empty disables reports
	everyStep bool
	steps     int
	out       io.Writer
	clock     timeutil.Clock
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("explore %s (git %s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	monitoring.SetVerbose(*verbose)

	cfg := config.DefaultExplorerConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadExplorerConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	opts := runOptions{
		dbPath:    cfg.GetDBPath(),
		reportDir: cfg.GetReportDir(),
		everyStep: *everyStep,
		steps:     cfg.GetNumSteps(),
		out:       os.Stdout,
		clock:     timeutil.RealClock{},
	}
	if *dbPath != "" {
		opts.dbPath = *dbPath
	}
	if *noDB {
		opts.dbPath = ""
	}
	if *reportDir != "" {
		opts.reportDir = *reportDir
	}
	if *noReports {
		opts.reportDir = ""
	}
	if *steps >= 0 {
		opts.steps = *steps
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts); err != nil {
		log.Fatalf("Exploration failed: %v", err)
	}
}

// run executes one survey, persisting and reporting it as o directs.
func run(ctx context.Context, cfg *config.ExplorerConfig, o runOptions) error {
	e, err := explore.NewFromConfig(cfg, o.clock)
	if err != nil {
		return err
	}
	g := e.Grid()
	fmt.Fprintf(o.out, "Initial entropy is %.6f\n", g.Entropy())

	observers := []explore.Observer{
		func(res explore.StepResult) error {
			if !res.Accepted {
				fmt.Fprintf(o.out, "Step %d: measured %g sources, more than the %d expected; belief unchanged\n",
					res.Step, res.Measurement, cfg.GetNumSources())
			}
			fmt.Fprintf(o.out, "Entropy after step %d is %.6f\n", res.Step, res.Entropy)
			return nil
		},
	}

	var runID string
	if o.dbPath != "" {
		db, err := beliefdb.NewDB(o.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		db.SetClock(o.clock)

		params, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode params: %w", err)
		}
		r := &beliefdb.Run{Rows: g.Rows(), Cols: g.Cols(), NumSources: g.NumSources(), ParamsJSON: params}
		if err := db.InsertRun(r); err != nil {
			return err
		}
		runID = r.RunID
		monitoring.Logf("explore: run %s stored in %s", runID, o.dbPath)
		observers = append(observers, db.Observer(r))
	}

	var rec *report.Recorder
	if o.reportDir != "" {
		dir := report.MakeOutputDir(o.reportDir, runID, o.clock.Now())
		rec, err = report.NewRecorder(dir, g.Rows(), g.Cols(), g.NumSources(), e.Sources())
		if err != nil {
			return err
		}
		rec.EveryStep = o.everyStep
		observers = append(observers, rec.Observe)
	}

	_, runErr := e.Run(ctx, o.steps, func(res explore.StepResult) error {
		for _, obs := range observers {
			if err := obs(res); err != nil {
				return err
			}
		}
		return nil
	})

	// Reports cover whatever steps completed, even after a failure.
	if rec != nil {
		if _, err := rec.WriteReports(); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}
