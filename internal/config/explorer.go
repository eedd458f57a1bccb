package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/radiation.explorer/internal/units"
)

// DefaultConfigPath is the path to the canonical explorer defaults file.
// This is the single source of truth for all default run parameters.
const DefaultConfigPath = "config/explorer.defaults.json"

// ExplorerConfig represents the root configuration for an exploration run.
// Every field is optional; the Get* methods fall back to built-in defaults,
// so partial files are safe.
type ExplorerConfig struct {
	// Grid and world
	Rows       *int `json:"rows,omitempty"`
	Cols       *int `json:"cols,omitempty"`
	NumSources *int `json:"num_sources,omitempty"`

	// Sensor
	AngleUnits   *string  `json:"angle_units,omitempty"` // "deg" or "rad"
	FieldOfView  *float64 `json:"fov,omitempty"`
	AngularStep  *float64 `json:"angular_step,omitempty"`
	InitialAngle *float64 `json:"initial_angle,omitempty"`
	MissProb     *float64 `json:"miss_prob,omitempty"`

	// Run
	NumSteps     *int    `json:"num_steps,omitempty"`
	NumSamples   *int    `json:"num_samples,omitempty"` // Monte Carlo iterations for expected entropy
	Seed         *uint64 `json:"seed,omitempty"`
	StepInterval *string `json:"step_interval,omitempty"` // duration string like "30ms"

	// Output
	DBPath    *string `json:"db_path,omitempty"`
	ReportDir *string `json:"report_dir,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// EmptyExplorerConfig returns an ExplorerConfig with all fields set to nil.
func EmptyExplorerConfig() *ExplorerConfig {
	return &ExplorerConfig{}
}

// DefaultExplorerConfig returns an ExplorerConfig with every field set to
// its built-in default.
func DefaultExplorerConfig() *ExplorerConfig {
	c := EmptyExplorerConfig()
	return &ExplorerConfig{
		Rows:         ptrInt(c.GetRows()),
		Cols:         ptrInt(c.GetCols()),
		NumSources:   ptrInt(c.GetNumSources()),
		AngleUnits:   ptrString(c.GetAngleUnits()),
		FieldOfView:  ptrFloat64(90),
		AngularStep:  ptrFloat64(59.4),
		InitialAngle: ptrFloat64(0),
		MissProb:     ptrFloat64(c.GetMissProb()),
		NumSteps:     ptrInt(c.GetNumSteps()),
		NumSamples:   ptrInt(c.GetNumSamples()),
		Seed:         ptrUint64(c.GetSeed()),
		StepInterval: ptrString("0s"),
		DBPath:       ptrString(c.GetDBPath()),
		ReportDir:    ptrString(c.GetReportDir()),
	}
}

// LoadExplorerConfig loads an ExplorerConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadExplorerConfig(path string) (*ExplorerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyExplorerConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *ExplorerConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadExplorerConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *ExplorerConfig) Validate() error {
	if c.Rows != nil && *c.Rows <= 0 {
		return fmt.Errorf("rows must be positive, got %d", *c.Rows)
	}
	if c.Cols != nil && *c.Cols <= 0 {
		return fmt.Errorf("cols must be positive, got %d", *c.Cols)
	}
	if c.NumSources != nil && *c.NumSources <= 0 {
		return fmt.Errorf("num_sources must be positive, got %d", *c.NumSources)
	}
	if c.GetRows()*c.GetCols() < 2 {
		return fmt.Errorf("grid needs at least 2 cells, got %dx%d", c.GetRows(), c.GetCols())
	}

	if c.AngleUnits != nil && !units.IsValid(*c.AngleUnits) {
		return fmt.Errorf("angle_units must be one of %s, got %q", units.GetValidUnitsString(), *c.AngleUnits)
	}
	if fov := c.GetFieldOfView(); fov <= 0 || fov > 2*math.Pi+1e-9 {
		return fmt.Errorf("fov must be in (0, 360] degrees, got %f rad", fov)
	}

	if c.MissProb != nil {
		if *c.MissProb < 0 || *c.MissProb > 1 {
			return fmt.Errorf("miss_prob must be between 0 and 1, got %f", *c.MissProb)
		}
	}
	if c.NumSteps != nil && *c.NumSteps < 0 {
		return fmt.Errorf("num_steps must be non-negative, got %d", *c.NumSteps)
	}
	if c.NumSamples != nil && *c.NumSamples < 0 {
		return fmt.Errorf("num_samples must be non-negative, got %d", *c.NumSamples)
	}

	// Validate StepInterval can be parsed if set
	if c.StepInterval != nil && *c.StepInterval != "" {
		d, err := time.ParseDuration(*c.StepInterval)
		if err != nil {
			return fmt.Errorf("invalid step_interval '%s': %w", *c.StepInterval, err)
		}
		if d < 0 {
			return fmt.Errorf("step_interval must be non-negative, got %s", d)
		}
	}

	return nil
}

// GetRows returns the rows value or the default.
func (c *ExplorerConfig) GetRows() int {
	if c.Rows == nil {
		return 5
	}
	return *c.Rows
}

// GetCols returns the cols value or the default.
func (c *ExplorerConfig) GetCols() int {
	if c.Cols == nil {
		return 5
	}
	return *c.Cols
}

// GetNumSources returns the num_sources value or the default.
func (c *ExplorerConfig) GetNumSources() int {
	if c.NumSources == nil {
		return 2
	}
	return *c.NumSources
}

// GetAngleUnits returns the angle_units value or the default ("deg").
func (c *ExplorerConfig) GetAngleUnits() string {
	if c.AngleUnits == nil || *c.AngleUnits == "" {
		return units.Degrees
	}
	return *c.AngleUnits
}

// GetFieldOfView returns the sensor field of view in radians.
func (c *ExplorerConfig) GetFieldOfView() float64 {
	if c.FieldOfView == nil {
		return 0.5 * math.Pi
	}
	return units.ToRadians(*c.FieldOfView, c.GetAngleUnits())
}

// GetAngularStep returns the per-step heading change in radians.
func (c *ExplorerConfig) GetAngularStep() float64 {
	if c.AngularStep == nil {
		return 0.33 * math.Pi
	}
	return units.ToRadians(*c.AngularStep, c.GetAngleUnits())
}

// GetInitialAngle returns the starting heading in radians.
func (c *ExplorerConfig) GetInitialAngle() float64 {
	if c.InitialAngle == nil {
		return 0
	}
	return units.ToRadians(*c.InitialAngle, c.GetAngleUnits())
}

// GetMissProb returns the miss_prob value or the default.
func (c *ExplorerConfig) GetMissProb() float64 {
	if c.MissProb == nil {
		return 0
	}
	return *c.MissProb
}

// GetNumSteps returns the num_steps value or the default.
func (c *ExplorerConfig) GetNumSteps() int {
	if c.NumSteps == nil {
		return 10
	}
	return *c.NumSteps
}

// GetNumSamples returns the num_samples value or the default.
func (c *ExplorerConfig) GetNumSamples() int {
	if c.NumSamples == nil {
		return 200
	}
	return *c.NumSamples
}

// GetSeed returns the seed value or the default.
func (c *ExplorerConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetStepInterval parses and returns the StepInterval as a time.Duration.
func (c *ExplorerConfig) GetStepInterval() time.Duration {
	if c.StepInterval == nil || *c.StepInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.StepInterval)
	if err != nil {
		return 0 // default on parse error
	}
	return d
}

// GetDBPath returns the db_path value or the default.
func (c *ExplorerConfig) GetDBPath() string {
	if c.DBPath == nil {
		return "explorer.db"
	}
	return *c.DBPath
}

// GetReportDir returns the report_dir value or the default.
func (c *ExplorerConfig) GetReportDir() string {
	if c.ReportDir == nil {
		return "reports"
	}
	return *c.ReportDir
}
