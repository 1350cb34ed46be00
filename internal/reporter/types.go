// Package reporter provides progress reporting interfaces and implementations.
package reporter

import "time"

// HardwareSummary contains hardware information.
type HardwareSummary struct {
	Hostname      string
	CPUs          int
	PhysicalCores int
}

// InitializationSummary describes the source before the test clip is prepared.
type InitializationSummary struct {
	InputFile      string
	Duration       string
	Resolution     string
	TestResolution string
	FrameRate      string
	BitDepth       string
	Size           string
}

// TuningConfigSummary describes the effective search settings.
type TuningConfigSummary struct {
	Mode      string
	Target    string
	Goal      string
	Timing    string
	Passes    string
	Lattice   string
	PixFormat string
	CSVFile   string
}

// ProgressSnapshot contains conversion progress information.
type ProgressSnapshot struct {
	CurrentFrame uint64
	TotalFrames  uint64
	Percent      float32
	Speed        float32
	FPS          float32
	ETA          time.Duration
}

// TuneOutcome contains the final tuning results.
type TuneOutcome struct {
	InputFile   string
	Mode        string
	Control     float64
	Estimate    float64
	Speed       string
	SpeedDetail string
	Outcome     string
	Trials      int
	Command     string
	TotalTime   time.Duration
	CSVFile     string
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}

// StageProgress represents a generic stage update.
type StageProgress struct {
	Stage   string
	Percent float32
	Message string
	ETA     *time.Duration
}
