package reporter

import "github.com/five82/scv/internal/tune"

// Reporter defines the interface for progress reporting. Every reporter is
// also a result sink for the tuning search.
type Reporter interface {
	tune.Sink

	Hardware(summary HardwareSummary)
	Initialization(summary InitializationSummary)
	TuningConfig(summary TuningConfigSummary)
	StageProgress(update StageProgress)
	ConversionStarted(totalFrames uint64)
	ConversionProgress(progress ProgressSnapshot)
	TuneComplete(summary TuneOutcome)
	Warning(message string)
	Error(err ReporterError)
	OperationComplete(message string)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) PhaseStarted(tune.Phase, int)         {}
func (NullReporter) TrialComplete(tune.Record)            {}
func (NullReporter) PhaseComplete(tune.PhaseSummary)      {}
func (NullReporter) Hardware(HardwareSummary)             {}
func (NullReporter) Initialization(InitializationSummary) {}
func (NullReporter) TuningConfig(TuningConfigSummary)     {}
func (NullReporter) StageProgress(StageProgress)          {}
func (NullReporter) ConversionStarted(uint64)             {}
func (NullReporter) ConversionProgress(ProgressSnapshot)  {}
func (NullReporter) TuneComplete(TuneOutcome)             {}
func (NullReporter) Warning(string)                       {}
func (NullReporter) Error(ReporterError)                  {}
func (NullReporter) OperationComplete(string)             {}
func (NullReporter) Verbose(string)                       {}
