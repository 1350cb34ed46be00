package reporter

import "github.com/five82/scv/internal/tune"

// CompositeReporter fans out events to multiple reporters.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter creates a composite reporter.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) PhaseStarted(p tune.Phase, planned int) {
	for _, r := range c.reporters {
		r.PhaseStarted(p, planned)
	}
}

func (c *CompositeReporter) TrialComplete(rec tune.Record) {
	for _, r := range c.reporters {
		r.TrialComplete(rec)
	}
}

func (c *CompositeReporter) PhaseComplete(summary tune.PhaseSummary) {
	for _, r := range c.reporters {
		r.PhaseComplete(summary)
	}
}

func (c *CompositeReporter) Hardware(summary HardwareSummary) {
	for _, r := range c.reporters {
		r.Hardware(summary)
	}
}

func (c *CompositeReporter) Initialization(summary InitializationSummary) {
	for _, r := range c.reporters {
		r.Initialization(summary)
	}
}

func (c *CompositeReporter) TuningConfig(summary TuningConfigSummary) {
	for _, r := range c.reporters {
		r.TuningConfig(summary)
	}
}

func (c *CompositeReporter) StageProgress(update StageProgress) {
	for _, r := range c.reporters {
		r.StageProgress(update)
	}
}

func (c *CompositeReporter) ConversionStarted(totalFrames uint64) {
	for _, r := range c.reporters {
		r.ConversionStarted(totalFrames)
	}
}

func (c *CompositeReporter) ConversionProgress(progress ProgressSnapshot) {
	for _, r := range c.reporters {
		r.ConversionProgress(progress)
	}
}

func (c *CompositeReporter) TuneComplete(summary TuneOutcome) {
	for _, r := range c.reporters {
		r.TuneComplete(summary)
	}
}

func (c *CompositeReporter) Warning(message string) {
	for _, r := range c.reporters {
		r.Warning(message)
	}
}

func (c *CompositeReporter) Error(err ReporterError) {
	for _, r := range c.reporters {
		r.Error(err)
	}
}

func (c *CompositeReporter) OperationComplete(message string) {
	for _, r := range c.reporters {
		r.OperationComplete(message)
	}
}

func (c *CompositeReporter) Verbose(message string) {
	for _, r := range c.reporters {
		r.Verbose(message)
	}
}
