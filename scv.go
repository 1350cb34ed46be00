// Package scv provides a Go library for tuning aomenc AV1 settings against a
// VMAF quality target.
//
// A run estimates a rate at the fastest speed setting, walks the speed
// lattice toward slower settings until the speed goal is met, and in bitrate
// mode refines the rate at the chosen setting.
//
// Basic usage:
//
//	tuner, err := scv.New(
//	    scv.WithTarget(93),
//	    scv.WithThroughput(0.05),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := tuner.Tune(ctx, "input.mkv", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("%s %.0f at %s\n", result.Mode, result.Control, result.Speed)
package scv

import (
	"context"
	"fmt"

	"github.com/five82/scv/internal/config"
	"github.com/five82/scv/internal/processing"
	"github.com/five82/scv/internal/reporter"
	"github.com/five82/scv/internal/tune"
)

// Reporter receives progress and trial events during a run.
type Reporter = reporter.Reporter

// Tuner is the main entry point for tuning runs.
type Tuner struct {
	config *config.Config
}

// Result contains the tuned settings for one input.
type Result struct {
	// Mode is "bitrate" or "quantizer". Control is in kbps or cq-level.
	Mode    string
	Control float64

	// Estimate is the rate estimation result the speed search ran at.
	Estimate float64

	Speed            string
	CPULevel         int
	Deadline         string
	Tuning           string
	ForwardKeyframes bool

	// LatticeExhausted is set when the slowest setting still met the
	// throughput goal.
	LatticeExhausted bool

	Trials  int
	Command string

	TestWidth  int
	TestHeight int
}

// Option configures the tuner.
type Option func(*options)

// options tracks which speed goal was requested alongside the config.
type options struct {
	*config.Config
	throughputSet bool
	costRatioSet  bool
}

// New creates a new Tuner with the given options.
func New(opts ...Option) (*Tuner, error) {
	cfg := config.NewConfig("", "", "")

	o := &options{Config: cfg}
	for _, opt := range opts {
		opt(o)
	}
	if err := cfg.SelectGoal(o.throughputSet, o.costRatioSet); err != nil {
		return nil, err
	}
	cfg.Normalize()

	// Validate with a placeholder input; Tune supplies the real one.
	check := *cfg
	check.InputFile = "-"
	if err := check.Validate(); err != nil {
		return nil, err
	}

	return &Tuner{config: cfg}, nil
}

// WithTarget sets the VMAF target.
func WithTarget(vmaf float64) Option {
	return func(c *options) {
		c.Target = vmaf
	}
}

// WithEpsilon sets the acceptable VMAF deviation for bitrate refinement.
func WithEpsilon(epsilon float64) Option {
	return func(c *options) {
		c.Epsilon = epsilon
	}
}

// WithQuantizerMode tunes a constant quality level instead of a bitrate.
func WithQuantizerMode() Option {
	return func(c *options) {
		c.Mode = tune.Quantizer.String()
	}
}

// WithThroughput selects the throughput goal in seconds of video per second
// of encoding time.
func WithThroughput(throughput float64) Option {
	return func(c *options) {
		c.throughputSet = true
		c.Throughput = throughput
	}
}

// WithCostRatio selects the cost-ratio goal: how many times longer an encode
// may take to halve the output size. A ratio <= 0 skips the speed search.
func WithCostRatio(ratio float64) Option {
	return func(c *options) {
		c.costRatioSet = true
		c.CostRatio = ratio
	}
}

// WithCores sets the core multiplier applied to CPU time.
func WithCores(cores float64) Option {
	return func(c *options) {
		c.Cores = cores
	}
}

// WithWallTime measures speed by elapsed time instead of CPU time.
func WithWallTime() Option {
	return func(c *options) {
		c.WallTime = true
	}
}

// WithAltTuning extends the search past the PSNR-tuned baseline into the
// SSIM and VMAF tuning tiers.
func WithAltTuning() Option {
	return func(c *options) {
		c.TestAltTuning = true
	}
}

// WithForwardKeyframes adds forward-keyframe variants to the search.
func WithForwardKeyframes() Option {
	return func(c *options) {
		c.TestForwardKeyframes = true
	}
}

// WithFastCPULevel sets the realtime cpu-used level the search starts at.
func WithFastCPULevel(level int) Option {
	return func(c *options) {
		c.FastCPULevel = level
	}
}

// WithResolution sets the test clip size. A zero width keeps the aspect
// ratio and a zero height disables rescaling.
func WithResolution(width, height int) Option {
	return func(c *options) {
		c.Width = width
		c.Height = height
	}
}

// WithBitDepth sets the test clip and encoder output bit depth (8, 10 or 12).
func WithBitDepth(depth int) Option {
	return func(c *options) {
		c.BitDepth = depth
	}
}

// WithSinglePass disables two-pass encoding for good-deadline trials.
func WithSinglePass() Option {
	return func(c *options) {
		c.TwoPass = false
	}
}

// WithTempDir sets where the raw test clip and trial outputs are written.
func WithTempDir(dir string) Option {
	return func(c *options) {
		c.TempDir = dir
	}
}

// WithCSV records every trial to path. An existing file is only replaced
// when force is set.
func WithCSV(path string, force bool) Option {
	return func(c *options) {
		c.CSVFile = path
		c.Force = force
	}
}

// WithTools overrides the external binaries. Empty values keep the defaults.
func WithTools(aomenc, ffmpeg, ffprobe, vmaf string) Option {
	return func(c *options) {
		if aomenc != "" {
			c.AomencPath = aomenc
		}
		if ffmpeg != "" {
			c.FFmpegPath = ffmpeg
		}
		if ffprobe != "" {
			c.FFprobePath = ffprobe
		}
		if vmaf != "" {
			c.VMAFPath = vmaf
		}
	}
}

// WithVMAFModel sets the VMAF model file.
func WithVMAFModel(path string) Option {
	return func(c *options) {
		c.VMAFModel = path
	}
}

// Tune runs the search for input. rep may be nil.
func (t *Tuner) Tune(ctx context.Context, input string, rep Reporter) (*Result, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required")
	}

	cfg := *t.config
	cfg.InputFile = input

	if rep == nil {
		rep = reporter.NullReporter{}
	}

	res, err := processing.Tune(ctx, &cfg, rep)
	if err != nil {
		return nil, err
	}
	return newResult(res), nil
}

func newResult(res *processing.TuneResult) *Result {
	r := res.Result
	return &Result{
		Mode:             r.Mode.String(),
		Control:          r.Control,
		Estimate:         r.Estimate,
		Speed:            r.Speed.String(),
		CPULevel:         r.Speed.CPULevel,
		Deadline:         r.Speed.Deadline.String(),
		Tuning:           r.Speed.Tuning.String(),
		ForwardKeyframes: r.Speed.ForwardKeyframes,
		LatticeExhausted: r.Outcome == tune.LatticeExhausted,
		Trials:           r.History.Len(),
		Command:          res.Command,
		TestWidth:        res.TestWidth,
		TestHeight:       res.TestHeight,
	}
}

// NewTerminalReporter returns the human-readable reporter used by the CLI.
func NewTerminalReporter(verbose bool) Reporter {
	return reporter.NewTerminalReporter(verbose)
}

// NewJSONReporter returns a reporter that writes NDJSON events to stdout.
func NewJSONReporter() Reporter {
	return reporter.NewJSONReporter()
}
