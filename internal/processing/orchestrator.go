// Package processing prepares the test clip and drives a tuning run.
package processing

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/five82/scv/internal/aomenc"
	"github.com/five82/scv/internal/config"
	scverrors "github.com/five82/scv/internal/errors"
	"github.com/five82/scv/internal/ffmpeg"
	"github.com/five82/scv/internal/ffprobe"
	"github.com/five82/scv/internal/logging"
	"github.com/five82/scv/internal/reporter"
	"github.com/five82/scv/internal/speed"
	"github.com/five82/scv/internal/trial"
	"github.com/five82/scv/internal/tune"
	"github.com/five82/scv/internal/util"
	"github.com/five82/scv/internal/vmaf"
)

// spaceFactor scales the uncompressed clip size into the scratch space a
// run needs: the raw source plus a decoded trial output and encoder files.
const spaceFactor = 2.1

// workDirPrefix names per-run trial directories inside the temp dir.
const workDirPrefix = "trial"

// staleWorkDirAge is how old a leftover trial directory must be before a
// new run removes it.
const staleWorkDirAge = 24 * time.Hour

// TuneResult contains the outcome of a tuning run.
type TuneResult struct {
	Result *tune.Result
	Source *ffprobe.SourceInfo

	// TestWidth and TestHeight are the dimensions trials were encoded at.
	TestWidth  int
	TestHeight int

	// Command is the aomenc invocation for the tuned settings.
	Command  string
	Duration time.Duration
}

type (
	probeFunc    func(ctx context.Context, ffprobePath, inputPath string) (*ffprobe.SourceInfo, error)
	convertFunc  func(ctx context.Context, ffmpegPath string, params *ffmpeg.ConvertParams, totalFrames uint64, cb ffmpeg.ProgressCallback) error
	executorFunc func(opts trial.Options) tune.Executor
)

// pipeline holds the stages of a run so tests can replace them.
type pipeline struct {
	probe       probeFunc
	convert     convertFunc
	newExecutor executorFunc
}

func defaultPipeline() pipeline {
	return pipeline{
		probe:   ffprobe.Probe,
		convert: ffmpeg.RunConvert,
		newExecutor: func(opts trial.Options) tune.Executor {
			return trial.NewExecutor(opts)
		},
	}
}

// Tune probes the input, converts it to a raw test clip and runs the
// three-phase search. Errors are reported to rep before being returned.
func Tune(ctx context.Context, cfg *config.Config, rep reporter.Reporter) (*TuneResult, error) {
	return defaultPipeline().run(ctx, cfg, rep)
}

func (p pipeline) run(ctx context.Context, cfg *config.Config, rep reporter.Reporter) (*TuneResult, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		cfgErr := scverrors.WrapConfigError(err)
		rep.Error(reporterError(cfgErr, cfg))
		return nil, cfgErr
	}

	if cfg.CSVFile != "" {
		csvRep, err := reporter.NewCSVReporter(cfg.CSVFile, cfg.TuneConfig().Mode, cfg.Force)
		if err != nil {
			ioErr := scverrors.NewIOError("cannot record trial results", err)
			re := reporterError(ioErr, cfg)
			re.Suggestion = "Choose another CSV path or pass --force to overwrite it"
			rep.Error(re)
			return nil, ioErr
		}
		defer func() {
			if err := csvRep.Close(); err != nil {
				logging.Warn("failed to write trial results", "path", cfg.CSVFile, "error", err)
			}
		}()
		rep = reporter.NewCompositeReporter(rep, csvRep)
	}

	res, err := p.tune(ctx, cfg, rep)
	if err != nil {
		rep.Error(reporterError(err, cfg))
		return nil, err
	}
	res.Duration = time.Since(start)

	rep.TuneComplete(reporter.TuneOutcome{
		InputFile:   filepath.Base(cfg.InputFile),
		Mode:        res.Result.Mode.String(),
		Control:     res.Result.Control,
		Estimate:    res.Result.Estimate,
		Speed:       res.Result.Speed.String(),
		SpeedDetail: res.Result.Speed.Explain(),
		Outcome:     res.Result.Outcome.String(),
		Trials:      res.Result.History.Len(),
		Command:     res.Command,
		TotalTime:   res.Duration,
		CSVFile:     cfg.CSVFile,
	})
	rep.OperationComplete(fmt.Sprintf("Tuned %s in %d trials", filepath.Base(cfg.InputFile), res.Result.History.Len()))
	return res, nil
}

func (p pipeline) tune(ctx context.Context, cfg *config.Config, rep reporter.Reporter) (*TuneResult, error) {
	hw := util.DetectHardware()
	rep.Hardware(reporter.HardwareSummary{
		Hostname:      hw.Hostname,
		CPUs:          hw.LogicalCores,
		PhysicalCores: hw.PhysicalCores,
	})
	if hw.SMT() && !cfg.WallTime {
		logging.Debug("SMT host, CPU time includes sibling threads", "logical", hw.LogicalCores, "physical", hw.PhysicalCores)
	}

	info, err := p.probe(ctx, cfg.FFprobePath, cfg.InputFile)
	if err != nil {
		return nil, err
	}

	width, height := ffmpeg.ScaledResolution(info.Width, info.Height, cfg.Width, cfg.Height)
	logging.Info("Probed source",
		"file", cfg.InputFile,
		"resolution", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"test_resolution", fmt.Sprintf("%dx%d", width, height),
		"fps", info.FPS(),
		"duration", info.Duration)

	rep.Initialization(reporter.InitializationSummary{
		InputFile:      filepath.Base(cfg.InputFile),
		Duration:       util.FormatSeconds(info.Duration),
		Resolution:     fmt.Sprintf("%dx%d", info.Width, info.Height),
		TestResolution: fmt.Sprintf("%dx%d", width, height),
		FrameRate:      fmt.Sprintf("%.3f fps", info.FPS()),
		BitDepth:       fmt.Sprintf("%d-bit source, %d-bit encode", info.BitDepth, cfg.BitDepth),
		Size:           util.FormatBytes(info.Size),
	})
	rep.TuningConfig(tuningSummary(cfg))

	if !info.DurationReliable {
		rep.Warning("Source duration was not reported by the container; throughput and reference size are estimates")
	}

	frames := info.Frames
	if frames == 0 {
		frames = uint64(math.Round(info.Duration * info.FPS()))
	}

	if err := util.EnsureDirectory(cfg.TempDir); err != nil {
		return nil, scverrors.NewIOError("failed to create temp directory "+cfg.TempDir, err)
	}
	if err := util.EnsureDirectoryWritable(cfg.TempDir); err != nil {
		return nil, scverrors.NewIOError("temp directory is not usable", err)
	}
	if n, err := util.CleanupStaleTempFiles(cfg.TempDir, workDirPrefix+"_", staleWorkDirAge); err == nil && n > 0 {
		logging.Info("Removed stale trial directories", "count", n, "dir", cfg.TempDir)
	}

	required := uint64(spaceFactor * float64(frames*ffmpeg.RawFrameSize(width, height, cfg.BitDepth)))
	util.CheckDiskSpace(cfg.TempDir, required, func(format string, args ...any) {
		rep.Warning("Low disk space: " + fmt.Sprintf(format, args...))
	})

	rawSource := cfg.RawSourcePath()
	defer removeFile(rawSource)

	if err := p.prepareClip(ctx, cfg, info, width, height, frames, rep); err != nil {
		return nil, err
	}

	workDir, err := util.CreateTempDir(cfg.TempDir, workDirPrefix)
	if err != nil {
		return nil, scverrors.NewIOError("failed to create trial directory", err)
	}
	defer func() {
		if err := workDir.Cleanup(); err != nil {
			logging.Warn("failed to remove trial directory", "path", workDir.Path(), "error", err)
		}
	}()

	executor := p.newExecutor(trial.Options{
		AomencPath:  cfg.AomencPath,
		FFmpegPath:  cfg.FFmpegPath,
		Scorer:      &vmaf.Scorer{Binary: cfg.VMAFPath, Model: cfg.VMAFModel},
		WorkDir:     workDir.Path(),
		BitDepth:    cfg.BitDepth,
		PixelFormat: cfg.PixelFormat(),
		TwoPass:     cfg.TwoPass,
	})

	src := tune.Source{
		Path:     rawSource,
		Width:    width,
		Height:   height,
		FPSNum:   info.FPSNum,
		FPSDen:   info.FPSDen,
		BitDepth: cfg.BitDepth,
		Duration: info.Duration,
		Frames:   int64(frames),
		Size:     info.Size,
	}

	result, err := tune.NewController(cfg.TuneConfig(), executor, rep).Run(ctx, src)
	if err != nil {
		return nil, err
	}

	return &TuneResult{
		Result:     result,
		Source:     info,
		TestWidth:  width,
		TestHeight: height,
		Command:    finalCommand(cfg, src, result),
	}, nil
}

// prepareClip converts the input to raw YUV at the test resolution.
func (p pipeline) prepareClip(ctx context.Context, cfg *config.Config, info *ffprobe.SourceInfo, width, height int, frames uint64, rep reporter.Reporter) error {
	params := &ffmpeg.ConvertParams{
		InputPath:   cfg.InputFile,
		OutputPath:  cfg.RawSourcePath(),
		PixelFormat: cfg.PixelFormat(),
		Duration:    info.Duration,
	}
	if width != info.Width || height != info.Height {
		params.Width = width
		params.Height = height
	}

	rep.ConversionStarted(frames)
	err := p.convert(ctx, cfg.FFmpegPath, params, frames, func(progress ffmpeg.Progress) {
		rep.ConversionProgress(reporter.ProgressSnapshot{
			CurrentFrame: progress.CurrentFrame,
			TotalFrames:  progress.TotalFrames,
			Percent:      progress.Percent,
			Speed:        progress.Speed,
			FPS:          progress.FPS,
			ETA:          progress.ETA,
		})
	})
	if err != nil {
		return err
	}

	if size, err := util.FileSize(params.OutputPath); err == nil {
		rep.Verbose(fmt.Sprintf("Test clip %s (%s)", params.OutputPath, util.FormatBytes(size)))
	}
	return nil
}

func tuningSummary(cfg *config.Config) reporter.TuningConfigSummary {
	tc := cfg.TuneConfig()

	target := fmt.Sprintf("VMAF %.2f", cfg.Target)
	if tc.Mode == tune.Bitrate {
		target += fmt.Sprintf(" ± %g", cfg.Epsilon)
	}

	goal := fmt.Sprintf("throughput %g (video seconds per second)", cfg.Throughput)
	if tc.Goal == tune.GoalCostRatio {
		goal = fmt.Sprintf("cost ratio %g", cfg.CostRatio)
		if cfg.CostRatio <= 0 {
			goal += " (speed search skipped)"
		}
	}

	timing := fmt.Sprintf("%s, %g cores", tc.Basis, cfg.Cores)

	passes := "single pass"
	if cfg.TwoPass {
		passes = "two-pass for good deadline"
	}

	var lattice []string
	if cfg.TestAltTuning {
		lattice = append(lattice, "alternate tunings")
	}
	if cfg.TestForwardKeyframes {
		lattice = append(lattice, "forward keyframes")
	}
	latticeDesc := fmt.Sprintf("%d settings from cpu-used %d", speed.Len(speed.Fastest(cfg.FastCPULevel), tc.Lattice), cfg.FastCPULevel)
	if len(lattice) > 0 {
		latticeDesc += ", with " + strings.Join(lattice, " and ")
	}

	return reporter.TuningConfigSummary{
		Mode:      tc.Mode.String(),
		Target:    target,
		Goal:      goal,
		Timing:    timing,
		Passes:    passes,
		Lattice:   latticeDesc,
		PixFormat: cfg.PixelFormat(),
		CSVFile:   cfg.CSVFile,
	}
}

// finalCommand renders the aomenc invocation for the tuned settings
// against the raw test clip.
func finalCommand(cfg *config.Config, src tune.Source, result *tune.Result) string {
	passes := aomenc.Passes(result.Speed, cfg.TwoPass)
	enc := &aomenc.EncConfig{
		Input:            src.Path,
		Output:           "output.ivf",
		StatsFile:        "pass.fpf",
		Width:            src.Width,
		Height:           src.Height,
		FPSNum:           src.FPSNum,
		FPSDen:           src.FPSDen,
		BitDepth:         cfg.BitDepth,
		InputDepth:       src.BitDepth,
		Mode:             result.Mode,
		Control:          result.Control,
		Speed:            result.Speed,
		KeyframeDistance: aomenc.KeyframeDistance(src.FPSNum, src.FPSDen),
	}

	lines := make([]string, 0, len(passes))
	for _, pass := range passes {
		enc.Pass = pass
		lines = append(lines, aomenc.CommandLine(cfg.AomencPath, enc))
	}
	return strings.Join(lines, " && ")
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove file", "path", path, "error", err)
	}
}

// reporterError maps a run error onto a user-facing report.
func reporterError(err error, cfg *config.Config) reporter.ReporterError {
	re := reporter.ReporterError{
		Title:   "Tuning Error",
		Message: err.Error(),
		Context: fmt.Sprintf("File: %s", cfg.InputFile),
	}

	switch {
	case scverrors.IsCancelled(err):
		re.Title = "Cancelled"
		re.Suggestion = "Partial trial results remain in the CSV file"
	case scverrors.IsKind(err, scverrors.KindFFprobeParse), scverrors.IsKind(err, scverrors.KindVideoInfo):
		re.Title = "Analysis Error"
		re.Suggestion = "Check that the input is a valid video file"
	case scverrors.IsKind(err, scverrors.KindFFmpeg):
		re.Title = "Conversion Error"
		re.Suggestion = "Check the ffmpeg output above and free space in " + cfg.TempDir
	case scverrors.IsKind(err, scverrors.KindConfig):
		re.Title = "Configuration Error"
		re.Suggestion = "Run scv tune --help for valid option ranges"
	case scverrors.IsNonConvergence(err):
		re.Title = "No Convergence"
		switch scverrors.PhaseOf(err) {
		case tune.RateEstimate.String():
			re.Suggestion = "Lower the VMAF target or raise the test clip resolution"
		case tune.SpeedSearch.String():
			re.Suggestion = "Lower the throughput goal or raise --cores"
		default:
			re.Suggestion = "Raise the epsilon (-Q) or tune in quantizer mode"
		}
	case scverrors.IsKind(err, scverrors.KindMetricParse):
		re.Title = "Scoring Error"
		re.Suggestion = "Check the VMAF binary and model path (" + cfg.VMAFModel + ")"
	case scverrors.IsKind(err, scverrors.KindCommand), scverrors.IsExecutorFailure(err):
		re.Title = "Trial Error"
		re.Suggestion = "Check that the encoder tools are installed and on PATH"
	case scverrors.IsKind(err, scverrors.KindIO):
		re.Title = "I/O Error"
		re.Suggestion = "Check permissions and free space in " + cfg.TempDir
	}
	if phase := scverrors.PhaseOf(err); phase != "" {
		re.Context += ", phase: " + phase
	}
	return re
}
