package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/five82/scv/internal/config"
	"github.com/five82/scv/internal/logging"
	"github.com/five82/scv/internal/processing"
	"github.com/five82/scv/internal/reporter"
	"github.com/five82/scv/internal/tune"
)

// errReported marks failures the reporter has already shown.
var errReported = errors.New("tuning failed")

// tuneArgs holds the parsed flags of the tune command.
type tuneArgs struct {
	input      string
	tempDir    string
	csvFile    string
	vmafModel  string
	throughput float64
	costRatio  float64
	wallTime   bool
	cores      float64
	target     float64
	epsilon    float64
	width      int
	height     int
	bitDepth   int
	noTwoPass  bool
	fwdKF      bool
	altTuning  bool
	mode       string
	cpuLevel   int

	aomenc  string
	ffmpeg  string
	ffprobe string
	vmaf    string

	json    bool
	verbose bool
	logDir  string
	noLog   bool
	force   bool
}

func newTuneCmd() *cobra.Command {
	return tuneCommand(&tuneArgs{})
}

// tuneCommand builds the tune command with its flags bound to ta.
func tuneCommand(ta *tuneArgs) *cobra.Command {
	defaults := config.NewConfig("", "", "")

	cmd := &cobra.Command{
		Use:   "tune -i FILE [flags]",
		Short: "Find the rate and speed settings for a VMAF target",
		Example: `  scv tune -i input.mkv -q 93 -t 0.05
  scv tune -i input.mkv -T 10 -O results.csv
  scv tune -i input.mkv -Q -1 -K -k`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTune(cmd, ta)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&ta.input, "input", "i", "", "input video file (required)")
	f.StringVarP(&ta.tempDir, "temp-dir", "o", config.DefaultTempDir, "temporary storage for the test clip and trial outputs")
	f.StringVarP(&ta.csvFile, "csv", "O", "", "write every trial to a CSV file")
	f.StringVarP(&ta.vmafModel, "vmaf-model", "V", config.DefaultVMAFModel, "VMAF model file")

	f.Float64VarP(&ta.throughput, "throughput", "t", config.DefaultThroughput, "target seconds of video encoded per second of encoding time")
	f.Float64VarP(&ta.costRatio, "cost-ratio", "T", config.DefaultCostRatio, "how many times longer to spend to halve the output size (<= 0 uses the slowest settings)")
	f.BoolVarP(&ta.wallTime, "wall-time", "p", false, "measure speed by elapsed time instead of CPU time")
	f.Float64VarP(&ta.cores, "cores", "P", config.DefaultCores, "extrapolate throughput to this many cores")

	f.Float64VarP(&ta.target, "target", "q", config.DefaultTarget, "target VMAF (0-100)")
	f.Float64VarP(&ta.epsilon, "epsilon", "Q", config.DefaultEpsilon, "acceptable VMAF deviation; negative selects quantizer mode")
	f.StringVar(&ta.mode, "mode", defaults.Mode, "rate control to tune: bitrate or quantizer")

	f.IntVarP(&ta.width, "width", "x", 0, "test clip width (0 preserves the aspect ratio)")
	f.IntVarP(&ta.height, "height", "y", config.DefaultHeight, "test clip height (0 disables rescaling)")
	f.IntVar(&ta.bitDepth, "bit-depth", config.DefaultBitDepth, "test clip and output bit depth: 8, 10 or 12")
	f.BoolVarP(&ta.noTwoPass, "no-two-pass", "n", false, "encode good-deadline trials in a single pass (not recommended)")
	f.BoolVarP(&ta.fwdKF, "test-fwd-kf", "k", false, "test the speed impact of forward keyframes")
	f.BoolVarP(&ta.altTuning, "test-alt-tuning", "K", false, "test the speed impact of alternative tunings")
	f.IntVar(&ta.cpuLevel, "fast-cpu-level", defaults.FastCPULevel, "realtime cpu-used level the speed search starts at")

	f.StringVar(&ta.aomenc, "aomenc", defaults.AomencPath, "aomenc binary")
	f.StringVar(&ta.ffmpeg, "ffmpeg", defaults.FFmpegPath, "ffmpeg binary")
	f.StringVar(&ta.ffprobe, "ffprobe", defaults.FFprobePath, "ffprobe binary")
	f.StringVar(&ta.vmaf, "vmaf", defaults.VMAFPath, "VMAF scorer binary")

	f.BoolVar(&ta.json, "json", false, "emit NDJSON progress events instead of terminal output")
	f.BoolVarP(&ta.verbose, "verbose", "v", false, "enable verbose output for troubleshooting")
	f.StringVarP(&ta.logDir, "log-dir", "l", "", "log directory (defaults to TEMP_DIR/logs)")
	f.BoolVar(&ta.noLog, "no-log", false, "disable log file creation")
	f.BoolVar(&ta.force, "force", false, "overwrite an existing CSV file")

	return cmd
}

// buildConfig layers defaults, the optional config file and explicitly set
// flags, in that order.
func buildConfig(flags *pflag.FlagSet, ta *tuneArgs, configPath string) (*config.Config, error) {
	cfg := config.NewConfig("", "", "")
	if configPath != "" {
		if err := config.LoadFile(cfg, configPath); err != nil {
			return nil, err
		}
	}

	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("input", func() { cfg.InputFile = ta.input })
	set("temp-dir", func() { cfg.TempDir = ta.tempDir })
	set("csv", func() { cfg.CSVFile = ta.csvFile })
	set("vmaf-model", func() { cfg.VMAFModel = ta.vmafModel })
	set("throughput", func() { cfg.Throughput = ta.throughput })
	set("cost-ratio", func() { cfg.CostRatio = ta.costRatio })
	set("wall-time", func() { cfg.WallTime = ta.wallTime })
	set("cores", func() { cfg.Cores = ta.cores })
	set("target", func() { cfg.Target = ta.target })
	set("epsilon", func() { cfg.Epsilon = ta.epsilon })
	set("mode", func() { cfg.Mode = ta.mode })
	set("width", func() { cfg.Width = ta.width })
	set("height", func() { cfg.Height = ta.height })
	set("bit-depth", func() { cfg.BitDepth = ta.bitDepth })
	set("no-two-pass", func() { cfg.TwoPass = !ta.noTwoPass })
	set("test-fwd-kf", func() { cfg.TestForwardKeyframes = ta.fwdKF })
	set("test-alt-tuning", func() { cfg.TestAltTuning = ta.altTuning })
	set("fast-cpu-level", func() { cfg.FastCPULevel = ta.cpuLevel })
	set("aomenc", func() { cfg.AomencPath = ta.aomenc })
	set("ffmpeg", func() { cfg.FFmpegPath = ta.ffmpeg })
	set("ffprobe", func() { cfg.FFprobePath = ta.ffprobe })
	set("vmaf", func() { cfg.VMAFPath = ta.vmaf })
	set("log-dir", func() { cfg.LogDir = ta.logDir })
	set("force", func() { cfg.Force = ta.force })

	if err := cfg.SelectGoal(flags.Changed("throughput"), flags.Changed("cost-ratio")); err != nil {
		return nil, err
	}
	// -p without -P measures wall time; -P always implies CPU time.
	if flags.Changed("cores") {
		cfg.WallTime = false
	}

	cfg.Normalize()
	if cfg.InputFile == "" {
		return nil, fmt.Errorf("input file is required (-i/--input)")
	}
	abs, err := filepath.Abs(cfg.InputFile)
	if err != nil {
		return nil, fmt.Errorf("invalid input path: %w", err)
	}
	cfg.InputFile = abs
	if _, err := os.Stat(cfg.InputFile); err != nil {
		return nil, fmt.Errorf("input file does not exist: %s", cfg.InputFile)
	}

	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.TempDir, "logs")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runTune(cmd *cobra.Command, ta *tuneArgs) error {
	cfg, err := buildConfig(cmd.Flags(), ta, cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.Setup(cfg.LogDir, ta.verbose, ta.noLog)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer func() { _ = logger.Close() }()
	logging.Init(logger.SlogLevel(), logger.Writer())

	logger.Section("Configuration")
	logger.Info("Input file: %s", cfg.InputFile)
	logger.Info("Temp directory: %s", cfg.TempDir)
	logger.Info("Mode: %s, target %.2f, epsilon %g", cfg.Mode, cfg.Target, cfg.Epsilon)
	logger.Info("Goal: %s (throughput %g, cost ratio %g, cores %g, wall time %v)",
		cfg.Goal, cfg.Throughput, cfg.CostRatio, cfg.Cores, cfg.WallTime)
	logger.Debug("Lattice: alt tunings %v, forward keyframes %v, fast cpu level %d",
		cfg.TestAltTuning, cfg.TestForwardKeyframes, cfg.FastCPULevel)

	var rep reporter.Reporter
	if ta.json {
		rep = reporter.NewJSONReporter()
	} else {
		rep = reporter.NewTerminalReporter(ta.verbose)
	}
	if !cfg.TwoPass {
		rep.Warning("Running with single-pass encodes")
	}
	if mode, _ := tune.ParseControlMode(cfg.Mode); mode == tune.Quantizer {
		rep.Warning("Quantizer mode is used; the resulting VMAF may not match the target")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Warn("Received %s, stopping", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := processing.Tune(ctx, cfg, rep)
	if err != nil {
		logger.Error("Tuning failed: %v", err)
		return errReported
	}

	logger.Section("Result")
	logger.Info("Result: %s %g at %s after %d trials (%s)",
		res.Result.Mode, res.Result.Control, res.Result.Speed, res.Result.History.Len(), res.Duration.Round(time.Second))
	logger.Info("Command: %s", res.Command)
	return nil
}
