// Package config provides configuration types and defaults for scv.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/five82/scv/internal/speed"
	"github.com/five82/scv/internal/tune"
)

// Default constants
const (
	// DefaultTempDir holds the raw test clip and trial outputs.
	DefaultTempDir = "/tmp/scv"

	// DefaultVMAFModel is the model passed to the VMAF scorer.
	DefaultVMAFModel = "/usr/share/model/vmaf_v0.6.1.pkl"

	// DefaultTarget is the desired VMAF score.
	DefaultTarget = 95.0

	// DefaultEpsilon is the acceptable VMAF deviation in the refine phase.
	DefaultEpsilon = 0.05

	// DefaultCostRatio values halving the output size as much as a tenfold slowdown.
	DefaultCostRatio = 10.0

	// DefaultThroughput is seconds of video per second of encoding time.
	DefaultThroughput = 0.01

	// DefaultCores is the core multiplier applied to CPU time.
	DefaultCores = 1.0

	// DefaultHeight is the test clip height. 0 keeps the source height.
	DefaultHeight = 720

	// DefaultBitDepth is the test clip and encoder output bit depth.
	DefaultBitDepth = 8

	// GoalThroughput and GoalCostRatio name the speed goals.
	GoalThroughput = "throughput"
	GoalCostRatio  = "cost-ratio"
)

// Config holds all configuration for a tuning run.
type Config struct {
	// Input/output paths
	InputFile string `yaml:"input"`
	TempDir   string `yaml:"temp_dir"`
	CSVFile   string `yaml:"csv"`
	LogDir    string `yaml:"log_dir"`
	Force     bool   `yaml:"force"` // Overwrite an existing CSV file

	// External tools
	AomencPath  string `yaml:"aomenc"`
	FFmpegPath  string `yaml:"ffmpeg"`
	FFprobePath string `yaml:"ffprobe"`
	VMAFPath    string `yaml:"vmaf"`
	VMAFModel   string `yaml:"vmaf_model"`

	// Test clip
	Width    int  `yaml:"width"`  // 0 preserves aspect ratio
	Height   int  `yaml:"height"` // 0 disables rescaling
	BitDepth int  `yaml:"bit_depth"`
	TwoPass  bool `yaml:"two_pass"`

	// Search
	Mode                 string  `yaml:"mode"`
	Target               float64 `yaml:"target"`
	Epsilon              float64 `yaml:"epsilon"`
	Goal                 string  `yaml:"goal"`
	Throughput           float64 `yaml:"throughput"`
	CostRatio            float64 `yaml:"cost_ratio"`
	Cores                float64 `yaml:"cores"`
	WallTime             bool    `yaml:"wall_time"`
	TestAltTuning        bool    `yaml:"test_alt_tuning"`
	TestForwardKeyframes bool    `yaml:"test_forward_keyframes"`
	FastCPULevel         int     `yaml:"fast_cpu_level"`
	DefaultBitrate       float64 `yaml:"default_bitrate"`
	DefaultQuantizer     float64 `yaml:"default_quantizer"`
	MaxRounds            int     `yaml:"max_rounds"`
}

// NewConfig creates a new Config with default values.
func NewConfig(inputFile, tempDir, logDir string) *Config {
	if tempDir == "" {
		tempDir = DefaultTempDir
	}
	return &Config{
		InputFile:        inputFile,
		TempDir:          tempDir,
		LogDir:           logDir,
		AomencPath:       "aomenc",
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
		VMAFPath:         "vmafossexec",
		VMAFModel:        DefaultVMAFModel,
		Height:           DefaultHeight,
		BitDepth:         DefaultBitDepth,
		TwoPass:          true,
		Mode:             tune.Bitrate.String(),
		Target:           DefaultTarget,
		Epsilon:          DefaultEpsilon,
		Goal:             GoalThroughput,
		Throughput:       DefaultThroughput,
		CostRatio:        DefaultCostRatio,
		Cores:            DefaultCores,
		FastCPULevel:     speed.DefaultFastCPULevel,
		DefaultBitrate:   tune.DefaultBitrate,
		DefaultQuantizer: tune.DefaultQuantizer,
		MaxRounds:        tune.DefaultMaxRounds,
	}
}

// SelectGoal records which speed goal was explicitly requested.
func (c *Config) SelectGoal(throughputSet, costRatioSet bool) error {
	switch {
	case throughputSet && costRatioSet:
		return fmt.Errorf("%w: pass either a throughput target or a cost ratio", ErrConflictingSpeedGoal)
	case costRatioSet:
		c.Goal = GoalCostRatio
	case throughputSet:
		c.Goal = GoalThroughput
	}
	return nil
}

// Normalize applies shorthand settings. A negative epsilon selects
// quantizer mode.
func (c *Config) Normalize() {
	if c.Epsilon < 0 {
		c.Mode = tune.Quantizer.String()
		c.Epsilon = -c.Epsilon
	}
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	c.Goal = strings.ToLower(strings.TrimSpace(c.Goal))
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return ErrMissingInput
	}

	mode, err := tune.ParseControlMode(c.Mode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMode, err)
	}

	if c.Target < 0 || c.Target > 100 {
		return fmt.Errorf("%w: must be 0-100, got %g", ErrInvalidTarget, c.Target)
	}

	if mode == tune.Bitrate && c.Epsilon <= 0 {
		return fmt.Errorf("%w: must be positive in bitrate mode, got %g", ErrInvalidEpsilon, c.Epsilon)
	}

	if c.DefaultQuantizer < 0 || c.DefaultQuantizer > tune.MaxQuantizer {
		return fmt.Errorf("%w: must be 0-%g, got %g", ErrInvalidQuantizer, tune.MaxQuantizer, c.DefaultQuantizer)
	}

	switch c.Goal {
	case GoalThroughput:
		if c.Throughput <= 0 {
			return fmt.Errorf("%w: must be positive, got %g", ErrInvalidThroughput, c.Throughput)
		}
	case GoalCostRatio:
	default:
		return fmt.Errorf("%w: %q, valid options: throughput, cost-ratio", ErrInvalidGoal, c.Goal)
	}

	if c.Cores <= 0 {
		return fmt.Errorf("%w: must be positive, got %g", ErrInvalidCores, c.Cores)
	}

	switch c.BitDepth {
	case 8, 10, 12:
	default:
		return fmt.Errorf("%w: must be 8, 10 or 12, got %d", ErrInvalidBitDepth, c.BitDepth)
	}

	if c.FastCPULevel < 1 || c.FastCPULevel > speed.MaxCPULevel {
		return fmt.Errorf("%w: must be 1-%d, got %d", ErrInvalidCPULevel, speed.MaxCPULevel, c.FastCPULevel)
	}

	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidResolution, c.Width, c.Height)
	}

	return nil
}

// TuneConfig derives the search configuration. Call Validate first.
func (c *Config) TuneConfig() tune.Config {
	cfg := tune.DefaultConfig()

	if mode, err := tune.ParseControlMode(c.Mode); err == nil {
		cfg.Mode = mode
	}
	cfg.Target = c.Target
	cfg.Epsilon = c.Epsilon
	cfg.Throughput = c.Throughput
	cfg.CostRatio = c.CostRatio
	cfg.Cores = c.Cores

	cfg.Goal = tune.GoalThroughput
	if c.Goal == GoalCostRatio {
		cfg.Goal = tune.GoalCostRatio
	}

	cfg.Basis = tune.CPUTime
	if c.WallTime {
		cfg.Basis = tune.WallTime
	}

	cfg.Lattice = speed.Flags{
		TestAltTuning:        c.TestAltTuning,
		TestForwardKeyframes: c.TestForwardKeyframes,
	}
	cfg.FastCPULevel = c.FastCPULevel
	if c.DefaultBitrate > 0 {
		cfg.DefaultBitrate = c.DefaultBitrate
	}
	cfg.DefaultQuantizer = c.DefaultQuantizer
	if c.MaxRounds > 0 {
		cfg.MaxRounds = c.MaxRounds
	}
	return cfg
}

// RawSourcePath returns where the converted test clip is written.
func (c *Config) RawSourcePath() string {
	return filepath.Join(c.TempDir, "rawsource.yuv")
}

// PixelFormat returns the ffmpeg pixel format for the configured bit depth.
func (c *Config) PixelFormat() string {
	switch c.BitDepth {
	case 10:
		return "yuv420p10le"
	case 12:
		return "yuv420p12le"
	default:
		return "yuv420p"
	}
}
