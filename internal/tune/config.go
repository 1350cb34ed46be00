// Package tune implements the adaptive trial search that picks an encoder
// control value and speed setting for a target perceptual quality.
package tune

import (
	"fmt"
	"math"
	"strings"

	scverrors "github.com/five82/scv/internal/errors"
	"github.com/five82/scv/internal/speed"
)

// ControlMode selects which encoder parameter drives output quality.
type ControlMode int

const (
	// Bitrate tunes the encoder's target bitrate (kbit/s).
	Bitrate ControlMode = iota
	// Quantizer tunes a constant quality level; lower is better quality.
	Quantizer
)

// String returns the mode name.
func (m ControlMode) String() string {
	switch m {
	case Bitrate:
		return "bitrate"
	case Quantizer:
		return "quantizer"
	default:
		return "unknown"
	}
}

// ParseControlMode converts a mode name into a ControlMode.
func ParseControlMode(s string) (ControlMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bitrate", "vbr":
		return Bitrate, nil
	case "quantizer", "q", "cq":
		return Quantizer, nil
	default:
		return 0, fmt.Errorf("unknown control mode %q (expected bitrate or quantizer)", s)
	}
}

// SpeedGoal selects how the speed search decides when to stop.
type SpeedGoal int

const (
	// GoalThroughput stops at the slowest setting that still encodes the
	// configured seconds of video per second of elapsed time.
	GoalThroughput SpeedGoal = iota
	// GoalCostRatio walks the whole lattice and picks the best size-vs-time tradeoff.
	GoalCostRatio
)

// String returns the goal name.
func (g SpeedGoal) String() string {
	switch g {
	case GoalThroughput:
		return "throughput"
	case GoalCostRatio:
		return "cost-ratio"
	default:
		return "unknown"
	}
}

// CostBasis selects which clock measures trial cost.
type CostBasis int

const (
	// CPUTime uses the net CPU time of all encoder passes.
	CPUTime CostBasis = iota
	// WallTime uses elapsed real time.
	WallTime
)

// String returns the basis name.
func (b CostBasis) String() string {
	if b == WallTime {
		return "wall"
	}
	return "cpu"
}

// Search constants.
const (
	DefaultBitrate   = 10000.0
	DefaultQuantizer = 30.0
	MaxQuantizer     = 68.0
	QuantizerStep    = 8.0
	DefaultMaxRounds = 30

	// inflationFactor raises the Phase 1 target because the fastest
	// settings undershoot quality at a given rate.
	inflationFactor = 0.3
	// estimateTolerance is the Phase 1 bitrate stop distance.
	estimateTolerance = 1.0
)

// Config is the read-only run configuration consumed by the Controller.
type Config struct {
	Mode ControlMode

	// Target is the desired quality score (0-100).
	Target float64

	// Epsilon is the acceptable distance from Target in the refine phase.
	Epsilon float64

	Goal SpeedGoal

	// Throughput is seconds of video per second of elapsed time.
	Throughput float64

	// Cores scales CPU time into elapsed time for the throughput goal.
	Cores float64

	// CostRatio is how many times longer the user will wait to halve the output size.
	// A ratio <= 0 skips the speed search and uses the slowest setting.
	CostRatio float64

	Basis CostBasis

	Lattice      speed.Flags
	FastCPULevel int

	DefaultBitrate   float64
	DefaultQuantizer float64

	// MaxRounds bounds the trial count of the rate phases.
	MaxRounds int
}

// DefaultConfig returns a Config with the tool's defaults.
func DefaultConfig() Config {
	return Config{
		Mode:             Bitrate,
		Target:           95,
		Epsilon:          0.05,
		Goal:             GoalThroughput,
		Throughput:       0.01,
		Cores:            1,
		CostRatio:        10,
		Basis:            CPUTime,
		FastCPULevel:     speed.DefaultFastCPULevel,
		DefaultBitrate:   DefaultBitrate,
		DefaultQuantizer: DefaultQuantizer,
		MaxRounds:        DefaultMaxRounds,
	}
}

// Validate rejects contradictory or out-of-range settings.
func (c Config) Validate() error {
	if c.Mode != Bitrate && c.Mode != Quantizer {
		return scverrors.NewConfigError(fmt.Sprintf("unknown control mode %d", c.Mode))
	}
	if c.Target < 0 || c.Target > 100 {
		return scverrors.NewConfigError(fmt.Sprintf("quality target %.2f outside 0-100", c.Target))
	}
	if c.Mode == Bitrate && c.Epsilon <= 0 {
		return scverrors.NewConfigError(fmt.Sprintf("epsilon must be positive in bitrate mode, got %.3f", c.Epsilon))
	}
	switch c.Goal {
	case GoalThroughput:
		if c.Throughput <= 0 {
			return scverrors.NewConfigError(fmt.Sprintf("throughput target must be positive, got %.4f", c.Throughput))
		}
		if c.Cores <= 0 {
			return scverrors.NewConfigError(fmt.Sprintf("core multiplier must be positive, got %.2f", c.Cores))
		}
	case GoalCostRatio:
	default:
		return scverrors.NewConfigError(fmt.Sprintf("unknown speed goal %d", c.Goal))
	}
	if c.FastCPULevel < 1 || c.FastCPULevel > speed.MaxCPULevel {
		return scverrors.NewConfigError(fmt.Sprintf("fast cpu level %d outside 1-%d", c.FastCPULevel, speed.MaxCPULevel))
	}
	if c.DefaultBitrate <= 0 {
		return scverrors.NewConfigError(fmt.Sprintf("default bitrate must be positive, got %.0f", c.DefaultBitrate))
	}
	if c.DefaultQuantizer < 0 || c.DefaultQuantizer > MaxQuantizer {
		return scverrors.NewConfigError(fmt.Sprintf("default quantizer %.0f outside 0-%.0f", c.DefaultQuantizer, MaxQuantizer))
	}
	if c.MaxRounds < 1 {
		return scverrors.NewConfigError(fmt.Sprintf("max rounds must be at least 1, got %d", c.MaxRounds))
	}
	return nil
}

// InflatedTarget returns the quality aimed for during rate estimation.
func (c Config) InflatedTarget() float64 {
	return c.Target + (100-c.Target)*inflationFactor
}

// defaultControl returns the first value tried in an empty phase.
func (c Config) defaultControl() float64 {
	if c.Mode == Quantizer {
		return c.DefaultQuantizer
	}
	return c.DefaultBitrate
}

// encodable truncates a bitrate proposal to the whole kbps value the encoder
// is given. Quantizer proposals are already integral.
func (c Config) encodable(v float64) float64 {
	if c.Mode == Quantizer {
		return v
	}
	return math.Max(1, math.Trunc(v))
}

// skipsSpeedSearch reports whether the speed search runs no trials.
func (c Config) skipsSpeedSearch() bool {
	return c.Goal == GoalCostRatio && c.CostRatio <= 0
}
