// Package aomenc provides aomenc command building for tuning trials.
package aomenc

import (
	"fmt"
	"strings"

	"github.com/five82/scv/internal/speed"
	"github.com/five82/scv/internal/tune"
)

const aomencBinary = "aomenc"

// Pass selects which encoder pass a command runs.
type Pass int

const (
	// SinglePass runs a one-pass encode.
	SinglePass Pass = iota
	// FirstPass collects two-pass statistics.
	FirstPass
	// SecondPass produces the final output from the statistics.
	SecondPass
)

// Passes returns the passes needed for d. Two-pass encoding only applies
// to the good deadline.
func Passes(d speed.Descriptor, twoPass bool) []Pass {
	if twoPass && d.Deadline == speed.Good {
		return []Pass{FirstPass, SecondPass}
	}
	return []Pass{SinglePass}
}

// EncConfig contains configuration for one aomenc invocation.
type EncConfig struct {
	Input      string // Raw YUV input path
	Output     string // Output IVF path
	StatsFile  string // First pass statistics, required for two-pass
	Width      int
	Height     int
	FPSNum     int
	FPSDen     int
	BitDepth   int // Output bit depth
	InputDepth int // Bit depth of the raw input

	Mode    tune.ControlMode
	Control float64 // Bitrate in kbps or quantizer level
	Speed   speed.Descriptor
	Pass    Pass

	// KeyframeDistance is the maximum keyframe interval in frames.
	KeyframeDistance int
}

// KeyframeDistance returns one keyframe interval per ten seconds of video.
func KeyframeDistance(fpsNum, fpsDen int) int {
	if fpsDen <= 0 {
		return 0
	}
	return int(float64(fpsNum) / float64(fpsDen) * 10)
}

// BuildArgs constructs the argument list for aomenc.
func BuildArgs(cfg *EncConfig) []string {
	inputDepth := cfg.InputDepth
	if inputDepth == 0 {
		inputDepth = cfg.BitDepth
	}

	args := []string{
		fmt.Sprintf("--bit-depth=%d", cfg.BitDepth),
		fmt.Sprintf("--width=%d", cfg.Width),
		fmt.Sprintf("--height=%d", cfg.Height),
		fmt.Sprintf("--fps=%d/%d", cfg.FPSNum, cfg.FPSDen),
	}

	switch cfg.Pass {
	case FirstPass, SecondPass:
		args = append(args, "--passes=2", fmt.Sprintf("--pass=%d", cfg.Pass))
		if cfg.StatsFile != "" {
			args = append(args, "--fpf="+cfg.StatsFile)
		}
	default:
		args = append(args, "--passes=1", "--pass=1")
	}

	args = append(args, fmt.Sprintf("--input-bit-depth=%d", inputDepth))

	if cfg.Speed.Deadline == speed.Realtime {
		args = append(args, "--rt")
	} else {
		args = append(args, "--good")
	}

	if cfg.Mode == tune.Quantizer {
		q := int(cfg.Control)
		args = append(args, "--end-usage=cq", fmt.Sprintf("--cq-level=%d", q))
		if q == 0 {
			args = append(args, "--lossless=1")
		}
	} else {
		args = append(args, "--end-usage=vbr", "--bias-pct=100",
			fmt.Sprintf("--target-bitrate=%d", int(cfg.Control)))
	}

	args = append(args,
		fmt.Sprintf("--cpu-used=%d", cfg.Speed.CPULevel),
		"--tune="+cfg.Speed.Tuning.String(),
	)

	fwdKF := "0"
	if cfg.Speed.ForwardKeyframes {
		fwdKF = "1"
	}
	args = append(args, "--enable-fwd-kf="+fwdKF)
	if cfg.KeyframeDistance > 0 {
		args = append(args, fmt.Sprintf("--kf-max-dist=%d", cfg.KeyframeDistance))
	}

	args = append(args, "--ivf", "--output="+cfg.Output, cfg.Input)
	return args
}

// CommandLine returns a shell-friendly rendering of an aomenc invocation.
func CommandLine(binary string, cfg *EncConfig) string {
	if binary == "" {
		binary = aomencBinary
	}
	parts := []string{binary}
	for _, arg := range BuildArgs(cfg) {
		parts = append(parts, quote(arg))
	}
	return strings.Join(parts, " ")
}

// quote wraps arguments containing shell metacharacters in single quotes.
func quote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`;&|<>()*?[]{}!#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
