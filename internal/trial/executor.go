// Package trial runs encode-and-score trials for the tuning search.
package trial

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/five82/scv/internal/aomenc"
	scverrors "github.com/five82/scv/internal/errors"
	"github.com/five82/scv/internal/ffmpeg"
	"github.com/five82/scv/internal/logging"
	"github.com/five82/scv/internal/tune"
	"github.com/five82/scv/internal/util"
	"github.com/five82/scv/internal/vmaf"
)

// File names inside the work directory.
const (
	outputName    = "output.ivf"
	statsName     = "pass.fpf"
	rawOutputName = "rawoutput.yuv"
)

// Options configures an Executor.
type Options struct {
	AomencPath string
	FFmpegPath string
	Scorer     *vmaf.Scorer

	// WorkDir receives the encoded and decoded trial outputs.
	WorkDir string

	// BitDepth is the encoder output depth. PixelFormat is the raw clip
	// format, shared by the decoded output.
	BitDepth    int
	PixelFormat string

	TwoPass bool
}

// usage is the cost of one external command.
type usage struct {
	CPU  float64
	Wall float64
}

type (
	commandFunc func(ctx context.Context, name string, args []string) (usage, error)
	decodeFunc  func(ctx context.Context, ffmpegPath string, params *ffmpeg.ConvertParams, totalFrames uint64, cb ffmpeg.ProgressCallback) error
	scorer      interface {
		Score(ctx context.Context, f vmaf.Frames) (float64, error)
	}
)

// Executor encodes the test clip with aomenc, decodes the result and scores
// it with VMAF. It implements tune.Executor.
type Executor struct {
	opts   Options
	run    commandFunc
	decode decodeFunc
	score  scorer
}

var _ tune.Executor = (*Executor)(nil)

// NewExecutor creates an executor.
func NewExecutor(opts Options) *Executor {
	s := opts.Scorer
	if s == nil {
		s = &vmaf.Scorer{}
	}
	return &Executor{
		opts:   opts,
		run:    runCommand,
		decode: ffmpeg.RunConvert,
		score:  s,
	}
}

// EncoderConfig returns the aomenc configuration for req and pass.
func (e *Executor) EncoderConfig(req tune.Request, pass aomenc.Pass) *aomenc.EncConfig {
	src := req.Source
	return &aomenc.EncConfig{
		Input:            src.Path,
		Output:           filepath.Join(e.opts.WorkDir, outputName),
		StatsFile:        filepath.Join(e.opts.WorkDir, statsName),
		Width:            src.Width,
		Height:           src.Height,
		FPSNum:           src.FPSNum,
		FPSDen:           src.FPSDen,
		BitDepth:         e.opts.BitDepth,
		InputDepth:       src.BitDepth,
		Mode:             req.Mode,
		Control:          req.Control,
		Speed:            req.Speed,
		Pass:             pass,
		KeyframeDistance: aomenc.KeyframeDistance(src.FPSNum, src.FPSDen),
	}
}

// Run executes one trial.
func (e *Executor) Run(ctx context.Context, req tune.Request) (tune.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return tune.Measurement{}, scverrors.NewCancelledError()
	}
	defer e.cleanup()

	var m tune.Measurement
	for i, pass := range aomenc.Passes(req.Speed, e.opts.TwoPass) {
		args := aomenc.BuildArgs(e.EncoderConfig(req, pass))
		u, err := e.run(ctx, e.aomencPath(), args)
		if err != nil {
			return tune.Measurement{}, err
		}
		if i == 0 {
			m.CPUTimePass1 = u.CPU
		} else {
			m.CPUTimePass2 = u.CPU
		}
		m.WallTime += u.Wall
	}

	output := filepath.Join(e.opts.WorkDir, outputName)
	size, err := util.FileSize(output)
	if err != nil {
		return tune.Measurement{}, scverrors.NewIOError("encoder produced no output", err)
	}
	m.OutputSize = size

	rawOutput := filepath.Join(e.opts.WorkDir, rawOutputName)
	err = e.decode(ctx, e.opts.FFmpegPath, &ffmpeg.ConvertParams{
		InputPath:   output,
		OutputPath:  rawOutput,
		PixelFormat: e.opts.PixelFormat,
	}, 0, nil)
	if err != nil {
		return tune.Measurement{}, err
	}

	quality, err := e.score.Score(ctx, vmaf.Frames{
		PixelFormat: e.opts.PixelFormat,
		Width:       req.Source.Width,
		Height:      req.Source.Height,
		Reference:   req.Source.Path,
		Distorted:   rawOutput,
	})
	if err != nil {
		return tune.Measurement{}, err
	}
	m.Quality = quality

	logging.Component("trial").Debug("trial measured",
		"control", req.Control,
		"speed", req.Speed.String(),
		"vmaf", m.Quality,
		"cpu", m.CPUTimePass1+m.CPUTimePass2,
		"wall", m.WallTime,
		"size", m.OutputSize)
	return m, nil
}

func (e *Executor) aomencPath() string {
	if e.opts.AomencPath == "" {
		return "aomenc"
	}
	return e.opts.AomencPath
}

// cleanup removes per-trial files. The raw test clip is left in place.
func (e *Executor) cleanup() {
	for _, name := range []string{outputName, statsName, rawOutputName} {
		path := filepath.Join(e.opts.WorkDir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.Component("trial").Warn("failed to remove trial file", "path", path, "error", err)
		}
	}
}

// runCommand runs name to completion and reports the CPU time it and its
// children consumed together with the elapsed wall time.
func runCommand(ctx context.Context, name string, args []string) (usage, error) {
	logging.Component("trial").Debug("running command", "name", name, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	cpuBefore := childCPUTime()
	start := time.Now()
	err := cmd.Run()
	wall := time.Since(start).Seconds()
	cpu := childCPUTime() - cpuBefore

	if err != nil {
		if ctx.Err() != nil {
			return usage{}, scverrors.NewCancelledError()
		}
		return usage{}, scverrors.WrapExecError(name, err, lastLines(stderr.String(), 20))
	}

	if cpu <= 0 && cmd.ProcessState != nil {
		cpu = (cmd.ProcessState.UserTime() + cmd.ProcessState.SystemTime()).Seconds()
	}
	return usage{CPU: cpu, Wall: wall}, nil
}

// lastLines returns at most n trailing lines of s.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
