// Package vmaf scores an encoded trial against the raw test clip.
package vmaf

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	scverrors "github.com/five82/scv/internal/errors"
	"github.com/five82/scv/internal/logging"
)

const vmafBinary = "vmafossexec"

// Scorer runs the VMAF command line tool.
type Scorer struct {
	// Binary is the scorer executable. Defaults to vmafossexec.
	Binary string
	// Model is the path of the VMAF model file.
	Model string
}

// Frames describes the raw clips being compared.
type Frames struct {
	PixelFormat string
	Width       int
	Height      int
	Reference   string
	Distorted   string
}

var scoreRegex = regexp.MustCompile(`VMAF score\s*[=:]\s*([0-9]+(?:\.[0-9]+)?)`)

// BuildArgs returns the vmafossexec arguments for f.
func (s *Scorer) BuildArgs(f Frames) []string {
	pixFmt := f.PixelFormat
	if pixFmt == "" {
		pixFmt = "yuv420p"
	}
	return []string{
		pixFmt,
		strconv.Itoa(f.Width),
		strconv.Itoa(f.Height),
		f.Reference,
		f.Distorted,
		s.Model,
	}
}

// Score runs the scorer and returns the aggregate VMAF score.
func (s *Scorer) Score(ctx context.Context, f Frames) (float64, error) {
	binary := s.Binary
	if binary == "" {
		binary = vmafBinary
	}
	args := s.BuildArgs(f)
	logging.Component("vmaf").Debug("running vmaf", "binary", binary, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, binary, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, scverrors.NewCancelledError()
		}
		return 0, scverrors.WrapExecError(binary, err, out.String())
	}

	return ParseScore(out.String())
}

// ParseScore extracts the aggregate score from scorer output. When the
// output holds several scores the last one wins.
func ParseScore(output string) (float64, error) {
	matches := scoreRegex.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return 0, scverrors.NewMetricParseError("no VMAF score in scorer output")
	}

	value := matches[len(matches)-1][1]
	score, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, scverrors.NewMetricParseError(fmt.Sprintf("invalid VMAF score %q", value))
	}
	if score < 0 || score > 100 {
		return 0, scverrors.NewMetricParseError(fmt.Sprintf("VMAF score %g out of range", score))
	}
	return score, nil
}
