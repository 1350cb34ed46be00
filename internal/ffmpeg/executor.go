package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	scverrors "github.com/five82/scv/internal/errors"
	"github.com/five82/scv/internal/logging"
	"github.com/five82/scv/internal/util"
)

// Progress represents conversion progress information.
type Progress struct {
	CurrentFrame uint64
	TotalFrames  uint64
	Percent      float32
	Speed        float32
	FPS          float32
	ETA          time.Duration
	ElapsedSecs  float64
}

// ProgressCallback is called with progress updates during conversion.
type ProgressCallback func(Progress)

// maxStderrTail bounds how much ffmpeg output is kept for error reports.
const maxStderrTail = 4096

var timeRegex = regexp.MustCompile(`time=(\d{2}:\d{2}:\d{2}(?:\.\d+)?)`)

// RunConvert writes the raw test clip described by params. ffmpegPath
// defaults to "ffmpeg" when empty.
func RunConvert(ctx context.Context, ffmpegPath string, params *ConvertParams, totalFrames uint64, callback ProgressCallback) error {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	args := BuildConvertArgs(params)
	logging.Debug("running ffmpeg", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return scverrors.NewCommandStartError("ffmpeg", err)
	}
	if err := cmd.Start(); err != nil {
		return scverrors.NewCommandStartError("ffmpeg", err)
	}

	tail := &tailBuffer{max: maxStderrTail}
	watchProgress(io.TeeReader(stderr, tail), params.Duration, totalFrames, callback)

	err = cmd.Wait()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return scverrors.NewCancelledError()
	}

	out := tail.String()
	if strings.Contains(out, "No streams found") || strings.Contains(out, "does not contain any stream") {
		return scverrors.NewFFmpegError("no video stream found in " + params.InputPath)
	}
	return scverrors.WrapExecError("ffmpeg", err, out)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}

// scanProgressLines splits on either line terminator; ffmpeg rewrites its
// status line with bare carriage returns.
func scanProgressLines(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// watchProgress consumes r until EOF, forwarding each status line to callback.
func watchProgress(r io.Reader, duration float64, totalFrames uint64, callback ProgressCallback) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	scanner.Split(scanProgressLines)
	for scanner.Scan() {
		line := scanner.Text()
		if callback == nil || !strings.Contains(line, "frame=") {
			continue
		}
		callback(parseProgressLine(line, duration, totalFrames))
	}
	// Drain after a scanner error so ffmpeg never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

// fieldValue returns the token following key in an ffmpeg status line.
// ffmpeg pads values, so "frame=   42" yields "42".
func fieldValue(line, key string) (string, bool) {
	_, rest, ok := strings.Cut(line, key)
	if !ok {
		return "", false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}

func parseProgressLine(line string, duration float64, totalFrames uint64) Progress {
	p := Progress{TotalFrames: totalFrames}

	if m := timeRegex.FindStringSubmatch(line); m != nil {
		p.ElapsedSecs, _ = util.ParseClock(m[1])
	}
	if v, ok := fieldValue(line, "frame="); ok {
		p.CurrentFrame, _ = strconv.ParseUint(v, 10, 64)
	}
	if v, ok := fieldValue(line, "fps="); ok {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			p.FPS = float32(f)
		}
	}
	if v, ok := fieldValue(line, "speed="); ok {
		if s, err := strconv.ParseFloat(strings.TrimSuffix(v, "x"), 32); err == nil {
			p.Speed = float32(s)
		}
	}

	switch {
	case duration > 0:
		p.Percent = float32(p.ElapsedSecs / duration * 100)
	case totalFrames > 0:
		p.Percent = float32(float64(p.CurrentFrame) / float64(totalFrames) * 100)
	}
	p.Percent = min(p.Percent, 100)

	if p.Speed > 0 && duration > p.ElapsedSecs {
		p.ETA = time.Duration((duration - p.ElapsedSecs) / float64(p.Speed) * float64(time.Second)).Truncate(time.Second)
	}
	return p
}
