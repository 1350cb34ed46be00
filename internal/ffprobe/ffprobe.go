// Package ffprobe provides functions for extracting media information using ffprobe.
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	scverrors "github.com/five82/scv/internal/errors"
)

// SourceInfo contains the properties of the input video needed to prepare
// the test clip and drive the encoder.
type SourceInfo struct {
	Width     int
	Height    int
	FPSNum    int
	FPSDen    int
	CodecName string
	PixFmt    string
	BitDepth  int

	// Duration is in seconds. DurationReliable is false when ffprobe
	// reported no container duration and it was derived from the stream.
	Duration         float64
	DurationReliable bool

	Frames  uint64
	BitRate uint64

	// Size is the estimated byte size of the video stream.
	Size uint64
}

// FPS returns the frame rate as a float.
func (s *SourceInfo) FPS() float64 {
	if s.FPSDen == 0 {
		return 0
	}
	return float64(s.FPSNum) / float64(s.FPSDen)
}

// ffprobeOutput represents the JSON output from ffprobe.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
	BitRate  string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecType        string `json:"codec_type"`
	CodecName        string `json:"codec_name"`
	Width            int64  `json:"width"`
	Height           int64  `json:"height"`
	NbFrames         string `json:"nb_frames"`
	PixFmt           string `json:"pix_fmt"`
	AvgFrameRate     string `json:"avg_frame_rate"`
	RFrameRate       string `json:"r_frame_rate"`
	Duration         string `json:"duration"`
	BitRate          string `json:"bit_rate"`
	BitsPerRawSample string `json:"bits_per_raw_sample"`
}

// runFFprobe executes ffprobe and returns its raw JSON output.
func runFFprobe(ctx context.Context, ffprobePath, inputPath string) ([]byte, error) {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, scverrors.NewCancelledError()
		}
		return nil, scverrors.WrapExecError("ffprobe", err, stderr.String())
	}
	return output, nil
}

// parseFFprobeOutput decodes ffprobe's JSON output.
func parseFFprobeOutput(data []byte) (*ffprobeOutput, error) {
	var result ffprobeOutput
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, scverrors.NewFFprobeParseError(fmt.Sprintf("failed to parse ffprobe output: %v", err))
	}
	return &result, nil
}

// Probe returns the properties of the first video stream in inputPath.
func Probe(ctx context.Context, ffprobePath, inputPath string) (*SourceInfo, error) {
	output, err := runFFprobe(ctx, ffprobePath, inputPath)
	if err != nil {
		return nil, err
	}

	probe, err := parseFFprobeOutput(output)
	if err != nil {
		return nil, err
	}
	return sourceInfo(probe, inputPath)
}

// sourceInfo extracts SourceInfo from parsed ffprobe output.
func sourceInfo(probe *ffprobeOutput, inputPath string) (*SourceInfo, error) {
	var video *ffprobeStream
	for i := range probe.Streams {
		if probe.Streams[i].CodecType == "video" {
			video = &probe.Streams[i]
			break
		}
	}
	if video == nil {
		return nil, scverrors.NewVideoInfoError(fmt.Sprintf("no video stream found in %s", inputPath))
	}

	if video.Width <= 0 || video.Height <= 0 {
		return nil, scverrors.NewVideoInfoError(fmt.Sprintf("invalid dimensions in %s: %dx%d", inputPath, video.Width, video.Height))
	}

	num, den, ok := parseRational(video.AvgFrameRate)
	if !ok {
		num, den, ok = parseRational(video.RFrameRate)
	}
	if !ok {
		return nil, scverrors.NewVideoInfoError(fmt.Sprintf("unable to determine frame rate of %s", inputPath))
	}

	info := &SourceInfo{
		Width:     int(video.Width),
		Height:    int(video.Height),
		FPSNum:    num,
		FPSDen:    den,
		CodecName: video.CodecName,
		PixFmt:    video.PixFmt,
		BitDepth:  bitDepth(video.BitsPerRawSample, video.PixFmt),
	}

	if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil && d > 0 {
		info.Duration = d
		info.DurationReliable = true
	} else if d, err := strconv.ParseFloat(video.Duration, 64); err == nil && d > 0 {
		info.Duration = d
	}
	if info.Duration <= 0 {
		return nil, scverrors.NewVideoInfoError(fmt.Sprintf("unable to determine duration of %s", inputPath))
	}

	if frames, err := strconv.ParseUint(video.NbFrames, 10, 64); err == nil && frames > 0 {
		info.Frames = frames
	} else {
		info.Frames = uint64(info.Duration * info.FPS())
	}

	info.BitRate = parseUint(probe.Format.BitRate)
	if info.BitRate == 0 {
		info.BitRate = parseUint(video.BitRate)
	}
	if info.BitRate > 0 {
		info.Size = uint64(float64(info.BitRate) * info.Duration / 8)
	} else {
		info.Size = parseUint(probe.Format.Size)
	}

	return info, nil
}

// parseRational parses an ffprobe rate such as "24000/1001".
func parseRational(s string) (num, den int, ok bool) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil || n <= 0 {
		return 0, 0, false
	}
	d, err := strconv.Atoi(parts[1])
	if err != nil || d <= 0 {
		return 0, 0, false
	}
	return n, d, true
}

// bitDepth prefers bits_per_raw_sample and falls back to the pixel format name.
func bitDepth(rawSample, pixFmt string) int {
	if bd, err := strconv.Atoi(rawSample); err == nil && bd > 0 {
		return bd
	}
	switch {
	case strings.Contains(pixFmt, "12"):
		return 12
	case strings.Contains(pixFmt, "10"):
		return 10
	default:
		return 8
	}
}

func parseUint(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
