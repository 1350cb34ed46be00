package ffprobe

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	scverrors "github.com/five82/scv/internal/errors"
)

// loadTestData loads a JSON fixture from the testdata directory.
func loadTestData(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("failed to load test data %s: %v", filename, err)
	}
	return data
}

func probeFixture(t *testing.T, filename string) (*SourceInfo, error) {
	t.Helper()
	probe, err := parseFFprobeOutput(loadTestData(t, filename))
	if err != nil {
		t.Fatalf("parseFFprobeOutput() error = %v", err)
	}
	return sourceInfo(probe, filename)
}

func TestSourceInfo_1080pSDR(t *testing.T) {
	info, err := probeFixture(t, "video_1080p_sdr.json")
	if err != nil {
		t.Fatalf("sourceInfo() error = %v", err)
	}

	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("resolution = %dx%d, want 1920x1080", info.Width, info.Height)
	}
	if info.FPSNum != 24000 || info.FPSDen != 1001 {
		t.Errorf("fps = %d/%d, want 24000/1001", info.FPSNum, info.FPSDen)
	}
	if info.Duration != 120.5 || !info.DurationReliable {
		t.Errorf("duration = %v reliable=%v, want 120.5 reliable", info.Duration, info.DurationReliable)
	}
	if info.Frames != 2889 {
		t.Errorf("Frames = %d, want 2889", info.Frames)
	}
	if info.BitDepth != 8 {
		t.Errorf("BitDepth = %d, want 8", info.BitDepth)
	}
	if info.CodecName != "h264" {
		t.Errorf("CodecName = %q, want h264", info.CodecName)
	}
	// 8128000 bit/s * 120.5 s / 8
	if info.Size != 122428000 {
		t.Errorf("Size = %d, want 122428000", info.Size)
	}
}

func TestSourceInfo_4K10Bit(t *testing.T) {
	info, err := probeFixture(t, "video_4k_10bit.json")
	if err != nil {
		t.Fatalf("sourceInfo() error = %v", err)
	}

	if info.BitDepth != 10 {
		t.Errorf("BitDepth = %d, want 10 from pix_fmt", info.BitDepth)
	}
	if info.FPS() != 25 {
		t.Errorf("FPS() = %v, want 25", info.FPS())
	}
	if info.Frames != 250 {
		t.Errorf("Frames = %d, want 250 derived from duration", info.Frames)
	}
	if info.Size != 50000000 {
		t.Errorf("Size = %d, want container size without a bit rate", info.Size)
	}
}

func TestSourceInfo_NoContainerDuration(t *testing.T) {
	info, err := probeFixture(t, "video_no_duration.json")
	if err != nil {
		t.Fatalf("sourceInfo() error = %v", err)
	}

	if info.DurationReliable {
		t.Error("stream duration should not be marked reliable")
	}
	if info.Duration != 60.06 {
		t.Errorf("Duration = %v, want 60.06", info.Duration)
	}
	if info.FPSNum != 30000 || info.FPSDen != 1001 {
		t.Errorf("fps = %d/%d, want r_frame_rate fallback 30000/1001", info.FPSNum, info.FPSDen)
	}
	if math.Abs(float64(info.Frames)-1800) > 1 {
		t.Errorf("Frames = %d, want about 1800", info.Frames)
	}
	if math.Abs(float64(info.Size)-45045000) > 1 {
		t.Errorf("Size = %d, want about 45045000", info.Size)
	}
}

func TestSourceInfo_NoVideoStream(t *testing.T) {
	_, err := probeFixture(t, "audio_only.json")
	if err == nil {
		t.Fatal("expected error for audio-only input")
	}
	if !scverrors.IsKind(err, scverrors.KindVideoInfo) {
		t.Errorf("error kind = %v, want video info", err)
	}
}

func TestParseFFprobeOutput_Invalid(t *testing.T) {
	_, err := parseFFprobeOutput([]byte("{not json"))
	if !scverrors.IsKind(err, scverrors.KindFFprobeParse) {
		t.Errorf("error = %v, want ffprobe parse error", err)
	}
}

func TestParseRational(t *testing.T) {
	tests := []struct {
		in       string
		num, den int
		ok       bool
	}{
		{"24000/1001", 24000, 1001, true},
		{"25/1", 25, 1, true},
		{"0/0", 0, 0, false},
		{"30", 0, 0, false},
		{"a/b", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			num, den, ok := parseRational(tt.in)
			if num != tt.num || den != tt.den || ok != tt.ok {
				t.Errorf("parseRational(%q) = %d, %d, %v; want %d, %d, %v", tt.in, num, den, ok, tt.num, tt.den, tt.ok)
			}
		})
	}
}

func TestBitDepth(t *testing.T) {
	tests := []struct {
		raw, pixFmt string
		want        int
	}{
		{"8", "yuv420p", 8},
		{"10", "yuv420p", 10},
		{"", "yuv420p10le", 10},
		{"", "yuv420p12le", 12},
		{"", "yuv420p", 8},
		{"N/A", "nv12", 8},
	}

	for _, tt := range tests {
		if got := bitDepth(tt.raw, tt.pixFmt); got != tt.want {
			t.Errorf("bitDepth(%q, %q) = %d, want %d", tt.raw, tt.pixFmt, got, tt.want)
		}
	}
}
