package ffmpeg

import (
	"slices"
	"strings"
	"testing"
)

func TestScaledResolution(t *testing.T) {
	tests := []struct {
		name          string
		srcW, srcH    int
		width, height int
		wantW, wantH  int
	}{
		{"keep source", 1920, 1080, 0, 0, 1920, 1080},
		{"aspect from height", 1920, 1080, 0, 720, 1280, 720},
		{"odd width rounded down", 1922, 1080, 0, 720, 1280, 720},
		{"cinemascope", 1920, 800, 0, 720, 1728, 720},
		{"explicit size", 1920, 1080, 640, 360, 640, 360},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := ScaledResolution(tt.srcW, tt.srcH, tt.width, tt.height)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("ScaledResolution() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestRawFrameSize(t *testing.T) {
	if got := RawFrameSize(1280, 720, 8); got != 1382400 {
		t.Errorf("8-bit frame = %d, want 1382400", got)
	}
	if got := RawFrameSize(1280, 720, 10); got != 2764800 {
		t.Errorf("10-bit frame = %d, want 2764800", got)
	}
}

func TestScaleFilters(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          string
	}{
		{"scaled", 1280, 720, "scale=1280:720,setsar=1"},
		{"no width", 0, 720, ""},
		{"no height", 1280, 0, ""},
		{"negative", -1, 720, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scaleFilters(tt.width, tt.height); got != tt.want {
				t.Errorf("scaleFilters(%d, %d) = %q, want %q", tt.width, tt.height, got, tt.want)
			}
		})
	}
}

func TestBuildConvertArgs(t *testing.T) {
	t.Run("scaled 10-bit", func(t *testing.T) {
		args := BuildConvertArgs(&ConvertParams{
			InputPath:   "in.mkv",
			OutputPath:  "/tmp/scv/rawsource.yuv",
			Width:       1280,
			Height:      720,
			PixelFormat: "yuv420p10le",
		})
		joined := strings.Join(args, " ")
		for _, want := range []string{"-i in.mkv", "-vf scale=1280:720,setsar=1", "-pix_fmt yuv420p10le", "-f rawvideo", "-an"} {
			if !strings.Contains(joined, want) {
				t.Errorf("args %q missing %q", joined, want)
			}
		}
		if args[len(args)-1] != "/tmp/scv/rawsource.yuv" {
			t.Errorf("output path should be last, got %q", args[len(args)-1])
		}
	})

	t.Run("unscaled default format", func(t *testing.T) {
		args := BuildConvertArgs(&ConvertParams{InputPath: "out.ivf", OutputPath: "raw.yuv"})
		if slices.Contains(args, "-vf") {
			t.Error("no scale filter expected without a size")
		}
		idx := slices.Index(args, "-pix_fmt")
		if idx < 0 || args[idx+1] != "yuv420p" {
			t.Errorf("expected default pixel format, got %v", args)
		}
	})
}
