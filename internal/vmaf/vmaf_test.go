package vmaf

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	scverrors "github.com/five82/scv/internal/errors"
)

func TestParseScore(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "vmafossexec.txt"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := ParseScore(string(data))
	if err != nil {
		t.Fatalf("ParseScore() error = %v", err)
	}
	if got != 95.102474 {
		t.Errorf("ParseScore() = %v, want 95.102474", got)
	}
}

func TestParseScoreVariants(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    float64
		wantErr bool
	}{
		{"plain", "VMAF score = 87.5\n", 87.5, false},
		{"colon", "VMAF score: 99\n", 99, false},
		{"last wins", "VMAF score = 10\nVMAF score = 20.25\n", 20.25, false},
		{"integer perfect", "VMAF score = 100", 100, false},
		{"missing", "Exec FPS: 41.3\n", 0, true},
		{"empty", "", 0, true},
		{"out of range", "VMAF score = 140.2", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScore(tt.output)
			if tt.wantErr {
				if !scverrors.IsKind(err, scverrors.KindMetricParse) {
					t.Errorf("ParseScore() error = %v, want metric parse error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseScore() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildArgs(t *testing.T) {
	s := &Scorer{Model: "/usr/share/model/vmaf_v0.6.1.pkl"}
	args := s.BuildArgs(Frames{
		Width:     1280,
		Height:    720,
		Reference: "/tmp/scv/rawsource.yuv",
		Distorted: "/tmp/scv/rawoutput.yuv",
	})

	want := []string{"yuv420p", "1280", "720", "/tmp/scv/rawsource.yuv", "/tmp/scv/rawoutput.yuv", "/usr/share/model/vmaf_v0.6.1.pkl"}
	if !slices.Equal(args, want) {
		t.Errorf("BuildArgs() = %v, want %v", args, want)
	}

	args = s.BuildArgs(Frames{PixelFormat: "yuv420p10le", Width: 1, Height: 1})
	if args[0] != "yuv420p10le" {
		t.Errorf("pixel format = %q, want yuv420p10le", args[0])
	}
}
