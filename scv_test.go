package scv

import (
	"context"
	"errors"
	"testing"

	"github.com/five82/scv/internal/config"
	"github.com/five82/scv/internal/processing"
	"github.com/five82/scv/internal/speed"
	"github.com/five82/scv/internal/tune"
)

func TestNewDefaults(t *testing.T) {
	tuner, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cfg := tuner.config
	if cfg.Target != config.DefaultTarget || cfg.Goal != config.GoalThroughput || !cfg.TwoPass {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.InputFile != "" {
		t.Errorf("InputFile = %q, want empty until Tune", cfg.InputFile)
	}
}

func TestNewOptions(t *testing.T) {
	tuner, err := New(
		WithTarget(93),
		WithCostRatio(4),
		WithCores(8),
		WithWallTime(),
		WithAltTuning(),
		WithForwardKeyframes(),
		WithFastCPULevel(8),
		WithResolution(0, 1080),
		WithBitDepth(10),
		WithSinglePass(),
		WithTempDir("/scratch"),
		WithCSV("/scratch/out.csv", true),
		WithTools("/opt/aomenc", "", "", "/opt/vmafossexec"),
		WithVMAFModel("/opt/model.pkl"),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cfg := tuner.config
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"target", cfg.Target, 93.0},
		{"goal", cfg.Goal, config.GoalCostRatio},
		{"cost ratio", cfg.CostRatio, 4.0},
		{"cores", cfg.Cores, 8.0},
		{"wall time", cfg.WallTime, true},
		{"alt tuning", cfg.TestAltTuning, true},
		{"forward keyframes", cfg.TestForwardKeyframes, true},
		{"cpu level", cfg.FastCPULevel, 8},
		{"height", cfg.Height, 1080},
		{"bit depth", cfg.BitDepth, 10},
		{"two pass", cfg.TwoPass, false},
		{"temp dir", cfg.TempDir, "/scratch"},
		{"csv", cfg.CSVFile, "/scratch/out.csv"},
		{"force", cfg.Force, true},
		{"aomenc", cfg.AomencPath, "/opt/aomenc"},
		{"ffmpeg default kept", cfg.FFmpegPath, "ffmpeg"},
		{"vmaf", cfg.VMAFPath, "/opt/vmafossexec"},
		{"model", cfg.VMAFModel, "/opt/model.pkl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{"target above 100", WithTarget(101), config.ErrInvalidTarget},
		{"zero throughput", WithThroughput(0), config.ErrInvalidThroughput},
		{"zero cores", WithCores(0), config.ErrInvalidCores},
		{"bit depth 9", WithBitDepth(9), config.ErrInvalidBitDepth},
		{"cpu level 0", WithFastCPULevel(0), config.ErrInvalidCPULevel},
		{"zero epsilon in bitrate mode", WithEpsilon(0), config.ErrInvalidEpsilon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opt); !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewRejectsConflictingSpeedGoals(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"throughput then cost ratio", []Option{WithThroughput(0.05), WithCostRatio(5)}},
		{"cost ratio then throughput", []Option{WithCostRatio(5), WithThroughput(0.05)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts...); !errors.Is(err, config.ErrConflictingSpeedGoal) {
				t.Errorf("New() error = %v, want %v", err, config.ErrConflictingSpeedGoal)
			}
		})
	}
}

func TestNegativeEpsilonSelectsQuantizer(t *testing.T) {
	tuner, err := New(WithEpsilon(-0.1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tuner.config.Mode != "quantizer" || tuner.config.Epsilon != 0.1 {
		t.Errorf("mode %q epsilon %v", tuner.config.Mode, tuner.config.Epsilon)
	}

	tuner, err = New(WithQuantizerMode(), WithEpsilon(0))
	if err != nil {
		t.Fatalf("quantizer mode with zero epsilon: %v", err)
	}
	if tuner.config.Mode != "quantizer" {
		t.Errorf("mode = %q", tuner.config.Mode)
	}
}

func TestTuneRequiresInput(t *testing.T) {
	tuner, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tuner.Tune(context.Background(), "", nil); err == nil {
		t.Error("Tune() with empty input should fail")
	}
}

func TestNewResult(t *testing.T) {
	h := tune.NewHistory()
	h.Append(tune.Record{Phase: tune.RateEstimate, Control: 4000})
	h.Append(tune.Record{Phase: tune.SpeedSearch, Control: 4000})

	d := speed.Descriptor{CPULevel: 3, Deadline: speed.Good, Tuning: speed.Psnr, ForwardKeyframes: true}
	got := newResult(&processing.TuneResult{
		Result: &tune.Result{
			Mode:     tune.Bitrate,
			Control:  4250,
			Speed:    d,
			Estimate: 4000,
			Outcome:  tune.LatticeExhausted,
			History:  h,
		},
		TestWidth:  1280,
		TestHeight: 720,
		Command:    "aomenc --passes=1",
	})

	want := Result{
		Mode:             "bitrate",
		Control:          4250,
		Estimate:         4000,
		Speed:            d.String(),
		CPULevel:         3,
		Deadline:         "good",
		Tuning:           "psnr",
		ForwardKeyframes: true,
		LatticeExhausted: true,
		Trials:           2,
		Command:          "aomenc --passes=1",
		TestWidth:        1280,
		TestHeight:       720,
	}
	if *got != want {
		t.Errorf("newResult() = %+v, want %+v", *got, want)
	}
}
