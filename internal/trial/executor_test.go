package trial

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/five82/scv/internal/aomenc"
	scverrors "github.com/five82/scv/internal/errors"
	"github.com/five82/scv/internal/ffmpeg"
	"github.com/five82/scv/internal/speed"
	"github.com/five82/scv/internal/tune"
	"github.com/five82/scv/internal/vmaf"
)

type fakeScorer struct {
	score  float64
	err    error
	frames []vmaf.Frames
}

func (f *fakeScorer) Score(_ context.Context, fr vmaf.Frames) (float64, error) {
	f.frames = append(f.frames, fr)
	return f.score, f.err
}

// fakeEncoder writes outputSize bytes to the --output path of each call.
type fakeEncoder struct {
	calls      [][]string
	outputSize int
	usages     []usage
	failAt     int
}

func (f *fakeEncoder) run(_ context.Context, name string, args []string) (usage, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.failAt > 0 && len(f.calls) == f.failAt {
		return usage{}, scverrors.NewCommandFailedError(name, 1, "boom")
	}
	for _, a := range args {
		if out, ok := strings.CutPrefix(a, "--output="); ok {
			if err := os.WriteFile(out, make([]byte, f.outputSize), 0644); err != nil {
				return usage{}, err
			}
		}
	}
	u := usage{CPU: 1, Wall: 1}
	if i := len(f.calls) - 1; i < len(f.usages) {
		u = f.usages[i]
	}
	return u, nil
}

func newTestExecutor(t *testing.T, twoPass bool) (*Executor, *fakeEncoder, *fakeScorer, *[]ffmpeg.ConvertParams) {
	t.Helper()
	enc := &fakeEncoder{outputSize: 4096}
	sc := &fakeScorer{score: 95.5}
	var decoded []ffmpeg.ConvertParams

	e := NewExecutor(Options{
		AomencPath:  "/opt/aom/aomenc",
		WorkDir:     t.TempDir(),
		BitDepth:    8,
		PixelFormat: "yuv420p",
		TwoPass:     twoPass,
	})
	e.run = enc.run
	e.score = sc
	e.decode = func(_ context.Context, _ string, p *ffmpeg.ConvertParams, _ uint64, _ ffmpeg.ProgressCallback) error {
		decoded = append(decoded, *p)
		return os.WriteFile(p.OutputPath, []byte("raw"), 0644)
	}
	return e, enc, sc, &decoded
}

func testRequest(d speed.Descriptor) tune.Request {
	return tune.Request{
		Phase:   tune.SpeedSearch,
		Control: 30000,
		Mode:    tune.Bitrate,
		Speed:   d,
		Source: tune.Source{
			Path:     "/tmp/scv/rawsource.yuv",
			Width:    1280,
			Height:   720,
			FPSNum:   25,
			FPSDen:   1,
			BitDepth: 8,
			Duration: 10,
		},
	}
}

func TestRunTwoPass(t *testing.T) {
	e, enc, sc, decoded := newTestExecutor(t, true)
	enc.usages = []usage{{CPU: 2, Wall: 1.5}, {CPU: 8, Wall: 4}}

	m, err := e.Run(context.Background(), testRequest(speed.Baseline()))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(enc.calls) != 2 {
		t.Fatalf("encoder called %d times, want 2", len(enc.calls))
	}
	if enc.calls[0][0] != "/opt/aom/aomenc" {
		t.Errorf("encoder binary = %q", enc.calls[0][0])
	}
	if !slices.Contains(enc.calls[0], "--pass=1") || !slices.Contains(enc.calls[1], "--pass=2") {
		t.Errorf("unexpected pass arguments: %v / %v", enc.calls[0], enc.calls[1])
	}
	if !slices.Contains(enc.calls[0], "--kf-max-dist=250") {
		t.Errorf("missing keyframe distance in %v", enc.calls[0])
	}

	if m.CPUTimePass1 != 2 || m.CPUTimePass2 != 8 || m.WallTime != 5.5 {
		t.Errorf("timings = %+v", m)
	}
	if m.OutputSize != 4096 {
		t.Errorf("OutputSize = %d, want 4096", m.OutputSize)
	}
	if m.Quality != 95.5 {
		t.Errorf("Quality = %v, want 95.5", m.Quality)
	}

	if len(*decoded) != 1 || filepath.Base((*decoded)[0].InputPath) != outputName {
		t.Errorf("unexpected decode calls %+v", *decoded)
	}
	if len(sc.frames) != 1 || sc.frames[0].Reference != "/tmp/scv/rawsource.yuv" || sc.frames[0].Width != 1280 {
		t.Errorf("unexpected scorer input %+v", sc.frames)
	}

	for _, name := range []string{outputName, statsName, rawOutputName} {
		if _, err := os.Stat(filepath.Join(e.opts.WorkDir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should be removed after the trial", name)
		}
	}
}

func TestRunRealtimeIsSinglePass(t *testing.T) {
	e, enc, _, _ := newTestExecutor(t, true)

	m, err := e.Run(context.Background(), testRequest(speed.Fastest(speed.DefaultFastCPULevel)))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(enc.calls) != 1 {
		t.Fatalf("encoder called %d times, want 1", len(enc.calls))
	}
	if !slices.Contains(enc.calls[0], "--passes=1") || !slices.Contains(enc.calls[0], "--rt") {
		t.Errorf("unexpected args %v", enc.calls[0])
	}
	if m.CPUTimePass2 != 0 {
		t.Errorf("CPUTimePass2 = %v, want 0", m.CPUTimePass2)
	}
}

func TestRunFailures(t *testing.T) {
	t.Run("encoder failure", func(t *testing.T) {
		e, enc, sc, _ := newTestExecutor(t, true)
		enc.failAt = 2

		if _, err := e.Run(context.Background(), testRequest(speed.Baseline())); !scverrors.IsKind(err, scverrors.KindCommand) {
			t.Fatalf("Run() error = %v, want command error", err)
		}
		if len(sc.frames) != 0 {
			t.Error("scorer should not run after an encoder failure")
		}
	})

	t.Run("missing output", func(t *testing.T) {
		e, _, _, _ := newTestExecutor(t, false)
		e.run = func(context.Context, string, []string) (usage, error) { return usage{}, nil }

		if _, err := e.Run(context.Background(), testRequest(speed.Baseline())); !scverrors.IsKind(err, scverrors.KindIO) {
			t.Fatalf("Run() error = %v, want I/O error", err)
		}
	})

	t.Run("scorer failure", func(t *testing.T) {
		e, _, sc, _ := newTestExecutor(t, false)
		sc.err = scverrors.NewMetricParseError("no VMAF score in scorer output")

		_, err := e.Run(context.Background(), testRequest(speed.Baseline()))
		if !scverrors.IsKind(err, scverrors.KindMetricParse) {
			t.Fatalf("Run() error = %v, want metric parse error", err)
		}
	})

	t.Run("decode failure", func(t *testing.T) {
		e, _, _, _ := newTestExecutor(t, false)
		want := errors.New("decode failed")
		e.decode = func(context.Context, string, *ffmpeg.ConvertParams, uint64, ffmpeg.ProgressCallback) error {
			return want
		}

		if _, err := e.Run(context.Background(), testRequest(speed.Baseline())); !errors.Is(err, want) {
			t.Fatalf("Run() error = %v, want %v", err, want)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		e, enc, _, _ := newTestExecutor(t, false)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := e.Run(ctx, testRequest(speed.Baseline())); !scverrors.IsCancelled(err) {
			t.Fatalf("Run() error = %v, want cancelled", err)
		}
		if len(enc.calls) != 0 {
			t.Error("encoder should not run with a cancelled context")
		}
	})
}

func TestEncoderConfig(t *testing.T) {
	e := NewExecutor(Options{WorkDir: "/work", BitDepth: 10})
	req := testRequest(speed.Terminal())
	req.Source.BitDepth = 10
	req.Mode = tune.Quantizer
	req.Control = 33

	cfg := e.EncoderConfig(req, aomenc.SecondPass)
	if cfg.Output != "/work/output.ivf" || cfg.StatsFile != "/work/pass.fpf" {
		t.Errorf("paths = %q, %q", cfg.Output, cfg.StatsFile)
	}
	if cfg.BitDepth != 10 || cfg.InputDepth != 10 || cfg.KeyframeDistance != 250 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Pass != aomenc.SecondPass || cfg.Mode != tune.Quantizer || cfg.Control != 33 {
		t.Errorf("control = %v %v", cfg.Mode, cfg.Control)
	}
}

func TestLastLines(t *testing.T) {
	if got := lastLines("a\nb\nc\n", 2); got != "b\nc" {
		t.Errorf("lastLines() = %q", got)
	}
	if got := lastLines("only", 5); got != "only" {
		t.Errorf("lastLines() = %q", got)
	}
}
