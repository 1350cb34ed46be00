package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/five82/scv/internal/tune"
	"github.com/five82/scv/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu         sync.Mutex
	out        io.Writer
	errOut     io.Writer
	verbose    bool
	progress   *progressbar.ProgressBar
	maxPercent float32
	lastStage  string
	mode       tune.ControlMode
	cyan       *color.Color
	green      *color.Color
	yellow     *color.Color
	red        *color.Color
	magenta    *color.Color
	bold       *color.Color
	faint      *color.Color
}

// NewTerminalReporter creates a new terminal reporter.
func NewTerminalReporter(verbose bool) *TerminalReporter {
	return NewTerminalReporterWithWriters(os.Stdout, os.Stderr, verbose)
}

// NewTerminalReporterWithWriters creates a terminal reporter with custom
// output streams. Progress bars and errors go to errOut.
func NewTerminalReporterWithWriters(out, errOut io.Writer, verbose bool) *TerminalReporter {
	return &TerminalReporter{
		out:     out,
		errOut:  errOut,
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
		faint:   color.New(color.Faint),
	}
}

func (r *TerminalReporter) finishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.maxPercent = 0
}

func (r *TerminalReporter) section(title string) {
	fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, title)
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to ensure proper alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	if value == "" {
		return
	}
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) newBar(max int64, title string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		max,
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(r.errOut),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      title + " [",
			BarEnd:        "]",
		}),
	)
}

func (r *TerminalReporter) Hardware(summary HardwareSummary) {
	r.section("HARDWARE")
	r.printLabel(10, "Hostname:", summary.Hostname)
	cpus := fmt.Sprintf("%d", summary.CPUs)
	if summary.PhysicalCores > 0 && summary.PhysicalCores != summary.CPUs {
		cpus = fmt.Sprintf("%d (%d physical cores)", summary.CPUs, summary.PhysicalCores)
	}
	r.printLabel(10, "CPUs:", cpus)
}

func (r *TerminalReporter) Initialization(summary InitializationSummary) {
	r.section("VIDEO")
	r.printLabel(11, "File:", summary.InputFile)
	r.printLabel(11, "Duration:", summary.Duration)
	r.printLabel(11, "Resolution:", summary.Resolution)
	r.printLabel(11, "Test clip:", summary.TestResolution)
	r.printLabel(11, "Framerate:", summary.FrameRate)
	r.printLabel(11, "Bit depth:", summary.BitDepth)
	r.printLabel(11, "Size:", summary.Size)
}

func (r *TerminalReporter) TuningConfig(summary TuningConfigSummary) {
	r.mu.Lock()
	if mode, err := tune.ParseControlMode(summary.Mode); err == nil {
		r.mode = mode
	}
	r.mu.Unlock()

	r.section("TUNING")
	const w = 9
	r.printLabel(w, "Mode:", summary.Mode)
	r.printLabel(w, "Target:", summary.Target)
	r.printLabel(w, "Goal:", summary.Goal)
	r.printLabel(w, "Timing:", summary.Timing)
	r.printLabel(w, "Passes:", summary.Passes)
	r.printLabel(w, "Lattice:", summary.Lattice)
	r.printLabel(w, "Format:", summary.PixFormat)
	r.printLabel(w, "CSV:", summary.CSVFile)
}

func (r *TerminalReporter) StageProgress(update StageProgress) {
	r.mu.Lock()
	if r.lastStage != update.Stage {
		r.mu.Unlock()
		r.section(strings.ToUpper(update.Stage))
		r.mu.Lock()
		r.lastStage = update.Stage
	}
	r.mu.Unlock()
	fmt.Fprintf(r.out, "  %s %s\n", r.magenta.Sprint("›"), update.Message)
}

func (r *TerminalReporter) ConversionStarted(totalFrames uint64) {
	r.finishProgress()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = r.newBar(100, "Converting")
}

func (r *TerminalReporter) ConversionProgress(progress ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		return
	}

	clamped := progress.Percent
	if clamped > 100 {
		clamped = 100
	}
	if clamped < 0 {
		clamped = 0
	}

	if clamped >= r.maxPercent {
		r.maxPercent = clamped
		_ = r.progress.Set64(int64(clamped))
	}

	desc := fmt.Sprintf("speed %.1fx, fps %.1f, eta %s",
		progress.Speed, progress.FPS, util.FormatClock(progress.ETA))
	r.progress.Describe(desc)
}

func (r *TerminalReporter) PhaseStarted(p tune.Phase, planned int) {
	r.finishProgress()
	r.section(strings.ToUpper(p.String()))

	if p != tune.SpeedSearch || planned <= 0 {
		return
	}

	fmt.Fprintf(r.out, "  Up to %d speed settings\n", planned)
	r.mu.Lock()
	r.progress = r.newBar(int64(planned), "Speed search")
	r.mu.Unlock()
}

func (r *TerminalReporter) TrialComplete(rec tune.Record) {
	r.mu.Lock()
	bar := r.progress
	r.mu.Unlock()

	line := r.trialLine(rec)
	if bar != nil {
		_ = bar.Add(1)
		bar.Describe(line)
		return
	}
	fmt.Fprintf(r.out, "  %s %s\n", r.magenta.Sprint("›"), line)
}

func (r *TerminalReporter) trialLine(rec tune.Record) string {
	return fmt.Sprintf("#%d %s %s  vmaf %.2f  cpu %.1fs  wall %.1fs  %s  %s",
		rec.Index,
		rec.Mode,
		formatControl(rec.Mode, rec.Control),
		rec.Quality,
		rec.NetCPUTime(),
		rec.WallTime,
		util.FormatBytes(rec.OutputSize),
		rec.Speed)
}

func (r *TerminalReporter) PhaseComplete(summary tune.PhaseSummary) {
	r.finishProgress()

	if summary.Skipped {
		fmt.Fprintf(r.out, "  %s using %s\n", r.faint.Sprint("Skipped,"), summary.Speed)
		return
	}

	switch summary.Phase {
	case tune.SpeedSearch:
		msg := fmt.Sprintf("Selected %s after %d trials", summary.Speed, summary.Trials)
		if summary.Outcome == tune.LatticeExhausted {
			msg += " (slowest setting still meets the target)"
		}
		fmt.Fprintf(r.out, "  %s\n", r.green.Sprint(msg))
	default:
		fmt.Fprintf(r.out, "  %s\n", r.green.Sprintf("Converged on %s %s after %d trials",
			r.modeName(), formatControl(r.currentMode(), summary.Control), summary.Trials))
	}
}

func (r *TerminalReporter) currentMode() tune.ControlMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

func (r *TerminalReporter) modeName() string {
	return r.currentMode().String()
}

func (r *TerminalReporter) TuneComplete(summary TuneOutcome) {
	r.finishProgress()

	r.section("RESULTS")
	mode, err := tune.ParseControlMode(summary.Mode)
	if err == nil {
		label := "Bitrate:"
		if mode == tune.Quantizer {
			label = "Quantizer:"
		}
		fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint(label), r.bold.Sprint(formatControl(mode, summary.Control)))
	}
	r.printLabel(8, "Speed:", summary.Speed)
	for _, line := range strings.Split(summary.SpeedDetail, "\n") {
		if line != "" {
			fmt.Fprintf(r.out, "    %s\n", r.faint.Sprint(line))
		}
	}
	r.printLabel(8, "Trials:", fmt.Sprintf("%d", summary.Trials))
	r.printLabel(8, "Outcome:", summary.Outcome)
	r.printLabel(8, "Time:", util.FormatClock(summary.TotalTime))
	r.printLabel(8, "CSV:", summary.CSVFile)
	if summary.Command != "" {
		fmt.Fprintf(r.out, "  %s\n  %s\n", r.bold.Sprint("Command:"), r.green.Sprint(summary.Command))
	}
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Fprintln(r.out)
	_, _ = r.yellow.Fprintf(r.out, "WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	r.finishProgress()

	_, _ = fmt.Fprintln(r.errOut)
	_, _ = r.red.Fprintf(r.errOut, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(r.errOut, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) OperationComplete(message string) {
	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "%s %s\n", color.New(color.FgGreen, color.Bold).Sprint("✓"), r.bold.Sprint(message))
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	fmt.Fprintf(r.out, "  %s\n", r.faint.Sprint(message))
}

// formatControl renders a control value in its mode's units.
func formatControl(mode tune.ControlMode, v float64) string {
	if mode == tune.Quantizer {
		return fmt.Sprintf("q%d", int(v))
	}
	return fmt.Sprintf("%d kbps", int(v))
}
