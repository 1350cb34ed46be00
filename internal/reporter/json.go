package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/five82/scv/internal/tune"
)

// JSONReporter outputs NDJSON events for machine consumption.
type JSONReporter struct {
	writer             io.Writer
	mu                 sync.Mutex
	lastProgressBucket int
	lastProgressTime   time.Time
}

// NewJSONReporter creates a new JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return NewJSONReporterWithWriter(os.Stdout)
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{
		writer:             w,
		lastProgressBucket: -1,
	}
}

func (r *JSONReporter) timestamp() int64 {
	return time.Now().Unix()
}

func (r *JSONReporter) write(v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func (r *JSONReporter) Hardware(summary HardwareSummary) {
	r.write(map[string]interface{}{
		"type":           "hardware",
		"hostname":       summary.Hostname,
		"cpus":           summary.CPUs,
		"physical_cores": summary.PhysicalCores,
		"timestamp":      r.timestamp(),
	})
}

func (r *JSONReporter) Initialization(summary InitializationSummary) {
	r.write(map[string]interface{}{
		"type":            "initialization",
		"input_file":      summary.InputFile,
		"duration":        summary.Duration,
		"resolution":      summary.Resolution,
		"test_resolution": summary.TestResolution,
		"frame_rate":      summary.FrameRate,
		"bit_depth":       summary.BitDepth,
		"size":            summary.Size,
		"timestamp":       r.timestamp(),
	})
}

func (r *JSONReporter) TuningConfig(summary TuningConfigSummary) {
	r.write(map[string]interface{}{
		"type":         "tuning_config",
		"mode":         summary.Mode,
		"target":       summary.Target,
		"goal":         summary.Goal,
		"timing":       summary.Timing,
		"passes":       summary.Passes,
		"lattice":      summary.Lattice,
		"pixel_format": summary.PixFormat,
		"csv_file":     summary.CSVFile,
		"timestamp":    r.timestamp(),
	})
}

func (r *JSONReporter) StageProgress(update StageProgress) {
	event := map[string]interface{}{
		"type":      "stage_progress",
		"stage":     update.Stage,
		"percent":   update.Percent,
		"message":   update.Message,
		"timestamp": r.timestamp(),
	}
	if update.ETA != nil {
		event["eta_seconds"] = int64(update.ETA.Seconds())
	}
	r.write(event)
}

func (r *JSONReporter) ConversionStarted(totalFrames uint64) {
	r.mu.Lock()
	r.lastProgressBucket = -1
	r.lastProgressTime = time.Time{}
	r.mu.Unlock()

	r.write(map[string]interface{}{
		"type":         "conversion_started",
		"total_frames": totalFrames,
		"timestamp":    r.timestamp(),
	})
}

func (r *JSONReporter) ConversionProgress(progress ProgressSnapshot) {
	const progressBucketSize = 5
	const minInterval = 5 * time.Second

	bucket := int(progress.Percent) / progressBucketSize
	now := time.Now()

	r.mu.Lock()
	intervalElapsed := r.lastProgressTime.IsZero() || now.Sub(r.lastProgressTime) >= minInterval
	shouldEmit := bucket > r.lastProgressBucket || intervalElapsed || progress.Percent >= 99.0

	if !shouldEmit {
		r.mu.Unlock()
		return
	}

	if bucket > r.lastProgressBucket {
		r.lastProgressBucket = bucket
	}
	r.lastProgressTime = now
	r.mu.Unlock()

	r.write(map[string]interface{}{
		"type":          "conversion_progress",
		"stage":         "conversion",
		"current_frame": progress.CurrentFrame,
		"total_frames":  progress.TotalFrames,
		"percent":       progress.Percent,
		"speed":         progress.Speed,
		"fps":           progress.FPS,
		"eta_seconds":   int64(progress.ETA.Seconds()),
		"timestamp":     r.timestamp(),
	})
}

func (r *JSONReporter) PhaseStarted(p tune.Phase, planned int) {
	r.write(map[string]interface{}{
		"type":      "phase_started",
		"phase":     int(p),
		"name":      p.String(),
		"planned":   planned,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) TrialComplete(rec tune.Record) {
	r.write(map[string]interface{}{
		"type":              "trial_complete",
		"index":             rec.Index,
		"phase":             int(rec.Phase),
		"mode":              rec.Mode.String(),
		"control":           rec.Control,
		"quality":           rec.Quality,
		"cpu_time_pass1":    rec.CPUTimePass1,
		"cpu_time_pass2":    rec.CPUTimePass2,
		"wall_time":         rec.WallTime,
		"output_size":       rec.OutputSize,
		"cpu_level":         rec.Speed.CPULevel,
		"deadline":          rec.Speed.Deadline.String(),
		"tuning":            rec.Speed.Tuning.String(),
		"forward_keyframes": rec.Speed.ForwardKeyframes,
		"timestamp":         r.timestamp(),
	})
}

func (r *JSONReporter) PhaseComplete(summary tune.PhaseSummary) {
	r.write(map[string]interface{}{
		"type":      "phase_complete",
		"phase":     int(summary.Phase),
		"name":      summary.Phase.String(),
		"trials":    summary.Trials,
		"control":   summary.Control,
		"speed":     summary.Speed.String(),
		"skipped":   summary.Skipped,
		"outcome":   summary.Outcome.String(),
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) TuneComplete(summary TuneOutcome) {
	r.write(map[string]interface{}{
		"type":             "tune_complete",
		"input_file":       summary.InputFile,
		"mode":             summary.Mode,
		"control":          summary.Control,
		"estimate":         summary.Estimate,
		"speed":            summary.Speed,
		"outcome":          summary.Outcome,
		"trials":           summary.Trials,
		"command":          summary.Command,
		"csv_file":         summary.CSVFile,
		"duration_seconds": int64(summary.TotalTime.Seconds()),
		"timestamp":        r.timestamp(),
	})
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]interface{}{
		"type":      "warning",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]interface{}{
		"type":       "error",
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
		"timestamp":  r.timestamp(),
	})
}

func (r *JSONReporter) OperationComplete(message string) {
	r.write(map[string]interface{}{
		"type":      "operation_complete",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

// Verbose messages are not part of the event stream.
func (r *JSONReporter) Verbose(string) {}
