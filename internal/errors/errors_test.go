package errors

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"
)

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected string
	}{
		{KindIO, "I/O error"},
		{KindCommand, "Command error"},
		{KindFFmpeg, "FFmpeg error"},
		{KindFFprobeParse, "FFprobe parse error"},
		{KindVideoInfo, "Video info error"},
		{KindConfig, "Configuration error"},
		{KindExecutorFailure, "Trial failed"},
		{KindNonConvergence, "Search did not converge"},
		{KindMetricParse, "Metric parse error"},
		{KindCancelled, "Operation cancelled"},
		{ErrorKind(-1), "Unknown error"},
		{ErrorKind(99), "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCoreErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *CoreError
		want string
	}{
		{
			name: "plain",
			err:  NewMetricParseError("no aggregate VMAF score"),
			want: "Metric parse error: no aggregate VMAF score",
		},
		{
			name: "with phase",
			err:  NewNonConvergenceError("rate refine", "no bitrate within 0.100 of 93.00 after 30 trials"),
			want: "Search did not converge: rate refine: no bitrate within 0.100 of 93.00 after 30 trials",
		},
		{
			name: "with phase and cause",
			err:  NewExecutorFailure("speed search", "trial 4 (bitrate=3200, cpu-used=5)", errors.New("vmaf exited")),
			want: "Trial failed: speed search: trial 4 (bitrate=3200, cpu-used=5): vmaf exited",
		},
		{
			name: "wrapped config",
			err:  WrapConfigError(errors.New("target must be within 0-100")),
			want: "Configuration error: invalid configuration: target must be within 0-100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecutorFailureUnwraps(t *testing.T) {
	cause := NewCommandFailedError("aomenc", 1, "Failed to initialize encoder")
	err := NewExecutorFailure("rate estimate", "trial 1", cause)

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatal("errors.As did not find the CommandError")
	}
	if cmdErr.Command != "aomenc" || cmdErr.ExitCode != 1 {
		t.Errorf("CommandError = %+v", cmdErr)
	}
	if !IsExecutorFailure(err) {
		t.Error("outer kind should win")
	}
	if !errors.Is(err, &CoreError{Kind: KindCommand}) {
		t.Error("errors.Is should match the wrapped command error kind")
	}
}

func TestCommandErrorMessages(t *testing.T) {
	started := NewCommandStartError("vmafossexec", errors.New("executable file not found"))
	if !strings.Contains(started.Error(), "failed to execute vmafossexec") {
		t.Errorf("start error = %v", started)
	}

	failed := NewCommandFailedError("ffmpeg", 234, "Invalid argument")
	if !strings.Contains(failed.Error(), "exit code 234: Invalid argument") {
		t.Errorf("failed error = %v", failed)
	}
	quiet := NewCommandFailedError("ffmpeg", 1, "")
	if strings.HasSuffix(quiet.Error(), ": ") {
		t.Errorf("empty stderr left a dangling separator: %q", quiet)
	}
}

func TestConstructorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  *CoreError
		kind ErrorKind
	}{
		{"NewIOError", NewIOError("write csv", nil), KindIO},
		{"NewCommandStartError", NewCommandStartError("aomenc", errors.New("missing")), KindCommand},
		{"NewCommandFailedError", NewCommandFailedError("aomenc", 1, ""), KindCommand},
		{"NewFFmpegError", NewFFmpegError("conversion failed"), KindFFmpeg},
		{"NewFFprobeParseError", NewFFprobeParseError("bad json"), KindFFprobeParse},
		{"NewVideoInfoError", NewVideoInfoError("no video stream"), KindVideoInfo},
		{"NewConfigError", NewConfigError("both goals set"), KindConfig},
		{"NewExecutorFailure", NewExecutorFailure("rate refine", "trial", nil), KindExecutorFailure},
		{"NewNonConvergenceError", NewNonConvergenceError("rate estimate", "undershoot"), KindNonConvergence},
		{"NewMetricParseError", NewMetricParseError("no score"), KindMetricParse},
		{"NewCancelledError", NewCancelledError(), KindCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if !IsKind(tt.err, tt.kind) {
				t.Errorf("IsKind(%v) = false", tt.kind)
			}
		})
	}
}

func TestPredicatesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("tuning input.mkv: %w", NewNonConvergenceError("speed search", "too slow"))
	if !IsNonConvergence(wrapped) {
		t.Error("IsNonConvergence should see through fmt wrapping")
	}
	if got := PhaseOf(wrapped); got != "speed search" {
		t.Errorf("PhaseOf() = %q", got)
	}
	if IsExecutorFailure(wrapped) || IsCancelled(wrapped) {
		t.Error("unexpected kind match")
	}
	if !IsCancelled(fmt.Errorf("stop: %w", NewCancelledError())) {
		t.Error("IsCancelled should see through wrapping")
	}

	plain := errors.New("boom")
	if IsKind(plain, KindIO) || PhaseOf(plain) != "" {
		t.Error("plain errors carry no kind or phase")
	}
}

func TestWrapExecError(t *testing.T) {
	err := WrapExecError("aomenc", errors.New("executable file not found"), "")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Kind != CommandStart {
		t.Errorf("non-exit error should be a start error, got %v", err)
	}

	exitErr := exec.Command("false").Run()
	if exitErr == nil {
		t.Skip("false exited zero")
	}
	var ee *exec.ExitError
	if !errors.As(exitErr, &ee) {
		t.Skipf("false did not run: %v", exitErr)
	}
	err = WrapExecError("false", fmt.Errorf("trial: %w", exitErr), "stderr tail")
	if !errors.As(err, &cmdErr) || cmdErr.Kind != CommandFailed || cmdErr.ExitCode != 1 {
		t.Errorf("exit error should be a failed command, got %v", err)
	}
	if cmdErr.Stderr != "stderr tail" {
		t.Errorf("Stderr = %q", cmdErr.Stderr)
	}
}
