// Package errors provides structured error types for scv operations.
package errors

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrorKind classifies a CoreError.
type ErrorKind int

const (
	// KindIO covers file system failures around the test clip, trial
	// outputs, logs and the CSV file.
	KindIO ErrorKind = iota
	// KindCommand covers external tools that failed to start or exited non-zero.
	KindCommand
	// KindFFmpeg covers failures reported while preparing the test clip.
	KindFFmpeg
	// KindFFprobeParse covers unreadable ffprobe output.
	KindFFprobeParse
	// KindVideoInfo covers inputs without usable video stream properties.
	KindVideoInfo
	// KindConfig represents contradictory or out-of-range configuration.
	KindConfig
	// KindExecutorFailure represents a trial that could not complete.
	KindExecutorFailure
	// KindNonConvergence represents a search phase that never met its stop condition.
	KindNonConvergence
	// KindMetricParse represents unreadable quality scorer output.
	KindMetricParse
	// KindCancelled represents a run stopped through its context.
	KindCancelled
)

var kindNames = [...]string{
	KindIO:              "I/O error",
	KindCommand:         "Command error",
	KindFFmpeg:          "FFmpeg error",
	KindFFprobeParse:    "FFprobe parse error",
	KindVideoInfo:       "Video info error",
	KindConfig:          "Configuration error",
	KindExecutorFailure: "Trial failed",
	KindNonConvergence:  "Search did not converge",
	KindMetricParse:     "Metric parse error",
	KindCancelled:       "Operation cancelled",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown error"
	}
	return kindNames[k]
}

// CommandErrorKind tells whether a command failed to start or exited non-zero.
type CommandErrorKind int

const (
	CommandStart CommandErrorKind = iota
	CommandFailed
)

// CommandError represents an error from executing an external command.
type CommandError struct {
	Command    string
	Kind       CommandErrorKind
	ExitCode   int
	Stderr     string
	Underlying error
}

func (e *CommandError) Error() string {
	if e.Kind == CommandStart {
		return fmt.Sprintf("failed to execute %s: %v", e.Command, e.Underlying)
	}
	if e.Stderr != "" {
		return fmt.Sprintf("command %s failed with exit code %d: %s", e.Command, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("command %s failed with exit code %d", e.Command, e.ExitCode)
}

func (e *CommandError) Unwrap() error {
	return e.Underlying
}

// CoreError is the main error type for scv operations. Phase names the
// search phase for executor failures and non-convergence.
type CoreError struct {
	Kind       ErrorKind
	Phase      string
	Message    string
	Underlying error
}

func (e *CoreError) Error() string {
	msg := e.Message
	if e.Phase != "" {
		msg = e.Phase + ": " + msg
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *CoreError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target is a CoreError of the same kind.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	return ok && e.Kind == t.Kind
}

func NewIOError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindIO, Message: message, Underlying: underlying}
}

func newCommandError(cmdErr *CommandError) *CoreError {
	return &CoreError{Kind: KindCommand, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewCommandStartError creates an error for a command that could not be started.
func NewCommandStartError(cmd string, err error) *CoreError {
	return newCommandError(&CommandError{Command: cmd, Kind: CommandStart, Underlying: err})
}

// NewCommandFailedError creates an error for a command that exited non-zero.
func NewCommandFailedError(cmd string, exitCode int, stderr string) *CoreError {
	return newCommandError(&CommandError{Command: cmd, Kind: CommandFailed, ExitCode: exitCode, Stderr: stderr})
}

// WrapExecError classifies an error returned by exec.Cmd.Run or Wait.
func WrapExecError(cmd string, err error, stderr string) *CoreError {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return NewCommandFailedError(cmd, exitErr.ExitCode(), stderr)
	}
	return NewCommandStartError(cmd, err)
}

func NewFFmpegError(message string) *CoreError {
	return &CoreError{Kind: KindFFmpeg, Message: message}
}

func NewFFprobeParseError(message string) *CoreError {
	return &CoreError{Kind: KindFFprobeParse, Message: message}
}

func NewVideoInfoError(message string) *CoreError {
	return &CoreError{Kind: KindVideoInfo, Message: message}
}

func NewConfigError(message string) *CoreError {
	return &CoreError{Kind: KindConfig, Message: message}
}

// WrapConfigError wraps a validation error as a configuration error.
func WrapConfigError(err error) *CoreError {
	return &CoreError{Kind: KindConfig, Message: "invalid configuration", Underlying: err}
}

// NewExecutorFailure reports a trial in phase that could not complete.
func NewExecutorFailure(phase, message string, underlying error) *CoreError {
	return &CoreError{Kind: KindExecutorFailure, Phase: phase, Message: message, Underlying: underlying}
}

// NewNonConvergenceError reports a phase that could not meet its stop condition.
func NewNonConvergenceError(phase, message string) *CoreError {
	return &CoreError{Kind: KindNonConvergence, Phase: phase, Message: message}
}

func NewMetricParseError(message string) *CoreError {
	return &CoreError{Kind: KindMetricParse, Message: message}
}

func NewCancelledError() *CoreError {
	return &CoreError{Kind: KindCancelled, Message: "operation was cancelled by the user"}
}

// IsKind reports whether any CoreError in err's chain has kind.
func IsKind(err error, kind ErrorKind) bool {
	var coreErr *CoreError
	return errors.As(err, &coreErr) && coreErr.Kind == kind
}

func IsCancelled(err error) bool {
	return IsKind(err, KindCancelled)
}

func IsExecutorFailure(err error) bool {
	return IsKind(err, KindExecutorFailure)
}

func IsNonConvergence(err error) bool {
	return IsKind(err, KindNonConvergence)
}

// PhaseOf returns the search phase recorded on err, or "".
func PhaseOf(err error) string {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Phase
	}
	return ""
}
