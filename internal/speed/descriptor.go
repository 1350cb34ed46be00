// Package speed defines the encoder speed descriptor and the lattice walked
// while searching for the slowest setting that still fits the time budget.
package speed

import (
	"fmt"
	"strings"
)

// Deadline selects the encoder's deadline mode.
type Deadline int

const (
	// Good is the regular two-pass capable deadline.
	Good Deadline = iota
	// Realtime is the coarse, always-fastest deadline. It ignores most of
	// the effort the cpu level would otherwise add.
	Realtime
)

// String returns the encoder flag name of the deadline.
func (d Deadline) String() string {
	switch d {
	case Good:
		return "good"
	case Realtime:
		return "rt"
	default:
		return "unknown"
	}
}

// Tuning is the perceptual objective the encoder optimizes for.
type Tuning int

// Tunings in lattice order. Psnr is the first tier explored, VmafWithPreprocessing the last.
const (
	VmafWithPreprocessing Tuning = iota
	VmafWithoutPreprocessing
	Ssim
	Psnr
)

// String returns the aomenc --tune value for the tuning.
func (t Tuning) String() string {
	switch t {
	case VmafWithPreprocessing:
		return "vmaf_with_preprocessing"
	case VmafWithoutPreprocessing:
		return "vmaf_without_preprocessing"
	case Ssim:
		return "ssim"
	case Psnr:
		return "psnr"
	default:
		return "unknown"
	}
}

// ParseTuning converts an aomenc tune name into a Tuning.
func ParseTuning(s string) (Tuning, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vmaf_with_preprocessing":
		return VmafWithPreprocessing, nil
	case "vmaf_without_preprocessing":
		return VmafWithoutPreprocessing, nil
	case "ssim":
		return Ssim, nil
	case "psnr":
		return Psnr, nil
	default:
		return 0, fmt.Errorf("unknown tuning %q", s)
	}
}

// MaxCPULevel is the highest cpu level a descriptor may carry.
const MaxCPULevel = 31

// Descriptor is one point of the speed lattice.
//
// CPULevel is the encoder's cpu-used value: stepping it down makes each
// frame slower and more thorough. Level 0 only appears on the terminal point.
type Descriptor struct {
	CPULevel         int
	Deadline         Deadline
	Tuning           Tuning
	ForwardKeyframes bool
}

// String returns a compact human-readable form, e.g. "rt/cpu8/psnr/kf-off".
func (d Descriptor) String() string {
	kf := "kf-off"
	if d.ForwardKeyframes {
		kf = "kf-fwd"
	}
	return fmt.Sprintf("%s/cpu%d/%s/%s", d.Deadline, d.CPULevel, d.Tuning, kf)
}

// Explain returns a multi-line description of every knob.
func (d Descriptor) Explain() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Using '%s' deadline\n", d.Deadline)
	fmt.Fprintf(&b, "Using %s tuning\n", d.Tuning)
	if d.ForwardKeyframes {
		b.WriteString("Using forward keyframes\n")
	} else {
		b.WriteString("Not using forward keyframes\n")
	}
	fmt.Fprintf(&b, "Using cpu speed: %d", d.CPULevel)
	return b.String()
}
