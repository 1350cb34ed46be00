package speed

// DefaultFastCPULevel is the cpu level of the fastest lattice point.
const DefaultFastCPULevel = 8

// tierStart is the cpu level every Good-deadline tier begins at.
const tierStart = 5

// Flags selects which optional axes the lattice explores once the cpu and
// deadline axes are exhausted.
type Flags struct {
	TestAltTuning        bool
	TestForwardKeyframes bool
}

// Fastest returns the fixed fast endpoint used for rate estimation and as
// the start of the speed search.
func Fastest(cpuLevel int) Descriptor {
	if cpuLevel < 1 {
		cpuLevel = DefaultFastCPULevel
	}
	if cpuLevel > MaxCPULevel {
		cpuLevel = MaxCPULevel
	}
	return Descriptor{
		CPULevel:         cpuLevel,
		Deadline:         Realtime,
		Tuning:           Psnr,
		ForwardKeyframes: false,
	}
}

// Baseline returns the first Good-deadline point, reached in a single step
// from the end of the realtime regime.
func Baseline() Descriptor {
	return Descriptor{
		CPULevel:         tierStart,
		Deadline:         Good,
		Tuning:           Psnr,
		ForwardKeyframes: false,
	}
}

// Terminal returns the sentinel marking the end of the lattice. It is also
// the slowest, most thorough setting.
func Terminal() Descriptor {
	return Descriptor{
		CPULevel:         0,
		Deadline:         Good,
		Tuning:           VmafWithPreprocessing,
		ForwardKeyframes: true,
	}
}

// IsTerminal reports whether d is the terminal sentinel.
func IsTerminal(d Descriptor) bool {
	return d == Terminal()
}

// Next returns the point one step slower than d. The terminal point maps to
// itself.
func Next(d Descriptor, flags Flags) Descriptor {
	if IsTerminal(d) {
		return d
	}

	if d.CPULevel > 1 {
		d.CPULevel--
		return d
	}

	if d.Deadline == Realtime {
		return Baseline()
	}

	if flags.TestForwardKeyframes && !d.ForwardKeyframes {
		d.ForwardKeyframes = true
		d.CPULevel = tierStart
		return d
	}

	if flags.TestAltTuning && d.Tuning != VmafWithPreprocessing {
		d.Tuning--
		d.CPULevel = tierStart
		if flags.TestForwardKeyframes {
			// Re-explore the keyframe axis for the new tuning tier.
			d.ForwardKeyframes = false
		}
		return d
	}

	return Terminal()
}

// Walk returns every point from start to the terminal point, inclusive.
func Walk(start Descriptor, flags Flags) []Descriptor {
	points := []Descriptor{start}
	for d := start; !IsTerminal(d); {
		d = Next(d, flags)
		points = append(points, d)
	}
	return points
}

// Len returns the number of points Walk(start, flags) would produce.
func Len(start Descriptor, flags Flags) int {
	return len(Walk(start, flags))
}
