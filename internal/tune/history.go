package tune

import "github.com/five82/scv/internal/speed"

// Phase identifies one of the three sequential search stages.
type Phase int

const (
	// RateEstimate finds a rough control value at the fastest speed.
	RateEstimate Phase = iota + 1
	// SpeedSearch picks a speed setting at the estimated control value.
	SpeedSearch
	// RateRefine finds the exact bitrate at the chosen speed.
	RateRefine
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case RateEstimate:
		return "rate estimate"
	case SpeedSearch:
		return "speed search"
	case RateRefine:
		return "rate refine"
	default:
		return "unknown"
	}
}

// Measurement is what one trial observed.
type Measurement struct {
	Quality      float64
	CPUTimePass1 float64
	CPUTimePass2 float64
	WallTime     float64
	OutputSize   uint64
}

// Record is one completed trial. Records are never modified after they are
// appended to a History.
type Record struct {
	// Index is the 1-based position in the run's history.
	Index int

	Phase   Phase
	Control float64
	Mode    ControlMode
	Speed   speed.Descriptor

	Measurement
}

// NetCPUTime returns the CPU time of all passes.
func (r Record) NetCPUTime() float64 {
	return r.CPUTimePass1 + r.CPUTimePass2
}

// Cost returns the trial cost on the given clock.
func (r Record) Cost(basis CostBasis) float64 {
	if basis == WallTime {
		return r.WallTime
	}
	return r.NetCPUTime()
}

// History is the append-only trial log of one run.
type History struct {
	records []Record
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{records: make([]Record, 0, 32)}
}

// Append stores r, assigns its index and returns the stored copy.
func (h *History) Append(r Record) Record {
	r.Index = len(h.records) + 1
	h.records = append(h.records, r)
	return r
}

// Len returns the number of recorded trials.
func (h *History) Len() int {
	return len(h.records)
}

// Records returns a copy of every record in order.
func (h *History) Records() []Record {
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// Phase returns the records of phase p in order.
func (h *History) Phase(p Phase) []Record {
	var out []Record
	for _, r := range h.records {
		if r.Phase == p {
			out = append(out, r)
		}
	}
	return out
}

// Last returns the most recent record, if any.
func (h *History) Last() (Record, bool) {
	if len(h.records) == 0 {
		return Record{}, false
	}
	return h.records[len(h.records)-1], true
}
