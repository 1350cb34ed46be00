package tune

import (
	"context"
	"fmt"
	"math"

	scverrors "github.com/five82/scv/internal/errors"
	"github.com/five82/scv/internal/logging"
	"github.com/five82/scv/internal/speed"
)

// Source describes the prepared test clip. It is supplied once and never
// changes during a run.
type Source struct {
	// Path is the raw video the executor encodes and scores against.
	Path string

	Width    int
	Height   int
	FPSNum   int
	FPSDen   int
	BitDepth int

	// Duration is the clip length in seconds.
	Duration float64
	Frames   int64

	// Size is the byte size of the original, untested source.
	Size uint64
}

// Request is one trial to run.
type Request struct {
	Phase   Phase
	Control float64
	Mode    ControlMode
	Speed   speed.Descriptor
	Source  Source
}

// Executor runs one encode-and-score trial. It blocks until the trial
// completes and returns no partial measurement on error.
type Executor interface {
	Run(ctx context.Context, req Request) (Measurement, error)
}

// PhaseSummary describes how a phase ended.
type PhaseSummary struct {
	Phase   Phase
	Trials  int
	Control float64
	Speed   speed.Descriptor
	Skipped bool
	Outcome Outcome
}

// Sink receives search progress in order.
type Sink interface {
	// PhaseStarted is called before the first trial of a phase. planned is
	// the maximum number of trials the phase may run, or 0 if unbounded.
	PhaseStarted(p Phase, planned int)
	TrialComplete(r Record)
	PhaseComplete(s PhaseSummary)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) PhaseStarted(Phase, int)    {}
func (NopSink) TrialComplete(Record)       {}
func (NopSink) PhaseComplete(PhaseSummary) {}

// Outcome distinguishes a clean finish from a recoverable fallback.
type Outcome int

const (
	// Converged means every phase met its stop condition.
	Converged Outcome = iota
	// LatticeExhausted means even the slowest speed setting met the
	// throughput target, so the slowest setting was adopted.
	LatticeExhausted
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Converged:
		return "converged"
	case LatticeExhausted:
		return "lattice exhausted"
	default:
		return "unknown"
	}
}

// Result is the tuned configuration and the history that produced it.
type Result struct {
	Mode    ControlMode
	Control float64
	Speed   speed.Descriptor

	// Estimate is the rate estimation result the speed search ran at.
	Estimate float64

	Outcome Outcome
	History *History
}

// Controller sequences the three search phases against an Executor.
type Controller struct {
	cfg     Config
	exec    Executor
	sink    Sink
	history *History
}

// NewController creates a controller. A nil sink discards events.
func NewController(cfg Config, exec Executor, sink Sink) *Controller {
	if sink == nil {
		sink = NopSink{}
	}
	return &Controller{
		cfg:     cfg,
		exec:    exec,
		sink:    sink,
		history: NewHistory(),
	}
}

// History returns the controller's trial history.
func (c *Controller) History() *History {
	return c.history
}

// Run executes the search. On error the result is nil: a failed trial
// aborts the run and nothing partial is returned.
func (c *Controller) Run(ctx context.Context, src Source) (*Result, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	if c.exec == nil {
		return nil, scverrors.NewConfigError("no trial executor configured")
	}

	logging.Info("Starting tune",
		"mode", c.cfg.Mode,
		"target", c.cfg.Target,
		"goal", c.cfg.Goal,
		"basis", c.cfg.Basis)

	estimate, err := c.estimateRate(ctx, src)
	if err != nil {
		return nil, err
	}

	best, outcome, err := c.searchSpeed(ctx, estimate, src)
	if err != nil {
		return nil, err
	}

	final := estimate
	if c.cfg.Mode == Bitrate {
		final, err = c.refineRate(ctx, estimate, best, src)
		if err != nil {
			return nil, err
		}
	}

	logging.Info("Tune complete", "control", final, "speed", best.String(), "trials", c.history.Len())

	return &Result{
		Mode:     c.cfg.Mode,
		Control:  final,
		Speed:    best,
		Estimate: estimate,
		Outcome:  outcome,
		History:  c.history,
	}, nil
}

// estimateRate finds a rough control value at the fastest speed setting.
func (c *Controller) estimateRate(ctx context.Context, src Source) (float64, error) {
	fast := speed.Fastest(c.cfg.FastCPULevel)

	// Quantizer mode has no refine phase, so it aims at the exact target.
	target := c.cfg.Target
	if c.cfg.Mode == Bitrate {
		target = c.cfg.InflatedTarget()
	}

	c.sink.PhaseStarted(RateEstimate, c.cfg.MaxRounds)
	logging.Debug("Phase started", "phase", RateEstimate, "target", target, "speed", fast.String())

	for round := 1; round <= c.cfg.MaxRounds; round++ {
		control := c.cfg.encodable(ProposeNext(c.history.Phase(RateEstimate), c.cfg.Mode, target, c.cfg.defaultControl()))

		rec, err := c.trial(ctx, RateEstimate, control, fast, src)
		if err != nil {
			return 0, err
		}

		estimate, done := 0.0, false
		if c.cfg.Mode == Bitrate {
			estimate, done = control, withinTolerance(rec.Quality, target, estimateTolerance)
		} else {
			next := ProposeNext(c.history.Phase(RateEstimate), c.cfg.Mode, target, c.cfg.defaultControl())
			estimate, done = math.Max(next, control), math.Abs(next-control) <= 1
		}

		if done {
			c.sink.PhaseComplete(PhaseSummary{
				Phase:   RateEstimate,
				Trials:  round,
				Control: estimate,
				Speed:   fast,
			})
			return estimate, nil
		}
	}

	return 0, scverrors.NewNonConvergenceError(RateEstimate.String(), fmt.Sprintf(
		"no %s within tolerance of %.2f after %d trials", c.cfg.Mode, target, c.cfg.MaxRounds))
}

// searchSpeed walks the speed lattice at a fixed control value.
func (c *Controller) searchSpeed(ctx context.Context, control float64, src Source) (speed.Descriptor, Outcome, error) {
	if c.cfg.skipsSpeedSearch() {
		terminal := speed.Terminal()
		logging.Debug("Speed search skipped", "speed", terminal.String())
		c.sink.PhaseStarted(SpeedSearch, 0)
		c.sink.PhaseComplete(PhaseSummary{
			Phase:   SpeedSearch,
			Control: control,
			Speed:   terminal,
			Skipped: true,
		})
		return terminal, Converged, nil
	}

	points := speed.Walk(speed.Fastest(c.cfg.FastCPULevel), c.cfg.Lattice)
	c.sink.PhaseStarted(SpeedSearch, len(points))
	logging.Debug("Phase started", "phase", SpeedSearch, "points", len(points), "goal", c.cfg.Goal)

	var previous *Record
	for i, d := range points {
		rec, err := c.trial(ctx, SpeedSearch, control, d, src)
		if err != nil {
			return speed.Descriptor{}, Converged, err
		}

		if c.cfg.Goal != GoalThroughput {
			continue
		}

		tp := c.throughput(rec, src)
		logging.Debug("Throughput", "speed", d.String(), "achieved", tp, "target", c.cfg.Throughput)
		if tp < c.cfg.Throughput {
			if previous == nil {
				return speed.Descriptor{}, Converged, scverrors.NewNonConvergenceError(SpeedSearch.String(), fmt.Sprintf(
					"fastest setting %s reached %.4f, below throughput target %.4f",
					d, tp, c.cfg.Throughput))
			}
			c.completeSpeedSearch(i+1, control, previous.Speed, Converged)
			return previous.Speed, Converged, nil
		}
		previous = &rec
	}

	if c.cfg.Goal == GoalThroughput {
		logging.Warn("Slowest speed setting still meets throughput target", "speed", previous.Speed.String())
		c.completeSpeedSearch(len(points), control, previous.Speed, LatticeExhausted)
		return previous.Speed, LatticeExhausted, nil
	}

	best, ok := SelectFittest(c.history.Phase(SpeedSearch), src.Size, c.cfg.CostRatio, c.cfg.Basis)
	if !ok {
		return speed.Descriptor{}, Converged, scverrors.NewNonConvergenceError(SpeedSearch.String(),
			"no speed search trials to rank")
	}
	c.completeSpeedSearch(len(points), control, best.Speed, Converged)
	return best.Speed, Converged, nil
}

func (c *Controller) completeSpeedSearch(trials int, control float64, d speed.Descriptor, outcome Outcome) {
	c.sink.PhaseComplete(PhaseSummary{
		Phase:   SpeedSearch,
		Trials:  trials,
		Control: control,
		Speed:   d,
		Outcome: outcome,
	})
}

// throughput returns seconds of video encoded per second of elapsed time.
func (c *Controller) throughput(rec Record, src Source) float64 {
	elapsed := rec.WallTime
	if c.cfg.Basis == CPUTime {
		elapsed = rec.NetCPUTime() / c.cfg.Cores
	}
	if elapsed <= 0 {
		return math.Inf(1)
	}
	return src.Duration / elapsed
}

// refineRate finds the exact bitrate for the target at the chosen speed.
func (c *Controller) refineRate(ctx context.Context, estimate float64, d speed.Descriptor, src Source) (float64, error) {
	c.sink.PhaseStarted(RateRefine, c.cfg.MaxRounds)
	logging.Debug("Phase started", "phase", RateRefine, "target", c.cfg.Target, "epsilon", c.cfg.Epsilon)

	for round := 1; round <= c.cfg.MaxRounds; round++ {
		control := c.cfg.encodable(ProposeNext(c.history.Phase(RateRefine), Bitrate, c.cfg.Target, estimate))

		rec, err := c.trial(ctx, RateRefine, control, d, src)
		if err != nil {
			return 0, err
		}

		if withinTolerance(rec.Quality, c.cfg.Target, c.cfg.Epsilon) {
			c.sink.PhaseComplete(PhaseSummary{
				Phase:   RateRefine,
				Trials:  round,
				Control: control,
				Speed:   d,
			})
			return control, nil
		}
	}

	return 0, scverrors.NewNonConvergenceError(RateRefine.String(), fmt.Sprintf(
		"no bitrate within %.3f of %.2f after %d trials", c.cfg.Epsilon, c.cfg.Target, c.cfg.MaxRounds))
}

// trial runs one executor call and records it.
func (c *Controller) trial(ctx context.Context, p Phase, control float64, d speed.Descriptor, src Source) (Record, error) {
	if ctx.Err() != nil {
		return Record{}, scverrors.NewCancelledError()
	}

	req := Request{
		Phase:   p,
		Control: control,
		Mode:    c.cfg.Mode,
		Speed:   d,
		Source:  src,
	}
	logging.Debug("Running trial", "phase", p, "control", control, "speed", d.String())

	m, err := c.exec.Run(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return Record{}, scverrors.NewCancelledError()
		}
		if scverrors.IsExecutorFailure(err) {
			return Record{}, err
		}
		return Record{}, scverrors.NewExecutorFailure(p.String(),
			fmt.Sprintf("trial %d (%s=%.0f, %s)", c.history.Len()+1, c.cfg.Mode, control, d), err)
	}

	rec := c.history.Append(Record{
		Phase:       p,
		Control:     control,
		Mode:        c.cfg.Mode,
		Speed:       d,
		Measurement: m,
	})
	c.sink.TrialComplete(rec)
	return rec, nil
}
