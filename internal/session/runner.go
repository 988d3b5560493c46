// Package session drives the simulation in real time: one goroutine owns the
// Simulation, samples the control source once per tick and, when a run ends,
// checks the leaderboard, submits the score and records telemetry.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sloperunner/engine/internal/control"
	"github.com/sloperunner/engine/internal/influx"
	"github.com/sloperunner/engine/internal/sim"
	"github.com/sloperunner/engine/pkg/core"
	"github.com/sloperunner/engine/pkg/streaming"
)

// submitTimeout bounds the end-of-run leaderboard calls.
const submitTimeout = 10 * time.Second

// Leaderboard is the remote ranking the runner reports to.
type Leaderboard interface {
	Qualifies(ctx context.Context, score int) (bool, error)
	Submit(ctx context.Context, name string, score int) ([]core.LeaderboardEntry, error)
}

// Recorder stores finished runs.
type Recorder interface {
	Record(run influx.Run)
}

// Announcer tells attached renderers that a run ended.
type Announcer interface {
	GameOver(payload streaming.GameOverPayload) error
}

// Config controls a session.
type Config struct {
	// TickInterval is the wall-clock period of one tick. Zero runs as fast as possible.
	TickInterval time.Duration
	Tuning       sim.Tuning
	// Name is the leaderboard name. Empty disables submission.
	Name string
	// Runs is the number of runs to play. Zero plays one.
	Runs int
	// Strict aborts the session on a state machine violation instead of
	// logging it and restarting.
	Strict bool
}

// Dependencies holds the collaborators of a Runner. Only Source is required.
type Dependencies struct {
	Source      control.Source
	Renderers   []sim.Renderer
	Leaderboard Leaderboard
	Recorder    Recorder
	Announcer   Announcer
	Context     *Context
	Rand        sim.Rand
	Logger      *slog.Logger
}

// Result summarizes one finished run.
type Result struct {
	RunID     string
	Score     int
	Ticks     uint64
	Duration  time.Duration
	MaxSpeed  float64
	Cause     string
	Qualified bool
	Submitted bool
	// Rank is the 1-based position after submission, 0 when not on the list.
	Rank    int
	Entries []core.LeaderboardEntry
}

// Runner owns the simulation for the lifetime of a session.
type Runner struct {
	cfg  Config
	deps Dependencies
	sim  *sim.Simulation
	log  *slog.Logger
}

// New creates a runner with a fresh simulation.
func New(cfg Config, deps Dependencies) (*Runner, error) {
	if deps.Source == nil {
		return nil, errors.New("session: control source is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Context == nil {
		deps.Context = NewContext()
	}

	s, err := sim.New(sim.Options{
		Tuning:   &cfg.Tuning,
		Rand:     deps.Rand,
		Renderer: Fanout(deps.Renderers...),
		Logger:   deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	return &Runner{cfg: cfg, deps: deps, sim: s, log: deps.Logger}, nil
}

// Simulation exposes the owned simulation for inspection.
func (r *Runner) Simulation() *sim.Simulation { return r.sim }

// Run plays the configured number of runs. It returns the finished runs and
// the first error that stopped the session, if any.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	runs := r.cfg.Runs
	if runs <= 0 {
		runs = 1
	}

	results := make([]Result, 0, runs)
	for n := 1; n <= runs; n++ {
		if n > 1 {
			if err := r.sim.Reset(); err != nil {
				if verr := r.violation(err); verr != nil {
					return results, verr
				}
			}
		}
		res, err := r.play(ctx, n)
		if err != nil {
			return results, err
		}
		results = append(results, r.finish(ctx, res))
	}
	return results, nil
}

// play ticks until the run ends.
func (r *Runner) play(ctx context.Context, n int) (Result, error) {
	runID := uuid.NewString()
	r.deps.Context.StartRun(runID, n)
	r.log.Info("Run started", "run", runID, "n", n)

	var tickC <-chan time.Time
	if r.cfg.TickInterval > 0 {
		ticker := time.NewTicker(r.cfg.TickInterval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	start := time.Now()
	maxSpeed := 0.0
	for {
		if tickC != nil {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-tickC:
			}
		} else if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		res, err := r.sim.Tick(r.deps.Source.Sample())
		if err != nil {
			if verr := r.violation(err); verr != nil {
				return Result{}, verr
			}
			// recover: a run that is already over is restarted in place
			if rerr := r.sim.Reset(); rerr != nil {
				return Result{}, rerr
			}
			continue
		}

		if sp := r.sim.Skier().Speed; sp > maxSpeed {
			maxSpeed = sp
		}
		state := core.StatePlaying
		if res.GameOver {
			state = core.StateGameOver
		}
		r.deps.Context.Update(r.sim.Elapsed(), res.Score, state)

		if res.GameOver {
			return Result{
				RunID:    runID,
				Score:    res.Score,
				Ticks:    r.sim.Elapsed(),
				Duration: time.Since(start),
				MaxSpeed: maxSpeed,
				Cause:    causeOf(res.Hit),
			}, nil
		}
	}
}

// finish reports a run. Leaderboard calls run on a context detached from
// the session so shutting down never cuts a submission in half.
func (r *Runner) finish(ctx context.Context, res Result) Result {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), submitTimeout)
	defer cancel()

	if r.deps.Leaderboard != nil {
		qualified, err := r.deps.Leaderboard.Qualifies(detached, res.Score)
		if err != nil {
			r.log.Warn("Could not check leaderboard", "run", res.RunID, "error", err)
		}
		res.Qualified = qualified

		if qualified && r.cfg.Name != "" {
			entries, err := r.deps.Leaderboard.Submit(detached, r.cfg.Name, res.Score)
			if err != nil {
				r.log.Error("Failed to submit score", "run", res.RunID, "score", res.Score, "error", err)
			} else {
				res.Submitted = true
				res.Entries = entries
				res.Rank = rankOf(entries, r.cfg.Name, res.Score)
			}
		}
	}

	r.log.Info("Run finished",
		"run", res.RunID,
		"score", res.Score,
		"ticks", res.Ticks,
		"cause", res.Cause,
		"qualified", res.Qualified,
		"submitted", res.Submitted,
		"rank", res.Rank,
	)

	if r.deps.Announcer != nil {
		if err := r.deps.Announcer.GameOver(streaming.GameOverPayload{
			RunID:     res.RunID,
			Score:     res.Score,
			Qualified: res.Qualified,
			Cause:     res.Cause,
		}); err != nil {
			r.log.Debug("Game over announcement failed", "error", err)
		}
	}

	if r.deps.Recorder != nil {
		r.deps.Recorder.Record(influx.Run{
			RunID:     res.RunID,
			Player:    r.cfg.Name,
			Score:     res.Score,
			Ticks:     res.Ticks,
			Duration:  res.Duration,
			MaxSpeed:  res.MaxSpeed,
			Cause:     res.Cause,
			Qualified: res.Qualified,
			Submitted: res.Submitted,
			EndedAt:   time.Now(),
		})
	}
	return res
}

func (r *Runner) violation(err error) error {
	if !errors.Is(err, sim.ErrInvalidTransition) || r.cfg.Strict {
		return fmt.Errorf("session: %w", err)
	}
	r.log.Error("State machine violation", "error", err)
	return nil
}

func causeOf(hit sim.Hit) string {
	if hit.Boundary {
		return "boundary"
	}
	return hit.Obstacle.Kind.String()
}

func rankOf(entries []core.LeaderboardEntry, name string, score int) int {
	for i, e := range entries {
		if e.Name == name && e.Score == score {
			return i + 1
		}
	}
	return 0
}

// Fanout presents every snapshot to each renderer in order. A failing
// renderer does not stop the others.
func Fanout(renderers ...sim.Renderer) sim.Renderer {
	var live []sim.Renderer
	for _, rd := range renderers {
		if rd != nil {
			live = append(live, rd)
		}
	}
	if len(live) == 0 {
		return nil
	}
	return sim.RendererFunc(func(snap core.Snapshot) error {
		var errs []error
		for _, rd := range live {
			if err := rd.Present(snap); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
