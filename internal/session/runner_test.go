package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sloperunner/engine/internal/control"
	"github.com/sloperunner/engine/internal/influx"
	"github.com/sloperunner/engine/internal/sim"
	"github.com/sloperunner/engine/pkg/core"
	"github.com/sloperunner/engine/pkg/streaming"
)

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

// narrowTuning puts the slope edge at |x| > 1 and scores one point per tick,
// so holding left ends a run on tick 7 with a score of 6.
func narrowTuning() sim.Tuning {
	t := sim.DefaultTuning()
	t.SlopeHalfWidth = 2
	t.BoundaryMargin = 1
	t.TicksPerScoreUnit = 1
	return t
}

type fakeLeaderboard struct {
	mu          sync.Mutex
	qualifies   bool
	qualifyErr  error
	submitErr   error
	submissions []core.LeaderboardEntry
	onQualify   func()
	submitCtx   error
}

func (f *fakeLeaderboard) Qualifies(ctx context.Context, score int) (bool, error) {
	if f.onQualify != nil {
		f.onQualify()
	}
	return f.qualifies, f.qualifyErr
}

func (f *fakeLeaderboard) Submit(ctx context.Context, name string, score int) ([]core.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCtx = ctx.Err()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submissions = append(f.submissions, core.LeaderboardEntry{Name: name, Score: score})
	return []core.LeaderboardEntry{{Name: "Top", Score: 100}, {Name: name, Score: score}}, nil
}

type runLog struct {
	mu   sync.Mutex
	runs []influx.Run
}

func (l *runLog) Record(run influx.Run) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, run)
}

type announcements struct {
	payloads []streaming.GameOverPayload
}

func (a *announcements) GameOver(p streaming.GameOverPayload) error {
	a.payloads = append(a.payloads, p)
	return nil
}

func holdLeft() control.Source {
	return control.SourceFunc(func() core.Intent { return core.IntentLeft })
}

func newTestRunner(t *testing.T, cfg Config, deps Dependencies) *Runner {
	t.Helper()
	if cfg.Tuning == (sim.Tuning{}) {
		cfg.Tuning = narrowTuning()
	}
	if deps.Source == nil {
		deps.Source = holdLeft()
	}
	if deps.Rand == nil {
		deps.Rand = fixedRand(0.99)
	}
	r, err := New(cfg, deps)
	require.NoError(t, err)
	return r
}

func TestNew_RequiresSource(t *testing.T) {
	_, err := New(Config{Tuning: narrowTuning()}, Dependencies{})
	assert.Error(t, err)
}

func TestNew_RejectsInvalidTuning(t *testing.T) {
	tuning := narrowTuning()
	tuning.SpawnInterval = 0
	_, err := New(Config{Tuning: tuning}, Dependencies{Source: holdLeft()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sim.ErrInvalidTuning))
}

func TestRun_ReportsFinishedRun(t *testing.T) {
	lb := &fakeLeaderboard{qualifies: true}
	recorder := &runLog{}
	announcer := &announcements{}
	runCtx := NewContext()

	r := newTestRunner(t, Config{Name: "Ann"}, Dependencies{
		Leaderboard: lb,
		Recorder:    recorder,
		Announcer:   announcer,
		Context:     runCtx,
	})

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 6, res.Score)
	assert.Equal(t, uint64(7), res.Ticks)
	assert.Equal(t, "boundary", res.Cause)
	assert.True(t, res.Qualified)
	assert.True(t, res.Submitted)
	assert.Equal(t, 2, res.Rank)
	assert.Greater(t, res.MaxSpeed, sim.BaseSpeed)

	assert.Equal(t, []core.LeaderboardEntry{{Name: "Ann", Score: 6}}, lb.submissions)

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, res.RunID, recorder.runs[0].RunID)
	assert.Equal(t, "Ann", recorder.runs[0].Player)
	assert.True(t, recorder.runs[0].Submitted)

	require.Len(t, announcer.payloads, 1)
	assert.Equal(t, streaming.GameOverPayload{RunID: res.RunID, Score: 6, Qualified: true, Cause: "boundary"}, announcer.payloads[0])

	assert.Equal(t, res.RunID, runCtx.RunID())
	assert.Equal(t, core.StateGameOver, r.Simulation().State())
}

func TestRun_MultipleRunsReset(t *testing.T) {
	r := newTestRunner(t, Config{Runs: 3}, Dependencies{})

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	seen := map[string]bool{}
	for _, res := range results {
		assert.Equal(t, 6, res.Score)
		assert.False(t, seen[res.RunID], "run ids must be unique")
		seen[res.RunID] = true
	}
}

func TestRun_SubmissionRules(t *testing.T) {
	tests := []struct {
		name          string
		player        string
		lb            *fakeLeaderboard
		wantQualified bool
		wantSubmitted bool
	}{
		{"not qualified", "Ann", &fakeLeaderboard{qualifies: false}, false, false},
		{"no name", "", &fakeLeaderboard{qualifies: true}, true, false},
		{"qualify check fails", "Ann", &fakeLeaderboard{qualifyErr: errors.New("offline")}, false, false},
		{"submit fails", "Ann", &fakeLeaderboard{qualifies: true, submitErr: errors.New("500")}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRunner(t, Config{Name: tt.player}, Dependencies{Leaderboard: tt.lb})

			results, err := r.Run(context.Background())
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, tt.wantQualified, results[0].Qualified)
			assert.Equal(t, tt.wantSubmitted, results[0].Submitted)
			assert.Zero(t, results[0].Rank)
		})
	}
}

func TestRun_SubmissionSurvivesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lb := &fakeLeaderboard{qualifies: true, onQualify: cancel}

	r := newTestRunner(t, Config{Name: "Ann"}, Dependencies{Leaderboard: lb})
	results, err := r.Run(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.True(t, results[0].Submitted)
	assert.NoError(t, lb.submitCtx)
}

func TestRun_StopsOnContextDone(t *testing.T) {
	straight := control.SourceFunc(func() core.Intent { return core.IntentNone })
	r := newTestRunner(t, Config{TickInterval: time.Millisecond, Tuning: sim.DefaultTuning()}, Dependencies{Source: straight})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	results, err := r.Run(ctx)
	assert.Empty(t, results)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Greater(t, r.Simulation().Elapsed(), uint64(0))
}

// finishRun drives the simulation to GameOver outside the runner.
func finishRun(t *testing.T, r *Runner) {
	t.Helper()
	for i := 0; i < 100; i++ {
		res, err := r.Simulation().Tick(core.IntentLeft)
		require.NoError(t, err)
		if res.GameOver {
			return
		}
	}
	t.Fatal("run did not end")
}

func TestRun_StrictAbortsOnInvalidTransition(t *testing.T) {
	r := newTestRunner(t, Config{Strict: true}, Dependencies{})
	finishRun(t, r)

	results, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sim.ErrInvalidTransition))
	assert.Empty(t, results)
}

func TestRun_LenientRecoversFromInvalidTransition(t *testing.T) {
	r := newTestRunner(t, Config{}, Dependencies{})
	finishRun(t, r)

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 6, results[0].Score)
}

func TestFanout(t *testing.T) {
	assert.Nil(t, Fanout())
	assert.Nil(t, Fanout(nil, nil))

	var got []uint64
	ok := sim.RendererFunc(func(s core.Snapshot) error {
		got = append(got, s.Tick)
		return nil
	})
	failing := sim.RendererFunc(func(core.Snapshot) error { return errors.New("closed") })

	err := Fanout(failing, ok).Present(core.Snapshot{Tick: 3})
	assert.Error(t, err)
	assert.Equal(t, []uint64{3}, got)
}

func TestContext_Attrs(t *testing.T) {
	c := NewContext()
	assert.Nil(t, c.Attrs())

	c.StartRun("r1", 1)
	c.Update(42, 0, core.StatePlaying)

	attrs := c.Attrs()
	require.Len(t, attrs, 4)
	assert.Equal(t, "run", attrs[0].Key)
	assert.Equal(t, "r1", attrs[0].Value.String())
	assert.Equal(t, uint64(42), attrs[1].Value.Uint64())
	assert.Equal(t, "playing", attrs[3].Value.String())
}
