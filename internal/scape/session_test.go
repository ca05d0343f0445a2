package scape

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
)

type constController Decision

func (c constController) Decide(context.Context, []float64) (Decision, error) {
	return Decision(c), nil
}

// oddTickController ascends on ticks 1, 3, 5, ...
type oddTickController struct {
	tick int
}

func (c *oddTickController) Decide(context.Context, []float64) (Decision, error) {
	c.tick++
	if c.tick%2 == 1 {
		return DecisionAscend, nil
	}
	return DecisionNone, nil
}

func newTestSession(t *testing.T, members []Member, opts SessionOptions) *Session {
	t.Helper()
	s, err := NewSession(DefaultConfig(), members, rand.New(rand.NewSource(11)), opts)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func TestSessionIdleAndFlapperRetirementOrder(t *testing.T) {
	s := newTestSession(t, []Member{
		{ID: "idle", Controller: constController(DecisionNone)},
		{ID: "flapper", Controller: &oddTickController{}},
	}, SessionOptions{})

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Termination != TerminationExtinct {
		t.Fatalf("expected extinction, got %s", result.Termination)
	}

	idle, _ := s.Bird("idle")
	flapper, _ := s.Bird("flapper")
	if idle.RetiredAt() != 26 {
		t.Fatalf("unexpected idle retirement tick: %d", idle.RetiredAt())
	}
	if idle.RetiredAt() > flapper.RetiredAt() {
		t.Fatalf("expected idle to retire first, got idle=%d flapper=%d", idle.RetiredAt(), flapper.RetiredAt())
	}
	if result.Frames != flapper.RetiredAt() {
		t.Fatalf("expected session to end with last retirement, frames=%d", result.Frames)
	}
}

func TestSessionPopulationShrinksToZero(t *testing.T) {
	var members []Member
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		members = append(members, Member{ID: id, Controller: constController(DecisionNone)})
	}
	s := newTestSession(t, members, SessionOptions{})

	prev := s.Active()
	for !s.Done() {
		if err := s.Step(context.Background()); err != nil {
			t.Fatalf("step: %v", err)
		}
		if s.Active() > prev {
			t.Fatalf("active set grew from %d to %d", prev, s.Active())
		}
		prev = s.Active()
	}
	if s.Active() != 0 || s.Frames() >= DefaultConfig().MaxFrames {
		t.Fatalf("expected extinction within budget, active=%d frames=%d", s.Active(), s.Frames())
	}
}

func TestSessionFitnessAndSinks(t *testing.T) {
	got := map[string]float64{}
	sink := func(id string) FitnessSink {
		return FitnessSinkFunc(func(f float64) { got[id] = f })
	}
	s := newTestSession(t, []Member{
		{ID: "a", Controller: constController(DecisionNone), Sink: sink("a")},
		{ID: "b", Controller: constController(DecisionNone), Sink: sink("b")},
	}, SessionOptions{})

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := 26*0.1 - 1
	for _, id := range []string{"a", "b"} {
		if math.Abs(got[id]-want) > 1e-9 {
			t.Fatalf("sink %s: got=%f want=%f", id, got[id], want)
		}
	}
	for _, agent := range result.Agents {
		if agent.Survived || agent.RetiredAt != 26 || math.Abs(agent.Fitness-want) > 1e-9 {
			t.Fatalf("unexpected agent result: %+v", agent)
		}
	}
}

func TestSessionBudgetExhaustionReportsBest(t *testing.T) {
	s := newTestSession(t, []Member{
		{ID: "a", Controller: constController(DecisionNone)},
		{ID: "b", Controller: constController(DecisionNone)},
	}, SessionOptions{MaxFrames: 5})

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Termination != TerminationBudget || result.Frames != 5 {
		t.Fatalf("expected budget termination at 5, got %s at %d", result.Termination, result.Frames)
	}
	if !result.HasBest || result.Best.AgentID != "a" || result.Best.Score != 0 {
		t.Fatalf("expected first agent as best-so-far, got %+v", result.Best)
	}
	for _, agent := range result.Agents {
		if !agent.Survived {
			t.Fatalf("expected survivors at budget exhaustion: %+v", agent)
		}
	}
	if err := s.Step(context.Background()); err != nil || s.Frames() != 5 {
		t.Fatalf("expected finished session to ignore steps, frames=%d err=%v", s.Frames(), err)
	}
}

func TestSessionPassBonusAwardedOncePerObstacle(t *testing.T) {
	s := newTestSession(t, []Member{
		{ID: "first", Controller: constController(DecisionNone)},
		{ID: "second", Controller: constController(DecisionNone)},
	}, SessionOptions{})
	head, _ := s.Environment().Head()
	head.X = 40

	if err := s.Step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}
	first, _ := s.Bird("first")
	second, _ := s.Bird("second")
	if !head.Passed || first.Score != 1 || second.Score != 0 {
		t.Fatalf("expected first agent to take the pass, got first=%d second=%d", first.Score, second.Score)
	}
	if math.Abs(first.Fitness-5.1) > 1e-9 || math.Abs(second.Fitness-0.1) > 1e-9 {
		t.Fatalf("unexpected fitness: first=%f second=%f", first.Fitness, second.Fitness)
	}

	if err := s.Step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}
	if first.Score != 1 || second.Score != 0 {
		t.Fatalf("expected passed obstacle to never score again, got first=%d second=%d", first.Score, second.Score)
	}
}

// hoverController ascends whenever the bird sinks close to the bottom of the
// opening of the targeted obstacle.
type hoverController struct {
	margin float64
}

func (c hoverController) Decide(_ context.Context, obs []float64) (Decision, error) {
	if obs[1] < c.margin {
		return DecisionAscend, nil
	}
	return DecisionNone, nil
}

func TestSessionBestCandidateDominatesRetiredAgents(t *testing.T) {
	members := []Member{
		{ID: "idle", Controller: constController(DecisionNone)},
		{ID: "flapper", Controller: &oddTickController{}},
	}
	for i, margin := range []float64{0.08, 0.1, 0.12, 0.15, 0.2} {
		members = append(members, Member{ID: string(rune('h' + i)), Controller: hoverController{margin: margin}})
	}
	s := newTestSession(t, members, SessionOptions{MaxFrames: 4000})

	for !s.Done() {
		if err := s.Step(context.Background()); err != nil {
			t.Fatalf("step: %v", err)
		}
		best, ok := s.Best()
		if !ok {
			t.Fatal("expected best candidate after first tick")
		}
		for _, m := range members {
			b, _ := s.Bird(m.ID)
			if b.Retired() && b.Score > best.Score {
				t.Fatalf("retired agent %s score %d beats best %+v", m.ID, b.Score, best)
			}
		}
	}
}

func TestSessionRetireIsIdempotent(t *testing.T) {
	s := newTestSession(t, []Member{
		{ID: "a", Controller: constController(DecisionNone)},
		{ID: "b", Controller: constController(DecisionNone)},
	}, SessionOptions{})

	if !s.Retire("a") {
		t.Fatal("expected retire to remove a live agent")
	}
	if s.Retire("a") || s.Retire("missing") {
		t.Fatal("expected retiring absent agents to be a no-op")
	}
	if s.Active() != 1 {
		t.Fatalf("unexpected active count: %d", s.Active())
	}
}

func TestSessionObserverSeesEveryTick(t *testing.T) {
	var ticks []int
	s := newTestSession(t, []Member{{ID: "a", Controller: constController(DecisionNone)}}, SessionOptions{
		Observer: func(snap Snapshot) { ticks = append(ticks, snap.Tick) },
	})
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ticks) != 26 || ticks[0] != 1 || ticks[25] != 26 {
		t.Fatalf("unexpected observed ticks: %v", ticks)
	}
}

func TestSessionControllerError(t *testing.T) {
	boom := errors.New("boom")
	s := newTestSession(t, []Member{{ID: "a", Controller: NewPolicyController(PolicyFunc(func(context.Context, []float64) ([]float64, error) {
		return nil, boom
	}), 0.5)}}, SessionOptions{})
	if _, err := s.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected controller error, got %v", err)
	}
}

func TestNewSessionValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := NewSession(DefaultConfig(), nil, rng, SessionOptions{}); err == nil {
		t.Fatal("expected empty population error")
	}
	dup := []Member{
		{ID: "a", Controller: constController(DecisionNone)},
		{ID: "a", Controller: constController(DecisionNone)},
	}
	if _, err := NewSession(DefaultConfig(), dup, rng, SessionOptions{}); err == nil {
		t.Fatal("expected duplicate member error")
	}
	if _, err := NewSession(DefaultConfig(), []Member{{ID: "a"}}, rng, SessionOptions{}); err == nil {
		t.Fatal("expected missing controller error")
	}
	cfg := DefaultConfig()
	cfg.PipeGap = 450
	if _, err := NewSession(cfg, []Member{{ID: "a", Controller: constController(DecisionNone)}}, rng, SessionOptions{}); !errors.Is(err, ErrImpossibleGap) {
		t.Fatalf("expected ErrImpossibleGap, got %v", err)
	}
}

func TestSessionControllerErrorStopsSession(t *testing.T) {
	boom := errors.New("boom")
	delivered := 0
	sink := FitnessSinkFunc(func(float64) { delivered++ })
	s := newTestSession(t, []Member{
		{ID: "a", Controller: constController(DecisionNone), Sink: sink},
		{ID: "b", Controller: NewPolicyController(PolicyFunc(func(context.Context, []float64) ([]float64, error) {
			return nil, boom
		}), 0.5), Sink: sink},
	}, SessionOptions{})

	ctx := context.Background()
	if err := s.Step(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected controller error, got %v", err)
	}
	if !s.Done() || !errors.Is(s.Err(), boom) {
		t.Fatalf("expected session to stop, done=%t err=%v", s.Done(), s.Err())
	}
	if err := s.Step(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected repeated error from Step, got %v", err)
	}
	if _, err := s.Run(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected repeated error from Run, got %v", err)
	}
	if s.Frames() != 1 {
		t.Fatalf("expected no further ticks, frames=%d", s.Frames())
	}
	if delivered != 0 {
		t.Fatalf("expected no fitness delivery, got %d", delivered)
	}
}
