package scape

import (
	"errors"
	"math/rand"
	"testing"
)

func newTestEnvironment(t *testing.T, cfg Config, mode Mode) *Environment {
	t.Helper()
	env, err := NewEnvironment(cfg, mode, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}
	return env
}

func TestNewEnvironmentRejectsImpossibleGap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScreenHeight = 300
	cfg.PipeGap = 150
	cfg.GapMargin = 100
	cfg.BaseHeight = 50

	_, err := NewEnvironment(cfg, cfg.HumanMode(), rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrImpossibleGap) {
		t.Fatalf("expected ErrImpossibleGap, got: %v", err)
	}
}

func TestObstacleGapWithinBounds(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(7))
	lo, hi := cfg.gapRange()
	for i := 0; i < 500; i++ {
		o := newObstacle(i, 0, cfg, rng)
		if o.GapTop < float64(lo) || o.GapTop > float64(hi) {
			t.Fatalf("gap top %f outside [%d, %d]", o.GapTop, lo, hi)
		}
		if o.GapBottom() > cfg.ScreenHeight-cfg.GapMargin {
			t.Fatalf("gap bottom %f leaves no margin", o.GapBottom())
		}
	}
}

func TestObstacleRemovedExactlyWhenPastLeftEdge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PipeSpeed = 1
	o := newObstacle(0, 400, cfg, rand.New(rand.NewSource(1)))

	for i := 0; i < 452; i++ {
		o.Move(cfg.PipeSpeed)
	}
	if o.X != -52 || o.OffScreen() {
		t.Fatalf("expected obstacle at -52 still on screen, got x=%f off=%t", o.X, o.OffScreen())
	}
	o.Move(cfg.PipeSpeed)
	if !o.OffScreen() {
		t.Fatalf("expected obstacle at x=%f to be off screen", o.X)
	}
}

func TestEnvironmentScrollWraps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScreenWidth = 10
	cfg.PipeSpeed = 4
	cfg.BackgroundSpeed = 1
	cfg.GapMargin = 10
	env := newTestEnvironment(t, cfg, cfg.HumanMode())

	env.Scroll()
	env.Scroll()
	if env.GroundX() != -8 || env.BackgroundX() != -2 {
		t.Fatalf("unexpected offsets: ground=%f background=%f", env.GroundX(), env.BackgroundX())
	}
	env.Scroll()
	if env.GroundX() != 0 {
		t.Fatalf("expected ground to wrap to 0, got %f", env.GroundX())
	}
	for i := 0; i < 7; i++ {
		env.Scroll()
	}
	if env.BackgroundX() != 0 {
		t.Fatalf("expected background to wrap at -width, got %f", env.BackgroundX())
	}
}

func TestEnvironmentMinimumCountSupply(t *testing.T) {
	cfg := DefaultConfig()
	env := newTestEnvironment(t, cfg, cfg.HumanMode())
	if env.Len() != 2 {
		t.Fatalf("expected two initial obstacles, got %d", env.Len())
	}
	obstacles := env.Obstacles()
	if obstacles[0].X != cfg.ScreenWidth || obstacles[1].X != cfg.ScreenWidth+cfg.InitialSpawnGap {
		t.Fatalf("unexpected initial positions: %f %f", obstacles[0].X, obstacles[1].X)
	}

	obstacles[0].X = -100
	if removed := env.Prune(); removed != 1 {
		t.Fatalf("expected one removal, got %d", removed)
	}
	if added := env.EnsureSupply(env.Mode().Supply); added != 1 {
		t.Fatalf("expected one spawn, got %d", added)
	}
	if last := env.Obstacles()[env.Len()-1]; last.X != cfg.ScreenWidth {
		t.Fatalf("expected spawn at viewport width, got %f", last.X)
	}
}

func TestEnvironmentSpacingSupply(t *testing.T) {
	cfg := DefaultConfig()
	env := newTestEnvironment(t, cfg, cfg.BatchMode())
	if env.Len() != 1 || env.Obstacles()[0].X != 500 {
		t.Fatalf("expected one obstacle at 500, got %+v", env.Snapshot().Obstacles)
	}

	for i := 0; i < 133; i++ {
		env.MoveObstacles()
	}
	if added := env.EnsureSupply(env.Mode().Supply); added != 0 {
		t.Fatalf("expected no spawn at x=%f, got %d", env.Obstacles()[0].X, added)
	}
	env.MoveObstacles()
	if added := env.EnsureSupply(env.Mode().Supply); added != 1 {
		t.Fatalf("expected spawn once spacing crossed, got %d", added)
	}
	if last := env.Obstacles()[1]; last.X != 500 {
		t.Fatalf("expected spawn at 500, got %f", last.X)
	}
}

func TestEnvironmentSpacingSupplyRefillsEmptyQueue(t *testing.T) {
	cfg := DefaultConfig()
	env := newTestEnvironment(t, cfg, cfg.BatchMode())
	env.Obstacles()[0].X = -1000
	env.Prune()
	if env.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", env.Len())
	}
	if added := env.EnsureSupply(env.Mode().Supply); added != 1 {
		t.Fatalf("expected refill, got %d", added)
	}
}

func TestEnvironmentQueueStaysOrdered(t *testing.T) {
	cfg := DefaultConfig()
	for _, mode := range []Mode{cfg.HumanMode(), cfg.BatchMode()} {
		env := newTestEnvironment(t, cfg, mode)
		for tick := 0; tick < 3000; tick++ {
			env.Advance()
			env.EnsureSupply(mode.Supply)
			obstacles := env.Obstacles()
			for i, o := range obstacles {
				if o.OffScreen() {
					t.Fatalf("%s tick %d: off-screen obstacle %d kept", mode.Name, tick, o.ID)
				}
				if i > 0 && obstacles[i-1].ID >= o.ID {
					t.Fatalf("%s tick %d: queue out of creation order", mode.Name, tick)
				}
			}
		}
	}
}

func TestFirstUnpassedAheadOf(t *testing.T) {
	cfg := DefaultConfig()
	env := newTestEnvironment(t, cfg, cfg.HumanMode())
	obstacles := env.Obstacles()

	obstacles[0].X = 0
	obstacles[1].X = 300
	got, ok := env.FirstUnpassedAheadOf(100)
	if !ok || got != obstacles[1] {
		t.Fatalf("expected second obstacle, got %+v", got)
	}

	got, _ = env.FirstUnpassedAheadOf(52)
	if got != obstacles[0] {
		t.Fatalf("expected trailing edge equal to x to count as ahead")
	}

	obstacles[1].X = 10
	got, ok = env.FirstUnpassedAheadOf(1000)
	if !ok || got != obstacles[0] {
		t.Fatalf("expected fallback to head, got %+v", got)
	}
}

func TestCollides(t *testing.T) {
	cfg := DefaultConfig()
	env := newTestEnvironment(t, cfg, cfg.HumanMode())
	obstacles := env.Obstacles()
	obstacles[0].X = 90
	obstacles[0].GapTop = 200
	obstacles[1].X = 1000

	cases := []struct {
		name string
		box  Rect
		want bool
	}{
		{name: "inside-gap", box: Rect{X: 100, Y: 250, W: 34, H: 34}, want: false},
		{name: "top-pipe", box: Rect{X: 100, Y: 180, W: 34, H: 34}, want: true},
		{name: "bottom-pipe", box: Rect{X: 100, Y: 330, W: 34, H: 34}, want: true},
		{name: "touching-gap-top", box: Rect{X: 100, Y: 200, W: 34, H: 34}, want: false},
		{name: "clear-of-pipe", box: Rect{X: 10, Y: 100, W: 34, H: 34}, want: false},
		{name: "ceiling", box: Rect{X: 10, Y: 0, W: 34, H: 34}, want: true},
		{name: "just-below-ceiling", box: Rect{X: 10, Y: 0.5, W: 34, H: 34}, want: false},
		{name: "fraction-above-ground", box: Rect{X: 10, Y: env.GroundY() - 34.5, W: 34, H: 34}, want: false},
		{name: "ground", box: Rect{X: 10, Y: env.GroundY() - 34, W: 34, H: 34}, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := env.Collides(tc.box); got != tc.want {
				t.Fatalf("got=%t want=%t", got, tc.want)
			}
		})
	}
}

func TestEnvironmentSnapshotIsDetached(t *testing.T) {
	cfg := DefaultConfig()
	env := newTestEnvironment(t, cfg, cfg.HumanMode())
	snap := env.Snapshot()
	snap.Obstacles[0].X = -999
	if env.Obstacles()[0].X == -999 {
		t.Fatal("snapshot mutation leaked into environment")
	}
	if snap.GroundY != cfg.FloorY()+cfg.GroundOverlap {
		t.Fatalf("unexpected ground: %f", snap.GroundY)
	}
}

func TestFailedUsesUnroundedHeight(t *testing.T) {
	cfg := DefaultConfig()
	env := newTestEnvironment(t, cfg, cfg.BatchMode())
	bird := NewBird("b", cfg.BatchBirdX, cfg)

	bird.Y = 0.5
	if env.Failed(bird) {
		t.Fatal("bird below the top edge must not fail")
	}
	bird.Y = 0
	if !env.Failed(bird) {
		t.Fatal("bird at the top edge must fail")
	}
}

func TestEnvironmentSpacingSupplyAddsAtMostOnePerCall(t *testing.T) {
	cfg := DefaultConfig()
	env := newTestEnvironment(t, cfg, cfg.BatchMode())

	// Spawns land left of width-spacing, so the spacing rule stays unsatisfied.
	policy := SpacingPolicy(cfg.SpawnSpacing, -cfg.SpawnSpacing-50)
	env.Obstacles()[0].X = 0
	if added := env.EnsureSupply(policy); added != 1 {
		t.Fatalf("expected one spawn per call, got %d", added)
	}
	if added := env.EnsureSupply(policy); added != 1 {
		t.Fatalf("expected one spawn per call, got %d", added)
	}
	if env.Len() != 3 {
		t.Fatalf("expected three obstacles, got %d", env.Len())
	}
}

func TestValidateRejectsSpawnOffsetBehindSpacing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchSpawnOffset = -cfg.SpawnSpacing
	if err := cfg.Validate(); err != nil {
		t.Fatalf("offset equal to -spacing should be valid: %v", err)
	}
	cfg.BatchSpawnOffset = -350
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected offset behind spacing to be rejected")
	}
	if _, err := NewSession(cfg, []Member{{ID: "a", Controller: constController(DecisionNone)}}, rand.New(rand.NewSource(1)), SessionOptions{}); err == nil {
		t.Fatal("expected session construction to reject the offset")
	}
}
