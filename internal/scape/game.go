package scape

import (
	"context"
	"fmt"
	"math/rand"
)

type State int

const (
	StateRunning State = iota
	StateCollided
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCollided:
		return "collided"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Game is the single agent stepper used for human play and policy replay.
// A collided game stays collided until Reset.
type Game struct {
	cfg        Config
	rng        *rand.Rand
	controller Controller

	env   *Environment
	bird  *Bird
	state State
	score int
	ticks int
}

func NewGame(cfg Config, controller Controller, rng *rand.Rand) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if controller == nil {
		return nil, fmt.Errorf("game controller is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("game rng is required")
	}
	g := &Game{cfg: cfg, rng: rng, controller: controller}
	g.reset()
	return g, nil
}

func (g *Game) reset() {
	mode := g.cfg.HumanMode()
	g.env = newEnvironment(g.cfg, mode, g.rng)
	g.bird = NewBird("player", mode.AgentX, g.cfg)
	g.state = StateRunning
	g.score = 0
	g.ticks = 0
}

// Reset starts a fresh run with the current configuration.
func (g *Game) Reset() {
	g.reset()
}

// ResetWith starts a fresh run with a new configuration; drivers use it to
// change pacing or gap between runs.
func (g *Game) ResetWith(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.cfg = cfg
	g.reset()
	return nil
}

func (g *Game) Config() Config { return g.cfg }

func (g *Game) State() State { return g.state }

func (g *Game) Score() int { return g.score }

func (g *Game) Ticks() int { return g.ticks }

func (g *Game) Bird() *Bird { return g.bird }

func (g *Game) Environment() *Environment { return g.env }

// Observation is what the controller sees: the next obstacle ahead of the bird.
func (g *Game) Observation() []float64 {
	target, _ := g.env.FirstUnpassedAheadOf(g.bird.X)
	return Observe(g.bird, target, g.cfg)
}

// Tick asks the controller for a decision and steps with it.
func (g *Game) Tick(ctx context.Context) (State, error) {
	if g.state == StateCollided {
		return g.state, nil
	}
	decision, err := g.controller.Decide(ctx, g.Observation())
	if err != nil {
		return g.state, fmt.Errorf("decide: %w", err)
	}
	return g.Step(decision), nil
}

// Step advances the game one tick with the given decision.
func (g *Game) Step(decision Decision) State {
	if g.state == StateCollided {
		return g.state
	}
	g.ticks++

	g.env.Advance()
	g.bird.ApplyDecision(decision)
	g.bird.Advance()
	g.env.EnsureSupply(g.env.Mode().Supply)

	for _, o := range g.env.Obstacles() {
		if !o.Passed && o.Midpoint() < g.bird.X {
			o.MarkPassed()
			g.bird.Score++
			g.score++
		}
	}

	if g.env.Failed(g.bird) {
		g.bird.retire(g.ticks)
		g.state = StateCollided
	}
	return g.state
}

func (g *Game) Snapshot() Snapshot {
	alive := 1
	if g.state == StateCollided {
		alive = 0
	}
	return Snapshot{
		Tick:        g.ticks,
		Environment: g.env.Snapshot(),
		Agents:      []AgentSnapshot{snapshotBird(g.bird)},
		Alive:       alive,
		Score:       g.score,
		BestAgentID: g.bird.ID,
	}
}
