package scape

import (
	"fmt"
	"math/rand"
)

// SupplyPolicy decides when new obstacles are appended. An obstacle is added
// while fewer than MinCount are live, or, when Spacing is positive, while the
// rightmost obstacle has scrolled left of width-Spacing.
type SupplyPolicy struct {
	MinCount    int
	Spacing     float64
	SpawnOffset float64
}

// MinimumCountPolicy keeps at least count obstacles alive.
func MinimumCountPolicy(count int) SupplyPolicy {
	return SupplyPolicy{MinCount: count}
}

// SpacingPolicy spawns a new obstacle once the newest one is spacing pixels
// inside the viewport.
func SpacingPolicy(spacing, offset float64) SupplyPolicy {
	return SupplyPolicy{MinCount: 1, Spacing: spacing, SpawnOffset: offset}
}

// Environment owns the scrolling layers and the obstacle queue shared by
// every agent of one game or session.
type Environment struct {
	cfg  Config
	mode Mode
	rng  *rand.Rand

	backgroundX float64
	groundX     float64
	obstacles   []*Obstacle
	nextID      int
}

func NewEnvironment(cfg Config, mode Mode, rng *rand.Rand) (*Environment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("environment rng is required")
	}
	return newEnvironment(cfg, mode, rng), nil
}

func newEnvironment(cfg Config, mode Mode, rng *rand.Rand) *Environment {
	e := &Environment{cfg: cfg, mode: mode, rng: rng}
	for _, offset := range mode.InitialSpawnOffsets {
		e.spawn(cfg.ScreenWidth + offset)
	}
	return e
}

func (e *Environment) Config() Config { return e.cfg }

func (e *Environment) Mode() Mode { return e.mode }

func (e *Environment) GroundY() float64 { return e.mode.GroundY }

func (e *Environment) BackgroundX() float64 { return e.backgroundX }

func (e *Environment) GroundX() float64 { return e.groundX }

// Obstacles exposes the live queue, oldest first. Callers must not reorder it.
func (e *Environment) Obstacles() []*Obstacle { return e.obstacles }

func (e *Environment) Len() int { return len(e.obstacles) }

func (e *Environment) Head() (*Obstacle, bool) {
	if len(e.obstacles) == 0 {
		return nil, false
	}
	return e.obstacles[0], true
}

// Advance scrolls both layers, moves every obstacle and drops the ones that
// left the viewport.
func (e *Environment) Advance() {
	e.Scroll()
	e.MoveObstacles()
	e.Prune()
}

func (e *Environment) Scroll() {
	e.backgroundX = wrapScroll(e.backgroundX-e.cfg.BackgroundSpeed, e.cfg.ScreenWidth)
	e.groundX = wrapScroll(e.groundX-e.cfg.PipeSpeed, e.cfg.ScreenWidth)
}

func wrapScroll(x, width float64) float64 {
	if x <= -width {
		return 0
	}
	return x
}

func (e *Environment) MoveObstacles() {
	for _, o := range e.obstacles {
		o.Move(e.cfg.PipeSpeed)
	}
}

// Prune removes off-screen obstacles from the head only.
func (e *Environment) Prune() int {
	removed := 0
	for len(e.obstacles) > 0 && e.obstacles[0].OffScreen() {
		e.obstacles[0] = nil
		e.obstacles = e.obstacles[1:]
		removed++
	}
	return removed
}

// EnsureSupply tops the queue up to MinCount and, under a spacing policy,
// appends at most one further obstacle per call. It returns how many were
// added.
func (e *Environment) EnsureSupply(policy SupplyPolicy) int {
	added := 0
	for len(e.obstacles) < policy.MinCount {
		e.spawn(e.cfg.ScreenWidth + policy.SpawnOffset)
		added++
	}
	if policy.Spacing > 0 && len(e.obstacles) > 0 {
		last := e.obstacles[len(e.obstacles)-1]
		if last.X < e.cfg.ScreenWidth-policy.Spacing {
			e.spawn(e.cfg.ScreenWidth + policy.SpawnOffset)
			added++
		}
	}
	return added
}

func (e *Environment) spawn(x float64) *Obstacle {
	o := newObstacle(e.nextID, x, e.cfg, e.rng)
	e.nextID++
	e.obstacles = append(e.obstacles, o)
	return o
}

// FirstUnpassedAheadOf returns the first obstacle whose trailing edge is at or
// ahead of x, falling back to the head when every obstacle is behind.
func (e *Environment) FirstUnpassedAheadOf(x float64) (*Obstacle, bool) {
	for _, o := range e.obstacles {
		if o.TrailingEdge() >= x {
			return o, true
		}
	}
	return e.Head()
}

// Collides reports contact with the top edge, the ground or any barrier.
// Edges are tested on the unrounded box, barriers on its pixel rect.
func (e *Environment) Collides(box Rect) bool {
	if box.Y <= 0 || box.Bottom() >= e.mode.GroundY {
		return true
	}
	px := box.Pixel()
	for _, o := range e.obstacles {
		top, bottom := o.Rects()
		if px.Intersects(top) || px.Intersects(bottom) {
			return true
		}
	}
	return false
}

// Failed combines barrier collision with the vertical bounds check.
func (e *Environment) Failed(b *Bird) bool {
	return e.Collides(b.Box()) || b.OutOfBounds(e.mode.GroundY)
}

func (e *Environment) Snapshot() EnvironmentSnapshot {
	obstacles := make([]ObstacleSnapshot, 0, len(e.obstacles))
	for _, o := range e.obstacles {
		obstacles = append(obstacles, ObstacleSnapshot{
			ID:        o.ID,
			X:         o.X,
			Width:     o.width,
			GapTop:    o.GapTop,
			GapBottom: o.GapBottom(),
			Passed:    o.Passed,
		})
	}
	return EnvironmentSnapshot{
		Width:       e.cfg.ScreenWidth,
		Height:      e.cfg.ScreenHeight,
		BackgroundX: e.backgroundX,
		GroundX:     e.groundX,
		GroundY:     e.mode.GroundY,
		Obstacles:   obstacles,
	}
}
