package scape

import (
	"errors"
	"fmt"
)

// ErrImpossibleGap reports a viewport too small for the configured gap span
// and margins. It is a startup error, never raised mid-session.
var ErrImpossibleGap = errors.New("viewport cannot fit configured obstacle gap")

// Config holds the immutable physical constants of one game or session.
type Config struct {
	ScreenWidth  float64
	ScreenHeight float64
	BaseHeight   float64
	// GroundOverlap lowers the drawn ground below the base band; the single
	// agent game collides against the drawn ground.
	GroundOverlap float64

	BackgroundSpeed float64
	PipeSpeed       float64
	PipeGap         float64
	PipeWidth       float64
	GapMargin       float64

	Gravity      float64
	JumpStrength float64
	BirdSize     float64
	HumanBirdX   float64
	BatchBirdX   float64

	MinimumObstacles  int
	InitialSpawnGap   float64
	SpawnSpacing      float64
	BatchSpawnOffset  float64
	FPS               float64
	MaxFrames         int
	DecisionThreshold float64

	TickFitness    float64
	PassBonus      float64
	FailurePenalty float64
}

func DefaultConfig() Config {
	return Config{
		ScreenWidth:       400,
		ScreenHeight:      600,
		BaseHeight:        100,
		GroundOverlap:     20,
		BackgroundSpeed:   1,
		PipeSpeed:         3,
		PipeGap:           150,
		PipeWidth:         52,
		GapMargin:         100,
		Gravity:           0.5,
		JumpStrength:      8,
		BirdSize:          34,
		HumanBirdX:        100,
		BatchBirdX:        100,
		MinimumObstacles:  2,
		InitialSpawnGap:   200,
		SpawnSpacing:      300,
		BatchSpawnOffset:  100,
		FPS:               60,
		MaxFrames:         10000,
		DecisionThreshold: 0.5,
		TickFitness:       0.1,
		PassBonus:         5,
		FailurePenalty:    1,
	}
}

func (c Config) Validate() error {
	if c.ScreenWidth <= 0 || c.ScreenHeight <= 0 {
		return fmt.Errorf("screen size must be > 0, got %gx%g", c.ScreenWidth, c.ScreenHeight)
	}
	if c.PipeWidth <= 0 || c.PipeGap <= 0 {
		return fmt.Errorf("pipe width and gap must be > 0, got width=%g gap=%g", c.PipeWidth, c.PipeGap)
	}
	if c.PipeSpeed <= 0 {
		return fmt.Errorf("pipe speed must be > 0, got %g", c.PipeSpeed)
	}
	if c.BirdSize <= 0 {
		return fmt.Errorf("bird size must be > 0, got %g", c.BirdSize)
	}
	if c.BaseHeight < 0 || c.BaseHeight >= c.ScreenHeight {
		return fmt.Errorf("base height must be in [0, %g), got %g", c.ScreenHeight, c.BaseHeight)
	}
	if c.GapMargin < 0 {
		return fmt.Errorf("gap margin must be >= 0, got %g", c.GapMargin)
	}
	if lo, hi := c.gapRange(); hi < lo {
		return fmt.Errorf("%w: height=%g gap=%g margin=%g", ErrImpossibleGap, c.ScreenHeight, c.PipeGap, c.GapMargin)
	}
	if c.MinimumObstacles < 1 {
		return fmt.Errorf("minimum obstacles must be >= 1, got %d", c.MinimumObstacles)
	}
	if c.SpawnSpacing < 0 {
		return fmt.Errorf("spawn spacing must be >= 0, got %g", c.SpawnSpacing)
	}
	// A spawn left of width-spacing would immediately call for another.
	if c.BatchSpawnOffset < -c.SpawnSpacing {
		return fmt.Errorf("batch spawn offset must be >= %g, got %g", -c.SpawnSpacing, c.BatchSpawnOffset)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be > 0, got %g", c.FPS)
	}
	if c.MaxFrames <= 0 {
		return fmt.Errorf("max frames must be > 0, got %d", c.MaxFrames)
	}
	return nil
}

// gapRange returns the inclusive bounds for an obstacle's gap top.
func (c Config) gapRange() (int, int) {
	lo := int(c.GapMargin)
	hi := int(c.ScreenHeight - c.PipeGap - c.GapMargin)
	return lo, hi
}

// FloorY is the top of the base band.
func (c Config) FloorY() float64 {
	return c.ScreenHeight - c.BaseHeight
}

// Mode bundles the per-mode choices that differ between the single agent game
// and batch evaluation.
type Mode struct {
	Name                string
	Supply              SupplyPolicy
	GroundY             float64
	AgentX              float64
	InitialSpawnOffsets []float64
}

// HumanMode keeps two obstacles alive and collides against the drawn ground.
func (c Config) HumanMode() Mode {
	return Mode{
		Name:                "human",
		Supply:              MinimumCountPolicy(c.MinimumObstacles),
		GroundY:             c.FloorY() + c.GroundOverlap,
		AgentX:              c.HumanBirdX,
		InitialSpawnOffsets: []float64{0, c.InitialSpawnGap},
	}
}

// BatchMode spawns by horizontal spacing and collides against the base band.
func (c Config) BatchMode() Mode {
	return Mode{
		Name:                "batch",
		Supply:              SpacingPolicy(c.SpawnSpacing, c.BatchSpawnOffset),
		GroundY:             c.FloorY(),
		AgentX:              c.BatchBirdX,
		InitialSpawnOffsets: []float64{c.BatchSpawnOffset},
	}
}
