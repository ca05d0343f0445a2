package scape

import "math/rand"

// Obstacle is one pipe pair with a fixed vertical opening.
type Obstacle struct {
	ID     int
	X      float64
	GapTop float64
	Passed bool

	width  float64
	gap    float64
	height float64
}

func newObstacle(id int, x float64, cfg Config, rng *rand.Rand) *Obstacle {
	lo, hi := cfg.gapRange()
	return &Obstacle{
		ID:     id,
		X:      x,
		GapTop: float64(lo + rng.Intn(hi-lo+1)),
		width:  cfg.PipeWidth,
		gap:    cfg.PipeGap,
		height: cfg.ScreenHeight,
	}
}

func (o *Obstacle) Width() float64 { return o.width }

func (o *Obstacle) GapBottom() float64 { return o.GapTop + o.gap }

func (o *Obstacle) TrailingEdge() float64 { return o.X + o.width }

func (o *Obstacle) Midpoint() float64 { return o.X + o.width/2 }

func (o *Obstacle) Move(speed float64) {
	o.X -= speed
}

func (o *Obstacle) OffScreen() bool {
	return o.X+o.width < 0
}

// MarkPassed flips the passed flag once and reports whether this call did it.
func (o *Obstacle) MarkPassed() bool {
	if o.Passed {
		return false
	}
	o.Passed = true
	return true
}

// Rects returns the top and bottom barriers around the opening.
func (o *Obstacle) Rects() (Rect, Rect) {
	x := pixel(o.X)
	top := Rect{X: x, Y: 0, W: o.width, H: o.GapTop}
	bottom := Rect{X: x, Y: o.GapBottom(), W: o.width, H: o.height - o.GapBottom()}
	return top, bottom
}
