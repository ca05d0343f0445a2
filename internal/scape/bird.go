package scape

// Bird is one controllable agent. X never changes; obstacles move instead.
type Bird struct {
	ID       string
	X        float64
	Y        float64
	Velocity float64
	Score    int
	Fitness  float64

	gravity float64
	jump    float64
	size    float64

	retired   bool
	retiredAt int
}

func NewBird(id string, x float64, cfg Config) *Bird {
	return &Bird{
		ID:      id,
		X:       x,
		Y:       float64(int(cfg.ScreenHeight) / 2),
		gravity: cfg.Gravity,
		jump:    cfg.JumpStrength,
		size:    cfg.BirdSize,
	}
}

// Jump overrides any accumulated velocity with the upward impulse.
func (b *Bird) Jump() {
	b.Velocity = -b.jump
}

func (b *Bird) ApplyDecision(d Decision) {
	if d == DecisionAscend {
		b.Jump()
	}
}

// Advance integrates one tick: velocity first, then position.
func (b *Bird) Advance() {
	b.Velocity += b.gravity
	b.Y += b.Velocity
}

// Box is the bird's unrounded extent; Collides truncates it for barrier tests.
func (b *Bird) Box() Rect {
	return Rect{X: b.X, Y: b.Y, W: b.size, H: b.size}
}

// OutOfBounds reports the bird at or above the top edge or at or below floor.
func (b *Bird) OutOfBounds(floor float64) bool {
	return b.Y <= 0 || b.Y >= floor
}

func (b *Bird) Retired() bool { return b.retired }

func (b *Bird) RetiredAt() int { return b.retiredAt }

func (b *Bird) retire(tick int) bool {
	if b.retired {
		return false
	}
	b.retired = true
	b.retiredAt = tick
	return true
}
