package terminal

import "time"

// Pace holds the real-time frame rate of the human game. The rate climbs by
// Step on every frame where the score is a multiple of ten above one.
type Pace struct {
	Base float64
	Step float64
	fps  float64
}

func NewPace(base float64) *Pace {
	return &Pace{Base: base, Step: 0.5, fps: base}
}

func (p *Pace) FPS() float64 { return p.fps }

func (p *Pace) Observe(score int) {
	if score > 1 && score%10 == 0 {
		p.fps += p.Step
	}
}

func (p *Pace) Reset() { p.fps = p.Base }

func (p *Pace) Interval() time.Duration {
	if p.fps <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / p.fps)
}
