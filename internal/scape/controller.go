package scape

import (
	"context"
	"fmt"
	"sync/atomic"
)

type Decision int

const (
	DecisionNone Decision = iota
	DecisionAscend
)

func (d Decision) String() string {
	if d == DecisionAscend {
		return "ascend"
	}
	return "none"
}

// Controller turns an observation into a binary decision once per tick.
type Controller interface {
	Decide(ctx context.Context, observation []float64) (Decision, error)
}

// Policy is the externally supplied network: observation in, outputs out.
type Policy interface {
	RunStep(ctx context.Context, input []float64) ([]float64, error)
}

type PolicyFunc func(ctx context.Context, input []float64) ([]float64, error)

func (f PolicyFunc) RunStep(ctx context.Context, input []float64) ([]float64, error) {
	return f(ctx, input)
}

// HumanController ascends exactly once per Jump call, on the next tick.
// Jump may be called from an input goroutine.
type HumanController struct {
	pending atomic.Bool
}

func NewHumanController() *HumanController {
	return &HumanController{}
}

func (h *HumanController) Jump() {
	h.pending.Store(true)
}

func (h *HumanController) Decide(context.Context, []float64) (Decision, error) {
	if h.pending.Swap(false) {
		return DecisionAscend, nil
	}
	return DecisionNone, nil
}

type PolicyController struct {
	policy    Policy
	threshold float64
}

func NewPolicyController(policy Policy, threshold float64) *PolicyController {
	return &PolicyController{policy: policy, threshold: threshold}
}

func (p *PolicyController) Decide(ctx context.Context, observation []float64) (Decision, error) {
	out, err := p.policy.RunStep(ctx, observation)
	if err != nil {
		return DecisionNone, err
	}
	if len(out) == 0 {
		return DecisionNone, fmt.Errorf("policy returned no outputs")
	}
	if out[0] > p.threshold {
		return DecisionAscend, nil
	}
	return DecisionNone, nil
}

// ObservationSize is the length of the vector built by Observe.
const ObservationSize = 3

// Observe normalizes the bird's offset to the target obstacle's opening and
// its horizontal distance to the obstacle.
func Observe(b *Bird, target *Obstacle, cfg Config) []float64 {
	if target == nil {
		return make([]float64, ObservationSize)
	}
	return []float64{
		(target.GapTop - b.Y) / cfg.ScreenHeight,
		(target.GapBottom() - b.Y) / cfg.ScreenHeight,
		(target.X - b.X) / cfg.ScreenWidth,
	}
}
