package scape

import (
	"context"
	"fmt"
	"math/rand"
)

// FlappyScape scores one policy flying alone, so independent genomes can be
// evaluated in parallel. The environment is seeded identically per call.
type FlappyScape struct {
	Config Config
	Seed   int64
}

func NewFlappyScape(cfg Config, seed int64) FlappyScape {
	return FlappyScape{Config: cfg, Seed: seed}
}

func (FlappyScape) Name() string {
	return "flappy"
}

func (s FlappyScape) Evaluate(ctx context.Context, agent Agent) (Fitness, Trace, error) {
	runner, ok := agent.(StepAgent)
	if !ok {
		return 0, nil, fmt.Errorf("agent %s does not implement step runner", agent.ID())
	}

	session, err := NewSession(s.Config, []Member{{
		ID:         agent.ID(),
		Controller: NewPolicyController(runner, s.Config.DecisionThreshold),
	}}, rand.New(rand.NewSource(s.Seed)), SessionOptions{})
	if err != nil {
		return 0, nil, err
	}

	result, err := session.Run(ctx)
	if err != nil {
		return 0, nil, err
	}
	outcome := result.Agents[0]
	return Fitness(outcome.Fitness), Trace{
		"score":       outcome.Score,
		"frames":      result.Frames,
		"termination": string(result.Termination),
		"survived":    outcome.Survived,
	}, nil
}
