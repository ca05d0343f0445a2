package agent

import (
	"context"
	"fmt"

	"flapneat/internal/model"
	"flapneat/internal/nn"
)

// Cortex activates a genome as a step policy: one observation in, one output
// vector out, no state carried between steps.
type Cortex struct {
	id  string
	net *nn.Network
}

func NewCortex(id string, genome model.Genome) (*Cortex, error) {
	if id == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	if len(genome.InputNeuronIDs) == 0 {
		return nil, fmt.Errorf("input neuron ids are required")
	}
	if len(genome.OutputNeuronIDs) == 0 {
		return nil, fmt.Errorf("output neuron ids are required")
	}

	net, err := nn.Compile(genome)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", id, err)
	}
	return &Cortex{id: id, net: net}, nil
}

// FromGenome builds a cortex identified by the genome id.
func FromGenome(genome model.Genome) (*Cortex, error) {
	return NewCortex(genome.ID, genome)
}

func (c *Cortex) ID() string {
	return c.id
}

func (c *Cortex) RunStep(ctx context.Context, inputs []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.net.Activate(inputs)
}
