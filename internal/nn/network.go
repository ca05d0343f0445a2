package nn

import (
	"fmt"

	"flapneat/internal/model"
)

// Network is a genome compiled for repeated activation. Neurons fire once per
// activation in dependency order, so a hidden neuron declared after the
// output it feeds still fires first. Neurons on a cycle fire in declaration
// order after everything else and read zero from members not yet fired.
type Network struct {
	size    int
	inputs  []int
	outputs []int
	nodes   []node
}

type node struct {
	slot     int
	bias     float64
	activate ActivationFunc
	incoming []edge
}

type edge struct {
	from   int
	weight float64
}

// Compile resolves neuron ids, activations and enabled synapses once so that
// Activate does no lookups.
func Compile(genome model.Genome) (*Network, error) {
	slots := make(map[string]int, len(genome.Neurons))
	for i, neuron := range genome.Neurons {
		if neuron.ID == "" {
			return nil, fmt.Errorf("neuron %d: id is required", i)
		}
		if _, dup := slots[neuron.ID]; dup {
			return nil, fmt.Errorf("duplicate neuron id: %s", neuron.ID)
		}
		slots[neuron.ID] = i
	}

	net := &Network{size: len(genome.Neurons)}
	fixed := make(map[int]bool, len(genome.InputNeuronIDs))
	for _, id := range genome.InputNeuronIDs {
		slot, ok := slots[id]
		if !ok {
			return nil, fmt.Errorf("input neuron %s is not declared", id)
		}
		fixed[slot] = true
		net.inputs = append(net.inputs, slot)
	}
	for _, id := range genome.OutputNeuronIDs {
		slot, ok := slots[id]
		if !ok {
			return nil, fmt.Errorf("output neuron %s is not declared", id)
		}
		net.outputs = append(net.outputs, slot)
	}

	incoming := make(map[int][]edge, len(genome.Neurons))
	for _, synapse := range genome.Synapses {
		if !synapse.Enabled {
			continue
		}
		from, ok := slots[synapse.From]
		if !ok {
			return nil, fmt.Errorf("synapse %s: unknown source %s", synapse.ID, synapse.From)
		}
		to, ok := slots[synapse.To]
		if !ok {
			return nil, fmt.Errorf("synapse %s: unknown target %s", synapse.ID, synapse.To)
		}
		incoming[to] = append(incoming[to], edge{from: from, weight: synapse.Weight})
	}

	for _, i := range fireOrder(len(genome.Neurons), fixed, incoming) {
		neuron := genome.Neurons[i]
		fn, err := GetActivation(neuron.Activation)
		if err != nil {
			return nil, fmt.Errorf("neuron %s: %w", neuron.ID, err)
		}
		net.nodes = append(net.nodes, node{slot: i, bias: neuron.Bias, activate: fn, incoming: incoming[i]})
	}
	return net, nil
}

func (n *Network) Inputs() int  { return len(n.inputs) }
func (n *Network) Outputs() int { return len(n.outputs) }

// Activate runs one feed-forward pass and returns the output neuron values in
// OutputNeuronIDs order.
func (n *Network) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(n.inputs) {
		return nil, fmt.Errorf("input size mismatch: got=%d want=%d", len(inputs), len(n.inputs))
	}

	values := make([]float64, n.size)
	for i, slot := range n.inputs {
		values[slot] = inputs[i]
	}
	for _, nd := range n.nodes {
		total := nd.bias
		for _, e := range nd.incoming {
			total += values[e.from] * e.weight
		}
		values[nd.slot] = nd.activate(total)
	}

	out := make([]float64, len(n.outputs))
	for i, slot := range n.outputs {
		out[i] = values[slot]
	}
	return out, nil
}

// fireOrder sorts the non-input slots so every neuron follows its sources.
// Ties keep declaration order.
func fireOrder(size int, fixed map[int]bool, incoming map[int][]edge) []int {
	pending := make([]int, size)
	dependents := make(map[int][]int, size)
	for to, edges := range incoming {
		if fixed[to] {
			continue
		}
		for _, e := range edges {
			if fixed[e.from] {
				continue
			}
			pending[to]++
			dependents[e.from] = append(dependents[e.from], to)
		}
	}

	order := make([]int, 0, size)
	placed := make([]bool, size)
	for progress := true; progress; {
		progress = false
		for i := 0; i < size; i++ {
			if fixed[i] || placed[i] || pending[i] > 0 {
				continue
			}
			placed[i] = true
			order = append(order, i)
			for _, d := range dependents[i] {
				pending[d]--
			}
			progress = true
		}
	}
	for i := 0; i < size; i++ {
		if !fixed[i] && !placed[i] {
			order = append(order, i)
		}
	}
	return order
}
