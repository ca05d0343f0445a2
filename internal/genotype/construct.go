package genotype

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"flapneat/internal/model"
	"flapneat/internal/scape"
	"flapneat/internal/storage"
)

// OutputActivation is the activation of the decision neuron.
const OutputActivation = "neat_sigmoid"

// ConstructNeuron builds a neuron and one enabled inbound synapse per source.
// Weights are drawn from a unit normal; the bias is drawn the same way.
func ConstructNeuron(neuronID string, fromIDs []string, activations []string, rng *rand.Rand) (model.Neuron, []model.Synapse, error) {
	if strings.TrimSpace(neuronID) == "" {
		return model.Neuron{}, nil, fmt.Errorf("neuron id is required")
	}
	rng = ensureRNG(rng)

	neuron := model.Neuron{
		ID:         neuronID,
		Activation: GenerateNeuronAF(rng, activations),
		Bias:       rng.NormFloat64(),
	}
	synapses := make([]model.Synapse, 0, len(fromIDs))
	for _, fromID := range fromIDs {
		fromID = strings.TrimSpace(fromID)
		if fromID == "" {
			continue
		}
		synapses = append(synapses, model.Synapse{
			ID:      fmt.Sprintf("%s:in:%s", neuronID, fromID),
			From:    fromID,
			To:      neuronID,
			Weight:  rng.NormFloat64(),
			Enabled: true,
		})
	}
	return neuron, synapses, nil
}

// GenerateNeuronAF picks one of activations. Empty inputs default to the
// output activation.
func GenerateNeuronAF(rng *rand.Rand, activations []string) string {
	choice, err := RandomElement(ensureRNG(rng), activations)
	if err != nil {
		return OutputActivation
	}
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return OutputActivation
	}
	return choice
}

// RandomGenome builds a fully connected genome with one input per observation
// value and a single decision output.
func RandomGenome(rng *rand.Rand, id string) (model.Genome, error) {
	if strings.TrimSpace(id) == "" {
		return model.Genome{}, fmt.Errorf("genome id is required")
	}
	rng = ensureRNG(rng)

	genome := model.Genome{
		VersionedRecord: storage.CurrentVersion(),
		ID:              id,
	}
	for i := 0; i < scape.ObservationSize; i++ {
		inputID := fmt.Sprintf("i%d", i)
		genome.InputNeuronIDs = append(genome.InputNeuronIDs, inputID)
		genome.Neurons = append(genome.Neurons, model.Neuron{ID: inputID, Activation: "identity"})
	}

	output, synapses, err := ConstructNeuron("o0", genome.InputNeuronIDs, []string{OutputActivation}, rng)
	if err != nil {
		return model.Genome{}, err
	}
	genome.Neurons = append(genome.Neurons, output)
	genome.Synapses = synapses
	genome.OutputNeuronIDs = []string{output.ID}
	return genome, nil
}

// SeedPopulation creates size random genomes and the population that lists
// them.
func SeedPopulation(rng *rand.Rand, populationID string, size int) (model.Population, []model.Genome, error) {
	if strings.TrimSpace(populationID) == "" {
		return model.Population{}, nil, fmt.Errorf("population id is required")
	}
	if size <= 0 {
		return model.Population{}, nil, fmt.Errorf("population size must be > 0, got %d", size)
	}
	rng = ensureRNG(rng)

	population := model.Population{
		VersionedRecord: storage.CurrentVersion(),
		ID:              populationID,
	}
	genomes := make([]model.Genome, 0, size)
	for i := 0; i < size; i++ {
		genome, err := RandomGenome(rng, fmt.Sprintf("%s-g%d", populationID, i))
		if err != nil {
			return model.Population{}, nil, err
		}
		genomes = append(genomes, genome)
		population.GenomeIDs = append(population.GenomeIDs, genome.ID)
	}
	return population, genomes, nil
}

func ensureRNG(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func RandomElement[T any](rng *rand.Rand, values []T) (T, error) {
	var zero T
	if len(values) == 0 {
		return zero, fmt.Errorf("values are required")
	}
	return values[ensureRNG(rng).Intn(len(values))], nil
}
