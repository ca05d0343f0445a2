package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"flapneat/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	genomes     map[string]model.Genome
	populations map[string]model.Population
	generations map[string][]model.GenerationResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.genomes = make(map[string]model.Genome)
	s.populations = make(map[string]model.Population)
	s.generations = make(map[string][]model.GenerationResult)
	return nil
}

func (s *MemoryStore) SaveGenome(_ context.Context, genome model.Genome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.genomes[genome.ID] = cloneGenome(genome)
	return nil
}

func (s *MemoryStore) GetGenome(_ context.Context, id string) (model.Genome, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	genome, ok := s.genomes[id]
	if !ok {
		return model.Genome{}, false, nil
	}
	return cloneGenome(genome), true, nil
}

func (s *MemoryStore) SavePopulation(_ context.Context, population model.Population) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	population.GenomeIDs = append([]string(nil), population.GenomeIDs...)
	s.populations[population.ID] = population
	return nil
}

func (s *MemoryStore) GetPopulation(_ context.Context, id string) (model.Population, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	population, ok := s.populations[id]
	if !ok {
		return model.Population{}, false, nil
	}
	population.GenomeIDs = append([]string(nil), population.GenomeIDs...)
	return population, true, nil
}

// SaveGenerationResult replaces any earlier result for the same run and
// generation.
func (s *MemoryStore) SaveGenerationResult(_ context.Context, result model.GenerationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	result.Agents = append([]model.AgentResult(nil), result.Agents...)
	results := s.generations[result.RunID]
	for i := range results {
		if results[i].Generation == result.Generation {
			results[i] = result
			return nil
		}
	}
	results = append(results, result)
	sort.Slice(results, func(i, j int) bool { return results[i].Generation < results[j].Generation })
	s.generations[result.RunID] = results
	return nil
}

func (s *MemoryStore) GetGenerationResults(_ context.Context, runID string) ([]model.GenerationResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results, ok := s.generations[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.GenerationResult, len(results))
	for i, result := range results {
		result.Agents = append([]model.AgentResult(nil), result.Agents...)
		copied[i] = result
	}
	return copied, true, nil
}

var errNotInitialized = errors.New("store is not initialized")

func cloneGenome(g model.Genome) model.Genome {
	g.Neurons = append([]model.Neuron(nil), g.Neurons...)
	g.Synapses = append([]model.Synapse(nil), g.Synapses...)
	g.InputNeuronIDs = append([]string(nil), g.InputNeuronIDs...)
	g.OutputNeuronIDs = append([]string(nil), g.OutputNeuronIDs...)
	return g
}
