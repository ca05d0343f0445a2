package platform

import (
	"context"
	"fmt"
	"sync"

	"flapneat/internal/agent"
	"flapneat/internal/model"
	"flapneat/internal/scape"
)

const DefaultWorkers = 4

// ScoredGenome is one genome's outcome from an independent evaluation.
type ScoredGenome struct {
	Genome  model.Genome
	Fitness float64
	Trace   scape.Trace
}

// Score reads the pass count recorded in the trace.
func (s ScoredGenome) Score() int {
	score, _ := s.Trace["score"].(int)
	return score
}

// ParallelEvaluator scores genomes one at a time in their own environment,
// spread across a fixed worker pool.
type ParallelEvaluator struct {
	Scape   scape.Scape
	Workers int
}

func (e ParallelEvaluator) Evaluate(ctx context.Context, population []model.Genome) ([]ScoredGenome, error) {
	if e.Scape == nil {
		return nil, fmt.Errorf("scape is required")
	}
	if len(population) == 0 {
		return nil, nil
	}

	type job struct {
		idx    int
		genome model.Genome
	}
	type result struct {
		idx    int
		scored ScoredGenome
		err    error
	}

	jobs := make(chan job)
	results := make(chan result, len(population))

	workerCount := e.Workers
	if workerCount <= 0 {
		workerCount = DefaultWorkers
	}
	if workerCount > len(population) {
		workerCount = len(population)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				cortex, err := agent.FromGenome(j.genome)
				if err != nil {
					results <- result{idx: j.idx, err: fmt.Errorf("genome %s: %w", j.genome.ID, err)}
					continue
				}
				fitness, trace, err := e.Scape.Evaluate(ctx, cortex)
				if err != nil {
					results <- result{idx: j.idx, err: fmt.Errorf("genome %s: %w", j.genome.ID, err)}
					continue
				}
				scored := j.genome
				scored.Fitness = float64(fitness)
				results <- result{idx: j.idx, scored: ScoredGenome{Genome: scored, Fitness: float64(fitness), Trace: trace}}
			}
		}()
	}

	for i := range population {
		jobs <- job{idx: i, genome: population[i]}
	}
	close(jobs)

	wg.Wait()
	close(results)

	scored := make([]ScoredGenome, len(population))
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		scored[res.idx] = res.scored
	}
	return scored, nil
}
