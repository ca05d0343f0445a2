package storage

import (
	"context"

	"flapneat/internal/model"
)

// Store persists genomes, populations and per-generation evaluation results.
type Store interface {
	Init(ctx context.Context) error
	SaveGenome(ctx context.Context, genome model.Genome) error
	GetGenome(ctx context.Context, id string) (model.Genome, bool, error)
	SavePopulation(ctx context.Context, population model.Population) error
	GetPopulation(ctx context.Context, id string) (model.Population, bool, error)
	SaveGenerationResult(ctx context.Context, result model.GenerationResult) error
	GetGenerationResults(ctx context.Context, runID string) ([]model.GenerationResult, bool, error)
}
