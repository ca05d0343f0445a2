package storage

import (
	"context"
	"testing"

	"flapneat/internal/model"
)

func TestMemoryStoreGenomeAndPopulationRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	genome := testGenome("g1")
	if err := store.SaveGenome(ctx, genome); err != nil {
		t.Fatalf("save genome: %v", err)
	}
	genome.Neurons[1].Bias = 99

	loaded, ok, err := store.GetGenome(ctx, "g1")
	if err != nil || !ok {
		t.Fatalf("get genome: ok=%t err=%v", ok, err)
	}
	if loaded.Neurons[1].Bias != 0.25 {
		t.Fatalf("expected stored genome to be detached, got bias %f", loaded.Neurons[1].Bias)
	}

	population := model.Population{VersionedRecord: CurrentVersion(), ID: "p1", GenomeIDs: []string{"g1"}, Generation: 2}
	if err := store.SavePopulation(ctx, population); err != nil {
		t.Fatalf("save population: %v", err)
	}
	loadedPopulation, ok, err := store.GetPopulation(ctx, "p1")
	if err != nil || !ok {
		t.Fatalf("get population: ok=%t err=%v", ok, err)
	}
	if loadedPopulation.Generation != 2 || len(loadedPopulation.GenomeIDs) != 1 {
		t.Fatalf("unexpected population: %+v", loadedPopulation)
	}

	if _, ok, err := store.GetGenome(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected missing genome, ok=%t err=%v", ok, err)
	}
}

func TestMemoryStoreGenerationResultsOrderedAndReplaced(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, generation := range []int{2, 0, 1} {
		result := model.GenerationResult{VersionedRecord: CurrentVersion(), RunID: "run-1", Generation: generation, Frames: 10 * generation}
		if err := store.SaveGenerationResult(ctx, result); err != nil {
			t.Fatalf("save result: %v", err)
		}
	}
	replacement := model.GenerationResult{VersionedRecord: CurrentVersion(), RunID: "run-1", Generation: 1, Frames: 99}
	if err := store.SaveGenerationResult(ctx, replacement); err != nil {
		t.Fatalf("save replacement: %v", err)
	}

	results, ok, err := store.GetGenerationResults(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get results: ok=%t err=%v", ok, err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 generations, got %d", len(results))
	}
	for i, result := range results {
		if result.Generation != i {
			t.Fatalf("results out of order: %+v", results)
		}
	}
	if results[1].Frames != 99 {
		t.Fatalf("expected replaced generation, got %+v", results[1])
	}
	if _, ok, _ := store.GetGenerationResults(ctx, "run-2"); ok {
		t.Fatal("expected unknown run to be absent")
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveGenome(context.Background(), testGenome("g1")); err == nil {
		t.Fatal("expected error before init")
	}
}
