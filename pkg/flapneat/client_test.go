package flapneat

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"flapneat/internal/config"
	"flapneat/internal/platform"
	"flapneat/internal/scape"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.Session.Population = 8
	cfg.Session.MaxFrames = 600
	client, err := New(Options{
		Config:       &cfg,
		StoreKind:    "memory",
		ArtifactPath: filepath.Join(t.TempDir(), "best.json.zst"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestClientSeedEvaluateReplay(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	seeded, err := client.Seed(ctx, SeedRequest{PopulationID: "pop", Seed: 4})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if seeded.Genomes != 8 {
		t.Fatalf("unexpected seed summary: %+v", seeded)
	}

	var frames int
	summary, err := client.Evaluate(ctx, EvaluateRequest{
		PopulationID: "pop",
		Generations:  2,
		Observer:     func(int, scape.Snapshot) { frames++ },
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if summary.RunID == "" || len(summary.Generations) != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Generations[0].Generation != 0 || summary.Generations[1].Generation != 1 {
		t.Fatalf("expected generation counter to advance: %+v", summary.Generations)
	}
	total := summary.Generations[0].Frames + summary.Generations[1].Frames
	if frames != total {
		t.Fatalf("expected one observed snapshot per tick, got %d want %d", frames, total)
	}
	if _, ok := summary.Best(); !ok {
		t.Fatal("expected a best generation")
	}

	stored, err := client.Generations(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("generations: %v", err)
	}
	if len(stored) != 2 || stored[1].Agents == nil || len(stored[1].Agents) != 8 {
		t.Fatalf("unexpected stored generations: %+v", stored)
	}

	replay, err := client.Replay(ctx, ReplayRequest{})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.GenomeID != stored[1].BestAgentID || replay.Generation != 1 {
		t.Fatalf("expected replay of last generation's best, got %+v", replay)
	}
	if replay.Ticks == 0 || replay.Ticks > 600 {
		t.Fatalf("unexpected replay length: %d", replay.Ticks)
	}
}

func TestClientEvaluateParallelSeedsMissingPopulation(t *testing.T) {
	client := newTestClient(t)
	summary, err := client.Evaluate(context.Background(), EvaluateRequest{
		Mode:          platform.EvalParallel,
		SeedIfMissing: true,
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(summary.Generations) != 1 || len(summary.Generations[0].Agents) != 8 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestClientEvaluateMissingPopulation(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.Evaluate(context.Background(), EvaluateRequest{PopulationID: "none"}); err == nil {
		t.Fatal("expected missing population error")
	}
}

func TestClientReplayWithoutArtifact(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.Replay(context.Background(), ReplayRequest{}); !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
}

func TestClientGenerationsUnknownRun(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.Generations(context.Background(), "nope"); err == nil {
		t.Fatal("expected unknown run error")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Obstacles.Gap = 500
	if _, err := New(Options{Config: &cfg}); !errors.Is(err, config.ErrImpossibleGap) {
		t.Fatalf("expected ErrImpossibleGap, got %v", err)
	}
}
