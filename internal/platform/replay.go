package platform

import (
	"context"
	"fmt"
	"math/rand"

	"flapneat/internal/agent"
	"flapneat/internal/model"
	"flapneat/internal/scape"
	"flapneat/internal/storage"
)

// ReplayResult reports how far the stored policy flew.
type ReplayResult struct {
	RunID      string
	Generation int
	GenomeID   string
	Score      int
	Ticks      int
	Collided   bool
}

// LoadReplay reads the policy artifact and builds a single-agent game driven
// by it. A missing artifact yields storage.ErrArtifactNotFound.
func LoadReplay(path string, cfg scape.Config, seed int64) (*scape.Game, model.PolicyArtifact, error) {
	artifact, err := storage.ReadPolicyArtifact(path)
	if err != nil {
		return nil, model.PolicyArtifact{}, err
	}
	cortex, err := agent.FromGenome(artifact.Genome)
	if err != nil {
		return nil, model.PolicyArtifact{}, fmt.Errorf("genome %s: %w", artifact.Genome.ID, err)
	}
	game, err := scape.NewGame(cfg, scape.NewPolicyController(cortex, cfg.DecisionThreshold), rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, model.PolicyArtifact{}, err
	}
	return game, artifact, nil
}

// Replay ticks the game until it collides or maxFrames ticks have run.
// A non-positive maxFrames uses the game's frame budget.
func Replay(ctx context.Context, game *scape.Game, maxFrames int, observer func(scape.Snapshot)) (ReplayResult, error) {
	if maxFrames <= 0 {
		maxFrames = game.Config().MaxFrames
	}
	for game.State() == scape.StateRunning && game.Ticks() < maxFrames {
		if _, err := game.Tick(ctx); err != nil {
			return ReplayResult{}, err
		}
		if observer != nil {
			observer(game.Snapshot())
		}
	}
	return ReplayResult{
		Score:    game.Score(),
		Ticks:    game.Ticks(),
		Collided: game.State() == scape.StateCollided,
	}, nil
}

// ReplayArtifact loads and replays the stored best policy.
func ReplayArtifact(ctx context.Context, path string, cfg scape.Config, seed int64, observer func(scape.Snapshot)) (ReplayResult, error) {
	game, artifact, err := LoadReplay(path, cfg, seed)
	if err != nil {
		return ReplayResult{}, err
	}
	result, err := Replay(ctx, game, cfg.MaxFrames, observer)
	if err != nil {
		return ReplayResult{}, err
	}
	result.RunID = artifact.RunID
	result.Generation = artifact.Generation
	result.GenomeID = artifact.Genome.ID
	return result, nil
}
