package platform

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"

	"github.com/google/uuid"

	"flapneat/internal/agent"
	"flapneat/internal/model"
	"flapneat/internal/scape"
	"flapneat/internal/storage"
)

type EvalMode string

const (
	// EvalLockStep flies the whole population together in one session.
	EvalLockStep EvalMode = "lockstep"
	// EvalParallel flies each genome alone on a worker pool.
	EvalParallel EvalMode = "parallel"
)

type TrainerConfig struct {
	Store        storage.Store
	Game         scape.Config
	Mode         EvalMode
	Workers      int
	Seed         int64
	ArtifactPath string
	Logger       *log.Logger
	// Observer receives lock-step session snapshots.
	Observer func(scape.Snapshot)
}

// Trainer evaluates stored populations, persists the per-generation outcome
// and keeps the best policy artifact current.
type Trainer struct {
	cfg    TrainerConfig
	logger *log.Logger
}

func NewTrainer(cfg TrainerConfig) (*Trainer, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if err := cfg.Game.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case "":
		cfg.Mode = EvalLockStep
	case EvalLockStep, EvalParallel:
	default:
		return nil, fmt.Errorf("unsupported eval mode: %s", cfg.Mode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Trainer{cfg: cfg, logger: logger}, nil
}

func NewRunID() string {
	return uuid.NewString()
}

// EvaluateGeneration scores every genome of the population, stores the updated
// genomes and the generation result, and writes the best genome as the policy
// artifact when a path is configured.
func (t *Trainer) EvaluateGeneration(ctx context.Context, runID, populationID string) (model.GenerationResult, error) {
	if runID == "" {
		runID = NewRunID()
	}
	population, ok, err := t.cfg.Store.GetPopulation(ctx, populationID)
	if err != nil {
		return model.GenerationResult{}, err
	}
	if !ok {
		return model.GenerationResult{}, fmt.Errorf("population not found: %s", populationID)
	}
	genomes, err := t.loadGenomes(ctx, population)
	if err != nil {
		return model.GenerationResult{}, err
	}

	var result model.GenerationResult
	switch t.cfg.Mode {
	case EvalParallel:
		result, err = t.evaluateParallel(ctx, population, genomes)
	default:
		result, err = t.evaluateLockStep(ctx, population, genomes)
	}
	if err != nil {
		return model.GenerationResult{}, err
	}
	result.VersionedRecord = storage.CurrentVersion()
	result.RunID = runID
	result.PopulationID = population.ID
	result.Generation = population.Generation

	for _, genome := range genomes {
		if err := t.cfg.Store.SaveGenome(ctx, genome); err != nil {
			return model.GenerationResult{}, fmt.Errorf("save genome %s: %w", genome.ID, err)
		}
	}
	if err := t.cfg.Store.SaveGenerationResult(ctx, result); err != nil {
		return model.GenerationResult{}, err
	}

	if t.cfg.ArtifactPath != "" && result.BestAgentID != "" {
		if err := t.writeBest(result, genomes); err != nil {
			return model.GenerationResult{}, err
		}
	}
	t.logger.Printf("run=%s generation=%d frames=%d termination=%s best=%s score=%d fitness=%.2f",
		runID, result.Generation, result.Frames, result.Termination, result.BestAgentID, result.BestScore, result.BestFitness)
	return result, nil
}

func (t *Trainer) loadGenomes(ctx context.Context, population model.Population) ([]model.Genome, error) {
	if len(population.GenomeIDs) == 0 {
		return nil, fmt.Errorf("population %s has no genomes", population.ID)
	}
	genomes := make([]model.Genome, 0, len(population.GenomeIDs))
	for _, id := range population.GenomeIDs {
		genome, ok, err := t.cfg.Store.GetGenome(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("genome not found: %s", id)
		}
		genomes = append(genomes, genome)
	}
	return genomes, nil
}

func (t *Trainer) generationSeed(population model.Population) int64 {
	return t.cfg.Seed + int64(population.Generation)
}

func (t *Trainer) evaluateLockStep(ctx context.Context, population model.Population, genomes []model.Genome) (model.GenerationResult, error) {
	members := make([]scape.Member, 0, len(genomes))
	for i := range genomes {
		cortex, err := agent.FromGenome(genomes[i])
		if err != nil {
			return model.GenerationResult{}, fmt.Errorf("genome %s: %w", genomes[i].ID, err)
		}
		members = append(members, scape.Member{
			ID:         genomes[i].ID,
			Controller: scape.NewPolicyController(cortex, t.cfg.Game.DecisionThreshold),
			Sink:       NewGenomeFitness(&genomes[i]),
		})
	}

	session, err := scape.NewSession(t.cfg.Game, members, rand.New(rand.NewSource(t.generationSeed(population))), scape.SessionOptions{
		Logger:   t.logger,
		Observer: t.cfg.Observer,
	})
	if err != nil {
		return model.GenerationResult{}, err
	}
	outcome, err := session.Run(ctx)
	if err != nil {
		return model.GenerationResult{}, err
	}

	result := model.GenerationResult{
		Frames:      outcome.Frames,
		Termination: string(outcome.Termination),
		Agents:      outcome.Agents,
	}
	if outcome.HasBest {
		result.BestAgentID = outcome.Best.AgentID
		result.BestScore = outcome.Best.Score
		result.BestFitness = outcome.Best.Fitness
	}
	return result, nil
}

func (t *Trainer) evaluateParallel(ctx context.Context, population model.Population, genomes []model.Genome) (model.GenerationResult, error) {
	evaluator := ParallelEvaluator{
		Scape:   scape.NewFlappyScape(t.cfg.Game, t.generationSeed(population)),
		Workers: t.cfg.Workers,
	}
	scored, err := evaluator.Evaluate(ctx, genomes)
	if err != nil {
		return model.GenerationResult{}, err
	}

	result := model.GenerationResult{Termination: string(scape.TerminationExtinct)}
	bestIdx := -1
	for i, s := range scored {
		genomes[i].Fitness = s.Fitness
		frames, _ := s.Trace["frames"].(int)
		survived, _ := s.Trace["survived"].(bool)
		if frames > result.Frames {
			result.Frames = frames
		}
		if survived {
			result.Termination = string(scape.TerminationBudget)
		}
		agentResult := model.AgentResult{
			AgentID:  s.Genome.ID,
			Score:    s.Score(),
			Fitness:  s.Fitness,
			Survived: survived,
		}
		if !survived {
			agentResult.RetiredAt = frames
		}
		result.Agents = append(result.Agents, agentResult)
		if bestIdx < 0 || s.Score() > scored[bestIdx].Score() {
			bestIdx = i
		}
	}
	if bestIdx >= 0 {
		result.BestAgentID = scored[bestIdx].Genome.ID
		result.BestScore = scored[bestIdx].Score()
		result.BestFitness = scored[bestIdx].Fitness
	}
	return result, nil
}

func (t *Trainer) writeBest(result model.GenerationResult, genomes []model.Genome) error {
	for _, genome := range genomes {
		if genome.ID != result.BestAgentID {
			continue
		}
		artifact := model.PolicyArtifact{
			VersionedRecord: storage.CurrentVersion(),
			RunID:           result.RunID,
			Generation:      result.Generation,
			Score:           result.BestScore,
			Fitness:         genome.Fitness,
			Genome:          genome,
		}
		if err := storage.WritePolicyArtifact(t.cfg.ArtifactPath, artifact); err != nil {
			return fmt.Errorf("write policy artifact: %w", err)
		}
		t.logger.Printf("saved best genome %s to %s", genome.ID, t.cfg.ArtifactPath)
		return nil
	}
	return fmt.Errorf("best genome %s not in population", result.BestAgentID)
}
