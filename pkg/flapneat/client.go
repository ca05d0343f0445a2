package flapneat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"

	"flapneat/internal/config"
	"flapneat/internal/genotype"
	"flapneat/internal/model"
	"flapneat/internal/platform"
	"flapneat/internal/scape"
	"flapneat/internal/storage"
)

const defaultPopulationID = "flapneat"

// ErrArtifactNotFound is returned by Replay before any best policy was saved.
var ErrArtifactNotFound = storage.ErrArtifactNotFound

type Options struct {
	// Config defaults to config.Default().
	Config         *config.Config
	StoreKind      string
	DBPath         string
	ArtifactPath   string
	Logger         *log.Logger
	SupportModules []platform.SupportModule
}

type Client struct {
	cfg    config.Config
	store  storage.Store
	polis  *platform.Polis
	logger *log.Logger
}

func New(opts Options) (*Client, error) {
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if opts.StoreKind != "" {
		cfg.Storage.Kind = opts.StoreKind
	}
	if opts.DBPath != "" {
		cfg.Storage.DBPath = opts.DBPath
	}
	if opts.ArtifactPath != "" {
		cfg.Storage.ArtifactPath = opts.ArtifactPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.Storage.Kind, cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		cfg:    cfg,
		store:  store,
		polis:  platform.NewPolis(platform.Config{Store: store, SupportModules: opts.SupportModules}),
		logger: logger,
	}, nil
}

// Init initializes the store and starts support modules.
func (c *Client) Init(ctx context.Context) error {
	return c.polis.Init(ctx)
}

func (c *Client) Close() error {
	if c.polis.Started() {
		return c.polis.Stop(context.Background())
	}
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Config() config.Config { return c.cfg }

type SeedRequest struct {
	PopulationID string
	Size         int
	Seed         int64
}

type SeedSummary struct {
	PopulationID string
	Genomes      int
}

// Seed stores a population of random minimal genomes.
func (c *Client) Seed(ctx context.Context, req SeedRequest) (SeedSummary, error) {
	if err := c.Init(ctx); err != nil {
		return SeedSummary{}, err
	}
	if req.PopulationID == "" {
		req.PopulationID = defaultPopulationID
	}
	if req.Size <= 0 {
		req.Size = c.cfg.Session.Population
	}
	if req.Seed == 0 {
		req.Seed = c.cfg.Session.Seed
	}

	population, genomes, err := genotype.SeedPopulation(rand.New(rand.NewSource(req.Seed)), req.PopulationID, req.Size)
	if err != nil {
		return SeedSummary{}, err
	}
	for _, genome := range genomes {
		if err := c.store.SaveGenome(ctx, genome); err != nil {
			return SeedSummary{}, err
		}
	}
	if err := c.store.SavePopulation(ctx, population); err != nil {
		return SeedSummary{}, err
	}
	return SeedSummary{PopulationID: population.ID, Genomes: len(genomes)}, nil
}

type EvaluateRequest struct {
	RunID        string
	PopulationID string
	Generations  int
	Mode         platform.EvalMode
	// SeedIfMissing seeds the population first when it is not stored.
	SeedIfMissing bool
	Observer      func(generation int, snap scape.Snapshot)
}

type EvaluateSummary struct {
	RunID       string
	Generations []model.GenerationResult
}

// Best returns the highest-scoring generation.
func (s EvaluateSummary) Best() (model.GenerationResult, bool) {
	if len(s.Generations) == 0 {
		return model.GenerationResult{}, false
	}
	best := s.Generations[0]
	for _, g := range s.Generations[1:] {
		if g.BestScore > best.BestScore {
			best = g
		}
	}
	return best, true
}

// Evaluate scores the stored population once per generation. Each pass bumps
// the population's generation counter so the next pass sees a new course.
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateSummary, error) {
	if err := c.Init(ctx); err != nil {
		return EvaluateSummary{}, err
	}
	if req.PopulationID == "" {
		req.PopulationID = defaultPopulationID
	}
	if req.Generations <= 0 {
		req.Generations = 1
	}
	if req.RunID == "" {
		req.RunID = platform.NewRunID()
	}

	if _, ok, err := c.store.GetPopulation(ctx, req.PopulationID); err != nil {
		return EvaluateSummary{}, err
	} else if !ok {
		if !req.SeedIfMissing {
			return EvaluateSummary{}, fmt.Errorf("population not found: %s", req.PopulationID)
		}
		if _, err := c.Seed(ctx, SeedRequest{PopulationID: req.PopulationID}); err != nil {
			return EvaluateSummary{}, err
		}
	}

	summary := EvaluateSummary{RunID: req.RunID}
	for i := 0; i < req.Generations; i++ {
		population, _, err := c.store.GetPopulation(ctx, req.PopulationID)
		if err != nil {
			return summary, err
		}

		var observer func(scape.Snapshot)
		if req.Observer != nil {
			generation := population.Generation
			observer = func(snap scape.Snapshot) { req.Observer(generation, snap) }
		}
		trainer, err := platform.NewTrainer(platform.TrainerConfig{
			Store:        c.store,
			Game:         c.cfg.Game(),
			Mode:         req.Mode,
			Workers:      c.cfg.Session.Workers,
			Seed:         c.cfg.Session.Seed,
			ArtifactPath: c.cfg.Storage.ArtifactPath,
			Logger:       c.logger,
			Observer:     observer,
		})
		if err != nil {
			return summary, err
		}
		result, err := trainer.EvaluateGeneration(ctx, req.RunID, req.PopulationID)
		if err != nil {
			return summary, err
		}
		summary.Generations = append(summary.Generations, result)

		population.Generation++
		if err := c.store.SavePopulation(ctx, population); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

type ReplayRequest struct {
	ArtifactPath string
	Seed         int64
	Observer     func(scape.Snapshot)
}

// Replay flies the saved best policy alone until it collides.
func (c *Client) Replay(ctx context.Context, req ReplayRequest) (platform.ReplayResult, error) {
	path := req.ArtifactPath
	if path == "" {
		path = c.cfg.Storage.ArtifactPath
	}
	seed := req.Seed
	if seed == 0 {
		seed = c.cfg.Session.Seed
	}
	result, err := platform.ReplayArtifact(ctx, path, c.cfg.Game(), seed, req.Observer)
	if errors.Is(err, storage.ErrArtifactNotFound) {
		return platform.ReplayResult{}, fmt.Errorf("no saved best genome found, train first: %w", err)
	}
	return result, err
}

// Generations lists stored generation results for a run in order.
func (c *Client) Generations(ctx context.Context, runID string) ([]model.GenerationResult, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	results, ok, err := c.store.GetGenerationResults(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return results, nil
}
