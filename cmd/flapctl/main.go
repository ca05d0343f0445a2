package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"

	"flapneat/internal/config"
	"flapneat/internal/observer"
	"flapneat/internal/platform"
	"flapneat/internal/scape"
	"flapneat/internal/storage"
	"flapneat/internal/terminal"
	"flapneat/pkg/flapneat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "seed":
		return runSeed(ctx, args[1:])
	case "evaluate":
		return runEvaluate(ctx, args[1:])
	case "generations":
		return runGenerations(ctx, args[1:])
	case "replay":
		return runReplay(ctx, args[1:])
	case "play":
		return runPlay(ctx, args[1:])
	case "serve":
		return runServe(ctx, args[1:])
	default:
		return usageError("unknown command: " + args[0])
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: flapctl <init|seed|evaluate|generations|replay|play|serve> [flags]", msg)
}

// commonFlags are shared by every command that touches the store or the
// simulation constants.
type commonFlags struct {
	configPath   *string
	storeKind    *string
	dbPath       *string
	artifactPath *string
	seed         *int64
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath:   fs.String("config", "", "YAML config file"),
		storeKind:    fs.String("store", "", "store backend: memory|sqlite (empty uses the config)"),
		dbPath:       fs.String("db-path", "", "sqlite database path"),
		artifactPath: fs.String("artifact", "", "best policy artifact path"),
		seed:         fs.Int64("seed", 0, "environment seed (0 uses the config seed)"),
	}
}

func (f commonFlags) load() (config.Config, error) {
	cfg, err := config.Load(*f.configPath)
	if err != nil {
		return cfg, err
	}
	if *f.storeKind != "" {
		cfg.Storage.Kind = *f.storeKind
	}
	if *f.dbPath != "" {
		cfg.Storage.DBPath = *f.dbPath
	}
	if *f.artifactPath != "" {
		cfg.Storage.ArtifactPath = *f.artifactPath
	}
	if *f.seed != 0 {
		cfg.Session.Seed = *f.seed
	}
	return cfg, cfg.Validate()
}

func (f commonFlags) client(opts flapneat.Options) (*flapneat.Client, config.Config, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, cfg, err
	}
	opts.Config = &cfg
	client, err := flapneat.New(opts)
	return client, cfg, err
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, cfg, err := common.client(flapneat.Options{})
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", cfg.Storage.Kind)
	return nil
}

func runSeed(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	common := addCommonFlags(fs)
	populationID := fs.String("population", "flapneat", "population id")
	size := fs.Int("pop", 0, "population size (0 uses the config size)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, cfg, err := common.client(flapneat.Options{})
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := client.Seed(ctx, flapneat.SeedRequest{PopulationID: *populationID, Size: *size, Seed: cfg.Session.Seed})
	if err != nil {
		return err
	}
	fmt.Printf("seeded population=%s genomes=%s\n", summary.PopulationID, humanize.Comma(int64(summary.Genomes)))
	return nil
}

func runEvaluate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	common := addCommonFlags(fs)
	populationID := fs.String("population", "flapneat", "population id")
	runID := fs.String("run-id", "", "run id (generated when empty)")
	generations := fs.Int("gens", 1, "evaluation passes")
	mode := fs.String("mode", string(platform.EvalLockStep), "evaluation mode: lockstep|parallel")
	verbose := fs.Bool("v", false, "log per-generation progress to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := flapneat.Options{}
	if *verbose {
		opts.Logger = log.New(os.Stderr, "flapctl ", log.LstdFlags)
	}
	client, _, err := common.client(opts)
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := client.Evaluate(ctx, flapneat.EvaluateRequest{
		RunID:         *runID,
		PopulationID:  *populationID,
		Generations:   *generations,
		Mode:          platform.EvalMode(*mode),
		SeedIfMissing: true,
	})
	if err != nil {
		return err
	}
	for _, g := range summary.Generations {
		printGeneration(g.RunID, g.Generation, g.Frames, g.Termination, g.BestAgentID, g.BestScore, g.BestFitness, len(g.Agents))
	}
	if best, ok := summary.Best(); ok {
		fmt.Printf("run_id=%s best_generation=%d best_score=%d artifact=%s\n", summary.RunID, best.Generation, best.BestScore, client.Config().Storage.ArtifactPath)
	}
	return nil
}

func printGeneration(runID string, generation, frames int, termination, bestID string, bestScore int, bestFitness float64, agents int) {
	fmt.Printf("run_id=%s generation=%d agents=%s frames=%s termination=%s best=%s best_score=%d best_fitness=%.2f\n",
		runID, generation, humanize.Comma(int64(agents)), humanize.Comma(int64(frames)), termination, bestID, bestScore, bestFitness)
}

func runGenerations(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generations", flag.ContinueOnError)
	common := addCommonFlags(fs)
	runID := fs.String("run-id", "", "run id")
	jsonOut := fs.Bool("json", false, "emit generation results as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("run-id is required")
	}

	client, _, err := common.client(flapneat.Options{})
	if err != nil {
		return err
	}
	defer client.Close()

	results, err := client.Generations(ctx, *runID)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, g := range results {
		printGeneration(g.RunID, g.Generation, g.Frames, g.Termination, g.BestAgentID, g.BestScore, g.BestFitness, len(g.Agents))
	}
	return nil
}

func runReplay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	common := addCommonFlags(fs)
	headless := fs.Bool("headless", false, "replay without drawing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}

	if *headless {
		client, err := flapneat.New(flapneat.Options{Config: &cfg})
		if err != nil {
			return err
		}
		defer client.Close()
		result, err := client.Replay(ctx, flapneat.ReplayRequest{})
		if errors.Is(err, flapneat.ErrArtifactNotFound) {
			fmt.Println(err)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("replay genome=%s generation=%d score=%d ticks=%s collided=%t\n",
			result.GenomeID, result.Generation, result.Score, humanize.Comma(int64(result.Ticks)), result.Collided)
		return nil
	}

	game, artifact, err := platform.LoadReplay(cfg.Storage.ArtifactPath, cfg.Game(), cfg.Session.Seed)
	if errors.Is(err, storage.ErrArtifactNotFound) {
		fmt.Println("no saved best genome found, train first")
		return nil
	}
	if err != nil {
		return err
	}
	screen, err := terminal.Open()
	if err != nil {
		return err
	}
	score, err := terminal.Watch(ctx, screen, game, "best genome "+artifact.Genome.ID)
	screen.Fini()
	if err != nil {
		return err
	}
	fmt.Printf("replay genome=%s generation=%d score=%d\n", artifact.Genome.ID, artifact.Generation, score)
	return nil
}

func runPlay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}

	screen, err := terminal.Open()
	if err != nil {
		return err
	}
	best, err := terminal.Play(ctx, screen, cfg.Game(), cfg.Session.Seed)
	screen.Fini()
	if err != nil {
		return err
	}
	fmt.Printf("play best_score=%d\n", best)
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	common := addCommonFlags(fs)
	addr := fs.String("addr", "", "observer listen address (empty uses the config)")
	populationID := fs.String("population", "flapneat", "population id")
	generations := fs.Int("gens", 15, "evaluation passes to stream")
	realtime := fs.Bool("realtime", true, "pace ticks at the configured frame rate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Observer.Addr = *addr
	}

	logger := log.New(os.Stderr, "flapctl ", log.LstdFlags)
	server := observer.NewServer(cfg.Observer.Addr, logger)
	client, err := flapneat.New(flapneat.Options{
		Config:         &cfg,
		Logger:         logger,
		SupportModules: []platform.SupportModule{server},
	})
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("serving observer=ws://%s/ws\n", server.Addr())

	interval := time.Duration(float64(time.Second) / cfg.Screen.FPS)
	summary, err := client.Evaluate(ctx, flapneat.EvaluateRequest{
		PopulationID:  *populationID,
		Generations:   *generations,
		SeedIfMissing: true,
		Observer: func(generation int, snap scape.Snapshot) {
			server.SetGeneration(generation)
			server.Publish(snap)
			if *realtime {
				time.Sleep(interval)
			}
		},
	})
	if err != nil {
		return err
	}
	for _, g := range summary.Generations {
		printGeneration(g.RunID, g.Generation, g.Frames, g.Termination, g.BestAgentID, g.BestScore, g.BestFitness, len(g.Agents))
	}
	return nil
}
