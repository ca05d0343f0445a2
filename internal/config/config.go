package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"flapneat/internal/scape"
)

// ErrImpossibleGap is returned when the viewport cannot hold the configured
// obstacle opening.
var ErrImpossibleGap = scape.ErrImpossibleGap

//go:embed flapneat.schema.json
var schemaSource string

const schemaURL = "flapneat.schema.json"

type Config struct {
	Screen    Screen    `yaml:"screen"`
	Scroll    Scroll    `yaml:"scroll"`
	Obstacles Obstacles `yaml:"obstacles"`
	Bird      Bird      `yaml:"bird"`
	Session   Session   `yaml:"session"`
	Fitness   Fitness   `yaml:"fitness"`
	Storage   Storage   `yaml:"storage"`
	Observer  Observer  `yaml:"observer"`
}

type Screen struct {
	Width         float64 `yaml:"width"`
	Height        float64 `yaml:"height"`
	BaseHeight    float64 `yaml:"base_height"`
	GroundOverlap float64 `yaml:"ground_overlap"`
	FPS           float64 `yaml:"fps"`
}

type Scroll struct {
	BackgroundSpeed float64 `yaml:"background_speed"`
	PipeSpeed       float64 `yaml:"pipe_speed"`
}

type Obstacles struct {
	Gap              float64 `yaml:"gap"`
	Width            float64 `yaml:"width"`
	Margin           float64 `yaml:"margin"`
	Minimum          int     `yaml:"minimum"`
	InitialSpawnGap  float64 `yaml:"initial_spawn_gap"`
	SpawnSpacing     float64 `yaml:"spawn_spacing"`
	BatchSpawnOffset float64 `yaml:"batch_spawn_offset"`
}

type Bird struct {
	Gravity      float64 `yaml:"gravity"`
	JumpStrength float64 `yaml:"jump_strength"`
	Size         float64 `yaml:"size"`
	HumanX       float64 `yaml:"human_x"`
	BatchX       float64 `yaml:"batch_x"`
}

type Session struct {
	MaxFrames         int     `yaml:"max_frames"`
	DecisionThreshold float64 `yaml:"decision_threshold"`
	Seed              int64   `yaml:"seed"`
	Workers           int     `yaml:"workers"`
	Population        int     `yaml:"population"`
}

type Fitness struct {
	Tick           float64 `yaml:"tick"`
	PassBonus      float64 `yaml:"pass_bonus"`
	FailurePenalty float64 `yaml:"failure_penalty"`
}

type Storage struct {
	Kind         string `yaml:"kind"`
	DBPath       string `yaml:"db_path"`
	ArtifactPath string `yaml:"artifact_path"`
}

type Observer struct {
	Addr string `yaml:"addr"`
}

func Default() Config {
	g := scape.DefaultConfig()
	return Config{
		Screen: Screen{
			Width:         g.ScreenWidth,
			Height:        g.ScreenHeight,
			BaseHeight:    g.BaseHeight,
			GroundOverlap: g.GroundOverlap,
			FPS:           g.FPS,
		},
		Scroll: Scroll{
			BackgroundSpeed: g.BackgroundSpeed,
			PipeSpeed:       g.PipeSpeed,
		},
		Obstacles: Obstacles{
			Gap:              g.PipeGap,
			Width:            g.PipeWidth,
			Margin:           g.GapMargin,
			Minimum:          g.MinimumObstacles,
			InitialSpawnGap:  g.InitialSpawnGap,
			SpawnSpacing:     g.SpawnSpacing,
			BatchSpawnOffset: g.BatchSpawnOffset,
		},
		Bird: Bird{
			Gravity:      g.Gravity,
			JumpStrength: g.JumpStrength,
			Size:         g.BirdSize,
			HumanX:       g.HumanBirdX,
			BatchX:       g.BatchBirdX,
		},
		Session: Session{
			MaxFrames:         g.MaxFrames,
			DecisionThreshold: g.DecisionThreshold,
			Seed:              1,
			Workers:           4,
			Population:        50,
		},
		Fitness: Fitness{
			Tick:           g.TickFitness,
			PassBonus:      g.PassBonus,
			FailurePenalty: g.FailurePenalty,
		},
		Storage: Storage{
			Kind:         "memory",
			DBPath:       "flapneat.db",
			ArtifactPath: "best_genome.json.zst",
		},
		Observer: Observer{Addr: "127.0.0.1:8089"},
	}
}

// Load reads a YAML config over the defaults. An empty path yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	return Parse(raw)
}

// Parse validates raw YAML against the config schema and decodes it over the
// defaults.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := validateSchema(raw); err != nil {
		return cfg, fmt.Errorf("flapneat.yaml: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("flapneat.yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("flapneat.yaml: %w", err)
	}
	return cfg, nil
}

func validateSchema(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	// Round trip through JSON so the validator sees JSON value types.
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	schema, err := compileSchema()
	if err != nil {
		return err
	}
	return schema.Validate(v)
}

func compileSchema() (*jsonschema.Schema, error) {
	return jsonschema.CompileString(schemaURL, schemaSource)
}

func (c Config) Validate() error {
	if err := c.Game().Validate(); err != nil {
		return err
	}
	if c.Session.Workers < 1 {
		return fmt.Errorf("session workers must be >= 1, got %d", c.Session.Workers)
	}
	if c.Session.Population < 1 {
		return fmt.Errorf("session population must be >= 1, got %d", c.Session.Population)
	}
	switch c.Storage.Kind {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unsupported storage kind: %s", c.Storage.Kind)
	}
	return nil
}

// Game converts the file layout into the simulation constants.
func (c Config) Game() scape.Config {
	return scape.Config{
		ScreenWidth:       c.Screen.Width,
		ScreenHeight:      c.Screen.Height,
		BaseHeight:        c.Screen.BaseHeight,
		GroundOverlap:     c.Screen.GroundOverlap,
		BackgroundSpeed:   c.Scroll.BackgroundSpeed,
		PipeSpeed:         c.Scroll.PipeSpeed,
		PipeGap:           c.Obstacles.Gap,
		PipeWidth:         c.Obstacles.Width,
		GapMargin:         c.Obstacles.Margin,
		Gravity:           c.Bird.Gravity,
		JumpStrength:      c.Bird.JumpStrength,
		BirdSize:          c.Bird.Size,
		HumanBirdX:        c.Bird.HumanX,
		BatchBirdX:        c.Bird.BatchX,
		MinimumObstacles:  c.Obstacles.Minimum,
		InitialSpawnGap:   c.Obstacles.InitialSpawnGap,
		SpawnSpacing:      c.Obstacles.SpawnSpacing,
		BatchSpawnOffset:  c.Obstacles.BatchSpawnOffset,
		FPS:               c.Screen.FPS,
		MaxFrames:         c.Session.MaxFrames,
		DecisionThreshold: c.Session.DecisionThreshold,
		TickFitness:       c.Fitness.Tick,
		PassBonus:         c.Fitness.PassBonus,
		FailurePenalty:    c.Fitness.FailurePenalty,
	}
}
