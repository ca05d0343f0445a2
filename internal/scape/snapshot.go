package scape

// Snapshots are detached copies handed to renderers and observers.

type ObstacleSnapshot struct {
	ID        int     `json:"id"`
	X         float64 `json:"x"`
	Width     float64 `json:"width"`
	GapTop    float64 `json:"gap_top"`
	GapBottom float64 `json:"gap_bottom"`
	Passed    bool    `json:"passed"`
}

type EnvironmentSnapshot struct {
	Width       float64            `json:"width"`
	Height      float64            `json:"height"`
	BackgroundX float64            `json:"background_x"`
	GroundX     float64            `json:"ground_x"`
	GroundY     float64            `json:"ground_y"`
	Obstacles   []ObstacleSnapshot `json:"obstacles"`
}

type AgentSnapshot struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Score   int     `json:"score"`
	Fitness float64 `json:"fitness"`
	Alive   bool    `json:"alive"`
}

type Snapshot struct {
	Tick        int                 `json:"tick"`
	Environment EnvironmentSnapshot `json:"environment"`
	Agents      []AgentSnapshot     `json:"agents"`
	Alive       int                 `json:"alive"`
	Score       int                 `json:"score"`
	BestAgentID string              `json:"best_agent_id,omitempty"`
}

func snapshotBird(b *Bird) AgentSnapshot {
	return AgentSnapshot{
		ID:      b.ID,
		X:       b.X,
		Y:       b.Y,
		Score:   b.Score,
		Fitness: b.Fitness,
		Alive:   !b.retired,
	}
}
