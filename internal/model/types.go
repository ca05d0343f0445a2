package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Genome is the serialized form of a feed-forward control policy. The learning
// process owns how genomes are produced; the simulation only activates them.
type Genome struct {
	VersionedRecord
	ID              string    `json:"id"`
	Neurons         []Neuron  `json:"neurons"`
	Synapses        []Synapse `json:"synapses"`
	InputNeuronIDs  []string  `json:"input_neuron_ids"`
	OutputNeuronIDs []string  `json:"output_neuron_ids"`
	Fitness         float64   `json:"fitness"`
}

type Neuron struct {
	ID         string  `json:"id"`
	Activation string  `json:"activation"`
	Bias       float64 `json:"bias"`
}

type Synapse struct {
	ID      string  `json:"id"`
	From    string  `json:"from"`
	To      string  `json:"to"`
	Weight  float64 `json:"weight"`
	Enabled bool    `json:"enabled"`
}

type Population struct {
	VersionedRecord
	ID         string   `json:"id"`
	GenomeIDs  []string `json:"genome_ids"`
	Generation int      `json:"generation"`
}

// AgentResult is the frozen outcome of one agent after a session.
type AgentResult struct {
	AgentID   string  `json:"agent_id"`
	Score     int     `json:"score"`
	Fitness   float64 `json:"fitness"`
	RetiredAt int     `json:"retired_at"`
	Survived  bool    `json:"survived"`
}

// GenerationResult summarizes one evaluation pass over a population.
type GenerationResult struct {
	VersionedRecord
	RunID        string        `json:"run_id"`
	PopulationID string        `json:"population_id"`
	Generation   int           `json:"generation"`
	Frames       int           `json:"frames"`
	Termination  string        `json:"termination"`
	BestAgentID  string        `json:"best_agent_id,omitempty"`
	BestScore    int           `json:"best_score"`
	BestFitness  float64       `json:"best_fitness"`
	Agents       []AgentResult `json:"agents"`
}

// PolicyArtifact is the persisted best policy used for replay.
type PolicyArtifact struct {
	VersionedRecord
	RunID      string  `json:"run_id"`
	Generation int     `json:"generation"`
	Score      int     `json:"score"`
	Genome     Genome  `json:"genome"`
	Fitness    float64 `json:"fitness"`
}
