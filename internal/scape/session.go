package scape

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"

	"flapneat/internal/model"
)

// FitnessSink receives an agent's final fitness when a session finishes.
type FitnessSink interface {
	SetFitness(fitness float64)
}

type FitnessSinkFunc func(fitness float64)

func (f FitnessSinkFunc) SetFitness(fitness float64) { f(fitness) }

// Member is one agent entered into a session. Sink may be nil.
type Member struct {
	ID         string
	Controller Controller
	Sink       FitnessSink
}

type Termination string

const (
	TerminationExtinct Termination = "extinct"
	TerminationBudget  Termination = "budget"
)

// BestCandidate is the highest-scoring agent seen while alive.
type BestCandidate struct {
	AgentID string
	Score   int
	Fitness float64
}

type SessionResult struct {
	Frames      int
	Termination Termination
	Best        BestCandidate
	HasBest     bool
	Agents      []model.AgentResult
}

type SessionOptions struct {
	// MaxFrames overrides Config.MaxFrames when positive.
	MaxFrames int
	Logger    *log.Logger
	// Observer is called with a snapshot after every tick.
	Observer func(Snapshot)
}

type member struct {
	Member
	bird *Bird
}

// Session evaluates a population in lock-step against one shared environment.
type Session struct {
	cfg       Config
	env       *Environment
	logger    *log.Logger
	observer  func(Snapshot)
	maxFrames int

	all    []*member
	active []*member
	byID   map[string]*member

	frames   int
	best     BestCandidate
	hasBest  bool
	finished bool
	result   SessionResult
	err      error
}

func NewSession(cfg Config, members []Member, rng *rand.Rand, opts SessionOptions) (*Session, error) {
	env, err := NewEnvironment(cfg, cfg.BatchMode(), rng)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("session requires at least one member")
	}

	s := &Session{
		cfg:       cfg,
		env:       env,
		logger:    opts.Logger,
		observer:  opts.Observer,
		maxFrames: cfg.MaxFrames,
		byID:      make(map[string]*member, len(members)),
		best:      BestCandidate{Score: -1},
	}
	if opts.MaxFrames > 0 {
		s.maxFrames = opts.MaxFrames
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}

	mode := env.Mode()
	for _, m := range members {
		if m.ID == "" {
			return nil, fmt.Errorf("session member id is required")
		}
		if m.Controller == nil {
			return nil, fmt.Errorf("session member %s has no controller", m.ID)
		}
		if _, dup := s.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate session member %s", m.ID)
		}
		entry := &member{Member: m, bird: NewBird(m.ID, mode.AgentX, cfg)}
		s.all = append(s.all, entry)
		s.active = append(s.active, entry)
		s.byID[m.ID] = entry
	}
	return s, nil
}

func (s *Session) Environment() *Environment { return s.env }

func (s *Session) Frames() int { return s.frames }

func (s *Session) Active() int { return len(s.active) }

func (s *Session) Done() bool {
	return s.err != nil || len(s.active) == 0 || s.frames >= s.maxFrames
}

// Err reports the controller error that stopped the session, if any.
func (s *Session) Err() error { return s.err }

// Best returns the best candidate recorded so far.
func (s *Session) Best() (BestCandidate, bool) {
	if !s.hasBest {
		return BestCandidate{}, false
	}
	best := s.best
	best.Fitness = s.byID[best.AgentID].bird.Fitness
	return best, true
}

// Bird returns the agent state for id, retired or not.
func (s *Session) Bird(id string) (*Bird, bool) {
	m, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return m.bird, true
}

// Run steps until extinction or the frame budget and reports the result.
func (s *Session) Run(ctx context.Context) (SessionResult, error) {
	if s.err != nil {
		return SessionResult{}, s.err
	}
	for !s.Done() {
		if err := s.Step(ctx); err != nil {
			return SessionResult{}, err
		}
	}
	return s.finish(), nil
}

// Step advances every live agent by one tick. A controller error leaves the
// tick half applied, so the session is poisoned: later Step and Run calls
// return the same error and no fitness is delivered.
func (s *Session) Step(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	if s.Done() {
		return nil
	}
	s.frames++

	s.env.Advance()
	s.env.EnsureSupply(s.env.Mode().Supply)

	target, _ := s.env.Head()
	for _, m := range s.active {
		decision, err := m.Controller.Decide(ctx, Observe(m.bird, target, s.cfg))
		if err != nil {
			s.err = fmt.Errorf("agent %s tick %d: %w", m.ID, s.frames, err)
			return s.err
		}
		m.bird.ApplyDecision(decision)
		m.bird.Advance()
		m.bird.Fitness += s.cfg.TickFitness
	}

	var failed []int
	tickBest := -1
	for i, m := range s.active {
		if s.env.Failed(m.bird) {
			m.bird.Fitness -= s.cfg.FailurePenalty
			failed = append(failed, i)
		}
		if tickBest < 0 || m.bird.Score > s.active[tickBest].bird.Score {
			tickBest = i
		}
	}
	if tickBest >= 0 {
		candidate := s.active[tickBest].bird
		if candidate.Score > s.best.Score {
			s.best = BestCandidate{AgentID: candidate.ID, Score: candidate.Score}
			s.hasBest = true
		}
	}

	for i := len(failed) - 1; i >= 0; i-- {
		s.retireAt(failed[i])
	}

	for _, o := range s.env.Obstacles() {
		for _, m := range s.active {
			if !o.Passed && m.bird.X > o.TrailingEdge() {
				o.MarkPassed()
				m.bird.Score++
				m.bird.Fitness += s.cfg.PassBonus
			}
		}
	}

	s.env.Prune()

	if s.observer != nil {
		s.observer(s.Snapshot())
	}
	if s.Done() {
		s.finish()
	}
	return nil
}

// Retire removes the agent from the active set. Unknown or already retired
// agents are ignored.
func (s *Session) Retire(id string) bool {
	for i, m := range s.active {
		if m.ID == id {
			s.retireAt(i)
			return true
		}
	}
	return false
}

func (s *Session) retireAt(i int) {
	m := s.active[i]
	if !m.bird.retire(s.frames) {
		return
	}
	copy(s.active[i:], s.active[i+1:])
	s.active[len(s.active)-1] = nil
	s.active = s.active[:len(s.active)-1]
}

func (s *Session) finish() SessionResult {
	if s.finished {
		return s.result
	}
	s.finished = true

	termination := TerminationExtinct
	if len(s.active) > 0 {
		termination = TerminationBudget
		s.logger.Printf("session timeout after %d frames alive=%d", s.frames, len(s.active))
	}

	agents := make([]model.AgentResult, 0, len(s.all))
	for _, m := range s.all {
		agents = append(agents, model.AgentResult{
			AgentID:   m.ID,
			Score:     m.bird.Score,
			Fitness:   m.bird.Fitness,
			RetiredAt: m.bird.retiredAt,
			Survived:  !m.bird.retired,
		})
		if m.Sink != nil {
			m.Sink.SetFitness(m.bird.Fitness)
		}
	}

	best, ok := s.Best()
	s.result = SessionResult{
		Frames:      s.frames,
		Termination: termination,
		Best:        best,
		HasBest:     ok,
		Agents:      agents,
	}
	return s.result
}

func (s *Session) Snapshot() Snapshot {
	agents := make([]AgentSnapshot, 0, len(s.all))
	for _, m := range s.all {
		agents = append(agents, snapshotBird(m.bird))
	}
	snap := Snapshot{
		Tick:        s.frames,
		Environment: s.env.Snapshot(),
		Agents:      agents,
		Alive:       len(s.active),
	}
	if s.hasBest {
		snap.Score = s.best.Score
		snap.BestAgentID = s.best.AgentID
	}
	return snap
}
