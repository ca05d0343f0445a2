package terminal

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/gdamore/tcell/v2"

	"flapneat/internal/scape"
)

type input int

const (
	inputNone input = iota
	inputSpace
	inputQuit
)

func inputOf(ev *tcell.EventKey) input {
	switch {
	case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
		return inputQuit
	case ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
		return inputSpace
	default:
		return inputNone
	}
}

type phase int

const (
	phaseStart phase = iota
	phaseRunning
	phaseOver
)

// Player runs the interactive single-agent game: a start screen, real-time
// play driven by the space bar, and a game over screen with the best score.
type Player struct {
	base     scape.Config
	human    *scape.HumanController
	game     *scape.Game
	pace     *Pace
	phase    phase
	best     int
	renderer *Renderer
}

func NewPlayer(canvas Canvas, cfg scape.Config, seed int64) (*Player, error) {
	human := scape.NewHumanController()
	game, err := scape.NewGame(cfg, human, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	return &Player{
		base:     cfg,
		human:    human,
		game:     game,
		pace:     NewPace(cfg.FPS),
		renderer: NewRenderer(canvas),
	}, nil
}

func (p *Player) Best() int { return p.best }

// handle applies one key and reports whether the player asked to quit.
func (p *Player) handle(in input) bool {
	switch in {
	case inputQuit:
		return true
	case inputSpace:
		switch p.phase {
		case phaseStart:
			p.phase = phaseRunning
		case phaseRunning:
			p.human.Jump()
		case phaseOver:
			p.restart()
		}
	}
	return false
}

// restart restores the starting frame rate and obstacle gap.
func (p *Player) restart() {
	p.game.Reset()
	p.pace.Reset()
	p.phase = phaseStart
}

func (p *Player) advance(ctx context.Context) error {
	if p.phase != phaseRunning {
		return nil
	}
	state, err := p.game.Tick(ctx)
	if err != nil {
		return err
	}
	if state == scape.StateCollided {
		if p.game.Score() > p.best {
			p.best = p.game.Score()
		}
		p.phase = phaseOver
		return nil
	}
	p.pace.Observe(p.game.Score())
	return nil
}

func (p *Player) draw() {
	switch p.phase {
	case phaseStart:
		p.renderer.Banner("FLAPPY BIRD", "Press SPACE to start playing", fmt.Sprintf("Your best score: %d", p.best))
	case phaseOver:
		p.renderer.Banner("Game Over",
			fmt.Sprintf("Your Score: %d", p.game.Score()),
			fmt.Sprintf("Best Score: %d", p.best),
			"Press SPACE to restart or ESC to quit")
	default:
		p.renderer.Draw(p.game.Snapshot(), statusLine(p.game.Score(), p.best, p.pace.FPS(), 0))
	}
}

// Play runs the game on screen until the player quits or ctx ends.
func Play(ctx context.Context, screen tcell.Screen, cfg scape.Config, seed int64) (int, error) {
	p, err := NewPlayer(screen, cfg, seed)
	if err != nil {
		return 0, err
	}
	events := pollEvents(ctx, screen)

	timer := time.NewTimer(p.pace.Interval())
	defer timer.Stop()
	p.draw()
	screen.Show()
	for {
		select {
		case <-ctx.Done():
			return p.best, nil
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if p.handle(inputOf(ev)) {
					return p.best, nil
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-timer.C:
			if err := p.advance(ctx); err != nil {
				return p.best, err
			}
			p.draw()
			screen.Show()
			timer.Reset(p.pace.Interval())
		}
	}
}

func pollEvents(ctx context.Context, screen tcell.Screen) <-chan tcell.Event {
	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events
}

// Watch draws a policy-driven game in real time until it collides, then
// waits for a key.
func Watch(ctx context.Context, screen tcell.Screen, game *scape.Game, title string) (int, error) {
	renderer := NewRenderer(screen)
	events := pollEvents(ctx, screen)
	pace := NewPace(game.Config().FPS)
	ticker := time.NewTicker(pace.Interval())
	defer ticker.Stop()

	for game.State() == scape.StateRunning && game.Ticks() < game.Config().MaxFrames {
		select {
		case <-ctx.Done():
			return game.Score(), nil
		case ev := <-events:
			if key, ok := ev.(*tcell.EventKey); ok && inputOf(key) == inputQuit {
				return game.Score(), nil
			}
		case <-ticker.C:
			if _, err := game.Tick(ctx); err != nil {
				return game.Score(), err
			}
			renderer.Draw(game.Snapshot(), fmt.Sprintf(" %s  score %d", title, game.Score()))
			screen.Show()
		}
	}

	renderer.Banner(title, fmt.Sprintf("Score: %d", game.Score()), "", "Press any key to exit")
	screen.Show()
	select {
	case <-ctx.Done():
	case <-events:
	}
	return game.Score(), nil
}
