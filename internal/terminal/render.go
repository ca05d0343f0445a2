package terminal

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"flapneat/internal/scape"
)

// Canvas is the part of tcell.Screen the renderer draws on.
type Canvas interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Size() (int, int)
}

var (
	styleSky    = tcell.StyleDefault.Background(tcell.ColorNavy)
	stylePipe   = tcell.StyleDefault.Foreground(tcell.ColorGreen).Background(tcell.ColorNavy)
	styleGround = tcell.StyleDefault.Foreground(tcell.ColorOlive).Background(tcell.ColorNavy)
	styleBird   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorNavy).Bold(true)
	styleBest   = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorNavy).Bold(true)
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	styleTitle  = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorBlack).Bold(true)
	styleText   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	styleGold   = tcell.StyleDefault.Foreground(tcell.ColorGold).Background(tcell.ColorBlack)
)

const (
	runePipe   = '█'
	runeGround = '▀'
	runeBird   = '@'
)

// Renderer maps world coordinates onto terminal cells. The bottom row is kept
// for the status line.
type Renderer struct {
	canvas Canvas
}

func NewRenderer(canvas Canvas) *Renderer {
	return &Renderer{canvas: canvas}
}

// cell converts a world point to a cell, reporting whether it is on screen.
func (r *Renderer) cell(env scape.EnvironmentSnapshot, x, y float64) (int, int, bool) {
	cols, rows := r.viewport()
	if env.Width <= 0 || env.Height <= 0 || cols <= 0 || rows <= 0 {
		return 0, 0, false
	}
	cx := int(x / env.Width * float64(cols))
	cy := int(y / env.Height * float64(rows))
	return cx, cy, cx >= 0 && cx < cols && cy >= 0 && cy < rows
}

func (r *Renderer) viewport() (int, int) {
	w, h := r.canvas.Size()
	return w, h - 1
}

// Draw paints the world and a status line for one snapshot.
func (r *Renderer) Draw(snap scape.Snapshot, status string) {
	env := snap.Environment
	cols, rows := r.viewport()
	r.fill(0, 0, cols, rows, ' ', styleSky)

	for _, o := range env.Obstacles {
		x0, _, _ := r.cell(env, o.X, 0)
		x1, _, _ := r.cell(env, o.X+o.Width, 0)
		_, gapTop, _ := r.cell(env, 0, o.GapTop)
		_, gapBottom, _ := r.cell(env, 0, o.GapBottom)
		for x := max(x0, 0); x <= min(x1, cols-1); x++ {
			for y := 0; y < rows; y++ {
				if y < gapTop || y > gapBottom {
					r.canvas.SetContent(x, y, runePipe, nil, stylePipe)
				}
			}
		}
	}

	if _, groundRow, ok := r.cell(env, 0, env.GroundY); ok {
		r.fill(0, groundRow, cols, rows-groundRow, runeGround, styleGround)
	}

	for _, a := range snap.Agents {
		if !a.Alive {
			continue
		}
		x, y, ok := r.cell(env, a.X, a.Y)
		if !ok {
			continue
		}
		style := styleBird
		if a.ID == snap.BestAgentID && snap.Alive > 1 {
			style = styleBest
		}
		r.canvas.SetContent(x, y, runeBird, nil, style)
	}

	r.fill(0, rows, cols, 1, ' ', styleStatus)
	r.text(0, rows, styleStatus, status)
}

// Banner clears the screen and centers the given lines.
func (r *Renderer) Banner(title string, lines ...string) {
	w, h := r.canvas.Size()
	r.fill(0, 0, w, h, ' ', styleText)
	top := h/2 - (len(lines)+2)/2
	r.text((w-len([]rune(title)))/2, top, styleTitle, title)
	for i, line := range lines {
		style := styleText
		if i == 1 {
			style = styleGold
		}
		r.text((w-len([]rune(line)))/2, top+2+i, style, line)
	}
}

func (r *Renderer) fill(x, y, w, h int, ch rune, style tcell.Style) {
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			r.canvas.SetContent(x+dx, y+dy, ch, nil, style)
		}
	}
}

func (r *Renderer) text(x, y int, style tcell.Style, s string) {
	for i, ch := range []rune(s) {
		r.canvas.SetContent(x+i, y, ch, nil, style)
	}
}

func statusLine(score, best int, fps float64, alive int) string {
	if alive > 0 {
		return fmt.Sprintf(" score %d  best %d  alive %d  fps %.1f", score, best, alive, fps)
	}
	return fmt.Sprintf(" score %d  best %d  fps %.1f", score, best, fps)
}
