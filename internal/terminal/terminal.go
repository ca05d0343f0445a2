package terminal

import "github.com/gdamore/tcell/v2"

// Open initializes the terminal screen. Callers must call Fini.
func Open() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.SetStyle(styleText)
	screen.Clear()
	return screen, nil
}
