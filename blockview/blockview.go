// Package blockview provides a full-screen terminal viewer for a grid of
// per-block glyphs. It knows nothing about what the blocks are; callers
// supply one rune per block plus the surrounding text.
package blockview

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Model is everything the viewer displays.
type Model struct {
	Title   string
	Summary []string
	Legend  []string
	// Cells holds one glyph per block, in block order.
	Cells []rune
}

// RenderRows lays the cells out into rows of at most width glyphs.
// It is also used for the plain-text rendering of the map.
func RenderRows(cells []rune, width int) []string {
	if width < 1 {
		width = 1
	}
	var rows []string
	for start := 0; start < len(cells); start += width {
		end := start + width
		if end > len(cells) {
			end = len(cells)
		}
		rows = append(rows, string(cells[start:end]))
	}
	return rows
}

// Viewer is a static full-screen block grid with keyboard scrolling.
type Viewer struct {
	s   tcell.Screen
	m   Model
	top int // first visible grid row
}

// NewViewer initializes the terminal screen for the given model.
func NewViewer(m Model) (*Viewer, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.DisableMouse()
	return &Viewer{s: s, m: m}, nil
}

// Close restores the terminal to its original state.
func (v *Viewer) Close() {
	if v.s == nil {
		return
	}
	v.s.Fini()
	v.s = nil
	fmt.Print("\033[?1049l\033[?25h")
}

func putStr(s tcell.Screen, x, y int, str string) {
	w, _ := s.Size()
	for i, r := range []rune(str) {
		pos := x + i
		if pos >= w {
			break
		}
		s.SetContent(pos, y, r, nil, tcell.StyleDefault)
	}
}

// headerLines counts the fixed lines above the grid.
func (v *Viewer) headerLines() int {
	n := len(v.m.Summary) + len(v.m.Legend)
	if v.m.Title != "" {
		n++
	}
	return n
}

// gridRows returns the grid laid out for the current screen width.
func (v *Viewer) gridRows() []string {
	w, _ := v.s.Size()
	return RenderRows(v.m.Cells, w)
}

func (v *Viewer) draw() {
	v.s.Clear()
	w, h := v.s.Size()

	y := 0
	if v.m.Title != "" {
		putStr(v.s, 0, y, strings.Repeat("═", w))
		putStr(v.s, (w-len([]rune(v.m.Title)))/2, y, v.m.Title)
		y++
	}
	for _, line := range v.m.Summary {
		if y >= h {
			break
		}
		putStr(v.s, 0, y, line)
		y++
	}
	for _, line := range v.m.Legend {
		if y >= h {
			break
		}
		putStr(v.s, 0, y, line)
		y++
	}

	rows := v.gridRows()
	avail := h - y - 1 // keep one line for status
	if avail < 1 {
		avail = 1
	}
	if v.top > len(rows)-avail {
		v.top = len(rows) - avail
	}
	if v.top < 0 {
		v.top = 0
	}
	for i := 0; i < avail && v.top+i < len(rows) && y < h; i++ {
		putStr(v.s, 0, y, rows[v.top+i])
		y++
	}

	status := fmt.Sprintf(" %d blocks  rows %d-%d of %d  ↑/↓ PgUp/PgDn scroll  q quit ",
		len(v.m.Cells), v.top+1, min(v.top+avail, len(rows)), len(rows))
	putStr(v.s, 0, h-1, strings.Repeat("─", w))
	putStr(v.s, 2, h-1, status)
	v.s.Show()
}

// Run draws the grid and handles keys until the user quits.
func (v *Viewer) Run() error {
	for {
		v.draw()
		ev := v.s.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			_, h := v.s.Size()
			page := h - v.headerLines() - 1
			if page < 1 {
				page = 1
			}
			switch {
			case ev.Key() == tcell.KeyCtrlC, ev.Key() == tcell.KeyEscape:
				return nil
			case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
				return nil
			case ev.Key() == tcell.KeyUp:
				v.top--
			case ev.Key() == tcell.KeyDown:
				v.top++
			case ev.Key() == tcell.KeyPgUp:
				v.top -= page
			case ev.Key() == tcell.KeyPgDn:
				v.top += page
			case ev.Key() == tcell.KeyHome:
				v.top = 0
			case ev.Key() == tcell.KeyEnd:
				v.top = len(v.gridRows())
			}
		case *tcell.EventResize:
			v.s.Sync()
		case nil:
			return nil
		}
	}
}
