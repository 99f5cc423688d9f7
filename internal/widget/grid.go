package widget

import (
	"sync"

	"github.com/awrona/veil/internal/nav"
)

// CellKind annotates a cell's control type in verbose focus text.
type CellKind string

const (
	CellButton CellKind = "button"
	CellToggle CellKind = "toggle"
	CellSlider CellKind = "slider"
	CellLabel  CellKind = "label"
)

// Cell is one focusable control inside a grid widget.
type Cell struct {
	Label string
	Kind  CellKind
	// Text overrides Label with a live value when set.
	Text func() string
	// Do runs on activation; nil cells activate as a no-op.
	Do func() error
}

func (c Cell) text() string {
	if c.Text != nil {
		return c.Text()
	}
	return c.Label
}

// Grid is a two-dimensional control surface satisfying the widget
// contract. Vertical movement switches rows, horizontal movement switches
// cells within the row; the grid owns its own cursor.
type Grid struct {
	rows    [][]Cell
	row     int
	col     int
	verbose bool

	release     func()
	releaseOnce sync.Once
}

// NewGrid builds a grid over the given rows. Empty rows are dropped; the
// optional release hook runs exactly once when the widget is released.
func NewGrid(rows [][]Cell, verbose bool, release func()) *Grid {
	kept := make([][]Cell, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 {
			kept = append(kept, row)
		}
	}
	return &Grid{rows: kept, verbose: verbose, release: release}
}

// FocusText describes the focused cell, annotated with its control kind
// when verbose announcements are on.
func (g *Grid) FocusText() string {
	if len(g.rows) == 0 {
		return "Empty"
	}
	cell := g.rows[g.row][g.col]
	text := cell.text()
	if g.verbose && cell.Kind != "" {
		return text + ", " + string(cell.Kind)
	}
	return text
}

// Navigate moves the internal cursor. The reported index and count always
// describe the focused row, so the caller can pan feedback horizontally.
func (g *Grid) Navigate(d nav.Direction) (bool, int, int) {
	if len(g.rows) == 0 {
		return false, 0, 0
	}

	row, col := g.row, g.col
	switch d {
	case nav.Up:
		row--
	case nav.Down:
		row++
	case nav.Left:
		col--
	case nav.Right:
		col++
	default:
		return false, g.col, len(g.rows[g.row])
	}

	if row < 0 || row >= len(g.rows) {
		return false, g.col, len(g.rows[g.row])
	}
	if row != g.row && col >= len(g.rows[row]) {
		col = len(g.rows[row]) - 1
	}
	if col < 0 || col >= len(g.rows[row]) {
		return false, g.col, len(g.rows[g.row])
	}

	g.row, g.col = row, col
	return true, col, len(g.rows[row])
}

// ActivateFocused runs the focused cell's action.
func (g *Grid) ActivateFocused() error {
	if len(g.rows) == 0 {
		return nil
	}
	cell := g.rows[g.row][g.col]
	if cell.Do == nil {
		return nil
	}
	return cell.Do()
}

// Release runs the release hook once.
func (g *Grid) Release() {
	g.releaseOnce.Do(func() {
		if g.release != nil {
			g.release()
		}
	})
}
