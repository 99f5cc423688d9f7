package widget

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/awrona/veil/internal/nav"
)

func testGrid(verbose bool) *Grid {
	return NewGrid([][]Cell{
		{{Label: "One", Kind: CellButton}, {Label: "Two", Kind: CellButton}, {Label: "Three", Kind: CellButton}},
		{{Label: "Only", Kind: CellToggle}},
	}, verbose, nil)
}

func TestGridNavigation(t *testing.T) {
	g := testGrid(false)
	require.Equal(t, "One", g.FocusText())

	ok, col, count := g.Navigate(nav.Right)
	require.True(t, ok)
	require.Equal(t, 1, col)
	require.Equal(t, 3, count)
	require.Equal(t, "Two", g.FocusText())

	ok, _, _ = g.Navigate(nav.Up)
	require.False(t, ok, "top row rejects up")
	require.Equal(t, "Two", g.FocusText())

	ok, col, count = g.Navigate(nav.Down)
	require.True(t, ok)
	require.Equal(t, 0, col, "column clamps to the shorter row")
	require.Equal(t, 1, count)
	require.Equal(t, "Only", g.FocusText())

	ok, _, _ = g.Navigate(nav.Right)
	require.False(t, ok)
	ok, _, _ = g.Navigate(nav.Down)
	require.False(t, ok)
}

func TestGridVerboseFocusText(t *testing.T) {
	g := testGrid(true)
	require.Equal(t, "One, button", g.FocusText())
	g.Navigate(nav.Down)
	require.Equal(t, "Only, toggle", g.FocusText())
}

func TestGridDynamicCellText(t *testing.T) {
	value := "Volume 40 percent"
	g := NewGrid([][]Cell{{{Label: "Volume", Kind: CellSlider, Text: func() string { return value }}}}, false, nil)
	require.Equal(t, "Volume 40 percent", g.FocusText())
	value = "Volume 50 percent"
	require.Equal(t, "Volume 50 percent", g.FocusText())
}

func TestGridActivate(t *testing.T) {
	calls := 0
	g := NewGrid([][]Cell{{
		{Label: "Noop"},
		{Label: "Run", Do: func() error { calls++; return nil }},
		{Label: "Fail", Do: func() error { return errors.New("nope") }},
	}}, false, nil)

	require.NoError(t, g.ActivateFocused())
	require.Zero(t, calls)

	g.Navigate(nav.Right)
	require.NoError(t, g.ActivateFocused())
	require.Equal(t, 1, calls)

	g.Navigate(nav.Right)
	require.ErrorContains(t, g.ActivateFocused(), "nope")
}

func TestGridReleaseRunsOnce(t *testing.T) {
	released := 0
	g := NewGrid([][]Cell{{{Label: "One"}}}, false, func() { released++ })
	g.Release()
	g.Release()
	require.Equal(t, 1, released)
}

func TestGridDropsEmptyRows(t *testing.T) {
	g := NewGrid([][]Cell{{}, {{Label: "Only"}}, {}}, false, nil)
	require.Equal(t, "Only", g.FocusText())
	ok, _, _ := g.Navigate(nav.Down)
	require.False(t, ok)
}

func TestEmptyGridIsInert(t *testing.T) {
	g := NewGrid(nil, false, nil)
	require.Equal(t, "Empty", g.FocusText())
	ok, _, _ := g.Navigate(nav.Right)
	require.False(t, ok)
	require.NoError(t, g.ActivateFocused())
}

func TestButtonWidget(t *testing.T) {
	calls := 0
	b := NewButton("Play voice message", func() error { calls++; return nil })
	require.Equal(t, "Play voice message", b.FocusText())

	ok, _, count := b.Navigate(nav.Right)
	require.False(t, ok)
	require.Equal(t, 1, count)

	require.NoError(t, b.ActivateFocused())
	require.Equal(t, 1, calls)
}
