package nav

import (
	"fmt"
	"math"

	"github.com/awrona/veil/internal/cue"
)

// placeholderLabel stands in for an empty element list so every category
// stays navigable.
const placeholderLabel = "No items"

type widgetHandle struct {
	name       string
	widget     Widget
	lastSpoken string
	spoke      bool
}

type submenuFrame struct {
	elements []Element
	index    int
}

// Model is the single navigation state machine. It is not safe for
// concurrent use; the engine serializes access under its lock.
type Model struct {
	opts Options

	categories    []Category
	categoryIndex int
	elementIndex  int

	mode   Mode
	widget *widgetHandle
	frames []submenuFrame
}

// New builds an empty model in browsing mode.
func New(opts Options) *Model {
	return &Model{opts: opts, mode: ModeBrowsing}
}

// SetCategories replaces the whole category tree and resets the cursor.
// Any open widget is released and any submenu discarded; empty element
// lists are padded with a placeholder.
func (m *Model) SetCategories(cats []Category) {
	m.releaseWidget()
	m.frames = nil
	m.mode = ModeBrowsing
	m.categoryIndex = 0
	m.elementIndex = 0

	m.categories = cats
	for i := range m.categories {
		if len(m.categories[i].Elements) == 0 {
			m.categories[i].Elements = []Element{{Label: placeholderLabel}}
		}
	}
}

// UpdateCategoryElements swaps one category's element list in place, for
// live readouts. The cursor survives when the element count is unchanged;
// otherwise it resets to the top of the list. Unknown ids are ignored.
func (m *Model) UpdateCategoryElements(id string, elements []Element) {
	idx := -1
	for i := range m.categories {
		if m.categories[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	if len(elements) == 0 {
		elements = []Element{{Label: placeholderLabel}}
	}

	cat := &m.categories[idx]
	if idx == m.categoryIndex && m.mode == ModeSubmenu {
		// The live list is a submenu; the base list sits under the stack.
		base := &m.frames[0]
		if len(elements) != len(base.elements) || base.index >= len(elements) {
			base.index = 0
		}
		base.elements = elements
		return
	}

	if idx == m.categoryIndex {
		if len(elements) != len(cat.Elements) || m.elementIndex >= len(elements) {
			m.elementIndex = 0
		}
	}
	cat.Elements = elements
}

// SetOptions replaces the announcement options; moves made afterwards use
// the new values.
func (m *Model) SetOptions(opts Options) { m.opts = opts }

// Mode returns the current navigation mode.
func (m *Model) Mode() Mode { return m.mode }

// Snapshot reports the cursor for status queries.
func (m *Model) Snapshot() State {
	if len(m.categories) == 0 {
		return State{Mode: m.mode}
	}
	cat := m.categories[m.categoryIndex]
	s := State{Mode: m.mode, Category: cat.Name}
	if m.mode == ModeWidget {
		s.Element = m.widget.name
		return s
	}
	s.Element = cat.Elements[m.elementIndex].Label
	return s
}

// Announce describes the current focus, spoken when navigation turns on.
func (m *Model) Announce() Effect {
	if len(m.categories) == 0 {
		return Effect{}
	}
	cat := m.categories[m.categoryIndex]
	text := cat.Name
	if m.mode != ModeWidget {
		text = fmt.Sprintf("%s. %s", cat.Name, cat.Elements[m.elementIndex].spokenText())
	}
	return Effect{Text: text, Interrupt: true}
}

// Move applies one directional step. A rejected move leaves the state
// untouched and yields only the boundary cue.
func (m *Model) Move(d Direction) Effect {
	if len(m.categories) == 0 {
		return Effect{}
	}
	switch m.mode {
	case ModeWidget:
		return m.moveWidget(d)
	case ModeSubmenu:
		return m.moveElements(d)
	default:
		if d.vertical() {
			return m.moveCategory(d)
		}
		return m.moveElements(d)
	}
}

func (m *Model) moveCategory(d Direction) Effect {
	candidate := m.categoryIndex + step(d)
	if candidate < 0 || candidate >= len(m.categories) {
		return boundaryEffect()
	}
	m.categoryIndex = candidate
	m.elementIndex = 0

	cat := m.categories[candidate]
	p := listPosition(candidate, len(m.categories))
	text := cat.Name
	if m.opts.AnnounceFirstItem {
		text = fmt.Sprintf("%s. %s", cat.Name, cat.Elements[0].spokenText())
	}
	return Effect{
		Cue:       cat.Cue,
		Pan:       &p,
		Text:      text,
		Pitch:     pitchFromPosition(p),
		Interrupt: true,
	}
}

func (m *Model) moveElements(d Direction) Effect {
	elements := m.categories[m.categoryIndex].Elements
	candidate := m.elementIndex + step(d)
	if candidate < 0 || candidate >= len(elements) {
		return boundaryEffect()
	}
	m.elementIndex = candidate

	el := elements[candidate]
	p := listPosition(candidate, len(elements))
	text := el.spokenText()
	if m.opts.AnnounceIndex {
		text = fmt.Sprintf("%s, %d of %d", text, candidate+1, len(elements))
	}
	effect := Effect{Cue: cue.Focus, Pan: &p, Text: text, Interrupt: true}
	if d.vertical() {
		effect.Pitch = pitchFromPosition(p)
	} else {
		effect.Position = 2*p - 1
	}
	return effect
}

func (m *Model) moveWidget(d Direction) Effect {
	accepted, hIndex, hCount := m.widget.widget.Navigate(d)
	if !accepted {
		return boundaryEffect()
	}

	p := listPosition(hIndex, hCount)
	effect := Effect{Cue: cue.Focus, Pan: &p, Interrupt: true}
	if !d.vertical() {
		effect.Position = 2*p - 1
	}

	text := m.widget.widget.FocusText()
	if !m.widget.spoke || text != m.widget.lastSpoken {
		effect.Text = text
	}
	m.widget.lastSpoken = text
	m.widget.spoke = true
	return effect
}

// Activate dispatches the focused element. Failures raised by activation
// functions, widget factories, or the widget itself are contained here and
// surface only as an error effect.
func (m *Model) Activate() Effect {
	if len(m.categories) == 0 {
		return Effect{}
	}
	if m.mode == ModeWidget {
		return m.activateWidget()
	}

	cat := &m.categories[m.categoryIndex]
	el := cat.Elements[m.elementIndex]
	switch el.Kind {
	case KindBack:
		return m.popSubmenu()
	case KindExpand:
		return m.expand(el)
	case KindWidget:
		return m.enterWidget(el)
	case KindAction:
		fn, ok := el.Payload.(ActionFunc)
		if !ok {
			return errorEffect(fmt.Errorf("element %q has no action payload", el.Label))
		}
		if err := fn(); err != nil {
			return errorEffect(fmt.Errorf("activate %q: %w", el.Label, err))
		}
		return Effect{Cue: cue.Select, Interrupt: true}
	default:
		if cat.Activate == nil {
			return Effect{}
		}
		if err := cat.Activate(m.elementIndex, el); err != nil {
			return errorEffect(fmt.Errorf("activate %q: %w", el.Label, err))
		}
		return Effect{Cue: cue.Select, Interrupt: true}
	}
}

func (m *Model) activateWidget() Effect {
	if err := m.widget.widget.ActivateFocused(); err != nil {
		name := m.widget.name
		m.ForceExitWidget()
		return errorEffect(fmt.Errorf("widget %q activate: %w", name, err))
	}

	effect := Effect{Cue: cue.Select, Interrupt: true}
	text := m.widget.widget.FocusText()
	if text != m.widget.lastSpoken {
		effect.Text = text
	}
	m.widget.lastSpoken = text
	m.widget.spoke = true
	return effect
}

func (m *Model) enterWidget(el Element) Effect {
	factory, ok := el.Payload.(WidgetFactory)
	if !ok {
		return errorEffect(fmt.Errorf("element %q has no widget factory", el.Label))
	}
	w, err := factory()
	if err != nil {
		return errorEffect(fmt.Errorf("open widget %q: %w", el.Label, err))
	}

	text := w.FocusText()
	m.widget = &widgetHandle{name: el.Label, widget: w, lastSpoken: text, spoke: true}
	m.mode = ModeWidget
	return Effect{Cue: cue.WidgetEnter, Text: text, Interrupt: true}
}

func (m *Model) expand(el Element) Effect {
	fn, ok := el.Payload.(ExpandFunc)
	if !ok {
		return errorEffect(fmt.Errorf("element %q has no submenu payload", el.Label))
	}
	items, err := fn()
	if err != nil {
		return errorEffect(fmt.Errorf("expand %q: %w", el.Label, err))
	}

	cat := &m.categories[m.categoryIndex]
	m.frames = append(m.frames, submenuFrame{elements: cat.Elements, index: m.elementIndex})
	cat.Elements = append([]Element{{Label: "Back", Kind: KindBack}}, items...)
	m.elementIndex = 0
	m.mode = ModeSubmenu
	return Effect{Cue: cue.Select, Text: cat.Elements[0].spokenText(), Interrupt: true}
}

func (m *Model) popSubmenu() Effect {
	frame := m.frames[len(m.frames)-1]
	m.frames = m.frames[:len(m.frames)-1]

	cat := &m.categories[m.categoryIndex]
	cat.Elements = frame.elements
	m.elementIndex = frame.index
	if len(m.frames) == 0 {
		m.mode = ModeBrowsing
	}
	return Effect{Cue: cue.Select, Text: cat.Elements[m.elementIndex].spokenText(), Interrupt: true}
}

// Back leaves the innermost context: widget mode first, then one submenu
// level. A no-op in plain browsing.
func (m *Model) Back() Effect {
	switch m.mode {
	case ModeWidget:
		return m.ExitWidget()
	case ModeSubmenu:
		return m.popSubmenu()
	default:
		return Effect{}
	}
}

// ExitWidget leaves widget mode, releasing the instance and restoring the
// cursor that was active before entry. A no-op outside widget mode.
func (m *Model) ExitWidget() Effect {
	if m.mode != ModeWidget {
		return Effect{}
	}
	m.releaseWidget()
	m.restoreAfterWidget()

	cat := m.categories[m.categoryIndex]
	return Effect{
		Cue:       cue.WidgetExit,
		Text:      cat.Elements[m.elementIndex].spokenText(),
		Interrupt: true,
	}
}

// ForceExitWidget releases any open widget without feedback. Used on the
// error path so a crashed widget can never trap the user.
func (m *Model) ForceExitWidget() {
	if m.mode != ModeWidget {
		return
	}
	m.releaseWidget()
	m.restoreAfterWidget()
}

func (m *Model) restoreAfterWidget() {
	if len(m.frames) > 0 {
		m.mode = ModeSubmenu
		return
	}
	m.mode = ModeBrowsing
}

func (m *Model) releaseWidget() {
	if m.widget == nil {
		return
	}
	m.widget.widget.Release()
	m.widget = nil
}

func step(d Direction) int {
	if d == Up || d == Left {
		return -1
	}
	return 1
}

func boundaryEffect() Effect {
	return Effect{Cue: cue.Boundary}
}

func errorEffect(err error) Effect {
	return Effect{Cue: cue.Error, Text: "Error", Interrupt: true, Err: err}
}

// listPosition maps index i of an n-item list onto [0,1]; single-item
// lists sit in the center.
func listPosition(i, n int) float64 {
	if n <= 1 {
		return 0.5
	}
	return float64(i) / float64(n-1)
}

// pitchFromPosition turns a list position into a pitch offset, higher at
// the top of the list.
func pitchFromPosition(p float64) int {
	return int(math.Round((0.5 - p) * 10))
}
