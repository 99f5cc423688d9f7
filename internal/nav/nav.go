// Package nav holds the category/element navigation model: the tagged-union
// mode state (browsing, widget, submenu), the cursor, and the pure state
// transitions behind every navigation hotkey. Transitions return an Effect
// describing the audio feedback they require; they never touch audio
// themselves.
package nav

import "github.com/awrona/veil/internal/cue"

// Direction is one navigation movement.
type Direction int

const (
	Up Direction = iota + 1
	Down
	Left
	Right
)

// String returns the lowercase direction name.
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// vertical reports whether the movement is on the up/down axis.
func (d Direction) vertical() bool { return d == Up || d == Down }

// ElementKind selects how an element behaves when activated.
type ElementKind int

const (
	// KindPlain activates through the owning category's Activate function.
	KindPlain ElementKind = iota
	// KindAction activates through the element's own ActionFunc payload.
	KindAction
	// KindWidget enters widget mode through a WidgetFactory payload.
	KindWidget
	// KindExpand opens a submenu through an ExpandFunc payload.
	KindExpand
	// KindBack is the synthetic first element of every submenu.
	KindBack
)

// ActionFunc is the payload of a KindAction element.
type ActionFunc func() error

// ExpandFunc is the payload of a KindExpand element. It produces the submenu
// elements, without the synthetic "Back" entry.
type ExpandFunc func() ([]Element, error)

// WidgetFactory is the payload of a KindWidget element.
type WidgetFactory func() (Widget, error)

// Element is a single navigable item inside a category.
type Element struct {
	Label string
	// Speech overrides Label for the spoken announcement when non-empty.
	Speech  string
	Kind    ElementKind
	Payload any
}

// spokenText returns the announcement text for the element.
func (e Element) spokenText() string {
	if e.Speech != "" {
		return e.Speech
	}
	return e.Label
}

// Category is one top-level group in the navigation tree. Elements is never
// empty once the category is installed in a Model; SetCategories inserts a
// placeholder into empty lists.
type Category struct {
	ID   string
	Name string
	// Cue plays when vertical movement lands on this category.
	Cue cue.Kind
	// Elements is owned by the Model after SetCategories.
	Elements []Element
	// Activate handles KindPlain elements.
	Activate func(index int, el Element) error
}

// Widget is the capability contract a control surface must satisfy to
// participate in widget mode. The Model owns exactly one instance at a time.
type Widget interface {
	// FocusText describes the currently focused sub-element.
	FocusText() string
	// Navigate attempts a move inside the widget's own layout. It reports
	// whether the move was accepted plus the focused column and row width,
	// so the caller can pan feedback without knowing the layout.
	Navigate(d Direction) (accepted bool, hIndex, hCount int)
	// ActivateFocused performs the focused sub-element's action.
	ActivateFocused() error
	// Release frees held resources. Idempotent and must not panic.
	Release()
}

// Mode is the navigation sub-state.
type Mode int

const (
	ModeBrowsing Mode = iota + 1
	ModeWidget
	ModeSubmenu
)

// String returns the mode name used in status reports.
func (m Mode) String() string {
	switch m {
	case ModeBrowsing:
		return "browsing"
	case ModeWidget:
		return "widget"
	case ModeSubmenu:
		return "submenu"
	default:
		return "unknown"
	}
}

// Effect is the audio feedback a transition requires. The zero value means
// no feedback. Cue and speech are independent: a transition may request
// either or both.
type Effect struct {
	// Cue is the sound to play, zero for none.
	Cue cue.Kind
	// Pan is the cue's list position in [0,1], nil for unpanned.
	Pan *float64

	// Text is the utterance, empty for none.
	Text string
	// Position is the utterance's stereo position in [-1,1].
	Position float64
	// Pitch is the utterance's pitch offset in [-10,10].
	Pitch int
	// Interrupt replaces any in-flight utterance.
	Interrupt bool

	// Err carries a contained activation or widget failure for logging.
	// The transition has already recovered; Err never requires unwinding.
	Err error
}

// State is a read-only snapshot of the cursor for status reporting.
type State struct {
	Mode     Mode
	Category string
	Element  string
}

// Options are the user-configurable announcement behaviors.
type Options struct {
	// AnnounceIndex appends "n of m" to element announcements.
	AnnounceIndex bool
	// AnnounceFirstItem appends the first element after a category name.
	AnnounceFirstItem bool
}
