package widget

import "github.com/awrona/veil/internal/nav"

// Button is a single-action widget: one focused control, no internal
// navigation.
type Button struct {
	label string
	do    func() error
}

// NewButton builds a button widget around one action.
func NewButton(label string, do func() error) *Button {
	return &Button{label: label, do: do}
}

func (b *Button) FocusText() string { return b.label }

// Navigate always rejects; a button has nowhere to move.
func (b *Button) Navigate(nav.Direction) (bool, int, int) { return false, 0, 1 }

func (b *Button) ActivateFocused() error {
	if b.do == nil {
		return nil
	}
	return b.do()
}

func (b *Button) Release() {}
