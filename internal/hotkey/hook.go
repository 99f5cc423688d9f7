package hotkey

// Listener is one active generation of OS-level key interception.
type Listener interface {
	// Events delivers matched chords in the order the OS reported them.
	// The channel closes after Close.
	Events() <-chan Chord
	// Ready closes once the listener is confirmed to be intercepting input.
	Ready() <-chan struct{}
	// Close releases the OS hooks. Idempotent.
	Close() error
}

// Hook opens listeners bound to a fixed chord set. Implementations must
// tolerate being asked for a new listener while a previous one is still
// open; the Dispatcher relies on that overlap for seamless rebinding.
type Hook interface {
	Open(chords []Chord) (Listener, error)
}
