// Package station implements the push-to-talk capture pipeline: a two-state
// controller driven by key press/release events that owns one recording
// session per press-release cycle and runs the blocking transcribe → extract
// → append sequence on release.
//
// The pipeline is deliberately synchronous. Transcription can take seconds on
// constrained hardware and stalling the next capture until the current one
// finishes is the correct backpressure for a single-user, single-microphone
// device: two transcriptions must never be in flight at once.
package station

import "time"

// State is the controller's operating mode.
type State int

const (
	// StateIdle awaits the next record-key press.
	StateIdle State = iota

	// StateCapturing buffers audio between press and release.
	StateCapturing

	// StateTerminated is entered on quit and never left.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// KeyKind classifies a key event.
type KeyKind int

const (
	// KeyPress is the record key going down.
	KeyPress KeyKind = iota

	// KeyRelease is the record key coming up.
	KeyRelease

	// KeyQuit terminates the station.
	KeyQuit
)

// KeyEvent is one press/release/quit signal from the key-event front-end.
// The controller is written against this abstract stream; how presses and
// releases are detected (raw key-up events, tap-to-toggle emulation) is the
// front-end's concern.
type KeyEvent struct {
	Kind KeyKind
	At   time.Time
}
