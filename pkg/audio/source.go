package audio

import "context"

// FrameFunc receives one Frame from a source's delivery goroutine.
//
// Implementations must never block: the delivery goroutine runs at the
// driver's cadence and a stalled callback causes dropped or glitched audio.
// Anything beyond a short guarded buffer append belongs on another goroutine.
type FrameFunc func(Frame)

// Source is an open audio input. A Source is obtained from an adapter
// package's Open function and remains valid until Close is called or the
// context used to open it is cancelled.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Format reports the fixed sample rate and channel count of delivered
	// frames. Constant for the lifetime of the source.
	Format() Format

	// Start begins frame delivery, invoking fn from an internal goroutine for
	// every captured frame until the source is closed or ctx is cancelled.
	// Only one callback may be active; calling Start twice returns an error.
	Start(ctx context.Context, fn FrameFunc) error

	// Close stops frame delivery and releases driver resources. After Close
	// returns no further callback invocations occur. Calling Close more than
	// once is safe and returns nil.
	Close() error
}
