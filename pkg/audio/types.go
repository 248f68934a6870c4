// Package audio defines the types and interfaces for audio capture within
// ironlog.
//
// The two primary abstractions are:
//
//   - [Frame] — a block of raw PCM samples as delivered by an input driver.
//   - [Source] — an open audio input that pushes Frames to a registered
//     callback from its own delivery goroutine.
//
// Implementations of [Source] are provided by adapter packages (e.g.,
// audio/wsfeed for a websocket microphone feed, audio/mock for tests). The
// interface is intentionally narrow so that the capture recorder stays
// decoupled from driver details.
//
// This package lives under pkg/ because external code (alternative input
// adapters) is expected to implement [Source].
package audio

import "time"

// Frame represents one block of audio samples flowing from an input driver
// to the recorder. Frames are the atomic unit of capture transport.
type Frame struct {
	// PCM is 16-bit signed little-endian sample data. Sample rate and channel
	// count are fixed by the source's Format.
	PCM []byte

	// Timestamp marks when this frame was captured, relative to source start.
	Timestamp time.Duration
}

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	// SampleRate in Hz. The station captures at 16000, the rate the speech
	// model expects.
	SampleRate int

	// Channels is the number of interleaved channels. 1 for the station's
	// mono capture path.
	Channels int
}

// BytesPerSecond returns the PCM byte rate of the format (16-bit samples).
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

// Duration returns the play time of n PCM bytes in this format.
func (f Format) Duration(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}
