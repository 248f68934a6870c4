// Package stt defines the Transcriber interface for speech-to-text backends.
//
// The station records one clip per press-release cycle, so the central
// abstraction is a one-shot clip transcriber rather than a streaming session:
// given the path of a persisted audio clip, a Transcriber returns the
// recognised text and a confidence score exactly once.
//
// Implementations must be safe for concurrent use, although the station's
// blocking pipeline guarantees at most one in-flight transcription.
package stt

import "context"

// Transcript is the result of transcribing one audio clip.
type Transcript struct {
	// Text is the recognised speech, segment texts trimmed and joined with
	// single spaces in emission order.
	Text string

	// Confidence is the arithmetic mean of the per-segment average
	// log-probabilities reported by the model, exactly 0.0 when no segments
	// were recognised. It is a relative quality signal in log space, not a
	// calibrated probability — callers may compare it against a threshold but
	// must not treat it as P(correct).
	Confidence float64

	// Segments is the number of recognised segments. Zero means the clip was
	// empty or silent.
	Segments int
}

// Transcriber is the abstraction over any speech-to-text backend.
//
// Construction is expected to perform the expensive model load; Transcribe
// must not reload the model per call.
type Transcriber interface {
	// Transcribe converts the audio clip at clipPath into a Transcript.
	// Model and file errors propagate to the caller unmodified in meaning —
	// there is no retry and no fallback text at this layer.
	Transcribe(ctx context.Context, clipPath string) (Transcript, error)
}
