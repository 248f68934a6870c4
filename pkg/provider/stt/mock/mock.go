// Package mock provides an in-memory mock implementation of
// [stt.Transcriber] for use in unit tests.
//
// Set the exported Result fields before use; inspect the Call* fields after.
package mock

import (
	"context"
	"sync"

	"github.com/mwirth/ironlog/pkg/provider/stt"
)

// Transcriber is a mock implementation of [stt.Transcriber].
type Transcriber struct {
	mu sync.Mutex

	// TranscribeResult is returned by [Transcriber.Transcribe].
	TranscribeResult stt.Transcript

	// TranscribeError is returned by [Transcriber.Transcribe].
	TranscribeError error

	// CallCountTranscribe records how many times Transcribe was called.
	CallCountTranscribe int

	// RecordedClipPaths holds the clipPath argument of every call, in order.
	RecordedClipPaths []string
}

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcribe implements [stt.Transcriber].
func (t *Transcriber) Transcribe(ctx context.Context, clipPath string) (stt.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CallCountTranscribe++
	t.RecordedClipPaths = append(t.RecordedClipPaths, clipPath)
	return t.TranscribeResult, t.TranscribeError
}
