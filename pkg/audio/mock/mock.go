// Package mock provides an in-memory mock implementation of [audio.Source]
// for use in unit tests.
//
// The mock is safe for concurrent use. It records every method call so that
// tests can assert on call counts, and it exposes exported fields the test
// can set to control return values.
//
// Typical usage:
//
//	src := &mock.Source{FormatResult: audio.Format{SampleRate: 16000, Channels: 1}}
//	_ = src.Start(ctx, recorder.Deliver)
//	src.EmitFrame(audio.Frame{PCM: pcm})
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/mwirth/ironlog/pkg/audio"
)

// Source is a mock implementation of [audio.Source]. Frames are delivered
// synchronously from [Source.EmitFrame] rather than from a driver goroutine.
type Source struct {
	mu sync.Mutex

	// FormatResult is returned by [Source.Format]. Defaults to 16 kHz mono
	// if left zero.
	FormatResult audio.Format

	// StartError is returned by [Source.Start].
	StartError error

	// CloseError is returned by the first [Source.Close] call.
	CloseError error

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountClose records how many times Close was called.
	CallCountClose int

	fn     audio.FrameFunc
	closed bool
}

// Compile-time assertion that Source satisfies audio.Source.
var _ audio.Source = (*Source)(nil)

// Format implements [audio.Source].
func (s *Source) Format() audio.Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FormatResult == (audio.Format{}) {
		return audio.Format{SampleRate: 16000, Channels: 1}
	}
	return s.FormatResult
}

// Start implements [audio.Source]. It records fn for later [Source.EmitFrame]
// calls and returns StartError.
func (s *Source) Start(_ context.Context, fn audio.FrameFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStart++
	if s.StartError != nil {
		return s.StartError
	}
	if s.fn != nil {
		return errors.New("mock: Start called twice")
	}
	s.fn = fn
	return nil
}

// Close implements [audio.Source].
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	if s.closed {
		return nil
	}
	s.closed = true
	s.fn = nil
	return s.CloseError
}

// EmitFrame invokes the registered callback with f, simulating one delivery
// from the driver goroutine. Frames emitted before Start or after Close are
// dropped.
func (s *Source) EmitFrame(f audio.Frame) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn(f)
	}
}
