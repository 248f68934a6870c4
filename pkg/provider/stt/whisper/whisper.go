// Package whisper provides a local whisper.cpp-backed clip transcriber.
//
// The whisper.cpp model is loaded once in [New] — an expensive, memory-resident
// load — and shared across all subsequent Transcribe calls. Each call creates
// its own whisper context, so the transcriber is safe for concurrent use even
// though the station never overlaps transcriptions.
//
// The whisper.cpp static library (libwhisper.a) and headers (whisper.h) must
// be available at link time via LIBRARY_PATH and C_INCLUDE_PATH.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/mwirth/ironlog/pkg/audio/capture"
	"github.com/mwirth/ironlog/pkg/provider/stt"
)

// defaultLanguage is the forced recognition language. Auto-detection is
// deliberately not offered: on two-second utterances it misfires often enough
// that a fixed language is the more reliable trade.
const defaultLanguage = "de"

// Transcriber implements stt.Transcriber using the whisper.cpp CGO bindings.
type Transcriber struct {
	model    whisperlib.Model
	language string
}

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Option is a functional option for configuring a Transcriber.
type Option func(*Transcriber)

// WithLanguage sets the forced recognition language code (e.g., "en", "de").
// Defaults to "de".
func WithLanguage(lang string) Option {
	return func(t *Transcriber) { t.language = lang }
}

// New loads the whisper.cpp model from modelPath. The caller must call Close
// when the transcriber is no longer needed.
func New(modelPath string, opts ...Option) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	t := &Transcriber{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Close releases the whisper model.
func (t *Transcriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Transcribe implements [stt.Transcriber]. It reads the WAV clip at clipPath,
// runs whisper.cpp inference with the forced language, and reduces the
// recognised segments per the station's contract: texts trimmed and joined
// with single spaces, confidence the mean of per-segment average
// log-probabilities (0.0 for a silent clip).
func (t *Transcriber) Transcribe(ctx context.Context, clipPath string) (stt.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	format, pcm, err := capture.ReadWAV(clipPath)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: read clip: %w", err)
	}
	samples := pcmToFloat32Mono(pcm, format.Channels)

	// Each inference gets a fresh context. Contexts are NOT thread-safe but
	// the model can be shared across goroutines.
	wctx, err := t.model.NewContext()
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(t.language); err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: set language %q: %w", t.language, err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var (
		parts    []string
		logProbs []float64
	)
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Transcript{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
			logProbs = append(logProbs, segmentAvgLogProb(segment))
		}
	}

	return stt.Transcript{
		Text:       strings.Join(parts, " "),
		Confidence: meanOrZero(logProbs),
		Segments:   len(parts),
	}, nil
}

// segmentAvgLogProb computes a segment's average log-probability from its
// token probabilities. Tokens with a non-positive probability are skipped to
// keep the log defined.
func segmentAvgLogProb(seg whisperlib.Segment) float64 {
	var (
		sum float64
		n   int
	)
	for _, tok := range seg.Tokens {
		if tok.P <= 0 {
			continue
		}
		sum += math.Log(float64(tok.P))
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// meanOrZero returns the arithmetic mean of vs, or exactly 0.0 for an empty
// slice — the contract for a clip with no recognised segments.
func meanOrZero(vs []float64) float64 {
	if len(vs) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
