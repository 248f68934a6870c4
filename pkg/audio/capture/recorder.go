// Package capture implements the push-to-talk audio recorder: a guarded
// sample buffer that accumulates frames from an [audio.Source] while a
// capture session is active and flushes them to a single WAV clip on stop.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mwirth/ironlog/pkg/audio"
)

// ErrNoAudio is returned by [Recorder.Stop] when no frames were buffered
// during the session — typically because no microphone source is attached.
// The caller must not expect a clip file and should fall back accordingly.
var ErrNoAudio = errors.New("capture: no audio buffered")

// Clip describes one flushed recording.
type Clip struct {
	// Path is the file the WAV clip was written to.
	Path string

	// Samples is the total number of PCM samples in the clip.
	Samples int

	// Duration is the play time of the clip.
	Duration time.Duration
}

// Recorder owns the sample buffer for capture sessions. Frame delivery
// (from the source's real-time goroutine) and session transitions (from the
// controller) run on different goroutines; the buffer is guarded by a short
// critical section so that Deliver never blocks on I/O and Stop always sees
// a consistent snapshot.
//
// At most one session is active per Recorder at any time.
type Recorder struct {
	format audio.Format

	mu     sync.Mutex
	active bool
	blocks [][]byte
}

// NewRecorder creates a Recorder for sources of the given format.
func NewRecorder(format audio.Format) *Recorder {
	return &Recorder{format: format}
}

// Format returns the PCM format the recorder buffers.
func (r *Recorder) Format() audio.Format { return r.format }

// Start clears the buffer and begins accepting frames. Starting an already
// active session is a no-op.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return
	}
	r.blocks = nil
	r.active = true
}

// Active reports whether a capture session is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Deliver appends one frame to the session buffer. Frames arriving while no
// session is active are silently discarded — there is no consumer for idle
// audio. Deliver is the [audio.FrameFunc] to register with the source; it
// performs no I/O and holds the lock only for the append.
func (r *Recorder) Deliver(f audio.Frame) {
	if len(f.PCM) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	// The source may reuse its frame buffer; keep our own copy.
	block := make([]byte, len(f.PCM))
	copy(block, f.PCM)
	r.blocks = append(r.blocks, block)
}

// Stop ends the session and flushes all buffered frames, in delivery order,
// to a single WAV clip at path. The previous clip at path is overwritten.
//
// With zero buffered frames Stop writes nothing, leaves any prior clip
// untouched, and returns [ErrNoAudio]. Stopping an idle recorder also
// returns ErrNoAudio.
func (r *Recorder) Stop(path string) (Clip, error) {
	r.mu.Lock()
	r.active = false
	blocks := r.blocks
	r.blocks = nil
	r.mu.Unlock()

	if len(blocks) == 0 {
		return Clip{}, ErrNoAudio
	}

	total := 0
	for _, b := range blocks {
		total += len(b)
	}
	pcm := make([]byte, 0, total)
	for _, b := range blocks {
		pcm = append(pcm, b...)
	}

	if err := writeWAV(path, r.format, pcm); err != nil {
		return Clip{}, fmt.Errorf("capture: write clip %q: %w", path, err)
	}

	return Clip{
		Path:     path,
		Samples:  len(pcm) / 2,
		Duration: r.format.Duration(len(pcm)),
	}, nil
}

// Discard ends the session and drops all buffered frames without writing.
// Used when the station quits mid-capture.
func (r *Recorder) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	r.blocks = nil
}
