package capture

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mwirth/ironlog/pkg/audio"
)

var testFormat = audio.Format{SampleRate: 16000, Channels: 1}

func TestStop_ConcatenatesBlocksInOrder(t *testing.T) {
	t.Parallel()
	r := NewRecorder(testFormat)
	path := filepath.Join(t.TempDir(), "clip.wav")

	blocks := [][]byte{
		{1, 0, 2, 0},
		{3, 0},
		{4, 0, 5, 0, 6, 0},
	}
	r.Start()
	for _, b := range blocks {
		r.Deliver(audio.Frame{PCM: b})
	}

	clip, err := r.Stop(path)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}

	wantSamples := 0
	for _, b := range blocks {
		wantSamples += len(b) / 2
	}
	if clip.Samples != wantSamples {
		t.Errorf("clip.Samples = %d, want %d", clip.Samples, wantSamples)
	}

	_, pcm, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	var want []byte
	for _, b := range blocks {
		want = append(want, b...)
	}
	if len(pcm) != len(want) {
		t.Fatalf("clip has %d PCM bytes, want %d", len(pcm), len(want))
	}
	for i := range want {
		if pcm[i] != want[i] {
			t.Fatalf("PCM byte %d = %d, want %d (ordering broken)", i, pcm[i], want[i])
		}
	}
}

func TestStop_NoBlocksLeavesPriorClipUntouched(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "clip.wav")
	prior := []byte("prior clip contents")
	if err := os.WriteFile(path, prior, 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRecorder(testFormat)
	r.Start()
	_, err := r.Stop(path)
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("Stop with empty buffer: err = %v, want ErrNoAudio", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(prior) {
		t.Error("prior clip was modified by an empty Stop")
	}
}

func TestDeliver_InactiveFramesDiscarded(t *testing.T) {
	t.Parallel()
	r := NewRecorder(testFormat)
	path := filepath.Join(t.TempDir(), "clip.wav")

	r.Deliver(audio.Frame{PCM: []byte{9, 0}}) // before Start
	r.Start()
	r.Deliver(audio.Frame{PCM: []byte{1, 0}})
	clip, err := r.Stop(path)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if clip.Samples != 1 {
		t.Errorf("clip.Samples = %d, want 1 (idle frame must be discarded)", clip.Samples)
	}

	r.Deliver(audio.Frame{PCM: []byte{9, 0}}) // after Stop
	if r.Active() {
		t.Error("recorder still active after Stop")
	}
}

func TestStop_OverwritesPreviousClip(t *testing.T) {
	t.Parallel()
	r := NewRecorder(testFormat)
	path := filepath.Join(t.TempDir(), "clip.wav")

	r.Start()
	r.Deliver(audio.Frame{PCM: make([]byte, 64)})
	if _, err := r.Stop(path); err != nil {
		t.Fatalf("first Stop: %v", err)
	}

	r.Start()
	r.Deliver(audio.Frame{PCM: []byte{7, 0}})
	clip, err := r.Stop(path)
	if err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if clip.Samples != 1 {
		t.Errorf("second clip.Samples = %d, want 1 (single-slot overwrite)", clip.Samples)
	}
}

func TestDiscard_DropsBufferWithoutWriting(t *testing.T) {
	t.Parallel()
	r := NewRecorder(testFormat)
	path := filepath.Join(t.TempDir(), "clip.wav")

	r.Start()
	r.Deliver(audio.Frame{PCM: []byte{1, 0}})
	r.Discard()

	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Discard wrote a clip: stat err = %v", err)
	}
	if _, err := r.Stop(path); !errors.Is(err, ErrNoAudio) {
		t.Errorf("Stop after Discard: err = %v, want ErrNoAudio", err)
	}
}

func TestDeliver_ConcurrentWithStop(t *testing.T) {
	t.Parallel()
	r := NewRecorder(testFormat)
	dir := t.TempDir()

	// Hammer Deliver from a writer goroutine while start/stop cycles run.
	// The race detector verifies the guarded buffer; the assertions verify
	// that each flush sees a consistent snapshot (even sample counts).
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		block := []byte{1, 0, 2, 0}
		for {
			select {
			case <-done:
				return
			default:
				r.Deliver(audio.Frame{PCM: block})
			}
		}
	}()

	for i := 0; i < 20; i++ {
		r.Start()
		time.Sleep(time.Millisecond)
		clip, err := r.Stop(filepath.Join(dir, "clip.wav"))
		if errors.Is(err, ErrNoAudio) {
			continue
		}
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
		if clip.Samples%2 != 0 {
			t.Fatalf("clip.Samples = %d, want multiple of block size", clip.Samples)
		}
	}
	close(done)
	wg.Wait()
}

func TestWAV_RoundTripFormat(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "clip.wav")
	pcm := []byte{0, 1, 2, 3, 4, 5}
	if err := writeWAV(path, testFormat, pcm); err != nil {
		t.Fatalf("writeWAV: %v", err)
	}
	format, got, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if format != testFormat {
		t.Errorf("format = %+v, want %+v", format, testFormat)
	}
	if len(got) != len(pcm) {
		t.Errorf("pcm length = %d, want %d", len(got), len(pcm))
	}
}
