package station

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwirth/ironlog/internal/extract"
	"github.com/mwirth/ironlog/internal/journal"
	"github.com/mwirth/ironlog/internal/logbook"
	"github.com/mwirth/ironlog/internal/observe"
	"github.com/mwirth/ironlog/pkg/audio/capture"
	"github.com/mwirth/ironlog/pkg/provider/stt"
)

// journalTimeout bounds a single journal write; the journal is an audit
// trail, not a pipeline stage.
const journalTimeout = 5 * time.Second

// Config holds the controller's runtime settings.
type Config struct {
	// ClipPath is where each session's clip is flushed. One slot: the next
	// session overwrites it.
	ClipPath string

	// FallbackText substitutes the transcript when no audio source exists.
	FallbackText string

	// TranscribeTimeout bounds the transcription stage.
	TranscribeTimeout time.Duration

	// ExtractTimeout bounds the extraction stage.
	ExtractTimeout time.Duration
}

// Auditor records capture attempts. *journal.Journal satisfies it; a nil
// Auditor disables journaling.
type Auditor interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Deps are the controller's collaborators. Recorder may be nil, which puts
// the station in degraded mode: captures produce no clip and the pipeline
// substitutes Config.FallbackText, clearly journaled as simulated.
type Deps struct {
	Recorder    *capture.Recorder
	Transcriber stt.Transcriber
	Extractor   *extract.Extractor
	Logbook     *logbook.Log
	Journal     Auditor
	Metrics     *observe.Metrics

	// Notify, when non-nil, receives a snapshot after every state change
	// and finished capture. Called from the controller's goroutine; must
	// not block.
	Notify func(Update)
}

// Update is a snapshot pushed to Deps.Notify.
type Update struct {
	State State

	// Last is the most recently finished capture attempt, nil before the
	// first one.
	Last *journal.Entry
}

// Controller is the push-to-talk state machine. All methods run on the
// goroutine calling [Controller.Run]; the audio callback path stays in the
// recorder.
type Controller struct {
	cfg  Config
	deps Deps

	state     State
	pressedAt time.Time
	last      *journal.Entry
}

// NewController creates a [Controller] in [StateIdle].
func NewController(cfg Config, deps Deps) *Controller {
	return &Controller{cfg: cfg, deps: deps}
}

// State returns the current state. Only meaningful from the Run goroutine or
// after Run returns.
func (c *Controller) State() State { return c.state }

// Degraded reports whether the station runs without an audio source.
func (c *Controller) Degraded() bool { return c.deps.Recorder == nil }

// Run consumes key events until a quit event arrives, the channel closes, or
// ctx is cancelled. The pipeline triggered by a release runs synchronously
// inside this loop, so a new press is not accepted until the previous capture
// fully resolved.
func (c *Controller) Run(ctx context.Context, events <-chan KeyEvent) error {
	for {
		select {
		case <-ctx.Done():
			c.terminate()
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				c.terminate()
				return nil
			}
			switch ev.Kind {
			case KeyQuit:
				c.terminate()
				return nil
			case KeyPress:
				c.handlePress(ev)
			case KeyRelease:
				c.handleRelease(ctx, ev)
			}
		}
	}
}

// terminate discards any in-flight session and enters the final state.
func (c *Controller) terminate() {
	if c.state == StateCapturing && c.deps.Recorder != nil {
		c.deps.Recorder.Discard()
		slog.Info("quit during capture, buffered audio discarded")
	}
	c.state = StateTerminated
	c.notify()
}

func (c *Controller) handlePress(ev KeyEvent) {
	if c.state != StateIdle {
		slog.Debug("record key pressed while busy, ignored", "state", c.state.String())
		return
	}
	if c.deps.Recorder != nil {
		c.deps.Recorder.Start()
	}
	c.pressedAt = ev.At
	if c.pressedAt.IsZero() {
		c.pressedAt = time.Now()
	}
	c.state = StateCapturing
	slog.Info("capture started", "degraded", c.Degraded())
	c.notify()
}

func (c *Controller) handleRelease(ctx context.Context, ev KeyEvent) {
	if c.state != StateCapturing {
		slog.Debug("record key released while idle, ignored")
		return
	}
	c.state = StateIdle

	entry := c.process(ctx)
	entry.StartedAt = c.pressedAt
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now()
	}
	c.last = &entry

	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordCapture(ctx, string(entry.Status))
		if entry.Status == journal.StatusLogged {
			c.deps.Metrics.PipelineDuration.Record(ctx, entry.FinishedAt.Sub(entry.StartedAt).Seconds())
		}
	}
	if c.deps.Journal != nil {
		jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
		if err := c.deps.Journal.Record(jctx, entry); err != nil {
			slog.Error("journal write failed", "error", err)
		}
		cancel()
	}
	c.notify()
}

// process runs the blocking pipeline for one finished session and reports
// the attempt. Failures are terminal for this single capture only; the
// controller is already back in idle.
func (c *Controller) process(ctx context.Context) journal.Entry {
	entry := journal.Entry{Status: journal.StatusLogged}

	transcript, ok := c.transcribe(ctx, &entry)
	if !ok {
		return entry
	}

	record, err := c.extract(ctx, transcript.Text)
	if err != nil {
		entry.Status = journal.StatusExtractFailed
		entry.Error = err.Error()
		slog.Error("extraction failed, nothing appended", "error", err)
		return entry
	}
	category := extract.CanonicalizeCategory(record.Category)
	entry.Category = category
	entry.Value = record.Value
	entry.Unit = record.Unit

	appendStart := time.Now()
	point := logbook.DataPoint{Date: time.Now().UTC(), Category: category, Value: record.Value}
	if err := c.deps.Logbook.Append(point); err != nil {
		entry.Status = journal.StatusAppendFailed
		entry.Error = err.Error()
		slog.Error("dataset append failed", "error", err)
		return entry
	}
	if c.deps.Metrics != nil {
		c.deps.Metrics.AppendDuration.Record(ctx, time.Since(appendStart).Seconds())
	}

	slog.Info("data point logged",
		"category", category,
		"value", record.Value,
		"unit", record.Unit,
		"confidence", fmt.Sprintf("%.3f", entry.Confidence),
	)
	return entry
}

// transcribe resolves the transcript for the finished session: flush and
// transcribe the clip, or substitute the fallback text in degraded mode.
// ok=false means the pipeline stops here and entry carries the final status.
func (c *Controller) transcribe(ctx context.Context, entry *journal.Entry) (stt.Transcript, bool) {
	if c.Degraded() {
		// No microphone anywhere: keep the demo flow alive with a fixed
		// utterance, loudly marked as simulated.
		slog.Warn("no audio source, substituting fallback text", "simulated", true)
		entry.Simulated = true
		entry.Transcript = c.cfg.FallbackText
		return stt.Transcript{Text: c.cfg.FallbackText}, true
	}

	clip, err := c.deps.Recorder.Stop(c.cfg.ClipPath)
	if errors.Is(err, capture.ErrNoAudio) {
		entry.Status = journal.StatusNoAudio
		entry.Error = err.Error()
		slog.Warn("session ended without audio, nothing to transcribe")
		return stt.Transcript{}, false
	}
	if err != nil {
		entry.Status = journal.StatusTranscribeFailed
		entry.Error = err.Error()
		slog.Error("clip flush failed", "error", err)
		return stt.Transcript{}, false
	}
	entry.ClipPath = clip.Path
	slog.Info("clip flushed", "path", clip.Path, "duration", clip.Duration)

	tctx, cancel := context.WithTimeout(ctx, c.cfg.TranscribeTimeout)
	defer cancel()
	start := time.Now()
	transcript, err := c.deps.Transcriber.Transcribe(tctx, clip.Path)
	if c.deps.Metrics != nil {
		c.deps.Metrics.TranscribeDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		entry.Status = journal.StatusTranscribeFailed
		entry.Error = err.Error()
		slog.Error("transcription failed", "error", err)
		return stt.Transcript{}, false
	}
	entry.Transcript = transcript.Text
	entry.Confidence = transcript.Confidence
	slog.Info("clip transcribed",
		"text", transcript.Text,
		"confidence", fmt.Sprintf("%.3f", transcript.Confidence),
	)
	return transcript, true
}

func (c *Controller) extract(ctx context.Context, text string) (extract.Record, error) {
	ectx, cancel := context.WithTimeout(ctx, c.cfg.ExtractTimeout)
	defer cancel()
	start := time.Now()
	record, err := c.deps.Extractor.Extract(ectx, text)
	if c.deps.Metrics != nil {
		c.deps.Metrics.ExtractDuration.Record(ctx, time.Since(start).Seconds())
	}
	return record, err
}

func (c *Controller) notify() {
	if c.deps.Notify == nil {
		return
	}
	c.deps.Notify(Update{State: c.state, Last: c.last})
}
