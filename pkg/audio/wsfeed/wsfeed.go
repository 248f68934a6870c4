// Package wsfeed implements an [audio.Source] fed by a websocket connection.
//
// A browser or phone microphone page streams raw 16-bit little-endian PCM as
// binary websocket messages; each message becomes one [audio.Frame]. Text
// messages are treated as control signals ("END" closes the stream). The feed
// carries audio whether or not a capture session is active — the recorder is
// responsible for discarding idle frames.
//
// The handler is registered on a fiber app:
//
//	feed := wsfeed.New(audio.Format{SampleRate: 16000, Channels: 1})
//	app.Get("/feed", websocket.New(feed.Handler))
package wsfeed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/mwirth/ironlog/pkg/audio"
)

// Feed is a websocket-backed audio source. One Feed accepts any number of
// sequential connections; concurrent connections interleave frames, which is
// acceptable for a single-microphone station (only one feeder page exists).
type Feed struct {
	format audio.Format

	mu     sync.Mutex
	fn     audio.FrameFunc
	closed bool
}

// Compile-time assertion that Feed satisfies audio.Source.
var _ audio.Source = (*Feed)(nil)

// New creates a Feed delivering frames in the given format.
func New(format audio.Format) *Feed {
	return &Feed{format: format}
}

// Format implements [audio.Source].
func (f *Feed) Format() audio.Format { return f.format }

// Start implements [audio.Source]. Frame delivery begins as soon as a
// websocket connection sends binary data.
func (f *Feed) Start(ctx context.Context, fn audio.FrameFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("wsfeed: feed is closed")
	}
	if f.fn != nil {
		return errors.New("wsfeed: Start called twice")
	}
	f.fn = fn

	context.AfterFunc(ctx, func() { _ = f.Close() })
	return nil
}

// Close implements [audio.Source]. Connections established after Close are
// rejected by the handler.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.fn = nil
	return nil
}

// Handler processes one websocket connection, converting binary messages
// into frames until the peer disconnects or sends "END".
func (f *Feed) Handler(c *websocket.Conn) {
	defer c.Close()

	connID := uuid.New().String()
	slog.Info("audio feed connected", "conn_id", connID)

	var bytesReceived int
	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			slog.Debug("audio feed read ended", "conn_id", connID, "err", err)
			break
		}

		if messageType == websocket.TextMessage {
			if string(message) == "END" {
				break
			}
			continue
		}
		if messageType != websocket.BinaryMessage || len(message) == 0 {
			continue
		}

		f.mu.Lock()
		fn := f.fn
		closed := f.closed
		f.mu.Unlock()
		if closed {
			break
		}
		if fn != nil {
			fn(audio.Frame{
				PCM:       message,
				Timestamp: f.format.Duration(bytesReceived),
			})
		}
		bytesReceived += len(message)
	}

	slog.Info("audio feed disconnected",
		"conn_id", connID,
		"audio_received", f.format.Duration(bytesReceived).Round(time.Millisecond),
	)
}
