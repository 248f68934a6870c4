// Package dash serves the dashboard: it polls the durable dataset on a fixed
// interval, re-aggregates it from scratch, and exposes the result as an HTML
// chart page, a JSON API and a websocket push feed.
//
// The dashboard is a pure reader. It shares nothing with the station except
// the dataset file and never blocks a capture.
package dash

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/sync/errgroup"

	"github.com/mwirth/ironlog/internal/aggregate"
	"github.com/mwirth/ironlog/internal/extract"
	"github.com/mwirth/ironlog/internal/journal"
	"github.com/mwirth/ironlog/internal/logbook"
	"github.com/mwirth/ironlog/internal/observe"
)

const shutdownTimeout = 5 * time.Second

// recentCaptures is how many journal entries /api/captures returns.
const recentCaptures = 20

// CaptureLister exposes the journal's recent captures. *journal.Journal
// satisfies it; nil disables the /api/captures endpoint's content.
type CaptureLister interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Config holds the dashboard's settings.
type Config struct {
	// ListenAddr is the TCP address to serve on.
	ListenAddr string

	// PollInterval is how often the dataset is re-read.
	PollInterval time.Duration

	// Targets maps category names to chart reference-line values.
	Targets map[string]float64
}

// Chart is the render-ready state of one category's chart. A chart with
// HasData false must be shown as an explicit "no data" notice, never as an
// empty plot.
type Chart struct {
	Category string            `json:"category"`
	Target   float64           `json:"target"`
	HasData  bool              `json:"hasData"`
	Points   []aggregate.Point `json:"points"`
}

// Snapshot is one complete dashboard state, replaced wholesale on every poll.
type Snapshot struct {
	// Waiting reports that the dataset is absent or empty.
	Waiting bool `json:"waiting"`

	Granularity aggregate.Granularity `json:"granularity,omitempty"`
	AxisFormat  string                `json:"axisFormat,omitempty"`

	// LastUpdated is when this snapshot was computed.
	LastUpdated time.Time `json:"lastUpdated"`

	// Charts holds one entry per fixed category, in canonical order.
	Charts []Chart `json:"charts"`
}

// Server is the dashboard HTTP server plus its poll loop.
type Server struct {
	cfg      Config
	log      *logbook.Log
	captures CaptureLister
	metrics  *observe.Metrics
	app      *fiber.App

	mu       sync.RWMutex
	snapshot Snapshot

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}
}

// NewServer creates a dashboard server reading the given dataset. captures
// and metrics may be nil.
func NewServer(cfg Config, log *logbook.Log, captures CaptureLister, metrics *observe.Metrics) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log,
		captures: captures,
		metrics:  metrics,
		snapshot: Snapshot{Waiting: true, LastUpdated: time.Now()},
		clients:  make(map[*websocket.Conn]struct{}),
	}
	s.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	s.app.Use(fiberrecover.New())
	s.app.Use(fiberlogger.New())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/", s.handleIndex)
	s.app.Get("/api/series", s.handleSeries)
	s.app.Get("/api/captures", s.handleCaptures)
	s.app.Get("/ws", websocket.New(s.handleWS))
}

// Run serves HTTP and polls the dataset until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.refresh(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.app.Listen(s.cfg.ListenAddr)
	})
	g.Go(func() error {
		s.pollLoop(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return s.app.ShutdownWithTimeout(shutdownTimeout)
	})
	return g.Wait()
}

// pollLoop re-reads and re-aggregates the dataset every PollInterval. A
// failed poll keeps the previous snapshot; the next cycle is the retry.
func (s *Server) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// refresh loads the full dataset and replaces the snapshot. Nothing is
// incremental: the aggregation is deterministic over the file contents.
func (s *Server) refresh(ctx context.Context) {
	points, err := s.log.Load()
	if err != nil {
		// Not fatal: serve the previous snapshot until the file is
		// readable again.
		slog.Warn("dataset read failed, keeping previous snapshot", "error", err)
		if s.metrics != nil {
			s.metrics.RecordPoll(ctx, "error")
		}
		return
	}

	result := aggregate.Build(points)
	snap := Snapshot{
		Waiting:     result.Empty,
		Granularity: result.Granularity,
		AxisFormat:  result.AxisFormat,
		LastUpdated: time.Now(),
	}
	for _, category := range extract.CanonicalCategories {
		chart := Chart{Category: category, Target: s.cfg.Targets[category]}
		if series, ok := result.SeriesFor(category); ok {
			chart.HasData = true
			chart.Points = series.Points
		}
		snap.Charts = append(snap.Charts, chart)
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	if s.metrics != nil {
		outcome := "ok"
		if snap.Waiting {
			outcome = "empty"
		}
		s.metrics.RecordPoll(ctx, outcome)
	}
	s.broadcast(snap)
}

// Snapshot returns the current dashboard state.
func (s *Server) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(indexPage)
}

func (s *Server) handleSeries(c *fiber.Ctx) error {
	return c.JSON(s.Snapshot())
}

func (s *Server) handleCaptures(c *fiber.Ctx) error {
	if s.captures == nil {
		return c.JSON([]journal.Entry{})
	}
	entries, err := s.captures.Recent(c.Context(), recentCaptures)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	return c.JSON(entries)
}

// handleWS pushes a snapshot on connect and after every poll cycle.
func (s *Server) handleWS(conn *websocket.Conn) {
	defer conn.Close()

	// The connect-time snapshot must be written before the conn joins the
	// broadcast set: once registered, the poll loop owns all writes, and a
	// websocket conn supports only one concurrent writer.
	if payload, err := json.Marshal(s.Snapshot()); err == nil {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}

	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	s.clientsMu.Unlock()
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
	}()

	// Drain reads until the peer goes away; pushes happen in broadcast.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) broadcast(snap Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return
	}
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }
