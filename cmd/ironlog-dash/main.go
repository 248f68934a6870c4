// Command ironlog-dash serves the progress dashboard over the shared dataset.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mwirth/ironlog/internal/config"
	"github.com/mwirth/ironlog/internal/dash"
	"github.com/mwirth/ironlog/internal/health"
	"github.com/mwirth/ironlog/internal/journal"
	"github.com/mwirth/ironlog/internal/logbook"
	"github.com/mwirth/ironlog/internal/observe"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ironlog-dash: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.Dashboard.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "ironlog-dash"})
	if err != nil {
		slog.Error("failed to initialise metrics provider", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// The journal is optional here: the dashboard renders fine from the
	// dataset alone when the station's journal is unreachable.
	var captures dash.CaptureLister
	jrnl, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		slog.Warn("capture journal unavailable, /api/captures will be empty", "err", err)
	} else {
		defer jrnl.Close()
		captures = jrnl
	}

	server := dash.NewServer(
		dash.Config{
			ListenAddr:   cfg.Dashboard.ListenAddr,
			PollInterval: cfg.Dashboard.PollInterval,
			Targets:      cfg.Dashboard.Targets,
		},
		logbook.New(cfg.Dataset.Path),
		captures,
		observe.DefaultMetrics(),
	)

	if cfg.Dashboard.OpsListenAddr != "" {
		startOpsListener(cfg, jrnl)
	}

	slog.Info("dashboard starting",
		"listen_addr", cfg.Dashboard.ListenAddr,
		"dataset", cfg.Dataset.Path,
		"poll_interval", cfg.Dashboard.PollInterval,
	)

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("dashboard error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// startOpsListener serves Prometheus metrics and the health probes beside
// the dashboard itself. jrnl may be nil when the journal could not be opened;
// the dashboard stays ready without it.
func startOpsListener(cfg *config.Config, jrnl *journal.Journal) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	var checkers []health.Checker
	if jrnl != nil {
		checkers = append(checkers, health.Dependency("journal", jrnl))
	}
	health.New(checkers...).Register(mux)

	go func() {
		if err := http.ListenAndServe(cfg.Dashboard.OpsListenAddr, mux); err != nil {
			slog.Error("ops listener error", "addr", cfg.Dashboard.OpsListenAddr, "err", err)
		}
	}()
	slog.Info("ops listener started", "addr", cfg.Dashboard.OpsListenAddr)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
