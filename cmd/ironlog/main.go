// Command ironlog is the voice logging station: push-to-talk capture,
// local transcription, structured extraction and the durable dataset append.
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

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mwirth/ironlog/internal/config"
	"github.com/mwirth/ironlog/internal/extract"
	"github.com/mwirth/ironlog/internal/health"
	"github.com/mwirth/ironlog/internal/journal"
	"github.com/mwirth/ironlog/internal/logbook"
	"github.com/mwirth/ironlog/internal/observe"
	"github.com/mwirth/ironlog/internal/resilience"
	"github.com/mwirth/ironlog/internal/station"
	"github.com/mwirth/ironlog/internal/station/tui"
	"github.com/mwirth/ironlog/pkg/audio"
	"github.com/mwirth/ironlog/pkg/audio/capture"
	"github.com/mwirth/ironlog/pkg/audio/wsfeed"
	"github.com/mwirth/ironlog/pkg/provider/llm"
	"github.com/mwirth/ironlog/pkg/provider/llm/anyllm"
	openaillm "github.com/mwirth/ironlog/pkg/provider/llm/openai"
	"github.com/mwirth/ironlog/pkg/provider/stt"
	"github.com/mwirth/ironlog/pkg/provider/stt/whisper"
)

const defaultFeedAddr = ":8090"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "ironlog: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "ironlog: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Station.LogLevel)
	slog.SetDefault(logger)

	slog.Info("ironlog starting",
		"config", *configPath,
		"dataset", cfg.Dataset.Path,
		"language", cfg.Station.Language,
		"log_level", cfg.Station.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "ironlog"})
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

	reg := config.NewRegistry()
	registerBuiltinProviders(reg, cfg)

	transcriber, err := buildTranscriber(cfg, reg)
	if err != nil {
		slog.Error("failed to build transcriber", "err", err)
		return 1
	}
	if closer, ok := transcriber.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	extractor, err := buildExtractor(cfg, reg)
	if err != nil {
		slog.Error("failed to build extractor", "err", err)
		return 1
	}

	jrnl, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		slog.Error("failed to open capture journal", "err", err)
		return 1
	}
	defer jrnl.Close()

	dataset := logbook.New(cfg.Dataset.Path)
	metrics := observe.DefaultMetrics()

	recorder, feedCleanup, err := buildRecorder(ctx, cfg, reg)
	if err != nil {
		slog.Error("failed to build audio source", "err", err)
		return 1
	}
	if feedCleanup != nil {
		defer feedCleanup()
	}
	if recorder == nil {
		slog.Warn("no audio source configured — running degraded, captures use fallback text")
	}

	if cfg.Station.OpsListenAddr != "" {
		startOpsListener(cfg, jrnl)
	}

	printStartupSummary(cfg, recorder != nil)

	events := make(chan station.KeyEvent)
	updates := make(chan station.Update, 16)

	ctrl := station.NewController(
		station.Config{
			ClipPath:          cfg.Station.ClipPath,
			FallbackText:      cfg.Station.FallbackText,
			TranscribeTimeout: cfg.Station.TranscribeTimeout,
			ExtractTimeout:    cfg.Station.ExtractTimeout,
		},
		station.Deps{
			Recorder:    recorder,
			Transcriber: transcriber,
			Extractor:   extractor,
			Logbook:     dataset,
			Journal:     jrnl,
			Metrics:     metrics,
			Notify: func(u station.Update) {
				select {
				case updates <- u:
				default:
					// A stalled UI must never block the pipeline.
				}
			},
		},
	)

	ctrlDone := make(chan error, 1)
	go func() {
		ctrlDone <- ctrl.Run(ctx, events)
		close(updates)
	}()

	program := tea.NewProgram(
		tui.New(events, updates, recorder == nil),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		slog.Error("ui error", "err", err)
	}
	stop()

	if err := <-ctrlDone; err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("station error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// registerBuiltinProviders wires the provider factories that ship with the
// station into reg.
func registerBuiltinProviders(reg *config.Registry, cfg *config.Config) {
	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.Option
		lang := optString(entry.Options, "language")
		if lang == "" {
			lang = cfg.Station.Language
		}
		if lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(modelPath, opts...)
	})

	// openai gets the native SDK backend; everything else goes through the
	// any-llm bridge.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, openaillm.WithBaseURL(entry.BaseURL))
		}
		return openaillm.New(entry.APIKey, entry.Model, opts...)
	})
	for _, providerName := range []string{
		"anthropic", "ollama", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	reg.RegisterAudio("ws", func(entry config.ProviderEntry) (audio.Source, error) {
		return wsfeed.New(audio.Format{
			SampleRate: cfg.Station.SampleRate,
			Channels:   1,
		}), nil
	})
}

func buildTranscriber(cfg *config.Config, reg *config.Registry) (stt.Transcriber, error) {
	t, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)
	return t, nil
}

// buildExtractor creates the primary extraction backend plus any configured
// fallbacks, threaded through a circuit-breaker chain.
func buildExtractor(cfg *config.Config, reg *config.Registry) (*extract.Extractor, error) {
	primary, err := reg.CreateLLM(cfg.Providers.Extractor)
	if err != nil {
		return nil, fmt.Errorf("create extractor provider %q: %w", cfg.Providers.Extractor.Name, err)
	}
	slog.Info("provider created", "kind", "extractor", "name", cfg.Providers.Extractor.Name)

	chain := resilience.NewLLMChain(cfg.Providers.Extractor.Name, primary, resilience.BreakerConfig{})
	chain.Instrument(observe.DefaultMetrics())
	for _, entry := range cfg.Providers.ExtractorFallbacks {
		fallback, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create extractor fallback %q: %w", entry.Name, err)
		}
		chain.Add(entry.Name, fallback)
		slog.Info("provider created", "kind", "extractor-fallback", "name", entry.Name)
	}
	return extract.New(chain), nil
}

// buildRecorder creates the capture recorder and connects it to the
// configured audio source. An Audio name of "none" or "" yields a nil
// recorder, which the controller treats as degraded mode. The returned
// cleanup stops the websocket feed listener, if one was started.
func buildRecorder(ctx context.Context, cfg *config.Config, reg *config.Registry) (*capture.Recorder, func(), error) {
	name := cfg.Providers.Audio.Name
	if name == "" || name == "none" {
		return nil, nil, nil
	}

	source, err := reg.CreateAudio(cfg.Providers.Audio)
	if err != nil {
		return nil, nil, fmt.Errorf("create audio provider %q: %w", name, err)
	}

	recorder := capture.NewRecorder(source.Format())
	if err := source.Start(ctx, recorder.Deliver); err != nil {
		return nil, nil, fmt.Errorf("start audio source %q: %w", name, err)
	}

	var cleanup func()
	if feed, ok := source.(*wsfeed.Feed); ok {
		addr := optString(cfg.Providers.Audio.Options, "listen_addr")
		if addr == "" {
			addr = defaultFeedAddr
		}
		cleanup = startFeedListener(feed, addr)
	}
	return recorder, cleanup, nil
}

// startFeedListener serves the websocket audio endpoint for browser and
// phone microphone pages.
func startFeedListener(feed *wsfeed.Feed, addr string) func() {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(fiberrecover.New())
	app.Get("/feed", websocket.New(feed.Handler))

	go func() {
		if err := app.Listen(addr); err != nil {
			slog.Error("audio feed listener error", "addr", addr, "err", err)
		}
	}()
	slog.Info("audio feed listening", "addr", addr, "route", "/feed")

	return func() {
		_ = feed.Close()
		_ = app.ShutdownWithTimeout(2 * time.Second)
	}
}

// startOpsListener serves Prometheus metrics and the health probes on the
// side channel, away from the interactive UI.
func startOpsListener(cfg *config.Config, jrnl *journal.Journal) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(
		health.DatasetWritable(cfg.Dataset.Path),
		health.Dependency("journal", jrnl),
	).Register(mux)

	go func() {
		if err := http.ListenAndServe(cfg.Station.OpsListenAddr, mux); err != nil {
			slog.Error("ops listener error", "addr", cfg.Station.OpsListenAddr, "err", err)
		}
	}()
	slog.Info("ops listener started", "addr", cfg.Station.OpsListenAddr)
}

func printStartupSummary(cfg *config.Config, hasAudio bool) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        ironlog — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printEntry("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printEntry("Extractor", cfg.Providers.Extractor.Name, cfg.Providers.Extractor.Model)
	fmt.Printf("║  Fallbacks       : %-19d ║\n", len(cfg.Providers.ExtractorFallbacks))
	if hasAudio {
		printEntry("Audio", cfg.Providers.Audio.Name, "")
	} else {
		fmt.Printf("║  Audio           : %-19s ║\n", "(degraded)")
	}
	fmt.Printf("║  Dataset         : %-19s ║\n", trim19(cfg.Dataset.Path))
	fmt.Printf("║  Journal         : %-19s ║\n", trim19(cfg.Journal.Path))
	if cfg.Station.OpsListenAddr != "" {
		fmt.Printf("║  Ops addr        : %-19s ║\n", cfg.Station.OpsListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printEntry(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, trim19(value))
}

func trim19(value string) string {
	if len(value) > 19 {
		return value[:16] + "…"
	}
	return value
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

// optString extracts a string value from a provider Options map.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
