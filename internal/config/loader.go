package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mwirth/ironlog/internal/extract"
)

// ValidProviderNames lists known provider names per kind. [Validate] warns
// about names outside these lists.
var ValidProviderNames = map[string][]string{
	"stt":       {"whisper"},
	"audio":     {"ws", "none"},
	"extractor": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// Defaults applied by the loader for fields left empty.
const (
	DefaultClipPath          = "clip.wav"
	DefaultSampleRate        = 16000
	DefaultLanguage          = "de"
	DefaultFallbackText      = "Bodyweight eighty five point two kilos."
	DefaultTranscribeTimeout = 60 * time.Second
	DefaultExtractTimeout    = 30 * time.Second
	DefaultDatasetPath       = "fitness.csv"
	DefaultJournalPath       = "captures.sqlite"
	DefaultDashboardAddr     = ":8080"
	DefaultPollInterval      = 5 * time.Second
)

// DefaultTargets maps each fixed category to its chart reference line.
func DefaultTargets() map[string]float64 {
	return map[string]float64{
		extract.CategoryBodyweight: 82.5,
		extract.CategoryBenchPress: 65,
		extract.CategorySquat:      80,
		extract.CategoryDeadlift:   110,
	}
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. Unknown YAML fields are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills empty fields in place.
func applyDefaults(cfg *Config) {
	if cfg.Station.ClipPath == "" {
		cfg.Station.ClipPath = DefaultClipPath
	}
	if cfg.Station.SampleRate == 0 {
		cfg.Station.SampleRate = DefaultSampleRate
	}
	if cfg.Station.Language == "" {
		cfg.Station.Language = DefaultLanguage
	}
	if cfg.Station.FallbackText == "" {
		cfg.Station.FallbackText = DefaultFallbackText
	}
	if cfg.Station.TranscribeTimeout == 0 {
		cfg.Station.TranscribeTimeout = DefaultTranscribeTimeout
	}
	if cfg.Station.ExtractTimeout == 0 {
		cfg.Station.ExtractTimeout = DefaultExtractTimeout
	}
	if cfg.Dataset.Path == "" {
		cfg.Dataset.Path = DefaultDatasetPath
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = DefaultJournalPath
	}
	if cfg.Dashboard.ListenAddr == "" {
		cfg.Dashboard.ListenAddr = DefaultDashboardAddr
	}
	if cfg.Dashboard.PollInterval == 0 {
		cfg.Dashboard.PollInterval = DefaultPollInterval
	}
	if cfg.Dashboard.Targets == nil {
		cfg.Dashboard.Targets = DefaultTargets()
	} else {
		for category, target := range DefaultTargets() {
			if _, ok := cfg.Dashboard.Targets[category]; !ok {
				cfg.Dashboard.Targets[category] = target
			}
		}
	}
}

// Validate checks that cfg is coherent. It returns a joined error listing all
// failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Station.LogLevel != "" && !cfg.Station.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("station.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Station.LogLevel))
	}
	if cfg.Dashboard.LogLevel != "" && !cfg.Dashboard.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("dashboard.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Dashboard.LogLevel))
	}

	if cfg.Station.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("station.sample_rate %d must be positive", cfg.Station.SampleRate))
	} else if cfg.Station.SampleRate != DefaultSampleRate {
		slog.Warn("non-standard sample rate; the speech model expects 16 kHz audio",
			"sample_rate", cfg.Station.SampleRate)
	}
	if cfg.Station.TranscribeTimeout < 0 {
		errs = append(errs, fmt.Errorf("station.transcribe_timeout %v must not be negative", cfg.Station.TranscribeTimeout))
	}
	if cfg.Station.ExtractTimeout < 0 {
		errs = append(errs, fmt.Errorf("station.extract_timeout %v must not be negative", cfg.Station.ExtractTimeout))
	}

	if cfg.Dashboard.PollInterval < time.Second {
		errs = append(errs, fmt.Errorf("dashboard.poll_interval %v is below the 1s minimum", cfg.Dashboard.PollInterval))
	}
	for category, target := range cfg.Dashboard.Targets {
		if target <= 0 {
			errs = append(errs, fmt.Errorf("dashboard.targets[%q] = %v must be positive", category, target))
		}
	}

	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("audio", cfg.Providers.Audio.Name)
	validateProviderName("extractor", cfg.Providers.Extractor.Name)
	for _, entry := range cfg.Providers.ExtractorFallbacks {
		validateProviderName("extractor", entry.Name)
	}

	if cfg.Providers.Extractor.Name == "" && len(cfg.Providers.ExtractorFallbacks) > 0 {
		errs = append(errs, errors.New("providers.extractor_fallbacks is set but providers.extractor is not"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning when name is non-empty and not in the
// [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
