// Package config provides the configuration schema, loader, and provider
// registry for the capture station and the dashboard.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration, typically loaded from a YAML file via
// [Load] or [LoadFromReader].
type Config struct {
	Station   StationConfig   `yaml:"station"`
	Providers ProvidersConfig `yaml:"providers"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Journal   JournalConfig   `yaml:"journal"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// StationConfig holds settings for the capture station binary.
type StationConfig struct {
	// ClipPath is where the current audio clip is flushed. Single slot: each
	// session overwrites the previous clip.
	ClipPath string `yaml:"clip_path"`

	// SampleRate of captured audio in Hz. The speech model expects 16000.
	SampleRate int `yaml:"sample_rate"`

	// Language hint passed to the speech model (ISO 639-1).
	Language string `yaml:"language"`

	// FallbackText substitutes the transcript when no audio source is
	// available. Such captures are journaled as simulated.
	FallbackText string `yaml:"fallback_text"`

	// TranscribeTimeout bounds one transcription call.
	TranscribeTimeout time.Duration `yaml:"transcribe_timeout"`

	// ExtractTimeout bounds one extraction call.
	ExtractTimeout time.Duration `yaml:"extract_timeout"`

	// OpsListenAddr is the TCP address of the metrics/health listener
	// (e.g. ":9090"). Empty disables the listener.
	OpsListenAddr string `yaml:"ops_listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig selects the provider implementation for each pipeline
// stage. Each Name is looked up in the [Registry].
type ProvidersConfig struct {
	// STT selects the speech-to-text provider.
	STT ProviderEntry `yaml:"stt"`

	// Audio selects the audio source ("ws" for the websocket feed, "none"
	// for degraded mode without capture).
	Audio ProviderEntry `yaml:"audio"`

	// Extractor selects the primary structured-extraction backend.
	Extractor ProviderEntry `yaml:"extractor"`

	// ExtractorFallbacks lists lower-priority extraction backends, tried in
	// order when the primary fails.
	ExtractorFallbacks []ProviderEntry `yaml:"extractor_fallbacks"`
}

// ProviderEntry is the configuration block shared by all provider kinds. The
// Name field selects the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered implementation (e.g. "whisper", "openai").
	Name string `yaml:"name"`

	// APIKey authenticates against the provider's API, if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a model within the provider (e.g. "gpt-4o-mini", or a
	// whisper model file path).
	Model string `yaml:"model"`

	// Options holds provider-specific values not covered by the standard
	// fields above.
	Options map[string]any `yaml:"options"`
}

// DatasetConfig locates the durable dataset.
type DatasetConfig struct {
	// Path of the append-only CSV file.
	Path string `yaml:"path"`
}

// JournalConfig locates the capture journal.
type JournalConfig struct {
	// Path of the SQLite database file.
	Path string `yaml:"path"`
}

// DashboardConfig holds settings for the dashboard binary.
type DashboardConfig struct {
	// ListenAddr is the TCP address the dashboard serves on.
	ListenAddr string `yaml:"listen_addr"`

	// PollInterval is how often the dataset is re-read and re-aggregated.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Targets maps category names to the dashed reference-line value drawn
	// on that category's chart.
	Targets map[string]float64 `yaml:"targets"`

	// OpsListenAddr is the TCP address of the dashboard's metrics/health
	// listener (e.g. ":9091"). Empty disables the listener.
	OpsListenAddr string `yaml:"ops_listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}
