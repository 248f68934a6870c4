package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoadFromReaderFullConfig(t *testing.T) {
	t.Parallel()
	yml := `
station:
  clip_path: /tmp/clip.wav
  sample_rate: 16000
  language: de
  fallback_text: "Bodyweight eighty five point two kilos."
  transcribe_timeout: 90s
  extract_timeout: 20s
  ops_listen_addr: ":9090"
  log_level: debug
providers:
  stt:
    name: whisper
    model: models/ggml-base.bin
  audio:
    name: ws
  extractor:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
  extractor_fallbacks:
    - name: ollama
      base_url: http://localhost:11434
      model: llama3.2
dataset:
  path: /var/lib/ironlog/fitness.csv
journal:
  path: /var/lib/ironlog/captures.sqlite
dashboard:
  listen_addr: ":8080"
  poll_interval: 5s
  ops_listen_addr: ":9091"
  targets:
    Bodyweight: 82.5
    Bench Press: 65
    Squat: 80
    Deadlift: 110
`
	cfg, err := LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if cfg.Station.TranscribeTimeout != 90*time.Second {
		t.Errorf("TranscribeTimeout = %v, want 90s", cfg.Station.TranscribeTimeout)
	}
	if cfg.Providers.STT.Name != "whisper" || cfg.Providers.STT.Model != "models/ggml-base.bin" {
		t.Errorf("STT entry = %+v", cfg.Providers.STT)
	}
	if len(cfg.Providers.ExtractorFallbacks) != 1 || cfg.Providers.ExtractorFallbacks[0].Name != "ollama" {
		t.Errorf("ExtractorFallbacks = %+v, want one ollama entry", cfg.Providers.ExtractorFallbacks)
	}
	if cfg.Dashboard.Targets["Deadlift"] != 110 {
		t.Errorf("Deadlift target = %v, want 110", cfg.Dashboard.Targets["Deadlift"])
	}
	if cfg.Dashboard.OpsListenAddr != ":9091" {
		t.Errorf("Dashboard.OpsListenAddr = %q, want :9091", cfg.Dashboard.OpsListenAddr)
	}
}

func TestLoadFromReaderAppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := LoadFromReader(strings.NewReader("station:\n  log_level: info\n"))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if cfg.Station.ClipPath != DefaultClipPath {
		t.Errorf("ClipPath = %q, want default %q", cfg.Station.ClipPath, DefaultClipPath)
	}
	if cfg.Station.SampleRate != DefaultSampleRate {
		t.Errorf("SampleRate = %d, want %d", cfg.Station.SampleRate, DefaultSampleRate)
	}
	if cfg.Station.Language != "de" {
		t.Errorf("Language = %q, want de", cfg.Station.Language)
	}
	if cfg.Dashboard.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", cfg.Dashboard.PollInterval, DefaultPollInterval)
	}
	want := DefaultTargets()
	for category, target := range want {
		if cfg.Dashboard.Targets[category] != target {
			t.Errorf("target %q = %v, want %v", category, cfg.Dashboard.Targets[category], target)
		}
	}
}

func TestLoadFromReaderMergesPartialTargets(t *testing.T) {
	t.Parallel()
	yml := `
dashboard:
  targets:
    Squat: 100
`
	cfg, err := LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if cfg.Dashboard.Targets["Squat"] != 100 {
		t.Errorf("Squat target = %v, want explicit 100", cfg.Dashboard.Targets["Squat"])
	}
	if cfg.Dashboard.Targets["Deadlift"] != 110 {
		t.Errorf("Deadlift target = %v, want default 110", cfg.Dashboard.Targets["Deadlift"])
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := LoadFromReader(strings.NewReader("station:\n  microphone: builtin\n"))
	if err == nil {
		t.Error("LoadFromReader() with unknown field: expected error")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	t.Parallel()
	yml := `
station:
  log_level: loud
  transcribe_timeout: -5s
dashboard:
  poll_interval: 100ms
  targets:
    Squat: -1
`
	_, err := LoadFromReader(strings.NewReader(yml))
	if err == nil {
		t.Fatal("LoadFromReader() expected validation errors")
	}
	for _, fragment := range []string{"log_level", "transcribe_timeout", "poll_interval", "targets"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error %q does not mention %s", err, fragment)
		}
	}
}

func TestValidateRejectsNonPositiveSampleRate(t *testing.T) {
	t.Parallel()
	for _, rate := range []int{0, -16000} {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Station.SampleRate = rate
		err := Validate(cfg)
		if err == nil || !strings.Contains(err.Error(), "sample_rate") {
			t.Errorf("Validate() with sample_rate %d: error = %v, want sample_rate error", rate, err)
		}
	}
}

func TestValidateFallbacksRequirePrimary(t *testing.T) {
	t.Parallel()
	yml := `
providers:
  extractor_fallbacks:
    - name: ollama
`
	_, err := LoadFromReader(strings.NewReader(yml))
	if err == nil || !strings.Contains(err.Error(), "extractor_fallbacks") {
		t.Errorf("LoadFromReader() error = %v, want fallbacks-without-primary error", err)
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	_, err := r.CreateSTT(ProviderEntry{Name: "nope"})
	if !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("CreateSTT() error = %v, want ErrProviderNotRegistered", err)
	}
	_, err = r.CreateLLM(ProviderEntry{Name: "nope"})
	if !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("CreateLLM() error = %v, want ErrProviderNotRegistered", err)
	}
	_, err = r.CreateAudio(ProviderEntry{Name: "nope"})
	if !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("CreateAudio() error = %v, want ErrProviderNotRegistered", err)
	}
}
