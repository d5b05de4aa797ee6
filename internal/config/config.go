// Package config provides the configuration schema and loader for voxalign.
package config

import (
	"log/slog"
	"time"
)

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

// Level maps l onto the corresponding slog level. Unknown values map to Info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration structure for voxalign.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// ModelsDir is where downloaded voice model files are cached.
	ModelsDir string `yaml:"models_dir"`

	// DefaultVoice is the voice id used when the command line names none.
	DefaultVoice string `yaml:"default_voice"`

	Dictionary DictionaryConfig `yaml:"dictionary"`
	Tools      ToolsConfig      `yaml:"tools"`
	Lipsync    LipsyncConfig    `yaml:"lipsync"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// DictionaryConfig locates the pronunciation dictionary.
type DictionaryConfig struct {
	// Path is the local dictionary file; it is downloaded there when absent.
	Path string `yaml:"path"`

	// URL overrides the download source. Empty selects the well-known
	// CMUdict mirror.
	URL string `yaml:"url"`
}

// ToolsConfig names the external executables the pipeline shells out to.
// Names may be bare (resolved on PATH) or absolute paths.
type ToolsConfig struct {
	Synthesizer string `yaml:"synthesizer"`
	PitchShift  string `yaml:"pitch_shift"`
	Aligner     string `yaml:"aligner"`
	LLMRunner   string `yaml:"llm_runner"`

	// Timeout bounds each external tool invocation.
	Timeout time.Duration `yaml:"timeout"`
}

// LipsyncConfig holds lipsync defaults.
type LipsyncConfig struct {
	// Level is the default fidelity: "low" (timings only) or "high"
	// (phoneme-annotated).
	Level string `yaml:"level"`

	// LLMModel enables the language-model pronunciation fallback when
	// non-blank (e.g. "llama3.2").
	LLMModel string `yaml:"llm_model"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	// ListenAddr serves /metrics when non-empty (e.g. ":9090").
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		LogLevel:     LogInfo,
		ModelsDir:    "models",
		DefaultVoice: "en_GB-alba-medium",
		Dictionary: DictionaryConfig{
			Path: "extra/cmudict-0.7b.txt",
		},
		Tools: ToolsConfig{
			Synthesizer: "piper",
			PitchShift:  "sox",
			Aligner:     "whisperx",
			LLMRunner:   "ollama",
			Timeout:     5 * time.Minute,
		},
		Lipsync: LipsyncConfig{
			Level: "low",
		},
	}
}
