// Package config loads service configuration from an optional YAML file
// with environment variable overrides. Environment wins over file so
// deployments can tweak a baked-in config without rebuilding.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultPort     = 3030
	DefaultVoice    = "Polly.Nicole"
	DefaultLanguage = "en-AU"
)

// Duration wraps time.Duration so YAML values like "30m" parse.
type Duration time.Duration

// UnmarshalYAML accepts Go duration strings and integer nanoseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value %q", value.Value)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Config is the full service configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port int `yaml:"port"`

	// BaseURL is the externally reachable URL of this service, used to
	// build audio playback links. Empty produces relative links.
	BaseURL string `yaml:"base_url"`

	// Voice is the native telephony voice used for fallback speech.
	Voice string `yaml:"voice"`

	// Language is the speech language for prompts and recognition.
	Language string `yaml:"language"`

	// RulesFile optionally replaces the built-in reply rules.
	RulesFile string `yaml:"rules_file"`

	// BackendURL optionally points at a conversational gateway. Empty
	// means rule-based replies only.
	BackendURL string `yaml:"backend_url"`

	// RedisAddr optionally enables Redis session storage. Empty means
	// in-memory sessions.
	RedisAddr string `yaml:"redis_addr"`

	// TelemetryEndpoint optionally enables OTLP trace export.
	TelemetryEndpoint string `yaml:"telemetry_endpoint"`

	Synthesis SynthesisConfig `yaml:"synthesis"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
}

// SynthesisConfig configures the premium speech provider.
type SynthesisConfig struct {
	// APIKey enables the premium provider. Empty means every turn uses
	// the native telephony voice.
	APIKey string `yaml:"api_key"`

	VoiceID    string  `yaml:"voice_id"`
	Model      string  `yaml:"model"`
	Stability  float64 `yaml:"stability"`
	Similarity float64 `yaml:"similarity"`
	Format     string  `yaml:"format"`

	// Timeout is the hard per-attempt deadline.
	Timeout Duration `yaml:"timeout"`
}

// CacheConfig bounds the rendered-audio cache.
type CacheConfig struct {
	MaxEntries    int      `yaml:"max_entries"`
	TTL           Duration `yaml:"ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Port:     DefaultPort,
		Voice:    DefaultVoice,
		Language: DefaultLanguage,
		Synthesis: SynthesisConfig{
			VoiceID:    "21m00Tcm4TlvDq8ikWAM",
			Model:      "eleven_turbo_v2_5",
			Stability:  0.5,
			Similarity: 0.75,
			Format:     "mp3_44100_128",
			Timeout:    Duration(5 * time.Second),
		},
		Cache: CacheConfig{
			MaxEntries:    100,
			TTL:           Duration(time.Hour),
			SweepInterval: Duration(15 * time.Minute),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (if non-empty), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("VOICE"); v != "" {
		c.Voice = v
	}
	if v := os.Getenv("LANGUAGE"); v != "" {
		c.Language = v
	}
	if v := os.Getenv("RULES_FILE"); v != "" {
		c.RulesFile = v
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		c.BackendURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.TelemetryEndpoint = v
	}
	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		c.Synthesis.APIKey = v
	}
	if v := os.Getenv("ELEVENLABS_VOICE_ID"); v != "" {
		c.Synthesis.VoiceID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Cache.SweepInterval <= 0 {
		return fmt.Errorf("cache sweep_interval must be positive, got %s", c.Cache.SweepInterval)
	}
	if c.Synthesis.Timeout <= 0 {
		return fmt.Errorf("synthesis timeout must be positive, got %s", c.Synthesis.Timeout)
	}
	return nil
}
