package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3030, cfg.Port)
	assert.Equal(t, "Polly.Nicole", cfg.Voice)
	assert.Equal(t, "en-AU", cfg.Language)
	assert.Equal(t, 5*time.Second, cfg.Synthesis.Timeout.Std())
	assert.Equal(t, 100, cfg.Cache.MaxEntries)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Std())
	assert.Equal(t, 15*time.Minute, cfg.Cache.SweepInterval.Std())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 8080
voice: Polly.Matthew
language: en-US
synthesis:
  timeout: 3s
  voice_id: custom-voice
cache:
  max_entries: 50
  ttl: 30m
  sweep_interval: 5m
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "Polly.Matthew", cfg.Voice)
	assert.Equal(t, "en-US", cfg.Language)
	assert.Equal(t, 3*time.Second, cfg.Synthesis.Timeout.Std())
	assert.Equal(t, "custom-voice", cfg.Synthesis.VoiceID)
	assert.Equal(t, 50, cfg.Cache.MaxEntries)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL.Std())

	// Unset fields keep defaults.
	assert.Equal(t, "eleven_turbo_v2_5", cfg.Synthesis.Model)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8080\n"), 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("VOICE", "Polly.Olivia")
	t.Setenv("ELEVENLABS_API_KEY", "sk_test_0123456789abcdef")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "Polly.Olivia", cfg.Voice)
	assert.Equal(t, "sk_test_0123456789abcdef", cfg.Synthesis.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad port", "port: -1\n"},
		{"zero cache entries", "cache:\n  max_entries: 0\n"},
		{"negative ttl", "cache:\n  ttl: -1h\n"},
		{"zero timeout", "synthesis:\n  timeout: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
