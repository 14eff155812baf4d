package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-cockpit/pkg/perception"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("JOURNAL_PATH", "")
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, ":9000", ListenAddr(":9000"))
	assert.Equal(t, DefaultJournalPath, JournalPath())
	assert.Equal(t, DefaultLogLevel, LogLevel())

	t.Setenv("LISTEN_ADDR", "127.0.0.1:7000")
	t.Setenv("JOURNAL_PATH", "/tmp/j.db")
	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, "127.0.0.1:7000", ListenAddr(":9000"))
	assert.Equal(t, "/tmp/j.db", JournalPath())
	assert.Equal(t, "debug", LogLevel())
}

func TestLoadPerception_EmptyPath(t *testing.T) {
	cfg, err := LoadPerception("")
	require.NoError(t, err)
	assert.Equal(t, perception.DefaultConfig(), cfg)
}

func TestLoadPerception_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cockpit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
head:
  cooldown: 2s
gaze:
  distraction_threshold: 2500ms
  mirror_horizontal: false
gesture:
  shake_threshold: 0.1
`), 0o644))

	cfg, err := LoadPerception(path)
	require.NoError(t, err)

	want := perception.DefaultConfig()
	want.Head.Cooldown = 2 * time.Second
	want.Gaze.DistractionThreshold = 2500 * time.Millisecond
	want.Gaze.MirrorHorizontal = false
	want.Gesture.ShakeThreshold = 0.1
	assert.Equal(t, want, cfg)
}

func TestParsePerception_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		invalid bool
	}{
		{"unknown field", "head:\n  wobble: 3\n", false},
		{"malformed yaml", "head: [", false},
		{"fails validation", "gaze:\n  ema_alpha: 2\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePerception([]byte(tt.yaml))
			require.Error(t, err)
			assert.Equal(t, tt.invalid, errors.Is(err, perception.ErrInvalidConfig))
		})
	}
}

func TestParsePerception_EmptyDocument(t *testing.T) {
	cfg, err := ParsePerception(nil)
	require.NoError(t, err)
	assert.Equal(t, perception.DefaultConfig(), cfg)
}

func TestLoadPerception_MissingFile(t *testing.T) {
	_, err := LoadPerception(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
