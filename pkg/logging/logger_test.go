package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "level %q", tt.input)
	}
}

func TestDefaultConfigReadsEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("NO_COLOR", "1")

	cfg := DefaultConfig()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.NoColor)
}

func TestConfigureSetsGlobalLevel(t *testing.T) {
	defer Configure(DefaultConfig())

	Configure(&Config{Level: "error", Format: "json", Output: "discard"})
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
	assert.Equal(t, zerolog.ErrorLevel, Default().GetLevel())
}

func TestDefaultReturnsUsableLogger(t *testing.T) {
	log := Default()
	assert.NotNil(t, log)

	// Nop logger discards without panicking.
	Nop.Info().Str("k", "v").Msg("ignored")
}
