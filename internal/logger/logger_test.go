package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tizianocitro/blobquickstart/internal/config"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zapcore.Level
	}{
		{name: "debug", level: "debug", want: zapcore.DebugLevel},
		{name: "warn", level: "warn", want: zapcore.WarnLevel},
		{name: "invalid falls back to info", level: "loud", want: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewLogger(&config.LoggingConfig{Level: tt.level, Format: "console"}, &config.AppConfig{Name: "test", Environment: "development"})
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestNewLogger_Production(t *testing.T) {
	log, err := NewLogger(&config.LoggingConfig{Level: "info"}, &config.AppConfig{Name: "test", Environment: "production"})
	require.NoError(t, err)
	assert.NotNil(t, WithRun(log, "azblob", "sync", "quickstartcontainer"))
}
