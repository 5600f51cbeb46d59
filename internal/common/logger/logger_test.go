// internal/common/logger/logger_test.go
package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

// ==========================
// New
// ==========================

func TestNew_LevelSelection(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{
			name:    "debug level enables debug",
			level:   "debug",
			format:  "json",
			enabled: zapcore.DebugLevel,
			muted:   zapcore.Level(-2),
		},
		{
			name:    "warn level mutes info",
			level:   "warn",
			format:  "json",
			enabled: zapcore.WarnLevel,
			muted:   zapcore.InfoLevel,
		},
		{
			name:    "error level mutes warn",
			level:   "error",
			format:  "console",
			enabled: zapcore.ErrorLevel,
			muted:   zapcore.WarnLevel,
		},
		{
			name:    "unknown level falls back to info",
			level:   "verbose",
			format:  "console",
			enabled: zapcore.InfoLevel,
			muted:   zapcore.DebugLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.level, tt.format)

			assert.True(t, l.Core().Enabled(tt.enabled))
			assert.False(t, l.Core().Enabled(tt.muted))
		})
	}
}

// ==========================
// Adapter
// ==========================

func TestNewZapAdapter_WithFieldsAndError(t *testing.T) {
	log := NewZapAdapter(New("info", "json"))

	child := log.WithFields(map[string]interface{}{"component": "dispatch"})
	assert.NotNil(t, child)

	withErr := child.WithError(assert.AnError)
	assert.NotNil(t, withErr)

	// Must not panic with a nil field map.
	log.Info("started", nil)
}
