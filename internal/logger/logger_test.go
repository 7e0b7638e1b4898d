package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		format   string
		encoding string
		want     zapcore.Level
		wantErr  bool
	}{
		{name: "defaults", encoding: "json", want: zapcore.InfoLevel},
		{name: "console debug", level: "debug", format: "console", encoding: "console", want: zapcore.DebugLevel},
		{name: "json warn", level: " warn ", format: "json", encoding: "json", want: zapcore.WarnLevel},
		{name: "unknown format falls back to json", level: "error", format: "xml", encoding: "json", want: zapcore.ErrorLevel},
		{name: "invalid level", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := newConfig(tt.level, tt.format)
			if tt.wantErr {
				assert.ErrorContains(t, err, `invalid log level "loud"`)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.encoding, cfg.Encoding)
			assert.Equal(t, tt.want, cfg.Level.Level())
			assert.Equal(t, "ts", cfg.EncoderConfig.TimeKey)
		})
	}
}

func TestNewLeavesGlobalsAlone(t *testing.T) {
	before := zap.L()
	log, err := New("info", "console")
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.Same(t, before, zap.L())

	_, err = New("loud", "json")
	assert.Error(t, err)
}
