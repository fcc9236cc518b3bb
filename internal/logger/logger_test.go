package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLogLevel(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warning", false},
		{"error", false},
		{"  INFO ", false},
		{"warn", true},
		{"trace", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := ValidateLogLevel(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected logrus.Level
		wantErr  bool
	}{
		{"debug", logrus.DebugLevel, false},
		{"Info", logrus.InfoLevel, false},
		{"warning", logrus.WarnLevel, false},
		{"error", logrus.ErrorLevel, false},
		{"verbose", logrus.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := ParseLogLevel(tt.level)
			assert.Equal(t, tt.expected, got)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("warning", &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("loud", &buf)
	assert.Error(t, err)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("debug", &buf)
	require.NoError(t, err)

	ctx := WithLogger(context.Background(), log)
	assert.Same(t, log, GetLoggerFromContext(ctx))
	assert.True(t, GetLoggerFromContext(ctx).IsLevelEnabled(logrus.DebugLevel))
}

func TestGetLoggerFromContext_Fallback(t *testing.T) {
	log := GetLoggerFromContext(context.Background())
	require.NotNil(t, log)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.False(t, log.IsLevelEnabled(logrus.DebugLevel))
}

func TestSetupLogger(t *testing.T) {
	ctx := SetupLogger(context.Background(), "error")
	assert.Equal(t, logrus.ErrorLevel, GetLoggerFromContext(ctx).GetLevel())

	ctx = SetupLogger(context.Background(), "bogus")
	assert.Equal(t, logrus.InfoLevel, GetLoggerFromContext(ctx).GetLevel())
}
