package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggingBeforeInit(t *testing.T) {
	// Packages log during construction and in tests that never call Init;
	// the globals must be usable from declaration
	require.NotNil(t, Log)
	require.NotNil(t, Sugar)

	assert.NotPanics(t, func() {
		Debug("debug before init")
		Info("info before init", zap.String("k", "v"))
		Warn("warn before init")
		Error("error before init")
		Sugar.Infow("sugared before init", "k", "v")
		With(zap.String("k", "v")).Info("child before init")
	})
}

func TestInit(t *testing.T) {
	err := Init(&Config{Level: "debug", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, Log)
	assert.True(t, Log.Core().Enabled(zap.DebugLevel))

	err = Init(&Config{Level: "warn", Format: "text"})
	require.NoError(t, err)
	assert.False(t, Log.Core().Enabled(zap.InfoLevel))
}
