package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackify-io/trackify/config/modules"
)

func TestNewZapLogger(t *testing.T) {
	file := filepath.Join(t.TempDir(), "trackify.log")
	logger, err := NewZapLogger(&modules.LogConfig{
		File:   file,
		Level:  modules.LogLevelInfo,
		Format: modules.LogFormatJson,
	})
	require.NoError(t, err)

	Named(logger, "capi").Infow("delivered", "pixel_id", "123")
	logger.Debug("hidden")
	_ = logger.Sync()

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"logger":"capi"`)
	assert.Contains(t, string(b), `"pixel_id":"123"`)
	assert.NotContains(t, string(b), "hidden")
}

func TestNewZapLoggerInvalidLevel(t *testing.T) {
	_, err := NewZapLogger(&modules.LogConfig{Level: "verbose", Format: modules.LogFormatText})
	assert.Error(t, err)
}
