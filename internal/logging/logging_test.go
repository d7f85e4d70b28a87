package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "console.log")

	logger, closer, err := Init(path, false)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("session opened", "host", "10.0.0.5")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "session opened")
	assert.Contains(t, string(content), "host=10.0.0.5")
	assert.NotContains(t, string(content), "hidden")
}

func TestInitDebugLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")

	logger, closer, err := Init(path, true)
	require.NoError(t, err)
	logger.Debug("poll tick")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "poll tick")
}

func TestInitWithoutPathDiscards(t *testing.T) {
	logger, closer, err := Init("", true)
	require.NoError(t, err)
	logger.Info("nowhere")
	assert.NoError(t, closer.Close())
}
