package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "candletrades.log")

	log, err := New(Config{Level: "debug", Format: "json", File: path, Quiet: true, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Named("collector").Info("page fetched")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "page fetched", entry["msg"])
	assert.Equal(t, "collector", entry["logger"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{Level: "warn", File: path, Quiet: true})
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestNewQuietWithoutFileIsNop(t *testing.T) {
	log, err := New(Config{Quiet: true})
	require.NoError(t, err)
	assert.NotNil(t, log)
	log.Info("nothing to see")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, Config{}.Validate())
	assert.Error(t, Config{Level: "loud"}.Validate())
	assert.Error(t, Config{Format: "xml"}.Validate())

	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}
