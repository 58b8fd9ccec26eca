package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeFromBuffer(t *testing.T) {
	var buf bytes.Buffer
	data, err := New().FromBuffer(&buf).WithLevel("warn").Service("crm").Make()
	require.NoError(t, err)

	data.Logger.Info().Msg("dropped")
	data.Logger.Warn().Str("phase", "notification").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "crm", entry["service"])
	assert.Equal(t, "notification", entry["phase"])
	assert.Contains(t, entry, "time")
}

func TestMakeFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crm.log")
	data, err := New().FromPath(path).Make()
	require.NoError(t, err)

	data.Logger.Info().Msg("hello")
	require.NoError(t, data.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"message":"hello"`)
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	data, err := New().FromBuffer(&buf).WithLevel("loud").Make()
	require.NoError(t, err)

	data.Logger.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	data.Logger.Info().Msg("shown")
	assert.NotZero(t, buf.Len())
}
