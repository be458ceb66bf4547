package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"tripadmin/pkg/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONToConsole(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	l.Info("dropped")
	l.WithField("component", "test").Warn("kept")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "test", entry["component"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l, err := New(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestNew_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	l, err := New(config.LogConfig{Level: "info", Format: "text", FilePath: path, MaxSize: 1}, &bytes.Buffer{})
	require.NoError(t, err)

	l.Info("hello file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}
