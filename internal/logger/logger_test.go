package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("console_json_fields", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New(Options{Level: "debug", ConsoleWriter: &buf})
		require.NoError(t, err, "New should not error")

		ForFile(log, "convert", "/tmp/a.jpg").Debug("Converted")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line), "output should be a JSON line")
		assert.Equal(t, "Converted", line["message"])
		assert.Equal(t, "debug", line["level"])
		assert.Equal(t, "/tmp/a.jpg", line[FieldFile])
		assert.Equal(t, "convert", line[FieldOperation])
		assert.Contains(t, line, "timestamp")
	})

	t.Run("level_filters", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New(Options{Level: "error", ConsoleWriter: &buf})
		require.NoError(t, err)

		log.Info("hidden")
		assert.Zero(t, buf.Len(), "info should be filtered at error level")
	})

	t.Run("file_only", func(t *testing.T) {
		var buf bytes.Buffer
		path := filepath.Join(t.TempDir(), "logs", "app.log")
		log, err := New(Options{Level: "info", File: path, Rotation: Rotation{MaxSizeMB: 1}, ConsoleWriter: &buf})
		require.NoError(t, err)

		ForFile(log, "delete", "x.png").Info("written")
		assert.Zero(t, buf.Len(), "console should stay silent")

		data, err := os.ReadFile(path)
		require.NoError(t, err, "log file should exist")
		assert.Contains(t, string(data), `"operation":"delete"`)
	})

	t.Run("file_and_console", func(t *testing.T) {
		var buf bytes.Buffer
		path := filepath.Join(t.TempDir(), "app.log")
		log, err := New(Options{Level: "info", File: path, Console: true, ConsoleWriter: &buf})
		require.NoError(t, err)

		log.Info("both")
		assert.Contains(t, buf.String(), `"message":"both"`, "console should receive the record")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"message":"both"`, "file should receive the record")
	})

	t.Run("invalid_level", func(t *testing.T) {
		_, err := New(Options{Level: "loud"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse log level")
	})
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	assert.False(t, log.IsLevelEnabled(logrus.ErrorLevel), "nop logger should not emit errors")
	ForFile(log, "convert", "dropped.png").Error("dropped")
}

func TestDefaults(t *testing.T) {
	opts := Defaults()
	assert.Equal(t, "info", opts.Level)
	assert.Equal(t, "imageconvert.log", opts.File)
	assert.True(t, opts.Rotation.Compress)
	assert.False(t, opts.Console)
}
