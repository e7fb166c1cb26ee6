package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("file_values", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, `
directory: `+dir+`
source_extension: .JPG
target_extension: webp
compression: 65
conversion:
  overwrite: false
  exclude:
    - "cache/**"
  avif_speed: 9
logging:
  level: DEBUG
  file_path: ""
web:
  port: 9090
`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err, "LoadConfig should not error")

		assert.Equal(t, dir, cfg.Directory)
		assert.Equal(t, "jpg", cfg.SourceExtension, "extension should be normalized")
		assert.Equal(t, "webp", cfg.TargetExtension)
		assert.Equal(t, 65, cfg.Compression)
		assert.False(t, cfg.Conversion.Overwrite)
		assert.Equal(t, []string{"cache/**"}, cfg.Conversion.Exclude)
		assert.Equal(t, 9, cfg.Conversion.AVIFSpeed)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Empty(t, cfg.Logging.FilePath)
		assert.Equal(t, 10, cfg.Logging.MaxSize, "unset keys should keep defaults")
		assert.Equal(t, 9090, cfg.Web.Port)
		require.NoError(t, cfg.ValidateJob())
	})

	t.Run("env_overrides", func(t *testing.T) {
		path := writeConfig(t, "compression: 50\n")
		t.Setenv("IMAGECONVERT_COMPRESSION", "30")
		t.Setenv("IMAGECONVERT_LOGGING_LEVEL", "warn")
		t.Setenv("IMAGECONVERT_TARGET_EXTENSION", "PNG")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 30, cfg.Compression)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, "png", cfg.TargetExtension)
	})

	t.Run("missing_explicit_file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})

	t.Run("invalid_values", func(t *testing.T) {
		tests := []struct {
			name        string
			content     string
			errContains string
		}{
			{name: "compression_high", content: "compression: 101\n", errContains: "invalid compression"},
			{name: "compression_zero", content: "compression: 0\n", errContains: "invalid compression"},
			{name: "avif_speed", content: "conversion:\n  avif_speed: 11\n", errContains: "invalid avif_speed"},
			{name: "log_level", content: "logging:\n  level: loud\n", errContains: "invalid log level"},
			{name: "port", content: "web:\n  port: 70000\n", errContains: "invalid web port"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := LoadConfig(writeConfig(t, tt.content))
				require.Error(t, err, "LoadConfig should error")
				assert.Contains(t, err.Error(), tt.errContains, "error message should match")
			})
		}
	})
}

func TestValidateJob(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name        string
		mutate      func(c *Config)
		errContains string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "no_directory", mutate: func(c *Config) { c.Directory = "" }, errContains: "directory is required"},
		{name: "missing_directory", mutate: func(c *Config) { c.Directory = filepath.Join(dir, "nope") }, errContains: "does not exist"},
		{name: "no_source", mutate: func(c *Config) { c.SourceExtension = "." }, errContains: "source_extension is required"},
		{name: "no_target", mutate: func(c *Config) { c.TargetExtension = "" }, errContains: "target_extension is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Directory = dir
			cfg.SourceExtension = "jpg"
			cfg.TargetExtension = "png"
			tt.mutate(cfg)

			err := cfg.ValidateJob()
			if tt.errContains == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("IMAGES_ROOT", "/data/images")

	assert.Equal(t, filepath.Join(home, "pics"), ExpandPath("~/pics"))
	assert.Equal(t, "/data/images/2024", ExpandPath("$IMAGES_ROOT/2024"))
	assert.Equal(t, "", ExpandPath(""))
}

func TestLoggerOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts := cfg.LoggerOptions()
	assert.Equal(t, "info", opts.Level)
	assert.Equal(t, "imageconvert.log", opts.File)
	assert.True(t, opts.Rotation.Compress)
}
