package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"

	"imageconvert/internal/logger"
)

// Config represents the main configuration structure
type Config struct {
	Directory       string           `mapstructure:"directory"`
	SourceExtension string           `mapstructure:"source_extension"`
	TargetExtension string           `mapstructure:"target_extension"`
	Compression     int              `mapstructure:"compression"`
	Conversion      ConversionConfig `mapstructure:"conversion"`
	Logging         LoggingConfig    `mapstructure:"logging"`
	Web             WebConfig        `mapstructure:"web"`
}

// ConversionConfig contains per-job conversion settings
type ConversionConfig struct {
	Overwrite bool     `mapstructure:"overwrite"`
	Exclude   []string `mapstructure:"exclude"`
	AVIFSpeed int      `mapstructure:"avif_speed"` // 0 (slowest) - 10 (fastest)
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// WebConfig contains web server settings
type WebConfig struct {
	Port int `mapstructure:"port"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Compression: 80,
		Conversion: ConversionConfig{
			Overwrite: true,
			Exclude:   []string{},
			AVIFSpeed: 6,
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "imageconvert.log",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
		Web: WebConfig{
			Port: 8080,
		},
	}
}

// LoadConfig loads configuration from file and environment variables.
// Environment variables use the IMAGECONVERT_ prefix with dots replaced by
// underscores, e.g. IMAGECONVERT_LOGGING_LEVEL.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	v := viper.New()

	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.imageconvert")
		v.AddConfigPath("/etc/imageconvert")
	}

	// Environment overrides only apply to keys viper knows about.
	setDefaults(v, config)
	v.SetEnvPrefix("IMAGECONVERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, errors.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("directory", c.Directory)
	v.SetDefault("source_extension", c.SourceExtension)
	v.SetDefault("target_extension", c.TargetExtension)
	v.SetDefault("compression", c.Compression)
	v.SetDefault("conversion.overwrite", c.Conversion.Overwrite)
	v.SetDefault("conversion.exclude", c.Conversion.Exclude)
	v.SetDefault("conversion.avif_speed", c.Conversion.AVIFSpeed)
	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.file_path", c.Logging.FilePath)
	v.SetDefault("logging.max_size", c.Logging.MaxSize)
	v.SetDefault("logging.max_backups", c.Logging.MaxBackups)
	v.SetDefault("logging.max_age", c.Logging.MaxAge)
	v.SetDefault("logging.compress", c.Logging.Compress)
	v.SetDefault("web.port", c.Web.Port)
}

// Validate normalizes extensions and checks value ranges. It does not
// require a directory or extensions; see ValidateJob.
func (c *Config) Validate() error {
	c.SourceExtension = normalizeExtension(c.SourceExtension)
	c.TargetExtension = normalizeExtension(c.TargetExtension)
	c.Directory = ExpandPath(c.Directory)

	if c.Compression < 1 || c.Compression > 100 {
		return errors.Errorf("invalid compression: %d (valid: 1-100)", c.Compression)
	}

	if c.Conversion.AVIFSpeed < 0 || c.Conversion.AVIFSpeed > 10 {
		return errors.Errorf("invalid avif_speed: %d (valid: 0-10)", c.Conversion.AVIFSpeed)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if !validLogLevels[c.Logging.Level] {
		return errors.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return errors.Errorf("invalid web port: %d", c.Web.Port)
	}

	return nil
}

// ValidateJob checks that the settings describe a runnable conversion job.
func (c *Config) ValidateJob() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Directory == "" {
		return errors.New("directory is required")
	}
	if !isValidPath(c.Directory) {
		return errors.Errorf("directory does not exist or is not accessible: %s", c.Directory)
	}
	if c.SourceExtension == "" {
		return errors.New("source_extension is required")
	}
	if c.TargetExtension == "" {
		return errors.New("target_extension is required")
	}
	return nil
}

// LoggerOptions converts the logging section for logger.New.
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level: c.Logging.Level,
		File:  c.Logging.FilePath,
		Rotation: logger.Rotation{
			MaxSizeMB:  c.Logging.MaxSize,
			MaxBackups: c.Logging.MaxBackups,
			MaxAgeDays: c.Logging.MaxAge,
			Compress:   c.Logging.Compress,
		},
	}
}

// ExpandPath expands environment variables and a leading ~ in path.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	expanded := os.ExpandEnv(path)
	if strings.HasPrefix(expanded, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			expanded = filepath.Join(home, expanded[1:])
		}
	}
	return expanded
}

func isValidPath(path string) bool {
	if path == "" {
		return false
	}
	stat, err := os.Stat(path)
	return err == nil && stat.IsDir()
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
}
