package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field keys attached by ForFile.
const (
	FieldFile      = "file"
	FieldOperation = "operation"
)

// Rotation holds the lumberjack limits applied to the log file.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Options configures New.
type Options struct {
	Level string
	// File receives JSON records. Empty disables file output and forces
	// console output.
	File     string
	Rotation Rotation
	Console  bool
	// ConsoleWriter defaults to stderr so records never mix with the
	// interactive output on stdout.
	ConsoleWriter io.Writer
}

// Defaults returns the options used when no configuration is loaded.
func Defaults() Options {
	return Options{
		Level: "info",
		File:  "imageconvert.log",
		Rotation: Rotation{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// New builds a JSON logger from opts.
func New(opts Options) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		return nil, errors.Errorf("parse log level: %w", err)
	}

	sinks, err := opts.sinks()
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(jsonFormatter())
	log.SetOutput(io.MultiWriter(sinks...))
	return log, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

// ForFile scopes log to one operation on one path.
func ForFile(log logrus.FieldLogger, operation, path string) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		FieldOperation: operation,
		FieldFile:      path,
	})
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	}
}

func (o Options) sinks() ([]io.Writer, error) {
	var sinks []io.Writer
	if o.File != "" {
		if err := os.MkdirAll(filepath.Dir(o.File), 0o755); err != nil {
			return nil, errors.Errorf("create log directory: %w", err)
		}
		sinks = append(sinks, &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.Rotation.MaxSizeMB,
			MaxBackups: o.Rotation.MaxBackups,
			MaxAge:     o.Rotation.MaxAgeDays,
			Compress:   o.Rotation.Compress,
		})
	}
	if o.Console || o.File == "" {
		w := o.ConsoleWriter
		if w == nil {
			w = os.Stderr
		}
		sinks = append(sinks, w)
	}
	return sinks, nil
}
