package converter

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"imageconvert/internal/codec"
)

// FileClass selects one side of the ledger for deletion.
type FileClass string

const (
	SourceFiles    FileClass = "source"
	ConvertedFiles FileClass = "converted"
)

// ParseFileClass accepts "source" or "converted", case-insensitively.
func ParseFileClass(s string) (FileClass, error) {
	switch c := FileClass(strings.ToLower(strings.TrimSpace(s))); c {
	case SourceFiles, ConvertedFiles:
		return c, nil
	default:
		return "", errUnknownFileClass(s)
	}
}

// Conversion describes one successfully converted file.
type Conversion struct {
	Source       string
	Target       string
	SourceFormat codec.Format
	TargetFormat codec.Format
	Mode         string
	Flattened    bool
	SourceSize   int64
	TargetSize   int64
	Duration     time.Duration
	// Index is 1-based within the run; Total is the number of matched files.
	Index int
	Total int
}

// Observer is notified of engine progress. Calls happen on the goroutine
// running Convert or DeleteFiles.
type Observer interface {
	ConversionStarted(total int)
	FileConverted(c Conversion)
	ConversionAborted(path string, err error)
	FileDeleted(path string)
	DeletionFailed(path string, err error)
}

// NopObserver implements Observer with no-ops. Embed it to handle only some events.
type NopObserver struct{}

func (NopObserver) ConversionStarted(int)           {}
func (NopObserver) FileConverted(Conversion)        {}
func (NopObserver) ConversionAborted(string, error) {}
func (NopObserver) FileDeleted(string)              {}
func (NopObserver) DeletionFailed(string, error)    {}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-file diagnostics.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver adds an observer. Observers are called in the order they were added.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithExclude skips files and directories whose slash-separated path relative
// to the root matches any of the doublestar patterns.
func WithExclude(patterns ...string) Option {
	return func(e *Engine) {
		e.exclude = append(e.exclude, patterns...)
	}
}

// WithOverwrite controls whether an existing target file may be replaced.
// Overwriting is enabled by default.
func WithOverwrite(overwrite bool) Option {
	return func(e *Engine) {
		e.overwrite = overwrite
	}
}

// WithCodec replaces the default image codec.
func WithCodec(c codec.Codec) Option {
	return func(e *Engine) {
		if c != nil {
			e.codec = c
		}
	}
}

// WithLedger starts the engine from an existing ledger, typically one loaded
// from a manifest, so DeleteFiles can run without converting first.
func WithLedger(l *Ledger) Option {
	return func(e *Engine) {
		if l != nil {
			e.ledger = l
		}
	}
}

// WithAVIFSpeed sets the AVIF encoder speed (0 slowest, 10 fastest).
func WithAVIFSpeed(speed int) Option {
	return func(e *Engine) {
		e.avifSpeed = speed
	}
}

// NormalizeExtension lowercases ext and strips surrounding space and leading dots.
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
}
