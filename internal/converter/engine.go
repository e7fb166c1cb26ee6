package converter

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
	"gitlab.com/tozd/go/errors"

	"imageconvert/internal/codec"
	"imageconvert/internal/logger"
)

// Engine converts every file with the source extension under a directory
// tree into the target format and keeps a ledger of what it wrote.
//
// An Engine runs one job for one caller and is not safe for concurrent use.
type Engine struct {
	directory   string
	sourceExt   string
	targetExt   string
	compression int

	targetFormat codec.Format
	ledger       *Ledger

	codec     codec.Codec
	logger    *logrus.Logger
	observers []Observer
	exclude   []string
	overwrite bool
	avifSpeed int
}

// New returns an Engine for directory. Extensions are normalized: case and
// leading dots are ignored. compression is passed to encoders as quality (1-100).
func New(directory, sourceExt, targetExt string, compression int, opts ...Option) *Engine {
	e := &Engine{
		directory:   directory,
		sourceExt:   NormalizeExtension(sourceExt),
		targetExt:   NormalizeExtension(targetExt),
		compression: compression,
		ledger:      NewLedger(),
		codec:       codec.New(),
		logger:      logger.NewNop(),
		overwrite:   true,
		avifSpeed:   6,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Convert validates the directory and both formats, then converts every
// matching file. The first failing file aborts the run with a *ConversionError;
// the ledger keeps the files converted before it. ctx is checked between files.
func (e *Engine) Convert(ctx context.Context) error {
	if err := e.validateDirectory(); err != nil {
		return err
	}
	if err := e.validateFormats(); err != nil {
		return err
	}

	sources, err := e.findSources(ctx)
	if err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"directory": e.directory,
		"source":    e.sourceExt,
		"target":    e.targetExt,
		"files":     len(sources),
	}).Info("Starting conversion")
	for _, o := range e.observers {
		o.ConversionStarted(len(sources))
	}

	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			e.aborted(src, err)
			return errors.Errorf("conversion interrupted: %w", err)
		}

		conv, err := e.processFile(src)
		if err != nil {
			e.aborted(src, err)
			return err
		}
		conv.Index = i + 1
		conv.Total = len(sources)

		e.ledger.Record(conv.Source, conv.Target)
		for _, o := range e.observers {
			o.FileConverted(conv)
		}
	}

	e.logger.WithField("converted", e.ledger.Len()).Info("Conversion completed")
	return nil
}

// Scan validates the directory and the source format and returns the files
// Convert would process, without converting anything.
func (e *Engine) Scan(ctx context.Context) ([]string, error) {
	if err := e.validateDirectory(); err != nil {
		return nil, err
	}
	if _, err := e.validateSource(); err != nil {
		return nil, err
	}
	return e.findSources(ctx)
}

// SourceCount returns the number of source files converted so far.
func (e *Engine) SourceCount() int {
	return e.ledger.Len()
}

// ConversionCount returns the number of target files written so far.
func (e *Engine) ConversionCount() int {
	return e.ledger.Len()
}

// Ledger returns the engine's ledger.
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// TargetFormat returns the resolved target format. It is empty until
// Convert has validated the formats.
func (e *Engine) TargetFormat() codec.Format {
	return e.targetFormat
}

// Directory returns the root directory as given to New.
func (e *Engine) Directory() string { return e.directory }

// SourceExtension returns the normalized source extension, without a dot.
func (e *Engine) SourceExtension() string { return e.sourceExt }

// TargetExtension returns the normalized target extension, without a dot.
func (e *Engine) TargetExtension() string { return e.targetExt }

// Compression returns the quality passed to encoders.
func (e *Engine) Compression() int { return e.compression }

func (e *Engine) validateDirectory() error {
	info, err := os.Stat(e.directory)
	if err != nil {
		return &DirectoryError{Path: e.directory, Err: err}
	}
	if !info.IsDir() {
		return &DirectoryError{Path: e.directory, Err: errors.New("not a directory")}
	}
	return nil
}

func (e *Engine) validateFormats() error {
	if _, err := e.validateSource(); err != nil {
		return err
	}

	target, ok := e.codec.Lookup("." + e.targetExt)
	if !ok || !target.Encode || e.targetExt == "" {
		return &FormatError{Role: RoleTarget, Extension: e.targetExt}
	}
	e.targetFormat = target.Format
	return nil
}

func (e *Engine) validateSource() (codec.Capability, error) {
	source, ok := e.codec.Lookup("." + e.sourceExt)
	if !ok || !source.Decode || e.sourceExt == "" {
		return codec.Capability{}, &FormatError{Role: RoleSource, Extension: e.sourceExt}
	}
	return source, nil
}

func (e *Engine) validateExcludes() error {
	for _, p := range e.exclude {
		if !doublestar.ValidatePattern(p) {
			return errors.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}

// findSources walks the tree and collects matching files before any of them
// is converted, so targets written during the run are never picked up.
func (e *Engine) findSources(ctx context.Context) ([]string, error) {
	if err := e.validateExcludes(); err != nil {
		return nil, err
	}

	// WalkDir does not descend into a symlinked root, so walk its target and
	// report paths under the root as given.
	walkRoot, err := filepath.EvalSymlinks(e.directory)
	if err != nil {
		return nil, &DirectoryError{Path: e.directory, Err: err}
	}

	var files []string
	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if rel, relErr := filepath.Rel(walkRoot, path); relErr == nil {
			path = filepath.Join(e.directory, rel)
		}
		if err != nil {
			if d == nil {
				return err
			}
			e.logger.Warnf("Error accessing path %s: %v", path, err)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path != filepath.Join(e.directory, ".") && e.excluded(path) {
			logger.ForFile(e.logger, "scan", path).Debug("Excluded")
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !e.matches(d.Name()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return files, errors.Errorf("walk %s: %w", e.directory, err)
	}
	return files, nil
}

func (e *Engine) matches(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), "."+e.sourceExt)
}

func (e *Engine) excluded(path string) bool {
	if len(e.exclude) == 0 {
		return false
	}
	rel, err := filepath.Rel(e.directory, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, p := range e.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// processFile converts one file. Any failure is returned as a *ConversionError.
func (e *Engine) processFile(src string) (Conversion, error) {
	start := time.Now()
	target := e.targetPath(src)
	log := logger.ForFile(e.logger, "convert", src)

	fail := func(err error) (Conversion, error) {
		log.WithError(err).Error("Conversion failed")
		return Conversion{}, &ConversionError{Path: src, Err: err}
	}

	if !e.overwrite {
		if _, err := os.Stat(target); err == nil {
			return fail(errors.Errorf("%w: %s", ErrTargetExists, target))
		}
	}

	img, err := e.codec.Decode(src)
	if err != nil {
		return fail(err)
	}

	pixels := img.Image
	mode := codec.Mode(pixels)
	flattened := false
	if e.targetFormat == codec.JPEG && codec.HasAlpha(pixels) {
		pixels = codec.Flatten(pixels)
		flattened = true
		log.WithField("mode", mode).Debug("Dropped alpha channel")
	}

	opts := codec.EncodeOptions{
		Quality:   e.compression,
		Optimize:  true,
		AVIFSpeed: e.avifSpeed,
	}
	// Progressive output and EXIF carry-through follow the source format.
	if img.Format == codec.JPEG {
		opts.Progressive = true
		opts.EXIF = img.EXIF
	}
	if len(opts.EXIF) > 0 && !codec.CarriesEXIF(e.targetFormat) {
		log.Debugf("%s output cannot carry EXIF, dropping %d bytes", e.targetFormat, len(opts.EXIF))
	}

	size, err := e.codec.Encode(target, pixels, e.targetFormat, opts)
	if err != nil {
		return fail(err)
	}

	conv := Conversion{
		Source:       src,
		Target:       target,
		SourceFormat: img.Format,
		TargetFormat: e.targetFormat,
		Mode:         mode,
		Flattened:    flattened,
		SourceSize:   img.Size,
		TargetSize:   size,
		Duration:     time.Since(start),
	}
	log.WithFields(logrus.Fields{
		"target":      target,
		"source_size": conv.SourceSize,
		"target_size": conv.TargetSize,
	}).Debug("Converted")
	return conv, nil
}

// targetPath keeps the directory and stem of src and swaps the extension.
func (e *Engine) targetPath(src string) string {
	return filepath.Join(filepath.Dir(src), stem(filepath.Base(src))+"."+e.targetExt)
}

// stem strips the last extension from name. Leading dots do not start an
// extension, so ".jpg" is its own stem.
func stem(name string) string {
	i := strings.LastIndex(name, ".")
	if i <= 0 || strings.Trim(name[:i], ".") == "" {
		return name
	}
	return name[:i]
}

func (e *Engine) aborted(path string, err error) {
	for _, o := range e.observers {
		o.ConversionAborted(path, err)
	}
}
