package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gitlab.com/tozd/go/errors"

	"imageconvert/internal/converter"
	"imageconvert/internal/logger"
	"imageconvert/internal/statistics"
)

// Choices offered after a successful conversion.
const (
	ChoiceDeleteSource    = "Delete original source files"
	ChoiceDeleteConverted = "Delete newly converted files"
	ChoiceKeep            = "Keep all files"
)

// Wizard walks the user through one conversion job and the optional
// cleanup that follows it.
type Wizard struct {
	prompter    Prompter
	printer     *Printer
	out         io.Writer
	logger      *logrus.Logger
	showBar     bool
	engineOpts  []converter.Option
	lastSummary statistics.Summary
}

// WizardOption configures a Wizard.
type WizardOption func(*Wizard)

// WithPrompter replaces the interactive pterm prompter.
func WithPrompter(p Prompter) WizardOption {
	return func(w *Wizard) { w.prompter = p }
}

// WithOutput sets where status lines are written.
func WithOutput(out io.Writer) WizardOption {
	return func(w *Wizard) { w.out = out }
}

// WithWizardLogger sets the logger handed to the engine.
func WithWizardLogger(l *logrus.Logger) WizardOption {
	return func(w *Wizard) { w.logger = l }
}

// WithProgressBar toggles the pterm progress bar.
func WithProgressBar(show bool) WizardOption {
	return func(w *Wizard) { w.showBar = show }
}

// WithEngineOptions appends options passed to converter.New.
func WithEngineOptions(opts ...converter.Option) WizardOption {
	return func(w *Wizard) { w.engineOpts = append(w.engineOpts, opts...) }
}

// NewWizard returns a wizard using pterm prompts on stdout.
func NewWizard(opts ...WizardOption) *Wizard {
	w := &Wizard{
		prompter: PtermPrompter{},
		out:      os.Stdout,
		logger:   logger.NewNop(),
		showBar:  true,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.printer = NewPrinter(w.out)
	return w
}

// Run asks for the job parameters, converts, and offers to delete one side
// of the result. Cancellation of ctx stops the conversion between files.
func (w *Wizard) Run(ctx context.Context) error {
	w.printer.Header()

	directory, err := w.ask("📂 Enter directory to search", isDirectory)
	if err != nil {
		return err
	}
	sourceExt, err := w.ask("📤 Enter source extension (e.g., jpg)", isExtension)
	if err != nil {
		return err
	}
	targetExt, err := w.ask("📥 Enter target extension (e.g., webp)", isExtension)
	if err != nil {
		return err
	}
	level, err := w.ask("🎚  Enter compression (1-100)", isCompression)
	if err != nil {
		return err
	}
	compression, _ := strconv.Atoi(level)

	stats := statistics.NewStatistics()
	progress := NewProgress(w.out, false, w.showBar)
	opts := append([]converter.Option{
		converter.WithLogger(w.logger),
		converter.WithObserver(stats),
		converter.WithObserver(progress),
	}, w.engineOpts...)
	engine := converter.New(directory, sourceExt, targetExt, compression, opts...)

	err = engine.Convert(ctx)
	progress.Stop()
	stats.Finalize()
	w.lastSummary = stats.Snapshot()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.printer.Error(fmt.Sprintf("Error: %v", err))
		}
		return err
	}

	w.printer.Celebrate(fmt.Sprintf("Conversion complete! %d files converted", engine.ConversionCount()))
	if err := w.printer.Summary(w.lastSummary); err != nil {
		w.logger.WithError(err).Warn("Failed to render summary")
	}

	manage, err := w.prompter.Confirm("🗑️  Would you like to manage files now?")
	if err != nil {
		return err
	}
	if !manage {
		return nil
	}
	return w.manageFiles(engine)
}

// Summary returns the statistics of the last run.
func (w *Wizard) Summary() statistics.Summary {
	return w.lastSummary
}

func (w *Wizard) manageFiles(engine *converter.Engine) error {
	choice, err := w.prompter.Select("Choose what to do with the files",
		[]string{ChoiceDeleteSource, ChoiceDeleteConverted, ChoiceKeep})
	if err != nil {
		return err
	}

	switch choice {
	case ChoiceDeleteSource:
		return w.deleteFiles(engine, converter.SourceFiles)
	case ChoiceDeleteConverted:
		return w.deleteFiles(engine, converter.ConvertedFiles)
	default:
		w.printer.Note("Keeping all files")
		return nil
	}
}

func (w *Wizard) deleteFiles(engine *converter.Engine, class converter.FileClass) error {
	ok, err := w.prompter.Confirm(fmt.Sprintf("⚠️  Confirm delete ALL %s files?", class))
	if err != nil || !ok {
		return err
	}

	success, total, err := engine.DeleteFiles(class)
	if err != nil {
		w.printer.Error(fmt.Sprintf("Deletion failed: %v", err))
		return err
	}
	w.printer.Success(fmt.Sprintf("Successfully deleted %d/%d %s files", success, total, class))
	return nil
}

// ask re-prompts until valid accepts the trimmed answer.
func (w *Wizard) ask(prompt string, valid func(string) bool) (string, error) {
	for {
		value, err := w.prompter.Text(prompt)
		if err != nil {
			return "", err
		}
		value = strings.TrimSpace(value)
		if valid(value) {
			return value, nil
		}
		w.printer.Error("Invalid input, please try again")
	}
}

func isDirectory(s string) bool {
	info, err := os.Stat(s)
	return err == nil && info.IsDir()
}

func isExtension(s string) bool {
	return converter.NormalizeExtension(s) != ""
}

func isCompression(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 1 && n <= 100
}
