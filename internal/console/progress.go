package console

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"imageconvert/internal/converter"
	"imageconvert/internal/statistics"
)

// Progress is a converter.Observer that drives a terminal progress bar and,
// when verbose, prints one line per file.
type Progress struct {
	out     io.Writer
	verbose bool
	showBar bool

	bar *pterm.ProgressbarPrinter
}

var _ converter.Observer = (*Progress)(nil)

// NewProgress returns a Progress writing per-file lines to out.
func NewProgress(out io.Writer, verbose, showBar bool) *Progress {
	return &Progress{out: out, verbose: verbose, showBar: showBar}
}

func (p *Progress) ConversionStarted(total int) {
	if !p.showBar || total == 0 {
		return
	}
	bar, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle("Converting images").
		Start()
	if err != nil {
		return
	}
	p.bar = bar
}

func (p *Progress) FileConverted(c converter.Conversion) {
	if p.bar != nil {
		p.bar.Increment()
		if c.Index >= c.Total {
			p.Stop()
		}
	}
	if !p.verbose {
		return
	}
	line := fmt.Sprintf("%s %s %s %s",
		color.New(color.FgGreen).Sprint("✓"),
		filepath.Base(c.Source),
		color.New(color.Faint).Sprint("→"),
		filepath.Base(c.Target))
	if c.Flattened {
		line += color.New(color.FgYellow).Sprintf(" (%s flattened)", c.Mode)
	}
	line += color.New(color.Faint).Sprintf(" %s → %s",
		statistics.FormatBytes(c.SourceSize), statistics.FormatBytes(c.TargetSize))
	fmt.Fprintln(p.out, line)
}

func (p *Progress) ConversionAborted(path string, err error) {
	p.Stop()
	fmt.Fprintf(p.out, "%s %s %s\n",
		color.New(color.FgRed).Sprint("✗"),
		path,
		color.New(color.FgRed).Sprint(err))
}

func (p *Progress) FileDeleted(path string) {
	if p.verbose {
		fmt.Fprintf(p.out, "%s %s\n", color.New(color.FgBlue).Sprint("-"), path)
	}
}

func (p *Progress) DeletionFailed(path string, err error) {
	fmt.Fprintf(p.out, "%s %s %s\n",
		color.New(color.FgRed).Sprint("✗"),
		path,
		color.New(color.FgRed).Sprint(err))
}

// Stop removes the progress bar from the terminal if one is running.
func (p *Progress) Stop() {
	if p.bar == nil {
		return
	}
	_, _ = p.bar.Stop()
	p.bar = nil
}
