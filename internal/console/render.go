package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"imageconvert/internal/codec"
	"imageconvert/internal/metadata"
	"imageconvert/internal/statistics"
)

const banner = `
   ____                    _____                      __
  /  _/_ _  ___ ____ ____ / ___/__  ___ _  _____ ____/ /_
 _/ //  ' \/ _ ` + "`" + `/ _ ` + "`" + `/ -_) /__/ _ \/ _ \ |/ / -_) __/ __/
/___/_/_/_/\_,_/\_, /\__/\___/\___/_//_/___/\__/_/  \__/
               /___/
`

// Printer writes status lines in the colors and symbols used across the CLI.
type Printer struct {
	out io.Writer
}

// NewPrinter returns a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) Header() {
	fmt.Fprint(p.out, color.New(color.FgCyan).Sprint(banner))
	fmt.Fprintln(p.out, color.New(color.FgYellow).Sprint("✨ Image Conversion Wizard ✨"))
	fmt.Fprintln(p.out, color.New(color.FgCyan).Sprint(strings.Repeat("-", 40)))
}

func (p *Printer) Success(msg string) {
	fmt.Fprintf(p.out, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
}

func (p *Printer) Warning(msg string) {
	fmt.Fprintf(p.out, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
}

func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.out, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
}

func (p *Printer) Info(msg string) {
	fmt.Fprintf(p.out, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
}

func (p *Printer) Note(msg string) {
	fmt.Fprintf(p.out, "🤝 %s\n", color.New(color.FgBlue).Sprint(msg))
}

// Celebrate prints the end-of-run banner line.
func (p *Printer) Celebrate(msg string) {
	fmt.Fprintln(p.out, color.New(color.FgCyan).Sprint("\n"+strings.Repeat("=", 40)))
	fmt.Fprintf(p.out, "🎉 %s\n", color.New(color.FgYellow).Sprint(msg))
}

// Summary renders job statistics as a table.
func (p *Printer) Summary(sum statistics.Summary) error {
	data := pterm.TableData{
		{"Metric", "Value"},
		{"Matched", strconv.FormatInt(sum.TotalFilesFound, 10)},
		{"Converted", strconv.FormatInt(sum.FilesConverted, 10)},
		{"Alpha flattened", strconv.FormatInt(sum.FilesFlattened, 10)},
		{"Read", statistics.FormatBytes(sum.BytesRead)},
		{"Written", statistics.FormatBytes(sum.BytesWritten)},
		{"Ratio", fmt.Sprintf("%.1f%%", sum.CompressionRatio*100)},
		{"Duration", sum.Duration},
	}
	return p.table(data)
}

// Formats renders the codec capability table.
func (p *Printer) Formats(caps []codec.Capability) error {
	data := pterm.TableData{{"Extension", "Format", "Source", "Target"}}
	for _, c := range caps {
		data = append(data, []string{c.Extension, c.Format.String(), yesNo(c.Decode), yesNo(c.Encode)})
	}
	return p.table(data)
}

// Tags renders metadata tags under title.
func (p *Printer) Tags(title string, tags []metadata.Tag) error {
	fmt.Fprintln(p.out, color.New(color.Bold, color.FgCyan).Sprint(title))
	if len(tags) == 0 {
		fmt.Fprintln(p.out, color.New(color.Faint).Sprint("  (none)"))
		return nil
	}
	data := pterm.TableData{{"Tag", "Value"}}
	for _, t := range tags {
		data = append(data, []string{t.Name, t.Value})
	}
	return p.table(data)
}

func (p *Printer) table(data pterm.TableData) error {
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(p.out, s)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
