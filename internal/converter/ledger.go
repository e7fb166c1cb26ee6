package converter

import (
	"gitlab.com/tozd/go/errors"
)

// Entry is one ledger row: a source file and the target it was converted to.
type Entry struct {
	Source string `yaml:"source" json:"source"`
	Target string `yaml:"target" json:"target"`
}

// Ledger records successful conversions as two lockstep path lists.
// It is append-only and not safe for concurrent use.
type Ledger struct {
	sources []string
	targets []string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// LedgerFromEntries rebuilds a ledger from previously recorded entries.
func LedgerFromEntries(entries []Entry) *Ledger {
	l := &Ledger{
		sources: make([]string, 0, len(entries)),
		targets: make([]string, 0, len(entries)),
	}
	for _, en := range entries {
		l.Record(en.Source, en.Target)
	}
	return l
}

// Record appends one conversion.
func (l *Ledger) Record(source, target string) {
	l.sources = append(l.sources, source)
	l.targets = append(l.targets, target)
}

// Len returns the number of recorded conversions.
func (l *Ledger) Len() int {
	return len(l.sources)
}

// Sources returns a copy of the recorded source paths, in conversion order.
func (l *Ledger) Sources() []string {
	return append([]string(nil), l.sources...)
}

// Targets returns a copy of the recorded target paths, in conversion order.
func (l *Ledger) Targets() []string {
	return append([]string(nil), l.targets...)
}

// Paths returns the path list for class.
func (l *Ledger) Paths(class FileClass) ([]string, error) {
	switch class {
	case SourceFiles:
		return l.Sources(), nil
	case ConvertedFiles:
		return l.Targets(), nil
	default:
		return nil, errUnknownFileClass(string(class))
	}
}

// Entries returns the ledger as source/target pairs.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, len(l.sources))
	for i := range l.sources {
		out[i] = Entry{Source: l.sources[i], Target: l.targets[i]}
	}
	return out
}

func errUnknownFileClass(s string) error {
	return errors.Errorf("unknown file class %q (want %q or %q)", s, SourceFiles, ConvertedFiles)
}
