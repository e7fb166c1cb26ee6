// Package manifest persists a conversion ledger as YAML so that a deletion
// pass can run in a later process without rescanning the directory.
package manifest

import (
	"os"
	"time"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"imageconvert/internal/converter"
)

// Version is the manifest format version written by Save.
const Version = 1

// Manifest is the on-disk record of one conversion job.
type Manifest struct {
	Version         int               `yaml:"version"`
	Directory       string            `yaml:"directory"`
	SourceExtension string            `yaml:"source_extension"`
	TargetExtension string            `yaml:"target_extension"`
	Compression     int               `yaml:"compression"`
	CreatedAt       time.Time         `yaml:"created_at"`
	Files           []converter.Entry `yaml:"files"`
}

// FromEngine captures the job parameters and ledger of e.
func FromEngine(e *converter.Engine, createdAt time.Time) *Manifest {
	return &Manifest{
		Version:         Version,
		Directory:       e.Directory(),
		SourceExtension: e.SourceExtension(),
		TargetExtension: e.TargetExtension(),
		Compression:     e.Compression(),
		CreatedAt:       createdAt.UTC(),
		Files:           e.Ledger().Entries(),
	}
}

// Save writes m to path.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Errorf("parse manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Errorf("invalid manifest %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks the version and that every entry names both files.
func (m *Manifest) Validate() error {
	if m.Version != Version {
		return errors.Errorf("unsupported version %d", m.Version)
	}
	for i, f := range m.Files {
		if f.Source == "" || f.Target == "" {
			return errors.Errorf("entry %d: source and target are required", i)
		}
	}
	return nil
}

// Ledger rebuilds the recorded ledger.
func (m *Manifest) Ledger() *converter.Ledger {
	return converter.LedgerFromEntries(m.Files)
}

// Engine returns an engine for the recorded job, preloaded with its ledger.
func (m *Manifest) Engine(opts ...converter.Option) *converter.Engine {
	opts = append([]converter.Option{converter.WithLedger(m.Ledger())}, opts...)
	return converter.New(m.Directory, m.SourceExtension, m.TargetExtension, m.Compression, opts...)
}
