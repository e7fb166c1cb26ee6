package console

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	fcolor "github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"imageconvert/internal/codec"
	"imageconvert/internal/converter"
	"imageconvert/internal/metadata"
	"imageconvert/internal/statistics"
)

var errScriptExhausted = errors.Base("script exhausted")

func TestMain(m *testing.M) {
	fcolor.NoColor = true
	pterm.DisableStyling()
	pterm.DisableOutput()
	os.Exit(m.Run())
}

// scriptedPrompter answers prompts from fixed queues and records what was asked.
type scriptedPrompter struct {
	texts    []string
	confirms []bool
	selects  []string
	asked    []string
}

func (s *scriptedPrompter) Text(prompt string) (string, error) {
	s.asked = append(s.asked, prompt)
	if len(s.texts) == 0 {
		return "", errScriptExhausted
	}
	v := s.texts[0]
	s.texts = s.texts[1:]
	return v, nil
}

func (s *scriptedPrompter) Confirm(prompt string) (bool, error) {
	s.asked = append(s.asked, prompt)
	if len(s.confirms) == 0 {
		return false, errScriptExhausted
	}
	v := s.confirms[0]
	s.confirms = s.confirms[1:]
	return v, nil
}

func (s *scriptedPrompter) Select(prompt string, options []string) (string, error) {
	s.asked = append(s.asked, prompt)
	if len(s.selects) == 0 {
		return "", errScriptExhausted
	}
	v := s.selects[0]
	s.selects = s.selects[1:]
	return v, nil
}

func fixtureDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 6, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 0xff})
	for _, n := range names {
		require.NoError(t, imaging.Save(img, filepath.Join(dir, n)), "writing fixture %s should succeed", n)
	}
	return dir
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func newTestWizard(p Prompter, out *bytes.Buffer) *Wizard {
	return NewWizard(WithPrompter(p), WithOutput(out), WithProgressBar(false))
}

func TestWizardDeleteSource(t *testing.T) {
	dir := fixtureDir(t, "a.png", "b.png")
	p := &scriptedPrompter{
		texts:    []string{dir, "png", "jpg", "80"},
		confirms: []bool{true, true},
		selects:  []string{ChoiceDeleteSource},
	}
	var out bytes.Buffer

	err := newTestWizard(p, &out).Run(context.Background())
	require.NoError(t, err, "wizard should finish cleanly")

	assert.Contains(t, out.String(), "Image Conversion Wizard")
	assert.Contains(t, out.String(), "Conversion complete! 2 files converted")
	assert.Contains(t, out.String(), "Successfully deleted 2/2 source files")
	assert.Contains(t, p.asked, "⚠️  Confirm delete ALL source files?")

	for _, n := range []string{"a", "b"} {
		assert.False(t, exists(filepath.Join(dir, n+".png")), "%s.png should be deleted", n)
		assert.True(t, exists(filepath.Join(dir, n+".jpg")), "%s.jpg should remain", n)
	}
}

func TestWizardChoices(t *testing.T) {
	tests := []struct {
		name        string
		confirms    []bool
		selects     []string
		wantOut     string
		wantSources bool
		wantTargets bool
	}{
		{
			name:        "decline_management",
			confirms:    []bool{false},
			wantSources: true,
			wantTargets: true,
		},
		{
			name:        "keep_all",
			confirms:    []bool{true},
			selects:     []string{ChoiceKeep},
			wantOut:     "Keeping all files",
			wantSources: true,
			wantTargets: true,
		},
		{
			name:        "delete_converted",
			confirms:    []bool{true, true},
			selects:     []string{ChoiceDeleteConverted},
			wantOut:     "Successfully deleted 1/1 converted files",
			wantSources: true,
			wantTargets: false,
		},
		{
			name:        "delete_not_confirmed",
			confirms:    []bool{true, false},
			selects:     []string{ChoiceDeleteSource},
			wantSources: true,
			wantTargets: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := fixtureDir(t, "photo.png")
			p := &scriptedPrompter{
				texts:    []string{dir, ".PNG", "gif", "50"},
				confirms: tt.confirms,
				selects:  tt.selects,
			}
			var out bytes.Buffer

			require.NoError(t, newTestWizard(p, &out).Run(context.Background()))
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
			assert.Equal(t, tt.wantSources, exists(filepath.Join(dir, "photo.png")), "source presence")
			assert.Equal(t, tt.wantTargets, exists(filepath.Join(dir, "photo.gif")), "target presence")
		})
	}
}

func TestWizardRepromptsInvalidInput(t *testing.T) {
	dir := fixtureDir(t, "x.png")
	p := &scriptedPrompter{
		texts: []string{
			filepath.Join(dir, "missing"), dir,
			"  ", "png",
			".", "bmp",
			"abc", "0", "101", " 42 ",
		},
		confirms: []bool{false},
	}
	var out bytes.Buffer

	w := newTestWizard(p, &out)
	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, 6, strings.Count(out.String(), "Invalid input, please try again"), "each bad answer is rejected once")
	assert.True(t, exists(filepath.Join(dir, "x.bmp")))
	assert.Equal(t, int64(1), w.Summary().FilesConverted)
}

func TestWizardConversionError(t *testing.T) {
	dir := fixtureDir(t, "x.png")
	p := &scriptedPrompter{texts: []string{dir, "png", "xyz", "80"}}
	var out bytes.Buffer

	err := newTestWizard(p, &out).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, converter.ErrUnsupportedFormat)
	assert.Contains(t, out.String(), "Error: Unsupported target format: xyz")
	assert.NotContains(t, p.asked, "🗑️  Would you like to manage files now?", "management is only offered after success")
}

func TestWizardCancelled(t *testing.T) {
	dir := fixtureDir(t, "x.png")
	p := &scriptedPrompter{texts: []string{dir, "png", "jpg", "80"}}
	var out bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestWizard(p, &out).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, out.String(), "Error:", "cancellation is reported by the caller")
}

func TestWizardPromptError(t *testing.T) {
	p := &scriptedPrompter{}
	err := newTestWizard(p, &bytes.Buffer{}).Run(context.Background())
	assert.ErrorIs(t, err, errScriptExhausted)
}

func TestProgress(t *testing.T) {
	t.Run("verbose_lines", func(t *testing.T) {
		var out bytes.Buffer
		p := NewProgress(&out, true, true)

		p.ConversionStarted(2)
		p.FileConverted(converter.Conversion{
			Source: "/imgs/a.png", Target: "/imgs/a.jpg",
			Mode: "RGBA", Flattened: true,
			SourceSize: 2048, TargetSize: 1024,
			Index: 1, Total: 2,
		})
		p.ConversionAborted("/imgs/b.png", errors.New("decode: bad data"))
		p.FileDeleted("/imgs/a.png")
		p.DeletionFailed("/imgs/c.png", errors.New("busy"))
		p.Stop()

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "✓ a.png → a.jpg (RGBA flattened) 2.0 KB → 1.0 KB", lines[0])
		assert.Equal(t, "✗ /imgs/b.png decode: bad data", lines[1])
		assert.Equal(t, "- /imgs/a.png", lines[2])
		assert.Equal(t, "✗ /imgs/c.png busy", lines[3])
	})

	t.Run("quiet_without_bar", func(t *testing.T) {
		var out bytes.Buffer
		p := NewProgress(&out, false, false)
		p.ConversionStarted(1)
		p.FileConverted(converter.Conversion{Source: "a.png", Target: "a.jpg", Index: 1, Total: 1})
		p.FileDeleted("a.png")
		p.Stop()
		assert.Empty(t, out.String())
	})

	t.Run("bar_stops_on_last_file", func(t *testing.T) {
		p := NewProgress(&bytes.Buffer{}, false, true)
		p.ConversionStarted(1)
		p.FileConverted(converter.Conversion{Index: 1, Total: 1})
		assert.Nil(t, p.bar, "bar should be released after the last file")
		p.Stop()
	})
}

func TestPrinterTables(t *testing.T) {
	var out bytes.Buffer
	pr := NewPrinter(&out)

	require.NoError(t, pr.Formats(codec.NewRegistry().Capabilities()))
	require.NoError(t, pr.Summary(statistics.Summary{TotalFilesFound: 3, FilesConverted: 3, BytesRead: 4096}))
	require.NoError(t, pr.Tags("EXIF", []metadata.Tag{{Name: "Make", Value: "Foo"}}))
	require.NoError(t, pr.Tags("exiftool", nil))

	s := out.String()
	assert.Contains(t, s, ".avif")
	assert.Contains(t, s, "WEBP")
	assert.Contains(t, s, "Converted")
	assert.Contains(t, s, "4.0 KB")
	assert.Contains(t, s, "Foo")
	assert.Contains(t, s, "(none)")
}
