package console

import (
	"github.com/pterm/pterm"
)

// Prompter asks the user for input. The wizard only talks to the terminal
// through it, so a scripted implementation can drive it in tests.
type Prompter interface {
	Text(prompt string) (string, error)
	Confirm(prompt string) (bool, error)
	Select(prompt string, options []string) (string, error)
}

// PtermPrompter implements Prompter with pterm's interactive printers.
type PtermPrompter struct{}

func (PtermPrompter) Text(prompt string) (string, error) {
	return pterm.DefaultInteractiveTextInput.Show(prompt)
}

func (PtermPrompter) Confirm(prompt string) (bool, error) {
	return pterm.DefaultInteractiveConfirm.Show(prompt)
}

func (PtermPrompter) Select(prompt string, options []string) (string, error) {
	return pterm.DefaultInteractiveSelect.WithOptions(options).Show(prompt)
}
