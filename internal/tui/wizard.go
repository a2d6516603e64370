package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/waypoint/internal/config"
)

// Selection is the wizard's outcome: which arbiter backend to use, or none.
type Selection struct {
	Provider string
	Model    string
	APIKey   string
	Skipped  bool
}

type wizardStage int

const (
	stagePick wizardStage = iota
	stageKey
	stageDone
)

// Wizard is the first-run setup flow: pick an arbiter backend and, when the
// backend needs one, collect an API key. A key already present in the
// configured environment variable is used without asking.
type Wizard struct {
	providers []config.ProviderConfig
	cursor    int
	stage     wizardStage
	input     textinput.Model
	selection Selection
	aborted   bool
}

// NewWizard builds the wizard over the configured providers.
func NewWizard(providers []config.ProviderConfig) *Wizard {
	input := textinput.New()
	input.Placeholder = "paste your API key"
	input.EchoMode = textinput.EchoPassword
	input.CharLimit = 128
	return &Wizard{providers: providers, input: input}
}

// Init implements tea.Model.
func (w *Wizard) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return w, nil
	}

	switch keyMsg.String() {
	case "ctrl+c", "esc":
		w.aborted = true
		w.selection = Selection{Skipped: true}
		return w, tea.Quit
	}

	switch w.stage {
	case stagePick:
		return w.updatePick(keyMsg)
	case stageKey:
		return w.updateKey(keyMsg)
	}
	return w, nil
}

func (w *Wizard) updatePick(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if w.cursor > 0 {
			w.cursor--
		}
	case "down", "j":
		if w.cursor < len(w.providers) {
			w.cursor++
		}
	case "enter":
		if w.cursor == len(w.providers) {
			w.selection = Selection{Skipped: true}
			w.stage = stageDone
			return w, tea.Quit
		}
		p := w.providers[w.cursor]
		w.selection = Selection{Provider: p.Name, Model: p.Model}
		if p.APIKeyEnv == "" {
			w.stage = stageDone
			return w, tea.Quit
		}
		if key := os.Getenv(p.APIKeyEnv); key != "" {
			w.selection.APIKey = key
			w.stage = stageDone
			return w, tea.Quit
		}
		w.stage = stageKey
		w.input.Focus()
		return w, textinput.Blink
	}
	return w, nil
}

func (w *Wizard) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		key := strings.TrimSpace(w.input.Value())
		if key == "" {
			return w, nil
		}
		w.selection.APIKey = key
		w.stage = stageDone
		return w, tea.Quit
	}
	var cmd tea.Cmd
	w.input, cmd = w.input.Update(msg)
	return w, cmd
}

// View implements tea.Model.
func (w *Wizard) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Waypoint Setup") + "\n\n")

	switch w.stage {
	case stagePick:
		b.WriteString("Choose a routing backend. The backend breaks ties when\n")
		b.WriteString("several handlers could take the next turn.\n\n")
		for i, p := range w.providers {
			label := p.Name
			if p.Model != "" {
				label = fmt.Sprintf("%s (%s)", p.Name, p.Model)
			}
			b.WriteString(w.renderOption(i, label))
		}
		b.WriteString(w.renderOption(len(w.providers), "skip (rules only)"))
		b.WriteString("\n" + footerStyle.Render("up/down to move, enter to select, esc to skip"))
	case stageKey:
		env := ""
		if w.cursor < len(w.providers) {
			env = w.providers[w.cursor].APIKeyEnv
		}
		fmt.Fprintf(&b, "Enter the API key for %s", w.selection.Provider)
		if env != "" {
			fmt.Fprintf(&b, " (or set %s and restart)", env)
		}
		b.WriteString(":\n\n" + w.input.View() + "\n\n")
		b.WriteString(footerStyle.Render("enter to confirm, esc to skip"))
	case stageDone:
		b.WriteString(infoStyle.Render("Setup complete."))
	}
	return b.String() + "\n"
}

func (w *Wizard) renderOption(index int, label string) string {
	if index == w.cursor {
		return selectedStyle.Render("> "+label) + "\n"
	}
	return "  " + label + "\n"
}

// Result returns the wizard outcome after the program finishes.
func (w *Wizard) Result() Selection {
	return w.selection
}

// RunWizard runs the wizard as its own bubbletea program and returns the
// user's choice.
func RunWizard(providers []config.ProviderConfig) (Selection, error) {
	w := NewWizard(providers)
	if _, err := tea.NewProgram(w).Run(); err != nil {
		return Selection{}, fmt.Errorf("tui: setup wizard: %w", err)
	}
	return w.Result(), nil
}
