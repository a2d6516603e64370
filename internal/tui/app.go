// Package tui is the interactive chat shell: a bubbletea program following
// the Elm architecture (model, update, view) the way the rest of the Charm
// ecosystem expects. The app owns presentation only; all routing and handler
// logic lives behind the session.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/waypoint/internal/logging"
	"github.com/kingrea/waypoint/internal/session"
	"github.com/kingrea/waypoint/internal/state"
	"github.com/kingrea/waypoint/internal/summary"
)

const turnTimeout = 60 * time.Second

type lineKind int

const (
	lineUser lineKind = iota
	lineAssistant
	lineInfo
	lineError
	lineDebug
)

type chatLine struct {
	kind lineKind
	text string
}

// turnDoneMsg carries a finished turn back into the update loop.
type turnDoneMsg struct {
	result session.TurnResult
	err    error
}

// App is the chat shell's bubbletea model.
type App struct {
	sess       *session.Session
	log        *logging.Logger
	summarizer *summary.Summarizer
	backend    string

	input    textinput.Model
	viewport viewport.Model
	lines    []chatLine

	debug bool
	busy  bool
	ready bool
	turns int
}

// NewApp builds the chat shell over a prepared session. backend names the
// configured arbiter for the status line ("rules only" when none).
func NewApp(sess *session.Session, backend string, log *logging.Logger) *App {
	input := textinput.New()
	input.Placeholder = "Describe your tech issue, or /help"
	input.CharLimit = 512
	input.Focus()

	a := &App{
		sess:       sess,
		log:        log,
		summarizer: summary.New(),
		backend:    backend,
		input:      input,
	}
	a.addLine(lineInfo, "Welcome to Waypoint tech support. Describe your issue to get started.")
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case turnDoneMsg:
		a.busy = false
		a.finishTurn(msg)
		a.refreshViewport()
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "enter":
			if a.busy {
				return a, nil
			}
			text := strings.TrimSpace(a.input.Value())
			a.input.SetValue("")
			if text == "" {
				return a, nil
			}
			if strings.HasPrefix(text, "/") {
				return a.handleCommand(text)
			}
			return a.submit(text)
		}
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) submit(text string) (tea.Model, tea.Cmd) {
	a.addLine(lineUser, text)
	a.busy = true
	a.turns++
	a.refreshViewport()

	sess := a.sess
	category := detectCategory(text)
	return a, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()
		result, err := sess.Turn(ctx, text, category)
		return turnDoneMsg{result: result, err: err}
	}
}

func (a *App) finishTurn(msg turnDoneMsg) {
	if msg.err != nil {
		a.log.Errorf("turn failed: %v", msg.err)
		a.addLine(lineError, "Something went wrong: "+msg.err.Error())
		return
	}

	result := msg.result
	if a.debug {
		for _, d := range result.Decisions {
			a.addLine(lineDebug, fmt.Sprintf("[%s] %s — %s", d.Type, d.Handler, d.Reason))
			if d.ArbitrationUsed && d.Rationale != "" {
				a.addLine(lineDebug, "  rationale: "+d.Rationale)
			}
		}
	}

	switch {
	case result.Message != "":
		a.addLine(lineAssistant, result.Message)
	case result.Ended:
		a.addLine(lineInfo, "I couldn't route that anywhere. Try rephrasing, or /clear to start over.")
	}
}

func (a *App) handleCommand(text string) (tea.Model, tea.Cmd) {
	switch strings.ToLower(text) {
	case "/help":
		a.addLine(lineInfo, strings.Join([]string{
			"/help   show this help",
			"/status backend and conversation info",
			"/debug  toggle decision traces",
			"/state  dump a summary of the conversation state",
			"/flow   show which handlers feed which",
			"/clear  reset the conversation",
			"/exit   quit",
		}, "\n"))
	case "/status":
		a.addLine(lineInfo, fmt.Sprintf("backend: %s · turns: %d · debug: %v", a.backend, a.turns, a.debug))
	case "/debug":
		a.debug = !a.debug
		a.addLine(lineInfo, fmt.Sprintf("debug mode: %v", a.debug))
	case "/state":
		a.addLine(lineDebug, a.stateSummary())
	case "/flow":
		a.addLine(lineDebug, a.dataFlow())
	case "/clear":
		a.sess.Reset()
		a.turns = 0
		a.addLine(lineInfo, "Conversation cleared.")
	case "/exit", "/quit":
		return a, tea.Quit
	default:
		a.addLine(lineError, "Unknown command: "+text+" (try /help)")
	}
	a.refreshViewport()
	return a, nil
}

func (a *App) stateSummary() string {
	st := a.sess.State()
	var lines []string
	for _, name := range []string{state.SliceRequest, state.SliceResponse, state.SliceInternal} {
		lines = append(lines, a.summarizer.Slice(name, st[name]))
	}
	for name, value := range st {
		if name == state.SliceRequest || name == state.SliceResponse || name == state.SliceInternal {
			continue
		}
		lines = append(lines, a.summarizer.Slice(name, value))
	}
	return strings.Join(lines, "\n")
}

// dataFlow renders the declared read/write dependencies between handlers,
// in registration order.
func (a *App) dataFlow() string {
	reg := a.sess.Registry()
	deps := reg.AnalyzeDataFlow()
	var lines []string
	for _, name := range reg.Handlers() {
		if upstream := deps[name]; len(upstream) > 0 {
			lines = append(lines, name+" reads output of: "+strings.Join(upstream, ", "))
		} else {
			lines = append(lines, name+" reads no handler output")
		}
	}
	return strings.Join(lines, "\n")
}

func (a *App) addLine(kind lineKind, text string) {
	a.lines = append(a.lines, chatLine{kind: kind, text: text})
}

func (a *App) resize(width, height int) {
	headerHeight := 2
	footerHeight := 3
	if !a.ready {
		a.viewport = viewport.New(width, height-headerHeight-footerHeight)
		a.ready = true
	} else {
		a.viewport.Width = width
		a.viewport.Height = height - headerHeight - footerHeight
	}
	a.input.Width = width - 4
	a.refreshViewport()
}

func (a *App) refreshViewport() {
	if !a.ready {
		return
	}
	var b strings.Builder
	for _, line := range a.lines {
		switch line.kind {
		case lineUser:
			b.WriteString(userStyle.Render("you: ") + line.text)
		case lineAssistant:
			b.WriteString(assistantStyle.Render(line.text))
		case lineInfo:
			b.WriteString(infoStyle.Render(line.text))
		case lineError:
			b.WriteString(errorStyle.Render(line.text))
		case lineDebug:
			b.WriteString(debugStyle.Render(line.text))
		}
		b.WriteString("\n\n")
	}
	a.viewport.SetContent(b.String())
	a.viewport.GotoBottom()
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "starting..."
	}
	header := titleStyle.Render("Waypoint") + footerStyle.Render("  tech support · "+a.backend)
	footer := a.input.View()
	if a.busy {
		footer = infoStyle.Render("thinking...")
	}
	return header + "\n" + a.viewport.View() + "\n" + footer + "\n" + footerStyle.Render("ctrl+c to quit · /help for commands")
}

// Run starts the chat program and blocks until the user quits.
func (a *App) Run() error {
	if _, err := tea.NewProgram(a, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
