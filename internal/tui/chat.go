package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ReplyMsg carries a dispatcher reply into the app.
type ReplyMsg struct {
	ConversationID string
	Text           string
}

// userStyle and botStyle color the speaker tags in the exchange log.
var (
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

type chatLine struct {
	fromUser bool
	text     string
}

// ChatApp is the Bubbletea model for the chat surface.
type ChatApp struct {
	input    textinput.Model
	lines    []chatLine
	width    int
	height   int
	quitting bool

	// onSubmit hands a typed message to the dispatcher. It runs inside a
	// tea.Cmd so a long phase run never blocks the event loop.
	onSubmit func(text string)
}

// NewChatApp creates the chat model.
func NewChatApp() *ChatApp {
	ti := textinput.New()
	ti.Placeholder = "Ask for something and press Enter..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	return &ChatApp{input: ti, width: 80, height: 24}
}

// SetSubmitHandler sets the callback invoked for each submitted message.
func (a *ChatApp) SetSubmitHandler(handler func(text string)) {
	a.onSubmit = handler
}

// Init implements tea.Model.
func (a *ChatApp) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (a *ChatApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			a.quitting = true
			return a, tea.Quit

		case "enter":
			text := strings.TrimSpace(a.input.Value())
			if text == "" {
				return a, nil
			}
			a.input.Reset()
			a.lines = append(a.lines, chatLine{fromUser: true, text: text})
			submit := a.onSubmit
			return a, func() tea.Msg {
				if submit != nil {
					submit(text)
				}
				return nil
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 6

	case ReplyMsg:
		a.lines = append(a.lines, chatLine{text: msg.Text})
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a *ChatApp) View() string {
	if a.quitting {
		return "Bye!\n"
	}

	var b strings.Builder
	if len(a.lines) == 0 {
		b.WriteString(faintStyle.Render("Type \"help\" to see what I can run for you."))
		b.WriteString("\n")
	}
	for _, line := range a.lines {
		tag := botStyle.Render("frontdesk")
		if line.fromUser {
			tag = userStyle.Render("you")
		}
		b.WriteString(tag + " " + line.text + "\n")
	}

	input := boxStyle.Width(a.width - 2).Render(promptStyle.Render("> ") + a.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, b.String(), input)
}

// Lines returns the exchange log, for tests.
func (a *ChatApp) Lines() []string {
	out := make([]string, len(a.lines))
	for i, l := range a.lines {
		out[i] = l.text
	}
	return out
}

// NewChatProgram creates the Bubbletea program for the chat surface.
func NewChatProgram() (*tea.Program, *ChatApp) {
	app := NewChatApp()
	p := tea.NewProgram(app)
	return p, app
}
