package prompt

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// styles
var (
	labelStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// Terminal prompts interactively through a short-lived bubbletea program
// per question.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

// NewTerminal prompts on stdin/stdout.
func NewTerminal() *Terminal {
	return &Terminal{in: os.Stdin, out: os.Stdout}
}

func (t *Terminal) run(m tea.Model) (tea.Model, error) {
	p := tea.NewProgram(m, tea.WithInput(t.in), tea.WithOutput(t.out))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("running prompt: %w", err)
	}
	return final, nil
}

func (t *Terminal) Ask(label, def string) (string, error) {
	final, err := t.run(newAskModel(label, def))
	if err != nil {
		return "", err
	}
	m := final.(askModel)
	if m.cancelled {
		return "", ErrCancelled
	}
	return m.Value(), nil
}

func (t *Terminal) Select(label string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("select %q: no options", label)
	}
	final, err := t.run(newSelectModel(label, options))
	if err != nil {
		return "", err
	}
	m := final.(selectModel)
	if m.cancelled {
		return "", ErrCancelled
	}
	return m.options[m.cursor], nil
}

func (t *Terminal) Confirm(label string, def bool) (bool, error) {
	final, err := t.run(newConfirmModel(label, def))
	if err != nil {
		return false, err
	}
	m := final.(confirmModel)
	if m.cancelled {
		return false, ErrCancelled
	}
	return m.value, nil
}

// askModel is a single-line text question.
type askModel struct {
	label     string
	def       string
	input     textinput.Model
	done      bool
	cancelled bool
}

func newAskModel(label, def string) askModel {
	in := textinput.New()
	in.Placeholder = def
	in.CharLimit = 256
	in.Focus()
	return askModel{label: label, def: def, input: in}
}

// Value is the trimmed answer, or the default when blank.
func (m askModel) Value() string {
	v := strings.TrimSpace(m.input.Value())
	if v == "" {
		return m.def
	}
	return v
}

func (m askModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m askModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m askModel) View() string {
	if m.done {
		return fmt.Sprintf("%s %s\n", labelStyle.Render(m.label), successStyle.Render(m.Value()))
	}
	if m.cancelled {
		return ""
	}
	return fmt.Sprintf("%s %s\n", labelStyle.Render(m.label), m.input.View())
}

// selectModel picks one option with the arrow keys.
type selectModel struct {
	label     string
	options   []string
	cursor    int
	done      bool
	cancelled bool
}

func newSelectModel(label string, options []string) selectModel {
	return selectModel{label: label, options: options}
}

func (m selectModel) Init() tea.Cmd {
	return nil
}

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.cancelled = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(m.options) - 1
	case "enter":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m selectModel) View() string {
	if m.done {
		return fmt.Sprintf("%s %s\n", labelStyle.Render(m.label), successStyle.Render(m.options[m.cursor]))
	}
	if m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render(m.label) + "\n")
	for i, opt := range m.options {
		if i == m.cursor {
			b.WriteString(highlightStyle.Render("> "+opt) + "\n")
		} else {
			b.WriteString("  " + opt + "\n")
		}
	}
	b.WriteString(dimStyle.Render("↑/↓ move • enter select • esc cancel") + "\n")
	return b.String()
}

// confirmModel is a yes/no question with a default.
type confirmModel struct {
	label     string
	value     bool
	done      bool
	cancelled bool
}

func newConfirmModel(label string, def bool) confirmModel {
	return confirmModel{label: label, value: def}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "y", "Y":
		m.value = true
		m.done = true
		return m, tea.Quit
	case "n", "N":
		m.value = false
		m.done = true
		return m, tea.Quit
	case "left", "right", "tab":
		m.value = !m.value
	case "enter":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.cancelled {
		return ""
	}
	if m.done {
		answer := "no"
		if m.value {
			answer = "yes"
		}
		return fmt.Sprintf("%s %s\n", labelStyle.Render(m.label), successStyle.Render(answer))
	}
	yes, no := "yes", "no"
	if m.value {
		yes = highlightStyle.Render("[yes]")
	} else {
		no = highlightStyle.Render("[no]")
	}
	return fmt.Sprintf("%s %s / %s\n", labelStyle.Render(m.label), yes, no)
}
