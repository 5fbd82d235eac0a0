package prompt

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// New returns a FieldAsker for terminals and a LineAsker otherwise.
func New(in io.Reader, out io.Writer, interactive bool) Asker {
	if interactive {
		return NewFieldAsker(in, out)
	}
	return NewLineAsker(in, out)
}

// FieldAsker asks each question in an editable terminal field.
type FieldAsker struct {
	in  io.Reader
	out io.Writer
}

// NewFieldAsker creates an asker bound to a terminal.
func NewFieldAsker(in io.Reader, out io.Writer) *FieldAsker {
	return &FieldAsker{in: in, out: out}
}

// Ask runs one field until the operator submits or cancels it.
func (a *FieldAsker) Ask(q Question) (string, error) {
	final, err := tea.NewProgram(newField(q), tea.WithInput(a.in), tea.WithOutput(a.out)).Run()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(q.Label), err)
	}
	m := final.(fieldModel)
	if m.aborted {
		return "", ErrAborted
	}
	fmt.Fprintf(a.out, "%s%s\n", q.prompt(), m.value)
	return m.value, nil
}

type fieldModel struct {
	q       Question
	input   textinput.Model
	value   string
	invalid bool
	done    bool
	aborted bool
}

func newField(q Question) fieldModel {
	ti := textinput.New()
	ti.Placeholder = q.Placeholder
	if ti.Placeholder == "" {
		ti.Placeholder = q.Default
	}
	ti.CharLimit = 2000
	ti.Width = 60
	ti.Prompt = "> "
	ti.Focus()
	return fieldModel{q: q, input: ti}
}

func (m fieldModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m fieldModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyEnter:
			v, ok := m.q.answer(m.input.Value())
			if !ok {
				m.invalid = true
				return m, nil
			}
			m.value = v
			m.done = true
			return m, tea.Quit
		}
	}

	m.invalid = false
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m fieldModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	var b strings.Builder
	b.WriteString(labelStyle.Render(m.q.Label))
	if m.q.Default != "" {
		b.WriteString(hintStyle.Render(" (default " + m.q.Default + ")"))
	}
	b.WriteString("\n" + m.input.View() + "\n")
	if m.invalid {
		b.WriteString(errorStyle.Render("a value is required") + "\n")
	}
	b.WriteString(hintStyle.Render("enter to submit, esc to cancel") + "\n")
	return b.String()
}

type doneMsg struct{}

type spinModel struct {
	label     string
	spinner   spinner.Model
	done      bool
	cancelled bool
}

func newSpin(label string) spinModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return spinModel{label: label, spinner: s}
}

func (m spinModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.label)
}

// Spin runs fn while a spinner shows label. Ctrl+C cancels the context
// given to fn and returns ErrAborted once fn has returned.
func Spin(ctx context.Context, in io.Reader, out io.Writer, label string, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newSpin(label), tea.WithInput(in), tea.WithOutput(out))
	result := make(chan error, 1)
	go func() {
		result <- fn(ctx)
		p.Send(doneMsg{})
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		<-result
		return fmt.Errorf("running spinner: %w", err)
	}
	if final.(spinModel).cancelled {
		cancel()
		<-result
		return ErrAborted
	}
	return <-result
}
