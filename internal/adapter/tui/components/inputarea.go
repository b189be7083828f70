package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cryptochat/internal/adapter/tui/theme"
)

// InputSubmitMsg is sent when the user presses Enter on a non-empty input.
type InputSubmitMsg struct {
	Value string
}

// InputAreaModel wraps a textarea with slash-command completion and recall of
// earlier submissions.
type InputAreaModel struct {
	Textarea     textarea.Model
	Autocomplete AutocompleteModel
	Enabled      bool

	history []string
	recall  int // index into history while browsing; len(history) = not browsing
	width   int
}

// NewInputArea creates a three-line input with the chat prompt placeholder.
func NewInputArea() InputAreaModel {
	ta := textarea.New()
	ta.Placeholder = "What's on your mind"
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Prompt = theme.InputPrompt
	ta.FocusedStyle.Placeholder = theme.InputPlaceholder
	ta.Focus()

	return InputAreaModel{
		Textarea: ta,
		Enabled:  true,
	}
}

// SetWidth updates the textarea width.
func (m *InputAreaModel) SetWidth(w int) {
	m.width = w
	m.Textarea.SetWidth(w - 2)
	m.Autocomplete.SetWidth(w)
}

// SetEnabled enables or disables input while a turn is in flight.
func (m *InputAreaModel) SetEnabled(enabled bool) {
	m.Enabled = enabled
	if enabled {
		m.Textarea.Focus()
	} else {
		m.Textarea.Blur()
	}
}

// Reset clears the input.
func (m *InputAreaModel) Reset() {
	m.Textarea.Reset()
}

// Value returns the current input text.
func (m InputAreaModel) Value() string {
	return m.Textarea.Value()
}

// History returns earlier submissions, oldest first.
func (m InputAreaModel) History() []string {
	return m.history
}

// ParseSlashCommand extracts command and args from slash command input.
func ParseSlashCommand(input string) (cmd string, args []string, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", nil, false
	}
	parts := strings.Fields(input)
	return strings.ToLower(parts[0]), parts[1:], true
}

// Update handles key events. Enter submits; Alt+Enter inserts a newline.
// With the popup open, Tab and the arrows move through it. Otherwise Up and
// Down on a single-line input walk the submission history.
func (m InputAreaModel) Update(msg tea.Msg) (InputAreaModel, tea.Cmd) {
	if !m.Enabled {
		return m, nil
	}
	if _, ok := msg.(tea.MouseMsg); ok {
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if m.Autocomplete.Visible {
			switch keyMsg.Type {
			case tea.KeyTab, tea.KeyDown:
				m.Autocomplete.SelectNext()
				return m, nil
			case tea.KeyShiftTab, tea.KeyUp:
				m.Autocomplete.SelectPrev()
				return m, nil
			case tea.KeyEnter:
				if accepted := m.Autocomplete.Accept(); accepted != "" {
					m.Textarea.SetValue(accepted + " ")
					m.Textarea.CursorEnd()
				}
				return m, nil
			case tea.KeyEsc:
				m.Autocomplete.Hide()
				return m, nil
			}
		}

		switch keyMsg.Type {
		case tea.KeyEnter:
			if keyMsg.Alt {
				break
			}
			value := strings.TrimSpace(m.Textarea.Value())
			if value == "" {
				return m, nil
			}
			m.remember(value)
			m.Textarea.Reset()
			m.Autocomplete.Hide()
			return m, func() tea.Msg { return InputSubmitMsg{Value: value} }

		case tea.KeyUp, tea.KeyDown:
			if m.Textarea.LineCount() <= 1 && len(m.history) > 0 {
				m.browse(keyMsg.Type == tea.KeyUp)
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.Textarea, cmd = m.Textarea.Update(msg)

	value := m.Textarea.Value()
	if strings.HasPrefix(value, "/") && !strings.Contains(value, " ") {
		m.Autocomplete.SetPrefix(value)
	} else {
		m.Autocomplete.Hide()
	}

	return m, cmd
}

func (m *InputAreaModel) remember(value string) {
	if n := len(m.history); n == 0 || m.history[n-1] != value {
		m.history = append(m.history, value)
	}
	m.recall = len(m.history)
}

func (m *InputAreaModel) browse(older bool) {
	if older {
		m.recall = max(m.recall-1, 0)
	} else {
		m.recall = min(m.recall+1, len(m.history))
	}
	if m.recall == len(m.history) {
		m.Textarea.Reset()
		return
	}
	m.Textarea.SetValue(m.history[m.recall])
	m.Textarea.CursorEnd()
}

// View renders the input area with the popup above it when open.
func (m InputAreaModel) View() string {
	if popup := m.Autocomplete.View(); popup != "" {
		return popup + "\n" + m.Textarea.View()
	}
	return m.Textarea.View()
}
