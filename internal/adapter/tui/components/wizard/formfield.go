package wizard

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cryptochat/internal/adapter/tui/theme"
)

// FieldSubmitMsg carries the trimmed value when Enter is pressed.
type FieldSubmitMsg struct {
	Value string
}

// FormFieldModel is a labelled single-line input with an error line.
// An empty submission yields Default.
type FormFieldModel struct {
	Input       textinput.Model
	Label       string
	Description string
	Default     string
	ErrMsg      string
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Width = 50
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.Focus()
	return ti
}

// NewTextField creates a plain field whose placeholder is its default.
func NewTextField(label, def string) FormFieldModel {
	return FormFieldModel{Input: newInput(def), Label: label, Default: def}
}

// NewSecretField creates a masked field with no default.
func NewSecretField(label, placeholder string) FormFieldModel {
	ti := newInput(placeholder)
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	return FormFieldModel{Input: ti, Label: label}
}

func (m *FormFieldModel) SetError(msg string) { m.ErrMsg = msg }
func (m *FormFieldModel) ClearError()         { m.ErrMsg = "" }

// Value returns the trimmed input, or Default when the input is blank.
func (m FormFieldModel) Value() string {
	if v := strings.TrimSpace(m.Input.Value()); v != "" {
		return v
	}
	return m.Default
}

func (m FormFieldModel) Update(msg tea.Msg) (FormFieldModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		value := m.Value()
		return m, func() tea.Msg { return FieldSubmitMsg{Value: value} }
	}
	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

func (m FormFieldModel) View() string {
	parts := []string{theme.Bold.Render(m.Label)}
	if m.Description != "" {
		parts = append(parts, theme.TextMuted.Render(m.Description))
	}
	parts = append(parts, "", m.Input.View())
	if m.ErrMsg != "" {
		parts = append(parts, theme.TextError.Render(theme.SymbolError+" "+m.ErrMsg))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
