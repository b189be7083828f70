package wizard

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cryptochat/internal/adapter/tui/theme"
)

// KeyCheckModel shows the progress and outcome of an API key check.
type KeyCheckModel struct {
	Spinner  spinner.Model
	Checking bool
	Passed   bool
	ErrMsg   string
}

func NewKeyCheck() KeyCheckModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)
	return KeyCheckModel{Spinner: s}
}

// Start resets the outcome and returns the spinner's first tick.
func (m *KeyCheckModel) Start() tea.Cmd {
	*m = KeyCheckModel{Spinner: m.Spinner, Checking: true}
	return m.Spinner.Tick
}

// Finish records the outcome of a check.
func (m *KeyCheckModel) Finish(err error) {
	m.Checking = false
	m.Passed = err == nil
	m.ErrMsg = ""
	if err != nil {
		m.ErrMsg = err.Error()
	}
}

func (m *KeyCheckModel) Reset() {
	*m = KeyCheckModel{Spinner: m.Spinner}
}

func (m KeyCheckModel) Update(msg tea.Msg) (KeyCheckModel, tea.Cmd) {
	if !m.Checking {
		return m, nil
	}
	var cmd tea.Cmd
	m.Spinner, cmd = m.Spinner.Update(msg)
	return m, cmd
}

func (m KeyCheckModel) View() string {
	switch {
	case m.Checking:
		return m.Spinner.View() + " Checking API key..."
	case m.Passed:
		return theme.TextSuccess.Render(theme.SymbolSuccess + " API key accepted")
	case m.ErrMsg != "":
		return theme.TextError.Render(theme.SymbolError+" Key check failed: "+m.ErrMsg) +
			"\n" + theme.TextMuted.Render("  Press Enter to retry, Ctrl+S to keep the key anyway, Esc to go back")
	}
	return ""
}
