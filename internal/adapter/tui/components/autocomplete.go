package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cryptochat/internal/adapter/tui/theme"
)

// CommandDef describes a slash command offered in the popup.
type CommandDef struct {
	Name        string   // e.g. "/help"
	Aliases     []string // alternative spellings, e.g. "/exit"
	Description string
}

// matches reports whether prefix selects this command or one of its aliases.
func (c CommandDef) matches(prefix string) bool {
	if strings.HasPrefix(c.Name, prefix) {
		return true
	}
	for _, a := range c.Aliases {
		if strings.HasPrefix(a, prefix) {
			return true
		}
	}
	return false
}

// AutocompleteModel is the slash-command popup shown above the input.
type AutocompleteModel struct {
	Commands []CommandDef
	Filtered []CommandDef
	Selected int
	Visible  bool
	maxShow  int
	width    int
}

// NewAutocomplete creates a popup over the given commands.
func NewAutocomplete(commands []CommandDef) AutocompleteModel {
	return AutocompleteModel{Commands: commands, maxShow: 6}
}

// SetWidth updates the popup width.
func (m *AutocompleteModel) SetWidth(w int) {
	m.width = w
}

// SetPrefix refilters the commands. A bare "/" lists everything.
func (m *AutocompleteModel) SetPrefix(prefix string) {
	prefix = strings.ToLower(prefix)
	m.Filtered = m.Filtered[:0]
	for _, cmd := range m.Commands {
		if cmd.matches(prefix) {
			m.Filtered = append(m.Filtered, cmd)
		}
	}
	m.Visible = prefix != "" && len(m.Filtered) > 0
	if m.Selected >= len(m.Filtered) {
		m.Selected = 0
	}
}

// Hide closes the popup and resets the selection.
func (m *AutocompleteModel) Hide() {
	m.Visible = false
	m.Filtered = nil
	m.Selected = 0
}

// SelectNext moves the selection down, wrapping at the end.
func (m *AutocompleteModel) SelectNext() { m.move(1) }

// SelectPrev moves the selection up, wrapping at the start.
func (m *AutocompleteModel) SelectPrev() { m.move(-1) }

func (m *AutocompleteModel) move(delta int) {
	n := len(m.Filtered)
	if n == 0 {
		return
	}
	m.Selected = (m.Selected + delta + n) % n
}

// Accept returns the selected command name and hides the popup.
func (m *AutocompleteModel) Accept() string {
	if len(m.Filtered) == 0 {
		return ""
	}
	name := m.Filtered[m.Selected].Name
	m.Hide()
	return name
}

// Height returns how many lines the popup occupies, borders included.
func (m AutocompleteModel) Height() int {
	if !m.Visible {
		return 0
	}
	return min(len(m.Filtered), m.maxShow) + 2
}

// View renders the popup, or "" when hidden.
func (m AutocompleteModel) View() string {
	if !m.Visible || len(m.Filtered) == 0 {
		return ""
	}

	popupWidth := max(m.width-4, 30)
	show := m.Filtered[:min(len(m.Filtered), m.maxShow)]

	const nameW = 10
	lines := make([]string, 0, len(show))
	for i, cmd := range show {
		name := cmd.Name + strings.Repeat(" ", max(nameW-len(cmd.Name), 0))
		desc := cmd.Description
		if maxDesc := popupWidth - nameW - 4; maxDesc > 0 && len(desc) > maxDesc {
			desc = desc[:maxDesc-1] + theme.SymbolEllipsis
		}

		marker := "  "
		if i == m.Selected {
			marker = theme.TextInfo.Render(theme.SymbolArrowR + " ")
		}
		lines = append(lines, marker+name+" "+theme.TextMuted.Render(desc))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorderActive).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}
