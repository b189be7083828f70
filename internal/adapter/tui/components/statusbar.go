package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cryptochat/internal/adapter/tui/theme"
)

// KeyHint is a single keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string // e.g. "Enter"
	Desc string // e.g. "Send"
}

// StatusBarModel renders the bottom line: key hints on the left, provider,
// model and turn status on the right.
type StatusBarModel struct {
	Hints        []KeyHint
	ProviderName string
	ModelName    string
	Turns        int    // completed turns in the current conversation
	Extra        string // transient status, e.g. "Thinking..."
	width        int
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() StatusBarModel {
	return StatusBarModel{}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single line. Trailing hints are
// dropped, and then the status text truncated, until the line fits.
func (m StatusBarModel) View() string {
	right := m.status()
	if m.width <= 0 {
		return theme.StatusBar.Render(joinHints(m.Hints) + " " + right)
	}

	inner := m.width - theme.StatusBar.GetHorizontalFrameSize()
	if inner <= 0 {
		return theme.StatusBar.Width(m.width).Render("")
	}
	right = lipgloss.NewStyle().MaxWidth(inner).Render(right)

	hints := m.Hints
	left := joinHints(hints)
	for len(hints) > 0 && lipgloss.Width(left)+1+lipgloss.Width(right) > inner {
		hints = hints[:len(hints)-1]
		left = joinHints(hints)
	}

	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if left != "" {
		gap = max(gap, 1)
	}
	return theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", max(gap, 0)) + right)
}

func joinHints(hints []KeyHint) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, theme.StatusKey.Render(h.Key)+": "+h.Desc)
	}
	return strings.Join(parts, "  "+theme.Dim.Render("|")+"  ")
}

// status is the right-hand side: provider, model, turns and transient text.
func (m StatusBarModel) status() string {
	var parts []string
	for _, p := range []string{m.ProviderName, m.ModelName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if m.Turns > 0 {
		parts = append(parts, pluralTurns(m.Turns))
	}
	right := theme.TextMuted.Render(strings.Join(parts, " "+theme.SymbolBullet+" "))

	if m.Extra != "" {
		if right != "" {
			right += "  "
		}
		right += theme.TextInfo.Render(m.Extra)
	}
	return right
}

func pluralTurns(n int) string {
	if n == 1 {
		return "1 turn"
	}
	return strconv.Itoa(n) + " turns"
}
