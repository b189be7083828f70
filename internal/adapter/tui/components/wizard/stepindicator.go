// Package wizard provides form widgets for the setup screens.
package wizard

import (
	"fmt"
	"strings"

	"cryptochat/internal/adapter/tui/theme"
)

// StepIndicatorModel renders "Step 2/5: Provider" above a progress bar.
type StepIndicatorModel struct {
	Names   []string
	Current int
	width   int
}

// NewStepIndicator creates an indicator over the given step names.
func NewStepIndicator(names ...string) StepIndicatorModel {
	return StepIndicatorModel{Names: names}
}

func (m *StepIndicatorModel) SetWidth(w int) { m.width = w }

// SetCurrent moves to step i. Out-of-range values are ignored.
func (m *StepIndicatorModel) SetCurrent(i int) {
	if i >= 0 && i < len(m.Names) {
		m.Current = i
	}
}

// Progress is the completed fraction, counting the current step as done
// only on the last step.
func (m StepIndicatorModel) Progress() float64 {
	if len(m.Names) <= 1 {
		return 1
	}
	return float64(m.Current) / float64(len(m.Names)-1)
}

func (m StepIndicatorModel) View() string {
	if len(m.Names) == 0 || m.width < 20 {
		return ""
	}

	header := theme.WizardStepActive.Render(
		fmt.Sprintf("Step %d/%d: %s", m.Current+1, len(m.Names), m.Names[m.Current]),
	)

	barWidth := max(m.width-6, 10)
	pct := m.Progress()
	filled := min(int(pct*float64(barWidth)), barWidth)

	bar := theme.ProgressFull.Render(strings.Repeat("█", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat("░", barWidth-filled))
	return header + "\n" + bar + theme.TextMuted.Render(fmt.Sprintf(" %3d%%", int(pct*100)))
}
