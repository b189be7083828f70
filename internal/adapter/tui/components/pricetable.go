package components

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"cryptochat/internal/adapter/tui/theme"
	"cryptochat/internal/domain"
)

// RenderPriceTable draws a price series as a bordered table with the
// Date, Open, High, Low, Close and Volume columns. An empty series renders
// the not-available line instead.
func RenderPriceTable(s domain.PriceSeries, width int) string {
	if s.Empty() {
		return theme.TextWarning.Render(s.String())
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(domain.HistoryColumns...).
		Rows(s.Rows()...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return theme.TableHeader
			case row%2 == 0:
				return theme.TableCellAlt
			default:
				return theme.TableCell
			}
		})

	caption := theme.TextMuted.Render(s.Ticker + " " + theme.SymbolBullet + " " + s.Period)
	out := t.Render()
	if lipgloss.Width(out) > width && width > 0 {
		// Too wide for the pane: drop the borders and let the terminal wrap.
		out = t.Border(lipgloss.HiddenBorder()).Render()
	}
	return caption + "\n" + out
}

// RenderImageCard shows where a chart was written, or that no data existed.
func RenderImageCard(img domain.ImageOutput, width int) string {
	maxW := theme.Clamp(width-4, 20, theme.MaxContentWidth)
	if !img.Rendered {
		return theme.ImageMissing.Render(img.String())
	}
	path := img.Path
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	body := theme.Bold.Render("Price History of "+img.Ticker) + "\n" +
		theme.TextMuted.Render("Saved to ") + TruncatePath(path, maxW-9)
	return theme.ImageCard.Render(body)
}

// TruncatePath smartly truncates a file path with ellipsis in the middle.
// e.g. "/home/user/very/deep/nested/path/file.png" -> "/home/.../path/file.png"
func TruncatePath(path string, maxLen int) string {
	if len(path) <= maxLen || maxLen < 10 {
		return path
	}

	sep := string(filepath.Separator)
	parts := strings.Split(path, sep)
	if len(parts) <= 3 {
		return path[:maxLen-1] + theme.SymbolEllipsis
	}

	head := parts[0]
	tail := parts[len(parts)-2] + sep + parts[len(parts)-1]
	result := head + sep + theme.SymbolEllipsis + sep + tail

	if len(result) > maxLen {
		return path[:maxLen-1] + theme.SymbolEllipsis
	}
	return result
}
