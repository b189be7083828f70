package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"cryptochat/internal/adapter/function"
	"cryptochat/internal/adapter/tui/theme"
	"cryptochat/internal/domain"
)

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List the functions the model may call",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		printFunctions(cmd.OutOrStdout(), function.Specs)
		return nil
	},
}

func printFunctions(w io.Writer, specs []domain.FunctionSpec) {
	rows := make([][]string, 0, len(specs))
	for _, s := range specs {
		rows = append(rows, []string{s.Name, parameterList(s.Parameters), s.Description})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "ARGUMENTS", "DESCRIPTION").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeader
			}
			return theme.TableCell
		})
	fmt.Fprintln(w, t.Render())
}

// parameterList summarizes a JSON schema as "ticker, amount?" where a
// trailing question mark marks an optional property.
func parameterList(schema json.RawMessage) string {
	if len(schema) == 0 {
		return "-"
	}
	var s struct {
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	if err := json.Unmarshal(schema, &s); err != nil || len(s.Properties) == 0 {
		return "-"
	}

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		ra, rb := slices.Contains(s.Required, a), slices.Contains(s.Required, b)
		if ra != rb {
			if ra {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})
	for i, name := range names {
		if !slices.Contains(s.Required, name) {
			names[i] = name + "?"
		}
	}
	return strings.Join(names, ", ")
}
