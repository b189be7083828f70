package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"cryptochat/internal/adapter/tui/components"
	"cryptochat/internal/adapter/tui/uxerror"
	"cryptochat/internal/domain"
	"cryptochat/internal/usecase"
)

var askTSV bool

// tableWidth is the widest a bordered history table may get before
// it falls back to borderless rows.
const tableWidth = 120

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question and print the answer",
	Example: `  cryptochat ask "what is the price of bitcoin?"
  cryptochat ask --tsv "show me the price history of ETH-USD for 1mo"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askTSV, "tsv", false, "Print price history tables as tab-separated values")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := bootstrap(ctx, modeCLI)
	if err != nil {
		return err
	}
	defer a.close()

	question := strings.Join(args, " ")
	out, err := a.dispatcher.Handle(ctx, usecase.NewConversation(), question)
	if err != nil {
		a.log.Error("ask failed", "error", err, "code", domain.ErrorCodeOf(err))
		fmt.Fprintln(cmd.ErrOrStderr(), uxerror.Humanize(err).Render())
		return errReported
	}
	printOutcome(cmd.OutOrStdout(), out, askTSV)
	return nil
}

// printOutcome writes one turn's result in a terminal-friendly form.
func printOutcome(w io.Writer, out *usecase.Outcome, tsv bool) {
	switch out.Kind {
	case domain.OutputTable:
		if tsv || out.Series.Empty() {
			fmt.Fprintln(w, out.Series.String())
			return
		}
		fmt.Fprintln(w, components.RenderPriceTable(out.Series, tableWidth))
	case domain.OutputImage:
		if !out.Image.Rendered {
			fmt.Fprintln(w, out.Image.String())
			return
		}
		fmt.Fprintf(w, "Price History of %s saved to %s\n", out.Image.Ticker, out.Image.Path)
	default:
		fmt.Fprintln(w, out.Text)
	}
}
