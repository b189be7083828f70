// Command cryptochat is a terminal chat assistant that answers
// cryptocurrency questions by letting a language model call market data
// functions.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cryptochat/internal/adapter/tui/chat"
	"cryptochat/internal/infra/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	flagConfig   string
	flagLogLevel string
	flagProvider string
	flagModel    string
	flagStream   string
)

// errReported marks failures that were already shown to the user.
var errReported = errors.New("reported")

var rootCmd = &cobra.Command{
	Use:           "cryptochat",
	Short:         "Crypto currency chatbot assistant",
	Long:          `Chat about crypto prices, market caps, conversions and price history in the terminal.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultPath, "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Set log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "Override llm.default_provider")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "Override the default provider's model")
	rootCmd.Flags().StringVar(&flagStream, "stream", chat.StreamNormal.String(), "Reply reveal speed (normal, fast, instant)")

	rootCmd.AddCommand(askCmd, functionsCmd, mcpCmd, doctorCmd, setupCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	speed, err := chat.ParseStreamSpeed(flagStream)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := bootstrap(ctx, modeTUI)
	if err != nil {
		return err
	}
	defer a.close()

	err = chat.Run(ctx, chat.ChatModelDeps{
		Handler:      a.dispatcher,
		Context:      ctx,
		Logger:       a.log,
		ProviderName: a.llm.DefaultLLM.Name(),
		ModelName:    a.llm.Model,
		Speed:        speed,
	})
	if err != nil {
		a.log.Error("tui exited", "error", err)
		return fmt.Errorf("tui: %w", err)
	}
	a.log.Info("cryptochat stopped")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
