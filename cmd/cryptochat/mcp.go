package main

import (
	"os"

	"github.com/spf13/cobra"

	"cryptochat/internal/adapter/function"
	"cryptochat/internal/adapter/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the market functions as MCP tools over stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout so other MCP
clients can call the market data functions directly. No model credential
is needed in this mode.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx, modeMCP)
		if err != nil {
			return err
		}
		defer a.close()

		srv := mcpserver.New(mcpserver.Deps{
			Functions: a.functions,
			Arguments: function.ArgumentsFor,
			Version:   version,
			Logger:    a.log,
		})
		if err := srv.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
			return err
		}
		a.log.Info("mcp server stopped")
		return nil
	},
}
