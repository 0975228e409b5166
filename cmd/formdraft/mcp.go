package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/formdraft"
	"github.com/aretw0/formdraft/internal/cli"
	"github.com/aretw0/formdraft/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes drafts as MCP tools so agents can fill forms step by step.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")

		// Logs go to stderr as JSON so they never corrupt JSON-RPC on stdout.
		app, err := newApp(true)
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(cmd.Context()); err != nil {
				app.Logger.Error("Failed to flush drafts", "err", err)
			}
		}()

		srv := mcp.NewServer(app.Manager, formdraft.Version, app.Logger)

		switch transport {
		case "stdio":
			app.Logger.Info("Starting formdraft MCP server (stdio)", "forms", app.Registry.Len())
			return srv.ServeStdio()
		case "sse":
			ctx := cli.NewSignalContext(cmd.Context())
			defer ctx.Cancel()

			app.Logger.Info("Starting formdraft MCP server (SSE)", "port", cfg.Port)
			if err := srv.ServeSSE(ctx, cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			app.Logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport '%s' (supported: stdio, sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
