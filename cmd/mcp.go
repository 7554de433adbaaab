package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/tasknest/tasknest/internal/app"
	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio (for Claude Desktop, Cursor, and other MCP clients)",
		Long: `Start the Model Context Protocol server on stdio.

The server exposes the task tools for a single account, resolved from
mcp.user_email in the config file (or TASKNEST_MCP_USER). The account
must already exist; sign up through the HTTP API first.

Logs go to stderr so stdout stays clean for the protocol stream.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP()
		},
	}
}

// runMCP initializes the application and runs the MCP server on stdio
// until the client disconnects or SIGINT/SIGTERM.
func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	ownerID, err := mcp.ResolveOwner(ctx, a.Store, cfg.MCP.UserEmail)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(mcp.Config{
		Name:     "tasknest",
		Version:  Version,
		OwnerID:  ownerID,
		Registry: a.Registry,
		Executor: a.Executor,
		Logger:   a.Logger.With("component", "mcp"),
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	if err := server.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	a.Logger.Info("MCP server shut down gracefully")
	return nil
}
