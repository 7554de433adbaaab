// Package cmd provides the tasknest command line interface.
//
// Commands:
//   - serve: HTTP API server (accounts, tasks, chat)
//   - mcp: Model Context Protocol server on stdio for editor integration
//   - migrate: apply pending database migrations
//   - version: show build information
//
// serve and mcp install SIGINT/SIGTERM handlers and shut down gracefully
// via context cancellation.
package cmd

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tasknest",
		Short: "Tasknest - multi-user task manager with a natural language assistant",
		Long: `Tasknest is a multi-user task manager with a natural language assistant.
It exposes a JSON HTTP API for accounts, tasks, and chat, plus an MCP
server so editors and agents can manage tasks over stdio.

Run 'tasknest serve' to start the API server.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMCPCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute is the entry point for the tasknest CLI.
func Execute() error {
	return newRootCmd().Execute()
}
