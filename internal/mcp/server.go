// Package mcp exposes the task tools over the Model Context Protocol.
//
// The server speaks MCP over stdio and is scoped to a single account,
// resolved at startup from mcp.user_email. Calls route through the same
// registry and executor as the HTTP chat surface, so MCP clients and the
// chat model see identical tool names, schemas, and result shapes. There is
// no authentication beyond process-level trust: whoever can start the
// process acts as the configured user.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tasknest/tasknest/internal/provider"
	"github.com/tasknest/tasknest/internal/store"
	"github.com/tasknest/tasknest/internal/tools"
)

// UserStore resolves the account an MCP session acts as.
type UserStore interface {
	UserByEmail(ctx context.Context, email string) (store.User, bool, error)
}

// Server wraps the MCP SDK server around the task tool registry.
type Server struct {
	mcpServer *sdk.Server
	registry  *tools.Registry
	executor  *tools.Executor
	ownerID   uuid.UUID
	name      string
	version   string
	logger    *slog.Logger
}

// Config holds MCP server configuration.
type Config struct {
	Name     string
	Version  string
	OwnerID  uuid.UUID // the account all tool calls are scoped to
	Registry *tools.Registry
	Executor *tools.Executor
	Logger   *slog.Logger
}

// NewServer creates a new MCP server with all task tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, errors.New("server name is required")
	}
	if cfg.Version == "" {
		return nil, errors.New("server version is required")
	}
	if cfg.OwnerID == uuid.Nil {
		return nil, errors.New("owner id is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if cfg.Executor == nil {
		return nil, errors.New("tool executor is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcpServer: sdk.NewServer(&sdk.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		registry: cfg.Registry,
		executor: cfg.Executor,
		ownerID:  cfg.OwnerID,
		name:     cfg.Name,
		version:  cfg.Version,
		logger:   logger,
	}
	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the given transport. Blocks until the
// transport closes or ctx is canceled.
func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	s.logger.Info("MCP server running",
		"name", s.name,
		"version", s.version,
		"user_id", s.ownerID,
	)
	//nolint:wrapcheck // protocol errors pass through unchanged
	return s.mcpServer.Run(ctx, transport)
}

// registerTools mirrors every registry definition as an MCP tool. The
// registry's schemas are reused verbatim so MCP clients and the chat model
// validate against the same contract.
func (s *Server) registerTools() {
	for _, def := range s.registry.Definitions() {
		fn := def.Function
		tool := &sdk.Tool{
			Name:        fn.Name,
			Description: fn.Description,
			InputSchema: fn.Parameters,
		}
		sdk.AddTool(s.mcpServer, tool, s.callHandler(fn.Name))
	}
}

// callHandler bridges one MCP tool call into the shared executor. The
// executor never fails; its error results come back as IsError text so
// clients see the same messages the chat model would.
func (s *Server) callHandler(name string) func(context.Context, *sdk.CallToolRequest, map[string]any) (*sdk.CallToolResult, any, error) {
	return func(ctx context.Context, _ *sdk.CallToolRequest, args map[string]any) (*sdk.CallToolResult, any, error) {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding %s arguments: %w", name, err)
		}

		record := s.executor.Execute(ctx, s.ownerID, provider.ToolCall{
			Type: "function",
			Function: provider.FunctionCall{
				Name:      name,
				Arguments: string(raw),
			},
		})

		return &sdk.CallToolResult{
			Content: []sdk.Content{&sdk.TextContent{Text: record.Payload()}},
			IsError: isErrorResult(record.Result),
		}, nil, nil
	}
}

// isErrorResult reports whether a tool result is the executor's error shape.
func isErrorResult(result any) bool {
	m, ok := result.(map[string]any)
	if !ok {
		return false
	}
	msg, ok := m["error"].(string)
	return ok && msg != ""
}

// ResolveOwner maps mcp.user_email to the account whose tasks the server
// exposes. The account must already exist; sign up through the API first.
func ResolveOwner(ctx context.Context, users UserStore, email string) (uuid.UUID, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return uuid.Nil, errors.New("mcp.user_email is required (set TASKNEST_MCP_USER or mcp.user_email in the config file)")
	}

	user, found, err := users.UserByEmail(ctx, normalized)
	if err != nil {
		return uuid.Nil, fmt.Errorf("looking up MCP user: %w", err)
	}
	if !found {
		return uuid.Nil, fmt.Errorf("no account for %q: sign up through the API first", normalized)
	}
	return user.ID, nil
}
