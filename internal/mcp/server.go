// ABOUTME: Isolated MCP dispatcher handling initialize, tools/list, tools/call, and ping.
// ABOUTME: One instance per session; the tool table is immutable after construction.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/2389/slack-mcp-gateway/internal/slack"
	"github.com/2389/slack-mcp-gateway/internal/tools"
)

// ServerName and ServerVersion identify the gateway in initialize responses
// and on the health endpoint.
const (
	ServerName    = "slack-mcp-gateway"
	ServerVersion = "1.0.0"
)

// Config holds configuration for a Server.
type Config struct {
	Registry *tools.Registry
	Logger   *slog.Logger
}

// Server is one isolated MCP dispatcher. Each session owns its own instance
// bound to that session's tool registry; instances share nothing mutable, so
// concurrent sessions never observe each other's state.
type Server struct {
	registry *tools.Registry
	logger   *slog.Logger
}

// NewServer creates a dispatcher over the given tool registry.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		registry: cfg.Registry,
		logger:   logger,
	}, nil
}

// Handle dispatches a single JSON-RPC request. Notifications return nil:
// they are accepted but produce no response.
func (s *Server) Handle(ctx context.Context, req Request) *Response {
	if req.JSONRPC != "2.0" {
		return NewError(req.ID, CodeInvalidRequest, "invalid JSON-RPC version")
	}

	if req.IsNotification() {
		s.logger.Debug("accepted notification", "method", req.Method)
		return nil
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "ping":
		return NewResult(req.ID, struct{}{})
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return NewError(req.ID, CodeMethodNotFound, "method not found")
	}
}

func (s *Server) handleInitialize(req Request) *Response {
	result := map[string]any{
		"protocolVersion": latestProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    ServerName,
			"version": ServerVersion,
		},
	}
	return NewResult(req.ID, result)
}

func (s *Server) handleToolsList(req Request) *Response {
	catalogue := s.registry.List()

	result := ListToolsResult{
		Tools: make([]ToolInfo, len(catalogue)),
	}
	for i, tool := range catalogue {
		result.Tools[i] = ToolInfo{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}
	}

	s.logger.Debug("tools/list", "count", len(result.Tools))

	return NewResult(req.ID, result)
}

func (s *Server) handleToolsCall(ctx context.Context, req Request) *Response {
	var params CallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return NewError(req.ID, CodeInvalidParams, "invalid params")
		}
	}

	if params.Name == "" {
		return NewError(req.ID, CodeInvalidParams, "tool name is required")
	}

	tool, ok := s.registry.Get(params.Name)
	if !ok {
		return NewError(req.ID, CodeInvalidParams, "tool not found")
	}

	// Request ID for log correlation
	requestID := uuid.New().String()

	s.logger.Debug("tools/call",
		"tool_name", params.Name,
		"request_id", requestID,
	)

	result, err := tool.Handler(ctx, params.Arguments)
	if err != nil {
		return NewResult(req.ID, s.toolErrorResult(params.Name, requestID, err))
	}

	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("failed to encode tool result",
			"tool_name", params.Name,
			"request_id", requestID,
			"error", err,
		)
		return NewError(req.ID, CodeInternalError, "failed to encode tool result")
	}

	s.logger.Debug("tools/call complete",
		"tool_name", params.Name,
		"request_id", requestID,
	)

	return NewResult(req.ID, CallToolResult{
		Content: []Content{{Type: "text", Text: string(payload)}},
	})
}

// toolErrorResult converts a tool execution error into a structured
// {error: string} payload. Unexpected failures get a generic message so
// internals never leak to the client.
func (s *Server) toolErrorResult(toolName, requestID string, err error) CallToolResult {
	s.logger.Warn("tool execution failed",
		"tool_name", toolName,
		"request_id", requestID,
		"error", err,
	)

	message := err.Error()

	var apiErr *slack.APIError
	switch {
	case errors.Is(err, tools.ErrMissingArgument):
		// Validation messages are safe and actionable as-is.
	case errors.As(err, &apiErr):
		message = apiErr.Error()
	case errors.Is(err, context.DeadlineExceeded):
		message = "tool execution timed out"
	case errors.Is(err, context.Canceled):
		message = "request cancelled"
	default:
		message = "tool execution failed"
	}

	payload, _ := json.Marshal(map[string]string{"error": message})
	return CallToolResult{
		Content: []Content{{Type: "text", Text: string(payload)}},
		IsError: true,
	}
}
