// ABOUTME: Tests for the MCP dispatcher covering initialize, tool listing and execution.
// ABOUTME: Validates notification handling, error payload shapes, and method routing.

package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/2389/slack-mcp-gateway/internal/slack"
	"github.com/2389/slack-mcp-gateway/internal/tools"
)

// setupTestServer creates a dispatcher whose tools talk to the given
// upstream handler.
func setupTestServer(t *testing.T, upstream http.HandlerFunc) *Server {
	t.Helper()

	if upstream == nil {
		upstream = func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected upstream call")
		}
	}

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	client, err := slack.NewClient(slack.Config{Token: "xoxb-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	registry := tools.NewRegistry(client, tools.Options{TimeBudget: 5 * time.Second})

	server, err := NewServer(Config{Registry: registry, Logger: slog.Default()})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return server
}

func makeRequest(id, method string, params any) Request {
	req := Request{JSONRPC: "2.0", Method: method}
	if id != "" {
		req.ID = json.RawMessage(id)
	}
	if params != nil {
		raw, _ := json.Marshal(params)
		req.Params = raw
	}
	return req
}

func TestNewServer_RequiresRegistry(t *testing.T) {
	if _, err := NewServer(Config{}); err == nil {
		t.Fatal("expected error for nil registry")
	}
}

func TestHandle_Initialize(t *testing.T) {
	server := setupTestServer(t, nil)

	resp := server.Handle(context.Background(), makeRequest("1", "initialize", nil))
	if resp == nil || resp.Error != nil {
		t.Fatalf("initialize failed: %+v", resp)
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if result["protocolVersion"] != latestProtocolVersion {
		t.Errorf("protocolVersion = %v, want %v", result["protocolVersion"], latestProtocolVersion)
	}

	info, ok := result["serverInfo"].(map[string]any)
	if !ok || info["name"] != ServerName {
		t.Errorf("serverInfo = %v", result["serverInfo"])
	}
}

func TestHandle_Ping(t *testing.T) {
	server := setupTestServer(t, nil)

	resp := server.Handle(context.Background(), makeRequest("7", "ping", nil))
	if resp == nil || resp.Error != nil {
		t.Fatalf("ping failed: %+v", resp)
	}
}

func TestHandle_ToolsList(t *testing.T) {
	server := setupTestServer(t, nil)

	resp := server.Handle(context.Background(), makeRequest("2", "tools/list", nil))
	if resp == nil || resp.Error != nil {
		t.Fatalf("tools/list failed: %+v", resp)
	}

	result, ok := resp.Result.(ListToolsResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if len(result.Tools) != 9 {
		t.Errorf("expected 9 tools, got %d", len(result.Tools))
	}
	for _, tool := range result.Tools {
		if tool.Name == "" || len(tool.InputSchema) == 0 {
			t.Errorf("incomplete tool info: %+v", tool)
		}
	}
}

func TestHandle_NotificationReturnsNil(t *testing.T) {
	server := setupTestServer(t, nil)

	resp := server.Handle(context.Background(), makeRequest("", "notifications/initialized", nil))
	if resp != nil {
		t.Errorf("notification should produce no response, got %+v", resp)
	}
}

func TestHandle_InvalidJSONRPCVersion(t *testing.T) {
	server := setupTestServer(t, nil)

	req := makeRequest("3", "ping", nil)
	req.JSONRPC = "1.0"

	resp := server.Handle(context.Background(), req)
	if resp == nil || resp.Error == nil || resp.Error.Code != CodeInvalidRequest {
		t.Fatalf("expected invalid request error, got %+v", resp)
	}
}

func TestHandle_MethodNotFound(t *testing.T) {
	server := setupTestServer(t, nil)

	resp := server.Handle(context.Background(), makeRequest("4", "resources/list", nil))
	if resp == nil || resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", resp)
	}
}

func TestToolsCall_MissingName(t *testing.T) {
	server := setupTestServer(t, nil)

	resp := server.Handle(context.Background(), makeRequest("5", "tools/call", CallToolParams{}))
	if resp == nil || resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", resp)
	}
}

func TestToolsCall_UnknownTool(t *testing.T) {
	server := setupTestServer(t, nil)

	resp := server.Handle(context.Background(), makeRequest("6", "tools/call", CallToolParams{Name: "slack_nuke"}))
	if resp == nil || resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", resp)
	}
}

func TestToolsCall_ValidationErrorPayload(t *testing.T) {
	server := setupTestServer(t, nil)

	params := CallToolParams{
		Name:      "slack_post_message",
		Arguments: json.RawMessage(`{"text":"no channel"}`),
	}

	resp := server.Handle(context.Background(), makeRequest("8", "tools/call", params))
	if resp == nil || resp.Error != nil {
		t.Fatalf("validation failures are tool results, not protocol errors: %+v", resp)
	}

	result, ok := resp.Result.(CallToolResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if !result.IsError {
		t.Error("expected isError result")
	}
	if len(result.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(result.Content))
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(result.Content[0].Text), &payload); err != nil {
		t.Fatalf("error payload is not JSON: %v", err)
	}
	if !strings.Contains(payload["error"], "channel_id") {
		t.Errorf("error %q should name the missing argument", payload["error"])
	}
}

func TestToolsCall_Success(t *testing.T) {
	server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "1.2"})
	})

	params := CallToolParams{
		Name:      "slack_post_message",
		Arguments: json.RawMessage(`{"channel_id":"C1","text":"hello"}`),
	}

	resp := server.Handle(context.Background(), makeRequest("9", "tools/call", params))
	if resp == nil || resp.Error != nil {
		t.Fatalf("tools/call failed: %+v", resp)
	}

	result, ok := resp.Result.(CallToolResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}
	if !strings.Contains(result.Content[0].Text, `"ok":true`) {
		t.Errorf("content should carry the upstream body, got %s", result.Content[0].Text)
	}
}

func TestToolsCall_UpstreamErrorSurfacesCode(t *testing.T) {
	server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "invalid_auth"})
	})

	params := CallToolParams{
		Name:      "slack_get_users",
		Arguments: json.RawMessage(`{"limit":10}`),
	}

	resp := server.Handle(context.Background(), makeRequest("10", "tools/call", params))
	if resp == nil || resp.Error != nil {
		t.Fatalf("upstream errors are tool results: %+v", resp)
	}

	result := resp.Result.(CallToolResult)
	if !result.IsError {
		t.Error("expected isError result")
	}
	if !strings.Contains(result.Content[0].Text, "invalid_auth") {
		t.Errorf("API errors should surface their code, got %s", result.Content[0].Text)
	}
}

func TestSupportedProtocolVersion(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"", true},
		{"2025-03-26", true},
		{"2025-11-25", true},
		{"1999-01-01", false},
	}

	for _, tt := range tests {
		if got := SupportedProtocolVersion(tt.version); got != tt.want {
			t.Errorf("SupportedProtocolVersion(%q) = %v, want %v", tt.version, got, tt.want)
		}
	}
}
