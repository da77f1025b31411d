// ABOUTME: Tests for the stream and stdio transports.
// ABOUTME: Covers parse errors, idempotent close, notification silence, and the stdio loop.

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestStreamTransport_RoundTrip(t *testing.T) {
	server := setupTestServer(t, nil)
	transport := NewStreamTransport(server, nil)

	out, err := transport.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	if err != nil {
		t.Fatalf("HandleMessage error: %v", err)
	}

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.Error != nil {
		t.Errorf("unexpected error: %+v", resp.Error)
	}
	if string(resp.ID) != "1" {
		t.Errorf("ID = %s, want 1", resp.ID)
	}
}

func TestStreamTransport_ParseErrorFrame(t *testing.T) {
	server := setupTestServer(t, nil)
	transport := NewStreamTransport(server, nil)

	out, err := transport.HandleMessage(context.Background(), []byte(`{not json`))
	if err != nil {
		t.Fatalf("parse errors must be frames, not Go errors: %v", err)
	}

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Errorf("expected parse error frame, got %+v", resp)
	}
}

func TestStreamTransport_NotificationProducesNothing(t *testing.T) {
	server := setupTestServer(t, nil)
	transport := NewStreamTransport(server, nil)

	out, err := transport.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	if err != nil {
		t.Fatalf("HandleMessage error: %v", err)
	}
	if out != nil {
		t.Errorf("notification should produce no bytes, got %s", out)
	}
}

func TestStreamTransport_CloseIsIdempotent(t *testing.T) {
	server := setupTestServer(t, nil)
	transport := NewStreamTransport(server, nil)

	if err := transport.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := transport.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	if !transport.Closed() {
		t.Error("transport should report closed")
	}

	_, err := transport.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	if !errors.Is(err, ErrTransportClosed) {
		t.Errorf("expected ErrTransportClosed, got %v", err)
	}
}

func TestStdioTransport_ServesRequests(t *testing.T) {
	server := setupTestServer(t, nil)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		``,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	}, "\n") + "\n"

	var out strings.Builder
	transport := NewStdioTransport(server, strings.NewReader(input), &out, nil)

	if err := transport.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	var responses []Response
	for scanner.Scan() {
		var resp Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response line %q: %v", scanner.Text(), err)
		}
		responses = append(responses, resp)
	}

	// Two requests with ids, one notification, one blank line: two responses.
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if string(responses[0].ID) != "1" || string(responses[1].ID) != "2" {
		t.Errorf("responses out of order: %s, %s", responses[0].ID, responses[1].ID)
	}
}

func TestStdioTransport_MalformedLineGetsParseError(t *testing.T) {
	server := setupTestServer(t, nil)

	var out strings.Builder
	transport := NewStdioTransport(server, strings.NewReader("{bad\n"), &out, nil)

	if err := transport.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	var resp Response
	if err := json.Unmarshal([]byte(strings.TrimSpace(out.String())), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Errorf("expected parse error, got %+v", resp)
	}
}

func TestStdioTransport_StopsOnContextCancel(t *testing.T) {
	server := setupTestServer(t, nil)

	pr, pw := io.Pipe()
	defer pw.Close()

	var out strings.Builder
	transport := NewStdioTransport(server, pr, &out, nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- transport.Run(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run should return nil on cancellation, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
