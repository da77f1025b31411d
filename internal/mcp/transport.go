// ABOUTME: Byte-level transports binding a dispatcher to a client connection.
// ABOUTME: StreamTransport serves one HTTP session; StdioTransport serves newline-delimited stdio.

package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
)

// MaxMessageSize is the maximum allowed size for a single JSON-RPC message (1MB).
const MaxMessageSize = 1 << 20

// ErrTransportClosed indicates the transport was disposed and can no longer
// handle messages.
var ErrTransportClosed = errors.New("transport closed")

// StreamTransport routes request bytes into a bound dispatcher and returns
// response bytes. One instance serves one HTTP session; closing it is the
// session's dispose action and is safe to repeat.
type StreamTransport struct {
	server *Server
	logger *slog.Logger
	closed atomic.Bool
}

// NewStreamTransport binds a transport to its dispatcher.
func NewStreamTransport(server *Server, logger *slog.Logger) *StreamTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamTransport{server: server, logger: logger}
}

// HandleMessage processes one JSON-RPC message. A nil response with nil
// error means the message was a notification and produced no reply.
// Malformed JSON yields an encoded parse-error frame, not a Go error; only
// a closed transport fails the call.
func (t *StreamTransport) HandleMessage(ctx context.Context, data []byte) ([]byte, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return json.Marshal(NewError(nil, CodeParseError, "invalid JSON"))
	}

	resp := t.server.Handle(ctx, req)
	if resp == nil {
		return nil, nil
	}

	out, err := json.Marshal(resp)
	if err != nil {
		t.logger.Warn("failed to encode response", "error", err)
		return json.Marshal(NewError(req.ID, CodeInternalError, "internal error"))
	}
	return out, nil
}

// Close marks the transport as disposed. Idempotent; in-flight messages
// complete, later ones fail with ErrTransportClosed.
func (t *StreamTransport) Close() error {
	t.closed.Store(true)
	return nil
}

// Closed reports whether the transport has been disposed.
func (t *StreamTransport) Closed() bool {
	return t.closed.Load()
}

// StdioTransport serves newline-delimited JSON-RPC over a reader/writer
// pair, normally stdin/stdout. The process owns exactly one instance for
// its whole lifetime; logs must go to stderr so they do not corrupt the
// protocol stream.
type StdioTransport struct {
	server *Server
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

// NewStdioTransport binds a stdio transport to its dispatcher.
func NewStdioTransport(server *Server, in io.Reader, out io.Writer, logger *slog.Logger) *StdioTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &StdioTransport{server: server, in: in, out: out, logger: logger}
}

// Run reads messages until EOF or context cancellation, writing one
// response line per request. Requests are handled sequentially in arrival
// order, which is all the ordering the transport guarantees.
func (t *StdioTransport) Run(ctx context.Context) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(t.in)
		scanner.Buffer(make([]byte, 64*1024), MaxMessageSize)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			return nil
		case line := <-lines:
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			if err := t.handleLine(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (t *StdioTransport) handleLine(ctx context.Context, line []byte) error {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return t.writeResponse(NewError(nil, CodeParseError, "invalid JSON"))
	}

	resp := t.server.Handle(ctx, req)
	if resp == nil {
		return nil
	}
	return t.writeResponse(resp)
}

func (t *StdioTransport) writeResponse(resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		t.logger.Warn("failed to encode response", "error", err)
		data, _ = json.Marshal(NewError(resp.ID, CodeInternalError, "internal error"))
	}

	if _, err := t.out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}
