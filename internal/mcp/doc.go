// Package mcp implements the gateway's MCP (Model Context Protocol) RPC
// layer: JSON-RPC 2.0 wire types, an isolated dispatcher, and the two
// transports that carry it.
//
// # Dispatcher Isolation
//
// A Server handles initialize, ping, tools/list, and tools/call for exactly
// one client context. The HTTP gateway constructs one Server per session,
// each bound to its own tool registry (and therefore its own token-bound
// Slack client); tool declarations are shared read-only, so concurrent
// sessions can never observe each other's state.
//
// # Transports
//
//   - StreamTransport: bytes in, bytes out, for one Streamable HTTP
//     session. Closing it disposes the session binding; Close is
//     idempotent and later messages fail with ErrTransportClosed.
//   - StdioTransport: newline-delimited JSON-RPC over stdin/stdout for
//     local clients, one instance per process. Logs go to stderr.
//
// Notifications (requests without an id) are accepted and produce no
// response on either transport.
package mcp
