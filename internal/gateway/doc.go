// Package gateway serves MCP over Streamable HTTP.
//
// POST /mcp carries JSON-RPC messages. An initialize request mints a new
// session: the gateway resolves the Slack token (request Bearer token over
// configured token), builds an isolated dispatcher stack around it, and
// returns the session id in the Mcp-Session-Id response header. Every other
// method must present that header; ids the cache no longer knows get 404 so
// the client re-initializes. DELETE /mcp evicts a session explicitly.
//
// Each request runs under a deadline that cancels in-flight Slack calls.
// GET /health and GET /.well-known/openid-configuration are unauthenticated.
package gateway
