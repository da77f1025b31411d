// Package session maintains the gateway's pool of live MCP sessions.
//
// Each session binds a stream transport (and through it a token-scoped tool
// registry) to a client-visible session id. The Cache bounds the pool with
// LRU eviction, expires entries on an absolute TTL measured from creation,
// and disposes evicted sessions by closing their transports asynchronously,
// at most once each. Disposal failures are logged and never propagate.
package session
