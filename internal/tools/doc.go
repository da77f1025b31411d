// Package tools declares and implements the gateway's tool catalogue.
//
// The catalogue is nine slack_* tools: channel listing/search, message
// posting, thread replies, reactions, history, and user enumeration/lookup.
// Declarations (names, descriptions, JSON schemas) are immutable and shared
// across sessions; NewRegistry binds them to one session's Slack client so
// no per-session state ever leaks between sessions.
//
// Channel and user listing route through the paginate engine: a query turns
// the call into a bounded multi-page search with exact-match short-circuit,
// and user listing always aggregates so results hold only active accounts.
// The remaining tools are single-shot pass-throughs returning the upstream
// body verbatim.
package tools
