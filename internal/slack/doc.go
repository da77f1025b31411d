// Package slack is a thin client for the Slack Web API.
//
// # Overview
//
// The client covers exactly the endpoints the gateway's tools need:
// paginated list calls (conversations.list, users.list) with typed pages,
// and single-shot pass-through calls (chat.postMessage, reactions.add,
// conversations.history, conversations.replies, users.profile.get,
// users.lookupByEmail) that return the upstream body verbatim.
//
// # Rate Limiting
//
// Rate limiting is a distinguished outcome, not a generic error: both an
// HTTP 429 status and an ok:false envelope with error "ratelimited" map to
// ErrRateLimited, so paginating callers can stop gracefully and return a
// partial result. Every other ok:false envelope on a list call becomes an
// *APIError.
//
// # Cursors
//
// Continuation cursors are opaque. A cursor returned by an endpoint is only
// ever forwarded back to that same endpoint, and an empty next_cursor means
// the final page.
//
// # Concurrency
//
// A Client holds no mutable state and may be used from any number of
// goroutines. All calls take a context and abort when it is cancelled.
package slack
