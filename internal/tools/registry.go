// ABOUTME: Per-session tool registry binding the shared tool declarations to a Slack client.
// ABOUTME: The handler table is immutable after construction; sessions never share clients.

package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/2389/slack-mcp-gateway/internal/slack"
)

// Handler executes a tool call. The returned value is JSON-serialized into
// the tool result.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool pairs a shared declaration with a session-bound handler.
type Tool struct {
	Definition
	Handler Handler
}

// Options tunes handler behavior for one registry.
type Options struct {
	// TimeBudget bounds the wall-clock time of paginated search calls.
	TimeBudget time.Duration

	// AggregateWithoutQuery makes channel listing loop across pages even
	// when no query is supplied. Off by default: the no-query listing is a
	// single cheap page fetch.
	AggregateWithoutQuery bool

	Logger *slog.Logger
}

// Registry is an immutable tool table bound to one Slack client. Each
// session constructs its own Registry from the shared declarations; the
// declarations (names, schemas) are shared by reference, the client is not.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry binds the tool catalogue to the given client.
func NewRegistry(client *slack.Client, opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handlers{
		client: client,
		opts:   opts,
		logger: logger,
	}

	byName := map[string]Handler{
		"slack_list_channels":       h.listChannels,
		"slack_post_message":        h.postMessage,
		"slack_reply_to_thread":     h.replyToThread,
		"slack_add_reaction":        h.addReaction,
		"slack_get_channel_history": h.getChannelHistory,
		"slack_get_thread_replies":  h.getThreadReplies,
		"slack_get_users":           h.getUsers,
		"slack_get_user_profile":    h.getUserProfile,
		"slack_get_user_by_email":   h.getUserByEmail,
	}

	r := &Registry{
		tools: make(map[string]Tool, len(definitions)),
		order: make([]string, 0, len(definitions)),
	}
	for _, def := range definitions {
		r.tools[def.Name] = Tool{Definition: def, Handler: byName[def.Name]}
		r.order = append(r.order, def.Name)
	}
	return r
}

// List returns the tools in catalogue order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}
