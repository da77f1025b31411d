// ABOUTME: Handlers for the slack_* tools, including paginated channel/user search.
// ABOUTME: Validates required arguments before any network call is made.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/slack-mcp-gateway/internal/paginate"
	"github.com/2389/slack-mcp-gateway/internal/slack"
)

// ErrMissingArgument indicates a required tool argument was absent. The
// request is rejected before any upstream call.
var ErrMissingArgument = errors.New("missing required argument")

// Argument types for the tool catalogue.

// ListChannelsArgs are the arguments for slack_list_channels.
type ListChannelsArgs struct {
	Types           string `json:"types,omitempty"`
	ExcludeArchived *bool  `json:"exclude_archived,omitempty"`
	Limit           int    `json:"limit,omitempty"`
	Cursor          string `json:"cursor,omitempty"`
	Query           string `json:"query,omitempty"`
}

// PostMessageArgs are the arguments for slack_post_message.
type PostMessageArgs struct {
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
}

// ReplyToThreadArgs are the arguments for slack_reply_to_thread.
type ReplyToThreadArgs struct {
	ChannelID string `json:"channel_id"`
	ThreadTS  string `json:"thread_ts"`
	Text      string `json:"text"`
}

// AddReactionArgs are the arguments for slack_add_reaction.
type AddReactionArgs struct {
	ChannelID string `json:"channel_id"`
	Timestamp string `json:"timestamp"`
	Reaction  string `json:"reaction"`
}

// GetChannelHistoryArgs are the arguments for slack_get_channel_history.
type GetChannelHistoryArgs struct {
	ChannelID string `json:"channel_id"`
	Limit     int    `json:"limit,omitempty"`
}

// GetThreadRepliesArgs are the arguments for slack_get_thread_replies.
type GetThreadRepliesArgs struct {
	ChannelID string `json:"channel_id"`
	ThreadTS  string `json:"thread_ts"`
}

// GetUsersArgs are the arguments for slack_get_users.
type GetUsersArgs struct {
	Cursor string `json:"cursor,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Query  string `json:"query,omitempty"`
}

// GetUserProfileArgs are the arguments for slack_get_user_profile.
type GetUserProfileArgs struct {
	UserID string `json:"user_id"`
}

// GetUserByEmailArgs are the arguments for slack_get_user_by_email.
type GetUserByEmailArgs struct {
	Email string `json:"email"`
}

// ListChannelsResult is the payload returned by slack_list_channels.
type ListChannelsResult struct {
	Channels   []slack.ChannelSummary `json:"channels"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

// GetUsersResult is the payload returned by slack_get_users.
type GetUsersResult struct {
	Members    []slack.UserSummary `json:"members"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

// handlers carries the per-session state every tool closure needs.
type handlers struct {
	client *slack.Client
	opts   Options
	logger *slog.Logger
}

func decodeArgs[T any](args json.RawMessage) (T, error) {
	var out T
	if len(args) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(args, &out); err != nil {
		return out, fmt.Errorf("decoding arguments: %w", err)
	}
	return out, nil
}

func (h *handlers) listChannels(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[ListChannelsArgs](raw)
	if err != nil {
		return nil, err
	}

	excludeArchived := true
	if args.ExcludeArchived != nil {
		excludeArchived = *args.ExcludeArchived
	}

	limit := args.Limit
	if limit <= 0 {
		limit = slack.DefaultPageSize
	}

	fetch := func(ctx context.Context, cursor string, pageLimit int) (paginate.Page[slack.Channel], error) {
		page, err := h.client.ListChannels(ctx, slack.ListChannelsParams{
			Types:           args.Types,
			ExcludeArchived: excludeArchived,
			Limit:           pageLimit,
			Cursor:          cursor,
		})
		if err != nil {
			return paginate.Page[slack.Channel]{}, err
		}
		return paginate.Page[slack.Channel]{Records: page.Channels, NextCursor: page.NextCursor}, nil
	}

	res, err := paginate.Collect(ctx, fetch, paginate.Request{
		Limit:          limit,
		Cursor:         args.Cursor,
		Budget:         h.opts.TimeBudget,
		ExactQuery:     args.Query,
		SubstringQuery: args.Query,
	}, paginate.Policy[slack.Channel, slack.ChannelSummary]{
		Key:                    func(c slack.Channel) string { return c.Name },
		Project:                slack.Channel.Summarize,
		SinglePageWithoutQuery: !h.opts.AggregateWithoutQuery,
		IsThrottle:             slack.IsRateLimited,
	})
	if err != nil {
		return nil, err
	}

	// Keep the payload shape non-nil for JSON clients.
	if res.Items == nil {
		res.Items = []slack.ChannelSummary{}
	}
	return ListChannelsResult{Channels: res.Items, NextCursor: res.NextCursor}, nil
}

func (h *handlers) getUsers(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[GetUsersArgs](raw)
	if err != nil {
		return nil, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = slack.DefaultPageSize
	}

	fetch := func(ctx context.Context, cursor string, pageLimit int) (paginate.Page[slack.User], error) {
		page, err := h.client.ListUsers(ctx, pageLimit, cursor)
		if err != nil {
			return paginate.Page[slack.User]{}, err
		}
		return paginate.Page[slack.User]{Records: page.Users, NextCursor: page.NextCursor}, nil
	}

	// User listing always aggregates across pages so the result holds only
	// active accounts, query or not.
	res, err := paginate.Collect(ctx, fetch, paginate.Request{
		Limit:          limit,
		Cursor:         args.Cursor,
		Budget:         h.opts.TimeBudget,
		ExactQuery:     args.Query,
		SubstringQuery: args.Query,
	}, paginate.Policy[slack.User, slack.UserSummary]{
		Key:        userKey,
		Keep:       slack.User.Active,
		Project:    slack.User.Summarize,
		IsThrottle: slack.IsRateLimited,
	})
	if err != nil {
		return nil, err
	}

	if res.Items == nil {
		res.Items = []slack.UserSummary{}
	}
	return GetUsersResult{Members: res.Items, NextCursor: res.NextCursor}, nil
}

// userKey is the normalized search key for a user: the username, falling
// back to the real name for accounts without one.
func userKey(u slack.User) string {
	if u.Name != "" {
		return u.Name
	}
	if u.RealName != "" {
		return u.RealName
	}
	return u.Profile.RealName
}

func (h *handlers) postMessage(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[PostMessageArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.ChannelID == "" || args.Text == "" {
		return nil, fmt.Errorf("%w: channel_id and text", ErrMissingArgument)
	}
	return h.client.PostMessage(ctx, args.ChannelID, args.Text)
}

func (h *handlers) replyToThread(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[ReplyToThreadArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.ChannelID == "" || args.ThreadTS == "" || args.Text == "" {
		return nil, fmt.Errorf("%w: channel_id, thread_ts, and text", ErrMissingArgument)
	}
	return h.client.PostReply(ctx, args.ChannelID, args.ThreadTS, args.Text)
}

func (h *handlers) addReaction(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[AddReactionArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.ChannelID == "" || args.Timestamp == "" || args.Reaction == "" {
		return nil, fmt.Errorf("%w: channel_id, timestamp, and reaction", ErrMissingArgument)
	}
	return h.client.AddReaction(ctx, args.ChannelID, args.Timestamp, args.Reaction)
}

func (h *handlers) getChannelHistory(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[GetChannelHistoryArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.ChannelID == "" {
		return nil, fmt.Errorf("%w: channel_id", ErrMissingArgument)
	}
	return h.client.ChannelHistory(ctx, args.ChannelID, args.Limit)
}

func (h *handlers) getThreadReplies(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[GetThreadRepliesArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.ChannelID == "" || args.ThreadTS == "" {
		return nil, fmt.Errorf("%w: channel_id and thread_ts", ErrMissingArgument)
	}
	return h.client.ThreadReplies(ctx, args.ChannelID, args.ThreadTS)
}

func (h *handlers) getUserProfile(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[GetUserProfileArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.UserID == "" {
		return nil, fmt.Errorf("%w: user_id", ErrMissingArgument)
	}
	return h.client.UserProfile(ctx, args.UserID)
}

func (h *handlers) getUserByEmail(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decodeArgs[GetUserByEmailArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.Email == "" {
		return nil, fmt.Errorf("%w: email", ErrMissingArgument)
	}
	return h.client.UserByEmail(ctx, args.Email)
}
