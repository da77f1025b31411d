// ABOUTME: Declarations for the nine slack_* tools exposed by the gateway.
// ABOUTME: Names, descriptions, and JSON input schemas; handlers are bound per session.

package tools

import "encoding/json"

// Definition declares a tool: its name, description, and input schema.
// Definitions are immutable and shared by reference across all sessions;
// only handler bindings are per-session.
type Definition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// definitions lists every tool the gateway exposes, in catalogue order.
var definitions = []Definition{
	{
		Name:        "slack_list_channels",
		Description: "List public channels in the workspace with pagination",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"types": {
					"type": "string",
					"description": "Comma-separated list of channel types (public_channel, private_channel, mpim, im)",
					"default": "public_channel,private_channel"
				},
				"exclude_archived": {
					"type": "boolean",
					"description": "Exclude archived channels",
					"default": true
				},
				"limit": {
					"type": "number",
					"description": "Maximum number of channels to return (default 100, max 200)",
					"default": 100
				},
				"cursor": {
					"type": "string",
					"description": "Pagination cursor for next page of results"
				},
				"query": {
					"type": "string",
					"description": "Query to filter channels by name"
				}
			}
		}`),
	},
	{
		Name:        "slack_post_message",
		Description: "Post a new message to a Slack channel",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"channel_id": {
					"type": "string",
					"description": "The ID of the channel to post to"
				},
				"text": {
					"type": "string",
					"description": "The message text to post"
				}
			},
			"required": ["channel_id", "text"]
		}`),
	},
	{
		Name:        "slack_reply_to_thread",
		Description: "Reply to a specific message thread in Slack",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"channel_id": {
					"type": "string",
					"description": "The ID of the channel containing the thread"
				},
				"thread_ts": {
					"type": "string",
					"description": "The timestamp of the parent message in the format '1234567890.123456'. Timestamps in the format without the period can be converted by adding the period such that 6 numbers come after it."
				},
				"text": {
					"type": "string",
					"description": "The reply text"
				}
			},
			"required": ["channel_id", "thread_ts", "text"]
		}`),
	},
	{
		Name:        "slack_add_reaction",
		Description: "Add a reaction emoji to a message",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"channel_id": {
					"type": "string",
					"description": "The ID of the channel containing the message"
				},
				"timestamp": {
					"type": "string",
					"description": "The timestamp of the message to react to"
				},
				"reaction": {
					"type": "string",
					"description": "The name of the emoji reaction (without ::)"
				}
			},
			"required": ["channel_id", "timestamp", "reaction"]
		}`),
	},
	{
		Name:        "slack_get_channel_history",
		Description: "Get recent messages from a channel",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"channel_id": {
					"type": "string",
					"description": "The ID of the channel"
				},
				"limit": {
					"type": "number",
					"description": "Number of messages to retrieve (default 10)",
					"default": 10
				}
			},
			"required": ["channel_id"]
		}`),
	},
	{
		Name:        "slack_get_thread_replies",
		Description: "Get all replies in a message thread",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"channel_id": {
					"type": "string",
					"description": "The ID of the channel containing the thread"
				},
				"thread_ts": {
					"type": "string",
					"description": "The timestamp of the parent message in the format '1234567890.123456'. Timestamps in the format without the period can be converted by adding the period such that 6 numbers come after it."
				}
			},
			"required": ["channel_id", "thread_ts"]
		}`),
	},
	{
		Name:        "slack_get_users",
		Description: "Get a list of all users in the workspace with their basic profile information",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"cursor": {
					"type": "string",
					"description": "Pagination cursor for next page of results"
				},
				"limit": {
					"type": "number",
					"description": "Maximum number of users to return (default 100, max 200)",
					"default": 100
				},
				"query": {
					"type": "string",
					"description": "Query to filter users by name"
				}
			}
		}`),
	},
	{
		Name:        "slack_get_user_profile",
		Description: "Get detailed profile information for a specific user",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"user_id": {
					"type": "string",
					"description": "The ID of the user"
				}
			},
			"required": ["user_id"]
		}`),
	},
	{
		Name:        "slack_get_user_by_email",
		Description: "Find a user with an email address",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"email": {
					"type": "string",
					"description": "The email address of the user"
				}
			},
			"required": ["email"]
		}`),
	},
}

// Definitions returns the shared tool declarations in catalogue order.
func Definitions() []Definition {
	return definitions
}
