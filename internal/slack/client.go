// ABOUTME: HTTP client for the Slack Web API used by gateway tools.
// ABOUTME: Surfaces rate limiting as a distinguished outcome and forwards cursors verbatim.

package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the production Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

// MaxPageSize is the largest page size Slack accepts on list endpoints.
const MaxPageSize = 200

// DefaultPageSize is used when a caller does not specify a limit.
const DefaultPageSize = 100

// ErrRateLimited indicates Slack throttled the request. Callers paginating
// through a list endpoint should stop and return what they have rather than
// treating this as a failure.
var ErrRateLimited = errors.New("slack: rate limited")

// IsRateLimited reports whether err is the distinguished rate-limit outcome.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// APIError is a non-rate-limit error reported by the Slack API (ok: false).
type APIError struct {
	Endpoint string
	Code     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack: %s failed: %s", e.Endpoint, e.Code)
}

// Config holds configuration for a Client.
type Config struct {
	// Token is the bearer token for all requests. Tokens with the "xoxp-"
	// prefix are user tokens; message posts then set as_user.
	Token string

	// BaseURL overrides the API root, mainly for tests.
	BaseURL string

	// HTTPClient overrides the underlying HTTP client.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client issues requests against the Slack Web API. It holds no mutable
// state and is safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	isUserToken bool
	logger      *slog.Logger
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("token is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       cfg.Token,
		isUserToken: strings.HasPrefix(cfg.Token, "xoxp-"),
		logger:      logger,
	}, nil
}

// ListChannelsParams are the parameters for a single conversations.list page.
type ListChannelsParams struct {
	Types           string
	ExcludeArchived bool
	Limit           int
	Cursor          string
}

// ListChannels fetches one page of conversations.list. The effective page
// size never exceeds MaxPageSize. An empty NextCursor means the final page.
func (c *Client) ListChannels(ctx context.Context, p ListChannelsParams) (*ChannelPage, error) {
	types := p.Types
	if types == "" {
		types = "public_channel,private_channel"
	}

	params := url.Values{}
	params.Set("types", types)
	params.Set("exclude_archived", strconv.FormatBool(p.ExcludeArchived))
	params.Set("limit", strconv.Itoa(clampPageSize(p.Limit)))
	if p.Cursor != "" {
		params.Set("cursor", p.Cursor)
	}

	var resp struct {
		apiEnvelope
		Channels []Channel `json:"channels"`
	}
	if err := c.get(ctx, "conversations.list", params, &resp); err != nil {
		return nil, err
	}

	return &ChannelPage{
		Channels:   resp.Channels,
		NextCursor: resp.ResponseMetadata.NextCursor,
	}, nil
}

// ListUsers fetches one page of users.list. The effective page size never
// exceeds MaxPageSize. An empty NextCursor means the final page.
func (c *Client) ListUsers(ctx context.Context, limit int, cursor string) (*UserPage, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(clampPageSize(limit)))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var resp struct {
		apiEnvelope
		Members []User `json:"members"`
	}
	if err := c.get(ctx, "users.list", params, &resp); err != nil {
		return nil, err
	}

	return &UserPage{
		Users:      resp.Members,
		NextCursor: resp.ResponseMetadata.NextCursor,
	}, nil
}

// PostMessage posts a message to a channel. The upstream response body is
// returned verbatim.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) (json.RawMessage, error) {
	body := map[string]any{
		"channel": channelID,
		"text":    text,
		"as_user": c.isUserToken,
	}
	return c.postJSON(ctx, "chat.postMessage", body)
}

// PostReply posts a reply into an existing thread. The upstream response
// body is returned verbatim.
func (c *Client) PostReply(ctx context.Context, channelID, threadTS, text string) (json.RawMessage, error) {
	body := map[string]any{
		"channel":   channelID,
		"thread_ts": threadTS,
		"text":      text,
		"as_user":   c.isUserToken,
	}
	return c.postJSON(ctx, "chat.postMessage", body)
}

// AddReaction adds an emoji reaction to a message.
func (c *Client) AddReaction(ctx context.Context, channelID, timestamp, name string) (json.RawMessage, error) {
	body := map[string]any{
		"channel":   channelID,
		"timestamp": timestamp,
		"name":      name,
	}
	return c.postJSON(ctx, "reactions.add", body)
}

// ChannelHistory fetches recent messages from a channel.
func (c *Client) ChannelHistory(ctx context.Context, channelID string, limit int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("channel", channelID)
	if limit <= 0 {
		limit = 10
	}
	params.Set("limit", strconv.Itoa(limit))
	return c.getRaw(ctx, "conversations.history", params)
}

// ThreadReplies fetches all replies in a message thread.
func (c *Client) ThreadReplies(ctx context.Context, channelID, threadTS string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("ts", threadTS)
	return c.getRaw(ctx, "conversations.replies", params)
}

// UserProfile fetches detailed profile information for a user.
func (c *Client) UserProfile(ctx context.Context, userID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("user", userID)
	params.Set("include_labels", "true")
	return c.getRaw(ctx, "users.profile.get", params)
}

// UserByEmail looks up a user by email address.
func (c *Client) UserByEmail(ctx context.Context, email string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("email", email)
	return c.getRaw(ctx, "users.lookupByEmail", params)
}

// clampPageSize bounds a requested page size to what Slack accepts.
func clampPageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// get issues a GET request to a list endpoint and decodes the envelope,
// mapping ok:false into ErrRateLimited or an APIError.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out envelopeChecker) error {
	body, err := c.do(ctx, http.MethodGet, endpoint, params, nil)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}

	return out.check(endpoint)
}

// getRaw issues a GET request and returns the upstream body verbatim.
func (c *Client) getRaw(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, endpoint, params, nil)
}

// postJSON issues a POST request with a JSON body and returns the upstream
// body verbatim.
func (c *Client) postJSON(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", endpoint, err)
	}
	return c.do(ctx, http.MethodPost, endpoint, nil, payload)
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body []byte) (json.RawMessage, error) {
	reqURL := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("slack api call",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Endpoint: endpoint, Code: "http_" + strconv.Itoa(resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", endpoint, err)
	}

	return data, nil
}
