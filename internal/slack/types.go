// ABOUTME: Wire types for Slack list endpoints and their normalized projections.
// ABOUTME: Projections carry id and display fields only, never the full upstream payload.

package slack

// apiEnvelope is the common response wrapper for Slack Web API calls.
type apiEnvelope struct {
	OK               bool             `json:"ok"`
	Error            string           `json:"error,omitempty"`
	ResponseMetadata responseMetadata `json:"response_metadata"`
}

type responseMetadata struct {
	NextCursor string `json:"next_cursor"`
}

// envelopeChecker lets typed list responses validate their envelope.
type envelopeChecker interface {
	check(endpoint string) error
}

// check maps ok:false into ErrRateLimited or an APIError.
func (e *apiEnvelope) check(endpoint string) error {
	if e.OK {
		return nil
	}
	if e.Error == "ratelimited" {
		return ErrRateLimited
	}
	code := e.Error
	if code == "" {
		code = "unknown_error"
	}
	return &APIError{Endpoint: endpoint, Code: code}
}

// Channel is a conversations.list record.
type Channel struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	IsPrivate  bool         `json:"is_private"`
	IsArchived bool         `json:"is_archived"`
	NumMembers int          `json:"num_members"`
	Topic      ChannelTopic `json:"topic"`
}

// ChannelTopic is the topic block of a channel record.
type ChannelTopic struct {
	Value string `json:"value"`
}

// ChannelPage is one page of channel records plus its continuation cursor.
type ChannelPage struct {
	Channels   []Channel
	NextCursor string
}

// User is a users.list record.
type User struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	RealName          string      `json:"real_name"`
	Deleted           bool        `json:"deleted"`
	IsBot             bool        `json:"is_bot"`
	IsRestricted      bool        `json:"is_restricted"`
	IsUltraRestricted bool        `json:"is_ultra_restricted"`
	Profile           UserProfile `json:"profile"`
}

// UserProfile is the profile block of a user record.
type UserProfile struct {
	Email       string `json:"email"`
	RealName    string `json:"real_name"`
	DisplayName string `json:"display_name"`
}

// UserPage is one page of user records plus its continuation cursor.
type UserPage struct {
	Users      []User
	NextCursor string
}

// ChannelSummary is the public projection of a channel returned by search.
type ChannelSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPrivate  bool   `json:"is_private"`
	Topic      string `json:"topic,omitempty"`
	NumMembers int    `json:"num_members"`
}

// Summarize converts a channel record to its public projection.
func (c Channel) Summarize() ChannelSummary {
	return ChannelSummary{
		ID:         c.ID,
		Name:       c.Name,
		IsPrivate:  c.IsPrivate,
		Topic:      c.Topic.Value,
		NumMembers: c.NumMembers,
	}
}

// UserSummary is the public projection of a user returned by search.
type UserSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RealName    string `json:"real_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Summarize converts a user record to its public projection.
func (u User) Summarize() UserSummary {
	realName := u.RealName
	if realName == "" {
		realName = u.Profile.RealName
	}
	return UserSummary{
		ID:          u.ID,
		Name:        u.Name,
		RealName:    realName,
		DisplayName: u.Profile.DisplayName,
		Email:       u.Profile.Email,
	}
}

// Active reports whether a user record is an addressable, live account:
// not deleted, not a bot, not restricted, and carrying an email address.
func (u User) Active() bool {
	return !u.Deleted &&
		!u.IsBot &&
		!u.IsRestricted &&
		!u.IsUltraRestricted &&
		u.Profile.Email != ""
}
