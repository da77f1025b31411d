// ABOUTME: Unauthenticated gateway routes: liveness probe and OAuth discovery.
// ABOUTME: The discovery doc proxies Slack's OAuth2 URLs since Slack has no metadata endpoint.

package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/2389/slack-mcp-gateway/internal/mcp"
)

// oauthDiscovery is the static OpenID-style discovery document. Slack does
// not publish one, so the gateway serves Slack's OAuth2 URLs itself for
// clients that discover credentials this way.
var oauthDiscovery = map[string]any{
	"issuer":                 "https://slack.com",
	"authorization_endpoint": "https://slack.com/oauth/v2/authorize?user_scope=channels:history,channels:read,users:read,chat:write,reactions:write&",
	"token_endpoint":         "https://slack.com/api/oauth.v2.access",
	"scopes_supported": []string{
		"channels:read",
		"channels:write",
		"chat:write",
		"users:read",
		"users:read.email",
		"commands",
		"incoming-webhook",
	},
	"response_types_supported":              []string{"code"},
	"grant_types_supported":                 []string{"authorization_code"},
	"token_endpoint_auth_methods_supported": []string{"client_secret_post"},
	"revocation_endpoint":                   "https://slack.com/api/auth.revoke",
	"userinfo_endpoint":                     "https://slack.com/api/users.identity",
}

// handleHealth reports liveness. It says nothing about Slack reachability.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	g.writeJSON(w, map[string]any{
		"status":    "healthy",
		"server":    mcp.ServerName,
		"version":   mcp.ServerVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleOAuthDiscovery serves the static discovery document.
func (g *Gateway) handleOAuthDiscovery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	g.writeJSON(w, oauthDiscovery)
}

func (g *Gateway) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		g.logger.Warn("failed to write response", "error", err)
	}
}
