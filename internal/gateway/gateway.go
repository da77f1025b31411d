// ABOUTME: HTTP gateway exposing the Streamable HTTP MCP endpoint with per-session isolation.
// ABOUTME: Manages the session cache, health and OAuth discovery routes, and server lifecycle.

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/2389/slack-mcp-gateway/internal/config"
	"github.com/2389/slack-mcp-gateway/internal/mcp"
	"github.com/2389/slack-mcp-gateway/internal/session"
	"github.com/2389/slack-mcp-gateway/internal/slack"
	"github.com/2389/slack-mcp-gateway/internal/tools"
)

// shutdownTimeout bounds graceful HTTP shutdown once the run context ends.
const shutdownTimeout = 5 * time.Second

// errUnknownSession marks a session id the cache has never seen or has
// already expired. The client must re-initialize.
var errUnknownSession = errors.New("unknown session")

// Gateway serves the MCP endpoint over Streamable HTTP. Each session gets
// its own dispatcher bound to its own token-scoped Slack client, so
// concurrent clients never share request state.
type Gateway struct {
	config     *config.Config
	logger     *slog.Logger
	sessions   *session.Cache
	httpServer *http.Server
}

// New creates a gateway with its session cache and routes wired.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gateway{
		config: cfg,
		logger: logger.With("component", "gateway"),
		sessions: session.New(session.Config{
			MaxEntries: cfg.Session.MaxEntries,
			TTL:        cfg.Session.TTL,
			Logger:     logger.With("component", "sessions"),
		}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", g.handleMCP)
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/.well-known/openid-configuration", g.handleOAuthDiscovery)

	g.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return g, nil
}

// Handler exposes the gateway's route table, mainly for tests.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.httpServer.Addr, err)
	}

	g.logger.Info("gateway listening",
		"addr", ln.Addr().String(),
		"endpoint", "/mcp",
	)

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		return g.shutdown()
	})

	return eg.Wait()
}

// shutdown drains the HTTP server and tears down all sessions. Uses a fresh
// context since the run context is already canceled by the time we get here.
func (g *Gateway) shutdown() error {
	g.logger.Info("shutting down gateway")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var result *multierror.Error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("http shutdown: %w", err))
	}
	g.sessions.Teardown()
	return result.ErrorOrNil()
}

// handleMCP is the single MCP endpoint supporting POST and DELETE per the
// Streamable HTTP transport. Server-initiated SSE streams are not supported.
func (g *Gateway) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		g.handlePost(w, r)
	case http.MethodDelete:
		g.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handlePost routes one JSON-RPC message to its session's transport.
// initialize creates the session and binds its token for life; every other
// method requires a live Mcp-Session-Id.
func (g *Gateway) handlePost(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	protoVersion := r.Header.Get("Mcp-Protocol-Version")

	body, err := io.ReadAll(io.LimitReader(r.Body, mcp.MaxMessageSize+1))
	if err != nil {
		g.sendError(w, nil, mcp.CodeParseError, "failed to read request body")
		return
	}
	if len(body) > mcp.MaxMessageSize {
		g.sendError(w, nil, mcp.CodeInvalidRequest, "request body too large")
		return
	}

	var probe struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		g.sendError(w, nil, mcp.CodeParseError, "invalid JSON")
		return
	}
	isInitialize := probe.Method == "initialize"

	if !isInitialize && !mcp.SupportedProtocolVersion(protoVersion) {
		http.Error(w, "Bad Request: unsupported Mcp-Protocol-Version", http.StatusBadRequest)
		return
	}

	var sess *session.Session
	if isInitialize {
		token := g.resolveToken(r)
		if token == "" {
			http.Error(w, "Unauthorized: no Slack token provided", http.StatusUnauthorized)
			return
		}

		sessionID = uuid.New().String()
		sess, err = g.sessions.GetOrCreate(sessionID, func() (*session.Session, error) {
			return g.newSession(token)
		})
		if err != nil {
			g.logger.Error("failed to create session", "error", err)
			g.sendError(w, nil, mcp.CodeInternalError, "failed to create session")
			return
		}

		g.logger.Info("session created", "session_id", sessionID)
		w.Header().Set("Mcp-Session-Id", sessionID)
	} else {
		if sessionID == "" {
			http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
			return
		}
		sess, err = g.sessions.GetOrCreate(sessionID, func() (*session.Session, error) {
			return nil, errUnknownSession
		})
		if err != nil {
			// Expired or never existed: the client must re-initialize.
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
	}

	// The deadline cancels in-flight upstream calls, it does not just cap
	// the wait. The transport turns the cancellation into a single error
	// frame, so exactly one write ever reaches the client.
	ctx, cancel := context.WithTimeout(r.Context(), g.config.Request.Timeout)
	defer cancel()

	out, err := sess.Transport.HandleMessage(ctx, body)
	if err != nil {
		if errors.Is(err, mcp.ErrTransportClosed) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		g.logger.Error("transport failure", "session_id", sessionID, "error", err)
		g.sendError(w, nil, mcp.CodeInternalError, "internal server error")
		return
	}

	// Notifications are accepted with no body.
	if out == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}

// handleDelete terminates a session explicitly.
func (g *Gateway) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
		return
	}

	if !g.sessions.Evict(sessionID) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	g.logger.Info("session terminated", "session_id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// resolveToken picks the Slack token for a new session: a Bearer token on
// the initialize request wins, otherwise the configured token. The choice
// is frozen into the session's client for its whole lifetime.
func (g *Gateway) resolveToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok && token != "" {
		return token
	}
	return g.config.Slack.Token
}

// newSession builds the isolated per-session stack: Slack client, tool
// registry, dispatcher, and stream transport.
func (g *Gateway) newSession(token string) (*session.Session, error) {
	client, err := slack.NewClient(slack.Config{
		Token:   token,
		BaseURL: g.config.Slack.BaseURL,
		Logger:  g.logger.With("component", "slack"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating slack client: %w", err)
	}

	registry := tools.NewRegistry(client, tools.Options{
		TimeBudget:            g.config.Pagination.TimeBudget,
		AggregateWithoutQuery: g.config.Pagination.AggregateWithoutQuery,
		Logger:                g.logger.With("component", "tools"),
	})

	server, err := mcp.NewServer(mcp.Config{
		Registry: registry,
		Logger:   g.logger.With("component", "mcp"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	return &session.Session{
		Transport: mcp.NewStreamTransport(server, g.logger.With("component", "transport")),
		CreatedAt: time.Now(),
	}, nil
}

// sendError writes a JSON-RPC error frame with HTTP 200, per the transport
// convention that protocol errors ride inside the protocol.
func (g *Gateway) sendError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(mcp.NewError(id, code, message)); err != nil {
		g.logger.Warn("failed to write error response", "error", err)
	}
}
