// Package mcpserver exposes the gateway's tool surface over the MCP
// streamable HTTP transport. Each request carries an opaque gateway token
// (query parameter or bearer header); every tool handler runs behind a
// decorator that resolves the token to a grant and fails closed.
package mcpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

const serverName = "splitgate"

type ctxKey int

const tokenKey ctxKey = iota

// GrantResolver resolves and revokes gateway tokens.
type GrantResolver interface {
	Resolve(ctx context.Context, token string) (*model.Grant, error)
	Revoke(ctx context.Context, token string) error
}

// NotificationManager manages a user's scheduled notification opt-ins.
type NotificationManager interface {
	EnableReminder(ctx context.Context, userID int64, target string) (*model.Schedule, error)
	EnableDailySummary(ctx context.Context, userID int64, target string) (*model.Schedule, error)
	Disable(ctx context.Context, userID int64, kind model.JobKind) error
	Status(ctx context.Context, userID int64) ([]model.Schedule, error)
}

// ReadCache is the subset of the upstream cache the tool handlers need.
type ReadCache interface {
	GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (any, error)) (any, error)
	Invalidate(userID int64, operationPrefix string)
}

// Server wires the MCP tool surface to the application services.
type Server struct {
	auth          GrantResolver
	notifications NotificationManager
	cache         ReadCache
	reference     ReadCache
	clientFactory driven.ExpenseClientFactory
	logger        *slog.Logger

	mcpServer  *server.MCPServer
	streamable *server.StreamableHTTPServer
}

// New builds the MCP server and registers every tool. The reference cache
// holds slow-moving upstream data (categories, currencies) and is expected
// to carry a longer TTL than the main cache.
func New(
	version string,
	auth GrantResolver,
	notifications NotificationManager,
	cache, reference ReadCache,
	clientFactory driven.ExpenseClientFactory,
	logger *slog.Logger,
) *Server {
	s := &Server{
		auth:          auth,
		notifications: notifications,
		cache:         cache,
		reference:     reference,
		clientFactory: clientFactory,
		logger:        logger,
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
	)
	s.registerTools()

	s.streamable = server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithHTTPContextFunc(tokenIntoContext),
	)
	return s
}

// Handler returns the streamable HTTP handler for mounting at /mcp.
func (s *Server) Handler() http.Handler {
	return s.streamable
}

func (s *Server) registerTools() {
	s.registerUserTools()
	s.registerExpenseTools()
	s.registerGroupTools()
	s.registerFriendTools()
	s.registerCommentTools()
	s.registerReferenceTools()
	s.registerResolveTools()
	s.registerNotificationTools()
	s.registerAccountTools()
}

// tokenIntoContext stashes the gateway token before the MCP layer parses
// the request. The personal endpoint URL carries it as ?token=; bearer
// auth is accepted as an equivalent.
func tokenIntoContext(ctx context.Context, r *http.Request) context.Context {
	token := r.URL.Query().Get("token")
	if token == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
	}
	return context.WithValue(ctx, tokenKey, token)
}

type grantHandler func(ctx context.Context, req mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error)

// withGrant resolves the request token to a live grant and hands the tool
// handler a client bound to that grant's credential. Unknown or revoked
// tokens never reach a tool body.
func (s *Server) withGrant(handler grantHandler) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		token, _ := ctx.Value(tokenKey).(string)
		grant, err := s.auth.Resolve(ctx, token)
		if err != nil {
			if errors.Is(err, model.ErrUnauthorized) {
				return mcp.NewToolResultError("unauthorized: connect your Splitwise account and use the token from the success page"), nil
			}
			s.logger.Error("token resolution failed", "error", err)
			return mcp.NewToolResultError("token resolution failed"), nil
		}
		return handler(ctx, req, grant, s.clientFactory(grant.AccessToken))
	}
}
