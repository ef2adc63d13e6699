package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/akaul/splitgate/internal/application"
	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

func (s *Server) registerUserTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_current_user",
		mcp.WithDescription("Get the connected Splitwise account's profile."),
	), s.withGrant(s.handleGetCurrentUser))

	s.mcpServer.AddTool(mcp.NewTool("get_user",
		mcp.WithDescription("Get another Splitwise user's profile by id. The user must share a group or friendship with you."),
		mcp.WithNumber("user_id",
			mcp.Required(),
			mcp.Description("Splitwise user id"),
		),
	), s.withGrant(s.handleGetUser))
}

func (s *Server) handleGetCurrentUser(ctx context.Context, _ mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	key := application.CacheKey(grant.UserID, "current_user")
	v, err := s.cache.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return client.CurrentUser(ctx)
	})
	if err != nil {
		return upstreamError("get_current_user", err), nil
	}
	user := v.(*model.User)
	return jsonResult(toUserView(*user)), nil
}

func (s *Server) handleGetUser(ctx context.Context, req mcp.CallToolRequest, _ *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	userID, err := req.RequireInt("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	user, err := client.GetUser(ctx, int64(userID))
	if err != nil {
		return upstreamError("get_user", err), nil
	}
	return jsonResult(toUserView(*user)), nil
}
