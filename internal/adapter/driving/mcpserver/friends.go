package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/akaul/splitgate/internal/application"
	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

func (s *Server) registerFriendTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_friends",
		mcp.WithDescription("List the connected account's friends with outstanding balances."),
	), s.withGrant(s.handleGetFriends))

	s.mcpServer.AddTool(mcp.NewTool("get_friend",
		mcp.WithDescription("Get one friend with the current balance breakdown."),
		mcp.WithNumber("user_id", mcp.Required(), mcp.Description("The friend's Splitwise user id")),
	), s.withGrant(s.handleGetFriend))
}

func (s *Server) handleGetFriends(ctx context.Context, _ mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	key := application.CacheKey(grant.UserID, "friends")
	v, err := s.cache.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return client.Friends(ctx)
	})
	if err != nil {
		return upstreamError("get_friends", err), nil
	}
	return jsonResult(toFriendViews(v.([]model.Friend))), nil
}

func (s *Server) handleGetFriend(ctx context.Context, req mcp.CallToolRequest, _ *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	userID, err := req.RequireInt("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	friend, err := client.Friend(ctx, int64(userID))
	if err != nil {
		return upstreamError("get_friend", err), nil
	}
	return jsonResult(toFriendView(*friend)), nil
}
