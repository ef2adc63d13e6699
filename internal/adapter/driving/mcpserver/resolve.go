package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/akaul/splitgate/internal/application"
	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

const defaultResolveThreshold = 70

func (s *Server) registerResolveTools() {
	s.mcpServer.AddTool(mcp.NewTool("resolve_friend",
		mcp.WithDescription("Fuzzy-match a name or email against your friends list. Use the returned id with expense and group tools."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Name fragment or email to match")),
		mcp.WithNumber("threshold", mcp.Description("Minimum match score 0-100 (default 70)")),
	), s.withGrant(s.handleResolveFriend))

	s.mcpServer.AddTool(mcp.NewTool("resolve_group",
		mcp.WithDescription("Fuzzy-match a name against your groups."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Group name fragment to match")),
		mcp.WithNumber("threshold", mcp.Description("Minimum match score 0-100 (default 70)")),
	), s.withGrant(s.handleResolveGroup))

	s.mcpServer.AddTool(mcp.NewTool("resolve_category",
		mcp.WithDescription("Fuzzy-match a name against expense categories and subcategories."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Category name fragment to match")),
		mcp.WithNumber("threshold", mcp.Description("Minimum match score 0-100 (default 70)")),
	), s.withGrant(s.handleResolveCategory))
}

func resolveArgs(req mcp.CallToolRequest) (string, int, *mcp.CallToolResult) {
	query, err := req.RequireString("query")
	if err != nil || query == "" {
		return "", 0, mcp.NewToolResultError("query is required")
	}
	threshold := req.GetInt("threshold", defaultResolveThreshold)
	if threshold < 0 || threshold > 100 {
		return "", 0, mcp.NewToolResultError("threshold must be between 0 and 100")
	}
	return query, threshold, nil
}

func (s *Server) handleResolveFriend(ctx context.Context, req mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	query, threshold, errResult := resolveArgs(req)
	if errResult != nil {
		return errResult, nil
	}
	key := application.CacheKey(grant.UserID, "friends")
	v, err := s.cache.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return client.Friends(ctx)
	})
	if err != nil {
		return upstreamError("resolve_friend", err), nil
	}
	matches := application.ResolveFriends(v.([]model.Friend), query, threshold)
	return jsonResult(toMatchViews(matches)), nil
}

func (s *Server) handleResolveGroup(ctx context.Context, req mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	query, threshold, errResult := resolveArgs(req)
	if errResult != nil {
		return errResult, nil
	}
	key := application.CacheKey(grant.UserID, "groups")
	v, err := s.cache.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return client.Groups(ctx)
	})
	if err != nil {
		return upstreamError("resolve_group", err), nil
	}
	matches := application.ResolveGroups(v.([]model.Group), query, threshold)
	return jsonResult(toMatchViews(matches)), nil
}

func (s *Server) handleResolveCategory(ctx context.Context, req mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	query, threshold, errResult := resolveArgs(req)
	if errResult != nil {
		return errResult, nil
	}
	categories, err := s.cachedCategories(ctx, grant.UserID, client)
	if err != nil {
		return upstreamError("resolve_category", err), nil
	}
	matches := application.ResolveCategories(categories, query, threshold)
	return jsonResult(toMatchViews(matches)), nil
}
