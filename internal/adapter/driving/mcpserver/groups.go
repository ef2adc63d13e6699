package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/akaul/splitgate/internal/application"
	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

func (s *Server) registerGroupTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_groups",
		mcp.WithDescription("List all groups the connected account belongs to."),
	), s.withGrant(s.handleGetGroups))

	s.mcpServer.AddTool(mcp.NewTool("get_group",
		mcp.WithDescription("Get one group with its member list."),
		mcp.WithNumber("group_id", mcp.Required(), mcp.Description("Group id")),
	), s.withGrant(s.handleGetGroup))

	s.mcpServer.AddTool(mcp.NewTool("create_group",
		mcp.WithDescription("Create a group. The connected account becomes a member automatically."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Group name")),
		mcp.WithString("group_type", mcp.Description("One of home, trip, couple, other, apartment, house")),
		mcp.WithBoolean("simplify_by_default", mcp.Description("Simplify debts within the group")),
	), s.withGrant(s.handleCreateGroup))

	s.mcpServer.AddTool(mcp.NewTool("delete_group",
		mcp.WithDescription("Delete a group and all of its expenses."),
		mcp.WithNumber("group_id", mcp.Required(), mcp.Description("Group id")),
	), s.withGrant(s.handleDeleteGroup))

	s.mcpServer.AddTool(mcp.NewTool("add_user_to_group",
		mcp.WithDescription("Add a user to a group, by user id or by email with first/last name."),
		mcp.WithNumber("group_id", mcp.Required(), mcp.Description("Group id")),
		mcp.WithNumber("user_id", mcp.Description("Existing Splitwise user id")),
		mcp.WithString("email", mcp.Description("Invite email, used when user_id is not given")),
		mcp.WithString("first_name", mcp.Description("First name for an email invite")),
		mcp.WithString("last_name", mcp.Description("Last name for an email invite")),
	), s.withGrant(s.handleAddUserToGroup))

	s.mcpServer.AddTool(mcp.NewTool("remove_user_from_group",
		mcp.WithDescription("Remove a user from a group. Fails if the user has an outstanding balance in it."),
		mcp.WithNumber("group_id", mcp.Required(), mcp.Description("Group id")),
		mcp.WithNumber("user_id", mcp.Required(), mcp.Description("Splitwise user id")),
	), s.withGrant(s.handleRemoveUserFromGroup))
}

func (s *Server) handleGetGroups(ctx context.Context, _ mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	key := application.CacheKey(grant.UserID, "groups")
	v, err := s.cache.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return client.Groups(ctx)
	})
	if err != nil {
		return upstreamError("get_groups", err), nil
	}
	return jsonResult(toGroupViews(v.([]model.Group))), nil
}

func (s *Server) handleGetGroup(ctx context.Context, req mcp.CallToolRequest, _ *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	groupID, err := req.RequireInt("group_id")
	if err != nil {
		return mcp.NewToolResultError("group_id is required"), nil
	}
	group, err := client.Group(ctx, int64(groupID))
	if err != nil {
		return upstreamError("get_group", err), nil
	}
	return jsonResult(toGroupView(*group)), nil
}

func (s *Server) handleCreateGroup(ctx context.Context, req mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil
	}
	group, err := client.CreateGroup(ctx, model.NewGroup{
		Name:              name,
		GroupType:         req.GetString("group_type", ""),
		SimplifyByDefault: req.GetBool("simplify_by_default", false),
	})
	if err != nil {
		return upstreamError("create_group", err), nil
	}
	s.cache.Invalidate(grant.UserID, "groups")
	return jsonResult(toGroupView(*group)), nil
}

func (s *Server) handleDeleteGroup(ctx context.Context, req mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	groupID, err := req.RequireInt("group_id")
	if err != nil {
		return mcp.NewToolResultError("group_id is required"), nil
	}
	if err := client.DeleteGroup(ctx, int64(groupID)); err != nil {
		return upstreamError("delete_group", err), nil
	}
	s.cache.Invalidate(grant.UserID, "groups")
	s.cache.Invalidate(grant.UserID, "expenses")
	return mcp.NewToolResultText(fmt.Sprintf("Group %d deleted.", groupID)), nil
}

func (s *Server) handleAddUserToGroup(ctx context.Context, req mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	groupID, err := req.RequireInt("group_id")
	if err != nil {
		return mcp.NewToolResultError("group_id is required"), nil
	}
	member := model.GroupMember{
		UserID:    int64(req.GetInt("user_id", 0)),
		Email:     req.GetString("email", ""),
		FirstName: req.GetString("first_name", ""),
		LastName:  req.GetString("last_name", ""),
	}
	if member.UserID == 0 && member.Email == "" {
		return mcp.NewToolResultError("either user_id or email is required"), nil
	}
	if err := client.AddGroupMember(ctx, int64(groupID), member); err != nil {
		return upstreamError("add_user_to_group", err), nil
	}
	s.cache.Invalidate(grant.UserID, "groups")
	return mcp.NewToolResultText(fmt.Sprintf("User added to group %d.", groupID)), nil
}

func (s *Server) handleRemoveUserFromGroup(ctx context.Context, req mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	groupID, err := req.RequireInt("group_id")
	if err != nil {
		return mcp.NewToolResultError("group_id is required"), nil
	}
	userID, err := req.RequireInt("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	if err := client.RemoveGroupMember(ctx, int64(groupID), int64(userID)); err != nil {
		return upstreamError("remove_user_from_group", err), nil
	}
	s.cache.Invalidate(grant.UserID, "groups")
	return mcp.NewToolResultText(fmt.Sprintf("User %d removed from group %d.", userID, groupID)), nil
}
