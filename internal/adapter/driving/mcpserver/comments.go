package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

func (s *Server) registerCommentTools() {
	s.mcpServer.AddTool(mcp.NewTool("create_comment",
		mcp.WithDescription("Attach a comment to an expense."),
		mcp.WithNumber("expense_id", mcp.Required(), mcp.Description("Expense id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Comment text")),
	), s.withGrant(s.handleCreateComment))

	s.mcpServer.AddTool(mcp.NewTool("get_comments",
		mcp.WithDescription("List the comments on an expense."),
		mcp.WithNumber("expense_id", mcp.Required(), mcp.Description("Expense id")),
	), s.withGrant(s.handleGetComments))

	s.mcpServer.AddTool(mcp.NewTool("delete_comment",
		mcp.WithDescription("Delete a comment you authored."),
		mcp.WithNumber("comment_id", mcp.Required(), mcp.Description("Comment id")),
	), s.withGrant(s.handleDeleteComment))
}

func (s *Server) handleCreateComment(ctx context.Context, req mcp.CallToolRequest, _ *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	expenseID, err := req.RequireInt("expense_id")
	if err != nil {
		return mcp.NewToolResultError("expense_id is required"), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("content is required"), nil
	}
	comment, err := client.CreateComment(ctx, int64(expenseID), content)
	if err != nil {
		return upstreamError("create_comment", err), nil
	}
	return jsonResult(toCommentView(*comment)), nil
}

func (s *Server) handleGetComments(ctx context.Context, req mcp.CallToolRequest, _ *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	expenseID, err := req.RequireInt("expense_id")
	if err != nil {
		return mcp.NewToolResultError("expense_id is required"), nil
	}
	comments, err := client.Comments(ctx, int64(expenseID))
	if err != nil {
		return upstreamError("get_comments", err), nil
	}
	views := make([]commentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, toCommentView(c))
	}
	return jsonResult(views), nil
}

func (s *Server) handleDeleteComment(ctx context.Context, req mcp.CallToolRequest, _ *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	commentID, err := req.RequireInt("comment_id")
	if err != nil {
		return mcp.NewToolResultError("comment_id is required"), nil
	}
	if err := client.DeleteComment(ctx, int64(commentID)); err != nil {
		return upstreamError("delete_comment", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Comment %d deleted.", commentID)), nil
}
