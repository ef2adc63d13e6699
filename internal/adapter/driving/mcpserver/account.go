package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

func (s *Server) registerAccountTools() {
	s.mcpServer.AddTool(mcp.NewTool("disconnect",
		mcp.WithDescription("Revoke this gateway token. The MCP endpoint stops working until you reconnect through the web flow."),
	), s.withGrant(s.handleDisconnect))
}

func (s *Server) handleDisconnect(ctx context.Context, _ mcp.CallToolRequest, grant *model.Grant, _ driven.ExpenseClient) (*mcp.CallToolResult, error) {
	if err := s.auth.Revoke(ctx, grant.Token); err != nil {
		return upstreamError("disconnect", err), nil
	}
	s.invalidateExpenses(grant.UserID)
	s.logger.Info("grant disconnected", "user_id", grant.UserID)
	return mcp.NewToolResultText("Disconnected. Your Splitwise data is no longer reachable through this token."), nil
}
