package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

func (s *Server) registerNotificationTools() {
	s.mcpServer.AddTool(mcp.NewTool("enable_reminders",
		mcp.WithDescription("Opt into periodic expense-logging reminders, delivered as Discord direct messages during waking hours."),
		mcp.WithString("target", mcp.Required(), mcp.Description("Discord user id to deliver reminders to")),
	), s.withGrant(s.handleEnableReminders))

	s.mcpServer.AddTool(mcp.NewTool("disable_reminders",
		mcp.WithDescription("Stop the periodic expense-logging reminders."),
	), s.withGrant(s.handleDisableReminders))

	s.mcpServer.AddTool(mcp.NewTool("enable_daily_summary",
		mcp.WithDescription("Opt into a daily spending summary, delivered as a Discord direct message."),
		mcp.WithString("target", mcp.Required(), mcp.Description("Discord user id to deliver the summary to")),
	), s.withGrant(s.handleEnableDailySummary))

	s.mcpServer.AddTool(mcp.NewTool("disable_daily_summary",
		mcp.WithDescription("Stop the daily spending summary."),
	), s.withGrant(s.handleDisableDailySummary))

	s.mcpServer.AddTool(mcp.NewTool("notification_status",
		mcp.WithDescription("Show the connected account's notification schedules."),
	), s.withGrant(s.handleNotificationStatus))
}

func (s *Server) handleEnableReminders(ctx context.Context, req mcp.CallToolRequest, grant *model.Grant, _ driven.ExpenseClient) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("target")
	if err != nil || target == "" {
		return mcp.NewToolResultError("target is required"), nil
	}
	schedule, err := s.notifications.EnableReminder(ctx, grant.UserID, target)
	if err != nil {
		return upstreamError("enable_reminders", err), nil
	}
	return jsonResult(toScheduleView(*schedule)), nil
}

func (s *Server) handleDisableReminders(ctx context.Context, _ mcp.CallToolRequest, grant *model.Grant, _ driven.ExpenseClient) (*mcp.CallToolResult, error) {
	if err := s.notifications.Disable(ctx, grant.UserID, model.JobReminder); err != nil {
		return upstreamError("disable_reminders", err), nil
	}
	return mcp.NewToolResultText("Reminders disabled."), nil
}

func (s *Server) handleEnableDailySummary(ctx context.Context, req mcp.CallToolRequest, grant *model.Grant, _ driven.ExpenseClient) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("target")
	if err != nil || target == "" {
		return mcp.NewToolResultError("target is required"), nil
	}
	schedule, err := s.notifications.EnableDailySummary(ctx, grant.UserID, target)
	if err != nil {
		return upstreamError("enable_daily_summary", err), nil
	}
	return jsonResult(toScheduleView(*schedule)), nil
}

func (s *Server) handleDisableDailySummary(ctx context.Context, _ mcp.CallToolRequest, grant *model.Grant, _ driven.ExpenseClient) (*mcp.CallToolResult, error) {
	if err := s.notifications.Disable(ctx, grant.UserID, model.JobDailySummary); err != nil {
		return upstreamError("disable_daily_summary", err), nil
	}
	return mcp.NewToolResultText("Daily summary disabled."), nil
}

func (s *Server) handleNotificationStatus(ctx context.Context, _ mcp.CallToolRequest, grant *model.Grant, _ driven.ExpenseClient) (*mcp.CallToolResult, error) {
	schedules, err := s.notifications.Status(ctx, grant.UserID)
	if err != nil {
		return upstreamError("notification_status", err), nil
	}
	if len(schedules) == 0 {
		return mcp.NewToolResultText("No notifications configured. Use enable_reminders or enable_daily_summary to opt in."), nil
	}
	views := make([]scheduleView, 0, len(schedules))
	for _, schedule := range schedules {
		views = append(views, toScheduleView(schedule))
	}
	return jsonResult(views), nil
}
