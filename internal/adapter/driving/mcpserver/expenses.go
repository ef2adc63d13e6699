package mcpserver

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/akaul/splitgate/internal/application"
	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

func (s *Server) registerExpenseTools() {
	s.mcpServer.AddTool(mcp.NewTool("create_expense",
		mcp.WithDescription("Create an expense. Omit users to let Splitwise split equally among group members; pass users for explicit shares. You are included automatically if absent from the list."),
		mcp.WithString("cost",
			mcp.Required(),
			mcp.Description("Total amount as a string with two decimal places, e.g. \"25.50\""),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Short description of the expense"),
		),
		mcp.WithNumber("group_id",
			mcp.Description("Group id; 0 or omitted for a non-group expense"),
		),
		mcp.WithString("currency_code",
			mcp.Description("Three-letter currency code, e.g. USD"),
		),
		mcp.WithString("date",
			mcp.Description("ISO 8601 date or datetime; defaults to now"),
		),
		mcp.WithNumber("category_id",
			mcp.Description("Category id from get_categories"),
		),
		mcp.WithArray("users",
			mcp.Description("Explicit shares: objects with user_id, paid_share, owed_share. Missing shares are filled by equal split."),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithBoolean("split_equally",
			mcp.Description("Fill missing paid/owed shares by splitting equally (default true)"),
		),
	), s.withGrant(s.handleCreateExpense))

	s.mcpServer.AddTool(mcp.NewTool("get_expenses",
		mcp.WithDescription("List expenses, newest first, optionally filtered by group, friend, or date range."),
		mcp.WithNumber("group_id", mcp.Description("Only expenses in this group")),
		mcp.WithNumber("friend_id", mcp.Description("Only expenses shared with this friend")),
		mcp.WithString("dated_after", mcp.Description("ISO 8601 lower bound on the expense date")),
		mcp.WithString("dated_before", mcp.Description("ISO 8601 upper bound on the expense date")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of expenses to return (default 20)")),
		mcp.WithNumber("offset", mcp.Description("Number of expenses to skip")),
	), s.withGrant(s.handleGetExpenses))

	s.mcpServer.AddTool(mcp.NewTool("get_expense",
		mcp.WithDescription("Get one expense with its full share breakdown."),
		mcp.WithNumber("expense_id", mcp.Required(), mcp.Description("Expense id")),
	), s.withGrant(s.handleGetExpense))

	s.mcpServer.AddTool(mcp.NewTool("update_expense",
		mcp.WithDescription("Update an expense's cost, description, date, category, or shares. Omitted fields are left unchanged."),
		mcp.WithNumber("expense_id", mcp.Required(), mcp.Description("Expense id")),
		mcp.WithString("cost", mcp.Description("New total amount")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("date", mcp.Description("New ISO 8601 date")),
		mcp.WithNumber("category_id", mcp.Description("New category id")),
		mcp.WithArray("users",
			mcp.Description("Replacement shares: objects with user_id, paid_share, owed_share"),
			mcp.Items(map[string]any{"type": "object"}),
		),
	), s.withGrant(s.handleUpdateExpense))

	s.mcpServer.AddTool(mcp.NewTool("delete_expense",
		mcp.WithDescription("Delete an expense. Splitwise soft-deletes; the record stays visible with a deleted flag."),
		mcp.WithNumber("expense_id", mcp.Required(), mcp.Description("Expense id")),
	), s.withGrant(s.handleDeleteExpense))
}

func (s *Server) handleCreateExpense(ctx context.Context, req mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	cost, err := req.RequireString("cost")
	if err != nil {
		return mcp.NewToolResultError("cost is required"), nil
	}
	description, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError("description is required"), nil
	}
	if _, err := strconv.ParseFloat(cost, 64); err != nil {
		return mcp.NewToolResultError("cost must be a decimal amount like \"25.50\""), nil
	}

	input := model.NewExpense{
		Cost:         cost,
		Description:  description,
		GroupID:      int64(req.GetInt("group_id", 0)),
		CurrencyCode: req.GetString("currency_code", ""),
		CategoryID:   int64(req.GetInt("category_id", 0)),
	}
	if raw := req.GetString("date", ""); raw != "" {
		date, err := parseDateArg(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		input.Date = date
	}

	shares, err := sharesFromArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(shares) > 0 {
		shares, err = s.prepareShares(ctx, grant, cost, shares, req.GetBool("split_equally", true))
		if err != nil {
			return upstreamError("create_expense", err), nil
		}
	}
	input.Shares = shares

	expense, err := client.CreateExpense(ctx, input)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "not in your friends list") {
		// Splitwise's server-side friends cache can lag a fresh friendship.
		// A friends listing refreshes it; retry the create once after.
		s.logger.Warn("stale friends list on create_expense, refreshing and retrying", "user_id", grant.UserID)
		if _, refreshErr := client.Friends(ctx); refreshErr != nil {
			s.logger.Warn("friends refresh failed, retrying create anyway", "error", refreshErr)
		}
		expense, err = client.CreateExpense(ctx, input)
	}
	if err != nil {
		return upstreamError("create_expense", err), nil
	}

	s.invalidateExpenses(grant.UserID)
	return jsonResult(toExpenseView(*expense)), nil
}

func (s *Server) handleGetExpenses(ctx context.Context, req mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	filter := model.ExpenseFilter{
		Limit:  req.GetInt("limit", 20),
		Offset: req.GetInt("offset", 0),
	}
	if id := req.GetInt("group_id", 0); id != 0 {
		groupID := int64(id)
		filter.GroupID = &groupID
	}
	if id := req.GetInt("friend_id", 0); id != 0 {
		friendID := int64(id)
		filter.FriendID = &friendID
	}
	if raw := req.GetString("dated_after", ""); raw != "" {
		t, err := parseDateArg(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter.DatedAfter = &t
	}
	if raw := req.GetString("dated_before", ""); raw != "" {
		t, err := parseDateArg(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter.DatedBefore = &t
	}

	// Fingerprint with scalars: pointer fields would key on addresses.
	var after, before string
	if filter.DatedAfter != nil {
		after = filter.DatedAfter.Format(time.RFC3339)
	}
	if filter.DatedBefore != nil {
		before = filter.DatedBefore.Format(time.RFC3339)
	}
	key := application.CacheKey(grant.UserID, "expenses",
		req.GetInt("group_id", 0), req.GetInt("friend_id", 0), after, before, filter.Limit, filter.Offset)
	v, err := s.cache.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return client.Expenses(ctx, filter)
	})
	if err != nil {
		return upstreamError("get_expenses", err), nil
	}
	return jsonResult(toExpenseViews(v.([]model.Expense))), nil
}

func (s *Server) handleGetExpense(ctx context.Context, req mcp.CallToolRequest, _ *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	expenseID, err := req.RequireInt("expense_id")
	if err != nil {
		return mcp.NewToolResultError("expense_id is required"), nil
	}
	expense, err := client.Expense(ctx, int64(expenseID))
	if err != nil {
		return upstreamError("get_expense", err), nil
	}
	return jsonResult(toExpenseView(*expense)), nil
}

func (s *Server) handleUpdateExpense(ctx context.Context, req mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	expenseID, err := req.RequireInt("expense_id")
	if err != nil {
		return mcp.NewToolResultError("expense_id is required"), nil
	}

	var update model.ExpenseUpdate
	if cost := req.GetString("cost", ""); cost != "" {
		if _, err := strconv.ParseFloat(cost, 64); err != nil {
			return mcp.NewToolResultError("cost must be a decimal amount like \"25.50\""), nil
		}
		update.Cost = &cost
	}
	if description := req.GetString("description", ""); description != "" {
		update.Description = &description
	}
	if raw := req.GetString("date", ""); raw != "" {
		date, err := parseDateArg(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		update.Date = &date
	}
	if id := req.GetInt("category_id", 0); id != 0 {
		categoryID := int64(id)
		update.CategoryID = &categoryID
	}
	shares, err := sharesFromArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	update.Shares = shares

	expense, err := client.UpdateExpense(ctx, int64(expenseID), update)
	if err != nil {
		return upstreamError("update_expense", err), nil
	}

	s.invalidateExpenses(grant.UserID)
	return jsonResult(toExpenseView(*expense)), nil
}

func (s *Server) handleDeleteExpense(ctx context.Context, req mcp.CallToolRequest, grant *model.Grant, client driven.ExpenseClient) (*mcp.CallToolResult, error) {
	expenseID, err := req.RequireInt("expense_id")
	if err != nil {
		return mcp.NewToolResultError("expense_id is required"), nil
	}
	if err := client.DeleteExpense(ctx, int64(expenseID)); err != nil {
		return upstreamError("delete_expense", err), nil
	}
	s.invalidateExpenses(grant.UserID)
	return mcp.NewToolResultText(fmt.Sprintf("Expense %d deleted.", expenseID)), nil
}

// invalidateExpenses drops the cached reads an expense mutation can
// affect. Balances surface in both friends and groups listings.
func (s *Server) invalidateExpenses(userID int64) {
	s.cache.Invalidate(userID, "expenses")
	s.cache.Invalidate(userID, "friends")
	s.cache.Invalidate(userID, "groups")
}

// prepareShares auto-includes the caller and fills missing paid/owed shares
// by equal split: the first listed user fronts the full cost.
func (s *Server) prepareShares(ctx context.Context, grant *model.Grant, cost string, shares []model.ExpenseShare, splitEqually bool) ([]model.ExpenseShare, error) {
	included := false
	for _, share := range shares {
		if share.UserID == grant.UserID {
			included = true
			break
		}
	}
	if !included {
		shares = append([]model.ExpenseShare{{UserID: grant.UserID}}, shares...)
	}
	if !splitEqually {
		return shares, nil
	}

	total, err := strconv.ParseFloat(cost, 64)
	if err != nil {
		return nil, fmt.Errorf("parse cost: %w", err)
	}
	perPerson := total / float64(len(shares))
	for i := range shares {
		if shares[i].PaidShare == "" {
			if i == 0 {
				shares[i].PaidShare = fmt.Sprintf("%.2f", total)
			} else {
				shares[i].PaidShare = "0.00"
			}
		}
		if shares[i].OwedShare == "" {
			shares[i].OwedShare = fmt.Sprintf("%.2f", perPerson)
		}
	}
	return shares, nil
}

// sharesFromArgs parses the optional users array. Shares arrive as strings
// per the upstream convention, but numeric values are accepted and
// normalized to two decimal places.
func sharesFromArgs(req mcp.CallToolRequest) ([]model.ExpenseShare, error) {
	raw, ok := req.GetArguments()["users"].([]any)
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	shares := make([]model.ExpenseShare, 0, len(raw))
	for i, entry := range raw {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("users[%d] must be an object with user_id, paid_share, owed_share", i)
		}
		userID, ok := obj["user_id"].(float64)
		if !ok || userID <= 0 {
			return nil, fmt.Errorf("users[%d].user_id is required", i)
		}
		paid, err := shareAmount(obj["paid_share"])
		if err != nil {
			return nil, fmt.Errorf("users[%d].paid_share: %w", i, err)
		}
		owed, err := shareAmount(obj["owed_share"])
		if err != nil {
			return nil, fmt.Errorf("users[%d].owed_share: %w", i, err)
		}
		shares = append(shares, model.ExpenseShare{
			UserID:    int64(userID),
			PaidShare: paid,
			OwedShare: owed,
		})
	}
	return shares, nil
}

func shareAmount(v any) (string, error) {
	switch amount := v.(type) {
	case nil:
		return "", nil
	case string:
		if amount == "" {
			return "", nil
		}
		if _, err := strconv.ParseFloat(amount, 64); err != nil {
			return "", fmt.Errorf("not a decimal amount: %q", amount)
		}
		return amount, nil
	case float64:
		return fmt.Sprintf("%.2f", amount), nil
	default:
		return "", fmt.Errorf("not a decimal amount: %v", v)
	}
}

func parseDateArg(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q is not ISO 8601 (use 2006-01-02 or RFC 3339)", raw)
}
