package mcpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/akaul/splitgate/internal/application"
	"github.com/akaul/splitgate/internal/domain/model"
)

// Tool results carry JSON shaped like the upstream API so callers can feed
// ids from one tool into another without remapping.

type userView struct {
	ID                 int64  `json:"id"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name,omitempty"`
	Email              string `json:"email,omitempty"`
	RegistrationStatus string `json:"registration_status,omitempty"`
	Picture            string `json:"picture,omitempty"`
}

type shareView struct {
	UserID    int64  `json:"user_id"`
	PaidShare string `json:"paid_share"`
	OwedShare string `json:"owed_share"`
}

type expenseView struct {
	ID           int64       `json:"id"`
	GroupID      int64       `json:"group_id"`
	Description  string      `json:"description"`
	Cost         string      `json:"cost"`
	CurrencyCode string      `json:"currency_code"`
	Date         string      `json:"date"`
	CategoryID   int64       `json:"category_id,omitempty"`
	Category     string      `json:"category,omitempty"`
	Payment      bool        `json:"payment"`
	Deleted      bool        `json:"deleted,omitempty"`
	Users        []shareView `json:"users"`
}

type groupView struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	GroupType         string     `json:"group_type,omitempty"`
	SimplifyByDefault bool       `json:"simplify_by_default"`
	Members           []userView `json:"members"`
}

type balanceView struct {
	CurrencyCode string `json:"currency_code"`
	Amount       string `json:"amount"`
}

type friendView struct {
	userView
	Balances []balanceView `json:"balance"`
}

type commentView struct {
	ID        int64  `json:"id"`
	ExpenseID int64  `json:"expense_id"`
	Content   string `json:"content"`
	Author    string `json:"author,omitempty"`
	CreatedAt string `json:"created_at"`
}

type categoryView struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Subcategories []categoryView `json:"subcategories,omitempty"`
}

type currencyView struct {
	Code string `json:"currency_code"`
	Unit string `json:"unit"`
}

type matchView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Info  string `json:"info,omitempty"`
}

type scheduleView struct {
	Kind        string `json:"kind"`
	Enabled     bool   `json:"enabled"`
	Interval    string `json:"interval"`
	Window      string `json:"window"`
	Target      string `json:"target"`
	NextFireAt  string `json:"next_fire_at,omitempty"`
	LastFiredAt string `json:"last_fired_at,omitempty"`
}

func toUserView(u model.User) userView {
	return userView{
		ID:                 u.ID,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		Email:              u.Email,
		RegistrationStatus: u.RegistrationState,
		Picture:            u.PictureURL,
	}
}

func toExpenseView(e model.Expense) expenseView {
	v := expenseView{
		ID:           e.ID,
		GroupID:      e.GroupID,
		Description:  e.Description,
		Cost:         e.Cost,
		CurrencyCode: e.CurrencyCode,
		Date:         e.Date.Format(time.RFC3339),
		CategoryID:   e.CategoryID,
		Category:     e.CategoryName,
		Payment:      e.Payment,
		Deleted:      e.Deleted(),
		Users:        make([]shareView, 0, len(e.Shares)),
	}
	for _, s := range e.Shares {
		v.Users = append(v.Users, shareView(s))
	}
	return v
}

func toExpenseViews(expenses []model.Expense) []expenseView {
	views := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		views = append(views, toExpenseView(e))
	}
	return views
}

func toGroupView(g model.Group) groupView {
	v := groupView{
		ID:                g.ID,
		Name:              g.Name,
		GroupType:         g.GroupType,
		SimplifyByDefault: g.SimplifyByDefault,
		Members:           make([]userView, 0, len(g.Members)),
	}
	for _, m := range g.Members {
		v.Members = append(v.Members, toUserView(m))
	}
	return v
}

func toGroupViews(groups []model.Group) []groupView {
	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, toGroupView(g))
	}
	return views
}

func toFriendView(f model.Friend) friendView {
	v := friendView{userView: toUserView(f.User)}
	for _, b := range f.Balances {
		v.Balances = append(v.Balances, balanceView(b))
	}
	return v
}

func toFriendViews(friends []model.Friend) []friendView {
	views := make([]friendView, 0, len(friends))
	for _, f := range friends {
		views = append(views, toFriendView(f))
	}
	return views
}

func toCommentView(c model.Comment) commentView {
	return commentView{
		ID:        c.ID,
		ExpenseID: c.ExpenseID,
		Content:   c.Content,
		Author:    c.AuthorName,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

func toCategoryView(c model.Category) categoryView {
	v := categoryView{ID: c.ID, Name: c.Name}
	for _, sub := range c.Subcategories {
		v.Subcategories = append(v.Subcategories, toCategoryView(sub))
	}
	return v
}

func toMatchViews(matches []application.Match) []matchView {
	views := make([]matchView, 0, len(matches))
	for _, m := range matches {
		views = append(views, matchView(m))
	}
	return views
}

func toScheduleView(s model.Schedule) scheduleView {
	v := scheduleView{
		Kind:     string(s.Kind),
		Enabled:  s.Enabled,
		Interval: s.Interval.String(),
		Window:   fmt.Sprintf("%02d:00-%02d:00 UTC", s.Window.StartHour, s.Window.EndHour),
		Target:   s.NotifyTarget,
	}
	if s.NextFireAt != nil {
		v.NextFireAt = s.NextFireAt.Format(time.RFC3339)
	}
	if s.LastFiredAt != nil {
		v.LastFiredAt = s.LastFiredAt.Format(time.RFC3339)
	}
	return v
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// upstreamError renders an upstream failure as a tool error without leaking
// transport detail for the sentinel cases.
func upstreamError(op string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return mcp.NewToolResultError(op + ": Splitwise rejected the stored credential; disconnect and reconnect your account")
	case errors.Is(err, model.ErrUpstreamUnavailable):
		return mcp.NewToolResultError(op + ": Splitwise is unreachable right now, try again shortly")
	default:
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", op, err))
	}
}
