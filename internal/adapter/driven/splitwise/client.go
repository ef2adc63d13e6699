// Package splitwise implements the ExpenseClient port against the
// Splitwise REST API v3.0.
package splitwise

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

// DefaultBaseURL is the production Splitwise API root.
const DefaultBaseURL = "https://secure.splitwise.com/api/v3.0"

const requestTimeout = 10 * time.Second

// Compile-time interface satisfaction check.
var _ driven.ExpenseClient = (*Client)(nil)

// Client implements the driven.ExpenseClient port. Each instance is bound
// to one user's access token; construct one per resolved request.
type Client struct {
	http        *http.Client
	baseURL     string
	accessToken string
}

// NewClient creates a Splitwise API client bound to the given access token.
func NewClient(accessToken string) *Client {
	return &Client{
		http:        &http.Client{Timeout: requestTimeout},
		baseURL:     DefaultBaseURL,
		accessToken: accessToken,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, accessToken string) *Client {
	return &Client{
		http:        httpClient,
		baseURL:     baseURL,
		accessToken: accessToken,
	}
}

// Factory returns an ExpenseClientFactory that builds clients against the
// given base URL. An empty baseURL selects production.
func Factory(baseURL string) driven.ExpenseClientFactory {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return func(accessToken string) driven.ExpenseClient {
		c := NewClient(accessToken)
		c.baseURL = baseURL
		return c
	}
}

// CurrentUser returns the account the access token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var out struct {
		User wireUser `json:"user"`
	}
	if err := c.get(ctx, "/get_current_user", nil, &out); err != nil {
		return nil, err
	}
	u := mapUser(out.User)
	return &u, nil
}

// GetUser returns another user visible to the current account.
func (c *Client) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	var out struct {
		User wireUser `json:"user"`
	}
	if err := c.get(ctx, fmt.Sprintf("/get_user/%d", userID), nil, &out); err != nil {
		return nil, err
	}
	u := mapUser(out.User)
	return &u, nil
}

// Expenses lists expenses matching the filter.
func (c *Client) Expenses(ctx context.Context, filter model.ExpenseFilter) ([]model.Expense, error) {
	q := url.Values{}
	if filter.GroupID != nil {
		q.Set("group_id", strconv.FormatInt(*filter.GroupID, 10))
	}
	if filter.FriendID != nil {
		q.Set("friend_id", strconv.FormatInt(*filter.FriendID, 10))
	}
	if filter.DatedAfter != nil {
		q.Set("dated_after", filter.DatedAfter.UTC().Format(time.RFC3339))
	}
	if filter.DatedBefore != nil {
		q.Set("dated_before", filter.DatedBefore.UTC().Format(time.RFC3339))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}

	var out struct {
		Expenses []wireExpense `json:"expenses"`
	}
	if err := c.get(ctx, "/get_expenses", q, &out); err != nil {
		return nil, err
	}

	expenses := make([]model.Expense, 0, len(out.Expenses))
	for _, e := range out.Expenses {
		expenses = append(expenses, mapExpense(e))
	}
	return expenses, nil
}

// Expense fetches one expense by id.
func (c *Client) Expense(ctx context.Context, expenseID int64) (*model.Expense, error) {
	var out struct {
		Expense wireExpense `json:"expense"`
	}
	if err := c.get(ctx, fmt.Sprintf("/get_expense/%d", expenseID), nil, &out); err != nil {
		return nil, err
	}
	e := mapExpense(out.Expense)
	return &e, nil
}

// CreateExpense creates an expense. Shares use the upstream's flattened
// users__N__field keys; an empty Shares slice requests an equal split.
func (c *Client) CreateExpense(ctx context.Context, e model.NewExpense) (*model.Expense, error) {
	date := e.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	body := map[string]any{
		"cost":        e.Cost,
		"description": e.Description,
		"group_id":    e.GroupID,
		"date":        date.UTC().Format(time.RFC3339),
	}
	if e.CurrencyCode != "" {
		body["currency_code"] = e.CurrencyCode
	}
	if e.CategoryID > 0 {
		body["category_id"] = e.CategoryID
	}
	if len(e.Shares) == 0 {
		body["split_equally"] = true
	}
	addShares(body, e.Shares)

	var out struct {
		Expenses []wireExpense `json:"expenses"`
		Errors   wireErrors    `json:"errors"`
	}
	if err := c.post(ctx, "/create_expense", body, &out); err != nil {
		return nil, err
	}
	if err := out.Errors.check("create_expense"); err != nil {
		return nil, err
	}
	if len(out.Expenses) == 0 {
		return nil, fmt.Errorf("create_expense: upstream returned no expense")
	}
	created := mapExpense(out.Expenses[0])
	return &created, nil
}

// UpdateExpense applies a partial update. Nil fields are omitted from the
// request so the upstream leaves them untouched.
func (c *Client) UpdateExpense(ctx context.Context, expenseID int64, u model.ExpenseUpdate) (*model.Expense, error) {
	body := map[string]any{}
	if u.Cost != nil {
		body["cost"] = *u.Cost
	}
	if u.Description != nil {
		body["description"] = *u.Description
	}
	if u.Date != nil {
		body["date"] = u.Date.UTC().Format(time.RFC3339)
	}
	if u.CategoryID != nil {
		body["category_id"] = *u.CategoryID
	}
	addShares(body, u.Shares)

	var out struct {
		Expenses []wireExpense `json:"expenses"`
		Errors   wireErrors    `json:"errors"`
	}
	if err := c.post(ctx, fmt.Sprintf("/update_expense/%d", expenseID), body, &out); err != nil {
		return nil, err
	}
	if err := out.Errors.check("update_expense"); err != nil {
		return nil, err
	}
	if len(out.Expenses) == 0 {
		return nil, fmt.Errorf("update_expense: upstream returned no expense")
	}
	updated := mapExpense(out.Expenses[0])
	return &updated, nil
}

// DeleteExpense soft-deletes an expense.
func (c *Client) DeleteExpense(ctx context.Context, expenseID int64) error {
	var out struct {
		Success bool       `json:"success"`
		Errors  wireErrors `json:"errors"`
	}
	if err := c.post(ctx, fmt.Sprintf("/delete_expense/%d", expenseID), nil, &out); err != nil {
		return err
	}
	if err := out.Errors.check("delete_expense"); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("delete_expense %d: upstream reported failure", expenseID)
	}
	return nil
}

// Groups lists the current user's groups.
func (c *Client) Groups(ctx context.Context) ([]model.Group, error) {
	var out struct {
		Groups []wireGroup `json:"groups"`
	}
	if err := c.get(ctx, "/get_groups", nil, &out); err != nil {
		return nil, err
	}

	groups := make([]model.Group, 0, len(out.Groups))
	for _, g := range out.Groups {
		groups = append(groups, mapGroup(g))
	}
	return groups, nil
}

// Group fetches one group with its members.
func (c *Client) Group(ctx context.Context, groupID int64) (*model.Group, error) {
	var out struct {
		Group wireGroup `json:"group"`
	}
	if err := c.get(ctx, fmt.Sprintf("/get_group/%d", groupID), nil, &out); err != nil {
		return nil, err
	}
	g := mapGroup(out.Group)
	return &g, nil
}

// CreateGroup creates a group. Members use the flattened users__N__field keys.
func (c *Client) CreateGroup(ctx context.Context, g model.NewGroup) (*model.Group, error) {
	body := map[string]any{
		"name":                g.Name,
		"simplify_by_default": g.SimplifyByDefault,
	}
	if g.GroupType != "" {
		body["group_type"] = g.GroupType
	}
	for i, m := range g.Members {
		prefix := fmt.Sprintf("users__%d__", i)
		if m.UserID > 0 {
			body[prefix+"user_id"] = m.UserID
			continue
		}
		body[prefix+"email"] = m.Email
		if m.FirstName != "" {
			body[prefix+"first_name"] = m.FirstName
		}
		if m.LastName != "" {
			body[prefix+"last_name"] = m.LastName
		}
	}

	var out struct {
		Group  wireGroup  `json:"group"`
		Errors wireErrors `json:"errors"`
	}
	if err := c.post(ctx, "/create_group", body, &out); err != nil {
		return nil, err
	}
	if err := out.Errors.check("create_group"); err != nil {
		return nil, err
	}
	created := mapGroup(out.Group)
	return &created, nil
}

// DeleteGroup deletes a group and all of its expenses.
func (c *Client) DeleteGroup(ctx context.Context, groupID int64) error {
	var out struct {
		Success bool       `json:"success"`
		Errors  wireErrors `json:"errors"`
	}
	if err := c.post(ctx, fmt.Sprintf("/delete_group/%d", groupID), nil, &out); err != nil {
		return err
	}
	if err := out.Errors.check("delete_group"); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("delete_group %d: upstream reported failure", groupID)
	}
	return nil
}

// AddGroupMember adds a user to a group, by id or by email invitation.
func (c *Client) AddGroupMember(ctx context.Context, groupID int64, member model.GroupMember) error {
	body := map[string]any{"group_id": groupID}
	if member.UserID > 0 {
		body["user_id"] = member.UserID
	} else {
		body["email"] = member.Email
		body["first_name"] = member.FirstName
		body["last_name"] = member.LastName
	}

	var out struct {
		Success bool       `json:"success"`
		Errors  wireErrors `json:"errors"`
	}
	if err := c.post(ctx, "/add_user_to_group", body, &out); err != nil {
		return err
	}
	if err := out.Errors.check("add_user_to_group"); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("add_user_to_group %d: upstream reported failure", groupID)
	}
	return nil
}

// RemoveGroupMember removes a user from a group.
func (c *Client) RemoveGroupMember(ctx context.Context, groupID, userID int64) error {
	body := map[string]any{"group_id": groupID, "user_id": userID}

	var out struct {
		Success bool       `json:"success"`
		Errors  wireErrors `json:"errors"`
	}
	if err := c.post(ctx, "/remove_user_from_group", body, &out); err != nil {
		return err
	}
	if err := out.Errors.check("remove_user_from_group"); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("remove_user_from_group %d/%d: upstream reported failure", groupID, userID)
	}
	return nil
}

// Friends lists the current user's friends with balances.
func (c *Client) Friends(ctx context.Context) ([]model.Friend, error) {
	var out struct {
		Friends []wireFriend `json:"friends"`
	}
	if err := c.get(ctx, "/get_friends", nil, &out); err != nil {
		return nil, err
	}

	friends := make([]model.Friend, 0, len(out.Friends))
	for _, f := range out.Friends {
		friends = append(friends, mapFriend(f))
	}
	return friends, nil
}

// Friend fetches one friend with balances.
func (c *Client) Friend(ctx context.Context, userID int64) (*model.Friend, error) {
	var out struct {
		Friend wireFriend `json:"friend"`
	}
	if err := c.get(ctx, fmt.Sprintf("/get_friend/%d", userID), nil, &out); err != nil {
		return nil, err
	}
	f := mapFriend(out.Friend)
	return &f, nil
}

// CreateComment attaches a comment to an expense.
func (c *Client) CreateComment(ctx context.Context, expenseID int64, content string) (*model.Comment, error) {
	body := map[string]any{"expense_id": expenseID, "content": content}

	var out struct {
		Comment wireComment `json:"comment"`
		Errors  wireErrors  `json:"errors"`
	}
	if err := c.post(ctx, "/create_comment", body, &out); err != nil {
		return nil, err
	}
	if err := out.Errors.check("create_comment"); err != nil {
		return nil, err
	}
	created := mapComment(out.Comment)
	return &created, nil
}

// Comments lists the comments on an expense.
func (c *Client) Comments(ctx context.Context, expenseID int64) ([]model.Comment, error) {
	q := url.Values{"expense_id": {strconv.FormatInt(expenseID, 10)}}

	var out struct {
		Comments []wireComment `json:"comments"`
	}
	if err := c.get(ctx, "/get_comments", q, &out); err != nil {
		return nil, err
	}

	comments := make([]model.Comment, 0, len(out.Comments))
	for _, cm := range out.Comments {
		comments = append(comments, mapComment(cm))
	}
	return comments, nil
}

// DeleteComment removes a comment the current user authored.
func (c *Client) DeleteComment(ctx context.Context, commentID int64) error {
	var out struct {
		Comment wireComment `json:"comment"`
		Errors  wireErrors  `json:"errors"`
	}
	if err := c.post(ctx, fmt.Sprintf("/delete_comment/%d", commentID), nil, &out); err != nil {
		return err
	}
	return out.Errors.check("delete_comment")
}

// Categories lists the expense category tree.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var out struct {
		Categories []wireCategory `json:"categories"`
	}
	if err := c.get(ctx, "/get_categories", nil, &out); err != nil {
		return nil, err
	}

	categories := make([]model.Category, 0, len(out.Categories))
	for _, cat := range out.Categories {
		categories = append(categories, mapCategory(cat))
	}
	return categories, nil
}

// Currencies lists the supported currencies.
func (c *Client) Currencies(ctx context.Context) ([]model.Currency, error) {
	var out struct {
		Currencies []wireCurrency `json:"currencies"`
	}
	if err := c.get(ctx, "/get_currencies", nil, &out); err != nil {
		return nil, err
	}

	currencies := make([]model.Currency, 0, len(out.Currencies))
	for _, cur := range out.Currencies {
		currencies = append(currencies, model.Currency{Code: cur.CurrencyCode, Unit: cur.Unit})
	}
	return currencies, nil
}

// addShares flattens expense shares into the users__N__field keys the
// upstream expects.
func addShares(body map[string]any, shares []model.ExpenseShare) {
	for i, s := range shares {
		prefix := fmt.Sprintf("users__%d__", i)
		body[prefix+"user_id"] = s.UserID
		body[prefix+"paid_share"] = s.PaidShare
		body[prefix+"owed_share"] = s.OwedShare
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	return c.do(req, path, out)
}

func (c *Client) post(ctx context.Context, path string, body map[string]any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request %s: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, path, out)
}

// do executes the request and maps upstream failures onto the domain error
// taxonomy: 401 means the grant's credential is no longer honored, 5xx and
// transport errors mean the upstream is unavailable.
func (c *Client) do(req *http.Request, path string, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", path, model.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", path, model.ErrUnauthorized)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s: upstream status %d: %w", path, resp.StatusCode, model.ErrUpstreamUnavailable)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s: unexpected upstream status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}
	return nil
}
