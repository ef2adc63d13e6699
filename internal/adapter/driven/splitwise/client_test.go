package splitwise_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akaul/splitgate/internal/adapter/driven/splitwise"
	"github.com/akaul/splitgate/internal/domain/model"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) *splitwise.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return splitwise.NewClientWithHTTPClient(server.Client(), server.URL, "test-token")
}

func TestClient_CurrentUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get_current_user", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user": {"id": 42, "first_name": "Ada", "last_name": "Lovelace",
			"email": "ada@example.com", "registration_status": "confirmed"}}`))
	}))

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "Ada Lovelace", user.DisplayName())
	assert.Equal(t, "ada@example.com", user.Email)
}

func TestClient_UnauthorizedMapsToSentinel(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.CurrentUser(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestClient_ServerErrorMapsToUnavailable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.Expenses(context.Background(), model.ExpenseFilter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUpstreamUnavailable)
}

func TestClient_ExpensesFilterParams(t *testing.T) {
	groupID := int64(7)
	after := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get_expenses", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "7", q.Get("group_id"))
		assert.Equal(t, "2026-08-01T00:00:00Z", q.Get("dated_after"))
		assert.Equal(t, "25", q.Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"expenses": [
			{"id": 1, "group_id": 7, "description": "Groceries", "cost": "25.00",
			 "currency_code": "USD", "date": "2026-08-15T12:00:00Z",
			 "category": {"id": 12, "name": "Groceries"},
			 "users": [{"user": {"id": 42}, "paid_share": "25.00", "owed_share": "12.50"}]},
			{"id": 2, "group_id": 7, "description": "Gone", "cost": "5.00",
			 "currency_code": "USD", "date": "2026-08-10T12:00:00Z",
			 "deleted_at": "2026-08-11T08:00:00Z", "category": {"id": 0, "name": ""}}
		]}`))
	}))

	expenses, err := client.Expenses(context.Background(), model.ExpenseFilter{
		GroupID:    &groupID,
		DatedAfter: &after,
		Limit:      25,
	})
	require.NoError(t, err)
	require.Len(t, expenses, 2)

	assert.Equal(t, "Groceries", expenses[0].Description)
	assert.Equal(t, int64(12), expenses[0].CategoryID)
	require.Len(t, expenses[0].Shares, 1)
	assert.Equal(t, int64(42), expenses[0].Shares[0].UserID)
	assert.False(t, expenses[0].Deleted())

	assert.True(t, expenses[1].Deleted())
}

func TestClient_CreateExpenseFlattensShares(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/create_expense", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"expenses": [{"id": 99, "description": "Dinner", "cost": "30.00",
			"currency_code": "USD", "date": "2026-08-20T19:00:00Z",
			"category": {"id": 13, "name": "Dining out"}}], "errors": {}}`))
	}))

	created, err := client.CreateExpense(context.Background(), model.NewExpense{
		Cost:        "30.00",
		Description: "Dinner",
		Shares: []model.ExpenseShare{
			{UserID: 42, PaidShare: "30.00", OwedShare: "15.00"},
			{UserID: 43, PaidShare: "0.00", OwedShare: "15.00"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(99), created.ID)

	assert.Equal(t, "30.00", body["cost"])
	assert.Equal(t, float64(42), body["users__0__user_id"])
	assert.Equal(t, "15.00", body["users__0__owed_share"])
	assert.Equal(t, float64(43), body["users__1__user_id"])
	_, hasSplitEqually := body["split_equally"]
	assert.False(t, hasSplitEqually, "explicit shares must not request an equal split")
}

func TestClient_CreateExpenseEqualSplitDefault(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"expenses": [{"id": 1, "cost": "10.00",
			"date": "2026-08-20T19:00:00Z", "category": {"id": 0, "name": ""}}], "errors": {}}`))
	}))

	_, err := client.CreateExpense(context.Background(), model.NewExpense{Cost: "10.00", Description: "Taxi"})
	require.NoError(t, err)
	assert.Equal(t, true, body["split_equally"])
}

func TestClient_CreateExpenseErrorsBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Upstream reports failures with a 200 and a populated errors object.
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"expenses": [], "errors": {"base": ["User is not in your friends list"]}}`))
	}))

	_, err := client.CreateExpense(context.Background(), model.NewExpense{Cost: "10.00", Description: "Taxi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in your friends list")
}

func TestClient_DeleteExpense(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/delete_expense/5", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "errors": {}}`))
	}))

	require.NoError(t, client.DeleteExpense(context.Background(), 5))
}

func TestClient_DeleteExpenseFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false, "errors": {}}`))
	}))

	err := client.DeleteExpense(context.Background(), 5)
	assert.Error(t, err)
}

func TestClient_GroupMembers(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get_group/3", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"group": {"id": 3, "name": "Flat", "group_type": "apartment",
			"members": [{"id": 42, "first_name": "Ada"}, {"id": 43, "first_name": "Grace"}]}}`))
	}))

	group, err := client.Group(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Flat", group.Name)
	require.Len(t, group.Members, 2)
	assert.Equal(t, "Grace", group.Members[1].FirstName)
}

func TestClient_FriendsBalances(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"friends": [{"id": 43, "first_name": "Grace", "last_name": "Hopper",
			"balance": [{"currency_code": "USD", "amount": "-12.50"}]}]}`))
	}))

	friends, err := client.Friends(context.Background())
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "Grace Hopper", friends[0].DisplayName())
	require.Len(t, friends[0].Balances, 1)
	assert.Equal(t, "-12.50", friends[0].Balances[0].Amount)
}

func TestClient_CommentsRoundTrip(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/create_comment":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(5), body["expense_id"])
			_, _ = w.Write([]byte(`{"comment": {"id": 9, "content": "paid in cash",
				"relation_id": 5, "user": {"id": 42, "first_name": "Ada"}}, "errors": {}}`))
		case "/get_comments":
			assert.Equal(t, "5", r.URL.Query().Get("expense_id"))
			_, _ = w.Write([]byte(`{"comments": [{"id": 9, "content": "paid in cash", "relation_id": 5,
				"user": {"id": 42, "first_name": "Ada"}}]}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	ctx := context.Background()
	created, err := client.CreateComment(ctx, 5, "paid in cash")
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ExpenseID)
	assert.Equal(t, "Ada", created.AuthorName)

	comments, err := client.Comments(ctx, 5)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "paid in cash", comments[0].Content)
}

func TestClient_CategoriesTree(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"categories": [
			{"id": 1, "name": "Food and drink", "subcategories": [
				{"id": 12, "name": "Groceries"}, {"id": 13, "name": "Dining out"}]}]}`))
	}))

	categories, err := client.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Food and drink", categories[0].Name)
	require.Len(t, categories[0].Subcategories, 2)
	assert.Equal(t, "Dining out", categories[0].Subcategories[1].Name)
}
