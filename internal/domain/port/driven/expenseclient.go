package driven

import (
	"context"

	"github.com/akaul/splitgate/internal/domain/model"
)

// ExpenseClient defines the driven port for the upstream expense-sharing
// API, bound to a single user's credential. Read operations are safe to
// retry; mutations are not and are called exactly once per request.
type ExpenseClient interface {
	CurrentUser(ctx context.Context) (*model.User, error)
	GetUser(ctx context.Context, userID int64) (*model.User, error)

	Expenses(ctx context.Context, filter model.ExpenseFilter) ([]model.Expense, error)
	Expense(ctx context.Context, expenseID int64) (*model.Expense, error)
	CreateExpense(ctx context.Context, e model.NewExpense) (*model.Expense, error)
	UpdateExpense(ctx context.Context, expenseID int64, u model.ExpenseUpdate) (*model.Expense, error)
	DeleteExpense(ctx context.Context, expenseID int64) error

	Groups(ctx context.Context) ([]model.Group, error)
	Group(ctx context.Context, groupID int64) (*model.Group, error)
	CreateGroup(ctx context.Context, g model.NewGroup) (*model.Group, error)
	DeleteGroup(ctx context.Context, groupID int64) error
	AddGroupMember(ctx context.Context, groupID int64, member model.GroupMember) error
	RemoveGroupMember(ctx context.Context, groupID, userID int64) error

	Friends(ctx context.Context) ([]model.Friend, error)
	Friend(ctx context.Context, userID int64) (*model.Friend, error)

	CreateComment(ctx context.Context, expenseID int64, content string) (*model.Comment, error)
	Comments(ctx context.Context, expenseID int64) ([]model.Comment, error)
	DeleteComment(ctx context.Context, commentID int64) error

	Categories(ctx context.Context) ([]model.Category, error)
	Currencies(ctx context.Context) ([]model.Currency, error)
}

// ExpenseClientFactory builds an ExpenseClient bound to the given upstream
// access token. Clients are cheap; one is constructed per resolved request.
type ExpenseClientFactory func(accessToken string) ExpenseClient
