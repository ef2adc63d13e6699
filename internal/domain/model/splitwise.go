package model

import (
	"strings"
	"time"
)

// User is a Splitwise account as seen through the gateway.
type User struct {
	ID                int64
	FirstName         string
	LastName          string
	Email             string
	RegistrationState string
	PictureURL        string
}

// DisplayName joins the non-empty name parts.
func (u User) DisplayName() string {
	return strings.TrimSpace(strings.Join([]string{u.FirstName, u.LastName}, " "))
}

// ExpenseShare is one user's stake in an expense. Paid and owed shares are
// decimal strings with two places, matching the upstream wire convention.
type ExpenseShare struct {
	UserID    int64
	PaidShare string
	OwedShare string
}

// Expense is a Splitwise expense record.
type Expense struct {
	ID           int64
	GroupID      int64
	Description  string
	Cost         string
	CurrencyCode string
	Date         time.Time
	CategoryID   int64
	CategoryName string
	Payment      bool
	DeletedAt    *time.Time
	Shares       []ExpenseShare
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Deleted reports whether the expense has been soft-deleted upstream.
func (e Expense) Deleted() bool {
	return e.DeletedAt != nil
}

// NewExpense is the input for creating an expense.
type NewExpense struct {
	Cost         string
	Description  string
	GroupID      int64
	CurrencyCode string
	Date         time.Time // zero value means "now"
	CategoryID   int64
	Shares       []ExpenseShare // empty means split equally by the upstream default
}

// ExpenseUpdate carries the fields to change on an existing expense.
// Nil fields are left untouched.
type ExpenseUpdate struct {
	Cost        *string
	Description *string
	Date        *time.Time
	CategoryID  *int64
	Shares      []ExpenseShare
}

// ExpenseFilter narrows an expense listing.
type ExpenseFilter struct {
	GroupID     *int64
	FriendID    *int64
	DatedAfter  *time.Time
	DatedBefore *time.Time
	Limit       int
	Offset      int
}

// Group is a Splitwise group with its members.
type Group struct {
	ID                int64
	Name              string
	GroupType         string
	SimplifyByDefault bool
	Members           []User
	UpdatedAt         time.Time
}

// NewGroup is the input for creating a group.
type NewGroup struct {
	Name              string
	GroupType         string
	SimplifyByDefault bool
	Members           []GroupMember
}

// GroupMember identifies a user to include in a new group, by id or by email.
type GroupMember struct {
	UserID    int64
	Email     string
	FirstName string
	LastName  string
}

// Balance is an outstanding amount in one currency.
type Balance struct {
	CurrencyCode string
	Amount       string
}

// Friend is a Splitwise friend with current balances.
type Friend struct {
	User
	Balances []Balance
}

// Comment is a note attached to an expense.
type Comment struct {
	ID         int64
	ExpenseID  int64
	Content    string
	AuthorName string
	CreatedAt  time.Time
}

// Category is an expense category; top-level categories carry subcategories.
type Category struct {
	ID            int64
	Name          string
	Subcategories []Category
}

// Currency is a supported currency code and its display unit.
type Currency struct {
	Code string
	Unit string
}
