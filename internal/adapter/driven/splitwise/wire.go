package splitwise

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/akaul/splitgate/internal/domain/model"
)

// Wire types mirror the upstream JSON shapes; mapping functions convert
// them to domain model types at the adapter boundary.

// wireErrors is the "errors" object the upstream includes in mutation
// responses. The upstream returns 200 even on failures, so every mutation
// checks this before trusting the payload.
type wireErrors map[string]any

func (e wireErrors) check(op string) error {
	if len(e) == 0 {
		return nil
	}

	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, e[k]))
	}
	return fmt.Errorf("%s: upstream rejected request: %s", op, strings.Join(parts, "; "))
}

type wireUser struct {
	ID                 int64  `json:"id"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Email              string `json:"email"`
	RegistrationStatus string `json:"registration_status"`
	Picture            struct {
		Medium string `json:"medium"`
	} `json:"picture"`
}

func mapUser(u wireUser) model.User {
	return model.User{
		ID:                u.ID,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Email:             u.Email,
		RegistrationState: u.RegistrationStatus,
		PictureURL:        u.Picture.Medium,
	}
}

type wireExpenseUser struct {
	User      wireUser `json:"user"`
	UserID    int64    `json:"user_id"`
	PaidShare string   `json:"paid_share"`
	OwedShare string   `json:"owed_share"`
}

type wireExpense struct {
	ID           int64             `json:"id"`
	GroupID      int64             `json:"group_id"`
	Description  string            `json:"description"`
	Cost         string            `json:"cost"`
	CurrencyCode string            `json:"currency_code"`
	Date         time.Time         `json:"date"`
	Payment      bool              `json:"payment"`
	DeletedAt    *time.Time        `json:"deleted_at"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Users        []wireExpenseUser `json:"users"`
	Category     struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"category"`
}

func mapExpense(e wireExpense) model.Expense {
	shares := make([]model.ExpenseShare, 0, len(e.Users))
	for _, u := range e.Users {
		userID := u.UserID
		if userID == 0 {
			userID = u.User.ID
		}
		shares = append(shares, model.ExpenseShare{
			UserID:    userID,
			PaidShare: u.PaidShare,
			OwedShare: u.OwedShare,
		})
	}

	return model.Expense{
		ID:           e.ID,
		GroupID:      e.GroupID,
		Description:  e.Description,
		Cost:         e.Cost,
		CurrencyCode: e.CurrencyCode,
		Date:         e.Date,
		CategoryID:   e.Category.ID,
		CategoryName: e.Category.Name,
		Payment:      e.Payment,
		DeletedAt:    e.DeletedAt,
		Shares:       shares,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

type wireGroup struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	GroupType         string     `json:"group_type"`
	SimplifyByDefault bool       `json:"simplify_by_default"`
	Members           []wireUser `json:"members"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func mapGroup(g wireGroup) model.Group {
	members := make([]model.User, 0, len(g.Members))
	for _, m := range g.Members {
		members = append(members, mapUser(m))
	}

	return model.Group{
		ID:                g.ID,
		Name:              g.Name,
		GroupType:         g.GroupType,
		SimplifyByDefault: g.SimplifyByDefault,
		Members:           members,
		UpdatedAt:         g.UpdatedAt,
	}
}

type wireBalance struct {
	CurrencyCode string `json:"currency_code"`
	Amount       string `json:"amount"`
}

type wireFriend struct {
	wireUser
	Balance []wireBalance `json:"balance"`
}

func mapFriend(f wireFriend) model.Friend {
	balances := make([]model.Balance, 0, len(f.Balance))
	for _, b := range f.Balance {
		balances = append(balances, model.Balance{CurrencyCode: b.CurrencyCode, Amount: b.Amount})
	}
	return model.Friend{User: mapUser(f.wireUser), Balances: balances}
}

type wireComment struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	RelationID int64     `json:"relation_id"`
	CreatedAt  time.Time `json:"created_at"`
	User       wireUser  `json:"user"`
}

func mapComment(c wireComment) model.Comment {
	return model.Comment{
		ID:         c.ID,
		ExpenseID:  c.RelationID,
		Content:    c.Content,
		AuthorName: mapUser(c.User).DisplayName(),
		CreatedAt:  c.CreatedAt,
	}
}

type wireCategory struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Subcategories []wireCategory `json:"subcategories"`
}

func mapCategory(c wireCategory) model.Category {
	subs := make([]model.Category, 0, len(c.Subcategories))
	for _, s := range c.Subcategories {
		subs = append(subs, mapCategory(s))
	}
	return model.Category{ID: c.ID, Name: c.Name, Subcategories: subs}
}

type wireCurrency struct {
	CurrencyCode string `json:"currency_code"`
	Unit         string `json:"unit"`
}
