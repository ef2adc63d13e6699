package application

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/akaul/splitgate/internal/domain/model"
	"github.com/akaul/splitgate/internal/domain/port/driven"
)

// SummaryService aggregates a user's current-month spending into the text
// used by the daily_summary job.
type SummaryService struct {
	now func() time.Time
}

// NewSummaryService creates a SummaryService.
func NewSummaryService() *SummaryService {
	return &SummaryService{now: time.Now}
}

// monthTotals accumulates one user's month per currency and per category.
type monthTotals struct {
	count      int
	byCurrency map[string]float64
	byCategory map[string]float64
}

// MonthlySummary renders the current-month spending recap for the user the
// client is bound to. Returns "" when the month has no expenses, so callers
// can skip delivery.
func (s *SummaryService) MonthlySummary(ctx context.Context, client driven.ExpenseClient) (string, error) {
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	expenses, err := client.Expenses(ctx, model.ExpenseFilter{
		DatedAfter: &monthStart,
		Limit:      200,
	})
	if err != nil {
		return "", fmt.Errorf("fetch month expenses: %w", err)
	}

	totals := aggregate(expenses)
	if totals.count == 0 {
		return "", nil
	}
	return render(totals, now), nil
}

// aggregate tallies non-deleted, non-payment expenses. Settlement payments
// move money between members without being spending, so they are skipped.
func aggregate(expenses []model.Expense) monthTotals {
	totals := monthTotals{
		byCurrency: make(map[string]float64),
		byCategory: make(map[string]float64),
	}

	for _, e := range expenses {
		if e.Deleted() || e.Payment {
			continue
		}

		cost, err := strconv.ParseFloat(e.Cost, 64)
		if err != nil {
			continue
		}

		totals.count++
		totals.byCurrency[e.CurrencyCode] += cost
		category := e.CategoryName
		if category == "" {
			category = "Uncategorized"
		}
		totals.byCategory[category] += cost
	}

	return totals
}

func render(totals monthTotals, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily Summary (%s)\n", now.Format("02 Jan 2006"))
	fmt.Fprintf(&b, "This month: %d expenses, total: %s", totals.count, formatTotals(totals.byCurrency))

	if len(totals.byCategory) > 0 {
		b.WriteString("\n\nBy category:")
		type catAmount struct {
			name   string
			amount float64
		}
		categories := make([]catAmount, 0, len(totals.byCategory))
		for name, amount := range totals.byCategory {
			categories = append(categories, catAmount{name, amount})
		}
		sort.Slice(categories, func(i, j int) bool {
			if categories[i].amount != categories[j].amount {
				return categories[i].amount > categories[j].amount
			}
			return categories[i].name < categories[j].name
		})
		for _, c := range categories {
			fmt.Fprintf(&b, "\n  %s: %.2f", c.name, c.amount)
		}
	}

	return b.String()
}

// formatTotals renders per-currency totals, largest first, as
// "12.50 USD, 3.00 EUR".
func formatTotals(byCurrency map[string]float64) string {
	type curAmount struct {
		code   string
		amount float64
	}
	currencies := make([]curAmount, 0, len(byCurrency))
	for code, amount := range byCurrency {
		currencies = append(currencies, curAmount{code, amount})
	}
	sort.Slice(currencies, func(i, j int) bool {
		if currencies[i].amount != currencies[j].amount {
			return currencies[i].amount > currencies[j].amount
		}
		return currencies[i].code < currencies[j].code
	})

	parts := make([]string, 0, len(currencies))
	for _, c := range currencies {
		parts = append(parts, fmt.Sprintf("%.2f %s", c.amount, c.code))
	}
	return strings.Join(parts, ", ")
}
