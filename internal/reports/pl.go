package reports

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbooks/internal/ledger"
)

var hundred = decimal.NewFromInt(100)

// PeriodParams bounds a statement by an inclusive date range.
type PeriodParams struct {
	OrgID uuid.UUID
	Start time.Time
	End   time.Time
}

// BuildProfitLoss totals invoice and bill lines per account within the
// period. Active accounts always appear; inactive ones only when they carry
// activity. Draft documents and lines posted to unknown accounts are ignored.
func BuildProfitLoss(accounts []ledger.Account, lines []ledger.Row, params PeriodParams) Result {
	start, end := Day(params.Start), Day(params.End)

	included := make([]ledger.Row, 0, len(lines))
	for _, row := range lines {
		if row.Status == ledger.StatusDraft || !inRange(row.Date, start, end) {
			continue
		}
		included = append(included, row)
	}
	totals := SumBy(included, func(row ledger.Row) string { return row.AccountCode })

	var revenue, expenses []Entry
	for _, acc := range sortedAccounts(accounts) {
		amount, seen := totals[acc.Code]
		if !seen && !acc.IsActive {
			continue
		}
		entry := Entry{Code: acc.Code, Name: acc.Name, Amount: amount}
		switch {
		case acc.Type.Income():
			revenue = append(revenue, entry)
		case acc.Type.Cost():
			expenses = append(expenses, entry)
		}
	}

	revenueSection := NewSection("revenue", "Revenue", revenue)
	expenseSection := NewSection("expenses", "Expenses", expenses)
	net := revenueSection.Total.Sub(expenseSection.Total)

	return Result{
		Kind:      KindProfitLoss,
		OrgID:     params.OrgID,
		StartDate: start,
		EndDate:   end,
		Sections:  []Section{revenueSection, expenseSection},
		Figures: []Figure{
			{Key: FigureNetProfit, Label: "Net Profit", Amount: net},
			{Key: FigureProfitMargin, Label: "Profit Margin (%)", Amount: ProfitMargin(net, revenueSection.Total)},
		},
	}
}

// ProfitMargin returns net / revenue as a percentage rounded to 2 places, or
// zero when there is no revenue.
func ProfitMargin(net, revenue decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return net.Div(revenue).Mul(hundred).Round(2)
}

func sortedAccounts(accounts []ledger.Account) []ledger.Account {
	out := append([]ledger.Account(nil), accounts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
