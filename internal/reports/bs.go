package reports

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbooks/internal/ledger"
)

// Chart names the accounts the balance sheet treats specially.
type Chart struct {
	BankCodePrefix       string
	ReceivableCode       string
	PayableCode          string
	RetainedEarningsCode string
}

// DefaultChart returns the standard small-business chart conventions.
func DefaultChart() Chart {
	return Chart{
		BankCodePrefix:       "090",
		ReceivableCode:       "610",
		PayableCode:          "800",
		RetainedEarningsCode: "960",
	}
}

func (c Chart) withDefaults() Chart {
	def := DefaultChart()
	if c.BankCodePrefix == "" {
		c.BankCodePrefix = def.BankCodePrefix
	}
	if c.ReceivableCode == "" {
		c.ReceivableCode = def.ReceivableCode
	}
	if c.PayableCode == "" {
		c.PayableCode = def.PayableCode
	}
	if c.RetainedEarningsCode == "" {
		c.RetainedEarningsCode = def.RetainedEarningsCode
	}
	return c
}

// IsBank reports whether code belongs to a bank account.
func (c Chart) IsBank(code string) bool {
	c = c.withDefaults()
	return strings.HasPrefix(code, c.BankCodePrefix)
}

// BalanceSheetParams parameterises a balance sheet run.
type BalanceSheetParams struct {
	OrgID uuid.UUID
	AsOf  time.Time
	Chart Chart
}

// BuildBalanceSheet computes balances as of AsOf. Bank accounts carry the sum
// of their signed transactions; the receivable and payable accounts carry
// open invoices and bills; other asset and liability accounts are zero.
// Equity is the residual assets - liabilities attributed to the retained
// earnings account, so assets == liabilities + equity always holds.
func BuildBalanceSheet(accounts []ledger.Account, invoiceLines, billLines, bankRows []ledger.Row, params BalanceSheetParams) Result {
	asOf := Day(params.AsOf)
	chart := params.Chart.withDefaults()

	receivable := outstandingAsOf(invoiceLines, asOf)
	payable := outstandingAsOf(billLines, asOf)

	bankUpTo := make([]ledger.Row, 0, len(bankRows))
	for _, row := range bankRows {
		if !Day(row.Date).After(asOf) {
			bankUpTo = append(bankUpTo, row)
		}
	}
	bankBalances := SumBy(bankUpTo, func(row ledger.Row) string { return row.AccountCode })

	retainedName := "Retained Earnings"
	var assets, liabilities []Entry
	for _, acc := range sortedAccounts(accounts) {
		if acc.Code == chart.RetainedEarningsCode && acc.Name != "" {
			retainedName = acc.Name
		}
		if !acc.IsActive {
			continue
		}
		amount := decimal.Zero
		switch {
		case chart.IsBank(acc.Code):
			amount = bankBalances[acc.Code]
		case acc.Code == chart.ReceivableCode:
			amount = receivable
		case acc.Code == chart.PayableCode:
			amount = payable
		}
		entry := Entry{Code: acc.Code, Name: acc.Name, Amount: amount}
		switch acc.Type {
		case ledger.AccountAsset:
			assets = append(assets, entry)
		case ledger.AccountLiability:
			liabilities = append(liabilities, entry)
		}
	}

	assetSection := NewSection("assets", "Assets", assets)
	liabilitySection := NewSection("liabilities", "Liabilities", liabilities)
	equitySection := NewSection("equity", "Equity", []Entry{{
		Code:   chart.RetainedEarningsCode,
		Name:   retainedName,
		Amount: assetSection.Total.Sub(liabilitySection.Total),
	}})

	return Result{
		Kind:     KindBalanceSheet,
		OrgID:    params.OrgID,
		AsOf:     asOf,
		Sections: []Section{assetSection, liabilitySection, equitySection},
		Figures: []Figure{
			{Key: FigureTotalAssets, Label: "Total Assets", Amount: assetSection.Total},
			{Key: FigureTotalLiabilities, Label: "Total Liabilities", Amount: liabilitySection.Total},
			{Key: FigureTotalEquity, Label: "Total Equity", Amount: equitySection.Total},
		},
	}
}

func outstandingAsOf(lines []ledger.Row, asOf time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, doc := range ledger.Documents(lines) {
		if !doc.Status.Outstanding() || Day(doc.IssueDate).After(asOf) {
			continue
		}
		total = total.Add(doc.Total)
	}
	return total
}
