package perf

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbooks/internal/ledger"
	"github.com/odyssey-erp/ledgerbooks/internal/reports"
)

var (
	periodStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
)

func syntheticAccounts() []ledger.Account {
	accounts := []ledger.Account{
		{Code: "0900", Name: "Operating Bank", Type: ledger.AccountAsset, IsActive: true},
		{Code: "610", Name: "Accounts Receivable", Type: ledger.AccountAsset, IsActive: true},
		{Code: "800", Name: "Accounts Payable", Type: ledger.AccountLiability, IsActive: true},
	}
	for i := 0; i < 20; i++ {
		accounts = append(accounts,
			ledger.Account{Code: fmt.Sprintf("2%02d", i), Name: fmt.Sprintf("Revenue %d", i), Type: ledger.AccountRevenue, IsActive: true},
			ledger.Account{Code: fmt.Sprintf("4%02d", i), Name: fmt.Sprintf("Expense %d", i), Type: ledger.AccountExpense, IsActive: true},
		)
	}
	return accounts
}

func syntheticLines(n int, prefix string) []ledger.Row {
	statuses := []ledger.Status{ledger.StatusPaid, ledger.StatusUnpaid, ledger.StatusOverdue, ledger.StatusDraft}
	rows := make([]ledger.Row, n)
	for i := range rows {
		date := periodStart.AddDate(0, 0, i%365)
		rows[i] = ledger.Row{
			SourceID:    fmt.Sprintf("%s-%d", prefix, i/3),
			Reference:   fmt.Sprintf("%s-%05d", prefix, i/3),
			Date:        date,
			DueDate:     date.AddDate(0, 0, 30),
			Amount:      decimal.NewFromInt(int64(100 + i%900)),
			AccountCode: fmt.Sprintf("%s%02d", prefix, i%20),
			ContactName: fmt.Sprintf("Contact %d", i%150),
			Status:      statuses[i%len(statuses)],
		}
	}
	return rows
}

func syntheticBank(n int) []ledger.Row {
	descriptions := []string{"Customer payment", "Rent", "Loan repayment", "Equipment purchase", "Payroll"}
	rows := make([]ledger.Row, n)
	for i := range rows {
		amount := decimal.NewFromInt(int64(50 + i%500))
		if i%2 == 1 {
			amount = amount.Neg()
		}
		rows[i] = ledger.Row{
			SourceID:    fmt.Sprintf("txn-%d", i),
			Date:        periodStart.AddDate(0, 0, i%365),
			Amount:      amount,
			AccountCode: "0900",
			Description: descriptions[i%len(descriptions)],
		}
	}
	return rows
}

func BenchmarkBuildProfitLoss(b *testing.B) {
	accounts := syntheticAccounts()
	lines := append(syntheticLines(10000, "2"), syntheticLines(10000, "4")...)
	params := reports.PeriodParams{OrgID: uuid.New(), Start: periodStart, End: periodEnd}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reports.BuildProfitLoss(accounts, lines, params)
	}
}

func BenchmarkBuildAging(b *testing.B) {
	lines := syntheticLines(20000, "2")
	params := reports.AgingParams{OrgID: uuid.New(), ReferenceDate: periodEnd}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reports.BuildAging(reports.KindAgedReceivables, lines, params)
	}
}

func BenchmarkBuildCashFlow(b *testing.B) {
	bank := syntheticBank(20000)
	params := reports.CashFlowParams{OrgID: uuid.New(), Start: periodStart, End: periodEnd, Classifier: reports.DefaultKeywordClassifier()}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reports.BuildCashFlow(bank, params)
	}
}

func TestReportLatencyTargets(t *testing.T) {
	if testing.Short() {
		t.Skip("latency targets skipped in short mode")
	}
	accounts := syntheticAccounts()
	lines := append(syntheticLines(10000, "2"), syntheticLines(10000, "4")...)
	bank := syntheticBank(10000)
	orgID := uuid.New()

	scenarios := []struct {
		name      string
		build     func()
		threshold time.Duration
	}{
		{
			name:      "profit_loss",
			build:     func() { reports.BuildProfitLoss(accounts, lines, reports.PeriodParams{OrgID: orgID, Start: periodStart, End: periodEnd}) },
			threshold: 2 * time.Second,
		},
		{
			name:      "aged_receivables",
			build:     func() { reports.BuildAging(reports.KindAgedReceivables, lines, reports.AgingParams{OrgID: orgID, ReferenceDate: periodEnd}) },
			threshold: 2 * time.Second,
		},
		{
			name: "cash_flow",
			build: func() {
				reports.BuildCashFlow(bank, reports.CashFlowParams{OrgID: orgID, Start: periodStart, End: periodEnd, Classifier: reports.DefaultKeywordClassifier()})
			},
			threshold: 2 * time.Second,
		},
	}

	for _, scenario := range scenarios {
		samples := make([]time.Duration, 0, 10)
		for i := 0; i < 10; i++ {
			start := time.Now()
			scenario.build()
			samples = append(samples, time.Since(start))
		}
		if p95 := percentile95(samples); p95 > scenario.threshold {
			t.Fatalf("%s latency regression: p95=%s threshold=%s", scenario.name, p95, scenario.threshold)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
