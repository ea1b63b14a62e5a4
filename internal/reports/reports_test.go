package reports

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbooks/internal/ledger"
)

func line(doc, code string, status ledger.Status, issue, due string, amount string) ledger.Row {
	return ledger.DocumentLine{
		DocumentID:  doc,
		Number:      strings.ToUpper(doc),
		IssueDate:   mustDate(issue),
		DueDate:     mustDate(due),
		Status:      status,
		ContactName: "Contact " + doc,
		AccountCode: code,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   dec(amount),
	}.Row()
}

func bank(code, dir, on, amount, desc string) ledger.Row {
	return ledger.BankTransaction{
		ID:          desc + on,
		Date:        mustDate(on),
		AccountCode: code,
		Type:        ledger.Direction(dir),
		Amount:      dec(amount),
		Description: desc,
		Reference:   "REF-" + on,
	}.Row()
}

func mustDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return parsed
}

func assertSectionTotals(t *testing.T, result Result) {
	t.Helper()
	for _, section := range result.Sections {
		sum := decimal.Zero
		for _, entry := range section.Entries {
			sum = sum.Add(entry.Amount)
		}
		if !sum.Equal(section.Total) {
			t.Fatalf("section %s: entries sum %s != total %s", section.Key, sum, section.Total)
		}
	}
}

func figure(t *testing.T, result Result, key string) decimal.Decimal {
	t.Helper()
	v, ok := result.Figure(key)
	if !ok {
		t.Fatalf("figure %s missing", key)
	}
	return v
}

func section(t *testing.T, result Result, key string) Section {
	t.Helper()
	s, ok := result.Section(key)
	if !ok {
		t.Fatalf("section %s missing", key)
	}
	return s
}

func TestBuildProfitLossScenario(t *testing.T) {
	accounts := []ledger.Account{
		{Code: "400", Name: "Sales", Type: ledger.AccountRevenue, IsActive: true},
		{Code: "500", Name: "Rent", Type: ledger.AccountExpense, IsActive: true},
		{Code: "090", Name: "Bank", Type: ledger.AccountAsset, IsActive: true},
	}
	lines := []ledger.Row{
		line("inv1", "400", ledger.StatusPaid, "2024-03-10", "2024-04-10", "1000"),
		line("inv2", "400", ledger.StatusDraft, "2024-03-11", "2024-04-11", "999"),
		line("inv3", "400", ledger.StatusUnpaid, "2024-05-01", "2024-05-30", "250"),
		line("bill1", "500", ledger.StatusUnpaid, "2024-03-15", "2024-04-15", "400"),
	}
	result := BuildProfitLoss(accounts, lines, PeriodParams{OrgID: uuid.New(), Start: date(2024, 3, 1), End: date(2024, 3, 31)})

	assertSectionTotals(t, result)
	if got := section(t, result, "revenue").Total; !got.Equal(dec("1000")) {
		t.Fatalf("revenue total %s", got)
	}
	if got := section(t, result, "expenses").Total; !got.Equal(dec("400")) {
		t.Fatalf("expense total %s", got)
	}
	if got := figure(t, result, FigureNetProfit); !got.Equal(dec("600")) {
		t.Fatalf("net profit %s", got)
	}
	if got := figure(t, result, FigureProfitMargin); !got.Equal(dec("60.0")) {
		t.Fatalf("profit margin %s", got)
	}
}

func TestBuildProfitLossZeroRevenueMargin(t *testing.T) {
	accounts := []ledger.Account{{Code: "500", Name: "Rent", Type: ledger.AccountExpense, IsActive: true}}
	lines := []ledger.Row{line("b", "500", ledger.StatusPaid, "2024-03-15", "", "80")}
	result := BuildProfitLoss(accounts, lines, PeriodParams{Start: date(2024, 3, 1), End: date(2024, 3, 31)})
	if got := figure(t, result, FigureProfitMargin); !got.IsZero() {
		t.Fatalf("expected zero margin, got %s", got)
	}
	if got := figure(t, result, FigureNetProfit); !got.Equal(dec("-80")) {
		t.Fatalf("net profit %s", got)
	}
}

func TestBuildProfitLossAccountSelection(t *testing.T) {
	accounts := []ledger.Account{
		{Code: "410", Name: "Other Income", Type: ledger.AccountOtherIncome, IsActive: false},
		{Code: "420", Name: "Dormant", Type: ledger.AccountRevenue, IsActive: false},
		{Code: "510", Name: "COGS", Type: ledger.AccountCOGS, IsActive: true},
		{Code: "400", Name: "Sales", Type: ledger.AccountRevenue, IsActive: true},
	}
	lines := []ledger.Row{
		line("a", "410", ledger.StatusPaid, "2024-03-02", "", "15"),
		line("b", "999", ledger.StatusPaid, "2024-03-02", "", "1000"),
	}
	result := BuildProfitLoss(accounts, lines, PeriodParams{Start: date(2024, 3, 1), End: date(2024, 3, 31)})

	revenue := section(t, result, "revenue")
	if len(revenue.Entries) != 2 || revenue.Entries[0].Code != "400" || revenue.Entries[1].Code != "410" {
		t.Fatalf("unexpected revenue entries %+v", revenue.Entries)
	}
	if !revenue.Total.Equal(dec("15")) {
		t.Fatalf("unknown account lines must be ignored, got %s", revenue.Total)
	}
	if expenses := section(t, result, "expenses"); len(expenses.Entries) != 1 || !expenses.Total.IsZero() {
		t.Fatalf("unexpected expenses %+v", expenses)
	}
}

func TestBuildProfitLossDoesNotMutateInputs(t *testing.T) {
	accounts := []ledger.Account{
		{Code: "500", Name: "Rent", Type: ledger.AccountExpense, IsActive: true},
		{Code: "400", Name: "Sales", Type: ledger.AccountRevenue, IsActive: true},
	}
	lines := []ledger.Row{line("a", "400", ledger.StatusPaid, "2024-03-02", "", "15")}
	BuildProfitLoss(accounts, lines, PeriodParams{Start: date(2024, 3, 1), End: date(2024, 3, 31)})
	if accounts[0].Code != "500" {
		t.Fatalf("accounts were reordered in place")
	}
	if !lines[0].Amount.Equal(dec("15")) {
		t.Fatalf("lines were mutated")
	}
}

func TestBuildBalanceSheetIdentity(t *testing.T) {
	accounts := []ledger.Account{
		{Code: "090", Name: "Business Bank", Type: ledger.AccountAsset, IsActive: true},
		{Code: "0901", Name: "Savings", Type: ledger.AccountAsset, IsActive: true},
		{Code: "610", Name: "Accounts Receivable", Type: ledger.AccountAsset, IsActive: true},
		{Code: "620", Name: "Prepayments", Type: ledger.AccountAsset, IsActive: true},
		{Code: "800", Name: "Accounts Payable", Type: ledger.AccountLiability, IsActive: true},
		{Code: "960", Name: "Retained Earnings", Type: ledger.AccountEquity, IsActive: true},
	}
	invoices := []ledger.Row{
		line("i1", "400", ledger.StatusUnpaid, "2024-06-01", "2024-07-01", "300"),
		line("i1", "400", ledger.StatusUnpaid, "2024-06-01", "2024-07-01", "200"),
		line("i2", "400", ledger.StatusPaid, "2024-06-02", "2024-07-02", "700"),
		line("i3", "400", ledger.StatusDraft, "2024-06-03", "2024-07-03", "900"),
		line("i4", "400", ledger.StatusOverdue, "2024-07-15", "2024-08-15", "50"),
	}
	bills := []ledger.Row{
		line("b1", "500", ledger.StatusOverdue, "2024-05-01", "2024-06-01", "120"),
	}
	bankRows := []ledger.Row{
		bank("090", "credit", "2024-06-05", "1000", "Customer payment"),
		bank("090", "debit", "2024-06-06", "250", "Rent"),
		bank("0901", "credit", "2024-06-07", "40", "Interest"),
		bank("090", "credit", "2024-07-05", "999", "Later"),
	}
	result := BuildBalanceSheet(accounts, invoices, bills, bankRows, BalanceSheetParams{AsOf: date(2024, 6, 30)})

	assertSectionTotals(t, result)
	assets := section(t, result, "assets")
	liabilities := section(t, result, "liabilities")
	equity := section(t, result, "equity")

	want := map[string]string{"090": "750", "0901": "40", "610": "500", "620": "0"}
	for _, entry := range assets.Entries {
		if !entry.Amount.Equal(dec(want[entry.Code])) {
			t.Fatalf("asset %s: want %s got %s", entry.Code, want[entry.Code], entry.Amount)
		}
	}
	if !liabilities.Total.Equal(dec("120")) {
		t.Fatalf("liabilities total %s", liabilities.Total)
	}
	if !assets.Total.Equal(liabilities.Total.Add(equity.Total)) {
		t.Fatalf("identity broken: %s != %s + %s", assets.Total, liabilities.Total, equity.Total)
	}
	if len(equity.Entries) != 1 || equity.Entries[0].Code != "960" || !equity.Total.Equal(dec("1170")) {
		t.Fatalf("unexpected equity %+v", equity)
	}
}

func TestBuildBalanceSheetNoAccounts(t *testing.T) {
	result := BuildBalanceSheet(nil, nil, nil, nil, BalanceSheetParams{AsOf: date(2024, 6, 30)})
	assertSectionTotals(t, result)
	for _, key := range []string{"assets", "liabilities", "equity"} {
		if total := section(t, result, key).Total; !total.IsZero() {
			t.Fatalf("%s total should be zero, got %s", key, total)
		}
	}
	if !figure(t, result, FigureTotalEquity).IsZero() {
		t.Fatalf("equity figure should be zero")
	}
}

func TestBuildBalanceSheetCustomChart(t *testing.T) {
	accounts := []ledger.Account{
		{Code: "1000", Name: "Cheque", Type: ledger.AccountAsset, IsActive: true},
		{Code: "3000", Name: "Owner Equity", Type: ledger.AccountEquity, IsActive: true},
	}
	chart := Chart{BankCodePrefix: "10", RetainedEarningsCode: "3000"}
	result := BuildBalanceSheet(accounts, nil, nil, []ledger.Row{bank("1000", "credit", "2024-01-01", "10", "x")}, BalanceSheetParams{AsOf: date(2024, 1, 1), Chart: chart})
	equity := section(t, result, "equity")
	if equity.Entries[0].Name != "Owner Equity" || !equity.Total.Equal(dec("10")) {
		t.Fatalf("unexpected equity %+v", equity)
	}
}

func TestBuildCashFlowClassification(t *testing.T) {
	rows := []ledger.Row{
		bank("090", "credit", "2024-03-05", "1200", "Invoice INV-1 payment"),
		bank("090", "credit", "2024-03-01", "5000", "Bank LOAN drawdown"),
		bank("090", "debit", "2024-03-10", "3000", "Purchase of equipment"),
		bank("090", "debit", "2024-03-12", "80", "Coffee"),
		bank("090", "debit", "2024-03-20", "500", "Owner drawings"),
		bank("090", "credit", "2024-04-01", "999", "Invoice out of range"),
	}
	result := BuildCashFlow(rows, CashFlowParams{Start: date(2024, 3, 1), End: date(2024, 3, 31)})

	assertSectionTotals(t, result)
	want := map[string]string{"operating": "1120", "investing": "-3000", "financing": "4500"}
	for key, total := range want {
		if got := section(t, result, key).Total; !got.Equal(dec(total)) {
			t.Fatalf("%s: want %s got %s", key, total, got)
		}
	}
	if got := figure(t, result, FigureNetCashFlow); !got.Equal(dec("2620")) {
		t.Fatalf("net cash flow %s", got)
	}
	if got := figure(t, result, FigureCashOut); !got.Equal(dec("3580")) {
		t.Fatalf("cash out %s", got)
	}
	if len(result.Series) != 31 {
		t.Fatalf("expected daily series, got %d points", len(result.Series))
	}
	if last := result.Series[len(result.Series)-1]; !last.Running.Equal(dec("2620")) {
		t.Fatalf("running total should end at net cash flow, got %s", last.Running)
	}
}

func TestBuildCashFlowOperatingTermsWin(t *testing.T) {
	row := ledger.Row{Description: "Tax on equipment"}
	if got := DefaultKeywordClassifier().Classify(row); got != ActivityOperating {
		t.Fatalf("expected operating, got %s", got)
	}
	row.Description = "Equity injection for vehicle"
	if got := DefaultKeywordClassifier().Classify(row); got != ActivityFinancing {
		t.Fatalf("expected financing, got %s", got)
	}
}

func TestBuildCashFlowPluggableClassifier(t *testing.T) {
	rows := []ledger.Row{bank("090", "credit", "2024-03-05", "10", "anything")}
	result := BuildCashFlow(rows, CashFlowParams{
		Start: date(2024, 3, 1),
		End:   date(2024, 3, 31),
		Classifier: ClassifierFunc(func(ledger.Row) Activity {
			return ActivityInvesting
		}),
	})
	if got := section(t, result, "investing").Total; !got.Equal(dec("10")) {
		t.Fatalf("classifier not used, investing total %s", got)
	}
}

func TestBuildAgingScenario(t *testing.T) {
	lines := []ledger.Row{
		line("inv1", "400", ledger.StatusUnpaid, "2024-05-01", "2024-06-01", "500"),
	}
	result := BuildAging(KindAgedReceivables, lines, AgingParams{ReferenceDate: date(2024, 6, 30)})
	bucket := section(t, result, string(Bucket1To30))
	if len(bucket.Entries) != 1 || bucket.Entries[0].Detail.DaysOverdue != 29 {
		t.Fatalf("unexpected bucket %+v", bucket)
	}
	if got := figure(t, result, FigureTotalOutstanding); !got.Equal(dec("500")) {
		t.Fatalf("total outstanding %s", got)
	}
}

func TestBuildAgingPartitionsDocuments(t *testing.T) {
	lines := []ledger.Row{
		line("a", "400", ledger.StatusUnpaid, "2024-01-01", "2024-07-10", "100"),
		line("b", "400", ledger.StatusOverdue, "2024-01-01", "2024-06-30", "10"),
		line("c", "400", ledger.StatusOverdue, "2024-01-01", "2024-05-31", "20"),
		line("c", "400", ledger.StatusOverdue, "2024-01-01", "2024-05-31", "5"),
		line("d", "400", ledger.StatusOverdue, "2024-01-01", "2024-05-01", "30"),
		line("e", "400", ledger.StatusOverdue, "2024-01-01", "2024-04-01", "40"),
		line("f", "400", ledger.StatusOverdue, "2024-01-01", "2024-01-01", "50"),
		line("g", "400", ledger.StatusOverdue, "2024-01-01", "2024-02-01", "60"),
		line("h", "400", ledger.StatusPaid, "2024-01-01", "2024-02-01", "1000"),
		line("i", "400", ledger.StatusDraft, "2024-01-01", "2024-02-01", "1000"),
	}
	result := BuildAging(KindAgedPayables, lines, AgingParams{ReferenceDate: date(2024, 6, 30)})
	assertSectionTotals(t, result)

	if len(result.Sections) != len(AgingBuckets) {
		t.Fatalf("expected %d buckets, got %d", len(AgingBuckets), len(result.Sections))
	}
	docs := 0
	sum := decimal.Zero
	for i, s := range result.Sections {
		if s.Key != string(AgingBuckets[i]) {
			t.Fatalf("bucket order broken at %d: %s", i, s.Key)
		}
		docs += len(s.Entries)
		sum = sum.Add(s.Total)
	}
	if docs != 7 || !figure(t, result, FigureDocumentCount).Equal(decimal.NewFromInt(7)) {
		t.Fatalf("expected 7 outstanding documents, got %d", docs)
	}
	if !sum.Equal(figure(t, result, FigureTotalOutstanding)) || !sum.Equal(dec("315")) {
		t.Fatalf("bucket totals %s do not match outstanding", sum)
	}

	current := section(t, result, string(BucketCurrent))
	if len(current.Entries) != 2 || current.Entries[0].Code != "B" || current.Entries[1].Code != "A" {
		t.Fatalf("current bucket should list most overdue first: %+v", current.Entries)
	}
	over := section(t, result, string(BucketOver90))
	if len(over.Entries) != 2 || over.Entries[0].Code != "F" {
		t.Fatalf("over-90 bucket should start with F: %+v", over.Entries)
	}
	if c := section(t, result, string(Bucket1To30)); len(c.Entries) != 1 || !c.Total.Equal(dec("25")) {
		t.Fatalf("multi-line document not combined: %+v", c)
	}
}

func TestResultCloneIsDeep(t *testing.T) {
	lines := []ledger.Row{line("a", "400", ledger.StatusUnpaid, "2024-01-01", "2024-02-01", "100")}
	original := BuildAging(KindAgedReceivables, lines, AgingParams{ReferenceDate: date(2024, 6, 30)})
	clone := original.Clone()
	clone.Sections[4].Entries[0].Detail.DaysOverdue = -1
	clone.Sections[4].Entries[0].Amount = dec("1")
	clone.Figures[0].Amount = dec("1")

	entry := original.Sections[4].Entries[0]
	if entry.Detail.DaysOverdue == -1 || !entry.Amount.Equal(dec("100")) || !original.Figures[0].Amount.Equal(dec("100")) {
		t.Fatalf("clone shares state with original")
	}
}
