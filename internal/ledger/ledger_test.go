package ledger

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	_ "github.com/odyssey-erp/ledgerbooks/testing"
)

func TestDocumentLineAmountIncludesTax(t *testing.T) {
	line := DocumentLine{
		Quantity:  decimal.NewFromInt(3),
		UnitPrice: decimal.RequireFromString("12.50"),
		TaxAmount: decimal.RequireFromString("3.75"),
	}
	if got := line.Amount(); !got.Equal(decimal.RequireFromString("41.25")) {
		t.Fatalf("unexpected amount %s", got)
	}
	var empty DocumentLine
	if !empty.Amount().IsZero() {
		t.Fatalf("missing amounts should sum as zero, got %s", empty.Amount())
	}
}

func TestBankTransactionSigned(t *testing.T) {
	credit := BankTransaction{Type: DirectionCredit, Amount: decimal.NewFromInt(100)}
	debit := BankTransaction{Type: DirectionDebit, Amount: decimal.NewFromInt(40)}
	if !credit.Row().Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("credit should be positive, got %s", credit.Row().Amount)
	}
	if !debit.Row().Amount.Equal(decimal.NewFromInt(-40)) {
		t.Fatalf("debit should be negative, got %s", debit.Row().Amount)
	}
	if debit.Row().Direction != DirectionDebit {
		t.Fatalf("direction not carried over")
	}
}

func TestDocumentsGroupsLinesInOrder(t *testing.T) {
	issue := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := LineRows([]DocumentLine{
		{DocumentID: "b", Number: "INV-2", IssueDate: issue, Status: StatusUnpaid, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
		{DocumentID: "a", Number: "INV-1", IssueDate: issue, Status: StatusPaid, Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(5)},
		{DocumentID: "b", Number: "INV-2", IssueDate: issue, Status: StatusUnpaid, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(7)},
	})
	docs := Documents(rows)
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != "b" || docs[0].Lines != 2 || !docs[0].Total.Equal(decimal.NewFromInt(17)) {
		t.Fatalf("unexpected first document %+v", docs[0])
	}
	if docs[1].Number != "INV-1" || !docs[1].Total.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected second document %+v", docs[1])
	}
}

func TestStatusOutstanding(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusDraft:   false,
		StatusUnpaid:  true,
		StatusOverdue: true,
		StatusPaid:    false,
	} {
		if status.Outstanding() != want {
			t.Fatalf("%s: expected outstanding=%v", status, want)
		}
	}
}

func TestAccountsQuery(t *testing.T) {
	repo := NewRepository(nil)
	org := uuid.New()

	sql, args, err := repo.accountsQuery(org, Filter{ActiveOnly: true}).ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}
	want := "SELECT code, name, type, is_active FROM accounts WHERE org_id = $1 AND is_active = $2 ORDER BY code"
	if sql != want {
		t.Fatalf("SQL mismatch\nwant: %s\ngot:  %s", want, sql)
	}
	if len(args) != 2 || args[0] != org || args[1] != true {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestLinesQueryFilters(t *testing.T) {
	repo := NewRepository(nil)
	org := uuid.New()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	filter := Between(from, to)
	filter.Statuses = OutstandingStatuses
	filter.ExcludeDraft = true
	sql, args, err := repo.linesQuery(billTables, org, filter).ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}
	for _, fragment := range []string{
		"FROM bills d",
		"JOIN bill_line_items li ON li.bill_id = d.id",
		"d.org_id = $1",
		"d.issue_date >= $2",
		"d.issue_date <= $3",
		"d.status IN ($4,$5)",
		"d.status <> $6",
		"ORDER BY d.issue_date, d.number, li.id",
	} {
		if !strings.Contains(sql, fragment) {
			t.Fatalf("expected %q in %s", fragment, sql)
		}
	}
	if len(args) != 6 {
		t.Fatalf("expected 6 args, got %d", len(args))
	}
}

func TestBankQueryOpenBounds(t *testing.T) {
	repo := NewRepository(nil)
	sql, args, err := repo.bankQuery(uuid.New(), Until(time.Now())).ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}
	if strings.Contains(sql, ">=") {
		t.Fatalf("lower bound should be open: %s", sql)
	}
	if !strings.Contains(sql, "bt.date <= $2") || len(args) != 2 {
		t.Fatalf("unexpected query %s %v", sql, args)
	}
}
