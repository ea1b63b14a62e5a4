package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows ledger reads. Nil bounds are open.
type Filter struct {
	From         *time.Time
	To           *time.Time
	Statuses     []Status
	ExcludeDraft bool
	ActiveOnly   bool
}

// Source is the read side of the ledger, scoped per organisation.
type Source interface {
	ListInvoiceLines(ctx context.Context, orgID uuid.UUID, filter Filter) ([]DocumentLine, error)
	ListBillLines(ctx context.Context, orgID uuid.UUID, filter Filter) ([]DocumentLine, error)
	ListBankTransactions(ctx context.Context, orgID uuid.UUID, filter Filter) ([]BankTransaction, error)
	ListAccounts(ctx context.Context, orgID uuid.UUID, filter Filter) ([]Account, error)
}

// Between returns a filter bounded by the inclusive range.
func Between(from, to time.Time) Filter {
	return Filter{From: &from, To: &to}
}

// Until returns a filter bounded above by the inclusive date.
func Until(to time.Time) Filter {
	return Filter{To: &to}
}
