package customreport

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/odyssey-erp/ledgerbooks/internal/ledger"
)

const (
	SourceInvoices         = "invoices"
	SourceBills            = "bills"
	SourceBankTransactions = "bank_transactions"
	SourceAccounts         = "accounts"
)

var documentCatalog = []FieldSpec{
	{Key: "id", Label: "ID", Type: FieldText},
	{Key: "number", Label: "Number", Type: FieldText},
	{Key: "contact_name", Label: "Contact", Type: FieldText},
	{Key: "issue_date", Label: "Issue Date", Type: FieldDate},
	{Key: "due_date", Label: "Due Date", Type: FieldDate},
	{Key: "status", Label: "Status", Type: FieldText},
	{Key: "total", Label: "Total", Type: FieldCurrency, Align: AlignRight},
	{Key: "line_count", Label: "Lines", Type: FieldNumber, Align: AlignRight},
}

var catalogs = map[string][]FieldSpec{
	SourceInvoices: documentCatalog,
	SourceBills:    documentCatalog,
	SourceBankTransactions: {
		{Key: "id", Label: "ID", Type: FieldText},
		{Key: "date", Label: "Date", Type: FieldDate},
		{Key: "description", Label: "Description", Type: FieldText},
		{Key: "reference", Label: "Reference", Type: FieldText},
		{Key: "type", Label: "Type", Type: FieldText},
		{Key: "account_code", Label: "Account", Type: FieldText},
		{Key: "contact_name", Label: "Contact", Type: FieldText},
		{Key: "amount", Label: "Amount", Type: FieldCurrency, Align: AlignRight},
	},
	SourceAccounts: {
		{Key: "code", Label: "Code", Type: FieldText},
		{Key: "name", Label: "Name", Type: FieldText},
		{Key: "type", Label: "Type", Type: FieldText},
		{Key: "is_active", Label: "Active", Type: FieldBoolean, Align: AlignCenter},
	},
}

// Catalog returns the known fields of a built-in source.
func Catalog(source string) ([]FieldSpec, bool) {
	fields, ok := catalogs[source]
	if !ok {
		return nil, false
	}
	return append([]FieldSpec(nil), fields...), true
}

// Fetcher returns every row of a source for an organisation.
type Fetcher func(ctx context.Context, orgID uuid.UUID) ([]Row, error)

// Registry resolves source keys to fetchers.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[string]Fetcher
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]Fetcher)}
}

// Register binds key to fetch, replacing any previous binding.
func (r *Registry) Register(key string, fetch Fetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[key] = fetch
}

// Sources lists the registered keys in order.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.fetchers))
	for key := range r.fetchers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) lookup(key string) (Fetcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fetch, ok := r.fetchers[key]
	return fetch, ok
}

// Compile checks that the source is registered, then compiles cfg.
func (r *Registry) Compile(cfg Config) (*Report, error) {
	if _, ok := r.lookup(cfg.Source); !ok {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, cfg.Source)
	}
	return Compile(cfg)
}

// Fetch loads the full row set of source.
func (r *Registry) Fetch(ctx context.Context, orgID uuid.UUID, source string) ([]Row, error) {
	fetch, ok := r.lookup(source)
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, source)
	}
	return fetch(ctx, orgID)
}

// LedgerRegistry registers the built-in sources over src. Reads are
// unfiltered; filtering happens in the report.
func LedgerRegistry(src ledger.Source) *Registry {
	reg := NewRegistry()
	reg.Register(SourceInvoices, func(ctx context.Context, orgID uuid.UUID) ([]Row, error) {
		lines, err := src.ListInvoiceLines(ctx, orgID, ledger.Filter{})
		if err != nil {
			return nil, err
		}
		return DocumentRows(ledger.Documents(ledger.LineRows(lines))), nil
	})
	reg.Register(SourceBills, func(ctx context.Context, orgID uuid.UUID) ([]Row, error) {
		lines, err := src.ListBillLines(ctx, orgID, ledger.Filter{})
		if err != nil {
			return nil, err
		}
		return DocumentRows(ledger.Documents(ledger.LineRows(lines))), nil
	})
	reg.Register(SourceBankTransactions, func(ctx context.Context, orgID uuid.UUID) ([]Row, error) {
		txns, err := src.ListBankTransactions(ctx, orgID, ledger.Filter{})
		if err != nil {
			return nil, err
		}
		return BankRows(txns), nil
	})
	reg.Register(SourceAccounts, func(ctx context.Context, orgID uuid.UUID) ([]Row, error) {
		accounts, err := src.ListAccounts(ctx, orgID, ledger.Filter{})
		if err != nil {
			return nil, err
		}
		return AccountRows(accounts), nil
	})
	return reg
}

// DocumentRows flattens invoices or bills.
func DocumentRows(docs []ledger.Document) []Row {
	rows := make([]Row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, Row{
			"id":           doc.ID,
			"number":       doc.Number,
			"contact_name": doc.ContactName,
			"issue_date":   doc.IssueDate,
			"due_date":     doc.DueDate,
			"status":       string(doc.Status),
			"total":        doc.Total,
			"line_count":   doc.Lines,
		})
	}
	return rows
}

// BankRows flattens bank transactions with signed amounts.
func BankRows(txns []ledger.BankTransaction) []Row {
	rows := make([]Row, 0, len(txns))
	for _, txn := range txns {
		rows = append(rows, Row{
			"id":           txn.ID,
			"date":         txn.Date,
			"description":  txn.Description,
			"reference":    txn.Reference,
			"type":         string(txn.Type),
			"account_code": txn.AccountCode,
			"contact_name": txn.ContactName,
			"amount":       txn.Signed(),
		})
	}
	return rows
}

// AccountRows flattens the chart of accounts.
func AccountRows(accounts []ledger.Account) []Row {
	rows := make([]Row, 0, len(accounts))
	for _, acc := range accounts {
		rows = append(rows, Row{
			"code":      acc.Code,
			"name":      acc.Name,
			"type":      string(acc.Type),
			"is_active": acc.IsActive,
		})
	}
	return rows
}
