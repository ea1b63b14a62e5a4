package ledger

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
)

// Repository reads ledger data from PostgreSQL.
type Repository struct {
	db      pgxscan.Querier
	builder squirrel.StatementBuilderType
}

// NewRepository constructs a Repository over a pgx pool or transaction.
func NewRepository(db pgxscan.Querier) *Repository {
	return &Repository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

type documentTables struct {
	header string
	lines  string
	fk     string
}

var (
	invoiceTables = documentTables{header: "invoices", lines: "invoice_line_items", fk: "invoice_id"}
	billTables    = documentTables{header: "bills", lines: "bill_line_items", fk: "bill_id"}
)

// ListInvoiceLines returns invoice lines joined with their headers.
func (r *Repository) ListInvoiceLines(ctx context.Context, orgID uuid.UUID, filter Filter) ([]DocumentLine, error) {
	return r.listLines(ctx, "invoice lines", r.linesQuery(invoiceTables, orgID, filter))
}

// ListBillLines returns bill lines joined with their headers.
func (r *Repository) ListBillLines(ctx context.Context, orgID uuid.UUID, filter Filter) ([]DocumentLine, error) {
	return r.listLines(ctx, "bill lines", r.linesQuery(billTables, orgID, filter))
}

func (r *Repository) listLines(ctx context.Context, what string, q squirrel.SelectBuilder) ([]DocumentLine, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ledger: build %s query: %w", what, err)
	}
	var lines []DocumentLine
	if err := pgxscan.Select(ctx, r.db, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("ledger: list %s: %w", what, err)
	}
	return lines, nil
}

func (r *Repository) linesQuery(t documentTables, orgID uuid.UUID, filter Filter) squirrel.SelectBuilder {
	q := r.builder.Select(
		"d.id::text AS document_id",
		"d.number",
		"d.issue_date",
		"COALESCE(d.due_date, d.issue_date) AS due_date",
		"d.status",
		"COALESCE(d.contact_id::text, '') AS contact_id",
		"COALESCE(c.name, '') AS contact_name",
		"li.account_code",
		"COALESCE(a.type, '') AS account_type",
		"COALESCE(li.description, '') AS description",
		"COALESCE(li.quantity, 0) AS quantity",
		"COALESCE(li.unit_price, 0) AS unit_price",
		"COALESCE(li.tax_amount, 0) AS tax_amount",
	).
		From(t.header + " d").
		Join(fmt.Sprintf("%s li ON li.%s = d.id", t.lines, t.fk)).
		LeftJoin("contacts c ON c.id = d.contact_id").
		LeftJoin("accounts a ON a.org_id = d.org_id AND a.code = li.account_code").
		Where(squirrel.Expr("d.org_id = ?", orgID))

	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"d.issue_date": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"d.issue_date": *filter.To})
	}
	if len(filter.Statuses) > 0 {
		q = q.Where(squirrel.Eq{"d.status": statusStrings(filter.Statuses)})
	}
	if filter.ExcludeDraft {
		q = q.Where(squirrel.NotEq{"d.status": string(StatusDraft)})
	}
	return q.OrderBy("d.issue_date", "d.number", "li.id")
}

// ListBankTransactions returns bank movements in date order.
func (r *Repository) ListBankTransactions(ctx context.Context, orgID uuid.UUID, filter Filter) ([]BankTransaction, error) {
	sql, args, err := r.bankQuery(orgID, filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ledger: build bank transactions query: %w", err)
	}
	var txns []BankTransaction
	if err := pgxscan.Select(ctx, r.db, &txns, sql, args...); err != nil {
		return nil, fmt.Errorf("ledger: list bank transactions: %w", err)
	}
	return txns, nil
}

func (r *Repository) bankQuery(orgID uuid.UUID, filter Filter) squirrel.SelectBuilder {
	q := r.builder.Select(
		"bt.id::text AS id",
		"bt.date",
		"bt.account_code",
		"bt.type",
		"bt.amount",
		"COALESCE(bt.description, '') AS description",
		"COALESCE(bt.reference, '') AS reference",
		"COALESCE(bt.contact_id::text, '') AS contact_id",
		"COALESCE(c.name, '') AS contact_name",
	).
		From("bank_transactions bt").
		LeftJoin("contacts c ON c.id = bt.contact_id").
		Where(squirrel.Expr("bt.org_id = ?", orgID))

	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"bt.date": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"bt.date": *filter.To})
	}
	return q.OrderBy("bt.date", "bt.id")
}

// ListAccounts returns the chart of accounts ordered by code.
func (r *Repository) ListAccounts(ctx context.Context, orgID uuid.UUID, filter Filter) ([]Account, error) {
	sql, args, err := r.accountsQuery(orgID, filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ledger: build accounts query: %w", err)
	}
	var accounts []Account
	if err := pgxscan.Select(ctx, r.db, &accounts, sql, args...); err != nil {
		return nil, fmt.Errorf("ledger: list accounts: %w", err)
	}
	return accounts, nil
}

func (r *Repository) accountsQuery(orgID uuid.UUID, filter Filter) squirrel.SelectBuilder {
	q := r.builder.Select("code", "name", "type", "is_active").
		From("accounts").
		Where(squirrel.Expr("org_id = ?", orgID))
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	return q.OrderBy("code")
}

// ListOrganizations returns every organisation id, used by cache warmup.
func (r *Repository) ListOrganizations(ctx context.Context) ([]uuid.UUID, error) {
	sql, args, err := r.builder.Select("id").From("organizations").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("ledger: build organizations query: %w", err)
	}
	var ids []uuid.UUID
	if err := pgxscan.Select(ctx, r.db, &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("ledger: list organizations: %w", err)
	}
	return ids, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

var _ Source = (*Repository)(nil)
