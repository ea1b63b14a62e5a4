package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies a chart-of-accounts entry.
type AccountType string

const (
	AccountAsset        AccountType = "asset"
	AccountLiability    AccountType = "liability"
	AccountEquity       AccountType = "equity"
	AccountRevenue      AccountType = "revenue"
	AccountExpense      AccountType = "expense"
	AccountCOGS         AccountType = "cost_of_goods_sold"
	AccountOtherIncome  AccountType = "other_income"
	AccountOtherExpense AccountType = "other_expense"
)

// Valid reports whether the account type is one of the known kinds.
func (t AccountType) Valid() bool {
	switch t {
	case AccountAsset, AccountLiability, AccountEquity, AccountRevenue,
		AccountExpense, AccountCOGS, AccountOtherIncome, AccountOtherExpense:
		return true
	}
	return false
}

// Income reports whether balances of this type increase profit.
func (t AccountType) Income() bool {
	return t == AccountRevenue || t == AccountOtherIncome
}

// Cost reports whether balances of this type reduce profit.
func (t AccountType) Cost() bool {
	return t == AccountExpense || t == AccountCOGS || t == AccountOtherExpense
}

// Status is the lifecycle state of an invoice or bill.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusUnpaid  Status = "unpaid"
	StatusOverdue Status = "overdue"
	StatusPaid    Status = "paid"
)

// Outstanding reports whether the document still awaits settlement.
func (s Status) Outstanding() bool {
	return s == StatusUnpaid || s == StatusOverdue
}

// OutstandingStatuses lists the statuses counted as open balances.
var OutstandingStatuses = []Status{StatusUnpaid, StatusOverdue}

// Direction marks a bank movement as money in (credit) or money out (debit).
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Account is an entry of an organisation's chart of accounts.
type Account struct {
	Code     string      `db:"code" json:"code"`
	Name     string      `db:"name" json:"name"`
	Type     AccountType `db:"type" json:"type"`
	IsActive bool        `db:"is_active" json:"is_active"`
}

// Row is the normalised record every aggregation operates on. Bank rows carry
// a signed amount; document rows carry the line amount including tax.
type Row struct {
	SourceID    string          `json:"source_id"`
	Reference   string          `json:"reference"`
	Date        time.Time       `json:"date"`
	DueDate     time.Time       `json:"due_date,omitzero"`
	Amount      decimal.Decimal `json:"amount"`
	AccountCode string          `json:"account_code"`
	AccountType AccountType     `json:"account_type,omitempty"`
	ContactID   string          `json:"contact_id,omitempty"`
	ContactName string          `json:"contact_name,omitempty"`
	Status      Status          `json:"status,omitempty"`
	Description string          `json:"description,omitempty"`
	Direction   Direction       `json:"direction,omitempty"`
}

// DocumentLine is a single invoice or bill line joined with its header.
type DocumentLine struct {
	DocumentID  string          `db:"document_id"`
	Number      string          `db:"number"`
	IssueDate   time.Time       `db:"issue_date"`
	DueDate     time.Time       `db:"due_date"`
	Status      Status          `db:"status"`
	ContactID   string          `db:"contact_id"`
	ContactName string          `db:"contact_name"`
	AccountCode string          `db:"account_code"`
	AccountType AccountType     `db:"account_type"`
	Description string          `db:"description"`
	Quantity    decimal.Decimal `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	TaxAmount   decimal.Decimal `db:"tax_amount"`
}

// Amount returns quantity * unit price plus tax.
func (l DocumentLine) Amount() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice).Add(l.TaxAmount)
}

// Row normalises the line.
func (l DocumentLine) Row() Row {
	return Row{
		SourceID:    l.DocumentID,
		Reference:   l.Number,
		Date:        l.IssueDate,
		DueDate:     l.DueDate,
		Amount:      l.Amount(),
		AccountCode: l.AccountCode,
		AccountType: l.AccountType,
		ContactID:   l.ContactID,
		ContactName: l.ContactName,
		Status:      l.Status,
		Description: l.Description,
	}
}

// BankTransaction is a movement on a bank account. Amount is unsigned.
type BankTransaction struct {
	ID          string          `db:"id"`
	Date        time.Time       `db:"date"`
	AccountCode string          `db:"account_code"`
	Type        Direction       `db:"type"`
	Amount      decimal.Decimal `db:"amount"`
	Description string          `db:"description"`
	Reference   string          `db:"reference"`
	ContactID   string          `db:"contact_id"`
	ContactName string          `db:"contact_name"`
}

// Signed returns the amount with credits positive and debits negative.
func (t BankTransaction) Signed() decimal.Decimal {
	if t.Type == DirectionDebit {
		return t.Amount.Abs().Neg()
	}
	return t.Amount.Abs()
}

// Row normalises the transaction.
func (t BankTransaction) Row() Row {
	return Row{
		SourceID:    t.ID,
		Reference:   t.Reference,
		Date:        t.Date,
		Amount:      t.Signed(),
		AccountCode: t.AccountCode,
		ContactID:   t.ContactID,
		ContactName: t.ContactName,
		Description: t.Description,
		Direction:   t.Type,
	}
}

// LineRows normalises document lines.
func LineRows(lines []DocumentLine) []Row {
	rows := make([]Row, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, line.Row())
	}
	return rows
}

// BankRows normalises bank transactions.
func BankRows(txns []BankTransaction) []Row {
	rows := make([]Row, 0, len(txns))
	for _, txn := range txns {
		rows = append(rows, txn.Row())
	}
	return rows
}

// Document is an invoice or bill rebuilt from its lines.
type Document struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	ContactID   string          `json:"contact_id,omitempty"`
	ContactName string          `json:"contact_name"`
	IssueDate   time.Time       `json:"issue_date"`
	DueDate     time.Time       `json:"due_date,omitzero"`
	Status      Status          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Lines       int             `json:"lines"`
}

// Documents groups document rows by SourceID, preserving first-seen order.
// Header fields come from the first row of each document.
func Documents(rows []Row) []Document {
	index := make(map[string]int, len(rows))
	docs := make([]Document, 0)
	for _, row := range rows {
		pos, ok := index[row.SourceID]
		if !ok {
			pos = len(docs)
			index[row.SourceID] = pos
			docs = append(docs, Document{
				ID:          row.SourceID,
				Number:      row.Reference,
				ContactID:   row.ContactID,
				ContactName: row.ContactName,
				IssueDate:   row.Date,
				DueDate:     row.DueDate,
				Status:      row.Status,
			})
		}
		docs[pos].Total = docs[pos].Total.Add(row.Amount)
		docs[pos].Lines++
	}
	return docs
}
