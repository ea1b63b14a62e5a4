package reports

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies a statement.
type Kind string

const (
	KindProfitLoss      Kind = "profit_loss"
	KindBalanceSheet    Kind = "balance_sheet"
	KindCashFlow        Kind = "cash_flow"
	KindAgedReceivables Kind = "aged_receivables"
	KindAgedPayables    Kind = "aged_payables"
)

// Title returns the human readable statement name.
func (k Kind) Title() string {
	switch k {
	case KindProfitLoss:
		return "Profit & Loss"
	case KindBalanceSheet:
		return "Balance Sheet"
	case KindCashFlow:
		return "Cash Flow"
	case KindAgedReceivables:
		return "Aged Receivables"
	case KindAgedPayables:
		return "Aged Payables"
	}
	return string(k)
}

// Detail carries per-document or per-transaction context for an entry.
type Detail struct {
	Contact     string    `json:"contact,omitempty"`
	Date        time.Time `json:"date"`
	DueDate     time.Time `json:"due_date,omitzero"`
	DaysOverdue int       `json:"days_overdue"`
	Status      string    `json:"status,omitempty"`
}

// Entry is one line of a section: an account, a document or a transaction.
type Entry struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Detail *Detail         `json:"detail,omitempty"`
}

// Section groups entries under a heading. Total always equals the sum of
// entry amounts; build sections with NewSection.
type Section struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Entries []Entry         `json:"entries"`
	Total   decimal.Decimal `json:"total"`
}

// NewSection builds a section and computes its total.
func NewSection(key, label string, entries []Entry) Section {
	if entries == nil {
		entries = []Entry{}
	}
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Amount)
	}
	return Section{Key: key, Label: label, Entries: entries, Total: total}
}

// Figure is a named scalar of a statement.
type Figure struct {
	Key    string          `json:"key"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// SeriesPoint is one period of a trend.
type SeriesPoint struct {
	Label   string          `json:"label"`
	Start   time.Time       `json:"start"`
	End     time.Time       `json:"end"`
	Amount  decimal.Decimal `json:"amount"`
	Running decimal.Decimal `json:"running"`
}

// Result is the structured output of every statement builder.
type Result struct {
	Kind      Kind          `json:"kind"`
	OrgID     uuid.UUID     `json:"org_id"`
	StartDate time.Time     `json:"start_date,omitzero"`
	EndDate   time.Time     `json:"end_date,omitzero"`
	AsOf      time.Time     `json:"as_of,omitzero"`
	Sections  []Section     `json:"sections"`
	Figures   []Figure      `json:"figures"`
	Series    []SeriesPoint `json:"series,omitempty"`
}

// Section looks up a section by key.
func (r Result) Section(key string) (Section, bool) {
	for _, section := range r.Sections {
		if section.Key == key {
			return section, true
		}
	}
	return Section{}, false
}

// Figure looks up a figure by key.
func (r Result) Figure(key string) (decimal.Decimal, bool) {
	for _, figure := range r.Figures {
		if figure.Key == key {
			return figure.Amount, true
		}
	}
	return decimal.Zero, false
}

// Clone returns a deep copy so callers sharing a build cannot observe each
// other's mutations.
func (r Result) Clone() Result {
	out := r
	if r.Sections != nil {
		out.Sections = make([]Section, len(r.Sections))
		for i, section := range r.Sections {
			copied := section
			if section.Entries != nil {
				copied.Entries = make([]Entry, len(section.Entries))
				for j, entry := range section.Entries {
					if entry.Detail != nil {
						detail := *entry.Detail
						entry.Detail = &detail
					}
					copied.Entries[j] = entry
				}
			}
			out.Sections[i] = copied
		}
	}
	if r.Figures != nil {
		out.Figures = append([]Figure(nil), r.Figures...)
	}
	if r.Series != nil {
		out.Series = append([]SeriesPoint(nil), r.Series...)
	}
	return out
}

const (
	FigureNetProfit        = "net_profit"
	FigureProfitMargin     = "profit_margin"
	FigureTotalAssets      = "total_assets"
	FigureTotalLiabilities = "total_liabilities"
	FigureTotalEquity      = "total_equity"
	FigureNetCashFlow      = "net_cash_flow"
	FigureCashIn           = "cash_in"
	FigureCashOut          = "cash_out"
	FigureTotalOutstanding = "total_outstanding"
	FigureDocumentCount    = "document_count"
)
