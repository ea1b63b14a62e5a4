package reports

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbooks/internal/ledger"
)

// AgingBucket is a time-since-due category for outstanding documents.
type AgingBucket string

const (
	BucketCurrent AgingBucket = "current"
	Bucket1To30   AgingBucket = "1-30"
	Bucket31To60  AgingBucket = "31-60"
	Bucket61To90  AgingBucket = "61-90"
	BucketOver90  AgingBucket = "over-90"
)

// AgingBuckets lists the buckets in presentation order.
var AgingBuckets = []AgingBucket{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, BucketOver90}

// Label returns the column heading for the bucket.
func (b AgingBucket) Label() string {
	switch b {
	case BucketCurrent:
		return "Current"
	case Bucket1To30:
		return "1-30 days"
	case Bucket31To60:
		return "31-60 days"
	case Bucket61To90:
		return "61-90 days"
	case BucketOver90:
		return "Over 90 days"
	}
	return string(b)
}

// ClassifyAge maps days past due to a bucket. Boundaries belong to the lower
// bucket.
func ClassifyAge(days int) AgingBucket {
	switch {
	case days <= 0:
		return BucketCurrent
	case days <= 30:
		return Bucket1To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// AgingParams parameterises an aged receivables or payables run.
type AgingParams struct {
	OrgID         uuid.UUID
	ReferenceDate time.Time
}

// BuildAging groups outstanding documents into the five aging buckets. kind
// must be KindAgedReceivables or KindAgedPayables; lines are the invoice or
// bill lines respectively. Every bucket is present, even when empty.
func BuildAging(kind Kind, lines []ledger.Row, params AgingParams) Result {
	ref := Day(params.ReferenceDate)

	grouped := make(map[AgingBucket][]Entry, len(AgingBuckets))
	count := 0
	for _, doc := range ledger.Documents(lines) {
		if !doc.Status.Outstanding() {
			continue
		}
		due := doc.DueDate
		if due.IsZero() {
			due = doc.IssueDate
		}
		days := AgeInDays(ref, due)
		bucket := ClassifyAge(days)
		grouped[bucket] = append(grouped[bucket], Entry{
			Code:   doc.Number,
			Name:   doc.ContactName,
			Amount: doc.Total,
			Detail: &Detail{
				Contact:     doc.ContactName,
				Date:        Day(doc.IssueDate),
				DueDate:     Day(due),
				DaysOverdue: days,
				Status:      string(doc.Status),
			},
		})
		count++
	}

	sections := make([]Section, 0, len(AgingBuckets))
	outstanding := decimal.Zero
	for _, bucket := range AgingBuckets {
		entries := grouped[bucket]
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Detail.DaysOverdue != entries[j].Detail.DaysOverdue {
				return entries[i].Detail.DaysOverdue > entries[j].Detail.DaysOverdue
			}
			return entries[i].Code < entries[j].Code
		})
		section := NewSection(string(bucket), bucket.Label(), entries)
		outstanding = outstanding.Add(section.Total)
		sections = append(sections, section)
	}

	return Result{
		Kind:     kind,
		OrgID:    params.OrgID,
		AsOf:     ref,
		Sections: sections,
		Figures: []Figure{
			{Key: FigureTotalOutstanding, Label: "Total Outstanding", Amount: outstanding},
			{Key: FigureDocumentCount, Label: "Documents", Amount: decimal.NewFromInt(int64(count))},
		},
	}
}
