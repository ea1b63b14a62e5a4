package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbooks/internal/ledger"
)

// Activity is a cash flow category.
type Activity string

const (
	ActivityOperating Activity = "operating"
	ActivityInvesting Activity = "investing"
	ActivityFinancing Activity = "financing"
)

// Activities lists the categories in presentation order.
var Activities = []Activity{ActivityOperating, ActivityInvesting, ActivityFinancing}

// Label returns the section heading for the activity.
func (a Activity) Label() string {
	switch a {
	case ActivityInvesting:
		return "Investing Activities"
	case ActivityFinancing:
		return "Financing Activities"
	default:
		return "Operating Activities"
	}
}

// Classifier assigns a bank movement to a cash flow activity.
type Classifier interface {
	Classify(row ledger.Row) Activity
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(row ledger.Row) Activity

// Classify implements Classifier.
func (f ClassifierFunc) Classify(row ledger.Row) Activity { return f(row) }

// KeywordClassifier matches lower-cased description substrings. Operating
// terms are tried first, then financing, then investing; anything unmatched
// is operating.
type KeywordClassifier struct {
	Operating []string
	Financing []string
	Investing []string
}

// DefaultKeywordClassifier returns the stock term lists.
func DefaultKeywordClassifier() KeywordClassifier {
	return KeywordClassifier{
		Operating: []string{"invoice", "payment", "customer", "supplier", "salary", "payroll", "rent", "utilities", "tax"},
		Financing: []string{"loan", "investment", "dividend", "capital", "equity", "owner"},
		Investing: []string{"equipment", "asset", "property", "vehicle", "machinery", "purchase of"},
	}
}

// Classify implements Classifier.
func (k KeywordClassifier) Classify(row ledger.Row) Activity {
	desc := strings.ToLower(row.Description)
	switch {
	case containsAny(desc, k.Operating):
		return ActivityOperating
	case containsAny(desc, k.Financing):
		return ActivityFinancing
	case containsAny(desc, k.Investing):
		return ActivityInvesting
	}
	return ActivityOperating
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(s, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// CashFlowParams parameterises a cash flow run. A nil Classifier uses the
// default keyword lists.
type CashFlowParams struct {
	OrgID      uuid.UUID
	Start      time.Time
	End        time.Time
	Classifier Classifier
}

// BuildCashFlow classifies bank movements in the period and totals them per
// activity. The series holds per-period net movement and its running total.
func BuildCashFlow(bankRows []ledger.Row, params CashFlowParams) Result {
	start, end := Day(params.Start), Day(params.End)
	classifier := params.Classifier
	if classifier == nil {
		classifier = DefaultKeywordClassifier()
	}

	included := make([]ledger.Row, 0, len(bankRows))
	for _, row := range bankRows {
		if inRange(row.Date, start, end) {
			included = append(included, row)
		}
	}
	sort.SliceStable(included, func(i, j int) bool { return Day(included[i].Date).Before(Day(included[j].Date)) })

	grouped := make(map[Activity][]Entry, len(Activities))
	cashIn, cashOut := decimal.Zero, decimal.Zero
	for _, row := range included {
		activity := classifier.Classify(row)
		if _, known := activityIndex(activity); !known {
			activity = ActivityOperating
		}
		grouped[activity] = append(grouped[activity], Entry{
			Code:   row.Reference,
			Name:   row.Description,
			Amount: row.Amount,
			Detail: &Detail{Contact: row.ContactName, Date: Day(row.Date)},
		})
		if row.Amount.IsNegative() {
			cashOut = cashOut.Add(row.Amount.Neg())
		} else {
			cashIn = cashIn.Add(row.Amount)
		}
	}

	sections := make([]Section, 0, len(Activities))
	net := decimal.Zero
	for _, activity := range Activities {
		section := NewSection(string(activity), activity.Label(), grouped[activity])
		net = net.Add(section.Total)
		sections = append(sections, section)
	}

	return Result{
		Kind:      KindCashFlow,
		OrgID:     params.OrgID,
		StartDate: start,
		EndDate:   end,
		Sections:  sections,
		Figures: []Figure{
			{Key: FigureCashIn, Label: "Cash In", Amount: cashIn},
			{Key: FigureCashOut, Label: "Cash Out", Amount: cashOut},
			{Key: FigureNetCashFlow, Label: "Net Cash Flow", Amount: net},
		},
		Series: cashSeries(included, start, end),
	}
}

func activityIndex(a Activity) (int, bool) {
	for i, known := range Activities {
		if known == a {
			return i, true
		}
	}
	return -1, false
}

func cashSeries(rows []ledger.Row, start, end time.Time) []SeriesPoint {
	buckets := BucketByDate(rows, start, end, nil, GranularityFor(start, end))
	amounts := make([]decimal.Decimal, len(buckets))
	for i, bucket := range buckets {
		amounts[i] = Sum(bucket.Rows)
	}
	running := RunningTotals(amounts)
	points := make([]SeriesPoint, len(buckets))
	for i, bucket := range buckets {
		points[i] = SeriesPoint{
			Label:   bucket.Label,
			Start:   bucket.Start,
			End:     bucket.End,
			Amount:  amounts[i],
			Running: running[i],
		}
	}
	return points
}
