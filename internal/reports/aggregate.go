package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbooks/internal/ledger"
)

// Day truncates t to its calendar date at UTC midnight. The calendar date is
// taken in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SumBy totals row amounts per key. Missing amounts count as zero.
func SumBy[K comparable](rows []ledger.Row, key func(ledger.Row) K) map[K]decimal.Decimal {
	totals := make(map[K]decimal.Decimal)
	for _, row := range rows {
		k := key(row)
		totals[k] = totals[k].Add(row.Amount)
	}
	return totals
}

// Sum totals every row amount.
func Sum(rows []ledger.Row) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total
}

// RunningTotals returns the cumulative sums of values.
func RunningTotals(values []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	acc := decimal.Zero
	for i, v := range values {
		acc = acc.Add(v)
		out[i] = acc
	}
	return out
}

// Granularity sets the width of date buckets.
type Granularity int

const (
	GranularityDay Granularity = iota
	GranularityWeek
	GranularityMonth
)

// GranularityFor picks day buckets up to a month, weeks up to a quarter and
// months beyond that.
func GranularityFor(start, end time.Time) Granularity {
	days := int(Day(end).Sub(Day(start)).Hours()/24) + 1
	switch {
	case days <= 31:
		return GranularityDay
	case days <= 92:
		return GranularityWeek
	default:
		return GranularityMonth
	}
}

// DateBucket holds the rows falling into [Start, End].
type DateBucket struct {
	Label string
	Start time.Time
	End   time.Time
	Rows  []ledger.Row
}

// BucketByDate splits [start, end] into consecutive buckets and assigns each
// row by dateFn (row.Date when nil). Every unit of the range gets a bucket,
// empty or not; rows outside the range are ignored.
func BucketByDate(rows []ledger.Row, start, end time.Time, dateFn func(ledger.Row) time.Time, granularity Granularity) []DateBucket {
	start, end = Day(start), Day(end)
	if start.After(end) {
		return []DateBucket{}
	}
	if dateFn == nil {
		dateFn = func(row ledger.Row) time.Time { return row.Date }
	}

	buckets := make([]DateBucket, 0)
	for cursor := start; !cursor.After(end); {
		next := advance(cursor, granularity)
		last := next.AddDate(0, 0, -1)
		if last.After(end) {
			last = end
		}
		buckets = append(buckets, DateBucket{Label: bucketLabel(cursor, granularity), Start: cursor, End: last})
		cursor = next
	}

	for _, row := range rows {
		d := Day(dateFn(row))
		if d.Before(start) || d.After(end) {
			continue
		}
		idx := sort.Search(len(buckets), func(i int) bool { return !buckets[i].End.Before(d) })
		if idx < len(buckets) {
			buckets[idx].Rows = append(buckets[idx].Rows, row)
		}
	}
	return buckets
}

func advance(t time.Time, granularity Granularity) time.Time {
	switch granularity {
	case GranularityWeek:
		return t.AddDate(0, 0, 7)
	case GranularityMonth:
		y, m, _ := t.Date()
		return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func bucketLabel(t time.Time, granularity Granularity) string {
	if granularity == GranularityMonth {
		return t.Format("Jan 2006")
	}
	return t.Format("Jan 2")
}

// AgeInDays is the number of calendar days from due to reference. Negative
// when the due date is still ahead.
func AgeInDays(reference, due time.Time) int {
	return int(Day(reference).Sub(Day(due)).Hours() / 24)
}

func inRange(d, start, end time.Time) bool {
	d = Day(d)
	return !d.Before(start) && !d.After(end)
}
