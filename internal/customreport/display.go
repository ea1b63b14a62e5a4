package customreport

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// SortRows returns a copy of result ordered by key. Values compare by the
// column type; rows missing the key sort last.
func SortRows(result Result, key string, desc bool) Result {
	out := Result{Columns: result.Columns, Rows: append([]Row(nil), result.Rows...)}
	fieldType := columnType(result.Columns, key)
	sort.SliceStable(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i][key], out.Rows[j][key]
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		c := compareValues(fieldType, a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// Totals sums every numeric and currency column.
func Totals(result Result) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, col := range result.Columns {
		if !col.Type.Numeric() {
			continue
		}
		sum := decimal.Zero
		for _, row := range result.Rows {
			if v, ok := decimalValue(row[col.Key]); ok {
				sum = sum.Add(v)
			}
		}
		totals[col.Key] = sum
	}
	return totals
}

// Group is a run of rows sharing a value of the grouping column.
type Group struct {
	Key    string                     `json:"key"`
	Rows   []Row                      `json:"rows"`
	Totals map[string]decimal.Decimal `json:"totals"`
}

// GroupBy partitions rows by the text form of key, in first-seen order.
func GroupBy(result Result, key string) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)
	for _, row := range result.Rows {
		label := textValue(row[key])
		pos, ok := index[label]
		if !ok {
			pos = len(groups)
			index[label] = pos
			groups = append(groups, Group{Key: label})
		}
		groups[pos].Rows = append(groups[pos].Rows, row)
	}
	for i := range groups {
		groups[i].Totals = Totals(Result{Columns: result.Columns, Rows: groups[i].Rows})
	}
	return groups
}

func columnType(columns []FieldSpec, key string) FieldType {
	for _, col := range columns {
		if col.Key == key {
			return col.Type
		}
	}
	return FieldText
}

func compareValues(fieldType FieldType, a, b any) int {
	switch fieldType {
	case FieldNumber, FieldCurrency:
		x, _ := decimalValue(a)
		y, _ := decimalValue(b)
		return x.Cmp(y)
	case FieldDate:
		x, _ := dateValue(a)
		y, _ := dateValue(b)
		return x.Compare(y)
	case FieldBoolean:
		x, _ := boolValue(a)
		y, _ := boolValue(b)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	}
	return strings.Compare(fold(textValue(a)), fold(textValue(b)))
}
