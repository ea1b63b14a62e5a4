package customreport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("expected YYYY-MM-DD date")
	}
	return day(t), nil
}

func textValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(dateLayout)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func decimalValue(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val, true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case float64:
		return decimal.NewFromFloat(val), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		return d, err == nil
	}
	return decimal.Zero, false
}

func dateValue(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, !val.IsZero()
	case string:
		t, err := parseDate(val)
		return t, err == nil
	}
	return time.Time{}, false
}

func boolValue(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return b, err == nil
	}
	return false, false
}

// FormatValue renders v as text for a column of the given type. Currency
// values carry two decimals; missing values render empty.
func FormatValue(fieldType FieldType, v any) string {
	if v == nil {
		return ""
	}
	switch fieldType {
	case FieldCurrency:
		if d, ok := decimalValue(v); ok {
			return d.StringFixed(2)
		}
	case FieldNumber:
		if d, ok := decimalValue(v); ok {
			return d.String()
		}
	case FieldDate:
		if t, ok := dateValue(v); ok {
			return t.Format(dateLayout)
		}
		return ""
	case FieldBoolean:
		if b, ok := boolValue(v); ok {
			return strconv.FormatBool(b)
		}
	}
	return textValue(v)
}

// AsDecimal converts a numeric row value.
func AsDecimal(v any) (decimal.Decimal, bool) {
	return decimalValue(v)
}
