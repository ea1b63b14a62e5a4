package customreport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Operator is the closed set of filter operators.
type Operator int

const (
	OpUnknown Operator = iota
	OpEquals
	OpNotEquals
	OpContains
	OpStartsWith
	OpEndsWith
	OpGreaterThan
	OpLessThan
	OpBetween
	OpAfter
	OpBefore
	OpLastDays
	OpNextDays
)

var operatorNames = map[string]Operator{
	"equals":       OpEquals,
	"not_equals":   OpNotEquals,
	"contains":     OpContains,
	"starts_with":  OpStartsWith,
	"ends_with":    OpEndsWith,
	"greater_than": OpGreaterThan,
	"less_than":    OpLessThan,
	"between":      OpBetween,
	"after":        OpAfter,
	"before":       OpBefore,
	"last_days":    OpLastDays,
	"next_days":    OpNextDays,
}

// ParseOperator resolves an operator name. Unrecognised names map to
// OpUnknown.
func ParseOperator(name string) Operator {
	return operatorNames[strings.ToLower(strings.TrimSpace(name))]
}

// Allows reports whether op is legal for fields of type t. OpUnknown is
// accepted everywhere and matches every row.
func (op Operator) Allows(t FieldType) bool {
	if op == OpUnknown {
		return true
	}
	switch t {
	case FieldText:
		switch op {
		case OpEquals, OpNotEquals, OpContains, OpStartsWith, OpEndsWith:
			return true
		}
	case FieldNumber, FieldCurrency:
		switch op {
		case OpEquals, OpGreaterThan, OpLessThan, OpBetween:
			return true
		}
	case FieldDate:
		switch op {
		case OpEquals, OpAfter, OpBefore, OpBetween, OpLastDays, OpNextDays:
			return true
		}
	case FieldBoolean:
		switch op {
		case OpEquals, OpNotEquals:
			return true
		}
	}
	return false
}

// Filter is a compiled FilterSpec. Operand values are parsed once at
// compile time.
type Filter struct {
	Spec FilterSpec
	Type FieldType
	Op   Operator

	text   string
	folded string
	num    decimal.Decimal
	numHi  decimal.Decimal
	day    time.Time
	dayHi  time.Time
	days   int
	flag   bool
}

func compileFilter(spec FilterSpec, fieldType FieldType) (Filter, error) {
	f := Filter{Spec: spec, Type: fieldType, Op: ParseOperator(spec.Operator)}
	if f.Op == OpUnknown {
		return f, nil
	}
	if !f.Op.Allows(fieldType) {
		return f, fmt.Errorf("%w: operator %q not allowed on %s field %q", ErrInvalidConfig, spec.Operator, fieldType, spec.Field)
	}

	value := strings.TrimSpace(spec.Value)
	var err error
	switch fieldType {
	case FieldText:
		f.text = spec.Value
		f.folded = fold(spec.Value)
	case FieldNumber, FieldCurrency:
		if f.Op == OpBetween {
			f.num, f.numHi, err = parseDecimalRange(value)
		} else {
			f.num, err = decimal.NewFromString(value)
		}
	case FieldDate:
		switch f.Op {
		case OpBetween:
			f.day, f.dayHi, err = parseDateRange(value)
		case OpLastDays, OpNextDays:
			f.days, err = strconv.Atoi(value)
			if err == nil && f.days < 0 {
				err = fmt.Errorf("negative day count %d", f.days)
			}
		default:
			f.day, err = parseDate(value)
		}
	case FieldBoolean:
		f.flag, err = strconv.ParseBool(value)
	}
	if err != nil {
		return f, fmt.Errorf("%w: filter on %q: bad value %q: %v", ErrInvalidConfig, spec.Field, spec.Value, err)
	}
	return f, nil
}

// Match evaluates the filter against row. now anchors relative date
// operators.
func (f Filter) Match(row Row, now time.Time) bool {
	if f.Op == OpUnknown {
		return true
	}
	raw := row[f.Spec.Field]
	switch f.Type {
	case FieldText:
		return f.matchText(textValue(raw))
	case FieldNumber, FieldCurrency:
		v, ok := decimalValue(raw)
		if !ok {
			return false
		}
		return f.matchNumber(v)
	case FieldDate:
		v, ok := dateValue(raw)
		if !ok {
			return false
		}
		return f.matchDate(day(v), day(now))
	case FieldBoolean:
		v, _ := boolValue(raw)
		if f.Op == OpNotEquals {
			return v != f.flag
		}
		return v == f.flag
	}
	return false
}

func (f Filter) matchText(v string) bool {
	switch f.Op {
	case OpEquals:
		return v == f.text
	case OpNotEquals:
		return v != f.text
	case OpContains:
		return strings.Contains(fold(v), f.folded)
	case OpStartsWith:
		return strings.HasPrefix(fold(v), f.folded)
	case OpEndsWith:
		return strings.HasSuffix(fold(v), f.folded)
	}
	return false
}

func (f Filter) matchNumber(v decimal.Decimal) bool {
	switch f.Op {
	case OpEquals:
		return v.Equal(f.num)
	case OpGreaterThan:
		return v.GreaterThan(f.num)
	case OpLessThan:
		return v.LessThan(f.num)
	case OpBetween:
		return v.GreaterThanOrEqual(f.num) && v.LessThanOrEqual(f.numHi)
	}
	return false
}

func (f Filter) matchDate(v, today time.Time) bool {
	switch f.Op {
	case OpEquals:
		return v.Equal(f.day)
	case OpAfter:
		return v.After(f.day)
	case OpBefore:
		return v.Before(f.day)
	case OpBetween:
		return !v.Before(f.day) && !v.After(f.dayHi)
	case OpLastDays:
		return !v.Before(today.AddDate(0, 0, -f.days)) && !v.After(today)
	case OpNextDays:
		return !v.Before(today) && !v.After(today.AddDate(0, 0, f.days))
	}
	return false
}

func fold(s string) string {
	return cases.Fold().String(s)
}

func parseDecimalRange(value string) (decimal.Decimal, decimal.Decimal, error) {
	lo, hi, err := splitRange(value)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	lower, err := decimal.NewFromString(lo)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	upper, err := decimal.NewFromString(hi)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if lower.GreaterThan(upper) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("min %s exceeds max %s", lower, upper)
	}
	return lower, upper, nil
}

func parseDateRange(value string) (time.Time, time.Time, error) {
	lo, hi, err := splitRange(value)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, err := parseDate(lo)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate(hi)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s after end %s", lo, hi)
	}
	return start, end, nil
}

func splitRange(value string) (string, string, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return "", "", errors.New(`expected "min,max"`)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}
