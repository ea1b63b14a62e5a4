package customreport

import (
	"fmt"
	"time"
)

// Row is one source record keyed by field.
type Row map[string]any

// Result is the projected output of a run.
type Result struct {
	Columns []FieldSpec `json:"columns"`
	Rows    []Row       `json:"rows"`
}

// Clone copies the result so rows can be mutated independently.
func (r Result) Clone() Result {
	out := Result{Columns: append([]FieldSpec(nil), r.Columns...), Rows: make([]Row, len(r.Rows))}
	for i, row := range r.Rows {
		out.Rows[i] = cloneRow(row)
	}
	return out
}

func cloneRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// Report is a compiled Config ready to run against source rows.
type Report struct {
	cfg     Config
	filters []Filter
	digest  string
}

// Compile validates cfg and parses every filter. Operators that are known
// but illegal for the field type, and malformed operand values, are
// rejected here rather than at run time.
func Compile(cfg Config) (*Report, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	catalog, hasCatalog := Catalog(cfg.Source)
	types := make(map[string]FieldType, len(cfg.Fields)+len(catalog))
	for _, field := range catalog {
		types[field.Key] = field.Type
	}
	for _, field := range cfg.Fields {
		types[field.Key] = field.Type
	}

	filters := make([]Filter, 0, len(cfg.Filters))
	for _, spec := range cfg.Filters {
		fieldType, ok := types[spec.Field]
		if !ok {
			if hasCatalog {
				return nil, fmt.Errorf("%w: unknown field %q for source %q", ErrInvalidConfig, spec.Field, cfg.Source)
			}
			fieldType = FieldText
		}
		filter, err := compileFilter(spec, fieldType)
		if err != nil {
			return nil, err
		}
		filters = append(filters, filter)
	}
	return &Report{cfg: cfg, filters: filters, digest: Digest(cfg)}, nil
}

// Source returns the source key the report reads.
func (r *Report) Source() string { return r.cfg.Source }

// Config returns the compiled configuration.
func (r *Report) Config() Config { return r.cfg }

// Digest fingerprints the report's output-affecting configuration.
func (r *Report) Digest() string { return r.digest }

// Filter keeps the rows satisfying every filter. Input rows are not modified.
func (r *Report) Filter(rows []Row, now time.Time) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if r.match(row, now) {
			out = append(out, row)
		}
	}
	return out
}

func (r *Report) match(row Row, now time.Time) bool {
	for _, f := range r.filters {
		if !f.Match(row, now) {
			return false
		}
	}
	return true
}

// Project copies the configured fields, in order, into fresh rows. Missing
// fields project as nil.
func (r *Report) Project(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		projected := make(Row, len(r.cfg.Fields))
		for _, field := range r.cfg.Fields {
			projected[field.Key] = row[field.Key]
		}
		out = append(out, projected)
	}
	return out
}

// Run filters then projects rows.
func (r *Report) Run(rows []Row, now time.Time) Result {
	return Result{
		Columns: append([]FieldSpec(nil), r.cfg.Fields...),
		Rows:    r.Project(r.Filter(rows, now)),
	}
}
