package export

import (
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/ledgerbooks/internal/customreport"
	"github.com/odyssey-erp/ledgerbooks/internal/reports"
)

const (
	reportSheet = "Report"
	seriesSheet = "Series"
	// numFmtAccounting is the built-in "#,##0.00" format.
	numFmtAccounting = 4
)

// sheetWriter appends rows to a sheet and keeps the first error.
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	row    int
	err    error
	styles struct{ bold, money, moneyBold int }
}

func newWorkbook() (*excelize.File, *sheetWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	sw := &sheetWriter{f: f, sheet: reportSheet}
	var err error
	if sw.styles.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if sw.styles.money, err = f.NewStyle(&excelize.Style{NumFmt: numFmtAccounting}); err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if sw.styles.moneyBold, err = f.NewStyle(&excelize.Style{NumFmt: numFmtAccounting, Font: &excelize.Font{Bold: true}}); err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return f, sw, nil
}

func (s *sheetWriter) on(sheet string) *sheetWriter {
	return &sheetWriter{f: s.f, sheet: sheet, styles: s.styles}
}

func (s *sheetWriter) write(bold bool, values ...any) {
	if s.err != nil {
		return
	}
	s.row++
	for i, value := range values {
		if value == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, s.row)
		if err != nil {
			s.err = err
			return
		}
		style := 0
		if bold {
			style = s.styles.bold
		}
		if d, ok := value.(decimal.Decimal); ok {
			value = d.InexactFloat64()
			style = s.styles.money
			if bold {
				style = s.styles.moneyBold
			}
		}
		if err := s.f.SetCellValue(s.sheet, cell, value); err != nil {
			s.err = err
			return
		}
		if style != 0 {
			if err := s.f.SetCellStyle(s.sheet, cell, cell, style); err != nil {
				s.err = err
				return
			}
		}
	}
}

func (s *sheetWriter) skip() {
	s.row++
}

// WriteResultXLSX renders a statement into a workbook. Cash flow series go
// to a second sheet.
func WriteResultXLSX(w io.Writer, result reports.Result) error {
	f, sw, err := newWorkbook()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	withDetail := detailed(result)
	sw.write(true, result.Kind.Title())
	sw.write(false, PeriodLabel(result))
	sw.skip()
	if withDetail {
		sw.write(true, "Code", "Name", "Contact", "Date", "Due Date", "Days Overdue", "Amount")
	} else {
		sw.write(true, "Code", "Name", "Amount")
	}
	for _, section := range result.Sections {
		sw.write(true, section.Label)
		for _, entry := range section.Entries {
			if !withDetail {
				sw.write(false, entry.Code, entry.Name, entry.Amount)
				continue
			}
			row := []any{entry.Code, entry.Name, nil, nil, nil, nil, entry.Amount}
			if d := entry.Detail; d != nil {
				row[2], row[3] = d.Contact, formatDate(d.Date)
				if !d.DueDate.IsZero() {
					row[4], row[5] = formatDate(d.DueDate), d.DaysOverdue
				}
			}
			sw.write(false, row...)
		}
		if withDetail {
			sw.write(true, nil, "Total "+section.Label, nil, nil, nil, nil, section.Total)
		} else {
			sw.write(true, nil, "Total "+section.Label, section.Total)
		}
		sw.skip()
	}
	for _, fig := range result.Figures {
		switch fig.Key {
		case reports.FigureProfitMargin, reports.FigureDocumentCount:
			sw.write(true, fig.Label, FormatFigure(fig))
		default:
			sw.write(true, fig.Label, fig.Amount)
		}
	}
	if sw.err != nil {
		return sw.err
	}
	if err := f.SetColWidth(reportSheet, "A", "B", 28); err != nil {
		return err
	}

	if len(result.Series) > 0 {
		if _, err := f.NewSheet(seriesSheet); err != nil {
			return err
		}
		series := sw.on(seriesSheet)
		series.write(true, "Period", "Start", "End", "Net Movement", "Running Balance")
		for _, point := range result.Series {
			series.write(false, point.Label, formatDate(point.Start), formatDate(point.End), point.Amount, point.Running)
		}
		if series.err != nil {
			return series.err
		}
	}
	return f.Write(w)
}

// WriteCustomXLSX renders custom report rows with a totals footer.
func WriteCustomXLSX(w io.Writer, title string, result customreport.Result) error {
	f, sw, err := newWorkbook()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if title != "" {
		sw.write(true, title)
		sw.skip()
	}
	header := make([]any, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = col.Heading()
	}
	sw.write(true, header...)
	for _, row := range result.Rows {
		values := make([]any, len(result.Columns))
		for i, col := range result.Columns {
			values[i] = cellValue(col, row[col.Key])
		}
		sw.write(false, values...)
	}
	if sums := customreport.Totals(result); len(sums) > 0 {
		footer := make([]any, len(result.Columns))
		for i, col := range result.Columns {
			if sum, ok := sums[col.Key]; ok {
				footer[i] = sum
			}
		}
		if footer[0] == nil {
			footer[0] = "Total"
		}
		sw.write(true, footer...)
	}
	if sw.err != nil {
		return sw.err
	}
	return f.Write(w)
}

func cellValue(col customreport.FieldSpec, v any) any {
	if v == nil {
		return nil
	}
	if col.Type.Numeric() {
		if d, ok := customreport.AsDecimal(v); ok {
			return d
		}
	}
	if col.Type == customreport.FieldBoolean {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return customreport.FormatValue(col.Type, v)
}
