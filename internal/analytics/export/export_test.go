package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/ledgerbooks/internal/customreport"
	"github.com/odyssey-erp/ledgerbooks/internal/reports"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func agingResult() reports.Result {
	current := reports.NewSection(string(reports.BucketCurrent), reports.BucketCurrent.Label(), []reports.Entry{{
		Code:   "INV-2",
		Name:   "Acme & Co",
		Amount: decimal.NewFromInt(1500),
		Detail: &reports.Detail{Contact: "Acme & Co", Date: day(2024, 6, 10), DueDate: day(2024, 7, 10), DaysOverdue: -5},
	}})
	late := reports.NewSection(string(reports.Bucket31To60), reports.Bucket31To60.Label(), []reports.Entry{{
		Code:   "INV-3",
		Name:   "Globex",
		Amount: decimal.NewFromInt(2000),
		Detail: &reports.Detail{Contact: "Globex", Date: day(2024, 5, 1), DueDate: day(2024, 5, 31), DaysOverdue: 45},
	}})
	return reports.Result{
		Kind:     reports.KindAgedReceivables,
		OrgID:    uuid.New(),
		AsOf:     day(2024, 7, 5),
		Sections: []reports.Section{current, late},
		Figures: []reports.Figure{
			{Key: reports.FigureTotalOutstanding, Label: "Total Outstanding", Amount: decimal.NewFromInt(3500)},
			{Key: reports.FigureDocumentCount, Label: "Documents", Amount: decimal.NewFromInt(2)},
		},
	}
}

func cashResult() reports.Result {
	operating := reports.NewSection(string(reports.ActivityOperating), reports.ActivityOperating.Label(), []reports.Entry{
		{Code: "REF-1", Name: "Customer payment", Amount: decimal.NewFromInt(500), Detail: &reports.Detail{Contact: "Acme", Date: day(2024, 6, 3)}},
	})
	financing := reports.NewSection(string(reports.ActivityFinancing), reports.ActivityFinancing.Label(), []reports.Entry{
		{Code: "REF-2", Name: "Loan repayment", Amount: decimal.NewFromInt(-200), Detail: &reports.Detail{Date: day(2024, 6, 20)}},
	})
	return reports.Result{
		Kind:      reports.KindCashFlow,
		StartDate: day(2024, 6, 1),
		EndDate:   day(2024, 6, 30),
		Sections:  []reports.Section{operating, reports.NewSection(string(reports.ActivityInvesting), reports.ActivityInvesting.Label(), nil), financing},
		Figures: []reports.Figure{
			{Key: reports.FigureNetCashFlow, Label: "Net Cash Flow", Amount: decimal.NewFromInt(300)},
		},
		Series: []reports.SeriesPoint{
			{Label: "Jun 1", Start: day(2024, 6, 1), End: day(2024, 6, 7), Amount: decimal.NewFromInt(500), Running: decimal.NewFromInt(500)},
			{Label: "Jun 15", Start: day(2024, 6, 15), End: day(2024, 6, 21), Amount: decimal.NewFromInt(-200), Running: decimal.NewFromInt(300)},
		},
	}
}

func customResult() customreport.Result {
	return customreport.Result{
		Columns: []customreport.FieldSpec{
			{Key: "number", Label: "Number", Type: customreport.FieldText},
			{Key: "issue_date", Type: customreport.FieldDate},
			{Key: "total", Label: "Total", Type: customreport.FieldCurrency},
		},
		Rows: []customreport.Row{
			{"number": "INV-2", "issue_date": day(2024, 6, 10), "total": decimal.NewFromInt(1500)},
			{"number": "INV-3", "issue_date": day(2024, 5, 1), "total": decimal.RequireFromString("2000.5")},
		},
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"1234567.891": "1,234,567.89",
		"-1500":       "-1,500.00",
		"0.004":       "0.00",
		"-0.004":      "0.00",
		"999.999":     "1,000.00",
	}
	for in, want := range cases {
		if got := FormatAmount(decimal.RequireFromString(in)); got != want {
			t.Fatalf("FormatAmount(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatFigureAndLabels(t *testing.T) {
	margin := reports.Figure{Key: reports.FigureProfitMargin, Amount: decimal.RequireFromString("40")}
	if got := FormatFigure(margin); got != "40.00%" {
		t.Fatalf("unexpected margin %q", got)
	}
	result := agingResult()
	if got := PeriodLabel(result); got != "As of 2024-07-05" {
		t.Fatalf("unexpected period %q", got)
	}
	if got := Filename(cashResult(), "csv"); got != "cash-flow-2024-06-01-2024-06-30.csv" {
		t.Fatalf("unexpected filename %q", got)
	}
}

func TestWriteResultCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteResultCSV(buf, agingResult()); err != nil {
		t.Fatalf("csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	// header, 2 entries, 2 totals, 2 figures
	if len(records) != 7 {
		t.Fatalf("expected 7 records, got %d: %v", len(records), records)
	}
	entry := records[1]
	if entry[1] != "INV-2" || entry[3] != "Acme & Co" || entry[5] != "2024-07-10" || entry[6] != "-5" || entry[7] != "1500.00" {
		t.Fatalf("unexpected entry row %v", entry)
	}
	if records[2][2] != "Total Current" || records[2][7] != "1500.00" {
		t.Fatalf("unexpected total row %v", records[2])
	}
	if records[6][1] != reports.FigureDocumentCount || records[6][7] != "2.00" {
		t.Fatalf("unexpected figure row %v", records[6])
	}
}

func TestWriteCustomCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteCustomCSV(buf, customResult()); err != nil {
		t.Fatalf("csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if strings.Join(records[0], "|") != "Number|issue_date|Total" {
		t.Fatalf("unexpected header %v", records[0])
	}
	if strings.Join(records[2], "|") != "INV-3|2024-05-01|2000.50" {
		t.Fatalf("unexpected row %v", records[2])
	}
	if strings.Join(records[3], "|") != "Total||3500.50" {
		t.Fatalf("unexpected totals %v", records[3])
	}
}

func TestWriteResultXLSX(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteResultXLSX(buf, cashResult()); err != nil {
		t.Fatalf("xlsx error: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	title, err := f.GetCellValue(reportSheet, "A1")
	if err != nil || title != "Cash Flow" {
		t.Fatalf("unexpected title %q (%v)", title, err)
	}
	// Title, period, blank, header, section label, first entry.
	amount, err := f.GetCellValue(reportSheet, "G6", excelize.Options{RawCellValue: true})
	if err != nil || amount != "500" {
		t.Fatalf("unexpected amount %q (%v)", amount, err)
	}
	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[1] != seriesSheet {
		t.Fatalf("expected series sheet, got %v", sheets)
	}
	running, err := f.GetCellValue(seriesSheet, "E3", excelize.Options{RawCellValue: true})
	if err != nil || running != "300" {
		t.Fatalf("unexpected running balance %q (%v)", running, err)
	}
}

func TestWriteCustomXLSX(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteCustomXLSX(buf, "Large invoices", customResult()); err != nil {
		t.Fatalf("xlsx error: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(reportSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	// title, blank, header, 2 rows, totals
	if len(rows) != 6 {
		t.Fatalf("expected 6 rows, got %d: %v", len(rows), rows)
	}
	if rows[2][0] != "Number" || rows[4][2] != "2000.5" || rows[5][0] != "Total" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

type fakeRenderer struct {
	html string
	err  error
}

func (f *fakeRenderer) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF"), nil
}

func TestPDFExporterRenderResult(t *testing.T) {
	renderer := &fakeRenderer{}
	data, err := NewPDFExporter(renderer).RenderResult(context.Background(), cashResult())
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if string(data) != "%PDF" {
		t.Fatalf("unexpected payload %q", data)
	}
	for _, want := range []string{"<h1>Cash Flow</h1>", "<svg", "Total Financing Activities", "-200.00", "2024-06-01 to 2024-06-30"} {
		if !strings.Contains(renderer.html, want) {
			t.Fatalf("html missing %q", want)
		}
	}
}

func TestPDFExporterEscapesAndTotals(t *testing.T) {
	renderer := &fakeRenderer{}
	if _, err := NewPDFExporter(renderer).RenderResult(context.Background(), agingResult()); err != nil {
		t.Fatalf("render error: %v", err)
	}
	if !strings.Contains(renderer.html, "Acme &amp; Co") || strings.Contains(renderer.html, "Acme & Co") {
		t.Fatalf("contact name not escaped")
	}
	if strings.Contains(renderer.html, "<svg") {
		t.Fatalf("aging report should not embed a chart")
	}

	if _, err := NewPDFExporter(renderer).RenderCustom(context.Background(), "Large invoices", customResult()); err != nil {
		t.Fatalf("render custom error: %v", err)
	}
	if !strings.Contains(renderer.html, "3500.50") || !strings.Contains(renderer.html, "2 rows") {
		t.Fatalf("custom html missing totals: %s", renderer.html)
	}
}

func TestPDFExporterErrors(t *testing.T) {
	if _, err := NewPDFExporter(nil).RenderResult(context.Background(), cashResult()); !errors.Is(err, ErrRendererMissing) {
		t.Fatalf("expected ErrRendererMissing, got %v", err)
	}
	boom := errors.New("gotenberg down")
	if _, err := NewPDFExporter(&fakeRenderer{err: boom}).RenderResult(context.Background(), cashResult()); !errors.Is(err, boom) {
		t.Fatalf("expected renderer error, got %v", err)
	}
}
