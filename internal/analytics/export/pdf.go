package export

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbooks/internal/analytics/svg"
	"github.com/odyssey-erp/ledgerbooks/internal/customreport"
	"github.com/odyssey-erp/ledgerbooks/internal/reports"
)

// Renderer turns an HTML document into PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// ErrRendererMissing is returned when PDF export is not configured.
var ErrRendererMissing = errors.New("export: pdf renderer not configured")

// PDFExporter renders reports to HTML and hands them to a Renderer.
type PDFExporter struct {
	renderer Renderer
}

// NewPDFExporter wires the exporter with a renderer such as a Gotenberg client.
func NewPDFExporter(renderer Renderer) *PDFExporter {
	return &PDFExporter{renderer: renderer}
}

// RenderResult produces a PDF for a statement.
func (p *PDFExporter) RenderResult(ctx context.Context, result reports.Result) ([]byte, error) {
	if p == nil || p.renderer == nil {
		return nil, ErrRendererMissing
	}
	html, err := ResultHTML(result)
	if err != nil {
		return nil, err
	}
	return p.renderer.RenderHTML(ctx, html)
}

// RenderCustom produces a PDF for custom report rows.
func (p *PDFExporter) RenderCustom(ctx context.Context, title string, result customreport.Result) ([]byte, error) {
	if p == nil || p.renderer == nil {
		return nil, ErrRendererMissing
	}
	html, err := CustomHTML(title, result)
	if err != nil {
		return nil, err
	}
	return p.renderer.RenderHTML(ctx, html)
}

const pageStyle = `body{font-family:sans-serif;margin:24px;color:#0f172a;}h1{font-size:20px;margin-bottom:4px;}h2{font-size:15px;margin:16px 0 6px;}.period{color:#475569;margin-top:0;}table{width:100%;border-collapse:collapse;margin-bottom:12px;}th,td{border-bottom:1px solid #e2e8f0;padding:5px 6px;text-align:left;font-size:12px;}thead th{background:#f1f5f9;}tfoot th{border-top:2px solid #94a3b8;}.num{text-align:right;}.chart{margin:12px 0 20px;}`

var templateFuncs = template.FuncMap{
	"amount":  FormatAmount,
	"figure":  FormatFigure,
	"date":    formatDate,
	"numeric": numericColumn,
	"cell":    cellText,
	"total":   totalText,
}

func numericColumn(col customreport.FieldSpec) bool {
	return col.Type.Numeric() || col.Align == customreport.AlignRight
}

func cellText(row customreport.Row, col customreport.FieldSpec) string {
	return customreport.FormatValue(col.Type, row[col.Key])
}

func totalText(totals map[string]decimal.Decimal, col customreport.FieldSpec) string {
	if sum, ok := totals[col.Key]; ok {
		return customreport.FormatValue(col.Type, sum)
	}
	return ""
}

var resultTemplate = template.Must(template.New("result").Funcs(templateFuncs).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title><style>{{.Style}}</style></head><body>
<h1>{{.Title}}</h1>
<p class="period">{{.Period}}</p>
{{if .Chart}}<div class="chart">{{.Chart}}</div>{{end}}
{{range .Result.Sections}}<section><h2>{{.Label}}</h2>
<table><thead><tr><th>Code</th><th>Name</th>{{if $.Detailed}}<th>Contact</th><th>Date</th><th>Due</th><th class="num">Days</th>{{end}}<th class="num">Amount</th></tr></thead>
<tbody>{{range .Entries}}<tr><td>{{.Code}}</td><td>{{.Name}}</td>{{if $.Detailed}}{{with .Detail}}<td>{{.Contact}}</td><td>{{date .Date}}</td><td>{{date .DueDate}}</td><td class="num">{{if not .DueDate.IsZero}}{{.DaysOverdue}}{{end}}</td>{{else}}<td></td><td></td><td></td><td></td>{{end}}{{end}}<td class="num">{{amount .Amount}}</td></tr>
{{end}}</tbody>
<tfoot><tr><th colspan="{{$.LabelSpan}}">Total {{.Label}}</th><th class="num">{{amount .Total}}</th></tr></tfoot></table></section>
{{end}}{{if .Result.Figures}}<section><h2>Summary</h2><table><tbody>{{range .Result.Figures}}<tr><th>{{.Label}}</th><td class="num">{{figure .}}</td></tr>{{end}}</tbody></table></section>{{end}}
<p class="period">Generated {{.Generated}}</p>
</body></html>`))

var customTemplate = template.Must(template.New("custom").Funcs(templateFuncs).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title><style>{{.Style}}</style></head><body>
<h1>{{.Title}}</h1>
<table><thead><tr>{{range .Result.Columns}}<th{{if numeric .}} class="num"{{end}}>{{.Heading}}</th>{{end}}</tr></thead>
<tbody>{{range $row := .Result.Rows}}<tr>{{range $.Result.Columns}}<td{{if numeric .}} class="num"{{end}}>{{cell $row .}}</td>{{end}}</tr>
{{end}}</tbody>{{if .Totals}}
<tfoot><tr>{{range $i, $col := .Result.Columns}}<th{{if numeric $col}} class="num"{{end}}>{{with total $.Totals $col}}{{.}}{{else}}{{if eq $i 0}}Total{{end}}{{end}}</th>{{end}}</tr></tfoot>{{end}}</table>
<p class="period">{{len .Result.Rows}} rows. Generated {{.Generated}}</p>
</body></html>`))

type resultPage struct {
	Title     string
	Style     template.CSS
	Period    string
	Chart     template.HTML
	Result    reports.Result
	Detailed  bool
	LabelSpan int
	Generated string
}

type customPage struct {
	Title     string
	Style     template.CSS
	Result    customreport.Result
	Totals    map[string]decimal.Decimal
	Generated string
}

// ResultHTML renders a statement as a standalone HTML page. Results with a
// series embed a cash flow chart.
func ResultHTML(result reports.Result) (string, error) {
	page := resultPage{
		Title:     result.Kind.Title(),
		Style:     template.CSS(pageStyle),
		Period:    PeriodLabel(result),
		Result:    result,
		Detailed:  detailed(result),
		LabelSpan: 2,
		Generated: time.Now().UTC().Format(time.RFC1123),
	}
	if page.Detailed {
		page.LabelSpan = 6
	}
	if len(result.Series) > 0 {
		if chart, err := svg.CashFlow(result.Series, svg.Opts{Title: page.Title, Description: page.Period}); err == nil {
			page.Chart = chart
		}
	}
	var buf bytes.Buffer
	if err := resultTemplate.Execute(&buf, page); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CustomHTML renders custom report rows as a standalone HTML page.
func CustomHTML(title string, result customreport.Result) (string, error) {
	if title == "" {
		title = "Custom Report"
	}
	page := customPage{
		Title:     title,
		Style:     template.CSS(pageStyle),
		Result:    result,
		Generated: time.Now().UTC().Format(time.RFC1123),
	}
	if totals := customreport.Totals(result); len(totals) > 0 {
		page.Totals = totals
	}
	var buf bytes.Buffer
	if err := customTemplate.Execute(&buf, page); err != nil {
		return "", err
	}
	return buf.String(), nil
}
