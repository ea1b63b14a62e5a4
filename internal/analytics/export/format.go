package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/ledgerbooks/internal/reports"
)

const dateLayout = "2006-01-02"

var printer = message.NewPrinter(language.English)

// FormatAmount renders d with thousands separators and two decimals.
func FormatAmount(d decimal.Decimal) string {
	rounded := d.Round(2)
	whole, frac, _ := strings.Cut(rounded.Abs().StringFixed(2), ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return rounded.StringFixed(2)
	}
	out := printer.Sprintf("%d", n) + "." + frac
	if rounded.IsNegative() {
		out = "-" + out
	}
	return out
}

// FormatFigure renders a headline figure. Margins are percentages and
// counts are whole numbers.
func FormatFigure(fig reports.Figure) string {
	switch fig.Key {
	case reports.FigureProfitMargin:
		return fig.Amount.StringFixed(2) + "%"
	case reports.FigureDocumentCount:
		return fig.Amount.Truncate(0).String()
	default:
		return FormatAmount(fig.Amount)
	}
}

// PeriodLabel describes the dates a result covers.
func PeriodLabel(result reports.Result) string {
	if !result.AsOf.IsZero() {
		return "As of " + formatDate(result.AsOf)
	}
	return formatDate(result.StartDate) + " to " + formatDate(result.EndDate)
}

// Filename suggests a download name for the result.
func Filename(result reports.Result, ext string) string {
	name := strings.ReplaceAll(string(result.Kind), "_", "-")
	if !result.AsOf.IsZero() {
		return name + "-" + formatDate(result.AsOf) + "." + ext
	}
	return name + "-" + formatDate(result.StartDate) + "-" + formatDate(result.EndDate) + "." + ext
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func detailed(result reports.Result) bool {
	for _, section := range result.Sections {
		for _, entry := range section.Entries {
			if entry.Detail != nil {
				return true
			}
		}
	}
	return false
}
