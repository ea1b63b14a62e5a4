package svg

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbooks/internal/reports"
)

func points() []reports.SeriesPoint {
	return []reports.SeriesPoint{
		{Label: "Jun 1", Amount: decimal.NewFromInt(500), Running: decimal.NewFromInt(500)},
		{Label: "Jun 8", Amount: decimal.NewFromInt(-200), Running: decimal.NewFromInt(300)},
		{Label: "Jun 15", Amount: decimal.Zero, Running: decimal.NewFromInt(300)},
	}
}

func TestCashFlowProducesSVG(t *testing.T) {
	html, err := CashFlow(points(), Opts{Title: "Cash Flow", Description: "Weekly net movement"})
	if err != nil {
		t.Fatalf("chart error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") {
		t.Fatalf("expected svg output, got %s", output)
	}
	if got := strings.Count(output, "<circle"); got != 3 {
		t.Fatalf("expected 3 running balance markers, got %d", got)
	}
	if !strings.Contains(output, "#dc2626") {
		t.Fatalf("expected outflow bar colour")
	}
	if !strings.Contains(output, "aria-labelledby=\"cash-flow-cashflow-title cash-flow-cashflow-desc\"") {
		t.Fatalf("expected accessibility attributes")
	}
	if !strings.Contains(output, "Jun 15") {
		t.Fatalf("expected axis label")
	}
}

func TestCashFlowWithoutRunningLine(t *testing.T) {
	html, err := CashFlow(points(), Opts{HideRunning: true})
	if err != nil {
		t.Fatalf("chart error: %v", err)
	}
	if strings.Contains(string(html), "<path") {
		t.Fatalf("running line should be hidden")
	}
}

func TestCashFlowRejectsEmptySeries(t *testing.T) {
	if _, err := CashFlow(nil, Opts{}); err == nil {
		t.Fatalf("expected error for empty series")
	}
	if _, err := CashFlow(points(), Opts{Width: 40, Height: 40, Padding: 30}); err == nil {
		t.Fatalf("expected viewport error")
	}
}
