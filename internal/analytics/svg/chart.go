package svg

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/odyssey-erp/ledgerbooks/internal/reports"
)

// Defaults for the report charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 32.0
	DefaultTicks   = 5
)

// Opts customises the cash flow chart.
type Opts struct {
	Title         string
	Description   string
	Width         int
	Height        int
	Padding       float64
	TickCount     int
	InflowColor   string
	OutflowColor  string
	RunningColor  string
	AxisColor     string
	GridColor     string
	HideRunning   bool
}

// CashFlow renders per-period net movement as bars with the running balance
// drawn as a line on the same scale.
func CashFlow(points []reports.SeriesPoint, opts Opts) (template.HTML, error) {
	if len(points) == 0 {
		return "", errors.New("svg: series required")
	}
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	tickCount := opts.TickCount
	if tickCount <= 0 {
		tickCount = DefaultTicks
	}
	inflow := fallback(opts.InflowColor, "#16a34a")
	outflow := fallback(opts.OutflowColor, "#dc2626")
	running := fallback(opts.RunningColor, "#2563eb")
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#cbd5e1")

	chartWidth := float64(width) - 2*padding
	chartHeight := float64(height) - 2*padding
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", errors.New("svg: viewport too small")
	}

	net := make([]float64, len(points))
	balance := make([]float64, len(points))
	for i, point := range points {
		net[i] = point.Amount.InexactFloat64()
		balance[i] = point.Running.InexactFloat64()
	}
	minVal, maxVal := bounds(net)
	if !opts.HideRunning {
		lo, hi := bounds(balance)
		minVal, maxVal = math.Min(minVal, lo), math.Max(maxVal, hi)
	}
	minVal, maxVal = math.Min(minVal, 0), math.Max(maxVal, 0)
	if almostEqual(maxVal, minVal) {
		maxVal = minVal + 1
	}
	scale := chartHeight / (maxVal - minVal)
	bottom := padding + chartHeight
	yFor := func(v float64) float64 { return bottom - (v-minVal)*scale }
	zeroY := yFor(0)

	slot := chartWidth / float64(len(points))
	barWidth := slot * 0.6

	titleID := makeID(opts.Title, "cashflow-title")
	descID := makeID(opts.Title, "cashflow-desc")

	var b strings.Builder
	fmt.Fprintf(&b, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID)
	fmt.Fprintf(&b, "<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Cash flow")))
	fmt.Fprintf(&b, "<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Net cash movement per period")))

	for i := 0; i <= tickCount; i++ {
		ratio := float64(i) / float64(tickCount)
		value := minVal + (maxVal-minVal)*ratio
		y := bottom - ratio*chartHeight
		fmt.Fprintf(&b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>", padding, y, padding+chartWidth, y, gridColor)
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>", padding-6, y+4, axisColor, template.HTMLEscapeString(formatTick(value)))
	}

	// Axes
	fmt.Fprintf(&b, "<g stroke=\"%s\" aria-label=\"Axes\">", axisColor)
	fmt.Fprintf(&b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, padding, padding, bottom)
	fmt.Fprintf(&b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, zeroY, padding+chartWidth, zeroY)
	b.WriteString("</g>")

	var path strings.Builder
	for i, point := range points {
		center := padding + slot*(float64(i)+0.5)
		y, h := zeroY, 0.0
		color := inflow
		if net[i] >= 0 {
			y = yFor(net[i])
			h = zeroY - y
		} else {
			h = yFor(net[i]) - zeroY
			color = outflow
		}
		fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\" aria-label=\"%s %s\"></rect>",
			center-barWidth/2, y, barWidth, h, color, template.HTMLEscapeString(point.Label), point.Amount.StringFixed(2))
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", center, bottom+14, axisColor, template.HTMLEscapeString(point.Label))

		if i == 0 {
			fmt.Fprintf(&path, "M%.2f %.2f", center, yFor(balance[i]))
		} else {
			fmt.Fprintf(&path, " L%.2f %.2f", center, yFor(balance[i]))
		}
	}

	if !opts.HideRunning {
		fmt.Fprintf(&b, "<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\" stroke-linejoin=\"round\" stroke-linecap=\"round\"></path>", path.String(), running)
		for i := range points {
			center := padding + slot*(float64(i)+0.5)
			fmt.Fprintf(&b, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"3\" fill=\"%s\"></circle>", center, yFor(balance[i]), running)
		}
	}

	// Legend
	legendY := math.Max(padding-12, 12)
	fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"10\" height=\"10\" fill=\"%s\"></rect>", padding, legendY-8, inflow)
	fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\">Net movement</text>", padding+14, legendY, axisColor)
	if !opts.HideRunning {
		fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"10\" height=\"10\" fill=\"%s\"></rect>", padding+110, legendY-8, running)
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\">Running balance</text>", padding+124, legendY, axisColor)
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func bounds(series []float64) (float64, float64) {
	minVal, maxVal := series[0], series[0]
	for _, v := range series[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	return minVal, maxVal
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", v/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case almostEqual(v, math.Round(v)):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
