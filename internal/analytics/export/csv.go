package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/odyssey-erp/ledgerbooks/internal/customreport"
	"github.com/odyssey-erp/ledgerbooks/internal/reports"
)

var resultHeader = []string{"Section", "Code", "Name", "Contact", "Date", "Due Date", "Days Overdue", "Amount"}

// WriteResultCSV serialises a statement: one row per entry, a total row per
// section, then the headline figures. Amounts keep two decimals without
// grouping so the file stays machine readable.
func WriteResultCSV(w io.Writer, result reports.Result) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(resultHeader); err != nil {
		return err
	}
	for _, section := range result.Sections {
		for _, entry := range section.Entries {
			record := []string{section.Label, entry.Code, entry.Name, "", "", "", "", entry.Amount.StringFixed(2)}
			if d := entry.Detail; d != nil {
				record[3] = d.Contact
				record[4] = formatDate(d.Date)
				record[5] = formatDate(d.DueDate)
				if !d.DueDate.IsZero() {
					record[6] = strconv.Itoa(d.DaysOverdue)
				}
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		if err := writer.Write([]string{section.Label, "", "Total " + section.Label, "", "", "", "", section.Total.StringFixed(2)}); err != nil {
			return err
		}
	}
	for _, fig := range result.Figures {
		if err := writer.Write([]string{"Summary", fig.Key, fig.Label, "", "", "", "", fig.Amount.StringFixed(2)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCustomCSV emits the projected rows of a custom report with a totals
// row when any column is numeric.
func WriteCustomCSV(w io.Writer, result customreport.Result) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = col.Heading()
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range result.Rows {
		record := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			record[i] = customreport.FormatValue(col.Type, row[col.Key])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	if totals := customTotals(result); totals != nil {
		if err := writer.Write(totals); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// customTotals builds the footer row, nil when nothing is summable.
func customTotals(result customreport.Result) []string {
	sums := customreport.Totals(result)
	if len(sums) == 0 {
		return nil
	}
	record := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		if sum, ok := sums[col.Key]; ok {
			record[i] = customreport.FormatValue(col.Type, sum)
		}
	}
	if record[0] == "" {
		record[0] = "Total"
	}
	return record
}
