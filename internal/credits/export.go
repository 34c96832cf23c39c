package credits

import (
	"time"

	"carbon-scribe/project-portal/ledger-backend/internal/reports/export"
)

var exportColumns = []string{
	"Batch ID", "Project", "Vintage", "Quantity", "Price", "Total Value",
	"Status", "Standard", "Registry", "Serial Start", "Serial End", "Issued", "Retired",
}

// ExportTable renders the portfolio with a statistics summary
func ExportTable(records []CreditRecord, now time.Time) export.Table {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			r.BatchID, r.ProjectName, r.VintageYear, r.Quantity, r.PricePerUnit, r.TotalValue,
			string(r.Status), r.Standard, r.Registry, r.SerialNumberStart, r.SerialNumberEnd,
			r.IssueDate, r.RetirementDate,
		})
	}

	stats := ComputeStats(records, now)
	return export.Table{
		Title:   "Carbon Credit Portfolio",
		Columns: exportColumns,
		Rows:    rows,
		Summary: []export.SummaryItem{
			{Label: "Records", Value: stats.RecordCount},
			{Label: "Total Credits", Value: stats.TotalCredits},
			{Label: "Available Credits", Value: stats.AvailableCredits},
			{Label: "Retired Credits", Value: stats.RetiredCredits},
			{Label: "Total Value", Value: stats.TotalValue},
		},
		GeneratedAt: now,
	}
}
