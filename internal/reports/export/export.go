// Package export renders tabular ledger data as CSV, Excel or PDF documents.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat parses a format name, defaulting to CSV when empty
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv"
	}
}

// Filename returns base with the format's extension
func (f Format) Filename(base string) string {
	return base + "." + string(f)
}

// Table is a titled grid of values. Summary rows are rendered after the
// table in formats that support it.
type Table struct {
	Title       string
	Columns     []string
	Rows        [][]any
	Summary     []SummaryItem
	GeneratedAt time.Time
}

// SummaryItem is one labelled aggregate value
type SummaryItem struct {
	Label string
	Value any
}

// Write renders table to w in the given format
func Write(w io.Writer, format Format, table Table) error {
	if table.GeneratedAt.IsZero() {
		table.GeneratedAt = time.Now()
	}

	switch format {
	case FormatCSV:
		e := NewCSVExporter(w, DefaultCSVOptions())
		if err := e.WriteHeader(table.Columns); err != nil {
			return err
		}
		if err := e.WriteRows(table.Rows); err != nil {
			return err
		}
		return e.Flush()

	case FormatXLSX:
		e := NewExcelExporter(DefaultExcelOptions())
		defer e.Close()
		if err := e.WriteTable(table); err != nil {
			return err
		}
		return e.WriteTo(w)

	case FormatPDF:
		options := DefaultPDFOptions()
		options.Title = table.Title
		if len(table.Columns) > 6 {
			options.Orientation = "landscape"
		}
		g := NewPDFGenerator(options)
		if err := g.GenerateReport(table); err != nil {
			return err
		}
		return g.WriteTo(w)

	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
