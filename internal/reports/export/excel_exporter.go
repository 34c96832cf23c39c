package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter exports a table to an Excel workbook
type ExcelExporter struct {
	file    *excelize.File
	options ExcelOptions
}

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	SheetName        string            `json:"sheet_name"`
	SummarySheetName string            `json:"summary_sheet_name"`
	FreezeHeader     bool              `json:"freeze_header"`
	AutoFilter       bool              `json:"auto_filter"`
	NumberFormat     string            `json:"number_format"`
	HeaderStyle      *ExcelStyleConfig `json:"header_style,omitempty"`
}

// ExcelStyleConfig defines style for cells
type ExcelStyleConfig struct {
	FontBold  bool   `json:"font_bold"`
	FontSize  int    `json:"font_size"`
	FontColor string `json:"font_color"`
	FillColor string `json:"fill_color"`
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		SheetName:        "Credits",
		SummarySheetName: "Summary",
		FreezeHeader:     true,
		AutoFilter:       true,
		NumberFormat:     "#,##0.00",
		HeaderStyle: &ExcelStyleConfig{
			FontBold:  true,
			FontSize:  11,
			FontColor: "FFFFFF",
			FillColor: "2E7D32",
		},
	}
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(options ExcelOptions) *ExcelExporter {
	file := excelize.NewFile()
	file.SetSheetName("Sheet1", options.SheetName)

	return &ExcelExporter{
		file:    file,
		options: options,
	}
}

// WriteTable writes the header, rows and, when present, a summary sheet
func (e *ExcelExporter) WriteTable(table Table) error {
	sheet := e.options.SheetName

	headerStyle := 0
	if e.options.HeaderStyle != nil {
		style, err := e.createStyle(e.options.HeaderStyle)
		if err != nil {
			return fmt.Errorf("failed to create header style: %w", err)
		}
		headerStyle = style
	}

	header := make([]any, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col
	}
	if err := e.file.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if headerStyle > 0 && len(table.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(table.Columns), 1)
		e.file.SetCellStyle(sheet, "A1", last, headerStyle)
	}

	numberStyle, err := e.file.NewStyle(&excelize.Style{CustomNumFmt: &e.options.NumberFormat})
	if err != nil {
		return fmt.Errorf("failed to create number style: %w", err)
	}
	dateStyle, err := e.file.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}

	for r, row := range table.Rows {
		for c, val := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := e.setCellValue(sheet, cell, val, numberStyle, dateStyle); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if e.options.FreezeHeader {
		e.file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}

	if e.options.AutoFilter && len(table.Columns) > 0 {
		lastRow, _ := excelize.CoordinatesToCellName(len(table.Columns), len(table.Rows)+1)
		if err := e.file.AutoFilter(sheet, "A1:"+lastRow, nil); err != nil {
			return fmt.Errorf("failed to add auto filter: %w", err)
		}
	}

	if len(table.Summary) > 0 {
		return e.writeSummary(table.Summary, headerStyle)
	}
	return nil
}

func (e *ExcelExporter) writeSummary(items []SummaryItem, labelStyle int) error {
	sheet := e.options.SummarySheetName
	if _, err := e.file.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}
	for i, item := range items {
		row := []any{item.Label, item.Value}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := e.file.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
		if labelStyle > 0 {
			e.file.SetCellStyle(sheet, cell, cell, labelStyle)
		}
	}
	return e.file.SetColWidth(sheet, "A", "A", 24)
}

// WriteTo writes the workbook to w
func (e *ExcelExporter) WriteTo(w io.Writer) error {
	_, err := e.file.WriteTo(w)
	return err
}

// Close releases the workbook
func (e *ExcelExporter) Close() error {
	return e.file.Close()
}

func (e *ExcelExporter) createStyle(config *ExcelStyleConfig) (int, error) {
	style := &excelize.Style{
		Font: &excelize.Font{
			Bold:  config.FontBold,
			Size:  float64(config.FontSize),
			Color: config.FontColor,
		},
	}
	if config.FillColor != "" {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{config.FillColor},
		}
	}
	return e.file.NewStyle(style)
}

func (e *ExcelExporter) setCellValue(sheet, cell string, val any, numberStyle, dateStyle int) error {
	switch v := val.(type) {
	case nil:
		return e.file.SetCellValue(sheet, cell, "")
	case *time.Time:
		if v == nil {
			return e.file.SetCellValue(sheet, cell, "")
		}
		return e.setCellValue(sheet, cell, *v, numberStyle, dateStyle)
	case time.Time:
		if v.IsZero() {
			return e.file.SetCellValue(sheet, cell, "")
		}
		if err := e.file.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		return e.file.SetCellStyle(sheet, cell, cell, dateStyle)
	case float64:
		if err := e.file.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		return e.file.SetCellStyle(sheet, cell, cell, numberStyle)
	default:
		return e.file.SetCellValue(sheet, cell, v)
	}
}
