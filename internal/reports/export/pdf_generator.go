package export

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFGenerator generates PDF reports
type PDFGenerator struct {
	pdf     *gofpdf.Fpdf
	options PDFOptions
}

// PDFOptions configures PDF generation
type PDFOptions struct {
	PageSize       string     `json:"page_size"`
	Orientation    string     `json:"orientation"` // portrait, landscape
	Title          string     `json:"title"`
	DateFormat     string     `json:"date_format"`
	HeaderColor    PDFColor   `json:"header_color"`
	AlternateColor PDFColor   `json:"alternate_color"`
	FontFamily     string     `json:"font_family"`
	FontSize       float64    `json:"font_size"`
	TitleFontSize  float64    `json:"title_font_size"`
	Margins        PDFMargins `json:"margins"`
}

// PDFColor represents an RGB color
type PDFColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// PDFMargins represents page margins
type PDFMargins struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:       "A4",
		Orientation:    "portrait",
		Title:          "Report",
		DateFormat:     "2006-01-02",
		HeaderColor:    PDFColor{R: 46, G: 125, B: 50},
		AlternateColor: PDFColor{R: 242, G: 242, B: 242},
		FontFamily:     "Arial",
		FontSize:       8,
		TitleFontSize:  16,
		Margins:        PDFMargins{Left: 10, Right: 10, Top: 15, Bottom: 15},
	}
}

// NewPDFGenerator creates a new PDF generator
func NewPDFGenerator(options PDFOptions) *PDFGenerator {
	orientation := "P"
	if options.Orientation == "landscape" {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", options.PageSize, "")
	pdf.SetMargins(options.Margins.Left, options.Margins.Top, options.Margins.Right)
	pdf.SetAutoPageBreak(false, options.Margins.Bottom)

	g := &PDFGenerator{pdf: pdf, options: options}
	g.setFooter()
	return g
}

// GenerateReport lays out the title, the table and the summary section
func (g *PDFGenerator) GenerateReport(table Table) error {
	g.pdf.AddPage()

	g.pdf.SetFont(g.options.FontFamily, "B", g.options.TitleFontSize)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 10, g.options.Title, "", 1, "C", false, 0, "")

	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(128, 128, 128)
	generated := fmt.Sprintf("Generated: %s", table.GeneratedAt.Format(g.options.DateFormat))
	g.pdf.CellFormat(0, 6, generated, "", 1, "R", false, 0, "")
	g.pdf.Ln(4)

	if len(table.Columns) > 0 {
		widths := g.columnWidths(len(table.Columns))
		g.addTableHeader(table.Columns, widths)
		g.addTableData(table.Columns, table.Rows, widths)
	}

	if len(table.Summary) > 0 {
		g.addSummary(table.Summary)
	}
	return g.pdf.Error()
}

func (g *PDFGenerator) columnWidths(n int) []float64 {
	pageWidth, _ := g.pdf.GetPageSize()
	available := pageWidth - g.options.Margins.Left - g.options.Margins.Right
	widths := make([]float64, n)
	for i := range widths {
		widths[i] = available / float64(n)
	}
	return widths
}

func (g *PDFGenerator) addTableHeader(labels []string, widths []float64) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize)
	g.pdf.SetFillColor(g.options.HeaderColor.R, g.options.HeaderColor.G, g.options.HeaderColor.B)
	g.pdf.SetTextColor(255, 255, 255)

	for i, label := range labels {
		g.pdf.CellFormat(widths[i], 7, truncate(label, widths[i]), "1", 0, "C", true, 0, "")
	}
	g.pdf.Ln(-1)
}

func (g *PDFGenerator) addTableData(columns []string, rows [][]any, widths []float64) {
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(0, 0, 0)

	_, pageHeight := g.pdf.GetPageSize()
	for i, row := range rows {
		if g.pdf.GetY()+7 > pageHeight-g.options.Margins.Bottom {
			g.pdf.AddPage()
			g.addTableHeader(columns, widths)
			g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
			g.pdf.SetTextColor(0, 0, 0)
		}

		if i%2 == 1 {
			g.pdf.SetFillColor(g.options.AlternateColor.R, g.options.AlternateColor.G, g.options.AlternateColor.B)
		} else {
			g.pdf.SetFillColor(255, 255, 255)
		}

		for j := range columns {
			var val any
			if j < len(row) {
				val = row[j]
			}
			g.pdf.CellFormat(widths[j], 6, truncate(g.formatValue(val), widths[j]), "1", 0, "L", true, 0, "")
		}
		g.pdf.Ln(-1)
	}
}

func (g *PDFGenerator) addSummary(items []SummaryItem) {
	g.pdf.Ln(8)
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize+2)
	g.pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")

	for _, item := range items {
		g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize)
		g.pdf.CellFormat(50, 6, item.Label+":", "", 0, "L", false, 0, "")
		g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
		g.pdf.CellFormat(0, 6, g.formatValue(item.Value), "", 1, "L", false, 0, "")
	}
}

func (g *PDFGenerator) formatValue(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(g.options.DateFormat)
	case *time.Time:
		if v == nil || v.IsZero() {
			return ""
		}
		return v.Format(g.options.DateFormat)
	case float64:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncate shortens s to roughly fit a cell of the given width in mm
func truncate(s string, width float64) string {
	maxChars := int(width / 1.6)
	if maxChars < 4 || len(s) <= maxChars {
		return s
	}
	return s[:maxChars-3] + "..."
}

// WriteTo writes the PDF to a writer
func (g *PDFGenerator) WriteTo(w io.Writer) error {
	return g.pdf.Output(w)
}

func (g *PDFGenerator) setFooter() {
	g.pdf.SetFooterFunc(func() {
		g.pdf.SetY(-12)
		g.pdf.SetFont(g.options.FontFamily, "", 7)
		g.pdf.SetTextColor(128, 128, 128)
		g.pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", g.pdf.PageNo()), "", 0, "C", false, 0, "")
	})
}
