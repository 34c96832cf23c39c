package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() Table {
	issued := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return Table{
		Title:   "Credit Portfolio",
		Columns: []string{"Batch", "Project", "Quantity", "Issued", "Retired"},
		Rows: [][]any{
			{"BCR-2025-001", "Sundarbans", 1200.5, issued, nil},
			{"BCR-2025-002", "Demo, Coast", 300.0, issued, &issued},
		},
		Summary:     []SummaryItem{{Label: "Total Credits", Value: 1500.5}},
		GeneratedAt: issued,
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatCSV, "CSV": FormatCSV, "xlsx": FormatXLSX, "excel": FormatXLSX, " pdf ": FormatPDF} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("docx")
	assert.Error(t, err)

	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "credits.xlsx", FormatXLSX.Filename("credits"))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleTable()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Batch", "Project", "Quantity", "Issued", "Retired"}, records[0])
	assert.Equal(t, "1200.5", records[1][2])
	assert.Equal(t, "", records[1][4])
	assert.Equal(t, "Demo, Coast", records[2][1])
	assert.Equal(t, "2025-03-01T00:00:00Z", records[2][4])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleTable()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	batch, err := f.GetCellValue("Credits", "A2")
	require.NoError(t, err)
	assert.Equal(t, "BCR-2025-001", batch)

	label, err := f.GetCellValue("Summary", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Total Credits", label)
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatPDF, sampleTable()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestWriteUnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, Format("docx"), sampleTable()))
}
