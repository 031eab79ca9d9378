// Package export renders tabular record exports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/garyjia/dmt-records/internal/application/port"
)

// CSVWriter renders exports as comma-separated values with a UTF-8 BOM
type CSVWriter struct{}

// NewCSVWriter creates a CSV report writer
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// utf8BOM lets spreadsheet applications detect UTF-8 for the es/zh text
const utf8BOM = "\ufeff"

// Write writes headers followed by rows. sheet is unused for CSV.
func (c *CSVWriter) Write(w io.Writer, sheet string, headers []string, rows [][]string) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("failed to write CSV BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ContentType returns the MIME type of CSV output
func (c *CSVWriter) ContentType() string {
	return "text/csv; charset=utf-8"
}

// Extension returns the file extension of CSV output
func (c *CSVWriter) Extension() string {
	return "csv"
}

// Verify interface compliance
var _ port.ReportWriter = (*CSVWriter)(nil)
