package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/garyjia/dmt-records/internal/application/port"
)

const defaultSheet = "Sheet1"

// XLSXWriter renders exports as an Excel workbook with a single sheet
type XLSXWriter struct {
	columnWidth float64
}

// NewXLSXWriter creates an XLSX report writer
func NewXLSXWriter() *XLSXWriter {
	return &XLSXWriter{columnWidth: 18}
}

// Write renders headers in bold on row 1 followed by rows
func (x *XLSXWriter) Write(w io.Writer, sheet string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = defaultSheet
	}
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := setRow(f, sheet, 1, headers); err != nil {
		return err
	}
	if len(headers) > 0 {
		last, err := excelize.CoordinatesToCellName(len(headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style headers: %w", err)
		}
		lastCol, err := excelize.ColumnNumberToName(len(headers))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", lastCol, x.columnWidth); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

// ContentType returns the MIME type of XLSX output
func (x *XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Extension returns the file extension of XLSX output
func (x *XLSXWriter) Extension() string {
	return "xlsx"
}

// Verify interface compliance
var _ port.ReportWriter = (*XLSXWriter)(nil)
