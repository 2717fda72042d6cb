package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"tenderpricing/pricing"
)

// ErrUnsupportedFormat is returned for uploads that are neither CSV nor XLSX.
var ErrUnsupportedFormat = fmt.Errorf("unsupported file format: must be .csv or .xlsx")

// ParseBoQFile reads a CSV or XLSX upload into import rows keyed by the
// file's own headings. Blank lines and total rows are dropped; heading
// aliases are resolved later by pricing.Project.ImportRows.
func ParseBoQFile(file io.Reader, fileName string) ([]pricing.Row, error) {
	var headers []string
	var dataRows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		headers, dataRows, err = parseCSV(file)
	case ".xlsx":
		headers, dataRows, err = parseExcel(file)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	codeCol := -1
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if key, ok := pricing.CanonicalColumn(headers[i]); ok && key == pricing.ColCode {
			codeCol = i
		}
	}

	rows := make([]pricing.Row, 0, len(dataRows))
	for _, data := range dataRows {
		if isBlankLine(data) || isTotalLine(data, codeCol) {
			continue
		}
		row := make(pricing.Row, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			value := ""
			if i < len(data) {
				value = strings.TrimSpace(data[i])
			}
			row[h] = value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseCSV reads a CSV file and returns headers + data rows.
func parseCSV(file io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(allRows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}

	return allRows[0], allRows[1:], nil
}

// parseExcel reads an xlsx file and returns headers + data rows from the first sheet.
func parseExcel(file io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}

	for _, r := range rows {
		for i := range r {
			r[i] = unsanitizeExcelCell(r[i])
		}
	}
	return rows[0], rows[1:], nil
}

// unsanitizeExcelCell reverses sanitizeExcelCell for cells written by our
// own exports.
func unsanitizeExcelCell(s string) string {
	if len(s) < 2 || s[0] != '\'' {
		return s
	}
	switch s[1] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return s[1:]
	}
	return s
}

func isBlankLine(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isTotalLine(cells []string, codeCol int) bool {
	if codeCol < 0 || codeCol >= len(cells) {
		return false
	}
	code := strings.TrimSpace(cells[codeCol])
	return strings.EqualFold(code, pricing.TotalCodeEnglish) || code == pricing.TotalCodeArabic
}
