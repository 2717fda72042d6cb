package services

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"

	"tenderpricing/pricing"
)

// GenerateResultExcel creates the priced BoQ workbook from the given
// ExportData: a result sheet and, when risks were declared, a risk sheet.
func GenerateResultExcel(data ExportData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "التسعير"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	if err := setRightToLeft(f, sheetName); err != nil {
		return nil, err
	}

	// Column references (A through I).
	columns := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"}
	lastCol := columns[len(columns)-1]

	widths := []float64{6, 12, 44, 10, 10, 16, 18, 16, 18}
	for i, col := range columns {
		if err := f.SetColWidth(sheetName, col, col, widths[i]); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	st, err := newSheetStyles(f)
	if err != nil {
		return nil, err
	}

	// ── Header Rows (1-3) ───────────────────────────────────────────────

	if err := f.MergeCell(sheetName, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheetName, "A1", sanitizeExcelCell(data.Title))
	f.SetCellStyle(sheetName, "A1", lastCol+"1", st.title)

	if err := f.MergeCell(sheetName, "A2", lastCol+"2"); err != nil {
		return nil, fmt.Errorf("merge code: %w", err)
	}
	f.SetCellValue(sheetName, "A2", sanitizeExcelCell("رمز المشروع: "+data.Code+"   الاستراتيجية: "+data.Strategy))
	f.SetCellStyle(sheetName, "A2", lastCol+"2", st.subtitle)

	if err := f.MergeCell(sheetName, "A3", lastCol+"3"); err != nil {
		return nil, fmt.Errorf("merge date: %w", err)
	}
	f.SetCellValue(sheetName, "A3", "تاريخ التسعير: "+data.PricedAt)
	f.SetCellStyle(sheetName, "A3", lastCol+"3", st.subtitle)

	// ── Row 5: Column Headers ───────────────────────────────────────────

	headers := []string{"#", "الرمز", "الوصف", "الكمية", "الوحدة", "سعر الوحدة", "الإجمالي", "سعر الوحدة النهائي", "الإجمالي النهائي"}
	for i, h := range headers {
		f.SetCellValue(sheetName, columns[i]+"5", h)
	}
	f.SetCellStyle(sheetName, "A5", lastCol+"5", st.header)

	// ── Data Rows (starting row 6) ──────────────────────────────────────

	row := 6
	for _, r := range data.Rows {
		rowStr := cast.ToString(row)

		desc := r.Description
		if r.Level == 1 {
			desc = "  " + desc
		}
		f.SetCellValue(sheetName, "A"+rowStr, r.Index)
		f.SetCellValue(sheetName, "B"+rowStr, sanitizeExcelCell(r.Code))
		f.SetCellValue(sheetName, "C"+rowStr, sanitizeExcelCell(desc))
		f.SetCellValue(sheetName, "D"+rowStr, r.Qty)
		f.SetCellValue(sheetName, "E"+rowStr, sanitizeExcelCell(r.UOM))
		f.SetCellValue(sheetName, "F"+rowStr, r.UnitPrice)
		f.SetCellValue(sheetName, "G"+rowStr, r.Total)

		style := st.subItem
		if r.Level == 0 {
			f.SetCellValue(sheetName, "H"+rowStr, r.FinalUnitPrice)
			f.SetCellValue(sheetName, "I"+rowStr, r.FinalTotalPrice)
			style = st.mainItem
		}
		f.SetCellStyle(sheetName, "A"+rowStr, lastCol+rowStr, style)
		row++
	}

	// ── Summary Rows ────────────────────────────────────────────────────

	row++
	for _, s := range data.Summary {
		rowStr := cast.ToString(row)
		f.SetCellValue(sheetName, "C"+rowStr, s.Label)
		f.SetCellValue(sheetName, "G"+rowStr, FormatAmount(s.Value))
		label, value := st.summaryLabel, st.summaryValue
		if !s.Total {
			label, value = st.subtitle, st.subtitle
		}
		f.SetCellStyle(sheetName, "C"+rowStr, "C"+rowStr, label)
		f.SetCellStyle(sheetName, "G"+rowStr, "G"+rowStr, value)
		row++
	}

	rowStr := cast.ToString(row)
	f.SetCellValue(sheetName, "C"+rowStr, "نسبة المحتوى المحلي")
	f.SetCellValue(sheetName, "G"+rowStr, FormatPercent(data.LocalContentPercent))
	f.SetCellStyle(sheetName, "C"+rowStr, "C"+rowStr, st.summaryLabel)
	row += 2

	for _, note := range data.Notes {
		rowStr := cast.ToString(row)
		f.SetCellValue(sheetName, "C"+rowStr, sanitizeExcelCell("• "+note))
		row++
	}

	if len(data.Risks) > 0 {
		if err := writeRiskSheet(f, st, data.Risks); err != nil {
			return nil, err
		}
	}

	return writeWorkbook(f)
}

func writeRiskSheet(f *excelize.File, st sheetStyles, risks []pricing.RiskCharge) error {
	sheetName := "المخاطر"
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("new risk sheet: %w", err)
	}
	if err := setRightToLeft(f, sheetName); err != nil {
		return err
	}

	columns := []string{"A", "B", "C", "D", "E", "F", "G"}
	widths := []float64{16, 44, 14, 14, 10, 14, 16}
	for i, col := range columns {
		if err := f.SetColWidth(sheetName, col, col, widths[i]); err != nil {
			return fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	headers := []string{"الفئة", "الوصف", "الاحتمالية", "التأثير", "الدرجة", "الأثر على التكلفة", "تكلفة المخاطرة"}
	for i, h := range headers {
		f.SetCellValue(sheetName, columns[i]+"1", h)
	}
	f.SetCellStyle(sheetName, "A1", "G1", st.header)

	for i, r := range risks {
		rowStr := cast.ToString(i + 2)
		f.SetCellValue(sheetName, "A"+rowStr, r.Category.Label())
		f.SetCellValue(sheetName, "B"+rowStr, sanitizeExcelCell(r.Description))
		f.SetCellValue(sheetName, "C"+rowStr, pricing.ProbabilityLabel(r.Probability))
		f.SetCellValue(sheetName, "D"+rowStr, pricing.ImpactLabel(r.Impact))
		f.SetCellValue(sheetName, "E"+rowStr, r.Score)
		f.SetCellValue(sheetName, "F"+rowStr, FormatRate(r.CostImpact))
		f.SetCellValue(sheetName, "G"+rowStr, r.Applied)
		f.SetCellStyle(sheetName, "A"+rowStr, "G"+rowStr, st.subItem)
	}
	return nil
}

// GenerateBoQExcel writes rows as a plain table with the given column
// order on the first sheet, so the file can be imported again.
func GenerateBoQExcel(rows []pricing.Row, lang pricing.Lang) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "BOQ"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	if lang == pricing.LangArabic {
		if err := setRightToLeft(f, sheetName); err != nil {
			return nil, err
		}
	}

	headers := pricing.ExportColumns(rows, lang)
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		f.SetCellValue(sheetName, cell, h)
	}

	for r, row := range rows {
		for c, h := range headers {
			v, ok := row[h]
			if !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if s, isString := v.(string); isString {
				f.SetCellValue(sheetName, cell, sanitizeExcelCell(s))
				continue
			}
			f.SetCellValue(sheetName, cell, v)
		}
	}

	return writeWorkbook(f)
}

// GenerateRejectedRowsReport lists the rows refused by an import with the
// problem found in each field.
func GenerateRejectedRowsReport(rejected []pricing.RejectedRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "الصفوف المرفوضة"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	if err := setRightToLeft(f, sheetName); err != nil {
		return nil, err
	}

	st, err := newSheetStyles(f)
	if err != nil {
		return nil, err
	}

	f.SetColWidth(sheetName, "A", "A", 10)
	f.SetColWidth(sheetName, "B", "B", 20)
	f.SetColWidth(sheetName, "C", "C", 60)
	f.SetCellValue(sheetName, "A1", "رقم الصف")
	f.SetCellValue(sheetName, "B1", "الحقل")
	f.SetCellValue(sheetName, "C1", "المشكلة")
	f.SetCellStyle(sheetName, "A1", "C1", st.header)

	row := 2
	for _, rj := range rejected {
		fields := make([]string, 0, len(rj.Fields))
		for k := range rj.Fields {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		for _, field := range fields {
			rowStr := cast.ToString(row)
			f.SetCellValue(sheetName, "A"+rowStr, rj.Row)
			f.SetCellValue(sheetName, "B"+rowStr, pricing.Heading(field, pricing.LangArabic))
			f.SetCellValue(sheetName, "C"+rowStr, sanitizeExcelCell(rj.Fields[field]))
			f.SetCellStyle(sheetName, "A"+rowStr, "C"+rowStr, st.subItem)
			row++
		}
	}

	return writeWorkbook(f)
}

type sheetStyles struct {
	title, subtitle, header    int
	mainItem, subItem          int
	summaryLabel, summaryValue int
}

func newSheetStyles(f *excelize.File) (sheetStyles, error) {
	var st sheetStyles
	var err error

	// Title style: bold, 16pt.
	if st.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	}); err != nil {
		return st, fmt.Errorf("create title style: %w", err)
	}

	if st.subtitle, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 11},
	}); err != nil {
		return st, fmt.Errorf("create subtitle style: %w", err)
	}

	// Column header style: bold, white text, charcoal background, centered.
	if st.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
		Border: thinBorders(),
	}); err != nil {
		return st, fmt.Errorf("create header style: %w", err)
	}

	if st.mainItem, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 10},
		Border: thinBorders(),
	}); err != nil {
		return st, fmt.Errorf("create main item style: %w", err)
	}

	if st.subItem, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
	}); err != nil {
		return st, fmt.Errorf("create sub item style: %w", err)
	}

	if st.summaryLabel, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	}); err != nil {
		return st, fmt.Errorf("create summary label style: %w", err)
	}

	if st.summaryValue, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
	}); err != nil {
		return st, fmt.Errorf("create summary value style: %w", err)
	}
	return st, nil
}

func setRightToLeft(f *excelize.File, sheet string) error {
	rtl := true
	if err := f.SetSheetView(sheet, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		return fmt.Errorf("set sheet view %s: %w", sheet, err)
	}
	return nil
}

func writeWorkbook(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote. Excel interprets cells starting with =, +, -,
// @, \t or \r as formulas.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

// thinBorders returns a slice of excelize.Border for thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{
			Type:  side,
			Color: "#000000",
			Style: 1, // thin
		}
	}
	return borders
}
