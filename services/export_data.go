package services

import (
	"fmt"

	"tenderpricing/pricing"
)

// ExportRow represents a single row in the priced BoQ export (line or decomposition entry).
type ExportRow struct {
	Level           int    // 0 = BoQ line, 1 = decomposition entry
	Index           string // "1", "1.1" etc
	Code            string
	Description     string
	UOM             string
	Qty             float64
	UnitPrice       float64
	Total           float64
	FinalUnitPrice  float64 // level 0 only
	FinalTotalPrice float64 // level 0 only
}

// SummaryLine is one labelled figure of the summary block.
type SummaryLine struct {
	Label string
	Value float64
	Total bool
}

// ExportData holds all data needed for a result export.
type ExportData struct {
	Title               string
	Code                string
	Strategy            string
	Status              string
	PricedAt            string
	Rows                []ExportRow
	Summary             []SummaryLine
	Risks               []pricing.RiskCharge
	LocalContentPercent float64
	Notes               []string
}

// BuildExportData flattens a result, and the decomposition of each line
// when the project is given, into presentation rows.
func BuildExportData(res *pricing.Result, p *pricing.Project, settings pricing.Settings) ExportData {
	strategy := string(res.Strategy)
	if profile, ok := settings.Strategy(res.Strategy); ok {
		strategy = profile.Label
	}
	data := ExportData{
		Title:               res.Summary.ProjectName,
		Code:                res.Summary.ProjectCode,
		Strategy:            strategy,
		Status:              string(res.Status),
		PricedAt:            res.EndTime.String(),
		Risks:               res.Risk.Items,
		LocalContentPercent: res.Summary.LocalContentPercent,
		Notes:               res.Summary.Notes,
	}

	for i, it := range res.Direct.Items {
		idx := fmt.Sprintf("%d", i+1)
		data.Rows = append(data.Rows, ExportRow{
			Level:           0,
			Index:           idx,
			Code:            it.Code,
			Description:     it.Description,
			UOM:             it.Unit.Label(),
			Qty:             it.Quantity,
			UnitPrice:       it.UnitPrice,
			Total:           it.TotalPrice,
			FinalUnitPrice:  it.FinalUnitPrice,
			FinalTotalPrice: it.FinalTotalPrice,
		})
		if p == nil {
			continue
		}
		line, ok := p.Item(it.ItemID)
		if !ok || line.Decomposition.IsEmpty() {
			continue
		}
		n := 0
		for _, cat := range []pricing.Category{pricing.CategoryMaterial, pricing.CategoryLabour, pricing.CategoryEquipment} {
			for _, s := range line.Decomposition.Items(cat) {
				n++
				data.Rows = append(data.Rows, ExportRow{
					Level:       1,
					Index:       fmt.Sprintf("%s.%d", idx, n),
					Code:        cat.Label(),
					Description: s.Name,
					UOM:         s.Unit,
					Qty:         s.Quantity,
					UnitPrice:   s.UnitPrice,
					Total:       s.Total,
				})
			}
		}
	}

	ind := res.Indirect
	sum := res.Summary
	data.Summary = []SummaryLine{
		{Label: "التكاليف المباشرة", Value: sum.DirectTotal},
		{Label: "المصاريف العامة (" + FormatRate(ind.Rates.Overhead) + ")", Value: ind.Overhead},
		{Label: "الربح (" + FormatRate(ind.Rates.Profit) + ")", Value: ind.Profit},
		{Label: "المصاريف الإدارية (" + FormatRate(ind.Rates.Administrative) + ")", Value: ind.Administrative},
		{Label: "التجهيز والتعبئة (" + FormatRate(ind.Rates.Mobilisation) + ")", Value: ind.Mobilisation},
		{Label: "الضمانات والتأمين (" + FormatRate(ind.Rates.BondsInsurance) + ")", Value: ind.BondsInsurance},
		{Label: "إجمالي التكاليف غير المباشرة", Value: sum.IndirectTotal, Total: true},
		{Label: "تكلفة المخاطر", Value: sum.RiskTotal},
		{Label: "الإجمالي قبل الضريبة", Value: sum.Subtotal, Total: true},
		{Label: "ضريبة القيمة المضافة (" + FormatRate(sum.VATRate) + ")", Value: sum.VATAmount},
		{Label: "السعر النهائي", Value: sum.FinalPrice, Total: true},
	}
	return data
}
